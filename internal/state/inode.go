// Copyright 2015 Google Inc. All Rights Reserved.

package state

import "sync"

// Inode is a file's or the root directory's metadata record. Its
// content lock is inode_lock[i] of §4.5.
//
// INVARIANT: !taken => kind == KindFree, size == 0 (direct/indirect are
// only meaningful once Create has set them to NoBlock)
// INVARIANT: kind == KindDirectory => direct[0] != NoBlock && size == BlockSize
// INVARIANT: size <= MaxFileSize
type Inode struct {
	mu sync.RWMutex

	taken    bool                     // GUARDED_BY(mu)
	kind     Kind                     // GUARDED_BY(mu)
	size     uint64                   // GUARDED_BY(mu)
	direct   [MaxDirectBlocks]int32   // GUARDED_BY(mu)
	indirect int32                    // GUARDED_BY(mu)
}

// Lock/Unlock/RLock/RUnlock expose the inode's content lock directly so
// callers can hold it across a whole read/write/truncate,
// per the lock order of §5.
func (n *Inode) Lock()    { n.mu.Lock() }
func (n *Inode) Unlock()  { n.mu.Unlock() }
func (n *Inode) RLock()   { n.mu.RLock() }
func (n *Inode) RUnlock() { n.mu.RUnlock() }

// Kind returns the inode's type. Caller must hold at least a read lock.
func (n *Inode) Kind() Kind { return n.kind }

// Size returns the inode's current size. Caller must hold at least a read lock.
func (n *Inode) Size() uint64 { return n.size }

// DirectBlock returns the block index stored at direct slot k, or NoBlock.
func (n *Inode) DirectBlock(k int) int { return int(n.direct[k]) }

// IndirectBlock returns the indirect block index, or NoBlock.
func (n *Inode) IndirectBlock() int { return int(n.indirect) }

// InodeTable is the fixed array of inodes.
type InodeTable struct {
	allocMu sync.Mutex // serializes the free-bitmap scan in Create/Delete
	inodes  [InodeTableSize]Inode
	blocks  *BlockPool
}

// NewInodeTable returns a table with every slot free, backed by the given
// block pool for directory-entry-block allocation.
func NewInodeTable(blocks *BlockPool) *InodeTable {
	return &InodeTable{blocks: blocks}
}

// Create finds the first free inode slot, marks it taken, and initializes
// it for the given kind. For a DIRECTORY this also allocates its single
// entry block and fills every slot's inumber with NoInode; failure to
// allocate that block rolls the inode back to free.
func (t *InodeTable) Create(kind Kind) (int, error) {
	t.allocMu.Lock()
	idx := -1
	for i := range t.inodes {
		if !t.inodes[i].taken {
			t.inodes[i].taken = true
			idx = i
			break
		}
	}
	t.allocMu.Unlock()

	if idx == NoInode {
		return NoInode, ErrNoFreeInode
	}

	n := &t.inodes[idx]
	n.mu.Lock()
	defer n.mu.Unlock()

	n.kind = kind
	n.indirect = NoBlock
	for k := range n.direct {
		n.direct[k] = NoBlock
	}

	switch kind {
	case KindDirectory:
		blk, err := t.blocks.Alloc()
		if err != nil {
			n.taken = false
			n.kind = KindFree
			return NoInode, err
		}
		for e := 0; e < MaxDirEntries; e++ {
			if err := writeDirEntry(t.blocks, blk, e, "", NoInode); err != nil {
				t.blocks.Free(blk)
				n.taken = false
				n.kind = KindFree
				return NoInode, err
			}
		}
		n.direct[0] = int32(blk)
		n.size = BlockSize
	case KindFile:
		n.size = 0
	}

	return idx, nil
}

// Get returns a reference to inode i. It does not acquire the inode's lock
// and does not validate that the slot is taken; callers lock it themselves
// before inspecting mutable fields.
func (t *InodeTable) Get(i int) (*Inode, error) {
	if i < 0 || i >= len(t.inodes) {
		return nil, ErrInvalidInode
	}
	return &t.inodes[i], nil
}

// Delete marks inode i free and, if it has a nonzero size, frees every
// direct block it references. The indirect block itself (and the blocks it
// points to) is not freed by this primitive: user files are never deleted
// through the public API, so Delete is only used to roll back a freshly
// created, still empty inode when tfs.Open cannot add its directory entry.
func (t *InodeTable) Delete(i int) error {
	if i < 0 || i >= len(t.inodes) {
		return ErrInvalidInode
	}
	n := &t.inodes[i]
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.size > 0 {
		for k := range n.direct {
			if n.direct[k] != NoBlock {
				t.blocks.Free(int(n.direct[k]))
				n.direct[k] = NoBlock
			}
		}
	}
	n.taken = false
	n.kind = KindFree
	n.size = 0
	n.indirect = NoBlock
	return nil
}

// Reset wipes every inode back to the free state. The block pool is not
// touched. Called by State.Reset.
func (t *InodeTable) Reset() {
	t.allocMu.Lock()
	defer t.allocMu.Unlock()
	for i := range t.inodes {
		t.inodes[i] = Inode{indirect: NoBlock}
	}
}
