// Copyright 2015 Google Inc. All Rights Reserved.

package state

import "sync"

// Directory implements the root directory: a fixed-capacity array of
// (name, inumber) entries living in the root inode's single data block.
// There are no subdirectories, so this type is only ever used against
// RootInum's inode.
type Directory struct {
	blocks *BlockPool

	// entryLocks[e] guards slot e of the entry block, the dir_entry_lock[e]
	// of §4.5. It is the innermost lock in the §5 lock order.
	entryLocks [MaxDirEntries]sync.RWMutex
}

// NewDirectory returns a directory view backed by the given block pool.
func NewDirectory(blocks *BlockPool) *Directory {
	return &Directory{blocks: blocks}
}

// AddEntry scans the parent's entry block for the first empty slot and
// writes (name, child) into it. No duplicate check is performed here; §4.3
// leaves uniqueness to the open(2) protocol, which serializes the
// lookup/create decision under the namespace mutex.
//
// Caller must hold at least a read lock on parent, and parent must be a
// directory. AddEntry holds the entry block's block_lock for its entire
// scan, with each slot's dir_entry_lock nested inside it, keeping the §5
// lock order (block_lock before dir_entry_lock) intact even though a
// single block backs every slot.
func (d *Directory) AddEntry(parent *Inode, child int, name string) error {
	if parent.kind != KindDirectory {
		return ErrNotDirectory
	}
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxFileName {
		return ErrNameTooLong
	}

	blk := parent.DirectBlock(0)
	d.blocks.LockBlock(blk)
	defer d.blocks.UnlockBlock(blk)

	for e := 0; e < MaxDirEntries; e++ {
		d.entryLocks[e].Lock()
		_, inum, err := readDirEntryLocked(d.blocks, blk, e)
		if err != nil {
			d.entryLocks[e].Unlock()
			return err
		}
		if inum == NoInode {
			err := writeDirEntryLocked(d.blocks, blk, e, name, int32(child))
			d.entryLocks[e].Unlock()
			return err
		}
		d.entryLocks[e].Unlock()
	}
	return ErrDirFull
}

// Find scans the parent's entry block for name, returning its inumber or
// ErrNotFound.
//
// Caller must hold at least a read lock on parent, and parent must be a
// directory. Like AddEntry, it holds block_lock (for reading) outermost
// relative to the per-slot dir_entry_locks.
func (d *Directory) Find(parent *Inode, name string) (int, error) {
	if parent.kind != KindDirectory {
		return NoInode, ErrNotDirectory
	}
	if name == "" {
		return NoInode, ErrEmptyName
	}

	blk := parent.DirectBlock(0)
	d.blocks.RLockBlock(blk)
	defer d.blocks.RUnlockBlock(blk)

	for e := 0; e < MaxDirEntries; e++ {
		d.entryLocks[e].RLock()
		entryName, inum, err := readDirEntryLocked(d.blocks, blk, e)
		d.entryLocks[e].RUnlock()
		if err != nil {
			return NoInode, err
		}
		if inum != NoInode && entryName == name {
			return int(inum), nil
		}
	}
	return NoInode, ErrNotFound
}

// readDirEntry decodes slot `slot` of block `blk`: MaxFileName bytes of
// NUL-padded name followed by a little-endian int32 inumber.
func readDirEntry(blocks *BlockPool, blk, slot int) (string, int32, error) {
	var raw [dirEntrySize]byte
	if err := blocks.ReadAt(blk, slot*dirEntrySize, raw[:]); err != nil {
		return "", 0, err
	}
	name := cString(raw[:MaxFileName])
	inum := decodeInt32(raw[MaxFileName:])
	return name, inum, nil
}

// writeDirEntry encodes (name, inum) into slot `slot` of block `blk`.
func writeDirEntry(blocks *BlockPool, blk, slot int, name string, inum int32) error {
	var raw [dirEntrySize]byte
	copy(raw[:MaxFileName], name)
	encodeInt32(raw[MaxFileName:], inum)
	return blocks.WriteAt(blk, slot*dirEntrySize, raw[:])
}

// readDirEntryLocked and writeDirEntryLocked are readDirEntry/writeDirEntry
// for a caller that already holds blk's block_lock via RLockBlock/LockBlock.
func readDirEntryLocked(blocks *BlockPool, blk, slot int) (string, int32, error) {
	var raw [dirEntrySize]byte
	if err := blocks.readAtLocked(blk, slot*dirEntrySize, raw[:]); err != nil {
		return "", 0, err
	}
	name := cString(raw[:MaxFileName])
	inum := decodeInt32(raw[MaxFileName:])
	return name, inum, nil
}

func writeDirEntryLocked(blocks *BlockPool, blk, slot int, name string, inum int32) error {
	var raw [dirEntrySize]byte
	copy(raw[:MaxFileName], name)
	encodeInt32(raw[MaxFileName:], inum)
	return blocks.writeAtLocked(blk, slot*dirEntrySize, raw[:])
}

// cString returns the portion of b before the first NUL byte, or all of b
// if there is none.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
