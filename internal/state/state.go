// Copyright 2015 Google Inc. All Rights Reserved.

package state

import (
	"fmt"

	"github.com/jacobsa/syncutil"
)

// State bundles the block pool, the inode table, the root
// directory, the open-file table, and the namespace mutex that serializes
// root-directory mutations (the create-name branch of open, per §4.6).
//
// State itself holds no other lock; every other lock lives on the
// sub-structures it owns. The §5 lock order is:
//
//	NamespaceMu -> inode.Lock -> (handle lock, held by the tfs package) ->
//	block.mu -> Directory.entryLocks[e]
type State struct {
	Blocks *BlockPool
	Inodes *InodeTable
	Dir    *Directory
	Open   *OpenFileTable

	// NamespaceMu serializes the lookup/create decision in tfs_open. When
	// acquired for writing, its invariant checker verifies that the root
	// directory is still a live directory and that no name appears twice
	// among its non-empty slots.
	NamespaceMu syncutil.InvariantMutex
}

// New constructs a State with every table empty and then creates the root
// directory inode, per tfs_init (§4.6). It panics if the root inode does
// not come back as RootInum: a broken fundamental invariant, fatal rather
// than recoverable.
func New() *State {
	s := &State{
		Blocks: NewBlockPool(),
	}
	s.Inodes = NewInodeTable(s.Blocks)
	s.Dir = NewDirectory(s.Blocks)
	s.Open = NewOpenFileTable()
	s.NamespaceMu = syncutil.NewInvariantMutex(s.checkNamespaceInvariants)

	root, err := s.Inodes.Create(KindDirectory)
	if err != nil {
		panic(fmt.Sprintf("state: failed to create root directory: %v", err))
	}
	if root != RootInum {
		panic(fmt.Sprintf("state: root directory got inumber %d, want %d", root, RootInum))
	}

	return s
}

// Reset wipes the inode table and the open-file table back to empty. The
// block pool is left as it is and the root directory is not recreated.
// tfs.FS.Destroy does not call it; it discards the whole State instead.
func (s *State) Reset() {
	s.Inodes.Reset()
	s.Open.Reset()
}

// checkNamespaceInvariants enforces that the root directory is present
// and that its entries have unique names. It is run by NamespaceMu on
// every unlock.
func (s *State) checkNamespaceInvariants() {
	root, err := s.Inodes.Get(RootInum)
	if err != nil {
		panic(fmt.Sprintf("state: root inode missing: %v", err))
	}
	root.RLock()
	defer root.RUnlock()

	if !root.taken || root.kind != KindDirectory {
		panic("state: root inode is not a live directory")
	}

	blk := root.DirectBlock(0)
	seen := make(map[string]struct{}, MaxDirEntries)
	for e := 0; e < MaxDirEntries; e++ {
		name, inum, err := readDirEntry(s.Blocks, blk, e)
		if err != nil {
			panic(fmt.Sprintf("state: unreadable directory slot %d: %v", e, err))
		}
		if inum == NoInode {
			continue
		}
		if _, dup := seen[name]; dup {
			panic(fmt.Sprintf("state: duplicate directory entry name %q", name))
		}
		seen[name] = struct{}{}
	}
}
