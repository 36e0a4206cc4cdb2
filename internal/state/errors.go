// Copyright 2015 Google Inc. All Rights Reserved.

package state

import "errors"

// Sentinel errors surfaced by the storage engine. Every exported operation
// that can fail under normal operation (resource exhaustion, bad input)
// returns one of these; a failed lock acquisition or a broken invariant is
// not one of these; it panics instead (see state.go's invariant checks).
var (
	ErrNoFreeBlock  = errors.New("state: no free data block")
	ErrNoFreeInode  = errors.New("state: no free inode")
	ErrNoFreeHandle = errors.New("state: no free open-file handle")

	ErrInvalidBlock  = errors.New("state: block index out of range")
	ErrInvalidInode  = errors.New("state: inumber out of range or free")
	ErrInvalidHandle = errors.New("state: handle out of range or free")

	ErrNotDirectory = errors.New("state: inode is not a directory")
	ErrEmptyName    = errors.New("state: directory entry name is empty")
	ErrNameTooLong  = errors.New("state: name exceeds MaxFileName")
	ErrDirFull      = errors.New("state: directory has no free entry slots")
	ErrNotFound     = errors.New("state: name not found in directory")

	// ErrCorrupt is returned when a read encounters an unallocated block
	// inside the byte range implied by the inode's recorded size. Per spec
	// this indicates storage corruption; it is fatal to the call, not to
	// the process.
	ErrCorrupt = errors.New("state: read hit an unallocated block within file size")
)
