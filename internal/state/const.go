// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package state implements the in-memory storage engine of TecnicoFS: the
// block pool, the inode table, the root directory, the open-file table, and
// the lock discipline that makes concurrent operations over them
// linearisable per handle. It has no notion of the wire protocol or of
// sessions; those live in internal/wire and internal/session.
package state

// Kind identifies what an inode represents. There are no subdirectories:
// a DIRECTORY inode only ever exists for the single root.
type Kind int

const (
	KindFree Kind = iota
	KindFile
	KindDirectory
)

const (
	// BlockSize is the size in bytes of a single data block.
	BlockSize = 1024

	// InodeTableSize is the number of inode slots in the table.
	InodeTableSize = 64

	// DataBlocks is the number of blocks in the block pool.
	DataBlocks = 1024

	// MaxOpenFiles is the number of slots in the open-file table.
	MaxOpenFiles = 20

	// MaxFileName is the maximum length, in bytes, of a file name (NUL
	// terminator not included in the usable length).
	MaxFileName = 40

	// MaxDirectBlocks is the number of direct block pointers in an inode.
	MaxDirectBlocks = 10

	// blockPointerSize is the size in bytes of one block index as stored in
	// an indirect block.
	blockPointerSize = 4

	// BlockPointersPerIndirect is the number of block indices that fit in a
	// single indirect block.
	BlockPointersPerIndirect = BlockSize / blockPointerSize

	// MaxFileBlocks is the largest number of logical blocks a file may ever
	// span: MAX_DIRECT_BLOCKS direct pointers plus one indirect block's
	// worth of pointers.
	MaxFileBlocks = MaxDirectBlocks + BlockPointersPerIndirect

	// MaxFileSize is the largest a file may ever grow.
	MaxFileSize = MaxFileBlocks * BlockSize

	// RootInum is the inumber of the (only) root directory.
	RootInum = 0

	// dirEntrySize is the on-disk (in-block) size of one directory entry:
	// MaxFileName bytes of name plus one int32 inumber.
	dirEntrySize = MaxFileName + 4

	// MaxDirEntries is the number of directory-entry slots that fit in one
	// data block.
	MaxDirEntries = BlockSize / dirEntrySize
)

// NoBlock is the sentinel block index meaning "no block".
const NoBlock = -1

// NoInode is the sentinel inumber meaning "no inode" / "not found".
const NoInode = -1

// NoHandle is the sentinel handle meaning "no handle" / invalid handle.
const NoHandle = -1
