// Copyright 2015 Google Inc. All Rights Reserved.

package tfs

import "github.com/tecnicofs/tfs/internal/state"

// Sizing constants re-exported from the storage engine for callers that
// need them (e.g. to size their own read/write buffers). See §3.
const (
	BlockSize                = state.BlockSize
	InodeTableSize           = state.InodeTableSize
	DataBlocks               = state.DataBlocks
	MaxOpenFiles             = state.MaxOpenFiles
	MaxFileName              = state.MaxFileName
	MaxDirectBlocks          = state.MaxDirectBlocks
	BlockPointersPerIndirect = state.BlockPointersPerIndirect
	MaxFileSize              = state.MaxFileSize
	RootInum                 = state.RootInum
)

// Flags is the bitmask argument to Open, combining zero or more of the
// O_* constants below (§6.1).
type Flags int

const (
	// OCreat creates the file if it does not already exist.
	OCreat Flags = 0b001
	// OTrunc truncates an existing file to zero length.
	OTrunc Flags = 0b010
	// OAppend positions the initial write offset at the file's current end.
	OAppend Flags = 0b100
)
