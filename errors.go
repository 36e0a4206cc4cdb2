// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package tfs

import "errors"

// Errors returned by the library API (§6.1, §7). Every one of these
// corresponds to a -1 return in the original C/wire-protocol contract.
var (
	ErrBadPath        = errors.New("tfs: path must be of the form \"/name\" with len(name) >= 1")
	ErrNotFound       = errors.New("tfs: no such file")
	ErrInvalidHandle  = errors.New("tfs: invalid or already-closed handle")
	ErrNoSpace        = errors.New("tfs: no free inode or data block")
	ErrTooManyHandles = errors.New("tfs: open-file table is full")
	ErrCorrupt        = errors.New("tfs: read hit an unallocated block within file size")
	ErrClosed         = errors.New("tfs: filesystem has been destroyed; call Init again")
)
