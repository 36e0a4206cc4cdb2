// Copyright 2015 Google Inc. All Rights Reserved.

// Package wire implements the TecnicoFS request/reply framing protocol
// used between clients and the session server over named pipes (§6.2).
// It has no notion of sessions or dispatch; those live in internal/session.
package wire

import "github.com/tecnicofs/tfs/internal/state"

// OpCode is the first byte of every request.
type OpCode byte

const (
	OpMount              OpCode = 1
	OpUnmount            OpCode = 2
	OpOpen               OpCode = 3
	OpClose              OpCode = 4
	OpWrite              OpCode = 5
	OpRead               OpCode = 6
	OpShutdownAfterClose OpCode = 7
)

func (o OpCode) String() string {
	switch o {
	case OpMount:
		return "MOUNT"
	case OpUnmount:
		return "UNMOUNT"
	case OpOpen:
		return "OPEN"
	case OpClose:
		return "CLOSE"
	case OpWrite:
		return "WRITE"
	case OpRead:
		return "READ"
	case OpShutdownAfterClose:
		return "SHUTDOWN_AFTER_ALL_CLOSED"
	default:
		return "UNKNOWN"
	}
}

const (
	// PipeNameMax is the fixed width, in bytes, of a NUL-padded pipe path
	// field on the wire.
	PipeNameMax = 40

	// NameMax is the fixed width, in bytes, of a NUL-padded file name
	// field on the wire. Equal to state.MaxFileName.
	NameMax = state.MaxFileName

	// MaxSessions is the size of the server's fixed session pool.
	MaxSessions = 64

	// MaxRequestSize bounds the largest request the receiver will accept:
	// enough for a WRITE of a full block plus its header.
	MaxRequestSize = state.BlockSize + 64
)
