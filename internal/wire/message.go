// Copyright 2015 Google Inc. All Rights Reserved.

package wire

// Request layouts mirror §6.2's table exactly: fixed-size int32 session
// ids/flags/handles, a uint64 length ahead of variable-length payloads.

type MountRequest struct {
	PipeName string
}

type UnmountRequest struct {
	SessionID int32
}

type OpenRequest struct {
	SessionID int32
	Flags     int32
	Name      string
}

type CloseRequest struct {
	SessionID int32
	Handle    int32
}

type WriteRequest struct {
	SessionID int32
	Handle    int32
	Data      []byte
}

type ReadRequest struct {
	SessionID int32
	Handle    int32
	Len       uint64
}

type ShutdownRequest struct {
	SessionID int32
}

// Reply layouts mirror §6.2's table.

type MountReply struct {
	SessionID int32 // -1 on overflow
}

type UnmountReply struct {
	Result int32
}

type OpenReply struct {
	HandleOrErr int32
}

type CloseReply struct {
	Result int32
}

type WriteReply struct {
	BytesOrErr int64
}

type ReadReply struct {
	BytesOrErr int64
	Data       []byte // only present when BytesOrErr > 0
}

type ShutdownReply struct {
	Result int32
}
