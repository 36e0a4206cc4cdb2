// Copyright 2015 Google Inc. All Rights Reserved.

package wire

import (
	"encoding/binary"
	"io"
)

// order is the byte order used for every multibyte field on the wire. The
// spec only requires that both ends of a single machine's named pipes
// agree; little-endian matches the host architectures TecnicoFS actually
// runs on.
var order = binary.LittleEndian

// writeAll loops until the whole of b has been written or a hard error
// occurs, per §4.9/§7's "retry partial writes" policy.
func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// readFull loops until exactly len(b) bytes have been read or a hard error
// occurs. A short read (EOF/ErrUnexpectedEOF before len(b) bytes arrive)
// is surfaced to the caller as an error, which the receiver loop turns
// into a -1 reply and an abandoned request.
func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	return err
}

func encodeCString(s string, size int) []byte {
	b := make([]byte, size)
	copy(b, s)
	return b
}

func decodeCString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func writeInt32(w io.Writer, v int32) error {
	var b [4]byte
	order.PutUint32(b[:], uint32(v))
	return writeAll(w, b[:])
}

func readInt32(r io.Reader) (int32, error) {
	var b [4]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return int32(order.Uint32(b[:])), nil
}

func writeInt64(w io.Writer, v int64) error {
	var b [8]byte
	order.PutUint64(b[:], uint64(v))
	return writeAll(w, b[:])
}

func readInt64(r io.Reader) (int64, error) {
	var b [8]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return int64(order.Uint64(b[:])), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	order.PutUint64(b[:], v)
	return writeAll(w, b[:])
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return order.Uint64(b[:]), nil
}

// --- Requests. The op-code byte itself is read by the receiver loop
// before it knows which of these to decode, so it is never part of these
// functions' wire format here. ---

func WriteMountRequest(w io.Writer, req MountRequest) error {
	return writeAll(w, encodeCString(req.PipeName, PipeNameMax))
}

func ReadMountRequest(r io.Reader) (MountRequest, error) {
	b := make([]byte, PipeNameMax)
	if err := readFull(r, b); err != nil {
		return MountRequest{}, err
	}
	return MountRequest{PipeName: decodeCString(b)}, nil
}

func WriteUnmountRequest(w io.Writer, req UnmountRequest) error {
	return writeInt32(w, req.SessionID)
}

func ReadUnmountRequest(r io.Reader) (UnmountRequest, error) {
	id, err := readInt32(r)
	return UnmountRequest{SessionID: id}, err
}

func WriteOpenRequest(w io.Writer, req OpenRequest) error {
	if err := writeInt32(w, req.SessionID); err != nil {
		return err
	}
	if err := writeInt32(w, req.Flags); err != nil {
		return err
	}
	return writeAll(w, encodeCString(req.Name, NameMax))
}

// ReadSessionID reads the session id leading every request but MOUNT.
// Callers that need to tell a partial decode failure from a failure on
// the session id itself (to decide whether a -1 reply can still be
// delivered) call this first and then the matching Read*RequestRest.
func ReadSessionID(r io.Reader) (int32, error) {
	return readInt32(r)
}

func ReadOpenRequest(r io.Reader) (OpenRequest, error) {
	id, err := ReadSessionID(r)
	if err != nil {
		return OpenRequest{}, err
	}
	return ReadOpenRequestRest(r, id)
}

// ReadOpenRequestRest reads the remainder of an OPEN request once
// sessionID has already been read by the caller.
func ReadOpenRequestRest(r io.Reader, sessionID int32) (OpenRequest, error) {
	req := OpenRequest{SessionID: sessionID}
	var err error
	if req.Flags, err = readInt32(r); err != nil {
		return req, err
	}
	b := make([]byte, NameMax)
	if err = readFull(r, b); err != nil {
		return req, err
	}
	req.Name = decodeCString(b)
	return req, nil
}

func WriteCloseRequest(w io.Writer, req CloseRequest) error {
	if err := writeInt32(w, req.SessionID); err != nil {
		return err
	}
	return writeInt32(w, req.Handle)
}

func ReadCloseRequest(r io.Reader) (CloseRequest, error) {
	id, err := ReadSessionID(r)
	if err != nil {
		return CloseRequest{}, err
	}
	return ReadCloseRequestRest(r, id)
}

// ReadCloseRequestRest reads the remainder of a CLOSE request once
// sessionID has already been read by the caller.
func ReadCloseRequestRest(r io.Reader, sessionID int32) (CloseRequest, error) {
	req := CloseRequest{SessionID: sessionID}
	var err error
	req.Handle, err = readInt32(r)
	return req, err
}

func WriteWriteRequest(w io.Writer, req WriteRequest) error {
	if err := writeInt32(w, req.SessionID); err != nil {
		return err
	}
	if err := writeInt32(w, req.Handle); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(len(req.Data))); err != nil {
		return err
	}
	return writeAll(w, req.Data)
}

// ReadWriteRequestHeader reads everything of a WRITE request up to and
// including its length prefix; the caller (the receiver loop) then reads
// exactly that many data bytes into the session buffer itself.
func ReadWriteRequestHeader(r io.Reader) (sessionID, handle int32, length uint64, err error) {
	sessionID, err = ReadSessionID(r)
	if err != nil {
		return
	}
	handle, length, err = ReadWriteRequestHeaderRest(r, sessionID)
	return
}

// ReadWriteRequestHeaderRest reads a WRITE request's handle and length
// prefix once sessionID has already been read by the caller.
func ReadWriteRequestHeaderRest(r io.Reader, sessionID int32) (handle int32, length uint64, err error) {
	if handle, err = readInt32(r); err != nil {
		return
	}
	length, err = readUint64(r)
	return
}

func WriteReadRequest(w io.Writer, req ReadRequest) error {
	if err := writeInt32(w, req.SessionID); err != nil {
		return err
	}
	if err := writeInt32(w, req.Handle); err != nil {
		return err
	}
	return writeUint64(w, req.Len)
}

func ReadReadRequest(r io.Reader) (ReadRequest, error) {
	id, err := ReadSessionID(r)
	if err != nil {
		return ReadRequest{}, err
	}
	return ReadReadRequestRest(r, id)
}

// ReadReadRequestRest reads the remainder of a READ request once
// sessionID has already been read by the caller.
func ReadReadRequestRest(r io.Reader, sessionID int32) (ReadRequest, error) {
	req := ReadRequest{SessionID: sessionID}
	var err error
	if req.Handle, err = readInt32(r); err != nil {
		return req, err
	}
	req.Len, err = readUint64(r)
	return req, err
}

func WriteShutdownRequest(w io.Writer, req ShutdownRequest) error {
	return writeInt32(w, req.SessionID)
}

func ReadShutdownRequest(r io.Reader) (ShutdownRequest, error) {
	id, err := readInt32(r)
	return ShutdownRequest{SessionID: id}, err
}

// --- Replies. ---

func WriteMountReply(w io.Writer, rep MountReply) error {
	return writeInt32(w, rep.SessionID)
}

func ReadMountReply(r io.Reader) (MountReply, error) {
	id, err := readInt32(r)
	return MountReply{SessionID: id}, err
}

func WriteUnmountReply(w io.Writer, rep UnmountReply) error {
	return writeInt32(w, rep.Result)
}

func ReadUnmountReply(r io.Reader) (UnmountReply, error) {
	v, err := readInt32(r)
	return UnmountReply{Result: v}, err
}

func WriteOpenReply(w io.Writer, rep OpenReply) error {
	return writeInt32(w, rep.HandleOrErr)
}

func ReadOpenReply(r io.Reader) (OpenReply, error) {
	v, err := readInt32(r)
	return OpenReply{HandleOrErr: v}, err
}

func WriteCloseReply(w io.Writer, rep CloseReply) error {
	return writeInt32(w, rep.Result)
}

func ReadCloseReply(r io.Reader) (CloseReply, error) {
	v, err := readInt32(r)
	return CloseReply{Result: v}, err
}

func WriteWriteReply(w io.Writer, rep WriteReply) error {
	return writeInt64(w, rep.BytesOrErr)
}

func ReadWriteReply(r io.Reader) (WriteReply, error) {
	v, err := readInt64(r)
	return WriteReply{BytesOrErr: v}, err
}

func WriteReadReply(w io.Writer, rep ReadReply) error {
	if err := writeInt64(w, rep.BytesOrErr); err != nil {
		return err
	}
	if rep.BytesOrErr > 0 {
		return writeAll(w, rep.Data)
	}
	return nil
}

func ReadReadReply(r io.Reader) (ReadReply, error) {
	n, err := readInt64(r)
	if err != nil {
		return ReadReply{}, err
	}
	rep := ReadReply{BytesOrErr: n}
	if n > 0 {
		rep.Data = make([]byte, n)
		if err := readFull(r, rep.Data); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func WriteShutdownReply(w io.Writer, rep ShutdownReply) error {
	return writeInt32(w, rep.Result)
}

func ReadShutdownReply(r io.Reader) (ShutdownReply, error) {
	v, err := readInt32(r)
	return ShutdownReply{Result: v}, err
}

// WriteOpCode writes the leading op-code byte of a request.
func WriteOpCode(w io.Writer, op OpCode) error {
	return writeAll(w, []byte{byte(op)})
}

// ReadOpCode reads the leading op-code byte of a request.
func ReadOpCode(r io.Reader) (OpCode, error) {
	var b [1]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return OpCode(b[0]), nil
}
