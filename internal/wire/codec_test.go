// Copyright 2015 Google Inc. All Rights Reserved.

package wire_test

import (
	"bytes"
	"testing"

	. "github.com/jacobsa/ogletest"

	"github.com/tecnicofs/tfs/internal/wire"
)

func TestCodec(t *testing.T) { RunTests(t) }

type CodecTest struct {
}

func init() { RegisterTestSuite(&CodecTest{}) }

func (t *CodecTest) MountRequestRoundTrips() {
	var buf bytes.Buffer
	req := wire.MountRequest{PipeName: "/tmp/client.pipe"}
	AssertEq(nil, wire.WriteMountRequest(&buf, req))

	got, err := wire.ReadMountRequest(&buf)
	AssertEq(nil, err)
	ExpectEq(req.PipeName, got.PipeName)
}

func (t *CodecTest) OpenRequestRoundTrips() {
	var buf bytes.Buffer
	req := wire.OpenRequest{SessionID: 3, Flags: 5, Name: "greeting"}
	AssertEq(nil, wire.WriteOpenRequest(&buf, req))

	got, err := wire.ReadOpenRequest(&buf)
	AssertEq(nil, err)
	ExpectEq(req.SessionID, got.SessionID)
	ExpectEq(req.Flags, got.Flags)
	ExpectEq(req.Name, got.Name)
}

func (t *CodecTest) WriteRequestRoundTripsThroughHeaderAndPayload() {
	var buf bytes.Buffer
	req := wire.WriteRequest{SessionID: 1, Handle: 2, Data: []byte("payload")}
	AssertEq(nil, wire.WriteWriteRequest(&buf, req))

	sessionID, handle, length, err := wire.ReadWriteRequestHeader(&buf)
	AssertEq(nil, err)
	ExpectEq(req.SessionID, sessionID)
	ExpectEq(req.Handle, handle)
	ExpectEq(len(req.Data), int(length))

	data := make([]byte, length)
	_, err = buf.Read(data)
	AssertEq(nil, err)
	ExpectEq(string(req.Data), string(data))
}

func (t *CodecTest) ReadReplyRoundTripsWithData() {
	var buf bytes.Buffer
	rep := wire.ReadReply{BytesOrErr: 5, Data: []byte("hello")}
	AssertEq(nil, wire.WriteReadReply(&buf, rep))

	got, err := wire.ReadReadReply(&buf)
	AssertEq(nil, err)
	ExpectEq(rep.BytesOrErr, got.BytesOrErr)
	ExpectEq(string(rep.Data), string(got.Data))
}

func (t *CodecTest) ReadReplyRoundTripsOnError() {
	var buf bytes.Buffer
	rep := wire.ReadReply{BytesOrErr: -1}
	AssertEq(nil, wire.WriteReadReply(&buf, rep))

	got, err := wire.ReadReadReply(&buf)
	AssertEq(nil, err)
	ExpectEq(int64(-1), got.BytesOrErr)
	ExpectEq(0, len(got.Data))
}

func (t *CodecTest) OpCodeRoundTrips() {
	var buf bytes.Buffer
	AssertEq(nil, wire.WriteOpCode(&buf, wire.OpRead))

	got, err := wire.ReadOpCode(&buf)
	AssertEq(nil, err)
	ExpectEq(wire.OpRead, got)
}
