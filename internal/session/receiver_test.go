// Copyright 2015 Google Inc. All Rights Reserved.

package session_test

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	. "github.com/jacobsa/ogletest"
	"golang.org/x/sys/unix"

	tfs "github.com/tecnicofs/tfs"
	"github.com/tecnicofs/tfs/internal/session"
	"github.com/tecnicofs/tfs/internal/wire"
)

func TestReceiver(t *testing.T) { RunTests(t) }

type ReceiverTest struct {
	dir    string
	logger *log.Logger
}

func init() { RegisterTestSuite(&ReceiverTest{}) }

func (t *ReceiverTest) SetUp(_ *TestInfo) {
	var err error
	t.dir, err = os.MkdirTemp("", "tfsrc")
	AssertEq(nil, err)
	t.logger = log.New(os.Stderr, "", 0)
}

func (t *ReceiverTest) TearDown() {
	os.RemoveAll(t.dir)
}

// AbandonsRequestAndRepliesMinusOneWhenWriteLengthExceedsMax drives a
// malformed WRITE straight at a Receiver: a declared length larger than
// the receiver will ever accept. The request is abandoned, but the
// already-bound session still gets a -1 reply rather than being left to
// hang forever.
func (t *ReceiverTest) AbandonsRequestAndRepliesMinusOneWhenWriteLengthExceedsMax() {
	fs := tfs.New()
	pool := session.NewPool(t.logger)
	coord := session.NewShutdownCoordinator(fs, t.logger)

	clientPath := filepath.Join(t.dir, "c.pipe")
	AssertEq(nil, unix.Mkfifo(clientPath, 0600))

	replyCh := make(chan wire.WriteReply, 1)
	go func() {
		f, err := os.OpenFile(clientPath, os.O_RDONLY, 0)
		if err != nil {
			return
		}
		defer f.Close()
		// The MOUNT reply arrives first on the same pipe.
		if _, err := wire.ReadMountReply(f); err != nil {
			return
		}
		rep, err := wire.ReadWriteReply(f)
		if err != nil {
			return
		}
		replyCh <- rep
	}()

	id, overflow, err := pool.Mount(clientPath)
	AssertEq(nil, err)
	AssertEq(nil, pool.WriteMountReply(id, overflow, wire.MountReply{SessionID: id}))

	serverPath := filepath.Join(t.dir, "srv.pipe")
	AssertEq(nil, unix.Mkfifo(serverPath, 0600))

	reopen := func() (io.ReadCloser, error) {
		return os.OpenFile(serverPath, os.O_RDONLY, 0)
	}
	rcv := session.NewReceiver(pool, fs, reopen, coord, t.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rcv.Run(ctx)

	w, err := os.OpenFile(serverPath, os.O_WRONLY, 0)
	AssertEq(nil, err)
	defer w.Close()

	AssertEq(nil, wire.WriteOpCode(w, wire.OpWrite))
	req := wire.WriteRequest{
		SessionID: id,
		Handle:    0,
		Data:      make([]byte, wire.MaxRequestSize+1),
	}
	AssertEq(nil, wire.WriteWriteRequest(w, req))

	rep := <-replyCh
	ExpectEq(int64(-1), rep.BytesOrErr)
}

// AbandonsRequestAndRepliesMinusOneOnTruncatedClose covers the other
// abandonment shape: a bounded read failing partway through decoding
// (here, CLOSE's handle field never arrives) after the session id was
// already parsed.
func (t *ReceiverTest) AbandonsRequestAndRepliesMinusOneOnTruncatedClose() {
	fs := tfs.New()
	pool := session.NewPool(t.logger)
	coord := session.NewShutdownCoordinator(fs, t.logger)

	clientPath := filepath.Join(t.dir, "c2.pipe")
	AssertEq(nil, unix.Mkfifo(clientPath, 0600))

	replyCh := make(chan wire.CloseReply, 1)
	go func() {
		f, err := os.OpenFile(clientPath, os.O_RDONLY, 0)
		if err != nil {
			return
		}
		defer f.Close()
		// The MOUNT reply arrives first on the same pipe.
		if _, err := wire.ReadMountReply(f); err != nil {
			return
		}
		rep, err := wire.ReadCloseReply(f)
		if err != nil {
			return
		}
		replyCh <- rep
	}()

	id, overflow, err := pool.Mount(clientPath)
	AssertEq(nil, err)
	AssertEq(nil, pool.WriteMountReply(id, overflow, wire.MountReply{SessionID: id}))

	serverPath := filepath.Join(t.dir, "srv2.pipe")
	AssertEq(nil, unix.Mkfifo(serverPath, 0600))

	reopen := func() (io.ReadCloser, error) {
		return os.OpenFile(serverPath, os.O_RDONLY, 0)
	}
	rcv := session.NewReceiver(pool, fs, reopen, coord, t.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rcv.Run(ctx)

	w, err := os.OpenFile(serverPath, os.O_WRONLY, 0)
	AssertEq(nil, err)

	// A CLOSE request is an op-code plus two int32s; write the op-code and
	// the session id (reusing UnmountRequest's identical single-int32
	// encoding), then close the writer before the handle field ever
	// arrives.
	AssertEq(nil, wire.WriteOpCode(w, wire.OpClose))
	AssertEq(nil, wire.WriteUnmountRequest(w, wire.UnmountRequest{SessionID: id}))
	w.Close()

	rep := <-replyCh
	ExpectEq(int32(-1), rep.Result)
}
