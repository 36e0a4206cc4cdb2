// Copyright 2015 Google Inc. All Rights Reserved.

package session

import (
	"context"
	"errors"
	"io"
	"log"

	tfs "github.com/tecnicofs/tfs"
	"github.com/tecnicofs/tfs/internal/wire"
)

// PipeReopener reopens the server's well-known pipe for reading. The
// receiver calls it whenever a read hits EOF, which on a FIFO happens
// every time the last writer closes it; a real client population keeps
// reconnecting, so the server must keep reopening rather than exit.
type PipeReopener func() (io.ReadCloser, error)

// Receiver is the single goroutine that reads requests off the
// server's well-known pipe and demultiplexes them onto the session pool.
type Receiver struct {
	pool    *Pool
	fs      *tfs.FS
	reopen  PipeReopener
	logger  *log.Logger
	coord   *ShutdownCoordinator
}

func NewReceiver(pool *Pool, fs *tfs.FS, reopen PipeReopener, coord *ShutdownCoordinator, logger *log.Logger) *Receiver {
	return &Receiver{pool: pool, fs: fs, reopen: reopen, coord: coord, logger: logger}
}

// Run reads requests until reopen itself fails (the server pipe cannot be
// recreated) or ctx is cancelled, matching tfs_server's main loop: read
// one op-code at a time, dispatch it, and on EOF simply reopen and keep
// going.
func (rcv *Receiver) Run(ctx context.Context) error {
	r, err := rcv.reopen()
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		op, err := wire.ReadOpCode(r)
		if errors.Is(err, io.EOF) {
			r.Close()
			r, err = rcv.reopen()
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			rcv.logger.Printf("receiver: read op-code: %v", err)
			r.Close()
			r, err = rcv.reopen()
			if err != nil {
				return err
			}
			continue
		}

		if err := rcv.dispatch(ctx, op, r); err != nil {
			rcv.logger.Printf("receiver: dispatch %v: %v", op, err)
		}
	}
}

func (rcv *Receiver) dispatch(ctx context.Context, op wire.OpCode, r io.Reader) error {
	switch op {
	case wire.OpMount:
		req, err := wire.ReadMountRequest(r)
		if err != nil {
			return err
		}
		id, overflow, merr := rcv.pool.Mount(req.PipeName)
		if merr != nil {
			return merr
		}
		return rcv.pool.WriteMountReply(id, overflow, wire.MountReply{SessionID: id})

	case wire.OpUnmount:
		req, err := wire.ReadUnmountRequest(r)
		if err != nil {
			return err
		}
		uerr := rcv.pool.Unmount(req.SessionID)
		result := int32(0)
		if uerr != nil {
			result = -1
		}
		// The pipe is already closed by Unmount; nothing left to reply on.
		_ = result
		return uerr

	case wire.OpOpen:
		id, err := wire.ReadSessionID(r)
		if err != nil {
			return err
		}
		req, err := wire.ReadOpenRequestRest(r, id)
		if err != nil {
			rcv.abandon(id, func(w io.Writer) error {
				return wire.WriteOpenReply(w, wire.OpenReply{HandleOrErr: -1})
			})
			return err
		}
		s, serr := rcv.pool.get(req.SessionID)
		if serr != nil {
			return serr
		}
		s.dispatch(func() { s.handleOpen(ctx, rcv.fs, req) })
		return nil

	case wire.OpClose:
		id, err := wire.ReadSessionID(r)
		if err != nil {
			return err
		}
		req, err := wire.ReadCloseRequestRest(r, id)
		if err != nil {
			rcv.abandon(id, func(w io.Writer) error {
				return wire.WriteCloseReply(w, wire.CloseReply{Result: -1})
			})
			return err
		}
		s, serr := rcv.pool.get(req.SessionID)
		if serr != nil {
			return serr
		}
		s.dispatch(func() { s.handleClose(ctx, rcv.fs, req) })
		return nil

	case wire.OpWrite:
		sessionID, err := wire.ReadSessionID(r)
		if err != nil {
			return err
		}
		handle, length, herr := wire.ReadWriteRequestHeaderRest(r, sessionID)
		if herr != nil {
			rcv.abandon(sessionID, func(w io.Writer) error {
				return wire.WriteWriteReply(w, wire.WriteReply{BytesOrErr: -1})
			})
			return herr
		}
		if length > wire.MaxRequestSize {
			rcv.abandon(sessionID, func(w io.Writer) error {
				return wire.WriteWriteReply(w, wire.WriteReply{BytesOrErr: -1})
			})
			return errors.New("receiver: WRITE length exceeds MaxRequestSize")
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			rcv.abandon(sessionID, func(w io.Writer) error {
				return wire.WriteWriteReply(w, wire.WriteReply{BytesOrErr: -1})
			})
			return err
		}
		s, serr := rcv.pool.get(sessionID)
		if serr != nil {
			return serr
		}
		req := wire.WriteRequest{SessionID: sessionID, Handle: handle, Data: data}
		s.dispatch(func() { s.handleWrite(ctx, rcv.fs, req) })
		return nil

	case wire.OpRead:
		id, err := wire.ReadSessionID(r)
		if err != nil {
			return err
		}
		req, err := wire.ReadReadRequestRest(r, id)
		if err != nil {
			rcv.abandon(id, func(w io.Writer) error {
				return wire.WriteReadReply(w, wire.ReadReply{BytesOrErr: -1})
			})
			return err
		}
		s, serr := rcv.pool.get(req.SessionID)
		if serr != nil {
			return serr
		}
		s.dispatch(func() { s.handleRead(ctx, rcv.fs, req) })
		return nil

	case wire.OpShutdownAfterClose:
		req, err := wire.ReadShutdownRequest(r)
		if err != nil {
			return err
		}
		s, serr := rcv.pool.get(req.SessionID)
		if serr != nil {
			return serr
		}
		s.dispatch(func() { rcv.coord.handle(s) })
		return nil

	default:
		return errors.New("receiver: unknown op-code")
	}
}

// abandon writes a -1 reply to id's session, if it is currently bound,
// when a bounded read fails partway through a request after the session
// id itself was already parsed. It never returns an error: the caller
// already has the decode error to report, and a failure to deliver the
// abandon reply just means the client was never going to hear back
// anyway.
func (rcv *Receiver) abandon(id int32, writeNeg1 func(io.Writer) error) {
	s, err := rcv.pool.get(id)
	if err != nil {
		return
	}
	if werr := s.writeReply(writeNeg1); werr != nil {
		rcv.logger.Printf("receiver: abandon reply for session %d: %v", id, werr)
	}
}
