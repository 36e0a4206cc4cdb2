// Copyright 2015 Google Inc. All Rights Reserved.

// Package session implements the TecnicoFS server side of the wire
// protocol: a fixed pool of sessions, a single receiver goroutine that
// demultiplexes requests onto them, and the SHUTDOWN_AFTER_ALL_CLOSED
// coordinator.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/jacobsa/reqtrace"

	tfs "github.com/tecnicofs/tfs"
	"github.com/tecnicofs/tfs/internal/wire"
)

// A session is one of the MaxSessions fixed worker slots a client is bound
// to for the lifetime of its MOUNT. Each session has its own goroutine,
// processing at most one request at a time: the real client behind a
// session always blocks for a reply before issuing its next request
// (§4.9), so a single-slot task queue is enough to never block the
// receiver goroutine on a slow file-system call.
type session struct {
	id int32

	mu      sync.Mutex // GUARDED_BY below
	replyW  io.WriteCloser
	taken   bool // INVARIANT: taken == (replyW != nil)
	tasks   chan func()
	logger  *log.Logger
}

func newSession(id int32, logger *log.Logger) *session {
	s := &session{
		id:     id,
		tasks:  make(chan func(), 1),
		logger: logger,
	}
	go s.run()
	return s
}

func (s *session) run() {
	for task := range s.tasks {
		task()
	}
}

// bind attaches a freshly mounted client's reply pipe to this session.
func (s *session) bind(w io.WriteCloser) {
	s.mu.Lock()
	s.replyW = w
	s.taken = true
	s.mu.Unlock()
}

// release detaches and closes the session's reply pipe, returning it to
// the free pool.
func (s *session) release() {
	s.mu.Lock()
	w := s.replyW
	s.replyW = nil
	s.taken = false
	s.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

func (s *session) isTaken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taken
}

// writeReply writes a reply to the session's reply pipe. It is called by
// the session's own worker goroutine and, for MOUNT replies and abandoned
// requests, by the receiver goroutine; the lock covers only reading
// replyW, not the write itself.
func (s *session) writeReply(fn func(io.Writer) error) error {
	s.mu.Lock()
	w := s.replyW
	s.mu.Unlock()
	if w == nil {
		return fmt.Errorf("session %d: no reply pipe bound", s.id)
	}
	return fn(w)
}

// dispatch enqueues a decoded request for this session's worker. The
// caller (the receiver goroutine) must not block waiting for task to run;
// the channel's single slot already bounds how far a session can fall
// behind.
func (s *session) dispatch(task func()) {
	s.tasks <- task
}

// handleOpen runs OPEN against fs and writes the OpenReply, wrapping the
// call in a reqtrace span the way every op in this file is traced.
func (s *session) handleOpen(ctx context.Context, fs *tfs.FS, req wire.OpenRequest) {
	_, report := reqtrace.StartSpan(ctx, "OPEN")
	h, err := fs.Open("/"+req.Name, tfs.Flags(req.Flags))
	report(err)

	result := int32(-1)
	if err == nil {
		result = int32(h)
	} else {
		s.logger.Printf("OPEN %q: %v", req.Name, err)
	}
	if werr := s.writeReply(func(w io.Writer) error {
		return wire.WriteOpenReply(w, wire.OpenReply{HandleOrErr: result})
	}); werr != nil {
		s.logger.Printf("OPEN reply: %v", werr)
	}
}

func (s *session) handleClose(ctx context.Context, fs *tfs.FS, req wire.CloseRequest) {
	_, report := reqtrace.StartSpan(ctx, "CLOSE")
	err := fs.Close(int(req.Handle))
	report(err)

	result := int32(0)
	if err != nil {
		result = -1
		s.logger.Printf("CLOSE %d: %v", req.Handle, err)
	}
	if werr := s.writeReply(func(w io.Writer) error {
		return wire.WriteCloseReply(w, wire.CloseReply{Result: result})
	}); werr != nil {
		s.logger.Printf("CLOSE reply: %v", werr)
	}
}

func (s *session) handleWrite(ctx context.Context, fs *tfs.FS, req wire.WriteRequest) {
	_, report := reqtrace.StartSpan(ctx, "WRITE")
	n, err := fs.Write(int(req.Handle), req.Data)
	report(err)

	result := int64(-1)
	if err == nil {
		result = int64(n)
	} else {
		s.logger.Printf("WRITE %d: %v", req.Handle, err)
	}
	if werr := s.writeReply(func(w io.Writer) error {
		return wire.WriteWriteReply(w, wire.WriteReply{BytesOrErr: result})
	}); werr != nil {
		s.logger.Printf("WRITE reply: %v", werr)
	}
}

func (s *session) handleRead(ctx context.Context, fs *tfs.FS, req wire.ReadRequest) {
	_, report := reqtrace.StartSpan(ctx, "READ")
	buf := make([]byte, req.Len)
	n, err := fs.Read(int(req.Handle), buf)
	report(err)

	rep := wire.ReadReply{BytesOrErr: -1}
	if err == nil {
		rep.BytesOrErr = int64(n)
		rep.Data = buf[:n]
	} else {
		s.logger.Printf("READ %d: %v", req.Handle, err)
	}
	if werr := s.writeReply(func(w io.Writer) error {
		return wire.WriteReadReply(w, rep)
	}); werr != nil {
		s.logger.Printf("READ reply: %v", werr)
	}
}
