// Copyright 2015 Google Inc. All Rights Reserved.

package session

import (
	"io"
	"log"
	"os"
	"sync"

	"github.com/tecnicofs/tfs/internal/wire"
)

// Pool is the fixed array of MaxSessions worker sessions. A client
// occupies a slot from MOUNT until UNMOUNT (or until the server shuts
// down); a pool with every slot taken answers the next MOUNT with -1
// rather than blocking.
type Pool struct {
	mu       sync.Mutex // GUARDED_BY below; protects nothing else, sessions guard themselves
	sessions [wire.MaxSessions]*session
	logger   *log.Logger
}

// NewPool constructs a pool with every slot pre-allocated and running its
// worker goroutine, waiting to be bound to a client via Mount.
func NewPool(logger *log.Logger) *Pool {
	p := &Pool{logger: logger}
	for i := range p.sessions {
		p.sessions[i] = newSession(int32(i), logger)
	}
	return p
}

// Mount opens pipeName for writing and binds it to the first free slot,
// returning the slot's id. If every slot is taken it still opens and
// returns the pipe so the caller can deliver a -1 MountReply (§6.3); the
// returned id is -1 and the pipe is not retained by the pool.
func (p *Pool) Mount(pipeName string) (id int32, overflowPipe *os.File, err error) {
	p.mu.Lock()
	var free *session
	for _, s := range p.sessions {
		if !s.isTaken() {
			free = s
			break
		}
	}
	p.mu.Unlock()

	w, oerr := os.OpenFile(pipeName, os.O_WRONLY, 0)
	if oerr != nil {
		return 0, nil, oerr
	}

	if free == nil {
		return -1, w, nil
	}

	free.bind(w)
	return free.id, nil, nil
}

// WriteMountReply delivers a MOUNT reply either over a freshly bound
// session's reply pipe or, on overflow, over the one-off pipe Mount
// opened just to report -1.
func (p *Pool) WriteMountReply(id int32, overflow *os.File, rep wire.MountReply) error {
	if overflow != nil {
		defer overflow.Close()
		return wire.WriteMountReply(overflow, rep)
	}
	s, err := p.get(id)
	if err != nil {
		return err
	}
	return s.writeReply(func(w io.Writer) error {
		return wire.WriteMountReply(w, rep)
	})
}

// Unmount releases the slot identified by id, closing its reply pipe.
func (p *Pool) Unmount(id int32) error {
	s, err := p.get(id)
	if err != nil {
		return err
	}
	s.release()
	return nil
}

func (p *Pool) get(id int32) (*session, error) {
	if id < 0 || int(id) >= len(p.sessions) {
		return nil, errInvalidSession
	}
	s := p.sessions[id]
	if !s.isTaken() {
		return nil, errInvalidSession
	}
	return s, nil
}

// ReleaseAll closes every bound session's reply pipe, used when the
// receiver loop gives up (EOF on the server pipe with no reopen
// possible, or process shutdown).
func (p *Pool) ReleaseAll() {
	for _, s := range p.sessions {
		if s.isTaken() {
			s.release()
		}
	}
}
