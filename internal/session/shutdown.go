// Copyright 2015 Google Inc. All Rights Reserved.

package session

import (
	"io"
	"log"
	"sync"

	tfs "github.com/tecnicofs/tfs"
	"github.com/tecnicofs/tfs/internal/wire"
)

// ShutdownCoordinator implements shutdown-after-all-closed: the first SHUTDOWN_AFTER_ALL_CLOSED
// request blocks its session's worker goroutine until every open handle
// has been closed, then replies and tells Serve to stop accepting
// further work. Later SHUTDOWN_AFTER_ALL_CLOSED requests, if any manage
// to race in before the process exits, always get -1, regardless of how
// the winning call turned out.
type ShutdownCoordinator struct {
	fs     *tfs.FS
	once   sync.Once
	done   chan struct{}
	result int32
	logger *log.Logger
}

func NewShutdownCoordinator(fs *tfs.FS, logger *log.Logger) *ShutdownCoordinator {
	return &ShutdownCoordinator{fs: fs, done: make(chan struct{}), logger: logger}
}

// Done is closed once a shutdown has been carried out; Serve selects on
// it to know when to stop the receiver loop and return.
func (c *ShutdownCoordinator) Done() <-chan struct{} {
	return c.done
}

func (c *ShutdownCoordinator) handle(s *session) {
	won := false
	c.once.Do(func() {
		won = true
		c.logger.Printf("SHUTDOWN_AFTER_ALL_CLOSED: waiting for open handles to close")
		if err := c.fs.DestroyAfterAllClosed(); err != nil {
			c.result = -1
		}
	})

	result := int32(-1)
	if won {
		result = c.result
	}

	if werr := s.writeReply(func(w io.Writer) error {
		return wire.WriteShutdownReply(w, wire.ShutdownReply{Result: result})
	}); werr != nil {
		c.logger.Printf("SHUTDOWN_AFTER_ALL_CLOSED reply: %v", werr)
	}

	if won {
		close(c.done)
	}
}
