// Copyright 2015 Google Inc. All Rights Reserved.

package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/sys/unix"

	tfs "github.com/tecnicofs/tfs"
)

// Server owns the well-known server pipe and wires the pool, receiver and
// shutdown coordinator together. Equivalent to tfs_server's main().
type Server struct {
	pipePath string
	fs       *tfs.FS
	pool     *Pool
	coord    *ShutdownCoordinator
	logger   *log.Logger
}

// NewServer creates the well-known named pipe at pipePath (removing any
// stale file left over from a previous run, the way tfs_server unlinks it
// on startup) and returns a Server ready to Serve.
func NewServer(pipePath string, fs *tfs.FS, logger *log.Logger) (*Server, error) {
	_ = os.Remove(pipePath)
	if err := unix.Mkfifo(pipePath, 0640); err != nil {
		return nil, fmt.Errorf("mkfifo %s: %w", pipePath, err)
	}

	return &Server{
		pipePath: pipePath,
		fs:       fs,
		pool:     NewPool(logger),
		coord:    NewShutdownCoordinator(fs, logger),
		logger:   logger,
	}, nil
}

// Serve blocks, dispatching client requests, until a client successfully
// invokes SHUTDOWN_AFTER_ALL_CLOSED or ctx is cancelled. It removes the
// well-known pipe before returning.
func (srv *Server) Serve(ctx context.Context) error {
	defer os.Remove(srv.pipePath)
	defer srv.pool.ReleaseAll()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rcv := NewReceiver(srv.pool, srv.fs, srv.reopen, srv.coord, srv.logger)

	errCh := make(chan error, 1)
	go func() { errCh <- rcv.Run(ctx) }()

	select {
	case <-srv.coord.Done():
		cancel()
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (srv *Server) reopen() (io.ReadCloser, error) {
	// Opening a FIFO for reading blocks until a writer opens it, unless
	// O_NONBLOCK is given; the default blocking open is exactly what the
	// receiver loop wants between clients.
	f, err := os.OpenFile(srv.pipePath, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}
