// Copyright 2015 Google Inc. All Rights Reserved.

package session_test

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	. "github.com/jacobsa/ogletest"
	"golang.org/x/sys/unix"

	tfs "github.com/tecnicofs/tfs"
	"github.com/tecnicofs/tfs/client"
	"github.com/tecnicofs/tfs/internal/session"
)

func TestShutdown(t *testing.T) { RunTests(t) }

type ShutdownTest struct {
	dir        string
	serverPath string
	logger     *log.Logger
	pool       *session.Pool
	cancel     context.CancelFunc
}

func init() { RegisterTestSuite(&ShutdownTest{}) }

func (t *ShutdownTest) SetUp(_ *TestInfo) {
	var err error
	t.dir, err = os.MkdirTemp("", "tfssd")
	AssertEq(nil, err)

	t.serverPath = filepath.Join(t.dir, "srv.pipe")
	AssertEq(nil, unix.Mkfifo(t.serverPath, 0640))

	t.logger = log.New(os.Stderr, "", 0)
	fs := tfs.New()
	t.pool = session.NewPool(t.logger)
	coord := session.NewShutdownCoordinator(fs, t.logger)

	reopen := func() (io.ReadCloser, error) {
		return os.OpenFile(t.serverPath, os.O_RDONLY, 0)
	}
	rcv := session.NewReceiver(t.pool, fs, reopen, coord, t.logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go rcv.Run(ctx)
}

func (t *ShutdownTest) TearDown() {
	t.cancel()
	t.pool.ReleaseAll()
	os.RemoveAll(t.dir)
}

func (t *ShutdownTest) mount(name string) *client.Client {
	c := client.New(t.serverPath)
	AssertEq(nil, c.Mount(filepath.Join(t.dir, name)))
	return c
}

// ShutdownBlocksUntilOpenHandlesCloseThenSecondCallerGetsMinusOne drives
// the coordinator through its full contract over the real wire protocol:
// the first SHUTDOWN_AFTER_ALL_CLOSED caller blocks until the one open
// handle is closed and then succeeds, while a second caller racing in
// concurrently always gets -1, regardless of the winner's outcome.
func (t *ShutdownTest) ShutdownBlocksUntilOpenHandlesCloseThenSecondCallerGetsMinusOne() {
	writer := t.mount("w.pipe")
	h, err := writer.Open("/f", int32(tfs.OCreat))
	AssertEq(nil, err)

	shutdowner := t.mount("s1.pipe")
	second := t.mount("s2.pipe")

	var wg sync.WaitGroup
	results := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = shutdowner.ShutdownAfterAllClosed()
	}()

	// Give the first caller a chance to reach the coordinator and start
	// blocking on the still-open handle before the second one races in.
	time.Sleep(50 * time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = second.ShutdownAfterAllClosed()
	}()

	time.Sleep(50 * time.Millisecond)
	AssertEq(nil, writer.Close(h))

	wg.Wait()

	ExpectEq(nil, results[0])
	AssertTrue(results[1] != nil, "second SHUTDOWN_AFTER_ALL_CLOSED should have failed with -1")
}
