// Copyright 2015 Google Inc. All Rights Reserved.

package session_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"

	. "github.com/jacobsa/ogletest"
	"golang.org/x/sys/unix"

	"github.com/tecnicofs/tfs/internal/session"
	"github.com/tecnicofs/tfs/internal/wire"
)

func TestPool(t *testing.T) { RunTests(t) }

type PoolTest struct {
	dir    string
	logger *log.Logger
	pool   *session.Pool
}

func init() { RegisterTestSuite(&PoolTest{}) }

func (t *PoolTest) SetUp(_ *TestInfo) {
	var err error
	t.dir, err = os.MkdirTemp("", "tfs-pool-test")
	AssertEq(nil, err)
	t.logger = log.New(os.Stderr, "", 0)
	t.pool = session.NewPool(t.logger)
}

func (t *PoolTest) TearDown() {
	os.RemoveAll(t.dir)
}

// openReaderFIFO creates path as a FIFO and returns a channel that
// receives the single MountReply a writer eventually sends to it.
func (t *PoolTest) openReaderFIFO(path string) <-chan wire.MountReply {
	AssertEq(nil, unix.Mkfifo(path, 0600))

	repCh := make(chan wire.MountReply, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			return
		}
		defer f.Close()
		rep, err := wire.ReadMountReply(f)
		if err != nil {
			return
		}
		repCh <- rep
	}()
	return repCh
}

// MountFillsEverySlotThenOverflowsWithMinusOne exercises the mount
// protocol's overflow case: once every one of the pool's MaxSessions
// slots is taken, the next MOUNT gets -1 instead of blocking, and the -1
// still arrives over a real pipe rather than being dropped.
func (t *PoolTest) MountFillsEverySlotThenOverflowsWithMinusOne() {
	seen := make(map[int32]bool, wire.MaxSessions)

	for i := 0; i < wire.MaxSessions; i++ {
		path := filepath.Join(t.dir, fmt.Sprintf("client-%d.pipe", i))
		repCh := t.openReaderFIFO(path)

		id, overflow, err := t.pool.Mount(path)
		AssertEq(nil, err)
		ExpectTrue(id >= 0, "id=%d", id)
		ExpectTrue(overflow == nil)
		ExpectFalse(seen[id], "session id %d handed out twice", id)
		seen[id] = true

		AssertEq(nil, t.pool.WriteMountReply(id, overflow, wire.MountReply{SessionID: id}))
		rep := <-repCh
		ExpectEq(id, rep.SessionID)
	}

	overflowPath := filepath.Join(t.dir, "overflow.pipe")
	repCh := t.openReaderFIFO(overflowPath)

	id, overflow, err := t.pool.Mount(overflowPath)
	AssertEq(nil, err)
	AssertEq(int32(-1), id)
	AssertTrue(overflow != nil)

	AssertEq(nil, t.pool.WriteMountReply(id, overflow, wire.MountReply{SessionID: id}))
	rep := <-repCh
	ExpectEq(int32(-1), rep.SessionID)
}

// UnmountFreesASlotForReuse checks that releasing a session makes its id
// available to the next MOUNT rather than leaving the pool permanently
// short one slot.
func (t *PoolTest) UnmountFreesASlotForReuse() {
	path := filepath.Join(t.dir, "a.pipe")
	repCh := t.openReaderFIFO(path)

	id, overflow, err := t.pool.Mount(path)
	AssertEq(nil, err)
	AssertEq(nil, t.pool.WriteMountReply(id, overflow, wire.MountReply{SessionID: id}))
	<-repCh

	AssertEq(nil, t.pool.Unmount(id))

	path2 := filepath.Join(t.dir, "b.pipe")
	repCh2 := t.openReaderFIFO(path2)

	id2, overflow2, err := t.pool.Mount(path2)
	AssertEq(nil, err)
	ExpectEq(id, id2)
	AssertEq(nil, t.pool.WriteMountReply(id2, overflow2, wire.MountReply{SessionID: id2}))
	<-repCh2
}
