// Copyright 2015 Google Inc. All Rights Reserved.

package tfs_test

import (
	"sync"
	"testing"

	. "github.com/jacobsa/ogletest"

	"github.com/tecnicofs/tfs"
)

func TestOps(t *testing.T) { RunTests(t) }

////////////////////////////////////////////////////////////////////////
// Boilerplate
////////////////////////////////////////////////////////////////////////

type OpsTest struct {
	fs *tfs.FS
}

func init() { RegisterTestSuite(&OpsTest{}) }

func (t *OpsTest) SetUp(_ *TestInfo) {
	t.fs = tfs.New()
}

////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////

func (t *OpsTest) OpenCreateWriteReadClose() {
	h, err := t.fs.Open("/greeting", tfs.OCreat)
	AssertEq(nil, err)

	n, err := t.fs.Write(h, []byte("hello"))
	AssertEq(nil, err)
	ExpectEq(5, n)

	AssertEq(nil, t.fs.Close(h))

	h, err = t.fs.Open("/greeting", 0)
	AssertEq(nil, err)

	buf := make([]byte, 5)
	n, err = t.fs.Read(h, buf)
	AssertEq(nil, err)
	ExpectEq(5, n)
	ExpectEq("hello", string(buf))

	AssertEq(nil, t.fs.Close(h))
}

func (t *OpsTest) OpenWithoutCreateOnMissingNameFails() {
	_, err := t.fs.Open("/nope", 0)
	ExpectEq(tfs.ErrNotFound, err)
}

func (t *OpsTest) LookupFindsCreatedFile() {
	h, err := t.fs.Open("/foo", tfs.OCreat)
	AssertEq(nil, err)
	AssertEq(nil, t.fs.Close(h))

	inum, err := t.fs.Lookup("/foo")
	AssertEq(nil, err)
	ExpectTrue(inum >= 0)
}

func (t *OpsTest) OTruncResetsSize() {
	h, err := t.fs.Open("/f", tfs.OCreat)
	AssertEq(nil, err)
	_, err = t.fs.Write(h, []byte("0123456789"))
	AssertEq(nil, err)
	AssertEq(nil, t.fs.Close(h))

	h, err = t.fs.Open("/f", tfs.OTrunc)
	AssertEq(nil, err)

	buf := make([]byte, 10)
	n, err := t.fs.Read(h, buf)
	AssertEq(nil, err)
	ExpectEq(0, n)
	AssertEq(nil, t.fs.Close(h))
}

func (t *OpsTest) OAppendStartsAtCurrentEnd() {
	h, err := t.fs.Open("/f", tfs.OCreat)
	AssertEq(nil, err)
	_, err = t.fs.Write(h, []byte("abc"))
	AssertEq(nil, err)
	AssertEq(nil, t.fs.Close(h))

	h, err = t.fs.Open("/f", tfs.OAppend)
	AssertEq(nil, err)
	_, err = t.fs.Write(h, []byte("def"))
	AssertEq(nil, err)
	AssertEq(nil, t.fs.Close(h))

	h, err = t.fs.Open("/f", 0)
	AssertEq(nil, err)
	buf := make([]byte, 6)
	n, err := t.fs.Read(h, buf)
	AssertEq(nil, err)
	ExpectEq(6, n)
	ExpectEq("abcdef", string(buf))
}

func (t *OpsTest) ConcurrentAppendersEachLandDistinctBytes() {
	h, err := t.fs.Open("/f", tfs.OCreat)
	AssertEq(nil, err)
	AssertEq(nil, t.fs.Close(h))

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := t.fs.Open("/f", tfs.OAppend)
			AssertEq(nil, err)
			_, werr := t.fs.Write(h, []byte{'x'})
			AssertEq(nil, werr)
			AssertEq(nil, t.fs.Close(h))
		}()
	}
	wg.Wait()

	h, err = t.fs.Open("/f", 0)
	AssertEq(nil, err)
	buf := make([]byte, writers)
	n, err := t.fs.Read(h, buf)
	AssertEq(nil, err)
	ExpectEq(writers, n)
}

// ConcurrentCreatorsOfTheSameNameShareOneInode races N goroutines all
// opening the same not-yet-existing path with O_CREAT. The lookup/create
// decision in Open is serialized under the namespace mutex, so exactly
// one of them should actually create the file and the rest should just
// find it; every returned handle should end up referring to that single
// inode. Reading through any handle but the one written to proves they
// share the same backing file rather than each having created (and lost
// track of) a distinct one.
func (t *OpsTest) ConcurrentCreatorsOfTheSameNameShareOneInode() {
	const creators = 16
	handles := make([]int, creators)
	errs := make([]error, creators)

	var wg sync.WaitGroup
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = t.fs.Open("/race", tfs.OCreat)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		AssertEq(nil, err, "creator %d", i)
	}

	payload := []byte("shared")
	_, werr := t.fs.Write(handles[0], payload)
	AssertEq(nil, werr)

	for i := 1; i < creators; i++ {
		buf := make([]byte, len(payload))
		n, rerr := t.fs.Read(handles[i], buf)
		AssertEq(nil, rerr, "reader %d", i)
		AssertEq(len(payload), n, "reader %d", i)
		ExpectEq(string(payload), string(buf), "reader %d", i)
	}

	for _, h := range handles {
		AssertEq(nil, t.fs.Close(h))
	}
}

func (t *OpsTest) DestroyAfterAllClosedBlocksUntilHandlesClose() {
	h, err := t.fs.Open("/f", tfs.OCreat)
	AssertEq(nil, err)

	doneCh := make(chan error, 1)
	go func() { doneCh <- t.fs.DestroyAfterAllClosed() }()

	select {
	case <-doneCh:
		AssertTrue(false, "DestroyAfterAllClosed returned before Close")
	default:
	}

	AssertEq(nil, t.fs.Close(h))
	AssertEq(nil, <-doneCh)

	_, err = t.fs.Lookup("/f")
	ExpectEq(tfs.ErrClosed, err)
}

func (t *OpsTest) DestroyIsImmediate() {
	t.fs.Destroy()
	_, err := t.fs.Lookup("/anything")
	ExpectEq(tfs.ErrClosed, err)
}
