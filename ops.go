// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tfs implements TecnicoFS: a small, in-memory UNIX-style
// filesystem with a single flat root directory, exposed as a Go library
// (this package) and, via internal/session and internal/wire, as a
// multi-client server reachable over named pipes.
package tfs

import (
	"sync"

	"github.com/tecnicofs/tfs/internal/state"
)

// FS is an instance of the filesystem. The zero value is not usable; call
// New (equivalent to tfs_init) to obtain one. A *FS is safe for concurrent
// use by any number of goroutines, corresponding to the library's
// any-number-of-threads scheduling model (§5).
type FS struct {
	// When acquiring this lock for writing, the caller must hold no other
	// lock; it exists only to let Destroy/DestroyAfterAllClosed retire st
	// out from under in-flight callers. Ordinary operations take it for
	// reading for the duration of the call.
	stateMu sync.RWMutex
	st      *state.State // GUARDED_BY(stateMu)
}

// New creates a filesystem with a fresh root directory, equivalent to
// tfs_init. It panics if the root directory does not come back as
// RootInum, a broken fundamental invariant that state.New already treats
// as fatal.
func New() *FS {
	return &FS{st: state.New()}
}

// current returns the live state or ErrClosed if the filesystem has been
// destroyed and not yet reinitialized.
func (fs *FS) current() (*state.State, error) {
	fs.stateMu.RLock()
	defer fs.stateMu.RUnlock()
	if fs.st == nil {
		return nil, ErrClosed
	}
	return fs.st, nil
}

// Destroy tears down all state. It does not block. Equivalent to
// tfs_destroy. After it returns, every other method on fs fails with
// ErrClosed until a new FS is created with New.
func (fs *FS) Destroy() {
	fs.stateMu.Lock()
	fs.st = nil
	fs.stateMu.Unlock()
}

// DestroyAfterAllClosed blocks until every handle opened against fs has
// been closed, then destroys fs exactly as Destroy does. Equivalent to
// tfs_destroy_after_all_closed. If every opened handle is eventually
// closed this returns; otherwise it blocks forever.
func (fs *FS) DestroyAfterAllClosed() error {
	st, err := fs.current()
	if err != nil {
		return err
	}

	st.Open.WaitUntilEmpty()

	fs.stateMu.Lock()
	fs.st = nil
	fs.stateMu.Unlock()
	return nil
}

// validatePath checks that path has the form "/name" with len(name) >= 1
// and len(name) <= MaxFileName, returning name on success.
func validatePath(path string) (string, error) {
	if len(path) < 2 || path[0] != '/' {
		return "", ErrBadPath
	}
	name := path[1:]
	if len(name) < 1 || len(name) > state.MaxFileName {
		return "", ErrBadPath
	}
	return name, nil
}

// Lookup returns the inumber bound to path's name in the root directory,
// or ErrNotFound. Equivalent to tfs_lookup.
func (fs *FS) Lookup(path string) (int, error) {
	name, err := validatePath(path)
	if err != nil {
		return state.NoInode, err
	}

	st, err := fs.current()
	if err != nil {
		return state.NoInode, err
	}

	st.NamespaceMu.RLock()
	defer st.NamespaceMu.RUnlock()

	root, err := st.Inodes.Get(state.RootInum)
	if err != nil {
		return state.NoInode, err
	}
	root.RLock()
	defer root.RUnlock()

	inum, err := st.Dir.Find(root, name)
	if err != nil {
		return state.NoInode, ErrNotFound
	}
	return inum, nil
}

// Open resolves path according to flags, returning a freshly allocated
// handle. Equivalent to tfs_open (§4.6):
//
//   - if the name exists: O_TRUNC frees its blocks and resets size to
//     zero; the initial offset is the (possibly just-reset) size if
//     O_APPEND was given, else zero.
//   - else if O_CREAT was given: a new, empty file is created and bound
//     to the name; initial offset is zero.
//   - else: ErrNotFound.
//
// The full lookup/create decision runs under the namespace mutex so that
// concurrent creators racing on the same name never both win.
func (fs *FS) Open(path string, flags Flags) (int, error) {
	name, err := validatePath(path)
	if err != nil {
		return state.NoHandle, err
	}

	st, err := fs.current()
	if err != nil {
		return state.NoHandle, err
	}

	st.NamespaceMu.Lock()

	root, err := st.Inodes.Get(state.RootInum)
	if err != nil {
		st.NamespaceMu.Unlock()
		return state.NoHandle, err
	}
	root.RLock()
	inum, ferr := st.Dir.Find(root, name)
	root.RUnlock()

	var offset uint64

	if ferr == nil {
		// The name-space decision is committed: the entry already exists.
		// Release the namespace mutex and do the truncate/offset work under
		// just the inode lock.
		st.NamespaceMu.Unlock()

		n, err := st.Inodes.Get(inum)
		if err != nil {
			return state.NoHandle, err
		}

		n.Lock()
		if flags&OTrunc != 0 {
			st.Inodes.Truncate(n)
		}
		if flags&OAppend != 0 {
			offset = n.Size()
		}
		n.Unlock()
	} else {
		if flags&OCreat == 0 {
			st.NamespaceMu.Unlock()
			return state.NoHandle, ErrNotFound
		}

		newInum, cerr := st.Inodes.Create(state.KindFile)
		if cerr != nil {
			st.NamespaceMu.Unlock()
			return state.NoHandle, ErrNoSpace
		}

		root.RLock()
		aerr := st.Dir.AddEntry(root, newInum, name)
		root.RUnlock()
		if aerr != nil {
			st.Inodes.Delete(newInum)
			st.NamespaceMu.Unlock()
			return state.NoHandle, ErrNoSpace
		}

		st.NamespaceMu.Unlock()
		inum = newInum
	}

	h, aerr := st.Open.Add(inum, offset)
	if aerr != nil {
		return state.NoHandle, ErrTooManyHandles
	}
	return h, nil
}

// Close releases handle. Equivalent to tfs_close.
func (fs *FS) Close(handle int) error {
	st, err := fs.current()
	if err != nil {
		return err
	}
	if err := st.Open.Remove(handle); err != nil {
		return ErrInvalidHandle
	}
	return nil
}

// Write writes buf to handle at its current offset, advancing the offset
// and the file's size as needed, and returns the number of bytes actually
// written. Equivalent to tfs_write (§4.6).
func (fs *FS) Write(handle int, buf []byte) (int, error) {
	st, err := fs.current()
	if err != nil {
		return 0, err
	}

	inum, _, gerr := st.Open.Get(handle)
	if gerr != nil {
		return 0, ErrInvalidHandle
	}

	n, err := st.Inodes.Get(inum)
	if err != nil {
		return 0, ErrInvalidHandle
	}

	n.Lock()
	defer n.Unlock()

	st.Open.LockHandle(handle)
	defer st.Open.UnlockHandle(handle)

	_, offset, gerr := st.Open.Get(handle)
	if gerr != nil {
		return 0, ErrInvalidHandle
	}

	written, werr := st.Inodes.Write(n, offset, buf)
	if werr != nil {
		return 0, werr
	}

	st.Open.SetOffset(handle, offset+uint64(written))
	return written, nil
}

// Read reads up to len(buf) bytes from handle at its current offset into
// buf, advancing the offset, and returns the number of bytes actually
// read. Equivalent to tfs_read (§4.6). This holds the inode's write lock
// (not merely a read lock) for its duration, so concurrent reads and
// writes on the same file are fully serialized.
func (fs *FS) Read(handle int, buf []byte) (int, error) {
	st, err := fs.current()
	if err != nil {
		return 0, err
	}

	inum, _, gerr := st.Open.Get(handle)
	if gerr != nil {
		return 0, ErrInvalidHandle
	}

	n, err := st.Inodes.Get(inum)
	if err != nil {
		return 0, ErrInvalidHandle
	}

	n.Lock()
	defer n.Unlock()

	st.Open.LockHandle(handle)
	defer st.Open.UnlockHandle(handle)

	_, offset, gerr := st.Open.Get(handle)
	if gerr != nil {
		return 0, ErrInvalidHandle
	}

	read, rerr := st.Inodes.Read(n, offset, buf)
	if rerr != nil {
		return 0, rerr
	}

	st.Open.SetOffset(handle, offset+uint64(read))
	return read, nil
}
