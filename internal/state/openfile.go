// Copyright 2015 Google Inc. All Rights Reserved.

package state

import "sync"

// openFileEntry is one slot of the open-file table.
type openFileEntry struct {
	taken   bool
	inumber int
	offset  uint64
}

// OpenFileTable is the fixed array of open-file entries plus the
// open-files count and condition variable used by destroy-after-all-closed
// plus the open-files liveness counter used for an orderly shutdown.
type OpenFileTable struct {
	mu      sync.Mutex
	entries [MaxOpenFiles]openFileEntry

	// handleLocks[h] is handle_lock[h] of §4.5: write-locked for the
	// duration of a read or a write on that handle, serializing the two
	// operations on any one handle.
	handleLocks [MaxOpenFiles]sync.RWMutex

	countMu sync.Mutex
	cond    *sync.Cond
	count   int
}

// NewOpenFileTable returns an empty table.
func NewOpenFileTable() *OpenFileTable {
	t := &OpenFileTable{}
	t.cond = sync.NewCond(&t.countMu)
	return t
}

// Add allocates the lowest free handle for (inumber, offset) and increments
// the open-files count.
func (t *OpenFileTable) Add(inumber int, offset uint64) (int, error) {
	t.mu.Lock()
	h := -1
	for i := range t.entries {
		if !t.entries[i].taken {
			t.entries[i] = openFileEntry{taken: true, inumber: inumber, offset: offset}
			h = i
			break
		}
	}
	t.mu.Unlock()

	if h == NoHandle {
		return NoHandle, ErrNoFreeHandle
	}

	t.countMu.Lock()
	t.count++
	t.countMu.Unlock()

	return h, nil
}

// Remove frees handle h and decrements the open-files count, broadcasting
// the open-files condition when the count reaches zero.
func (t *OpenFileTable) Remove(h int) error {
	t.mu.Lock()
	if h < 0 || h >= len(t.entries) || !t.entries[h].taken {
		t.mu.Unlock()
		return ErrInvalidHandle
	}
	t.entries[h] = openFileEntry{}
	t.mu.Unlock()

	t.countMu.Lock()
	t.count--
	if t.count == 0 {
		t.cond.Broadcast()
	}
	t.countMu.Unlock()

	return nil
}

// Get returns the (inumber, offset) of handle h.
func (t *OpenFileTable) Get(h int) (inumber int, offset uint64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h < 0 || h >= len(t.entries) || !t.entries[h].taken {
		return 0, 0, ErrInvalidHandle
	}
	e := t.entries[h]
	return e.inumber, e.offset, nil
}

// SetOffset updates the offset recorded for handle h.
func (t *OpenFileTable) SetOffset(h int, offset uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h < 0 || h >= len(t.entries) || !t.entries[h].taken {
		return ErrInvalidHandle
	}
	t.entries[h].offset = offset
	return nil
}

// LockHandle write-locks handle h's content lock. Per §4.6, both tfs_read
// and tfs_write hold this for their entire duration.
func (t *OpenFileTable) LockHandle(h int)   { t.handleLocks[h].Lock() }
func (t *OpenFileTable) UnlockHandle(h int) { t.handleLocks[h].Unlock() }

// WaitUntilEmpty blocks until the open-files count reaches zero. Used by
// destroy-after-all-closed.
func (t *OpenFileTable) WaitUntilEmpty() {
	t.countMu.Lock()
	for t.count != 0 {
		t.cond.Wait()
	}
	t.countMu.Unlock()
}

// Reset clears every handle and the open-files count. Called by State.Reset.
func (t *OpenFileTable) Reset() {
	t.mu.Lock()
	t.entries = [MaxOpenFiles]openFileEntry{}
	t.mu.Unlock()

	t.countMu.Lock()
	t.count = 0
	t.countMu.Unlock()
}
