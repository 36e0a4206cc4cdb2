// Copyright 2015 Google Inc. All Rights Reserved.

package state

import "sync"

// block is one BlockSize-byte slot in the pool, guarded by its own rw-lock
// (one rw-lock per slot, indexed the same way as the data blocks).
//
// INVARIANT: !taken => bytes are the zero value
type block struct {
	mu    sync.RWMutex
	taken bool                // GUARDED_BY(mu)
	bytes [BlockSize]byte     // GUARDED_BY(mu)
}

// BlockPool is the fixed array of data blocks backing every file and the
// root directory's entry block.
type BlockPool struct {
	blocks [DataBlocks]block
}

// NewBlockPool returns a pool with every slot free.
func NewBlockPool() *BlockPool {
	return &BlockPool{}
}

// Alloc finds the first free slot, in index order, marks it taken, and
// returns its index. Each slot inspected is write-locked in turn, matching
// the deterministic lowest-index-first policy of §4.1.
func (p *BlockPool) Alloc() (int, error) {
	for i := range p.blocks {
		b := &p.blocks[i]
		b.mu.Lock()
		if !b.taken {
			b.taken = true
			b.mu.Unlock()
			return i, nil
		}
		b.mu.Unlock()
	}
	return NoBlock, ErrNoFreeBlock
}

// Free returns slot i to the pool and zeroes its contents. Freeing the
// NoBlock sentinel is a no-op that succeeds.
func (p *BlockPool) Free(i int) error {
	if i == NoBlock {
		return nil
	}
	if i < 0 || i >= len(p.blocks) {
		return ErrInvalidBlock
	}

	b := &p.blocks[i]
	b.mu.Lock()
	b.taken = false
	b.bytes = [BlockSize]byte{}
	b.mu.Unlock()
	return nil
}

// WriteAt copies src into block i starting at byte offset off, under the
// block's own write lock. Caller must already hold the containing inode's
// and handle's locks per the §5 lock order; Alloc/Free are never called
// while holding this lock.
func (p *BlockPool) WriteAt(i int, off int, src []byte) error {
	if i < 0 || i >= len(p.blocks) {
		return ErrInvalidBlock
	}
	b := &p.blocks[i]
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.taken {
		return ErrInvalidBlock
	}
	copy(b.bytes[off:], src)
	return nil
}

// ReadAt copies len(dst) bytes from block i starting at byte offset off
// into dst, under the block's own read lock.
func (p *BlockPool) ReadAt(i int, off int, dst []byte) error {
	if i < 0 || i >= len(p.blocks) {
		return ErrInvalidBlock
	}
	b := &p.blocks[i]
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.taken {
		return ErrInvalidBlock
	}
	copy(dst, b.bytes[off:])
	return nil
}

// LockBlock and UnlockBlock (and their read-locking counterparts) let a
// caller hold block i's lock across several accesses instead of once per
// call, so a caller with its own finer-grained locking (Directory's
// per-entry locks) can nest those inside block_lock rather than the
// other way around.
func (p *BlockPool) LockBlock(i int)    { p.blocks[i].mu.Lock() }
func (p *BlockPool) UnlockBlock(i int)  { p.blocks[i].mu.Unlock() }
func (p *BlockPool) RLockBlock(i int)   { p.blocks[i].mu.RLock() }
func (p *BlockPool) RUnlockBlock(i int) { p.blocks[i].mu.RUnlock() }

// readAtLocked and writeAtLocked are ReadAt/WriteAt for a caller that
// already holds block i's lock via RLockBlock/LockBlock.
func (p *BlockPool) readAtLocked(i, off int, dst []byte) error {
	if i < 0 || i >= len(p.blocks) {
		return ErrInvalidBlock
	}
	b := &p.blocks[i]
	if !b.taken {
		return ErrInvalidBlock
	}
	copy(dst, b.bytes[off:])
	return nil
}

func (p *BlockPool) writeAtLocked(i, off int, src []byte) error {
	if i < 0 || i >= len(p.blocks) {
		return ErrInvalidBlock
	}
	b := &p.blocks[i]
	if !b.taken {
		return ErrInvalidBlock
	}
	copy(b.bytes[off:], src)
	return nil
}

// indirectEntries reads the full array of block pointers out of the
// indirect block at index i.
func (p *BlockPool) indirectEntries(i int) ([BlockPointersPerIndirect]int32, error) {
	var out [BlockPointersPerIndirect]int32
	if i < 0 || i >= len(p.blocks) {
		return out, ErrInvalidBlock
	}
	b := &p.blocks[i]
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.taken {
		return out, ErrInvalidBlock
	}
	for k := range out {
		out[k] = decodeInt32(b.bytes[k*4 : k*4+4])
	}
	return out, nil
}

// setIndirectEntry sets the k-th pointer stored in indirect block i.
func (p *BlockPool) setIndirectEntry(i, k int, v int32) error {
	if i < 0 || i >= len(p.blocks) {
		return ErrInvalidBlock
	}
	b := &p.blocks[i]
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.taken {
		return ErrInvalidBlock
	}
	encodeInt32(b.bytes[k*4:k*4+4], v)
	return nil
}

// fillIndirectSentinels resets every pointer in indirect block i to NoBlock.
func (p *BlockPool) fillIndirectSentinels(i int) error {
	if i < 0 || i >= len(p.blocks) {
		return ErrInvalidBlock
	}
	b := &p.blocks[i]
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.taken {
		return ErrInvalidBlock
	}
	for k := 0; k < BlockPointersPerIndirect; k++ {
		encodeInt32(b.bytes[k*4:k*4+4], NoBlock)
	}
	return nil
}

func decodeInt32(b []byte) int32 {
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

func encodeInt32(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}
