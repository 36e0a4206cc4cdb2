// Copyright 2015 Google Inc. All Rights Reserved.

package state

// The operations in this file implement the write/read/truncate kernel of
// §4.6. Every one of them requires the caller to already hold n's content
// lock (n.Lock(), a full write lock even for Read, to serialize reads and
// writes against the same inode).

// Truncate frees every block referenced by n (direct, indirect-pointed-to,
// and the indirect block itself) and resets size to zero.
//
// EXCLUSIVE_LOCKS_REQUIRED(n)
func (t *InodeTable) Truncate(n *Inode) error {
	for k := range n.direct {
		if n.direct[k] != NoBlock {
			t.blocks.Free(int(n.direct[k]))
			n.direct[k] = NoBlock
		}
	}

	if n.indirect != NoBlock {
		entries, err := t.blocks.indirectEntries(int(n.indirect))
		if err == nil {
			for _, e := range entries {
				if e != NoBlock {
					t.blocks.Free(int(e))
				}
			}
		}
		t.blocks.Free(int(n.indirect))
		n.indirect = NoBlock
	}

	n.size = 0
	return nil
}

// ensureBlock returns the block index backing logical block `logical` of
// n, lazily allocating it (and, for logical >= MaxDirectBlocks, the
// indirect block itself) if this is the first write to it.
//
// EXCLUSIVE_LOCKS_REQUIRED(n)
func (t *InodeTable) ensureBlock(n *Inode, logical int) (int, error) {
	if logical < MaxDirectBlocks {
		if n.direct[logical] == NoBlock {
			blk, err := t.blocks.Alloc()
			if err != nil {
				return NoBlock, err
			}
			n.direct[logical] = int32(blk)
		}
		return int(n.direct[logical]), nil
	}

	if n.indirect == NoBlock {
		blk, err := t.blocks.Alloc()
		if err != nil {
			return NoBlock, err
		}
		if err := t.blocks.fillIndirectSentinels(blk); err != nil {
			t.blocks.Free(blk)
			return NoBlock, err
		}
		n.indirect = int32(blk)
	}

	k := logical - MaxDirectBlocks
	entries, err := t.blocks.indirectEntries(int(n.indirect))
	if err != nil {
		return NoBlock, err
	}
	if entries[k] != NoBlock {
		return int(entries[k]), nil
	}

	blk, err := t.blocks.Alloc()
	if err != nil {
		return NoBlock, err
	}
	if err := t.blocks.setIndirectEntry(int(n.indirect), k, int32(blk)); err != nil {
		t.blocks.Free(blk)
		return NoBlock, err
	}
	return blk, nil
}

// blockAt returns the block index backing logical block `logical` of n
// without allocating; ok is false if that logical block has never been
// written.
//
// SHARED_LOCKS_REQUIRED(n) (or stronger)
func (t *InodeTable) blockAt(n *Inode, logical int) (blk int, ok bool, err error) {
	if logical < MaxDirectBlocks {
		if n.direct[logical] == NoBlock {
			return NoBlock, false, nil
		}
		return int(n.direct[logical]), true, nil
	}

	if n.indirect == NoBlock {
		return NoBlock, false, nil
	}
	k := logical - MaxDirectBlocks
	entries, err := t.blocks.indirectEntries(int(n.indirect))
	if err != nil {
		return NoBlock, false, err
	}
	if entries[k] == NoBlock {
		return NoBlock, false, nil
	}
	return int(entries[k]), true, nil
}

// Write copies buf into n starting at byte offset, lazily allocating
// blocks as needed, and returns the number of bytes actually written. It
// never writes fewer bytes than len(buf) unless allocation fails or the
// file would exceed MaxFileSize, in which case it returns the partial
// count with no error (the caller, tfs.Write, decides whether a short
// write is itself an error to surface). Bytes beyond offset+len(buf) in
// an existing file are always left untouched, even when the write lands
// entirely before the current end of file.
//
// EXCLUSIVE_LOCKS_REQUIRED(n)
func (t *InodeTable) Write(n *Inode, offset uint64, buf []byte) (int, error) {
	written := 0
	remaining := len(buf)
	cur := offset

	for remaining > 0 {
		logical := int(cur / BlockSize)
		if logical >= MaxFileBlocks {
			break
		}

		blk, err := t.ensureBlock(n, logical)
		if err != nil {
			break
		}

		inBlockOff := int(cur % BlockSize)
		chunk := BlockSize - inBlockOff
		if chunk > remaining {
			chunk = remaining
		}

		if err := t.blocks.WriteAt(blk, inBlockOff, buf[written:written+chunk]); err != nil {
			break
		}

		cur += uint64(chunk)
		written += chunk
		remaining -= chunk
	}

	if cur > n.size {
		n.size = cur
	}

	return written, nil
}

// Read copies min(len(buf), size-offset) bytes from n starting at offset
// into buf and returns the count. Hitting an unallocated block within that
// range is a fatal integrity error (ErrCorrupt), per §4.6/§7.
//
// EXCLUSIVE_LOCKS_REQUIRED(n)
func (t *InodeTable) Read(n *Inode, offset uint64, buf []byte) (int, error) {
	if offset >= n.size {
		return 0, nil
	}

	avail := n.size - offset
	toRead := uint64(len(buf))
	if toRead > avail {
		toRead = avail
	}

	read := 0
	remaining := int(toRead)
	cur := offset

	for remaining > 0 {
		logical := int(cur / BlockSize)
		blk, ok, err := t.blockAt(n, logical)
		if err != nil || !ok {
			return 0, ErrCorrupt
		}

		inBlockOff := int(cur % BlockSize)
		chunk := BlockSize - inBlockOff
		if chunk > remaining {
			chunk = remaining
		}

		if err := t.blocks.ReadAt(blk, inBlockOff, buf[read:read+chunk]); err != nil {
			return 0, ErrCorrupt
		}

		cur += uint64(chunk)
		read += chunk
		remaining -= chunk
	}

	return read, nil
}
