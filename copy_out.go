// Copyright 2015 Google Inc. All Rights Reserved.

package tfs

import (
	"os"

	fallocate "github.com/detailyang/go-fallocate"
	"github.com/tecnicofs/tfs/internal/state"
)

// CopyToExternalFS copies the TFS file at src to a new host file at dst,
// overwriting it if it exists. Equivalent to tfs_copy_to_external_fs
// (§4.6). src is opened with flags 0: it must already exist, since
// copy-out has no business creating files inside the source namespace.
//
// The destination is preallocated to src's current size with Fallocate
// before the sequential copy loop, the same pre-sizing rclone's local
// backend applies to destination files before writing them; a failure to
// preallocate is not fatal, since it is only a performance hint.
func (fs *FS) CopyToExternalFS(src, dst string) error {
	handle, err := fs.Open(src, 0)
	if err != nil {
		return err
	}
	defer fs.Close(handle)

	size, err := fs.sizeOf(handle)
	if err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if size > 0 {
		_ = fallocate.Fallocate(out, 0, size)
	}

	buf := make([]byte, state.BlockSize)
	for {
		n, rerr := fs.Read(handle, buf)
		if rerr != nil {
			return rerr
		}
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if n < state.BlockSize {
			break
		}
	}

	return nil
}

// sizeOf returns the current size of the file backing handle.
func (fs *FS) sizeOf(handle int) (int64, error) {
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
	n.RLock()
	defer n.RUnlock()
	return int64(n.Size()), nil
}
