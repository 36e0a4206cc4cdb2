// Copyright 2015 Google Inc. All Rights Reserved.

// Package client implements the TecnicoFS client side of the wire
// protocol (§6), the counterpart of internal/session on the server.
// Equivalent to tecnicofs_client_api.c's tfs_mount/tfs_open/tfs_read/...
// family.
package client

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/tecnicofs/tfs/internal/wire"
)

// ErrNotMounted is returned by every operation attempted before Mount or
// after Unmount.
var ErrNotMounted = errors.New("client: not mounted")

// Client is a single session against a TecnicoFS server, reachable over
// the server's well-known pipe. Like the reference client, a Client has
// at most one outstanding request per session: every method holds mu for
// its whole request/reply exchange, so calls from several goroutines are
// serialized rather than interleaved.
type Client struct {
	mu sync.Mutex

	serverPipePath string
	clientPipePath string

	serverW   *os.File
	clientR   *os.File
	sessionID int32
	mounted   bool
}

// New returns an unmounted client bound to serverPipePath, the
// well-known pipe a Server was started against.
func New(serverPipePath string) *Client {
	return &Client{serverPipePath: serverPipePath}
}

// Mount creates clientPipePath (via mkfifo) for receiving replies, opens
// both ends, and registers a session with the server. Equivalent to
// tfs_mount.
func (c *Client) Mount(clientPipePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mounted {
		return errors.New("client: already mounted")
	}
	if len(clientPipePath) >= wire.PipeNameMax {
		return fmt.Errorf("client: pipe path %q too long", clientPipePath)
	}

	_ = os.Remove(clientPipePath)
	if err := unix.Mkfifo(clientPipePath, 0640); err != nil {
		return fmt.Errorf("mkfifo %s: %w", clientPipePath, err)
	}

	serverW, err := os.OpenFile(c.serverPipePath, os.O_WRONLY, 0)
	if err != nil {
		os.Remove(clientPipePath)
		return err
	}

	if err := wire.WriteOpCode(serverW, wire.OpMount); err != nil {
		serverW.Close()
		os.Remove(clientPipePath)
		return err
	}
	if err := wire.WriteMountRequest(serverW, wire.MountRequest{PipeName: clientPipePath}); err != nil {
		serverW.Close()
		os.Remove(clientPipePath)
		return err
	}

	clientR, err := os.OpenFile(clientPipePath, os.O_RDONLY, 0)
	if err != nil {
		serverW.Close()
		os.Remove(clientPipePath)
		return err
	}

	rep, err := wire.ReadMountReply(clientR)
	if err != nil {
		clientR.Close()
		serverW.Close()
		os.Remove(clientPipePath)
		return err
	}
	if rep.SessionID < 0 {
		clientR.Close()
		serverW.Close()
		os.Remove(clientPipePath)
		return errors.New("client: server session pool is full")
	}

	c.serverW = serverW
	c.clientR = clientR
	c.clientPipePath = clientPipePath
	c.sessionID = rep.SessionID
	c.mounted = true
	return nil
}

// Unmount ends the session and removes the client's reply pipe.
// Equivalent to tfs_unmount.
func (c *Client) Unmount() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return ErrNotMounted
	}

	err := wire.WriteOpCode(c.serverW, wire.OpUnmount)
	if err == nil {
		err = wire.WriteUnmountRequest(c.serverW, wire.UnmountRequest{SessionID: c.sessionID})
	}

	c.clientR.Close()
	c.serverW.Close()
	os.Remove(c.clientPipePath)
	c.mounted = false
	return err
}

// Open resolves name against the server's namespace, returning a file
// handle. Equivalent to tfs_open.
func (c *Client) Open(name string, flags int32) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return -1, ErrNotMounted
	}
	if err := wire.WriteOpCode(c.serverW, wire.OpOpen); err != nil {
		return -1, err
	}
	req := wire.OpenRequest{SessionID: c.sessionID, Flags: flags, Name: name}
	if err := wire.WriteOpenRequest(c.serverW, req); err != nil {
		return -1, err
	}
	rep, err := wire.ReadOpenReply(c.clientR)
	if err != nil {
		return -1, err
	}
	if rep.HandleOrErr < 0 {
		return -1, fmt.Errorf("client: open %q failed", name)
	}
	return int(rep.HandleOrErr), nil
}

// Close releases handle. Equivalent to tfs_close.
func (c *Client) Close(handle int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return ErrNotMounted
	}
	if err := wire.WriteOpCode(c.serverW, wire.OpClose); err != nil {
		return err
	}
	req := wire.CloseRequest{SessionID: c.sessionID, Handle: int32(handle)}
	if err := wire.WriteCloseRequest(c.serverW, req); err != nil {
		return err
	}
	rep, err := wire.ReadCloseReply(c.clientR)
	if err != nil {
		return err
	}
	if rep.Result != 0 {
		return fmt.Errorf("client: close %d failed", handle)
	}
	return nil
}

// Write writes buf to handle at its current offset. Equivalent to
// tfs_write; the returned count can be less than len(buf) if the file's
// maximum size was reached.
func (c *Client) Write(handle int, buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return -1, ErrNotMounted
	}
	if err := wire.WriteOpCode(c.serverW, wire.OpWrite); err != nil {
		return -1, err
	}
	req := wire.WriteRequest{SessionID: c.sessionID, Handle: int32(handle), Data: buf}
	if err := wire.WriteWriteRequest(c.serverW, req); err != nil {
		return -1, err
	}
	rep, err := wire.ReadWriteReply(c.clientR)
	if err != nil {
		return -1, err
	}
	if rep.BytesOrErr < 0 {
		return -1, fmt.Errorf("client: write to %d failed", handle)
	}
	return int(rep.BytesOrErr), nil
}

// Read reads up to len(buf) bytes from handle at its current offset.
// Equivalent to tfs_read.
func (c *Client) Read(handle int, buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return -1, ErrNotMounted
	}
	if err := wire.WriteOpCode(c.serverW, wire.OpRead); err != nil {
		return -1, err
	}
	req := wire.ReadRequest{SessionID: c.sessionID, Handle: int32(handle), Len: uint64(len(buf))}
	if err := wire.WriteReadRequest(c.serverW, req); err != nil {
		return -1, err
	}
	rep, err := wire.ReadReadReply(c.clientR)
	if err != nil {
		return -1, err
	}
	if rep.BytesOrErr < 0 {
		return -1, fmt.Errorf("client: read from %d failed", handle)
	}
	n := copy(buf, rep.Data)
	return n, nil
}

// ShutdownAfterAllClosed asks the server to wait until every open file
// has been closed and then exit. Equivalent to
// tfs_shutdown_after_all_closed. The call blocks for as long as the
// server takes to satisfy that condition.
func (c *Client) ShutdownAfterAllClosed() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.mounted {
		return ErrNotMounted
	}
	if err := wire.WriteOpCode(c.serverW, wire.OpShutdownAfterClose); err != nil {
		return err
	}
	req := wire.ShutdownRequest{SessionID: c.sessionID}
	if err := wire.WriteShutdownRequest(c.serverW, req); err != nil {
		return err
	}
	rep, err := wire.ReadShutdownReply(c.clientR)
	if err != nil {
		return err
	}
	if rep.Result != 0 {
		return errors.New("client: shutdown_after_all_closed failed")
	}
	return nil
}
