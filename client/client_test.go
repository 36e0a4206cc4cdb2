// Copyright 2015 Google Inc. All Rights Reserved.

package client_test

import (
	"testing"

	. "github.com/jacobsa/ogletest"

	"github.com/tecnicofs/tfs/client"
)

func TestClient(t *testing.T) { RunTests(t) }

type ClientTest struct {
}

func init() { RegisterTestSuite(&ClientTest{}) }

func (t *ClientTest) OperationsFailBeforeMount() {
	c := client.New("/tmp/does-not-need-to-exist.pipe")

	_, err := c.Open("/foo", 0)
	ExpectEq(client.ErrNotMounted, err)

	err = c.Close(0)
	ExpectEq(client.ErrNotMounted, err)

	_, err = c.Write(0, []byte("x"))
	ExpectEq(client.ErrNotMounted, err)

	_, err = c.Read(0, make([]byte, 1))
	ExpectEq(client.ErrNotMounted, err)

	err = c.ShutdownAfterAllClosed()
	ExpectEq(client.ErrNotMounted, err)

	err = c.Unmount()
	ExpectEq(client.ErrNotMounted, err)
}
