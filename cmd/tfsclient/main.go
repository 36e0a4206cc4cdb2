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

// tfsclient is a small sample tool exercising a running TecnicoFS server:
// it mounts, writes a string to a named file, reads it back, and prints
// it. Used by hand as a smoke test against a running tfsserver.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/tecnicofs/tfs"
	"github.com/tecnicofs/tfs/client"
)

var fServerPipe = flag.String("server_pipe", "", "Path to the server's well-known pipe.")
var fClientPipe = flag.String("client_pipe", "/tmp/tfsclient.pipe", "Path for this client's reply pipe.")
var fFile = flag.String("file", "/greeting", "File path to write to and read back.")
var fContents = flag.String("contents", "hello, tecnicofs", "Contents to write.")

func main() {
	flag.Parse()

	if *fServerPipe == "" {
		log.Fatalf("You must set --server_pipe.")
	}

	c := client.New(*fServerPipe)
	if err := c.Mount(*fClientPipe); err != nil {
		log.Fatalf("Mount: %v", err)
	}
	defer c.Unmount()

	h, err := c.Open(*fFile, int32(tfs.OCreat|tfs.OTrunc))
	if err != nil {
		log.Fatalf("Open: %v", err)
	}

	if _, err := c.Write(h, []byte(*fContents)); err != nil {
		log.Fatalf("Write: %v", err)
	}

	if err := c.Close(h); err != nil {
		log.Fatalf("Close: %v", err)
	}

	h, err = c.Open(*fFile, 0)
	if err != nil {
		log.Fatalf("Open (read): %v", err)
	}
	defer c.Close(h)

	buf := make([]byte, len(*fContents))
	n, err := c.Read(h, buf)
	if err != nil {
		log.Fatalf("Read: %v", err)
	}

	fmt.Printf("read back: %s\n", buf[:n])
}
