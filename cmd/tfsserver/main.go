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

// tfsserver runs a TecnicoFS server listening on a well-known named pipe.
// Equivalent to the tfs_server binary: tfsserver <pipe-path>.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/tecnicofs/tfs"
	"github.com/tecnicofs/tfs/internal/session"
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: tfsserver <pipe-path>")
	}
	pipePath := flag.Arg(0)

	logger := tfs.Logger()

	fs := tfs.New()
	srv, err := session.NewServer(pipePath, fs, logger)
	if err != nil {
		log.Fatalf("NewServer: %v", err)
	}

	logger.Printf("listening on %s", pipePath)
	if err := srv.Serve(context.Background()); err != nil {
		logger.Printf("Serve: %v", err)
		os.Exit(1)
	}
}
