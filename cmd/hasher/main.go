// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/bureau-foundation/hasher/cmd/hasher/commands"
	"github.com/bureau-foundation/hasher/lib/process"
)

func main() {
	if err := run(); err != nil {
		// Runs that ended with unreadable files or were interrupted
		// have already printed their summary. Exit with their code
		// without a redundant "error:" line.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
