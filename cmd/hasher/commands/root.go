// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/bureau-foundation/hasher/cmd/hasher/cli"
)

// Root builds and returns the complete hasher command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "hasher",
		Description: `hasher: concurrent multi-algorithm file hashing.

Walk files and directories and compute several digests per file in a
single read. Run locally with "hash", or drive a hasher-service daemon
with "select", "watch", "cancel", and "status".`,
		Subcommands: []*cli.Command{
			hashCommand(),
			selectCommand(),
			watchCommand(),
			cancelCommand(),
			statusCommand(),
			algorithmsCommand(),
			configCommand(),
			versionCommand(),
		},
	}
}
