// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package scheduler

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential enlarges kernel readahead for file. Failure only
// costs throughput, so the error is ignored.
func adviseSequential(file *os.File) {
	_ = unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
