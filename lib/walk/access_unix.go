// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package walk

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// checkReadable reports whether the calling process may read path,
// without opening it.
func checkReadable(path string) error {
	if err := unix.Access(path, unix.R_OK); err != nil {
		return &fs.PathError{Op: "access", Path: path, Err: err}
	}
	return nil
}
