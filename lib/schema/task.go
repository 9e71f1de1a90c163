// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// FileTask is one discovered regular file awaiting a digest.
type FileTask struct {
	// Path is the absolute path the file was reached by. When the
	// same file is reachable through several paths (overlapping
	// roots, symlinks), only the first is reported.
	Path string `json:"path"`

	// Size is the file's length in bytes when it was discovered. The
	// file may change before it is read; Size feeds only the
	// best-effort bytes_total progress counter.
	Size int64 `json:"size"`
}
