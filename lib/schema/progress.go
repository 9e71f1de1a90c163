// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// ProgressSnapshot is a consistent copy of a run's counters. Every
// counter is monotonically non-decreasing over the run, and
//
//	FilesCompleted + FilesFailed + FilesCancelled <= FilesDiscovered
//
// holds in every snapshot, with equality once the run has ended.
type ProgressSnapshot struct {
	FilesDiscovered int64 `json:"files_discovered"`
	FilesCompleted  int64 `json:"files_completed"`
	FilesFailed     int64 `json:"files_failed"`

	// FilesCancelled counts discovered files that were still queued
	// when the run was cancelled. They never receive a result.
	FilesCancelled int64 `json:"files_cancelled"`

	// TraversalErrors counts paths or subtrees the walker skipped.
	TraversalErrors int64 `json:"traversal_errors"`

	BytesProcessed int64 `json:"bytes_processed"`

	// BytesTotal is the sum of discovered file sizes. It grows while
	// discovery is still running.
	BytesTotal int64 `json:"bytes_total"`
}

// Finished returns the number of discovered files that will not be
// processed further.
func (p ProgressSnapshot) Finished() int64 {
	return p.FilesCompleted + p.FilesFailed + p.FilesCancelled
}

// Balanced reports whether every discovered file has been accounted
// for.
func (p ProgressSnapshot) Balanced() bool {
	return p.Finished() == p.FilesDiscovered
}
