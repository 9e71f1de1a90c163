// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// RunState is the lifecycle position of one run.
//
//	idle -> discovering -> hashing -> completed
//	          |              |
//	          +-> cancelling +-> completed
//
// Any non-terminal state may also move to failed on an internal
// error. Per-file and traversal errors never fail a run.
type RunState string

const (
	// RunIdle: accepted, waiting for the active run to finish.
	RunIdle RunState = "idle"

	// RunDiscovering: the walker is still producing files. Workers
	// hash concurrently.
	RunDiscovering RunState = "discovering"

	// RunHashing: the walk has ended; queued and in-flight files are
	// draining.
	RunHashing RunState = "hashing"

	// RunCancelling: cancellation was requested; in-flight files are
	// finishing and no new files are claimed.
	RunCancelling RunState = "cancelling"

	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

func (s RunState) String() string { return string(s) }
