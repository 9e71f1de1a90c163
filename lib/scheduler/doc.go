// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs one hashing job: it pulls [schema.FileTask]
// values from a producer through a bounded queue, hashes each file on a
// fixed pool of workers, and reports results and progress to a [Sink].
//
// The producer (normally the walker) runs concurrently with the
// workers. When the queue is full the producer blocks, and it always
// unblocks when the job's context is cancelled. Each file is claimed
// by exactly one worker and read exactly once, with every requested
// digest computed in that single pass.
//
// Cancellation is checked at task boundaries. A worker that is
// already reading a file finishes it, so every file-updated result
// carries either all requested digests or an error. Tasks still queued
// at cancellation are counted as cancelled and get no result.
//
// Progress counters live in one [Progress] value behind a mutex. A
// reporter goroutine publishes snapshots on a [Cadence]: when enough
// bytes have been processed or when the interval elapses, whichever
// comes first. It is the only goroutine that calls [Sink.Progress], so
// the snapshots a sink sees never go backwards.
package scheduler
