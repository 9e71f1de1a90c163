// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"sync"

	"github.com/bureau-foundation/hasher/lib/schema"
)

// Progress holds the counters for one job. All methods are safe for
// concurrent use; Snapshot never observes a partial update.
type Progress struct {
	mu       sync.Mutex
	counters schema.ProgressSnapshot

	// reportedBytes is BytesProcessed as of the last reported
	// snapshot, for the byte cadence.
	reportedBytes int64
}

// Snapshot returns a copy of the counters.
func (p *Progress) Snapshot() schema.ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

// AddTraversalError counts one path the walker skipped.
func (p *Progress) AddTraversalError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters.TraversalErrors++
}

func (p *Progress) discover(size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters.FilesDiscovered++
	p.counters.BytesTotal += size
}

func (p *Progress) complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters.FilesCompleted++
}

func (p *Progress) fail() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters.FilesFailed++
}

func (p *Progress) cancel(count int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters.FilesCancelled += count
}

// addBytes records processed bytes and returns how many have been
// processed since the last reported snapshot.
func (p *Progress) addBytes(n int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counters.BytesProcessed += n
	return p.counters.BytesProcessed - p.reportedBytes
}

// snapshotForReport copies the counters and resets the byte cadence
// baseline.
func (p *Progress) snapshotForReport() schema.ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reportedBytes = p.counters.BytesProcessed
	return p.counters
}
