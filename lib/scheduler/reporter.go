// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"time"

	"github.com/bureau-foundation/hasher/lib/clock"
	"github.com/bureau-foundation/hasher/lib/schema"
)

// Cadence controls how often progress snapshots are reported. A
// snapshot goes out when Bytes have been processed or Interval has
// elapsed since the last one, whichever comes first. A zero field
// disables that trigger; with both zero only the final snapshot is
// reported.
type Cadence struct {
	Bytes    int64
	Interval time.Duration
}

// DefaultCadence reports at least four times a second, and every
// 16 MiB on fast storage.
func DefaultCadence() Cadence {
	return Cadence{Bytes: 16 << 20, Interval: 250 * time.Millisecond}
}

// reporter is the single goroutine allowed to call Sink.Progress.
type reporter struct {
	clock    clock.Clock
	cadence  Cadence
	progress *Progress
	sink     Sink

	// signal wakes the reporter when the byte threshold is crossed.
	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}

	last     schema.ProgressSnapshot
	reported bool
}

func startReporter(clk clock.Clock, cadence Cadence, progress *Progress, sink Sink) *reporter {
	r := &reporter{
		clock:    clk,
		cadence:  cadence,
		progress: progress,
		sink:     sink,
		signal:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *reporter) run() {
	defer close(r.done)

	// The interval timer restarts on every report, so Interval is
	// measured from the last snapshot whatever triggered it. A
	// generation tags each timer; a stopped timer that fired anyway
	// delivers a stale generation and is ignored.
	var timer *clock.Timer
	var generation uint64
	tick := make(chan uint64)
	rearm := func() {
		if r.cadence.Interval <= 0 {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		generation++
		armed := generation
		timer = r.clock.AfterFunc(r.cadence.Interval, func() {
			select {
			case tick <- armed:
			case <-r.stop:
			}
		})
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	rearm()

	for {
		select {
		case fired := <-tick:
			if fired != generation {
				continue
			}
			rearm()
			r.report(false)
		case <-r.signal:
			rearm()
			r.report(false)
		case <-r.stop:
			r.report(true)
			return
		}
	}
}

// report sends the current snapshot unless it equals the last one sent.
// The final report is sent unconditionally.
func (r *reporter) report(final bool) {
	snapshot := r.progress.snapshotForReport()
	if !final && r.reported && snapshot == r.last {
		return
	}
	r.last = snapshot
	r.reported = true
	r.sink.Progress(snapshot)
}

// bytesProcessed is called by workers after each chunk with the
// number of bytes not yet reported.
func (r *reporter) bytesProcessed(unreported int64) {
	if r.cadence.Bytes <= 0 || unreported < r.cadence.Bytes {
		return
	}
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// finish stops the reporter after it sends the final snapshot.
func (r *reporter) finish() schema.ProgressSnapshot {
	close(r.stop)
	<-r.done
	return r.last
}
