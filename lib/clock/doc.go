// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that wait on time take a Clock instead of calling the
// time package: the progress reporter's cadence ticker, per-file read
// timeouts in the scheduler, and subscribe-stream heartbeats in the
// socket server. Production wiring passes Real(); tests pass Fake()
// and move time with Advance:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	reporter := scheduler.NewReporter(progress, cadence, fake, emit)
//	go reporter.Run(ctx)
//	fake.WaitForTimers(1)            // reporter registered its ticker
//	fake.Advance(cadence.Interval)   // deterministic tick
//
// WaitForTimers closes the race between a goroutine registering a
// timer and the test advancing past it.
package clock
