// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine is the command surface of the hasher: it accepts
// "hash these paths with these algorithms" requests and reports every
// outcome as an event.
//
// [Engine.SelectFiles] validates a [RunRequest] synchronously and
// returns a [RunID] at once. Everything else (discoveries, results,
// progress, traversal problems, and state transitions) arrives on the
// event stream returned by [Engine.Subscribe]. Each run moves through
//
//	idle -> discovering -> hashing -> completed
//
// with cancelling inserted when [Engine.Cancel] is called, and failed
// only on an internal error. The terminal run-state event is always
// the last event of its run.
//
// One run is active at a time. What happens when a request arrives
// while a run is active is the engine's [BusyPolicy]: queue it behind
// the active run, or cancel the active run and replace it.
//
// All run state lives in per-run objects owned by an Engine, so
// independent engines in one process never interfere.
package engine
