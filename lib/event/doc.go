// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package event carries engine events from many producers to many
// consumers through one ordered channel.
//
// A [Bus] has a single bounded input. Producers (the walker, the
// workers, the progress reporter, the run lifecycle) call
// [Bus.Publish], which blocks while the input is full and gives up on
// context cancellation. One dispatch goroutine drains the input in
// FIFO order, stamps each event with a bus-wide sequence number, and
// hands it to every [Subscription].
//
// Because there is one input, any two events published by the same
// goroutine, or published in a happens-before order, are delivered in
// that order to every subscriber. The engine relies on this: a file's
// file-discovered event is published before the task is queued, so it
// precedes the file's file-updated event.
//
// Subscriptions are either lossless (the dispatcher waits for the
// subscriber, pushing backpressure onto producers) or lossy (full
// buffers drop events and the drop is counted, so a socket stream can
// tell its client to resynchronize).
package event
