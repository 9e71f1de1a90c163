// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/hasher/lib/digest"
	"github.com/bureau-foundation/hasher/lib/scheduler"
	"github.com/bureau-foundation/hasher/lib/schema"
)

// RunID identifies one accepted request.
type RunID string

func newRunID() RunID { return RunID(uuid.NewString()) }

// RunRequest is one "hash these paths" command. It is not modified
// after submission.
type RunRequest struct {
	Roots      []string
	Algorithms digest.Set
}

// RunStatus describes one run as of a Status call.
type RunStatus struct {
	RunID      RunID                   `json:"run_id"`
	State      schema.RunState         `json:"state"`
	Roots      []string                `json:"roots"`
	Algorithms []string                `json:"algorithms"`
	Progress   schema.ProgressSnapshot `json:"progress"`
	AcceptedAt time.Time               `json:"accepted_at"`
}

// Status is the engine-wide view returned by Engine.Status.
type Status struct {
	Active     *RunStatus `json:"active,omitempty"`
	Pending    []RunID    `json:"pending,omitempty"`
	BusyPolicy BusyPolicy `json:"busy_policy"`
}

// run is the state of one accepted request. Fields set at creation
// are immutable; state is guarded by mu, and transition serializes
// state changes with the events announcing them.
type run struct {
	id         RunID
	roots      []string
	algorithms digest.Set
	acceptedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	progress        *scheduler.Progress
	cancelRequested atomic.Bool

	transition sync.Mutex

	mu    sync.Mutex
	state schema.RunState
}

func newRun(roots []string, algorithms digest.Set, acceptedAt time.Time) *run {
	ctx, cancel := context.WithCancel(context.Background())
	return &run{
		id:         newRunID(),
		roots:      roots,
		algorithms: algorithms,
		acceptedAt: acceptedAt,
		ctx:        ctx,
		cancel:     cancel,
		progress:   &scheduler.Progress{},
		state:      schema.RunIdle,
	}
}

func (r *run) currentState() schema.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// allowed reports whether moving from the current state to next is a
// legal transition.
func allowed(current, next schema.RunState) bool {
	if current.Terminal() || current == next {
		return false
	}
	switch next {
	case schema.RunDiscovering:
		return current == schema.RunIdle
	case schema.RunHashing:
		return current == schema.RunDiscovering
	case schema.RunCancelling:
		return current == schema.RunIdle || current == schema.RunDiscovering || current == schema.RunHashing
	}
	return next.Terminal()
}

func (r *run) status() *RunStatus {
	return &RunStatus{
		RunID:      r.id,
		State:      r.currentState(),
		Roots:      r.roots,
		Algorithms: r.algorithms.Names(),
		Progress:   r.progress.Snapshot(),
		AcceptedAt: r.acceptedAt,
	}
}
