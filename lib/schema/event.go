// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// EventType discriminates Event frames.
type EventType string

const (
	EventFileDiscovered EventType = "file-discovered"
	EventFileUpdated    EventType = "file-updated"
	EventHashProgress   EventType = "hash-progress"
	EventTraversalError EventType = "traversal-error"
	EventRunState       EventType = "run-state"

	// EventHeartbeat is written by the socket server on idle
	// subscribe streams. It never passes through the engine's bus
	// and carries no run.
	EventHeartbeat EventType = "heartbeat"

	// EventResync tells a lossy subscriber it fell behind. Message
	// carries the number of events it missed; the client should
	// re-read status before trusting its view again.
	EventResync EventType = "resync"

	// EventError is the last frame of a stream the server is ending
	// abnormally. Message carries the reason.
	EventError EventType = "error"
)

// Event is one frame on the event stream. Type selects which of the
// optional fields are populated:
//
//   - file-discovered: Task
//   - file-updated: Record
//   - hash-progress: Progress
//   - traversal-error: Path, Message
//   - run-state: State, Progress (final counters for terminal
//     states), Cancelled, Message (failure reason)
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"run_id,omitempty"`

	// Sequence is assigned by the event bus: strictly increasing
	// across every event the bus delivers, regardless of run.
	Sequence uint64 `json:"sequence,omitempty"`

	Task     *FileTask         `json:"task,omitempty"`
	Record   *Record           `json:"record,omitempty"`
	Progress *ProgressSnapshot `json:"progress,omitempty"`
	State    RunState          `json:"state,omitempty"`

	// Cancelled is set on the terminal run-state of a run that was
	// cancelled or dropped before it started.
	Cancelled bool `json:"cancelled,omitempty"`

	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

// FileDiscovered builds a file-discovered event.
func FileDiscovered(runID string, task FileTask) Event {
	return Event{Type: EventFileDiscovered, RunID: runID, Task: &task}
}

// FileUpdated builds a file-updated event.
func FileUpdated(runID string, record Record) Event {
	return Event{Type: EventFileUpdated, RunID: runID, Record: &record}
}

// HashProgress builds a hash-progress event.
func HashProgress(runID string, snapshot ProgressSnapshot) Event {
	return Event{Type: EventHashProgress, RunID: runID, Progress: &snapshot}
}

// TraversalError builds a traversal-error event.
func TraversalError(runID, path, message string) Event {
	return Event{Type: EventTraversalError, RunID: runID, Path: path, Message: message}
}

// StateChanged builds a run-state event without counters.
func StateChanged(runID string, state RunState) Event {
	return Event{Type: EventRunState, RunID: runID, State: state}
}

// Terminal reports whether the event is the final frame of its run.
func (e Event) Terminal() bool {
	return e.Type == EventRunState && e.State.Terminal()
}

// EventPath returns the file path an event concerns, or "".
func (e Event) EventPath() string {
	switch {
	case e.Task != nil:
		return e.Task.Path
	case e.Record != nil:
		return e.Record.Path
	default:
		return e.Path
	}
}
