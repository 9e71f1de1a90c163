// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/bureau-foundation/hasher/lib/clock"
	"github.com/bureau-foundation/hasher/lib/event"
	"github.com/bureau-foundation/hasher/lib/scheduler"
	"github.com/bureau-foundation/hasher/lib/schema"
	"github.com/bureau-foundation/hasher/lib/walk"
)

// Request validation and lifecycle errors.
var (
	ErrNoAlgorithms = errors.New("no algorithms selected")
	ErrNoRoots      = errors.New("no paths selected")
	ErrNoValidRoot  = errors.New("none of the selected paths exist")
	ErrClosed       = errors.New("engine closed")
	ErrNoActiveRun  = errors.New("no active run")
	ErrUnknownRun   = errors.New("unknown run")
)

// Config configures an Engine.
type Config struct {
	// Scheduler configures the worker pool. Its Clock and Logger
	// default to the engine's.
	Scheduler scheduler.Config

	// FollowSymlinks and Exclude configure the walker.
	FollowSymlinks bool
	Exclude        []string

	// BusyPolicy defaults to PolicyQueue.
	BusyPolicy BusyPolicy

	// Events configures the event bus.
	Events event.BusOptions

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Engine accepts hashing requests and runs them one at a time.
type Engine struct {
	logger     *slog.Logger
	clock      clock.Clock
	bus        *event.Bus
	scheduler  *scheduler.Scheduler
	walk       walk.Options
	busyPolicy BusyPolicy

	wake     chan struct{}
	stop     chan struct{}
	loopDone chan struct{}

	mu      sync.Mutex
	active  *run
	pending []*run
	closed  bool
}

// New validates config and starts the engine's dispatch loop. Call
// Close to stop it.
func New(config Config) (*Engine, error) {
	policy, err := ParseBusyPolicy(string(config.BusyPolicy))
	if err != nil {
		return nil, err
	}
	walkOptions := walk.Options{FollowSymlinks: config.FollowSymlinks, Exclude: config.Exclude}
	if _, err := walk.New(walkOptions); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	schedulerConfig := config.Scheduler
	if schedulerConfig.Clock == nil {
		schedulerConfig.Clock = clk
	}
	if schedulerConfig.Logger == nil {
		schedulerConfig.Logger = logger
	}
	walkOptions.Logger = logger

	e := &Engine{
		logger:     logger,
		clock:      clk,
		bus:        event.NewBus(config.Events),
		scheduler:  scheduler.New(schedulerConfig),
		walk:       walkOptions,
		busyPolicy: policy,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		loopDone:   make(chan struct{}),
	}
	go e.loop()
	return e, nil
}

// Subscribe returns a new event subscription. Subscribe before calling
// SelectFiles to see a run from its first event.
func (e *Engine) Subscribe(options event.SubscribeOptions) *event.Subscription {
	return e.bus.Subscribe(options)
}

// SelectFiles validates request and schedules it. It returns as soon
// as the run is accepted; a rejected request emits no events.
func (e *Engine) SelectFiles(ctx context.Context, request RunRequest) (RunID, error) {
	if request.Algorithms.Empty() {
		return "", ErrNoAlgorithms
	}
	if len(request.Roots) == 0 {
		return "", ErrNoRoots
	}
	valid, invalid := walk.CheckRoots(request.Roots)
	if len(valid) == 0 {
		causes := make([]error, len(invalid))
		for i, err := range invalid {
			causes[i] = err
		}
		return "", fmt.Errorf("%w: %w", ErrNoValidRoot, errors.Join(causes...))
	}

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return "", ErrClosed
	}

	// Missing roots are kept so the walker reports them as traversal
	// errors in the run's own event stream.
	roots := slices.Clone(request.Roots)
	r := newRun(roots, request.Algorithms, e.clock.Now())
	if err := e.bus.Publish(ctx, schema.StateChanged(string(r.id), schema.RunIdle)); err != nil {
		return "", fmt.Errorf("announcing run: %w", err)
	}

	var cancelled *run
	var dropped []*run
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.finish(r, schema.RunCompleted, "")
		return "", ErrClosed
	}
	if e.busyPolicy == PolicyCancel {
		cancelled = e.active
		dropped = e.pending
		e.pending = nil
	}
	e.pending = append(e.pending, r)
	queued := len(e.pending)
	e.mu.Unlock()

	if cancelled != nil {
		e.logger.Info("cancelling active run for new request", "run_id", cancelled.id, "new_run_id", r.id)
		e.cancelRun(cancelled)
	}
	for _, d := range dropped {
		e.logger.Info("dropping waiting run", "run_id", d.id, "new_run_id", r.id)
		e.dropRun(d)
	}

	e.logger.Info("run accepted",
		"run_id", r.id,
		"roots", len(roots),
		"algorithms", request.Algorithms.String(),
		"queued", queued,
	)
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return r.id, nil
}

// Cancel cancels the run named by runID, or the active run if runID is
// empty. A waiting run is removed from the queue without starting.
func (e *Engine) Cancel(runID RunID) error {
	e.mu.Lock()
	if runID == "" {
		active := e.active
		e.mu.Unlock()
		if active == nil {
			return ErrNoActiveRun
		}
		e.cancelRun(active)
		return nil
	}
	if e.active != nil && e.active.id == runID {
		active := e.active
		e.mu.Unlock()
		e.cancelRun(active)
		return nil
	}
	for i, r := range e.pending {
		if r.id == runID {
			e.pending = slices.Delete(e.pending, i, i+1)
			e.mu.Unlock()
			e.dropRun(r)
			return nil
		}
	}
	e.mu.Unlock()
	return fmt.Errorf("%w %s", ErrUnknownRun, runID)
}

// Status returns the active run and the queue.
func (e *Engine) Status() Status {
	e.mu.Lock()
	active := e.active
	pending := make([]RunID, len(e.pending))
	for i, r := range e.pending {
		pending[i] = r.id
	}
	e.mu.Unlock()

	status := Status{Pending: pending, BusyPolicy: e.busyPolicy}
	if active != nil {
		status.Active = active.status()
	}
	return status
}

// Close cancels the active run, drops waiting runs, waits for the
// active run to drain, and closes every subscription after delivering
// the remaining events.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.loopDone
		return
	}
	e.closed = true
	active := e.active
	dropped := e.pending
	e.pending = nil
	e.mu.Unlock()

	if active != nil {
		e.cancelRun(active)
	}
	for _, r := range dropped {
		e.dropRun(r)
	}
	close(e.stop)
	<-e.loopDone
	e.bus.Close()
}

// loop starts runs one at a time, in the order they were queued.
func (e *Engine) loop() {
	defer close(e.loopDone)
	for {
		r := e.next()
		if r == nil {
			select {
			case <-e.wake:
				continue
			case <-e.stop:
				return
			}
		}
		e.execute(r)
	}
}

func (e *Engine) next() *run {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return nil
	}
	r := e.pending[0]
	e.pending = slices.Delete(e.pending, 0, 1)
	e.active = r
	return r
}

// execute drives one run from discovery to its terminal state.
func (e *Engine) execute(r *run) {
	logger := e.logger.With("run_id", r.id)
	if !e.transition(r, schema.RunDiscovering, nil, "") {
		// Cancelled between dequeue and start.
		e.finish(r, schema.RunCompleted, "")
		return
	}
	logger.Info("run started", "algorithms", r.algorithms.String())

	walkOptions := e.walk
	walkOptions.OnError = func(err *walk.TraversalError) {
		logger.Warn("skipping path", "path", err.Path, "op", err.Op, "error", err.Err)
		r.progress.AddTraversalError()
		e.publishRun(schema.TraversalError(string(r.id), err.Path, err.Error()))
	}
	walker, err := walk.New(walkOptions)
	if err != nil {
		logger.Error("building walker", "error", err)
		e.finish(r, schema.RunFailed, err.Error())
		return
	}

	source := func(ctx context.Context, submit func(schema.FileTask) error) error {
		if err := walker.Walk(ctx, r.roots, submit); err != nil {
			return err
		}
		e.transition(r, schema.RunHashing, nil, "")
		return nil
	}

	final, err := e.scheduler.Run(r.ctx, scheduler.Job{
		Algorithms: r.algorithms,
		Source:     source,
		Sink:       &runSink{engine: e, run: r},
		Progress:   r.progress,
	})
	if err != nil {
		logger.Error("run failed", "error", err)
		e.transitionFinal(r, schema.RunFailed, final, err.Error())
		return
	}
	logger.Info("run completed",
		"cancelled", r.cancelRequested.Load(),
		"files_completed", final.FilesCompleted,
		"files_failed", final.FilesFailed,
		"files_cancelled", final.FilesCancelled,
		"traversal_errors", final.TraversalErrors,
		"bytes_processed", final.BytesProcessed,
	)
	e.transitionFinal(r, schema.RunCompleted, final, "")
}

// cancelRun requests cancellation of a started or starting run.
func (e *Engine) cancelRun(r *run) {
	if !r.cancelRequested.CompareAndSwap(false, true) {
		return
	}
	r.cancel()
	e.transition(r, schema.RunCancelling, nil, "")
}

// dropRun ends a run that never started.
func (e *Engine) dropRun(r *run) {
	r.cancelRequested.Store(true)
	r.cancel()
	e.finish(r, schema.RunCompleted, "")
}

// finish moves a run to a terminal state with its current counters.
func (e *Engine) finish(r *run, state schema.RunState, message string) {
	e.transitionFinal(r, state, r.progress.Snapshot(), message)
}

// transitionFinal releases the active slot before announcing the end,
// so a subscriber reacting to the terminal event sees the engine idle.
func (e *Engine) transitionFinal(r *run, state schema.RunState, final schema.ProgressSnapshot, message string) {
	e.mu.Lock()
	if e.active == r {
		e.active = nil
	}
	e.mu.Unlock()
	e.transition(r, state, &final, message)
	r.cancel()
}

// transition moves r to next and publishes the change. Illegal
// transitions (anything after a terminal state, hashing after
// cancelling) are ignored and return false.
func (e *Engine) transition(r *run, next schema.RunState, progress *schema.ProgressSnapshot, message string) bool {
	r.transition.Lock()
	defer r.transition.Unlock()

	r.mu.Lock()
	if !allowed(r.state, next) {
		r.mu.Unlock()
		return false
	}
	r.state = next
	r.mu.Unlock()

	event := schema.StateChanged(string(r.id), next)
	event.Progress = progress
	event.Message = message
	if next.Terminal() {
		event.Cancelled = r.cancelRequested.Load()
	}
	e.publishRun(event)
	return true
}

// publishRun is used for events produced by a run. They are published
// without a deadline: the bus only refuses them once it is closed.
func (e *Engine) publishRun(ev schema.Event) {
	if err := e.bus.Publish(context.Background(), ev); err != nil {
		e.logger.Debug("event not delivered", "type", ev.Type, "run_id", ev.RunID, "error", err)
	}
}

// runSink forwards scheduler output to the bus.
type runSink struct {
	engine *Engine
	run    *run
}

func (s *runSink) Discovered(task schema.FileTask) {
	s.engine.publishRun(schema.FileDiscovered(string(s.run.id), task))
}

func (s *runSink) Result(record schema.Record) {
	s.engine.publishRun(schema.FileUpdated(string(s.run.id), record))
}

func (s *runSink) Progress(snapshot schema.ProgressSnapshot) {
	s.engine.publishRun(schema.HashProgress(string(s.run.id), snapshot))
}
