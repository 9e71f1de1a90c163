// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/hasher/lib/clock"
	"github.com/bureau-foundation/hasher/lib/digest"
	"github.com/bureau-foundation/hasher/lib/schema"
)

// ErrFileTimeout is the failure reported for a file whose read did not
// finish within Config.FileTimeout.
var ErrFileTimeout = errors.New("file read timed out")

// Config configures a Scheduler. The zero value is usable: it runs
// runtime.NumCPU() workers with a queue twice that deep, default-size
// reads, no timeout, no throttle, and reports only the final snapshot.
type Config struct {
	// Workers is the size of the pool. Zero means runtime.NumCPU().
	Workers int

	// QueueDepth bounds the number of discovered tasks waiting for a
	// worker. Zero means 2 * Workers.
	QueueDepth int

	// ChunkSize is the read buffer size per worker. Zero means
	// digest.DefaultChunkSize.
	ChunkSize int

	// ConcurrentDigest runs each requested algorithm on its own
	// goroutine within a worker. Pays off for expensive algorithm
	// sets on fast storage.
	ConcurrentDigest bool

	// FileTimeout bounds the time spent reading one file. Zero
	// disables the timeout. When it expires the file is closed and
	// the worker moves on at once; a read that Close does not
	// interrupt (a hung network mount, for example) is left to finish
	// in the background, and its bytes are not counted.
	FileTimeout time.Duration

	// ReadRateLimit caps the combined read rate of all workers in
	// bytes per second. Zero means unlimited.
	ReadRateLimit int64

	// Cadence controls progress reporting.
	Cadence Cadence

	// Open opens each file. Nil means OpenSequential.
	Open Opener

	// Clock drives the reporter ticker and file timeouts. Nil means
	// clock.Real().
	Clock clock.Clock

	// Logger receives per-file diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Sink receives a job's output. Discovered and Result are called from
// the producer and worker goroutines; Progress is called from one
// reporter goroutine. Implementations must be safe for concurrent use.
type Sink interface {
	// Discovered is called for each task before it enters the queue.
	Discovered(task schema.FileTask)

	// Result is called once per claimed task, after the file is
	// closed.
	Result(record schema.Record)

	// Progress is called on the job's cadence and once at the end.
	Progress(snapshot schema.ProgressSnapshot)
}

// Source produces a job's tasks by calling submit once per file. It
// must return when submit returns an error.
type Source func(ctx context.Context, submit func(schema.FileTask) error) error

// Job is one unit of work for Run.
type Job struct {
	Algorithms digest.Set
	Source     Source
	Sink       Sink

	// Progress, if set, is updated in place so callers can observe
	// counters while the job runs. Nil allocates a private one.
	Progress *Progress
}

// Scheduler runs jobs. It holds only configuration and may run several
// jobs, sequentially or concurrently.
type Scheduler struct {
	workers          int
	queueDepth       int
	chunkSize        int
	concurrentDigest bool
	fileTimeout      time.Duration
	cadence          Cadence
	open             Opener
	clock            clock.Clock
	logger           *slog.Logger
	limiter          *rate.Limiter
}

// New returns a Scheduler with defaults applied to config.
func New(config Config) *Scheduler {
	s := &Scheduler{
		workers:          config.Workers,
		queueDepth:       config.QueueDepth,
		chunkSize:        config.ChunkSize,
		concurrentDigest: config.ConcurrentDigest,
		fileTimeout:      config.FileTimeout,
		cadence:          config.Cadence,
		open:             config.Open,
		clock:            config.Clock,
		logger:           config.Logger,
	}
	if s.workers <= 0 {
		s.workers = runtime.NumCPU()
	}
	if s.queueDepth <= 0 {
		s.queueDepth = 2 * s.workers
	}
	if s.chunkSize <= 0 {
		s.chunkSize = digest.DefaultChunkSize
	}
	if s.open == nil {
		s.open = OpenSequential
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if config.ReadRateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(config.ReadRateLimit), s.chunkSize)
	}
	return s
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int { return s.workers }

// Run executes job and returns its final counters once every worker
// has stopped and the final snapshot has been reported.
//
// Cancelling ctx stops the producer and keeps workers from claiming
// further tasks; Run still waits for in-flight files and returns the
// final counters with a nil error. A non-nil error means the source
// failed for a reason other than cancellation.
func (s *Scheduler) Run(ctx context.Context, job Job) (schema.ProgressSnapshot, error) {
	if job.Algorithms.Empty() {
		return schema.ProgressSnapshot{}, digest.ErrEmptySet
	}
	progress := job.Progress
	if progress == nil {
		progress = &Progress{}
	}
	reporter := startReporter(s.clock, s.cadence, progress, job.Sink)

	queue := make(chan schema.FileTask, s.queueDepth)

	// Workers never fail: a per-file error becomes a failed record.
	// The group's error is therefore the source's.
	var group errgroup.Group
	for range s.workers {
		group.Go(func() error {
			s.work(ctx, job, queue, progress, reporter)
			return nil
		})
	}

	submit := func(task schema.FileTask) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		job.Sink.Discovered(task)
		progress.discover(task.Size)
		select {
		case queue <- task:
			return nil
		case <-ctx.Done():
			progress.cancel(1)
			return ctx.Err()
		}
	}
	group.Go(func() error {
		defer close(queue)
		return job.Source(ctx, submit)
	})
	sourceErr := group.Wait()

	var abandoned int64
	for range queue {
		abandoned++
	}
	if abandoned > 0 {
		progress.cancel(abandoned)
	}

	final := reporter.finish()
	if sourceErr != nil && ctx.Err() == nil {
		return final, fmt.Errorf("producing tasks: %w", sourceErr)
	}
	return final, nil
}

// work is one worker's loop. It stops when the queue is closed and
// empty, or when ctx is cancelled between tasks.
func (s *Scheduler) work(ctx context.Context, job Job, queue <-chan schema.FileTask, progress *Progress, reporter *reporter) {
	buffer := make([]byte, s.chunkSize)
	for {
		if ctx.Err() != nil {
			return
		}
		var task schema.FileTask
		var ok bool
		select {
		case <-ctx.Done():
			return
		case task, ok = <-queue:
			if !ok {
				return
			}
		}
		// A receive can win the race against a cancellation that was
		// already visible; such a task is not claimed.
		if ctx.Err() != nil {
			progress.cancel(1)
			return
		}

		digests, err := s.hashFile(ctx, task.Path, job.Algorithms, buffer, func(n int) {
			reporter.bytesProcessed(progress.addBytes(int64(n)))
		})
		if errors.Is(err, ErrFileTimeout) {
			// The abandoned read may still write into the old buffer.
			buffer = make([]byte, s.chunkSize)
		}
		if err != nil {
			s.logger.Warn("hashing failed", "path", task.Path, "error", err)
			job.Sink.Result(schema.FailedRecord(task.Path, err))
			progress.fail()
			continue
		}
		s.logger.Debug("hashed", "path", task.Path, "size", task.Size)
		job.Sink.Result(schema.NewRecord(task.Path, digests))
		progress.complete()
	}
}

// hashFile opens, digests, and closes one file. With a file timeout
// the digest runs on its own goroutine so an expired read can be
// abandoned; the caller must not reuse buffer after ErrFileTimeout.
func (s *Scheduler) hashFile(ctx context.Context, path string, set digest.Set, buffer []byte, onChunk func(int)) (digest.Digests, error) {
	file, err := s.open(path)
	if err != nil {
		return nil, fmt.Errorf("opening: %w", err)
	}

	var closeOnce sync.Once
	closeFile := func() error {
		var closeErr error
		closeOnce.Do(func() { closeErr = file.Close() })
		return closeErr
	}
	defer closeFile()

	var reader io.Reader = file
	if s.limiter != nil {
		reader = &throttledReader{reader: file, limiter: s.limiter, ctx: context.WithoutCancel(ctx)}
	}
	options := digest.ComputeOptions{
		Buffer:     buffer,
		Concurrent: s.concurrentDigest,
		OnChunk:    onChunk,
	}

	if s.fileTimeout <= 0 {
		return digest.Compute(reader, set, options)
	}

	var abandoned atomic.Bool
	options.OnChunk = func(n int) {
		if !abandoned.Load() {
			onChunk(n)
		}
	}
	expired := make(chan struct{})
	timer := s.clock.AfterFunc(s.fileTimeout, func() {
		abandoned.Store(true)
		close(expired)
		_ = closeFile()
	})
	defer timer.Stop()

	type outcome struct {
		digests digest.Digests
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		digests, err := digest.Compute(reader, set, options)
		done <- outcome{digests, err}
	}()

	timedOut := fmt.Errorf("%w after %s", ErrFileTimeout, s.fileTimeout)
	select {
	case result := <-done:
		if result.err != nil {
			select {
			case <-expired:
				return nil, timedOut
			default:
			}
		}
		return result.digests, result.err
	case <-expired:
		return nil, timedOut
	}
}
