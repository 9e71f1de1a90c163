// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/hasher/lib/clock"
	"github.com/bureau-foundation/hasher/lib/digest"
	"github.com/bureau-foundation/hasher/lib/schema"
	"github.com/bureau-foundation/hasher/lib/testutil"
)

const timeout = 5 * time.Second

const (
	md5OfTest    = "098f6bcd4621d373cade4e832627b4f6"
	sha256OfTest = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
)

// recordingSink captures everything a job reports. If progress is
// non-nil, every snapshot is also sent there.
type recordingSink struct {
	mu         sync.Mutex
	order      []string
	discovered []schema.FileTask
	results    []schema.Record
	snapshots  []schema.ProgressSnapshot
	progress   chan schema.ProgressSnapshot
}

func (s *recordingSink) Discovered(task schema.FileTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, "discovered:"+task.Path)
	s.discovered = append(s.discovered, task)
}

func (s *recordingSink) Result(record schema.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, "result:"+record.Path)
	s.results = append(s.results, record)
}

func (s *recordingSink) Progress(snapshot schema.ProgressSnapshot) {
	s.mu.Lock()
	s.snapshots = append(s.snapshots, snapshot)
	s.mu.Unlock()
	if s.progress != nil {
		s.progress <- snapshot
	}
}

func (s *recordingSink) resultsByPath() map[string]schema.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	byPath := make(map[string]schema.Record, len(s.results))
	for _, record := range s.results {
		byPath[record.Path] = record
	}
	return byPath
}

func sliceSource(tasks ...schema.FileTask) Source {
	return func(ctx context.Context, submit func(schema.FileTask) error) error {
		for _, task := range tasks {
			if err := submit(task); err != nil {
				return err
			}
		}
		return nil
	}
}

// memoryOpener serves files from a map and fails for anything else.
func memoryOpener(files map[string]string) Opener {
	return func(path string) (io.ReadCloser, error) {
		contents, ok := files[path]
		if !ok {
			return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
		}
		return io.NopCloser(strings.NewReader(contents)), nil
	}
}

func mustSet(t *testing.T, algorithms ...digest.Algorithm) digest.Set {
	t.Helper()
	set, err := digest.NewSet(algorithms...)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return set
}

func TestRunHashesRealFiles(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a.txt": "test", "b.txt": "test"})
	tasks := []schema.FileTask{
		{Path: filepath.Join(root, "a.txt"), Size: 4},
		{Path: filepath.Join(root, "b.txt"), Size: 4},
	}

	sink := &recordingSink{}
	final, err := New(Config{Workers: 2}).Run(context.Background(), Job{
		Algorithms: mustSet(t, digest.MD5, digest.SHA256),
		Source:     sliceSource(tasks...),
		Sink:       sink,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	results := sink.resultsByPath()
	for _, task := range tasks {
		record, ok := results[task.Path]
		if !ok {
			t.Fatalf("no result for %s", task.Path)
		}
		if record.MD5 != md5OfTest || record.SHA256 != sha256OfTest {
			t.Errorf("%s: md5=%s sha256=%s", task.Path, record.MD5, record.SHA256)
		}
		if record.SHA1 != "" || record.BLAKE3 != "" {
			t.Errorf("%s carries unrequested digests: %+v", task.Path, record)
		}
	}
	want := schema.ProgressSnapshot{FilesDiscovered: 2, FilesCompleted: 2, BytesProcessed: 8, BytesTotal: 8}
	if final != want {
		t.Errorf("final = %+v, want %+v", final, want)
	}
}

func TestRunEachTaskClaimedOnceAndDiscoveredFirst(t *testing.T) {
	files := make(map[string]string)
	var tasks []schema.FileTask
	for i := range 200 {
		path := fmt.Sprintf("/mem/file-%03d", i)
		files[path] = strings.Repeat("x", i)
		tasks = append(tasks, schema.FileTask{Path: path, Size: int64(i)})
	}

	sink := &recordingSink{}
	final, err := New(Config{Workers: 8, QueueDepth: 3, ChunkSize: 7, Open: memoryOpener(files)}).Run(
		context.Background(),
		Job{Algorithms: mustSet(t, digest.SHA1), Source: sliceSource(tasks...), Sink: sink},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(sink.results) != len(tasks) {
		t.Fatalf("got %d results, want %d", len(sink.results), len(tasks))
	}
	discoveredAt := make(map[string]int)
	for i, entry := range sink.order {
		if path, ok := strings.CutPrefix(entry, "discovered:"); ok {
			discoveredAt[path] = i
			continue
		}
		path := strings.TrimPrefix(entry, "result:")
		if _, ok := discoveredAt[path]; !ok {
			t.Fatalf("result for %s before its discovery", path)
		}
	}
	if len(sink.resultsByPath()) != len(tasks) {
		t.Error("some task produced more than one result")
	}
	if !final.Balanced() || final.FilesCompleted != int64(len(tasks)) {
		t.Errorf("final = %+v", final)
	}
}

func TestRunPerFileFailureDoesNotStopJob(t *testing.T) {
	files := map[string]string{"/mem/ok": "test"}
	sink := &recordingSink{}
	final, err := New(Config{Workers: 1, Open: memoryOpener(files)}).Run(context.Background(), Job{
		Algorithms: mustSet(t, digest.MD5),
		Source:     sliceSource(schema.FileTask{Path: "/mem/missing"}, schema.FileTask{Path: "/mem/ok", Size: 4}),
		Sink:       sink,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	results := sink.resultsByPath()
	missing := results["/mem/missing"]
	if !missing.Failed() || missing.MD5 != "" {
		t.Errorf("missing file record = %+v, want error only", missing)
	}
	if results["/mem/ok"].MD5 != md5OfTest {
		t.Errorf("ok file record = %+v", results["/mem/ok"])
	}
	if final.FilesCompleted != 1 || final.FilesFailed != 1 || !final.Balanced() {
		t.Errorf("final = %+v", final)
	}
}

func TestRunConcurrentDigestMatchesSequential(t *testing.T) {
	contents := strings.Repeat("0123456789abcdef", 10000)
	files := map[string]string{"/mem/big": contents}
	set := mustSet(t, digest.Algorithms()...)

	run := func(concurrent bool, rateLimit int64) schema.Record {
		sink := &recordingSink{}
		_, err := New(Config{
			Workers:          1,
			ChunkSize:        4096,
			ConcurrentDigest: concurrent,
			ReadRateLimit:    rateLimit,
			Open:             memoryOpener(files),
		}).Run(context.Background(), Job{Algorithms: set, Source: sliceSource(schema.FileTask{Path: "/mem/big"}), Sink: sink})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return sink.results[0]
	}

	want, err := digest.Bytes([]byte(contents), set)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	for _, variant := range []struct {
		name       string
		concurrent bool
		rateLimit  int64
	}{
		{"sequential", false, 0},
		{"concurrent", true, 0},
		{"throttled", false, 1 << 30},
	} {
		record := run(variant.concurrent, variant.rateLimit)
		for algorithm, value := range want {
			if got := record.Get(algorithm); got != value {
				t.Errorf("%s %s = %s, want %s", variant.name, algorithm, got, value)
			}
		}
	}
}

func TestRunRejectsEmptySet(t *testing.T) {
	_, err := New(Config{}).Run(context.Background(), Job{Source: sliceSource(), Sink: &recordingSink{}})
	if !errors.Is(err, digest.ErrEmptySet) {
		t.Errorf("Run = %v, want ErrEmptySet", err)
	}
}

func TestRunReportsSourceFailure(t *testing.T) {
	broken := errors.New("walker broke")
	sink := &recordingSink{}
	_, err := New(Config{}).Run(context.Background(), Job{
		Algorithms: mustSet(t, digest.MD5),
		Source: func(context.Context, func(schema.FileTask) error) error {
			return broken
		},
		Sink: sink,
	})
	if !errors.Is(err, broken) {
		t.Errorf("Run = %v, want %v", err, broken)
	}
	if len(sink.snapshots) != 1 {
		t.Errorf("got %d snapshots, want only the final one", len(sink.snapshots))
	}
}

func TestRunSourceFailureAfterTasks(t *testing.T) {
	broken := errors.New("walker broke")
	files := map[string]string{"/a": "test", "/b": "test", "/c": "test"}
	sink := &recordingSink{}
	final, err := New(Config{Workers: 2, Open: memoryOpener(files)}).Run(context.Background(), Job{
		Algorithms: mustSet(t, digest.MD5),
		Source: func(ctx context.Context, submit func(schema.FileTask) error) error {
			for _, path := range []string{"/a", "/b", "/c"} {
				if err := submit(schema.FileTask{Path: path, Size: 4}); err != nil {
					return err
				}
			}
			return broken
		},
		Sink: sink,
	})
	if !errors.Is(err, broken) {
		t.Errorf("Run = %v, want %v", err, broken)
	}
	if final.FilesCompleted != 3 || !final.Balanced() {
		t.Errorf("final = %+v, want the submitted files hashed", final)
	}
	if len(sink.results) != 3 {
		t.Errorf("got %d results, want 3", len(sink.results))
	}
}

// gatedOpener blocks each open until the test releases it.
type gatedOpener struct {
	files   map[string]string
	entered chan string
	release chan struct{}
}

func (g *gatedOpener) open(path string) (io.ReadCloser, error) {
	g.entered <- path
	<-g.release
	return memoryOpener(g.files)(path)
}

func TestRunCancelFinishesInFlightAndCountsQueued(t *testing.T) {
	files := make(map[string]string)
	var tasks []schema.FileTask
	for i := range 10 {
		path := fmt.Sprintf("/mem/%d", i)
		files[path] = "test"
		tasks = append(tasks, schema.FileTask{Path: path, Size: 4})
	}
	opener := &gatedOpener{files: files, entered: make(chan string, 10), release: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &recordingSink{}
	type outcome struct {
		final schema.ProgressSnapshot
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		final, err := New(Config{Workers: 1, QueueDepth: 2, Open: opener.open}).Run(ctx, Job{
			Algorithms: mustSet(t, digest.MD5),
			Source:     sliceSource(tasks...),
			Sink:       sink,
		})
		done <- outcome{final, err}
	}()

	inFlight := testutil.RequireReceive(t, opener.entered, timeout, "worker claiming first task")
	cancel()
	close(opener.release)
	result := testutil.RequireReceive(t, done, timeout, "Run returning after cancel")

	if result.err != nil {
		t.Fatalf("Run: %v", result.err)
	}
	final := result.final
	if final.FilesCompleted != 1 || final.FilesFailed != 0 {
		t.Errorf("final = %+v, want exactly the in-flight file completed", final)
	}
	if !final.Balanced() {
		t.Errorf("final %+v does not balance", final)
	}
	if final.FilesDiscovered > 4 {
		t.Errorf("discovered %d files with one worker and a queue of 2", final.FilesDiscovered)
	}
	if len(sink.results) != 1 || sink.results[0].Path != inFlight || sink.results[0].MD5 != md5OfTest {
		t.Errorf("results = %+v, want the complete in-flight record only", sink.results)
	}
	if int64(len(sink.discovered)) != final.FilesDiscovered {
		t.Errorf("%d discovered callbacks, %d counted", len(sink.discovered), final.FilesDiscovered)
	}
}

// blockingReader blocks every Read until Close.
type blockingReader struct {
	closed    chan struct{}
	closeOnce sync.Once
}

func (b *blockingReader) Read([]byte) (int, error) {
	<-b.closed
	return 0, os.ErrClosed
}

func (b *blockingReader) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

func TestRunFileTimeout(t *testing.T) {
	fake := clock.Fake(time.Unix(0, 0))
	reader := &blockingReader{closed: make(chan struct{})}
	sink := &recordingSink{}
	done := make(chan schema.ProgressSnapshot, 1)
	go func() {
		final, err := New(Config{
			Workers:     1,
			FileTimeout: 30 * time.Second,
			Clock:       fake,
			Open:        func(string) (io.ReadCloser, error) { return reader, nil },
		}).Run(context.Background(), Job{
			Algorithms: mustSet(t, digest.SHA256),
			Source:     sliceSource(schema.FileTask{Path: "/stuck"}),
			Sink:       sink,
		})
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		done <- final
	}()

	fake.WaitForTimers(1)
	fake.Advance(30 * time.Second)
	final := testutil.RequireReceive(t, done, timeout, "Run returning after timeout")

	if final.FilesFailed != 1 || !final.Balanced() {
		t.Errorf("final = %+v, want one failed file", final)
	}
	if len(sink.results) != 1 || !strings.Contains(sink.results[0].Error, ErrFileTimeout.Error()) {
		t.Errorf("results = %+v, want a timeout failure", sink.results)
	}
}

// stuckReader blocks its first Read until release is closed, whether
// or not Close has been called. It then returns late and, on the next
// Read, io.EOF, closing finished.
type stuckReader struct {
	late     []byte
	release  chan struct{}
	finished chan struct{}
	reads    int
}

func (r *stuckReader) Read(buffer []byte) (int, error) {
	r.reads++
	if r.reads == 1 {
		<-r.release
		return copy(buffer, r.late), nil
	}
	close(r.finished)
	return 0, io.EOF
}

func (r *stuckReader) Close() error { return nil }

func TestRunFileTimeoutAbandonsUninterruptibleRead(t *testing.T) {
	fake := clock.Fake(time.Unix(0, 0))
	stuck := &stuckReader{
		late:     []byte("late bytes"),
		release:  make(chan struct{}),
		finished: make(chan struct{}),
	}
	memory := memoryOpener(map[string]string{"/ok": "test"})
	open := func(path string) (io.ReadCloser, error) {
		if path == "/stuck" {
			return stuck, nil
		}
		return memory(path)
	}

	progress := &Progress{}
	sink := &recordingSink{}
	done := make(chan schema.ProgressSnapshot, 1)
	go func() {
		final, err := New(Config{
			Workers:     1,
			FileTimeout: 30 * time.Second,
			Clock:       fake,
			Open:        open,
		}).Run(context.Background(), Job{
			Algorithms: mustSet(t, digest.MD5),
			Source: sliceSource(
				schema.FileTask{Path: "/stuck", Size: 10},
				schema.FileTask{Path: "/ok", Size: 4},
			),
			Sink:     sink,
			Progress: progress,
		})
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		done <- final
	}()

	// Close does not unblock the read, so only the timeout can free
	// the single worker for the second file.
	fake.WaitForTimers(1)
	fake.Advance(30 * time.Second)
	final := testutil.RequireReceive(t, done, timeout, "Run returning while a read is still blocked")

	if final.FilesFailed != 1 || final.FilesCompleted != 1 || !final.Balanced() {
		t.Errorf("final = %+v, want one failed and one completed file", final)
	}
	results := sink.resultsByPath()
	if !strings.Contains(results["/stuck"].Error, ErrFileTimeout.Error()) {
		t.Errorf("/stuck = %+v, want a timeout failure", results["/stuck"])
	}
	if results["/ok"].MD5 != md5OfTest {
		t.Errorf("/ok = %+v, want its md5", results["/ok"])
	}

	close(stuck.release)
	testutil.RequireClosed(t, stuck.finished, timeout, "abandoned read finishing")
	if got := progress.Snapshot().BytesProcessed; got != 4 {
		t.Errorf("BytesProcessed = %d after the abandoned read finished, want 4", got)
	}
}

// pausingReader returns first on the first Read, then blocks the
// second Read (signalling paused) until resume is closed.
type pausingReader struct {
	first  []byte
	rest   []byte
	paused chan struct{}
	resume chan struct{}
	reads  int
}

func (p *pausingReader) Read(buffer []byte) (int, error) {
	p.reads++
	switch p.reads {
	case 1:
		return copy(buffer, p.first), nil
	case 2:
		close(p.paused)
		<-p.resume
		return copy(buffer, p.rest), nil
	default:
		return 0, io.EOF
	}
}

func (p *pausingReader) Close() error { return nil }

func newPausingReader(first, rest string) *pausingReader {
	return &pausingReader{
		first:  []byte(first),
		rest:   []byte(rest),
		paused: make(chan struct{}),
		resume: make(chan struct{}),
	}
}

func TestCadenceByteThreshold(t *testing.T) {
	reader := newPausingReader(strings.Repeat("a", 10), strings.Repeat("b", 5))
	sink := &recordingSink{progress: make(chan schema.ProgressSnapshot, 16)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := New(Config{
			Workers: 1,
			Cadence: Cadence{Bytes: 10},
			Clock:   clock.Fake(time.Unix(0, 0)),
			Open:    func(string) (io.ReadCloser, error) { return reader, nil },
		}).Run(context.Background(), Job{
			Algorithms: mustSet(t, digest.MD5),
			Source:     sliceSource(schema.FileTask{Path: "/f", Size: 15}),
			Sink:       sink,
		})
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	// The file is mid-read, so only the byte trigger can produce this.
	snapshot := testutil.RequireReceive(t, sink.progress, timeout, "byte-triggered snapshot")
	if snapshot.BytesProcessed != 10 || snapshot.FilesCompleted != 0 {
		t.Errorf("byte-triggered snapshot = %+v", snapshot)
	}
	close(reader.resume)

	final := testutil.RequireReceive(t, sink.progress, timeout, "final snapshot")
	testutil.RequireClosed(t, done, timeout, "Run returning")
	if final.BytesProcessed != 15 || final.FilesCompleted != 1 {
		t.Errorf("final snapshot = %+v", final)
	}
}

func TestCadenceInterval(t *testing.T) {
	fake := clock.Fake(time.Unix(0, 0))
	reader := newPausingReader("abc", "def")
	sink := &recordingSink{progress: make(chan schema.ProgressSnapshot, 16)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := New(Config{
			Workers: 1,
			Cadence: Cadence{Interval: time.Second},
			Clock:   fake,
			Open:    func(string) (io.ReadCloser, error) { return reader, nil },
		}).Run(context.Background(), Job{
			Algorithms: mustSet(t, digest.MD5),
			Source:     sliceSource(schema.FileTask{Path: "/f", Size: 6}),
			Sink:       sink,
		})
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	testutil.RequireClosed(t, reader.paused, timeout, "first chunk processed")
	fake.WaitForTimers(1)
	fake.Advance(time.Second)
	snapshot := testutil.RequireReceive(t, sink.progress, timeout, "interval snapshot")
	if snapshot.BytesProcessed != 3 || snapshot.FilesDiscovered != 1 {
		t.Errorf("interval snapshot = %+v", snapshot)
	}
	close(reader.resume)

	final := testutil.RequireReceive(t, sink.progress, timeout, "final snapshot")
	testutil.RequireClosed(t, done, timeout, "Run returning")
	if final.BytesProcessed != 6 || !final.Balanced() {
		t.Errorf("final snapshot = %+v", final)
	}
}

// steppedReader hands out one chunk per Read from chunks and reports
// io.EOF once chunks is closed. Each Read signals waiting before it
// blocks, which also means the previous chunk has been counted.
type steppedReader struct {
	chunks  chan string
	waiting chan struct{}
}

func (r *steppedReader) Read(buffer []byte) (int, error) {
	r.waiting <- struct{}{}
	chunk, ok := <-r.chunks
	if !ok {
		return 0, io.EOF
	}
	return copy(buffer, chunk), nil
}

func (r *steppedReader) Close() error { return nil }

func TestCadenceIntervalRestartsAfterEachReport(t *testing.T) {
	fake := clock.Fake(time.Unix(0, 0))
	reader := &steppedReader{chunks: make(chan string), waiting: make(chan struct{}, 8)}
	sink := &recordingSink{progress: make(chan schema.ProgressSnapshot, 16)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := New(Config{
			Workers: 1,
			Cadence: Cadence{Bytes: 10, Interval: time.Second},
			Clock:   fake,
			Open:    func(string) (io.ReadCloser, error) { return reader, nil },
		}).Run(context.Background(), Job{
			Algorithms: mustSet(t, digest.MD5),
			Source:     sliceSource(schema.FileTask{Path: "/f", Size: 15}),
			Sink:       sink,
		})
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	testutil.RequireReceive(t, reader.waiting, timeout, "first read")
	fake.WaitForTimers(1)
	fake.Advance(600 * time.Millisecond)

	// A byte-triggered snapshot at 600ms restarts the interval.
	reader.chunks <- strings.Repeat("a", 10)
	byBytes := testutil.RequireReceive(t, sink.progress, timeout, "byte-triggered snapshot")
	if byBytes.BytesProcessed != 10 {
		t.Errorf("byte-triggered snapshot = %+v", byBytes)
	}
	testutil.RequireReceive(t, reader.waiting, timeout, "second read")
	reader.chunks <- "bbb"
	testutil.RequireReceive(t, reader.waiting, timeout, "third read")

	// One second after start, but only 400ms after the last snapshot.
	fake.Advance(400 * time.Millisecond)
	reader.chunks <- "cc"
	testutil.RequireReceive(t, reader.waiting, timeout, "fourth read")

	fake.Advance(600 * time.Millisecond)
	byInterval := testutil.RequireReceive(t, sink.progress, timeout, "interval snapshot")
	if byInterval.BytesProcessed != 15 {
		t.Errorf("first interval snapshot = %+v, want all 15 bytes (none one second after start)", byInterval)
	}

	close(reader.chunks)
	final := testutil.RequireReceive(t, sink.progress, timeout, "final snapshot")
	testutil.RequireClosed(t, done, timeout, "Run returning")
	if final.BytesProcessed != 15 || !final.Balanced() {
		t.Errorf("final snapshot = %+v", final)
	}
}

func TestReporterSkipsUnchangedSnapshots(t *testing.T) {
	progress := &Progress{}
	sink := &recordingSink{}
	r := &reporter{progress: progress, sink: sink}

	r.report(false)
	r.report(false)
	progress.discover(10)
	r.report(false)
	r.report(true)

	if len(sink.snapshots) != 3 {
		t.Fatalf("got %d snapshots, want 3 (initial, changed, final)", len(sink.snapshots))
	}
	if sink.snapshots[2] != sink.snapshots[1] {
		t.Errorf("final snapshot %+v differs from last change %+v", sink.snapshots[2], sink.snapshots[1])
	}
}

func TestProgressSnapshotsAreMonotonic(t *testing.T) {
	files := make(map[string]string)
	var tasks []schema.FileTask
	for i := range 100 {
		path := fmt.Sprintf("/mem/%d", i)
		files[path] = strings.Repeat("z", 1000)
		tasks = append(tasks, schema.FileTask{Path: path, Size: 1000})
	}
	sink := &recordingSink{}
	_, err := New(Config{Workers: 4, ChunkSize: 100, Cadence: Cadence{Bytes: 500}, Open: memoryOpener(files)}).Run(
		context.Background(),
		Job{Algorithms: mustSet(t, digest.BLAKE3), Source: sliceSource(tasks...), Sink: sink},
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var previous schema.ProgressSnapshot
	for i, snapshot := range sink.snapshots {
		if snapshot.FilesDiscovered < previous.FilesDiscovered ||
			snapshot.FilesCompleted < previous.FilesCompleted ||
			snapshot.BytesProcessed < previous.BytesProcessed ||
			snapshot.BytesTotal < previous.BytesTotal {
			t.Fatalf("snapshot %d %+v regressed from %+v", i, snapshot, previous)
		}
		if snapshot.FilesCompleted+snapshot.FilesFailed > snapshot.FilesDiscovered {
			t.Fatalf("snapshot %d %+v finished more than discovered", i, snapshot)
		}
		previous = snapshot
	}
	if previous.BytesProcessed != 100*1000 || !previous.Balanced() {
		t.Errorf("last snapshot = %+v", previous)
	}
}
