// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/hasher/lib/clock"
	"github.com/bureau-foundation/hasher/lib/engine"
	"github.com/bureau-foundation/hasher/lib/netutil"
	"github.com/bureau-foundation/hasher/lib/scheduler"
	"github.com/bureau-foundation/hasher/lib/schema"
	"github.com/bureau-foundation/hasher/lib/service"
	"github.com/bureau-foundation/hasher/lib/testutil"
)

const (
	timeout           = 10 * time.Second
	heartbeatInterval = 30 * time.Second
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testService struct {
	client *service.ServiceClient
	clock  *clock.FakeClock
	engine *engine.Engine
}

// startService runs a HasherService on a fresh socket. The heartbeat
// clock is fake; the engine runs on real time. Each option may adjust
// the service before it starts serving.
func startService(t *testing.T, config engine.Config, options ...func(*HasherService)) *testService {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	config.Logger = logger

	hashEngine, err := engine.New(config)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(hashEngine.Close)

	fakeClock := clock.Fake(testEpoch)
	hasherService := &HasherService{
		engine:            hashEngine,
		clock:             fakeClock,
		startedAt:         testEpoch,
		heartbeatInterval: heartbeatInterval,
		defaultAlgorithms: []string{"sha256"},
		logger:            logger,
	}
	for _, option := range options {
		option(hasherService)
	}

	socketPath := filepath.Join(testutil.SocketDir(t), "hasher.sock")
	server := service.NewSocketServer(socketPath, logger)
	hasherService.registerActions(server)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	for {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		if t.Context().Err() != nil {
			t.Fatalf("socket %s did not appear", socketPath)
		}
		runtime.Gosched()
	}

	return &testService{
		client: service.NewServiceClient(socketPath),
		clock:  fakeClock,
		engine: hashEngine,
	}
}

// subscribe opens a subscribe stream and consumes the registration
// heartbeat.
func (ts *testService) subscribe(t *testing.T, runID engine.RunID) *service.Stream {
	t.Helper()
	fields := map[string]any{}
	if runID != "" {
		fields["run_id"] = string(runID)
	}
	stream, err := ts.client.Stream(t.Context(), "subscribe", fields)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	t.Cleanup(func() { stream.Close() })

	first := nextEvent(t, stream)
	if first.Type != schema.EventHeartbeat {
		t.Fatalf("first frame type = %q, want heartbeat", first.Type)
	}
	return stream
}

// nextEvent reads one frame with a deadline.
func nextEvent(t *testing.T, stream *service.Stream) schema.Event {
	t.Helper()
	type result struct {
		event schema.Event
		err   error
	}
	results := make(chan result, 1)
	go func() {
		var ev schema.Event
		err := stream.Next(&ev)
		results <- result{ev, err}
	}()
	received := testutil.RequireReceive(t, results, timeout, "waiting for subscribe frame")
	if received.err != nil {
		t.Fatalf("reading frame: %v", received.err)
	}
	return received.event
}

// readRun reads frames until the terminal run-state of runID.
func readRun(t *testing.T, stream *service.Stream, runID engine.RunID) []schema.Event {
	t.Helper()
	var events []schema.Event
	for {
		ev := nextEvent(t, stream)
		if ev.RunID != string(runID) {
			continue
		}
		events = append(events, ev)
		if ev.Terminal() {
			return events
		}
	}
}

func (ts *testService) selectFiles(t *testing.T, paths []string, algorithms []string) engine.RunID {
	t.Helper()
	var response selectFilesResponse
	err := ts.client.Call(t.Context(), "select_files", map[string]any{
		"paths":      paths,
		"algorithms": algorithms,
	}, &response)
	if err != nil {
		t.Fatalf("select_files: %v", err)
	}
	if response.RunID == "" {
		t.Fatal("select_files returned empty run_id")
	}
	return response.RunID
}

func TestSelectFilesStreamsRunOverSocket(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a.txt": "test"})
	ts := startService(t, engine.Config{})
	stream := ts.subscribe(t, "")

	runID := ts.selectFiles(t, []string{filepath.Join(root, "a.txt")}, []string{"md5", "sha256"})
	events := readRun(t, stream, runID)

	var states []schema.RunState
	var record *schema.Record
	var discovered bool
	for _, ev := range events {
		switch ev.Type {
		case schema.EventRunState:
			states = append(states, ev.State)
		case schema.EventFileDiscovered:
			discovered = true
		case schema.EventFileUpdated:
			if !discovered {
				t.Error("file-updated arrived before file-discovered")
			}
			record = ev.Record
		}
	}

	want := []schema.RunState{schema.RunIdle, schema.RunDiscovering, schema.RunHashing, schema.RunCompleted}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}

	if record == nil {
		t.Fatal("no file-updated event")
	}
	if record.MD5 != "098f6bcd4621d373cade4e832627b4f6" {
		t.Errorf("md5 = %s", record.MD5)
	}
	if record.SHA256 != "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08" {
		t.Errorf("sha256 = %s", record.SHA256)
	}
	if record.SHA1 != "" || record.BLAKE3 != "" {
		t.Errorf("unrequested digests present: %+v", record)
	}

	final := events[len(events)-1]
	if final.Progress == nil || final.Progress.FilesCompleted != 1 || !final.Progress.Balanced() {
		t.Errorf("terminal progress = %+v", final.Progress)
	}
}

func TestSelectFilesRejections(t *testing.T) {
	root := t.TempDir()
	ts := startService(t, engine.Config{})

	cases := []struct {
		name       string
		paths      []string
		algorithms []string
		wantError  string
	}{
		{"no algorithms", []string{root}, nil, "no algorithms selected"},
		{"unknown algorithm", []string{root}, []string{"sha256", "crc32"}, "crc32"},
		{"relative path", []string{"relative/dir"}, []string{"md5"}, "not absolute"},
		{"no paths", nil, []string{"md5"}, "no paths selected"},
		{"missing path", []string{filepath.Join(root, "missing")}, []string{"md5"}, "none of the selected paths exist"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ts.client.Call(t.Context(), "select_files", map[string]any{
				"paths":      tc.paths,
				"algorithms": tc.algorithms,
			}, nil)
			var serviceErr *service.ServiceError
			if !errors.As(err, &serviceErr) {
				t.Fatalf("expected *ServiceError, got %v", err)
			}
			if !strings.Contains(serviceErr.Message, tc.wantError) {
				t.Errorf("error = %q, want it to contain %q", serviceErr.Message, tc.wantError)
			}
		})
	}

	status := ts.engine.Status()
	if status.Active != nil || len(status.Pending) != 0 {
		t.Errorf("rejected requests left runs behind: %+v", status)
	}
}

func TestCancelWithoutActiveRun(t *testing.T) {
	ts := startService(t, engine.Config{})
	err := ts.client.Call(t.Context(), "cancel", nil, nil)
	var serviceErr *service.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
	if serviceErr.Message != engine.ErrNoActiveRun.Error() {
		t.Errorf("error = %q", serviceErr.Message)
	}
}

// gate holds every file open until released.
type gate struct {
	entered chan string
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan string, 256), release: make(chan struct{})}
}

func (g *gate) open(path string) (io.ReadCloser, error) {
	g.entered <- path
	<-g.release
	return scheduler.OpenSequential(path)
}

func TestStatusAndCancelActiveRun(t *testing.T) {
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"a": "1", "b": "2", "c": "3"})
	g := newGate()
	ts := startService(t, engine.Config{Scheduler: scheduler.Config{Workers: 1, QueueDepth: 1, Open: g.open}})

	runID := ts.selectFiles(t, []string{root}, []string{"sha1"})
	testutil.RequireReceive(t, g.entered, timeout, "first file opened")

	// Subscribing after select_files still sees the rest of the run
	// when scoped to it.
	stream := ts.subscribe(t, runID)

	var status statusResponse
	if err := ts.client.Call(t.Context(), "status", nil, &status); err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Engine.Active == nil || status.Engine.Active.RunID != runID {
		t.Fatalf("active run = %+v, want %s", status.Engine.Active, runID)
	}
	if status.Engine.BusyPolicy != engine.PolicyQueue {
		t.Errorf("busy policy = %q", status.Engine.BusyPolicy)
	}
	if status.Version == "" {
		t.Error("status has no version")
	}

	if err := ts.client.Call(t.Context(), "cancel", map[string]any{"run_id": string(runID)}, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	close(g.release)

	var terminal schema.Event
	for {
		ev := nextEvent(t, stream)
		if ev.RunID != string(runID) {
			t.Fatalf("run-scoped stream delivered event for %q", ev.RunID)
		}
		if ev.Terminal() {
			terminal = ev
			break
		}
	}
	if terminal.State != schema.RunCompleted || !terminal.Cancelled {
		t.Errorf("terminal = state %s cancelled %v, want cancelled completion", terminal.State, terminal.Cancelled)
	}
	if terminal.Progress == nil || !terminal.Progress.Balanced() {
		t.Errorf("cancelled run counters do not balance: %+v", terminal.Progress)
	}

	// A run-scoped stream ends after the terminal event.
	var extra schema.Event
	if err := stream.Next(&extra); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after terminal event, got %v (%+v)", err, extra)
	}
}

func TestAlgorithms(t *testing.T) {
	ts := startService(t, engine.Config{})
	var response algorithmsResponse
	if err := ts.client.Call(t.Context(), "algorithms", nil, &response); err != nil {
		t.Fatalf("algorithms: %v", err)
	}
	if len(response.Algorithms) != 7 {
		t.Fatalf("got %d algorithms, want 7", len(response.Algorithms))
	}
	byName := make(map[string]algorithmInfo)
	for _, info := range response.Algorithms {
		byName[info.Name] = info
	}
	if info := byName["sha3-256"]; info.Key != "sha3_256" || info.HexLen != 64 {
		t.Errorf("sha3-256 = %+v", info)
	}
	if info := byName["md5"]; info.HexLen != 32 {
		t.Errorf("md5 = %+v", info)
	}
	if len(response.Defaults) != 1 || response.Defaults[0] != "sha256" {
		t.Errorf("defaults = %v", response.Defaults)
	}
}

func TestSubscribeHeartbeat(t *testing.T) {
	ts := startService(t, engine.Config{})
	stream := ts.subscribe(t, "")

	ts.clock.WaitForTimers(1)
	ts.clock.Advance(heartbeatInterval)

	ev := nextEvent(t, stream)
	if ev.Type != schema.EventHeartbeat {
		t.Errorf("frame type = %q, want heartbeat", ev.Type)
	}
	if ev.RunID != "" {
		t.Errorf("heartbeat carries run_id %q", ev.RunID)
	}
}

// writeOneByteFiles creates count one-byte files under a fresh
// directory and returns it.
func writeOneByteFiles(t *testing.T, count int) string {
	t.Helper()
	root := t.TempDir()
	files := make(map[string]string, count)
	for i := range count {
		files[fmt.Sprintf("f%05d", i)] = "x"
	}
	testutil.WriteTree(t, root, files)
	return root
}

// waitForBackpressure returns once the engine has no runs left, or
// its active run has stopped advancing because event delivery is
// blocked.
func waitForBackpressure(t *testing.T, hashEngine *engine.Engine) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var last schema.ProgressSnapshot
	steady := 0
	for steady < 50 {
		if time.Now().After(deadline) {
			t.Fatal("engine neither finished nor stalled")
		}
		status := hashEngine.Status()
		if status.Active == nil {
			if len(status.Pending) == 0 {
				return
			}
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if status.Active.Progress == last {
			steady++
		} else {
			last = status.Active.Progress
			steady = 0
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscribeSlowReaderMissesNothing(t *testing.T) {
	const fileCount = 3000
	root := writeOneByteFiles(t, fileCount)
	ts := startService(t, engine.Config{}, func(hs *HasherService) {
		hs.subscriberBuffer = 8
	})
	stream := ts.subscribe(t, "")

	runID := ts.selectFiles(t, []string{root}, []string{"md5"})

	// Leave the stream unread while the run produces far more events
	// than any buffer between the engine and this client holds.
	waitForBackpressure(t, ts.engine)

	counts := make(map[schema.EventType]int)
	var terminal schema.Event
	for terminal.Type == "" {
		ev := nextEvent(t, stream)
		counts[ev.Type]++
		if ev.RunID == string(runID) && ev.Terminal() {
			terminal = ev
		}
	}

	if counts[schema.EventResync] != 0 {
		t.Errorf("got %d resync frames on a lossless stream", counts[schema.EventResync])
	}
	if counts[schema.EventFileDiscovered] != fileCount {
		t.Errorf("file-discovered frames = %d, want %d", counts[schema.EventFileDiscovered], fileCount)
	}
	if counts[schema.EventFileUpdated] != fileCount {
		t.Errorf("file-updated frames = %d, want %d", counts[schema.EventFileUpdated], fileCount)
	}
	if terminal.State != schema.RunCompleted || terminal.Cancelled {
		t.Errorf("terminal = state %s cancelled %v, want completion", terminal.State, terminal.Cancelled)
	}
	if terminal.Progress == nil || terminal.Progress.FilesCompleted != fileCount || !terminal.Progress.Balanced() {
		t.Errorf("terminal progress = %+v", terminal.Progress)
	}
}

// drain reads frames until the stream fails, returning the frames and
// the error that ended it.
func drain(t *testing.T, stream *service.Stream) ([]schema.Event, error) {
	t.Helper()
	type result struct {
		event schema.Event
		err   error
	}
	var events []schema.Event
	for {
		results := make(chan result, 1)
		go func() {
			var ev schema.Event
			err := stream.Next(&ev)
			results <- result{ev, err}
		}()
		received := testutil.RequireReceive(t, results, timeout, "waiting for stream to end")
		if received.err != nil {
			return events, received.err
		}
		events = append(events, received.event)
	}
}

func TestStalledSubscriberIsDisconnected(t *testing.T) {
	const fileCount = 3000
	root := writeOneByteFiles(t, fileCount)
	ts := startService(t, engine.Config{}, func(hs *HasherService) {
		hs.subscriberBuffer = 8
		hs.frameWriteTimeout = 250 * time.Millisecond
	})
	stalled := ts.subscribe(t, "")
	watcher := ts.subscribe(t, "")

	runID := ts.selectFiles(t, []string{root}, []string{"md5"})

	// The run can only finish once the stalled stream is dropped.
	events := readRun(t, watcher, runID)
	terminal := events[len(events)-1]
	if terminal.Progress == nil || terminal.Progress.FilesCompleted != fileCount {
		t.Errorf("terminal progress = %+v", terminal.Progress)
	}

	frames, err := drain(t, stalled)
	if !netutil.IsPeerGone(err) {
		t.Errorf("stalled stream ended with %v, want the connection closed", err)
	}
	for _, ev := range frames {
		if ev.RunID == string(runID) && ev.Terminal() {
			t.Error("stalled stream received the terminal event before being disconnected")
		}
	}
}

func TestSubscribeRejectsLossyRunScope(t *testing.T) {
	ts := startService(t, engine.Config{})
	stream, err := ts.client.Stream(t.Context(), "subscribe", map[string]any{
		"run_id": "run-1",
		"lossy":  true,
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	ev := nextEvent(t, stream)
	if ev.Type != schema.EventError || ev.Message != errLossyRunScoped.Error() {
		t.Errorf("first frame = %+v, want the lossy run-scope error", ev)
	}
}
