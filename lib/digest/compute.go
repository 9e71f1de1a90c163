// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

// DefaultChunkSize is the read buffer size used when ComputeOptions
// does not set one. Large enough to amortize per-chunk fan-out to
// several accumulators, small enough that a pool of workers stays
// within a few megabytes.
const DefaultChunkSize = 256 * 1024

// Digests maps each computed algorithm to its lowercase hex digest.
type Digests map[Algorithm]string

// ComputeOptions tunes a Compute call. The zero value reads in
// DefaultChunkSize chunks and feeds accumulators sequentially.
type ComputeOptions struct {
	// ChunkSize is the size of each read. Zero means DefaultChunkSize.
	// Ignored when Buffer is set.
	ChunkSize int

	// Buffer, if non-nil, is used as the read buffer so callers can
	// reuse one allocation across files.
	Buffer []byte

	// Concurrent runs each accumulator on its own goroutine. Every
	// accumulator still finishes a chunk before the next read, so the
	// single buffer is never overwritten while in use. Has no effect
	// for single-algorithm sets.
	Concurrent bool

	// OnChunk, if set, is called after each chunk has been ingested by
	// every accumulator, with the chunk's length.
	OnChunk func(n int)
}

// Compute reads r to EOF once and returns a digest for every algorithm
// in set. A read error aborts the computation; no partial digests are
// returned.
func Compute(r io.Reader, set Set, options ComputeOptions) (Digests, error) {
	accumulators, err := newAccumulators(set)
	if err != nil {
		return nil, err
	}

	buffer := options.Buffer
	if len(buffer) == 0 {
		size := options.ChunkSize
		if size <= 0 {
			size = DefaultChunkSize
		}
		buffer = make([]byte, size)
	}

	ingest := sequentialIngest(accumulators)
	if options.Concurrent && len(accumulators) > 1 {
		fanout := startFanout(accumulators)
		defer fanout.stop()
		ingest = fanout.ingest
	}

	for {
		n, readErr := r.Read(buffer)
		if n > 0 {
			ingest(buffer[:n])
			if options.OnChunk != nil {
				options.OnChunk(n)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading input: %w", readErr)
		}
	}

	digests := make(Digests, len(accumulators))
	for _, accumulator := range accumulators {
		digests[accumulator.Algorithm()] = accumulator.Finalize()
	}
	return digests, nil
}

// Bytes digests an in-memory byte slice.
func Bytes(data []byte, set Set) (Digests, error) {
	return Compute(bytes.NewReader(data), set, ComputeOptions{})
}

func sequentialIngest(accumulators []Accumulator) func([]byte) {
	return func(chunk []byte) {
		for _, accumulator := range accumulators {
			accumulator.Write(chunk)
		}
	}
}

// fanout runs one goroutine per accumulator. ingest hands the same
// chunk to every lane and returns once all lanes have consumed it.
type fanout struct {
	lanes   []chan []byte
	chunk   sync.WaitGroup
	workers sync.WaitGroup
}

func startFanout(accumulators []Accumulator) *fanout {
	f := &fanout{lanes: make([]chan []byte, len(accumulators))}
	for i, accumulator := range accumulators {
		lane := make(chan []byte)
		f.lanes[i] = lane
		f.workers.Add(1)
		go func() {
			defer f.workers.Done()
			for chunk := range lane {
				accumulator.Write(chunk)
				f.chunk.Done()
			}
		}()
	}
	return f
}

func (f *fanout) ingest(chunk []byte) {
	f.chunk.Add(len(f.lanes))
	for _, lane := range f.lanes {
		lane <- chunk
	}
	f.chunk.Wait()
}

func (f *fanout) stop() {
	for _, lane := range f.lanes {
		close(lane)
	}
	f.workers.Wait()
}
