// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"io"
	"os"

	"golang.org/x/time/rate"
)

// Opener opens a file for hashing. The scheduler closes the returned
// handle on every path, including timeouts.
type Opener func(path string) (io.ReadCloser, error)

// OpenSequential opens path read-only and advises the kernel that it
// will be read once from start to end.
func OpenSequential(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	adviseSequential(file)
	return file, nil
}

// throttledReader charges every read against a shared byte-rate
// limiter. The wait ignores cancellation so an in-flight file is never
// cut short by it.
type throttledReader struct {
	reader  io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if len(p) > t.limiter.Burst() {
		p = p[:t.limiter.Burst()]
	}
	n, err := t.reader.Read(p)
	if n > 0 {
		if waitErr := t.limiter.WaitN(t.ctx, n); waitErr != nil && err == nil {
			err = waitErr
		}
	}
	return n, err
}
