// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/bureau-foundation/hasher/lib/codec"
	"github.com/bureau-foundation/hasher/lib/event"
	"github.com/bureau-foundation/hasher/lib/netutil"
	"github.com/bureau-foundation/hasher/lib/schema"
)

// defaultSubscriberBuffer is the per-stream event buffer used when
// HasherService.subscriberBuffer is zero.
const defaultSubscriberBuffer = 1024

// defaultFrameWriteTimeout bounds a single frame write when
// HasherService.frameWriteTimeout is zero.
const defaultFrameWriteTimeout = 30 * time.Second

// subscribeRequest is the body of a subscribe request. An empty RunID
// streams every run until the connection closes.
//
// By default a stream is lossless: the engine waits for the client,
// and a client that does not accept a frame within the write timeout
// is disconnected. Lossy trades completeness for never slowing the
// engine: when the stream's buffer fills, events are dropped and the
// client receives a "resync" frame. A run-scoped stream must see its
// terminal event, so Lossy cannot be combined with RunID.
type subscribeRequest struct {
	RunID string `cbor:"run_id"`
	Lossy bool   `cbor:"lossy"`
}

// errLossyRunScoped rejects a lossy subscription to a single run.
var errLossyRunScoped = errors.New("a run-scoped subscription cannot be lossy")

// frameWriter encodes frames onto a stream connection, bounding each
// write with a deadline.
type frameWriter struct {
	conn    net.Conn
	encoder *codec.Encoder
	timeout time.Duration
}

func (w *frameWriter) write(ev schema.Event) error {
	w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	return w.encoder.Encode(ev)
}

// handleSubscribe is the stream handler for the "subscribe" action.
// Frames are schema.Event values. The loop runs until the server
// shuts down, the engine closes, a write fails or times out, or (for
// a run-scoped stream) the run reaches its terminal state.
func (hs *HasherService) handleSubscribe(ctx context.Context, raw []byte, conn net.Conn) {
	frames := &frameWriter{
		conn:    conn,
		encoder: codec.NewEncoder(conn),
		timeout: hs.frameWriteTimeout,
	}
	if frames.timeout <= 0 {
		frames.timeout = defaultFrameWriteTimeout
	}

	var request subscribeRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		frames.write(schema.Event{Type: schema.EventError, Message: "invalid request: " + err.Error()})
		return
	}
	if request.Lossy && request.RunID != "" {
		frames.write(schema.Event{Type: schema.EventError, Message: errLossyRunScoped.Error()})
		return
	}

	buffer := hs.subscriberBuffer
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	subscription := hs.engine.Subscribe(event.SubscribeOptions{
		Buffer: buffer,
		Lossy:  request.Lossy,
	})
	defer subscription.Close()

	hs.logger.Info("subscribe stream started", "run_id", request.RunID, "lossy", request.Lossy)
	defer hs.logger.Info("subscribe stream ended", "run_id", request.RunID)

	// The first frame tells the client the subscription exists, so it
	// can issue select_files without missing the run's first event.
	if err := frames.write(schema.Event{Type: schema.EventHeartbeat}); err != nil {
		hs.logStreamError(request.RunID, err)
		return
	}

	heartbeat := hs.clock.NewTicker(hs.heartbeatInterval)
	defer heartbeat.Stop()

	// Dropped is always zero on a lossless subscription.
	var reportedDrops uint64
	checkDrops := func() error {
		dropped := subscription.Dropped()
		if dropped == reportedDrops {
			return nil
		}
		missed := dropped - reportedDrops
		reportedDrops = dropped
		hs.logger.Warn("subscriber fell behind", "run_id", request.RunID, "missed", missed)
		return frames.write(schema.Event{
			Type:    schema.EventResync,
			Message: strconv.FormatUint(missed, 10),
		})
	}

	for {
		select {
		case <-ctx.Done():
			frames.write(schema.Event{Type: schema.EventError, Message: "service shutting down"})
			return

		case ev, ok := <-subscription.C:
			if !ok {
				frames.write(schema.Event{Type: schema.EventError, Message: "event stream closed"})
				return
			}
			if err := checkDrops(); err != nil {
				hs.logStreamError(request.RunID, err)
				return
			}
			if request.RunID != "" && ev.RunID != request.RunID {
				continue
			}
			if err := frames.write(ev); err != nil {
				hs.logStreamError(request.RunID, err)
				return
			}
			if request.RunID != "" && ev.Terminal() {
				return
			}

		case <-heartbeat.C:
			if err := checkDrops(); err != nil {
				hs.logStreamError(request.RunID, err)
				return
			}
			if err := frames.write(schema.Event{Type: schema.EventHeartbeat}); err != nil {
				hs.logStreamError(request.RunID, err)
				return
			}
		}
	}
}

// logStreamError logs a failed frame write. A subscriber hanging up is
// routine; a subscriber too slow to accept a frame is disconnected
// with a warning, as is any other failure.
func (hs *HasherService) logStreamError(runID string, err error) {
	if netutil.IsPeerGone(err) {
		hs.logger.Debug("subscriber disconnected", "run_id", runID, "error", err)
		return
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		hs.logger.Warn("disconnecting stalled subscriber", "run_id", runID, "error", err)
		return
	}
	hs.logger.Warn("subscribe stream write failed", "run_id", runID, "error", err)
}
