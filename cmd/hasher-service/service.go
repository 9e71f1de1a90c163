// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/hasher/lib/clock"
	"github.com/bureau-foundation/hasher/lib/codec"
	"github.com/bureau-foundation/hasher/lib/digest"
	"github.com/bureau-foundation/hasher/lib/engine"
	"github.com/bureau-foundation/hasher/lib/service"
	"github.com/bureau-foundation/hasher/lib/version"
)

// HasherService adapts an engine to the socket protocol.
type HasherService struct {
	engine            *engine.Engine
	clock             clock.Clock
	startedAt         time.Time
	heartbeatInterval time.Duration
	frameWriteTimeout time.Duration
	subscriberBuffer  int
	defaultAlgorithms []string
	logger            *slog.Logger
}

// registerActions registers all socket API actions on the server.
func (hs *HasherService) registerActions(server *service.SocketServer) {
	server.Handle("select_files", hs.handleSelectFiles)
	server.Handle("cancel", hs.handleCancel)
	server.Handle("status", hs.handleStatus)
	server.Handle("algorithms", hs.handleAlgorithms)
	server.HandleStream("subscribe", hs.handleSubscribe)
}

// selectFilesRequest is the body of a select_files request.
type selectFilesRequest struct {
	Paths      []string `cbor:"paths"`
	Algorithms []string `cbor:"algorithms"`
}

// selectFilesResponse is the reply to an accepted select_files.
type selectFilesResponse struct {
	RunID engine.RunID `cbor:"run_id"`
}

func (hs *HasherService) handleSelectFiles(ctx context.Context, raw []byte) (any, error) {
	var request selectFilesRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if len(request.Algorithms) == 0 {
		return nil, engine.ErrNoAlgorithms
	}
	set, err := digest.ParseSet(request.Algorithms)
	if err != nil {
		return nil, err
	}
	for _, path := range request.Paths {
		if !filepath.IsAbs(path) {
			return nil, fmt.Errorf("path %q is not absolute", path)
		}
	}

	runID, err := hs.engine.SelectFiles(ctx, engine.RunRequest{
		Roots:      request.Paths,
		Algorithms: set,
	})
	if err != nil {
		return nil, err
	}
	return selectFilesResponse{RunID: runID}, nil
}

// cancelRequest is the body of a cancel request. An empty RunID
// cancels the active run.
type cancelRequest struct {
	RunID engine.RunID `cbor:"run_id"`
}

func (hs *HasherService) handleCancel(ctx context.Context, raw []byte) (any, error) {
	var request cancelRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return nil, hs.engine.Cancel(request.RunID)
}

// statusResponse is the reply to the status action.
type statusResponse struct {
	UptimeSeconds float64       `cbor:"uptime_seconds"`
	Version       string        `cbor:"version"`
	Engine        engine.Status `cbor:"engine"`
}

func (hs *HasherService) handleStatus(ctx context.Context, raw []byte) (any, error) {
	return statusResponse{
		UptimeSeconds: hs.clock.Now().Sub(hs.startedAt).Seconds(),
		Version:       version.Info(),
		Engine:        hs.engine.Status(),
	}, nil
}

// algorithmInfo describes one supported algorithm.
type algorithmInfo struct {
	Name   string `cbor:"name"`
	Key    string `cbor:"key"`
	HexLen int    `cbor:"hex_len"`
}

// algorithmsResponse is the reply to the algorithms action.
type algorithmsResponse struct {
	Algorithms []algorithmInfo `cbor:"algorithms"`
	Defaults   []string        `cbor:"defaults"`
}

func (hs *HasherService) handleAlgorithms(ctx context.Context, raw []byte) (any, error) {
	algorithms := digest.Algorithms()
	response := algorithmsResponse{
		Algorithms: make([]algorithmInfo, len(algorithms)),
		Defaults:   hs.defaultAlgorithms,
	}
	for i, algorithm := range algorithms {
		response.Algorithms[i] = algorithmInfo{
			Name:   algorithm.String(),
			Key:    algorithm.Key(),
			HexLen: algorithm.HexLen(),
		}
	}
	return response, nil
}
