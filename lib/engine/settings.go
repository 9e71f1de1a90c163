// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"log/slog"

	"github.com/bureau-foundation/hasher/lib/config"
	"github.com/bureau-foundation/hasher/lib/scheduler"
)

// ConfigFrom maps a loaded configuration onto engine settings. The
// caller supplies the logger; the clock stays real.
func ConfigFrom(cfg *config.Config, logger *slog.Logger) Config {
	return Config{
		Scheduler: scheduler.Config{
			Workers:          cfg.Engine.Workers,
			QueueDepth:       cfg.Engine.QueueDepth,
			ChunkSize:        int(cfg.Engine.ChunkSize),
			ConcurrentDigest: cfg.Engine.ConcurrentDigest,
			FileTimeout:      cfg.Engine.FileTimeout,
			ReadRateLimit:    int64(cfg.Engine.ReadRateLimit),
			Cadence: scheduler.Cadence{
				Bytes:    int64(cfg.Progress.ByteInterval),
				Interval: cfg.Progress.TimeInterval,
			},
		},
		FollowSymlinks: cfg.Walk.FollowSymlinks,
		Exclude:        cfg.Walk.Exclude,
		BusyPolicy:     BusyPolicy(cfg.Engine.BusyPolicy),
		Logger:         logger,
	}
}
