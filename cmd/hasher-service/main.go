// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hasher/lib/clock"
	"github.com/bureau-foundation/hasher/lib/config"
	"github.com/bureau-foundation/hasher/lib/engine"
	"github.com/bureau-foundation/hasher/lib/process"
	"github.com/bureau-foundation/hasher/lib/service"
	"github.com/bureau-foundation/hasher/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		socketPath  string
		showVersion bool
	)

	flags := pflag.NewFlagSet("hasher-service", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "configuration file (default: $HASHER_CONFIG, else built-in defaults)")
	flags.StringVar(&socketPath, "socket", "", "socket path (overrides service.socket_path)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		fmt.Printf("hasher-service %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if socketPath != "" {
		cfg.Service.SocketPath = socketPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := service.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := service.NewLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hashEngine, err := engine.New(engine.ConfigFrom(cfg, logger))
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer hashEngine.Close()

	clk := clock.Real()
	hasherService := &HasherService{
		engine:            hashEngine,
		clock:             clk,
		startedAt:         clk.Now(),
		heartbeatInterval: cfg.Service.HeartbeatInterval,
		frameWriteTimeout: cfg.Service.StreamWriteTimeout,
		defaultAlgorithms: cfg.Engine.DefaultAlgorithms,
		logger:            logger,
	}

	socketServer := service.NewSocketServer(cfg.Service.SocketPath, logger)
	hasherService.registerActions(socketServer)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	logger.Info("hasher service running",
		"socket", cfg.Service.SocketPath,
		"version", version.Info(),
		"busy_policy", hashEngine.Status().BusyPolicy,
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-socketDone:
		// Serve only returns early if it could not listen.
		if err != nil {
			return fmt.Errorf("socket server: %w", err)
		}
		return nil
	}

	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
