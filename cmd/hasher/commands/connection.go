// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/bureau-foundation/hasher/cmd/hasher/cli"
	"github.com/bureau-foundation/hasher/lib/config"
	"github.com/bureau-foundation/hasher/lib/digest"
	"github.com/bureau-foundation/hasher/lib/service"
)

// configParams selects the configuration file.
type configParams struct {
	ConfigPath string `flag:"config" desc:"configuration file (default: $HASHER_CONFIG, else built-in defaults)"`
	Verbose    bool   `flag:"verbose,v" desc:"log engine activity at the configured log level"`
}

// load returns the validated configuration.
func (p *configParams) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if p.ConfigPath != "" {
		cfg, err = config.LoadFile(p.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// logger returns the command logger. Without --verbose only errors
// are logged; everything else is already visible in the output.
func (p *configParams) logger(cfg *config.Config) *slog.Logger {
	level := slog.LevelError
	if p.Verbose {
		if parsed, err := service.ParseLevel(cfg.Log.Level); err == nil {
			level = parsed
		}
	}
	return cli.NewCommandLogger(level)
}

// connectionParams adds the service socket to configParams.
type connectionParams struct {
	configParams
	Socket string `flag:"socket" desc:"hasher-service socket (default: service.socket_path from the configuration)"`
}

// connect loads the configuration and returns a client for the
// service socket.
func (p *connectionParams) connect() (*service.ServiceClient, *config.Config, error) {
	cfg, err := p.load()
	if err != nil {
		return nil, nil, err
	}
	socketPath := p.Socket
	if socketPath == "" {
		socketPath = cfg.Service.SocketPath
	}
	return service.NewServiceClient(socketPath), cfg, nil
}

// algorithmParams selects the algorithm set.
type algorithmParams struct {
	Algorithms []string `flag:"algorithm,a" desc:"digest algorithm, repeatable or comma-separated (default: engine.default_algorithms)"`
}

// names returns the requested algorithm names, falling back to the
// configured defaults, after checking that every name is supported.
func (p *algorithmParams) names(cfg *config.Config) ([]string, error) {
	names := p.Algorithms
	if len(names) == 0 {
		names = cfg.Engine.DefaultAlgorithms
	}
	set, err := digest.ParseSet(names)
	if err != nil {
		return nil, err
	}
	return set.Names(), nil
}

// absolutePaths resolves each path against the working directory. The
// service resolves nothing itself.
func absolutePaths(paths []string) ([]string, error) {
	resolved := make([]string, len(paths))
	for i, path := range paths {
		absolute, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		resolved[i] = absolute
	}
	return resolved, nil
}
