// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when no --config flag is
// given.
const EnvironmentVariable = "HASHER_CONFIG"

// Config is the complete configuration for hasher and hasher-service.
type Config struct {
	// Engine configures the worker pool and request handling.
	Engine EngineConfig `yaml:"engine"`

	// Progress configures how often hash-progress events are emitted.
	Progress ProgressConfig `yaml:"progress"`

	// Walk configures directory traversal.
	Walk WalkConfig `yaml:"walk"`

	// Service configures the hasher-service socket.
	Service ServiceConfig `yaml:"service"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// EngineConfig configures the engine and its worker pool.
type EngineConfig struct {
	// Workers is the number of files hashed concurrently.
	// Default: 0 (one per CPU)
	Workers int `yaml:"workers"`

	// QueueDepth bounds discovered files waiting for a worker.
	// Default: 0 (twice the worker count)
	QueueDepth int `yaml:"queue_depth"`

	// ChunkSize is the read buffer per worker.
	// Default: 256KiB
	ChunkSize ByteSize `yaml:"chunk_size"`

	// ConcurrentDigest computes each algorithm on its own goroutine
	// within a worker.
	// Default: false
	ConcurrentDigest bool `yaml:"concurrent_digest"`

	// FileTimeout bounds the time spent reading one file. A file that
	// exceeds it is reported as failed.
	// Default: 0 (no limit)
	FileTimeout time.Duration `yaml:"file_timeout"`

	// ReadRateLimit caps combined read throughput, in bytes per second.
	// Default: 0 (unlimited)
	ReadRateLimit ByteSize `yaml:"read_rate_limit"`

	// BusyPolicy is "queue" or "cancel".
	// Default: queue
	BusyPolicy string `yaml:"busy_policy"`

	// DefaultAlgorithms is used by the CLI when no algorithms are given
	// on the command line.
	// Default: [sha256]
	DefaultAlgorithms []string `yaml:"default_algorithms"`
}

// ProgressConfig configures the progress cadence. A snapshot is emitted
// when either threshold is reached.
type ProgressConfig struct {
	// ByteInterval emits a snapshot after this many bytes.
	// Default: 16MiB
	ByteInterval ByteSize `yaml:"byte_interval"`

	// TimeInterval emits a snapshot after this much time.
	// Default: 250ms
	TimeInterval time.Duration `yaml:"time_interval"`
}

// WalkConfig configures traversal.
type WalkConfig struct {
	// FollowSymlinks descends into symlinked directories and hashes
	// symlinked files.
	// Default: true
	FollowSymlinks bool `yaml:"follow_symlinks"`

	// Exclude lists glob patterns matched against each entry's base
	// name and full path.
	Exclude []string `yaml:"exclude"`
}

// ServiceConfig configures the hasher-service socket.
type ServiceConfig struct {
	// SocketPath is the Unix socket the service listens on and the CLI
	// connects to.
	// Default: ${XDG_RUNTIME_DIR:-/tmp}/hasher.sock
	SocketPath string `yaml:"socket_path"`

	// HeartbeatInterval is how often an idle subscribe stream receives
	// a heartbeat frame.
	// Default: 30s
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// StreamWriteTimeout is how long a subscribe stream waits for the
	// client to accept one frame before disconnecting it. The engine
	// waits on a lossless subscriber, so a stalled client holds up
	// event delivery for at most this long.
	// Default: 30s
	StreamWriteTimeout time.Duration `yaml:"stream_write_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given, and
// the base that a loaded file is merged into.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			ChunkSize:         256 * humanize.KiByte,
			BusyPolicy:        "queue",
			DefaultAlgorithms: []string{"sha256"},
		},
		Progress: ProgressConfig{
			ByteInterval: 16 * humanize.MiByte,
			TimeInterval: 250 * time.Millisecond,
		},
		Walk: WalkConfig{
			FollowSymlinks: true,
		},
		Service: ServiceConfig{
			SocketPath:         "${XDG_RUNTIME_DIR:-/tmp}/hasher.sock",
			HeartbeatInterval:  30 * time.Second,
			StreamWriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the file named by HASHER_CONFIG. If
// the variable is unset, it returns Default with variables expanded.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, merged over Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// loadFile decodes one file into c. JSON is a subset of YAML, so JSON
// files go through the YAML decoder once comments are stripped.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid value.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers must not be negative (got %d)", c.Engine.Workers))
	}
	if c.Engine.QueueDepth < 0 {
		errs = append(errs, fmt.Errorf("engine.queue_depth must not be negative (got %d)", c.Engine.QueueDepth))
	}
	if c.Engine.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("engine.chunk_size must not be negative (got %d)", c.Engine.ChunkSize))
	}
	if c.Engine.FileTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine.file_timeout must not be negative (got %s)", c.Engine.FileTimeout))
	}
	if c.Engine.ReadRateLimit < 0 {
		errs = append(errs, fmt.Errorf("engine.read_rate_limit must not be negative (got %d)", c.Engine.ReadRateLimit))
	}
	switch c.Engine.BusyPolicy {
	case "", "queue", "cancel":
	default:
		errs = append(errs, fmt.Errorf("engine.busy_policy must be queue or cancel (got %q)", c.Engine.BusyPolicy))
	}
	if c.Progress.ByteInterval < 0 {
		errs = append(errs, fmt.Errorf("progress.byte_interval must not be negative (got %d)", c.Progress.ByteInterval))
	}
	if c.Progress.TimeInterval < 0 {
		errs = append(errs, fmt.Errorf("progress.time_interval must not be negative (got %s)", c.Progress.TimeInterval))
	}
	if c.Service.SocketPath == "" {
		errs = append(errs, errors.New("service.socket_path is required"))
	}
	if c.Service.HeartbeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("service.heartbeat_interval must be positive (got %s)", c.Service.HeartbeatInterval))
	}
	if c.Service.StreamWriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("service.stream_write_timeout must be positive (got %s)", c.Service.StreamWriteTimeout))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error (got %q)", c.Log.Level))
	}
	return errors.Join(errs...)
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Service.SocketPath = expandVars(c.Service.SocketPath, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}
