// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hasher/cmd/hasher/cli"
	"github.com/bureau-foundation/hasher/lib/digest"
	"github.com/bureau-foundation/hasher/lib/engine"
	"github.com/bureau-foundation/hasher/lib/event"
)

type hashParams struct {
	configParams
	algorithmParams
	cli.JSONOutput
	Progress bool     `flag:"progress" desc:"print progress snapshots to stderr"`
	Workers  int      `flag:"workers" desc:"files hashed concurrently (default: engine.workers)"`
	Exclude  []string `flag:"exclude" desc:"glob pattern to skip, repeatable (added to walk.exclude)"`
}

func hashCommand() *cli.Command {
	var params hashParams
	return &cli.Command{
		Name:    "hash",
		Summary: "Hash files and directories in-process",
		Description: `Hash files and directories without a running service.

Directories are walked recursively. Each file is read once and every
requested digest is computed from that read. Digests are written to
stdout; skipped paths, failures, and the summary go to stderr. Exits 1
if any file or path could not be read, 130 if interrupted.`,
		Usage: "hasher hash [flags] <path>...",
		Examples: []cli.Example{
			{Description: "SHA-256 of a tree, sha256sum layout", Command: "hasher hash ./dist"},
			{Description: "Several algorithms as JSON lines", Command: "hasher hash -a blake3,sha3-256,md5 --json /data"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("hash", &params)
		},
		Run: func(args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			// The first interrupt cancels the run; a second one kills
			// the process.
			context.AfterFunc(ctx, stop)
			return runHash(ctx, params, args, os.Stdout, os.Stderr)
		},
	}
}

// runHash hashes paths with an in-process engine and renders the run.
// Cancelling ctx cancels the run; the command still waits for the
// final events.
func runHash(ctx context.Context, params hashParams, paths []string, stdout, stderr io.Writer) error {
	if len(paths) == 0 {
		return errors.New("at least one path is required")
	}
	cfg, err := params.load()
	if err != nil {
		return err
	}
	if params.Workers > 0 {
		cfg.Engine.Workers = params.Workers
	}
	cfg.Walk.Exclude = append(cfg.Walk.Exclude, params.Exclude...)

	names, err := params.names(cfg)
	if err != nil {
		return err
	}
	set, err := digest.ParseSet(names)
	if err != nil {
		return err
	}

	logger := params.logger(cfg)
	hashEngine, err := engine.New(engine.ConfigFrom(cfg, logger))
	if err != nil {
		return err
	}
	defer hashEngine.Close()

	subscription := hashEngine.Subscribe(event.SubscribeOptions{})
	defer subscription.Close()

	runID, err := hashEngine.SelectFiles(ctx, engine.RunRequest{Roots: paths, Algorithms: set})
	if err != nil {
		return err
	}

	output := newRenderer(stdout, stderr, params.OutputJSON, params.Progress)
	interrupted := ctx.Done()
	for {
		select {
		case <-interrupted:
			interrupted = nil
			cancelInterrupted(hashEngine, runID, logger)

		case ev, ok := <-subscription.C:
			if !ok {
				return output.exitError()
			}
			if ev.RunID != string(runID) {
				continue
			}
			if err := output.render(ev); err != nil {
				return err
			}
			if ev.Terminal() {
				return output.exitError()
			}
		}
	}
}

// cancelInterrupted cancels runID after an interrupt. The run may have
// finished in the meantime, so a failure is only logged.
func cancelInterrupted(hashEngine *engine.Engine, runID engine.RunID, logger *slog.Logger) {
	if err := hashEngine.Cancel(runID); err != nil {
		logger.Debug("cancel after interrupt", "run_id", runID, "error", err)
	}
}
