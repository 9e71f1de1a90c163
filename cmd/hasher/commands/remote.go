// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hasher/cmd/hasher/cli"
	"github.com/bureau-foundation/hasher/lib/engine"
	"github.com/bureau-foundation/hasher/lib/netutil"
	"github.com/bureau-foundation/hasher/lib/schema"
	"github.com/bureau-foundation/hasher/lib/service"
)

type selectParams struct {
	connectionParams
	algorithmParams
	cli.JSONOutput
	Wait     bool `flag:"wait,w" desc:"follow the run and print its results"`
	Progress bool `flag:"progress" desc:"print progress snapshots to stderr (with --wait)"`
}

func selectCommand() *cli.Command {
	var params selectParams
	return &cli.Command{
		Name:    "select",
		Summary: "Submit paths to a running hasher-service",
		Description: `Submit files and directories to hasher-service as a new run.

Relative paths are resolved against the working directory before they
are sent. Without --wait the run ID is printed and the command returns
immediately; follow the run later with "hasher watch <run-id>". With
--wait the run is followed to its end like "hasher hash". Interrupting
a --wait command cancels the run.`,
		Usage: "hasher select [flags] <path>...",
		Examples: []cli.Example{
			{Description: "Queue a directory", Command: "hasher select /srv/images"},
			{Description: "Hash and wait for the digests", Command: "hasher select --wait -a sha256,blake3 ./release"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("select", &params)
		},
		Run: func(args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			// The first interrupt cancels the run; a second one kills
			// the process.
			context.AfterFunc(ctx, stop)
			return runSelect(ctx, params, args, os.Stdout, os.Stderr)
		},
	}
}

func runSelect(ctx context.Context, params selectParams, paths []string, stdout, stderr io.Writer) error {
	if len(paths) == 0 {
		return errors.New("at least one path is required")
	}
	client, cfg, err := params.connect()
	if err != nil {
		return err
	}
	names, err := params.names(cfg)
	if err != nil {
		return err
	}
	roots, err := absolutePaths(paths)
	if err != nil {
		return err
	}

	// Subscribe before submitting so the run's first events are not
	// missed. The first frame acknowledges the subscription.
	var stream *service.Stream
	if params.Wait {
		// The stream outlives an interrupt so the cancelled run's
		// final events are still shown.
		stream, err = client.Stream(context.WithoutCancel(ctx), "subscribe", nil)
		if err != nil {
			return err
		}
		defer stream.Close()
		var ack schema.Event
		if err := stream.Next(&ack); err != nil {
			return fmt.Errorf("waiting for subscription: %w", err)
		}
	}

	var response struct {
		RunID engine.RunID `json:"run_id"`
	}
	if err := client.Call(ctx, "select_files", map[string]any{
		"paths":      roots,
		"algorithms": names,
	}, &response); err != nil {
		return err
	}

	if !params.Wait {
		if params.OutputJSON {
			return cli.WriteJSON(stdout, response)
		}
		fmt.Fprintln(stdout, response.RunID)
		return nil
	}
	return follow(ctx, client, stream, response.RunID, newRenderer(stdout, stderr, params.OutputJSON, params.Progress))
}

type watchParams struct {
	connectionParams
	cli.JSONOutput
	Progress bool `flag:"progress" desc:"print progress snapshots to stderr"`
	Lossy    bool `flag:"lossy" desc:"let the service drop events rather than wait when this client falls behind (not with a run ID)"`
}

func watchCommand() *cli.Command {
	var params watchParams
	return &cli.Command{
		Name:    "watch",
		Summary: "Stream events from a running hasher-service",
		Description: `Print events from hasher-service as they happen.

With a run ID, only that run's events are shown and the command ends
with the run, exiting like "hasher hash" would. Without one, every
run's events are shown until interrupted.`,
		Usage: "hasher watch [flags] [run-id]",
		Examples: []cli.Example{
			{Description: "Follow one run", Command: "hasher watch 0b7c2f9e-5d1a-4c1e-9a53-2f0d1c6e8b41"},
			{Description: "Log every event as JSON", Command: "hasher watch --json"},
			{Description: "Monitor without ever slowing the service", Command: "hasher watch --lossy"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("watch", &params)
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("watch takes at most one run ID, got %d arguments", len(args))
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			var runID engine.RunID
			if len(args) == 1 {
				runID = engine.RunID(args[0])
			}
			return runWatch(ctx, params, runID, os.Stdout, os.Stderr)
		},
	}
}

func runWatch(ctx context.Context, params watchParams, runID engine.RunID, stdout, stderr io.Writer) error {
	if params.Lossy && runID != "" {
		return fmt.Errorf("--lossy cannot be used with a run ID: a lossy stream may miss the run's end")
	}
	client, _, err := params.connect()
	if err != nil {
		return err
	}
	fields := map[string]any{}
	if runID != "" {
		fields["run_id"] = string(runID)
	}
	if params.Lossy {
		fields["lossy"] = true
	}
	stream, err := client.Stream(ctx, "subscribe", fields)
	if err != nil {
		return err
	}
	defer stream.Close()

	output := newRenderer(stdout, stderr, params.OutputJSON, params.Progress)
	for {
		var ev schema.Event
		if err := stream.Next(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if netutil.IsPeerGone(err) && runID != "" {
				return output.exitError()
			}
			return fmt.Errorf("reading event stream: %w", err)
		}
		if err := output.render(ev); err != nil {
			return err
		}
		if runID != "" && ev.Terminal() {
			return output.exitError()
		}
	}
}

// follow renders runID's events from stream until its terminal event.
// An interrupt asks the service to cancel the run and keeps reading,
// so the cancelled summary is still printed.
func follow(ctx context.Context, client *service.ServiceClient, stream *service.Stream, runID engine.RunID, output *renderer) error {
	events := make(chan schema.Event)
	streamErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(events)
		for {
			var ev schema.Event
			if err := stream.Next(&ev); err != nil {
				streamErr <- err
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	interrupted := ctx.Done()
	for {
		select {
		case <-interrupted:
			interrupted = nil
			cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := client.Call(cancelCtx, "cancel", map[string]any{"run_id": string(runID)}, nil)
			cancel()
			if err != nil {
				return fmt.Errorf("cancelling run %s: %w", runID, err)
			}

		case ev, ok := <-events:
			if !ok {
				err := <-streamErr
				if netutil.IsPeerGone(err) {
					return output.exitError()
				}
				return fmt.Errorf("reading event stream: %w", err)
			}
			if ev.RunID != "" && ev.RunID != string(runID) {
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

type cancelParams struct {
	connectionParams
}

func cancelCommand() *cli.Command {
	var params cancelParams
	return &cli.Command{
		Name:    "cancel",
		Summary: "Cancel a run on hasher-service",
		Description: `Cancel a run. Without a run ID the active run is cancelled.

Files already being hashed finish; queued files are counted as
cancelled. A pending run is dropped before it starts.`,
		Usage: "hasher cancel [flags] [run-id]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("cancel", &params)
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("cancel takes at most one run ID, got %d arguments", len(args))
			}
			var runID engine.RunID
			if len(args) == 1 {
				runID = engine.RunID(args[0])
			}
			return runCancel(context.Background(), params, runID, os.Stderr)
		},
	}
}

func runCancel(ctx context.Context, params cancelParams, runID engine.RunID, stderr io.Writer) error {
	client, _, err := params.connect()
	if err != nil {
		return err
	}
	if err := client.Call(ctx, "cancel", map[string]any{"run_id": string(runID)}, nil); err != nil {
		return err
	}
	if runID == "" {
		fmt.Fprintln(stderr, "cancellation requested for the active run")
	} else {
		fmt.Fprintf(stderr, "cancellation requested for run %s\n", runID)
	}
	return nil
}

type statusParams struct {
	connectionParams
	cli.JSONOutput
}

// serviceStatus mirrors the status action's reply.
type serviceStatus struct {
	UptimeSeconds float64       `json:"uptime_seconds"`
	Version       string        `json:"version"`
	Engine        engine.Status `json:"engine"`
}

func statusCommand() *cli.Command {
	var params statusParams
	return &cli.Command{
		Name:    "status",
		Summary: "Show what hasher-service is doing",
		Usage:   "hasher status [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runStatus(context.Background(), params, os.Stdout)
		},
	}
}

func runStatus(ctx context.Context, params statusParams, stdout io.Writer) error {
	client, _, err := params.connect()
	if err != nil {
		return err
	}
	var status serviceStatus
	if err := client.Call(ctx, "status", nil, &status); err != nil {
		return err
	}
	if params.OutputJSON {
		return cli.WriteJSON(stdout, status)
	}
	writeStatus(stdout, status, cli.DefaultTheme, time.Now())
	return nil
}

func joinNames(names []string) string { return strings.Join(names, ", ") }

func writeStatus(w io.Writer, status serviceStatus, theme cli.Theme, now time.Time) {
	faint := theme.Style(theme.FaintText)
	uptime := time.Duration(status.UptimeSeconds * float64(time.Second)).Round(time.Second)
	fmt.Fprintf(w, "hasher-service %s, up %s, busy policy %s\n", status.Version, uptime, status.Engine.BusyPolicy)

	active := status.Engine.Active
	if active == nil {
		fmt.Fprintln(w, faint.Render("no active run"))
	} else {
		fmt.Fprintf(w, "\nrun %s  %s\n", active.RunID, theme.Style(theme.StateColor(active.State)).Render(string(active.State)))
		fmt.Fprintf(w, "  accepted    %s\n", humanize.RelTime(active.AcceptedAt, now, "ago", "from now"))
		fmt.Fprintf(w, "  algorithms  %s\n", theme.Style(theme.AlgorithmText).Render(joinNames(active.Algorithms)))
		for _, root := range active.Roots {
			fmt.Fprintf(w, "  root        %s\n", root)
		}
		fmt.Fprintf(w, "  progress    %s\n", progressLine(active.Progress))
		if active.Progress.FilesFailed > 0 || active.Progress.TraversalErrors > 0 {
			fmt.Fprintf(w, "  errors      %s\n", theme.Style(theme.ErrorText).Render(fmt.Sprintf("%d failed, %d unreadable paths",
				active.Progress.FilesFailed, active.Progress.TraversalErrors)))
		}
	}

	if len(status.Engine.Pending) > 0 {
		fmt.Fprintf(w, "\n%s pending:\n", humanize.Comma(int64(len(status.Engine.Pending))))
		for _, runID := range status.Engine.Pending {
			fmt.Fprintf(w, "  %s\n", runID)
		}
	}
}
