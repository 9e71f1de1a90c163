// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/hasher/cmd/hasher/cli"
	"github.com/bureau-foundation/hasher/lib/digest"
	"github.com/bureau-foundation/hasher/lib/schema"
)

// renderer prints events. Digests go to stdout in sha256sum layout;
// everything else goes to stderr so stdout stays machine-readable.
// In JSON mode every event except heartbeats is one JSON line on
// stdout.
type renderer struct {
	stdout   io.Writer
	stderr   io.Writer
	json     bool
	progress bool
	theme    cli.Theme
	now      func() time.Time

	started map[string]time.Time
	final   *schema.Event
}

func newRenderer(stdout, stderr io.Writer, json, progress bool) *renderer {
	return &renderer{
		stdout:   stdout,
		stderr:   stderr,
		json:     json,
		progress: progress,
		theme:    cli.DefaultTheme,
		now:      time.Now,
		started:  make(map[string]time.Time),
	}
}

// render prints one event. An "error" frame from the service ends the
// stream and is returned as an error.
func (r *renderer) render(ev schema.Event) error {
	if ev.Type == schema.EventError {
		return fmt.Errorf("service: %s", ev.Message)
	}
	if ev.Terminal() {
		final := ev
		r.final = &final
	}
	if r.json {
		if ev.Type == schema.EventHeartbeat {
			return nil
		}
		return cli.WriteJSONLine(r.stdout, ev)
	}

	switch ev.Type {
	case schema.EventFileUpdated:
		r.record(*ev.Record)
	case schema.EventTraversalError:
		fmt.Fprintf(r.stderr, "%s %s\n", r.theme.Style(r.theme.WarningText).Render("skipped:"), ev.Message)
	case schema.EventHashProgress:
		if r.progress {
			fmt.Fprintf(r.stderr, "%s\n", r.theme.Style(r.theme.FaintText).Render(progressLine(*ev.Progress)))
		}
	case schema.EventRunState:
		r.runState(ev)
	case schema.EventResync:
		fmt.Fprintf(r.stderr, "%s fell behind; %s events were not shown\n",
			r.theme.Style(r.theme.WarningText).Render("warning:"), ev.Message)
	}
	return nil
}

// record prints one file result. A single-algorithm run matches the
// sha256sum layout; multi-algorithm runs prefix each line with the
// algorithm name.
func (r *renderer) record(record schema.Record) {
	if record.Failed() {
		fmt.Fprintf(r.stderr, "%s %s: %s\n", r.theme.Style(r.theme.ErrorText).Render("failed:"), record.Path, record.Error)
		return
	}
	digests := record.Digests()
	algorithmStyle := r.theme.Style(r.theme.AlgorithmText)
	for _, algorithm := range digest.Algorithms() {
		value, ok := digests[algorithm]
		if !ok {
			continue
		}
		if len(digests) == 1 {
			fmt.Fprintf(r.stdout, "%s  %s\n", value, record.Path)
			continue
		}
		fmt.Fprintf(r.stdout, "%s  %s  %s\n", algorithmStyle.Render(fmt.Sprintf("%-8s", algorithm.String())), value, record.Path)
	}
}

func (r *renderer) runState(ev schema.Event) {
	switch {
	case ev.State == schema.RunIdle:
		r.started[ev.RunID] = r.now()
	case ev.State == schema.RunFailed:
		fmt.Fprintf(r.stderr, "%s %s\n", r.theme.Style(r.theme.StateFailed).Render("run failed:"), ev.Message)
	case ev.Terminal() && ev.Progress != nil:
		elapsed := time.Duration(0)
		if started, ok := r.started[ev.RunID]; ok {
			elapsed = r.now().Sub(started)
			delete(r.started, ev.RunID)
		}
		fmt.Fprintln(r.stderr, r.theme.Style(r.theme.StateColor(ev.State)).Render(summaryLine(*ev.Progress, ev.Cancelled, elapsed)))
	}
}

// exitError maps the last terminal event to the command's result:
// a failed run is an error, a cancelled run exits 130, and files or
// paths that could not be read exit 1.
func (r *renderer) exitError() error {
	if r.final == nil {
		return fmt.Errorf("event stream ended before the run finished")
	}
	switch {
	case r.final.State == schema.RunFailed:
		return fmt.Errorf("run failed: %s", r.final.Message)
	case r.final.Cancelled:
		return &cli.ExitError{Code: 130}
	case r.final.Progress != nil && (r.final.Progress.FilesFailed > 0 || r.final.Progress.TraversalErrors > 0):
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// progressLine formats a snapshot as "3/10 files, 1.2 MiB of 4.0 MiB".
func progressLine(snapshot schema.ProgressSnapshot) string {
	return fmt.Sprintf("%d/%d files, %s of %s",
		snapshot.Finished(), snapshot.FilesDiscovered,
		humanize.IBytes(uint64(snapshot.BytesProcessed)),
		humanize.IBytes(uint64(snapshot.BytesTotal)))
}

// summaryLine formats the end of a run.
func summaryLine(snapshot schema.ProgressSnapshot, cancelled bool, elapsed time.Duration) string {
	verb := "hashed"
	if cancelled {
		verb = "cancelled after"
	}
	line := fmt.Sprintf("%s %s %s", verb, humanize.Comma(snapshot.FilesCompleted), plural(snapshot.FilesCompleted, "file", "files"))
	if snapshot.FilesFailed > 0 {
		line += fmt.Sprintf(", %s failed", humanize.Comma(snapshot.FilesFailed))
	}
	if snapshot.FilesCancelled > 0 {
		line += fmt.Sprintf(", %s skipped", humanize.Comma(snapshot.FilesCancelled))
	}
	if snapshot.TraversalErrors > 0 {
		line += fmt.Sprintf(", %s unreadable %s", humanize.Comma(snapshot.TraversalErrors), plural(snapshot.TraversalErrors, "path", "paths"))
	}
	line += fmt.Sprintf(" (%s", humanize.IBytes(uint64(snapshot.BytesProcessed)))
	if elapsed > 0 {
		rate := float64(snapshot.BytesProcessed) / elapsed.Seconds()
		line += fmt.Sprintf(" in %s, %s/s", elapsed.Round(time.Millisecond), humanize.IBytes(uint64(rate)))
	}
	return line + ")"
}

func plural(count int64, singular, pluralForm string) string {
	if count == 1 {
		return singular
	}
	return pluralForm
}
