// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"

	"github.com/bureau-foundation/hasher/lib/schema"
)

// ErrSymlinkCycle marks a directory that is its own ancestor through a
// symlink.
var ErrSymlinkCycle = errors.New("symlink cycle")

// Operations recorded in TraversalError.Op.
const (
	OpStat    = "stat"
	OpResolve = "resolve"
	OpReadDir = "readdir"
	OpAccess  = "access"
	OpCycle   = "cycle"
)

// TraversalError describes one path the walker had to skip.
type TraversalError struct {
	Path string
	Op   string
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TraversalError) Unwrap() error { return e.Err }

// Options configures a Walker.
type Options struct {
	// FollowSymlinks descends into symlinked directories and yields
	// symlinked files. Symlinks named directly as roots are always
	// followed.
	FollowSymlinks bool

	// Exclude holds glob patterns (github.com/gobwas/glob syntax).
	// An entry below a root is skipped when a pattern matches either
	// its base name or its full path.
	Exclude []string

	// OnError receives every traversal error. May be nil.
	OnError func(*TraversalError)

	// Logger receives debug lines for silently skipped entries. Nil
	// discards them.
	Logger *slog.Logger
}

// Walker produces file tasks from root paths. A Walker holds only
// compiled options; each Walk call keeps its own deduplication state,
// so one Walker may serve concurrent walks.
type Walker struct {
	followSymlinks bool
	exclude        []glob.Glob
	onError        func(*TraversalError)
	logger         *slog.Logger
}

// New compiles the exclude patterns and returns a Walker.
func New(options Options) (*Walker, error) {
	walker := &Walker{
		followSymlinks: options.FollowSymlinks,
		onError:        options.OnError,
		logger:         options.Logger,
	}
	for _, pattern := range options.Exclude {
		compiled, err := glob.Compile(pattern, filepath.Separator)
		if err != nil {
			return nil, fmt.Errorf("compiling exclude pattern %q: %w", pattern, err)
		}
		walker.exclude = append(walker.exclude, compiled)
	}
	if walker.logger == nil {
		walker.logger = slog.New(slog.DiscardHandler)
	}
	return walker, nil
}

// CheckRoots splits roots into those that exist (after resolving
// symlinks) and those that do not. The returned valid roots are
// absolute.
func CheckRoots(roots []string) (valid []string, invalid []*TraversalError) {
	for _, root := range roots {
		absolute, err := filepath.Abs(root)
		if err != nil {
			invalid = append(invalid, &TraversalError{Path: root, Op: OpStat, Err: err})
			continue
		}
		if _, err := os.Stat(absolute); err != nil {
			invalid = append(invalid, &TraversalError{Path: absolute, Op: OpStat, Err: err})
			continue
		}
		valid = append(valid, absolute)
	}
	return valid, invalid
}

// Walk visits every root in order and calls yield once per discovered
// regular file. It returns ctx.Err() if the context is cancelled, the
// first error returned by yield, or nil once every root is exhausted.
func (w *Walker) Walk(ctx context.Context, roots []string, yield func(schema.FileTask) error) error {
	pass := &pass{
		walker:     w,
		yield:      yield,
		seenFiles:  make(map[string]struct{}),
		walkedDirs: make(map[string]struct{}),
		ancestors:  make(map[string]struct{}),
	}
	for _, root := range roots {
		absolute, err := filepath.Abs(root)
		if err != nil {
			w.report(&TraversalError{Path: root, Op: OpStat, Err: err})
			continue
		}
		if err := pass.visit(ctx, absolute, true); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (w *Walker) report(err *TraversalError) {
	w.logger.Debug("traversal error", "path", err.Path, "op", err.Op, "error", err.Err)
	if w.onError != nil {
		w.onError(err)
	}
}

func (w *Walker) excluded(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.exclude {
		if pattern.Match(base) || pattern.Match(path) {
			return true
		}
	}
	return false
}

// pass is the state of one Walk call.
type pass struct {
	walker *Walker
	yield  func(schema.FileTask) error

	// seenFiles and walkedDirs hold canonical paths across every root.
	seenFiles  map[string]struct{}
	walkedDirs map[string]struct{}

	// ancestors holds the canonical paths of directories on the
	// current branch.
	ancestors map[string]struct{}
}

func (p *pass) visit(ctx context.Context, path string, root bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := p.walker
	if !root && w.excluded(path) {
		w.logger.Debug("excluded", "path", path)
		return nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		w.report(&TraversalError{Path: path, Op: OpStat, Err: err})
		return nil
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		if !root && !w.followSymlinks {
			w.logger.Debug("symlink not followed", "path", path)
			return nil
		}
		info, err = os.Stat(path)
		if err != nil {
			w.report(&TraversalError{Path: path, Op: OpResolve, Err: err})
			return nil
		}
	}

	canonical, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.report(&TraversalError{Path: path, Op: OpResolve, Err: err})
		return nil
	}

	switch {
	case info.IsDir():
		return p.visitDir(ctx, path, canonical)
	case info.Mode().IsRegular():
		return p.visitFile(path, canonical, info.Size())
	default:
		w.logger.Debug("skipping special file", "path", path, "mode", info.Mode().Type().String())
		return nil
	}
}

func (p *pass) visitDir(ctx context.Context, path, canonical string) error {
	w := p.walker
	if _, ok := p.ancestors[canonical]; ok {
		w.report(&TraversalError{Path: path, Op: OpCycle, Err: ErrSymlinkCycle})
		return nil
	}
	if _, ok := p.walkedDirs[canonical]; ok {
		w.logger.Debug("directory already walked", "path", path, "canonical", canonical)
		return nil
	}
	p.walkedDirs[canonical] = struct{}{}

	// os.ReadDir returns entries sorted by name, and whatever it read
	// before an error.
	entries, err := os.ReadDir(path)
	if err != nil {
		w.report(&TraversalError{Path: path, Op: OpReadDir, Err: err})
	}

	p.ancestors[canonical] = struct{}{}
	defer delete(p.ancestors, canonical)

	for _, entry := range entries {
		if err := p.visit(ctx, filepath.Join(path, entry.Name()), false); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) visitFile(path, canonical string, size int64) error {
	if _, ok := p.seenFiles[canonical]; ok {
		p.walker.logger.Debug("duplicate file", "path", path, "canonical", canonical)
		return nil
	}
	p.seenFiles[canonical] = struct{}{}

	if err := checkReadable(path); err != nil {
		p.walker.report(&TraversalError{Path: path, Op: OpAccess, Err: err})
		return nil
	}
	return p.yield(schema.FileTask{Path: path, Size: size})
}
