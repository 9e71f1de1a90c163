// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package walk turns a list of root paths into an ordered, deduplicated
// stream of [schema.FileTask] values.
//
// Traversal is depth-first with directory entries in lexical order, so
// a single pass over an unchanged tree is deterministic. Files are
// deduplicated by canonical path (symlinks resolved) across every root
// of one Walk call: overlapping roots, repeated roots, and symlinks to
// already-seen files each produce one task, reported under the first
// path the file was reached by.
//
// Nothing the walker encounters aborts a walk. Missing roots, dangling
// symlinks, symlink cycles, and unreadable directories or files are
// reported to [Options.OnError] as [*TraversalError] and skipped.
// Devices, sockets, and named pipes are skipped silently. Only context
// cancellation and an error returned by the yield callback stop a walk
// early.
package walk
