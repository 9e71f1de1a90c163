// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the data that crosses the boundary between
// the hashing engine and its consumers: the per-file task, the
// per-file result record, the progress snapshot, the run state, and
// the [Event] frame that carries them.
//
// Every type uses `json` struct tags. The same frames are encoded as
// CBOR on the hasher-service socket (lib/codec reads json tags as a
// fallback) and as JSON lines by the CLI, so field names are the
// contract with the presentation layer:
//
//   - [EventFileDiscovered] carries a [FileTask] as soon as the walker
//     finds a file, before any hashing begins.
//   - [EventFileUpdated] carries a [Record]: the path plus one field
//     per requested algorithm (blake3, sha3_256, sha3_512, sha256,
//     sha512, sha1, md5), or the path plus an error.
//   - [EventHashProgress] carries a [ProgressSnapshot].
//   - [EventTraversalError] reports a skipped path or subtree.
//   - [EventRunState] reports a [RunState] transition; the terminal
//     transition is always the last frame of a run.
//
// This package depends only on lib/digest.
package schema
