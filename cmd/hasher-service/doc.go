// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Hasher-service is a long-running hashing daemon. It owns one engine
// and serves it over a Unix socket using the CBOR protocol from
// lib/service.
//
// # Startup
//
// The service loads its configuration from --config, or from the file
// named by HASHER_CONFIG, or falls back to built-in defaults. It
// listens on service.socket_path (overridable with --socket) until
// SIGINT or SIGTERM, then stops accepting requests, ends every
// subscribe stream with an "error" frame, cancels the active run, and
// exits.
//
// # Socket API
//
// One CBOR request per connection; the "action" field selects the
// operation:
//
//   - select_files {paths, algorithms}: validate and schedule a run.
//     Returns {run_id}. Paths must be absolute. Unknown algorithm
//     names, an empty algorithm list, and a request whose paths all
//     fail to resolve are rejected without emitting events.
//   - cancel {run_id}: cancel a run; an empty run_id means the active
//     run.
//   - status: uptime, version, and the engine's active and waiting
//     runs.
//   - algorithms: the supported algorithms and the configured
//     defaults.
//   - subscribe {run_id, lossy}: stream the engine's events. The first
//     frame is a heartbeat confirming the subscription is registered;
//     after that every engine event follows in order. With run_id set,
//     only that run's events are written and the stream ends after its
//     terminal run-state. The engine waits for a slow subscriber; one
//     that does not accept a frame within service.stream_write_timeout
//     is disconnected. An unscoped stream may set lossy instead, in
//     which case events are dropped when it falls behind and a "resync"
//     frame carries the number missed.
package main
