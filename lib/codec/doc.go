// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the one CBOR configuration used by the hasher
// socket protocol.
//
// Requests, responses, and subscribe-stream event frames are CBOR
// values written back to back on a Unix socket. CBOR is
// self-delimiting, so a stream of frames needs no extra framing. The
// encoder uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// frame always produces the same bytes.
//
// Wire types in lib/schema carry `json` tags: fxamacker/cbor reads
// them when no `cbor` tag is present, so one tag set serves both the
// socket protocol and the CLI's --json output. Types that only ever
// travel over the socket (request envelopes in lib/service) use `cbor`
// tags. A field never carries both.
package codec
