// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest computes several message digests of one byte stream
// in a single sequential read.
//
// The supported algorithms form a closed set ([Algorithms]): BLAKE3,
// SHA3-256, SHA3-512, SHA-256, SHA-512, SHA-1, and MD5. Each is wrapped
// as an [Accumulator] with the same two operations, Write and Finalize,
// so the read loop in [Compute] treats them uniformly: every chunk
// read from the stream is handed to every accumulator before the next
// read. A file is therefore opened and read exactly once no matter
// how many algorithms were requested, and memory use is bounded by
// the chunk size rather than the file size.
//
// Output is always lowercase hexadecimal at the algorithm's natural
// width ([Algorithm.HexLen]).
//
// Algorithm names parse case-insensitively and accept both the
// hyphenated spelling ("sha3-256") and the underscore spelling used as
// a record key ("sha3_256").
package digest
