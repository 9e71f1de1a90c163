// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for the hasher
// binaries. It centralizes the one legitimate raw write to stderr that
// happens outside the structured logger: reporting the error from
// run() in main(), when the logger may not be initialized yet.
package process
