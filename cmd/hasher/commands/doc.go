// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the hasher CLI command tree.
//
// "hash" runs an engine in-process and needs no daemon. "select",
// "watch", "cancel", and "status" talk to a running hasher-service
// over its socket. Every command that prints events shares one
// renderer, so a run looks the same whether it was hashed locally or
// followed over the socket.
package commands
