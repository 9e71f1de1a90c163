// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the socket scaffolding for hasher-service
// and its clients.
//
// The protocol is CBOR over a Unix socket. A client connects, writes
// one CBOR map with an "action" field plus action-specific fields,
// and reads the reply:
//
//   - Request-response actions (registered with [SocketServer.Handle])
//     reply with one [Response] envelope, {ok, error, data}, and the
//     connection closes.
//   - Stream actions (registered with [SocketServer.HandleStream])
//     keep the connection open and write a sequence of CBOR frames
//     until the client disconnects or the server shuts down.
//
// [ServiceClient] is the client side: [ServiceClient.Call] for
// request-response actions and [ServiceClient.Stream] for streams.
//
// [NewLogger] builds the JSON stderr logger every service binary uses.
//
// Services compose these pieces in their own main() rather than
// subclassing a framework.
package service
