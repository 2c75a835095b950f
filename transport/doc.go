// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package transport binds application sockets to reactor-managed channels.
//
// PlainTransport forwards readiness straight to the bound api.Socket.
// SecureTransport runs the same channel through an api.Engine, driving the
// handshake from whichever direction happens to be ready.
package transport
