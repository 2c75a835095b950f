// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp provides raw non-blocking TCP sockets for the reactor: Conn is
// an api.Channel over a socket descriptor, Listener is an accept-only
// api.Transport. Only Linux is supported.
package tcp
