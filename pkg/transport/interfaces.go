package transport

import (
	"context"
	"net"
	"time"
)

// ServerConnection represents a server-side connection to a client.
// Implemented by ServerConn.
type ServerConnection interface {
	// RemoteAddr returns the remote network address of the client.
	RemoteAddr() net.Addr

	// ConnID returns the unique connection identifier.
	ConnID() string

	// WriteLine sends a line to the client.
	WriteLine(line string) error

	// Close closes the connection.
	Close() error
}

// ClientConnection represents a client-side connection to a controller.
// Implemented by Conn.
type ClientConnection interface {
	// Connect dials the controller.
	Connect(ctx context.Context, address string, timeout time.Duration) error

	// State returns the current connection state.
	State() ConnectionState

	// ConnID returns the connection identifier.
	ConnID() string

	// ReadTimeout returns the current read timeout.
	ReadTimeout() time.Duration

	// SetReadTimeout overrides the read timeout for subsequent reads.
	SetReadTimeout(d time.Duration)

	// WriteLine writes a complete line.
	WriteLine(line string) error

	// ReadLineTimeout reads one line, overriding the read timeout when
	// timeout is positive.
	ReadLineTimeout(timeout time.Duration) (string, error)

	// Buffered returns the bytes held for an incomplete line.
	Buffered() int

	// RemoteAddr returns the remote network address.
	RemoteAddr() net.Addr

	// Close closes the connection. Safe to call repeatedly.
	Close() error
}

// TransportServer represents a line server.
// Implemented by Server.
type TransportServer interface {
	// Start begins accepting connections.
	Start(ctx context.Context) error

	// Stop gracefully stops the server.
	Stop() error

	// Addr returns the server's listen address.
	Addr() net.Addr

	// ConnectionCount returns the number of active connections.
	ConnectionCount() int
}

// LineReadWriter provides line-oriented I/O.
// Implemented by Framer.
type LineReadWriter interface {
	// ReadLine reads one terminated line.
	ReadLine() (string, error)

	// WriteLine writes one complete line.
	WriteLine(line string) error
}

// Compile-time interface satisfaction checks.
var (
	_ ServerConnection = (*ServerConn)(nil)
	_ ClientConnection = (*Conn)(nil)
	_ TransportServer  = (*Server)(nil)
	_ LineReadWriter   = (*Framer)(nil)
)
