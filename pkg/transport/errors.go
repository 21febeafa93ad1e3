package transport

import (
	"errors"
	"fmt"
)

// Connection errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrConnectionClosed = errors.New("connection closed")

	// ErrTimeout indicates a read deadline expired before a full line
	// arrived. The connection stays open.
	ErrTimeout = errors.New("read timeout")
)

// ConnectionError reports a failure to establish a connection.
type ConnectionError struct {
	Address string
	Cause   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Address, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// IOError reports a read or write failure on an established connection.
// The connection is closed when an IOError is returned.
type IOError struct {
	// Op is "read" or "write".
	Op    string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Cause)
}

func (e *IOError) Unwrap() error {
	return e.Cause
}
