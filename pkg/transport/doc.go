// Package transport provides the TCS transport layer.
//
// The transport layer handles:
//   - Plain TCP connections to the controller (well-known port 10100)
//   - Line framing with an accumulating reader and a size budget
//   - Independent read and write deadlines, overridable per read
//   - Connection state management and I/O error classification
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   Command / status tokens      │
//	├────────────────────────────────┤
//	│  Line framing (\n and \r\n)    │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Errors
//
// Dial failures are reported as *ConnectionError. A read whose deadline
// expires returns ErrTimeout and leaves the connection open, since callers
// such as liveness probes treat silence as an expected answer. Any other
// read or write failure, including the peer closing the socket, is an
// *IOError and tears the connection down. There is no automatic reconnect.
//
// # Server
//
// Server is a small line-oriented TCP server: every request line read from a
// client is passed to a Handler and the returned line, if any, is written
// back. The mock robot controller is built on it.
package transport
