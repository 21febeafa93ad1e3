// Package log provides structured protocol capture for TCS connections.
//
// This package defines the Logger interface and Event types for recording
// what crosses a TCS socket at two layers: raw lines at the transport layer
// and decoded requests and responses at the wire layer. It is separate from
// operational logging (slog). Protocol capture is a machine-readable trace
// for debugging controller sessions after the fact.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	config := tcs.DefaultConfig()
//
//	// For development: log to console via slog
//	config.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	config.Logger, _ = log.NewFileLogger("/var/log/pflex/cell1.tcslog")
//
//	// Both: use MultiLogger
//	config.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Transport: raw request and response lines (LineEvent)
//   - Wire: decoded requests and classified responses (MessageEvent)
//   - State: connection lifecycle changes (StateChangeEvent)
//   - Error: timeouts, I/O failures and protocol violations (ErrorEventData)
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with integer keys.
// Reader iterates a file with optional filtering.
package log
