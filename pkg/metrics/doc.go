// Package metrics holds the Prometheus collectors for TCS clients and the
// mock controller.
//
// Both collector sets are nil-safe: every Record method on a nil receiver is
// a no-op, so components accept an optional *ClientMetrics or
// *ServerMetrics without checking for it.
package metrics
