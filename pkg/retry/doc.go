// Package retry provides caller-side retry policies for TCS requests.
//
// The protocol client never retries on its own: a failed write tears the
// connection down and a timed-out read is reported as is. Callers that want
// to poll a controller until it reaches a state, or to redial after a lost
// connection, use the helpers here.
//
// # Backoff
//
// Delays grow exponentially from the initial value up to the maximum:
//
//	100ms, 200ms, 400ms, 800ms, 1.6s, 3.2s, 5s, 5s, ...
//
// Each delay gets random jitter added to keep several clients from polling
// one controller in lockstep:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package retry
