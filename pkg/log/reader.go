package log

import (
	"errors"
	"io"
	"iter"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events from a capture. Zero fields match everything.
type Filter struct {
	ConnectionID string
	Direction    *Direction
	Layer        *Layer
	Category     *Category

	// Command matches wire-layer message events by verb. Events without a
	// Message never match a non-empty Command.
	Command string

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time
}

// Match reports whether event passes every set criterion.
func (f Filter) Match(event Event) bool {
	switch {
	case f.ConnectionID != "" && f.ConnectionID != event.ConnectionID:
		return false
	case f.Direction != nil && *f.Direction != event.Direction:
		return false
	case f.Layer != nil && *f.Layer != event.Layer:
		return false
	case f.Category != nil && *f.Category != event.Category:
		return false
	case f.Command != "" && (event.Message == nil || event.Message.Command != f.Command):
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	return true
}

// Reader decodes a stream of captured events.
type Reader struct {
	src     io.Reader
	closer  io.Closer
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a capture file and yields every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a capture file and yields only events matching
// filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewStreamReader(f, filter)
	r.closer = f
	return r, nil
}

// NewStreamReader decodes events from src. Close does not close src.
func NewStreamReader(src io.Reader, filter Filter) *Reader {
	return &Reader{src: src, decoder: NewDecoder(src), filter: filter}
}

// Next returns the next matching event. It returns io.EOF after the last
// complete event and a decode error when the stream ends inside one.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.decoder.Decode(&event)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// Events iterates the remaining matching events. A decode error is yielded
// once and ends the iteration.
func (r *Reader) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			event, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

// All collects the remaining matching events.
func (r *Reader) All() ([]Event, error) {
	var events []Event
	for event, err := range r.Events() {
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Close closes the capture file, if the reader opened one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Exchange is one wire-layer request and the response that answered it.
// Response is nil for fire-and-forget requests and for requests whose
// reply was never read.
type Exchange struct {
	ConnectionID string
	Request      *MessageEvent
	Response     *MessageEvent
	At           time.Time
}

// Exchanges pairs wire-layer requests with their responses per connection.
// A connection has at most one request in flight, so a response always
// answers the latest unanswered request on the same connection.
func Exchanges(events []Event) []Exchange {
	var out []Exchange
	pending := make(map[string]int)

	for _, e := range events {
		if e.Layer != LayerWire || e.Message == nil {
			continue
		}
		switch e.Message.Type {
		case MessageTypeRequest:
			out = append(out, Exchange{ConnectionID: e.ConnectionID, Request: e.Message, At: e.Timestamp})
			if e.Message.NoWait {
				delete(pending, e.ConnectionID)
			} else {
				pending[e.ConnectionID] = len(out) - 1
			}
		case MessageTypeResponse:
			if i, ok := pending[e.ConnectionID]; ok {
				out[i].Response = e.Message
				delete(pending, e.ConnectionID)
			}
		}
	}
	return out
}
