package log

import "time"

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates line flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole indicates whether this side is the client or the controller.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Line        *LineEvent        `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Wire layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Connection state
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction of a line relative to the side recording it.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// Layer is the protocol layer that captured an event.
type Layer uint8

const (
	LayerTransport   Layer = 0 // raw lines
	LayerWire        Layer = 1 // decoded requests and classified responses
	LayerApplication Layer = 2 // robot API
)

// Category classifies an event.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 2
	CategoryError   Category = 3
)

// Role is the end of the socket that recorded an event.
type Role uint8

const (
	RoleClient Role = 0
	// RoleController is the controller or a simulation of it.
	RoleController Role = 1
)

var (
	directionNames = []string{"IN", "OUT"}
	layerNames     = []string{"TRANSPORT", "WIRE", "APPLICATION"}
	categoryNames  = []string{"MESSAGE", "", "STATE", "ERROR"}
	roleNames      = []string{"CLIENT", "CONTROLLER"}
	messageNames   = []string{"REQUEST", "RESPONSE"}
)

// enumName looks v up in names; gaps and out-of-range values are UNKNOWN.
func enumName[T ~uint8](names []string, v T) string {
	if int(v) < len(names) && names[v] != "" {
		return names[v]
	}
	return "UNKNOWN"
}

func (d Direction) String() string   { return enumName(directionNames, d) }
func (l Layer) String() string       { return enumName(layerNames, l) }
func (c Category) String() string    { return enumName(categoryNames, c) }
func (r Role) String() string        { return enumName(roleNames, r) }
func (m MessageType) String() string { return enumName(messageNames, m) }

// LineEvent captures a raw protocol line at the transport layer.
type LineEvent struct {
	// Size is the line length in bytes including the terminator.
	Size int `cbor:"1,keyasint"`

	// Text is the line (may be truncated for long lines).
	Text string `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Text was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded request or classified response.
type MessageEvent struct {
	// Type distinguishes request from response.
	Type MessageType `cbor:"1,keyasint"`

	// Command is the wire verb of the request this event belongs to.
	Command string `cbor:"2,keyasint"`

	// Args are the request arguments.
	Args []string `cbor:"3,keyasint,omitempty"`

	// NoWait marks fire-and-forget requests.
	NoWait bool `cbor:"4,keyasint,omitempty"`

	// For responses: the status code.
	Code *int `cbor:"5,keyasint,omitempty"`

	// For responses: SUCCESS, WARNING or ERROR.
	Outcome string `cbor:"6,keyasint,omitempty"`

	// For responses: the payload fields.
	Payload []string `cbor:"7,keyasint,omitempty"`

	// RoundTrip is the duration from request write to response read.
	// Stored as nanoseconds.
	RoundTrip *time.Duration `cbor:"8,keyasint,omitempty"`
}

// MessageType distinguishes requests from responses.
type MessageType uint8

const (
	MessageTypeRequest  MessageType = 0
	MessageTypeResponse MessageType = 1
)

// StateChangeEvent captures connection lifecycle events.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the controller status code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}

// MaxLineTextSize is the maximum line text kept in a LineEvent.
const MaxLineTextSize = 1024

// NewLineEvent builds a LineEvent, truncating long lines.
func NewLineEvent(line string) *LineEvent {
	ev := &LineEvent{Size: len(line), Text: line}
	if len(line) > MaxLineTextSize {
		ev.Text = line[:MaxLineTextSize]
		ev.Truncated = true
	}
	return ev
}
