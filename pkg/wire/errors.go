package wire

import (
	"errors"
	"fmt"
)

// Condition names a recognized controller error.
type Condition uint8

const (
	// ConditionNone indicates an error code without a recognized meaning.
	ConditionNone Condition = iota

	// ConditionPowerNotEnabled indicates motor power must be enabled first.
	ConditionPowerNotEnabled
)

// String returns the condition tag.
func (c Condition) String() string {
	switch c {
	case ConditionPowerNotEnabled:
		return "power-not-enabled"
	default:
		return ""
	}
}

// ErrPowerNotEnabled matches any DomainError carrying ConditionPowerNotEnabled
// via errors.Is.
var ErrPowerNotEnabled = errors.New("robot power not enabled")

// ProtocolError indicates a response line that does not follow the TCS
// response structure.
type ProtocolError struct {
	Line   string // The offending line, terminator stripped
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("protocol error: %s %q: %v", e.Reason, e.Line, e.Cause)
	}
	return fmt.Sprintf("protocol error: %s %q", e.Reason, e.Line)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// DomainError is a non-success, non-warning status reported by the controller.
type DomainError struct {
	Code      int
	Condition Condition
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Condition != ConditionNone {
		return fmt.Sprintf("controller error %d (%s)", e.Code, e.Condition)
	}
	return fmt.Sprintf("controller error %d", e.Code)
}

// Is reports whether target is the sentinel for this error's condition.
func (e *DomainError) Is(target error) bool {
	return target == ErrPowerNotEnabled && e.Condition == ConditionPowerNotEnabled
}
