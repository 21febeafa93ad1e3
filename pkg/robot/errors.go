package robot

import (
	"errors"
	"fmt"

	"github.com/pflex-robotics/tcs-go/pkg/wire"
)

// ErrNoRail is returned by rail commands on a robot configured without a
// rail.
var ErrNoRail = errors.New("robot has no rail")

// FieldCountError indicates a response with fewer payload fields than the
// command defines.
type FieldCountError struct {
	Command wire.Command
	Want    int
	Got     int
}

func (e *FieldCountError) Error() string {
	return fmt.Sprintf("%s: expected %d fields, got %d", e.Command, e.Want, e.Got)
}

// FieldError indicates a payload field that could not be parsed.
type FieldError struct {
	Command wire.Command
	Index   int
	Value   string
	Cause   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: field %d %q: %v", e.Command, e.Index, e.Value, e.Cause)
}

func (e *FieldError) Unwrap() error {
	return e.Cause
}
