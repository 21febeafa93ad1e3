package wire

import (
	"strconv"
	"strings"
)

// Status codes with a defined meaning. Any other integer is a controller
// error identified by its value only.
const (
	// StatusSuccess indicates the command completed without error.
	StatusSuccess = 0

	// StatusWarning indicates the command completed with a warning.
	StatusWarning = 1

	// StatusPowerNotEnabled indicates motor power is off.
	StatusPowerNotEnabled = -1046

	// StatusGenericError is the code controllers use for malformed requests.
	StatusGenericError = -1
)

// Kind classifies a response outcome.
type Kind uint8

const (
	// KindSuccess indicates status code 0.
	KindSuccess Kind = iota

	// KindWarning indicates status code 1.
	KindWarning

	// KindError indicates any other status code.
	KindError
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "SUCCESS"
	case KindWarning:
		return "WARNING"
	case KindError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Outcome is a classified response.
type Outcome struct {
	Kind Kind

	// Code is the numeric status code.
	Code int

	// Condition is set for recognized error codes.
	Condition Condition

	// Payload holds the response fields for success and warning outcomes.
	// It is nil for errors.
	Payload []string
}

// OK returns true for success and warning outcomes.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess || o.Kind == KindWarning
}

// Err returns nil for success and warning outcomes, and a *DomainError
// otherwise.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return &DomainError{Code: o.Code, Condition: o.Condition}
}

// Classify interprets decoded response tokens.
// A single empty trailing token, left by the "<code> \r\n" form, is dropped
// from the payload.
func Classify(tokens Tokens) (Outcome, error) {
	if len(tokens) == 0 || tokens[0] == "" {
		return Outcome{}, &ProtocolError{
			Line:   strings.Join(tokens, Separator),
			Reason: "missing status code",
		}
	}

	code, err := strconv.Atoi(tokens[0])
	if err != nil {
		return Outcome{}, &ProtocolError{
			Line:   strings.Join(tokens, Separator),
			Reason: "invalid status code",
			Cause:  err,
		}
	}

	switch code {
	case StatusSuccess:
		return Outcome{Kind: KindSuccess, Code: code, Payload: payload(tokens)}, nil
	case StatusWarning:
		return Outcome{Kind: KindWarning, Code: code, Payload: payload(tokens)}, nil
	case StatusPowerNotEnabled:
		return Outcome{Kind: KindError, Code: code, Condition: ConditionPowerNotEnabled}, nil
	default:
		return Outcome{Kind: KindError, Code: code}, nil
	}
}

// ClassifyLine decodes and classifies a raw response line.
func ClassifyLine(line string) (Outcome, error) {
	return Classify(Decode(line))
}

func payload(tokens Tokens) []string {
	p := tokens[1:]
	if len(p) > 0 && p[len(p)-1] == "" {
		p = p[:len(p)-1]
	}
	out := make([]string, len(p))
	copy(out, p)
	return out
}
