package wire

import (
	"errors"
	"strconv"
	"strings"
)

// Line terminators and separators.
const (
	// RequestTerminator ends every request line.
	RequestTerminator = "\n"

	// ResponseTerminator ends every response line.
	ResponseTerminator = "\r\n"

	// Separator delimits tokens on both request and response lines.
	Separator = " "
)

// ErrEmptyRequest indicates a request line without a command verb.
var ErrEmptyRequest = errors.New("empty request line")

// Request is a command with its ordered arguments.
// Arguments are not validated; callers are responsible for their order and
// for keeping them free of whitespace.
type Request struct {
	Command Command
	Args    []string
}

// Line returns the encoded request line.
func (r Request) Line() string {
	return Encode(r.Command, r.Args...)
}

// Encode serializes a command and its arguments into a request line.
func Encode(cmd Command, args ...string) string {
	var b strings.Builder
	b.WriteString(cmd.String())
	if len(args) > 0 {
		b.WriteString(Separator)
		b.WriteString(strings.Join(args, Separator))
	}
	b.WriteString(RequestTerminator)
	return b.String()
}

// Tokens is a decoded response line. Tokens[0] is the status code.
type Tokens []string

// Decode splits a response line on single spaces and strips the line
// terminator from the trailing token. Consecutive spaces yield empty tokens.
func Decode(line string) Tokens {
	parts := strings.Split(line, Separator)
	last := len(parts) - 1
	parts[last] = strings.TrimSuffix(strings.TrimSuffix(parts[last], "\n"), "\r")
	return Tokens(parts)
}

// Fields tokenizes a request line the way a controller does: on runs of
// whitespace, ignoring the terminator.
func Fields(line string) []string {
	return strings.Fields(line)
}

// ParseRequest decodes a request line into a Request.
// The returned verb is set even when the command is unknown.
func ParseRequest(line string) (Request, string, error) {
	fields := Fields(line)
	if len(fields) == 0 {
		return Request{}, "", ErrEmptyRequest
	}
	cmd, err := ParseCommand(fields[0])
	if err != nil {
		return Request{}, fields[0], err
	}
	return Request{Command: cmd, Args: fields[1:]}, fields[0], nil
}

// EncodeResponse builds a response line from a status code and payload
// fields. The code is always followed by a separator, matching controller
// output such as "0 \r\n".
func EncodeResponse(code int, fields ...string) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(code))
	b.WriteString(Separator)
	b.WriteString(strings.Join(fields, Separator))
	b.WriteString(ResponseTerminator)
	return b.String()
}
