package tcs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pflex-robotics/tcs-go/pkg/log"
	"github.com/pflex-robotics/tcs-go/pkg/metrics"
	"github.com/pflex-robotics/tcs-go/pkg/transport"
	"github.com/pflex-robotics/tcs-go/pkg/wire"
)

// DefaultDrainTimeout bounds the wait for each unclaimed reply.
const DefaultDrainTimeout = 50 * time.Millisecond

// ErrInvalidCommand indicates a request with a command outside the
// vocabulary.
var ErrInvalidCommand = errors.New("invalid command")

// Config configures a Client.
type Config struct {
	// Timeout is the default read/write timeout (default: 5s).
	Timeout time.Duration

	// MaxLineSize is the maximum response line size (default: 4096).
	MaxLineSize int

	// DrainTimeout bounds the wait for each unclaimed reply before a
	// request that expects a response (default: 50ms). Negative disables
	// draining.
	DrainTimeout time.Duration

	// Logger receives line, message and state events (optional).
	Logger log.Logger

	// Metrics records request outcomes and latency (optional).
	Metrics *metrics.ClientMetrics
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      transport.DefaultTimeout,
		MaxLineSize:  transport.DefaultMaxLineSize,
		DrainTimeout: DefaultDrainTimeout,
	}
}

// Request is a single exchange with the controller.
type Request struct {
	Command wire.Command
	Args    []string

	// NoWait sends the request without reading a response.
	NoWait bool

	// ReadTimeout overrides the read timeout for this request only.
	ReadTimeout time.Duration
}

// Client sends requests to a TCS controller over one connection.
// It is safe for concurrent use; requests are serialized.
type Client struct {
	config Config
	conn   transport.ClientConnection

	// mu is held for a whole exchange.
	mu        sync.Mutex
	unclaimed int
}

// NewClient creates a disconnected client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = transport.DefaultTimeout
	}
	if config.MaxLineSize == 0 {
		config.MaxLineSize = transport.DefaultMaxLineSize
	}
	if config.DrainTimeout == 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}

	c := &Client{config: config}
	c.conn = transport.NewConn(transport.ConnectionConfig{
		Timeout:     config.Timeout,
		MaxLineSize: config.MaxLineSize,
		Logger:      config.Logger,
		OnStateChange: func(_, newState transport.ConnectionState) {
			config.Metrics.RecordConnected(newState == transport.StateConnected)
		},
	})
	return c
}

// Connect opens the connection. A zero timeout uses Config.Timeout for the
// dial and for subsequent reads and writes.
func (c *Client) Connect(ctx context.Context, address string, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.Connect(ctx, address, timeout); err != nil {
		return err
	}
	c.unclaimed = 0
	return nil
}

// Disconnect closes the connection. Calling it on a disconnected client is
// a no-op.
func (c *Client) Disconnect() error {
	return c.conn.Close()
}

// State returns the connection state.
func (c *Client) State() transport.ConnectionState {
	return c.conn.State()
}

// ConnectionID returns the identifier of the current (or last) connection.
func (c *Client) ConnectionID() string {
	return c.conn.ConnID()
}

// SetReadTimeout overrides the read timeout for subsequent requests.
func (c *Client) SetReadTimeout(d time.Duration) {
	c.conn.SetReadTimeout(d)
}

// ReadTimeout returns the current read timeout.
func (c *Client) ReadTimeout() time.Duration {
	return c.conn.ReadTimeout()
}

// Send writes a request and waits for its response.
func (c *Client) Send(ctx context.Context, cmd wire.Command, args ...string) (wire.Outcome, error) {
	return c.Do(ctx, Request{Command: cmd, Args: args})
}

// SendNoWait writes a request without reading a response.
func (c *Client) SendNoWait(ctx context.Context, cmd wire.Command, args ...string) error {
	_, err := c.Do(ctx, Request{Command: cmd, Args: args, NoWait: true})
	return err
}

// SendWithTimeout writes a request and waits up to timeout for its
// response.
func (c *Client) SendWithTimeout(ctx context.Context, timeout time.Duration, cmd wire.Command, args ...string) (wire.Outcome, error) {
	return c.Do(ctx, Request{Command: cmd, Args: args, ReadTimeout: timeout})
}

// Do performs one exchange.
//
// ctx is only checked before anything is written; a request in flight runs
// to completion or timeout. Error outcomes are returned both as the Outcome
// and as a *wire.DomainError.
func (c *Client) Do(ctx context.Context, req Request) (wire.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return wire.Outcome{}, err
	}
	if !req.Command.IsValid() {
		return wire.Outcome{}, fmt.Errorf("%w: %d", ErrInvalidCommand, req.Command)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn.State() != transport.StateConnected {
		return wire.Outcome{}, transport.ErrNotConnected
	}

	verb := req.Command.String()

	// stale is set when an unclaimed reply was cut off mid-line by the
	// drain window; its remainder precedes this request's reply.
	stale := false
	if !req.NoWait {
		var err error
		if stale, err = c.drain(); err != nil {
			c.config.Metrics.RecordRequest(verb, metrics.OutcomeIOError, 0)
			return wire.Outcome{}, readError(err)
		}
	}

	c.logRequest(req)

	start := time.Now()
	if err := c.conn.WriteLine(wire.Encode(req.Command, req.Args...)); err != nil {
		c.config.Metrics.RecordRequest(verb, metrics.OutcomeIOError, time.Since(start))
		return wire.Outcome{}, err
	}

	if req.NoWait {
		c.unclaimed++
		c.config.Metrics.RecordRequest(verb, metrics.OutcomeSent, 0)
		return wire.Outcome{Kind: wire.KindSuccess, Code: wire.StatusSuccess}, nil
	}

	line, err := c.readReply(req.ReadTimeout, stale)
	elapsed := time.Since(start)
	if err != nil {
		var protoErr *wire.ProtocolError
		switch {
		case errors.Is(err, transport.ErrTimeout):
			c.config.Metrics.RecordRequest(verb, metrics.OutcomeTimeout, elapsed)
		case errors.As(err, &protoErr):
			c.config.Metrics.RecordRequest(verb, metrics.OutcomeProtocol, elapsed)
			c.logError(req, err)
		default:
			c.config.Metrics.RecordRequest(verb, metrics.OutcomeIOError, elapsed)
		}
		return wire.Outcome{}, err
	}

	out, err := wire.ClassifyLine(line)
	if err != nil {
		c.config.Metrics.RecordRequest(verb, metrics.OutcomeProtocol, elapsed)
		c.logError(req, err)
		return wire.Outcome{}, err
	}

	c.config.Metrics.RecordRequest(verb, strings.ToLower(out.Kind.String()), elapsed)
	c.logResponse(req, out, elapsed)

	return out, out.Err()
}

// drain reads replies owed to earlier fire-and-forget or timed-out
// requests. A reply that does not show up within DrainTimeout is assumed
// never to arrive, unless part of it did: then drain reports stale and the
// caller discards the completed line ahead of its own reply. Called with mu
// held.
func (c *Client) drain() (stale bool, err error) {
	if c.unclaimed == 0 || c.config.DrainTimeout < 0 {
		c.unclaimed = 0
		return false, nil
	}

	discarded := 0
	defer func() { c.config.Metrics.RecordDiscarded(discarded) }()

	for c.unclaimed > 0 {
		line, err := c.conn.ReadLineTimeout(c.config.DrainTimeout)
		if err != nil {
			c.unclaimed = 0
			if errors.Is(err, transport.ErrTimeout) {
				return c.conn.Buffered() > 0, nil
			}
			return false, err
		}
		c.unclaimed--
		discarded++
		c.logDiscarded(line)
	}
	return false, nil
}

// readReply reads the response line for the request just written. With
// stale set, the first complete line is the tail of an older reply and is
// discarded. Both reads share one timeout budget. Called with mu held.
func (c *Client) readReply(timeout time.Duration, stale bool) (string, error) {
	if timeout <= 0 {
		timeout = c.conn.ReadTimeout()
	}
	deadline := time.Now().Add(timeout)

	for {
		budget := time.Duration(0)
		if timeout > 0 {
			if budget = time.Until(deadline); budget <= 0 {
				c.unclaimed++
				return "", fmt.Errorf("%w: no line within %s", transport.ErrTimeout, timeout)
			}
		}

		line, err := c.conn.ReadLineTimeout(budget)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				c.unclaimed++
				if stale {
					c.unclaimed++
				}
			}
			return "", readError(err)
		}
		if !stale {
			return line, nil
		}
		stale = false
		c.config.Metrics.RecordDiscarded(1)
		c.logDiscarded(line)
	}
}

// readError files an oversized response line under ProtocolError. The
// connection is already closed by then: the stream cannot be resynchronized
// once a line was cut.
func readError(err error) error {
	if errors.Is(err, transport.ErrLineTooLong) {
		return &wire.ProtocolError{Reason: "response line too long", Cause: err}
	}
	return err
}

func (c *Client) logRequest(req Request) {
	if c.config.Logger == nil {
		return
	}
	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.conn.ConnID(),
		Direction:    log.DirectionOut,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleClient,
		Message: &log.MessageEvent{
			Type:    log.MessageTypeRequest,
			Command: req.Command.String(),
			Args:    req.Args,
			NoWait:  req.NoWait,
		},
	})
}

func (c *Client) logResponse(req Request, out wire.Outcome, rtt time.Duration) {
	if c.config.Logger == nil {
		return
	}
	code := out.Code
	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.conn.ConnID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleClient,
		Message: &log.MessageEvent{
			Type:      log.MessageTypeResponse,
			Command:   req.Command.String(),
			Code:      &code,
			Outcome:   out.Kind.String(),
			Payload:   out.Payload,
			RoundTrip: &rtt,
		},
	})
}

func (c *Client) logDiscarded(line string) {
	if c.config.Logger == nil {
		return
	}
	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.conn.ConnID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		LocalRole:    log.RoleClient,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: "discarded unclaimed reply: " + strings.TrimRight(line, "\r\n"),
			Context: "drain",
		},
	})
}

func (c *Client) logError(req Request, err error) {
	if c.config.Logger == nil {
		return
	}
	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.conn.ConnID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		LocalRole:    log.RoleClient,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: req.Command.String(),
		},
	})
}
