package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pflex-robotics/tcs-go/pkg/log"
)

// ConnectionState is the lifecycle state of a Conn.
type ConnectionState int32

const (
	// StateDisconnected indicates no socket is held.
	StateDisconnected ConnectionState = iota

	// StateConnected indicates an open socket.
	StateConnected
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Defaults.
const (
	// DefaultPort is the controller's TCS port.
	DefaultPort = 10100

	// DefaultTimeout is the default read, write and connect timeout.
	DefaultTimeout = 5 * time.Second
)

// ConnectionConfig configures a TCS connection.
type ConnectionConfig struct {
	// Timeout is the symmetric read/write timeout applied at connect time
	// when Connect is called with a zero timeout (default: 5s).
	Timeout time.Duration

	// MaxLineSize is the maximum line size (default: 4096).
	MaxLineSize int

	// Logger receives line and state events (optional).
	Logger log.Logger

	// OnStateChange is called after every state transition (optional).
	OnStateChange func(oldState, newState ConnectionState)
}

// DefaultConnectionConfig returns the default connection configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Timeout:     DefaultTimeout,
		MaxLineSize: DefaultMaxLineSize,
	}
}

// Conn is a client connection to a TCS controller. It is created
// disconnected and may be connected again after Close.
type Conn struct {
	config ConnectionConfig

	// Network connection, guarded by mu
	conn         net.Conn
	framer       *Framer
	connID       string
	readTimeout  time.Duration
	writeTimeout time.Duration

	state   atomic.Int32
	dialing atomic.Bool

	// dial replaces net.Dialer in tests.
	dial func(ctx context.Context, network, address string) (net.Conn, error)

	// Synchronization
	mu      sync.RWMutex
	readMu  sync.Mutex
	writeMu sync.Mutex
}

// NewConn creates a new connection (not yet connected).
func NewConn(config ConnectionConfig) *Conn {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxLineSize == 0 {
		config.MaxLineSize = DefaultMaxLineSize
	}

	c := &Conn{
		config:       config,
		readTimeout:  config.Timeout,
		writeTimeout: config.Timeout,
	}
	c.state.Store(int32(StateDisconnected))
	return c
}

// State returns the current connection state.
func (c *Conn) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// ConnID returns the identifier of the current (or last) connection.
func (c *Conn) ConnID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connID
}

// Connect dials address and sets both read and write timeouts to timeout,
// or to the configured default when timeout is zero. The dial itself is
// bounded by the same timeout and by ctx.
//
// DefaultPort is used when address has no port.
func (c *Conn) Connect(ctx context.Context, address string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.config.Timeout
	}

	if c.State() == StateConnected || !c.dialing.CompareAndSwap(false, true) {
		return ErrAlreadyConnected
	}
	defer c.dialing.Store(false)

	target, err := WithDefaultPort(address)
	if err != nil {
		return &ConnectionError{Address: address, Cause: err}
	}

	// Dial without mu so accessors stay responsive for the whole dial.
	dial := c.dial
	if dial == nil {
		dial = (&net.Dialer{Timeout: timeout}).DialContext
	}
	conn, err := dial(ctx, "tcp", target)
	if err != nil {
		return &ConnectionError{Address: target, Cause: err}
	}

	connID := uuid.New().String()
	framer := NewFramerWithMaxSize(conn, c.config.MaxLineSize)
	if c.config.Logger != nil {
		framer.SetLogger(c.config.Logger, connID, log.RoleClient)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn = conn
	c.framer = framer
	c.connID = connID
	c.readTimeout = timeout
	c.writeTimeout = timeout

	c.state.Store(int32(StateConnected))
	c.notifyStateChange(conn, StateDisconnected, StateConnected, "")

	return nil
}

// Close shuts the socket down and returns to StateDisconnected.
// Closing a disconnected Conn is a no-op.
func (c *Conn) Close() error {
	return c.teardown("closed by client")
}

// SetReadTimeout overrides the read timeout for subsequent reads.
// Zero disables the read deadline.
func (c *Conn) SetReadTimeout(d time.Duration) {
	c.mu.Lock()
	c.readTimeout = d
	c.mu.Unlock()
}

// SetWriteTimeout overrides the write timeout for subsequent writes.
// Zero disables the write deadline.
func (c *Conn) SetWriteTimeout(d time.Duration) {
	c.mu.Lock()
	c.writeTimeout = d
	c.mu.Unlock()
}

// ReadTimeout returns the current read timeout.
func (c *Conn) ReadTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readTimeout
}

// WriteTimeout returns the current write timeout.
func (c *Conn) WriteTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writeTimeout
}

// WriteLine writes one complete line. Any failure closes the connection
// and is returned as *IOError.
func (c *Conn) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	conn, framer, timeout := c.conn, c.framer, c.writeTimeout
	c.mu.RUnlock()

	if conn == nil || c.State() != StateConnected {
		return ErrNotConnected
	}

	if timeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(timeout))
		defer conn.SetWriteDeadline(time.Time{})
	}

	if err := framer.WriteLine(line); err != nil {
		if errors.Is(err, ErrLineEmpty) || errors.Is(err, ErrLineTooLong) {
			// Rejected before anything was written.
			return err
		}
		c.teardown("write failed: " + err.Error())
		return &IOError{Op: "write", Cause: err}
	}
	return nil
}

// ReadLine reads one line using the current read timeout.
func (c *Conn) ReadLine() (string, error) {
	return c.ReadLineTimeout(0)
}

// ReadLineTimeout reads one line. A positive timeout overrides the
// configured read timeout for this read only.
//
// An expired deadline returns ErrTimeout and the connection stays open.
// Any other failure closes the connection and is returned as *IOError.
func (c *Conn) ReadLineTimeout(timeout time.Duration) (string, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	c.mu.RLock()
	conn, framer := c.conn, c.framer
	if timeout <= 0 {
		timeout = c.readTimeout
	}
	c.mu.RUnlock()

	if conn == nil || c.State() != StateConnected {
		return "", ErrNotConnected
	}

	if timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(timeout))
		defer conn.SetReadDeadline(time.Time{})
	} else {
		conn.SetReadDeadline(time.Time{})
	}

	line, err := framer.ReadLine()
	if err != nil {
		if isTimeout(err) {
			c.logError(conn, "read", err)
			return "", fmt.Errorf("%w: no line within %s", ErrTimeout, timeout)
		}
		c.teardown("read failed: " + err.Error())
		return "", &IOError{Op: "read", Cause: err}
	}
	return line, nil
}

// Buffered returns the number of bytes received for a line that is not
// yet complete, e.g. after a read timed out mid-line.
func (c *Conn) Buffered() int {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.framer == nil {
		return 0
	}
	return c.framer.Buffered()
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn != nil {
		return c.conn.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn != nil {
		return c.conn.RemoteAddr()
	}
	return nil
}

// teardown releases the socket exactly once per connection.
func (c *Conn) teardown(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	conn := c.conn
	err := conn.Close()
	c.conn = nil
	c.framer = nil

	c.state.Store(int32(StateDisconnected))
	c.notifyStateChange(conn, StateConnected, StateDisconnected, reason)

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// notifyStateChange logs the transition and calls the state hook.
// Called with mu held.
func (c *Conn) notifyStateChange(conn net.Conn, oldState, newState ConnectionState, reason string) {
	if c.config.Logger != nil {
		c.config.Logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: c.connID,
			Layer:        log.LayerTransport,
			Category:     log.CategoryState,
			LocalRole:    log.RoleClient,
			RemoteAddr:   conn.RemoteAddr().String(),
			StateChange: &log.StateChangeEvent{
				OldState: oldState.String(),
				NewState: newState.String(),
				Reason:   reason,
			},
		})
	}
	if c.config.OnStateChange != nil {
		c.config.OnStateChange(oldState, newState)
	}
}

func (c *Conn) logError(conn net.Conn, op string, err error) {
	if c.config.Logger == nil {
		return
	}
	c.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ConnID(),
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		LocalRole:    log.RoleClient,
		RemoteAddr:   conn.RemoteAddr().String(),
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: op,
		},
	})
}

// WithDefaultPort returns address with DefaultPort appended when it has
// no port. Bare IPv6 literals are bracketed.
func WithDefaultPort(address string) (string, error) {
	if address == "" {
		return "", errors.New("empty address")
	}
	if ip := net.ParseIP(address); ip != nil {
		return net.JoinHostPort(address, strconv.Itoa(DefaultPort)), nil
	}
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		var addrErr *net.AddrError
		if errors.As(err, &addrErr) && addrErr.Err == "missing port in address" {
			return net.JoinHostPort(address, strconv.Itoa(DefaultPort)), nil
		}
		return "", err
	}
	if host == "" {
		return "", fmt.Errorf("missing host in address %q", address)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return address, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
