package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pflex-robotics/tcs-go/pkg/log"
)

// ErrTooManyConnections is reported through OnError when a client is
// turned away because MaxConnections are open.
var ErrTooManyConnections = errors.New("too many connections")

// ServerConfig configures a line server.
type ServerConfig struct {
	// Address to listen on (default ":10100"; "127.0.0.1:0" for tests).
	Address string

	// MaxLineSize is the maximum request line size (default: 4096).
	MaxLineSize int

	// IdleTimeout closes a connection that sends nothing for this long.
	// Zero keeps idle connections open.
	IdleTimeout time.Duration

	// MaxConnections caps concurrently open connections. Zero is unlimited.
	MaxConnections int

	// Logger receives line and state events (optional).
	Logger log.Logger

	// OnConnect is called after a connection is registered.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called after a connection is closed and unregistered.
	OnDisconnect func(conn *ServerConn)

	// OnLine is called for every request line, in arrival order, from the
	// connection's goroutine. Required.
	OnLine func(conn *ServerConn, line string)

	// OnError is called for accept failures (conn is nil) and read
	// failures other than an orderly close.
	OnError func(conn *ServerConn, err error)
}

// Server accepts TCP clients and hands their request lines to OnLine.
type Server struct {
	config   ServerConfig
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.Mutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a line server. It does not listen until Start.
func NewServer(config ServerConfig) (*Server, error) {
	if config.OnLine == nil {
		return nil, fmt.Errorf("OnLine handler is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxLineSize == 0 {
		config.MaxLineSize = DefaultMaxLineSize
	}
	if config.IdleTimeout < 0 || config.MaxConnections < 0 {
		return nil, fmt.Errorf("IdleTimeout and MaxConnections must not be negative")
	}

	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}, nil
}

// Start listens on the configured address and accepts clients until Stop
// is called or ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(2)
	go s.acceptLoop()
	go func() {
		defer s.wg.Done()
		<-s.ctx.Done()
		s.shutdown()
	}()

	return nil
}

// Stop closes the listener and every open connection, then waits for all
// connection goroutines to return. Stopping a stopped server is a no-op.
func (s *Server) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	return nil
}

// shutdown runs once, when the server context ends.
func (s *Server) shutdown() {
	if !s.running.Swap(false) {
		return
	}
	s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.reportError(nil, fmt.Errorf("accept error: %w", err))
			continue
		}

		sconn := s.newServerConn(conn)
		if err := s.register(sconn); err != nil {
			conn.Close()
			s.reportError(nil, fmt.Errorf("rejected %s: %w", conn.RemoteAddr(), err))
			continue
		}

		s.wg.Add(1)
		go s.serve(sconn)
	}
}

func (s *Server) newServerConn(conn net.Conn) *ServerConn {
	connID := uuid.New().String()
	framer := NewFramerWithMaxSize(conn, s.config.MaxLineSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, connID, log.RoleController)
	}
	return &ServerConn{
		conn:       conn,
		framer:     framer,
		server:     s,
		connID:     connID,
		remoteAddr: conn.RemoteAddr(),
		closeCh:    make(chan struct{}),
	}
}

// register adds conn to the open set unless the server is stopping or
// full.
func (s *Server) register(conn *ServerConn) error {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	if !s.running.Load() {
		return ErrConnectionClosed
	}
	if s.config.MaxConnections > 0 && len(s.conns) >= s.config.MaxConnections {
		return ErrTooManyConnections
	}
	s.conns[conn] = struct{}{}
	return nil
}

func (s *Server) unregister(conn *ServerConn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

// serve runs one connection from registration to close.
func (s *Server) serve(conn *ServerConn) {
	defer s.wg.Done()

	s.logState(conn, StateDisconnected, StateConnected, "")
	if s.config.OnConnect != nil {
		s.config.OnConnect(conn)
	}

	reason := conn.readLoop()
	conn.Close()
	s.unregister(conn)

	s.logState(conn, StateConnected, StateDisconnected, reason)
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(conn)
	}
}

func (s *Server) reportError(conn *ServerConn, err error) {
	if s.config.OnError != nil {
		s.config.OnError(conn, err)
	}
}

func (s *Server) logState(c *ServerConn, oldState, newState ConnectionState, reason string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		LocalRole:    log.RoleController,
		RemoteAddr:   c.remoteAddr.String(),
		StateChange: &log.StateChangeEvent{
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})
}

// ServerConn is one client connection on a Server.
type ServerConn struct {
	conn       net.Conn
	framer     LineReadWriter
	server     *Server
	connID     string
	remoteAddr net.Addr

	closeCh   chan struct{}
	closeOnce sync.Once
}

// RemoteAddr returns the client's address.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// ConnID returns the connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// WriteLine sends a complete line to the client.
func (c *ServerConn) WriteLine(line string) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteLine(line)
}

// Close closes the connection. Safe to call repeatedly and from OnLine.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

// Done is closed when the connection is closed.
func (c *ServerConn) Done() <-chan struct{} {
	return c.closeCh
}

func (c *ServerConn) closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// readLoop delivers lines to OnLine until the connection ends and returns
// the reason.
func (c *ServerConn) readLoop() string {
	idle := c.server.config.IdleTimeout

	for {
		if idle > 0 {
			c.conn.SetReadDeadline(time.Now().Add(idle))
		}

		line, err := c.framer.ReadLine()
		if err != nil {
			switch {
			case c.closed():
				return "closed by server"
			case errors.Is(err, io.EOF):
				return "closed by client"
			case isTimeout(err):
				return "idle timeout"
			}
			c.server.reportError(c, err)
			return "read failed: " + err.Error()
		}

		c.server.config.OnLine(c, line)
		if c.closed() {
			return "closed by server"
		}
	}
}
