package transport_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pflex-robotics/tcs-go/pkg/log"
	"github.com/pflex-robotics/tcs-go/pkg/transport"
)

type eventFunc func(log.Event)

func (f eventFunc) Log(e log.Event) { f(e) }

func startUpperServer(t *testing.T, config transport.ServerConfig) *transport.Server {
	t.Helper()

	config.Address = "127.0.0.1:0"
	if config.OnLine == nil {
		config.OnLine = func(conn *transport.ServerConn, line string) {
			reply := strings.ToUpper(strings.TrimRight(line, "\n"))
			if reply == "EXIT" {
				conn.WriteLine("0 \r\n")
				conn.Close()
				return
			}
			conn.WriteLine("0 " + reply + "\r\n")
		}
	}

	server, err := transport.NewServer(config)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, server.Start(ctx))
	t.Cleanup(func() { server.Stop() })
	return server
}

func TestNewServerRequiresHandler(t *testing.T) {
	_, err := transport.NewServer(transport.ServerConfig{})
	assert.Error(t, err)
}

func TestServerExchangesLines(t *testing.T) {
	server := startUpperServer(t, transport.ServerConfig{})

	conn := transport.NewConn(transport.DefaultConnectionConfig())
	require.NoError(t, conn.Connect(context.Background(), server.Addr().String(), time.Second))
	defer conn.Close()

	require.NoError(t, conn.WriteLine("hello\n"))
	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "0 HELLO\r\n", line)
}

func TestServerHandlerCanClose(t *testing.T) {
	var disconnected atomic.Int32
	server := startUpperServer(t, transport.ServerConfig{
		OnDisconnect: func(*transport.ServerConn) { disconnected.Add(1) },
	})

	raw, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	defer raw.Close()

	_, err = raw.Write([]byte("exit\n"))
	require.NoError(t, err)

	r := bufio.NewReader(raw)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "0 \r\n", line)

	_, err = r.ReadString('\n')
	assert.Error(t, err, "server should close after exit")

	assert.Eventually(t, func() bool { return disconnected.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return server.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServerMultipleClients(t *testing.T) {
	var connected atomic.Int32
	server := startUpperServer(t, transport.ServerConfig{
		OnConnect: func(*transport.ServerConn) { connected.Add(1) },
	})

	const clients = 5
	var wg sync.WaitGroup
	errs := make(chan error, clients)

	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := transport.NewConn(transport.ConnectionConfig{})
			if err := conn.Connect(context.Background(), server.Addr().String(), time.Second); err != nil {
				errs <- err
				return
			}
			defer conn.Close()

			for j := 0; j < 10; j++ {
				if err := conn.WriteLine("nop\n"); err != nil {
					errs <- err
					return
				}
				if _, err := conn.ReadLine(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("client error: %v", err)
	}
	assert.Equal(t, int32(clients), connected.Load())
}

func TestServerStopClosesConnections(t *testing.T) {
	server := startUpperServer(t, transport.ServerConfig{})

	conn := transport.NewConn(transport.ConnectionConfig{})
	require.NoError(t, conn.Connect(context.Background(), server.Addr().String(), time.Second))
	defer conn.Close()

	require.Eventually(t, func() bool { return server.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, server.Stop())
	require.NoError(t, server.Stop(), "Stop should be idempotent")

	_, err := conn.ReadLine()
	assert.Error(t, err)
	assert.Equal(t, transport.StateDisconnected, conn.State())
}

func TestServerLogsControllerRole(t *testing.T) {
	var mu sync.Mutex
	var states []string

	server := startUpperServer(t, transport.ServerConfig{
		Logger: eventFunc(func(e log.Event) {
			if e.StateChange == nil {
				return
			}
			mu.Lock()
			states = append(states, e.LocalRole.String()+":"+e.StateChange.NewState)
			mu.Unlock()
		}),
	})

	conn := transport.NewConn(transport.ConnectionConfig{})
	require.NoError(t, conn.Connect(context.Background(), server.Addr().String(), time.Second))
	require.NoError(t, conn.WriteLine("exit\n"))
	_, err := conn.ReadLine()
	require.NoError(t, err)
	conn.Close()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"CONTROLLER:CONNECTED", "CONTROLLER:DISCONNECTED"}, states)
}

func TestServerDropsIdleClients(t *testing.T) {
	var disconnected atomic.Int32
	server := startUpperServer(t, transport.ServerConfig{
		IdleTimeout:  50 * time.Millisecond,
		OnDisconnect: func(*transport.ServerConn) { disconnected.Add(1) },
	})

	raw, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	defer raw.Close()

	raw.SetReadDeadline(time.Now().Add(time.Second))
	_, err = bufio.NewReader(raw).ReadString('\n')
	assert.Error(t, err, "idle client should be disconnected")
	assert.Eventually(t, func() bool { return disconnected.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestServerRejectsBeyondMaxConnections(t *testing.T) {
	rejected := make(chan error, 1)
	server := startUpperServer(t, transport.ServerConfig{
		MaxConnections: 1,
		OnError: func(conn *transport.ServerConn, err error) {
			if conn == nil {
				select {
				case rejected <- err:
				default:
				}
			}
		},
	})

	first := transport.NewConn(transport.ConnectionConfig{})
	require.NoError(t, first.Connect(context.Background(), server.Addr().String(), time.Second))
	defer first.Close()
	require.Eventually(t, func() bool { return server.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)

	second, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	select {
	case err := <-rejected:
		assert.ErrorIs(t, err, transport.ErrTooManyConnections)
	case <-time.After(time.Second):
		t.Fatal("second client was not rejected")
	}
	assert.Equal(t, 1, server.ConnectionCount())

	require.NoError(t, first.WriteLine("still here\n"))
	line, err := first.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "0 STILL HERE\r\n", line)
}

func TestNewServerRejectsNegativeLimits(t *testing.T) {
	onLine := func(*transport.ServerConn, string) {}
	_, err := transport.NewServer(transport.ServerConfig{OnLine: onLine, IdleTimeout: -time.Second})
	assert.Error(t, err)
	_, err = transport.NewServer(transport.ServerConfig{OnLine: onLine, MaxConnections: -1})
	assert.Error(t, err)
}
