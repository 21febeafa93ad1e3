package robot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/pflex-robotics/tcs-go/pkg/log"
	"github.com/pflex-robotics/tcs-go/pkg/metrics"
	"github.com/pflex-robotics/tcs-go/pkg/retry"
	"github.com/pflex-robotics/tcs-go/pkg/tcs"
	"github.com/pflex-robotics/tcs-go/pkg/transport"
	"github.com/pflex-robotics/tcs-go/pkg/wire"
)

// Controller constants.
const (
	// DefaultRobotIndex is the robot addressed by selectRobot and attach.
	DefaultRobotIndex = 1

	// GripperAxis is the joint driven by MoveGripper.
	GripperAxis = 5
)

// Requester executes TCS requests. Implemented by *tcs.Client.
type Requester interface {
	Do(ctx context.Context, req tcs.Request) (wire.Outcome, error)
	Disconnect() error
}

var _ Requester = (*tcs.Client)(nil)

// Config configures a Robot.
type Config struct {
	// HasRail enables rail commands.
	HasRail bool

	// Timeout is the connect, read and write timeout (default: 5s).
	Timeout time.Duration

	// Poll controls WaitForHomed.
	Poll retry.Policy

	// Logger receives protocol events (optional).
	Logger log.Logger

	// Metrics records request outcomes (optional).
	Metrics *metrics.ClientMetrics

	// Slog receives a debug record per robot call (optional).
	Slog *slog.Logger
}

// DefaultConfig returns the default robot configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: transport.DefaultTimeout,
		Poll: retry.Policy{
			Backoff: retry.BackoffConfig{
				Initial:    100 * time.Millisecond,
				Max:        time.Second,
				Multiplier: 2,
				Jitter:     0.1,
			},
		},
	}
}

// Robot is a connected PFlex arm.
type Robot struct {
	client  Requester
	hasRail bool
	poll    retry.Policy
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the controller at address and returns a Robot.
func Dial(ctx context.Context, address string, config Config) (*Robot, error) {
	if config.Timeout == 0 {
		config.Timeout = transport.DefaultTimeout
	}

	clientConfig := tcs.DefaultConfig()
	clientConfig.Timeout = config.Timeout
	clientConfig.Logger = config.Logger
	clientConfig.Metrics = config.Metrics

	client := tcs.NewClient(clientConfig)
	if err := client.Connect(ctx, address, config.Timeout); err != nil {
		return nil, err
	}
	return New(client, config), nil
}

// New wraps an existing requester.
func New(client Requester, config Config) *Robot {
	logger := config.Slog
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Robot{
		client:  client,
		hasRail: config.HasRail,
		poll:    config.Poll,
		logger:  logger,
	}
}

// Close ends the session with exit and disconnects. Only the first call
// has an effect.
func (r *Robot) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Debug("close")
		_, err := r.client.Do(context.Background(), tcs.Request{Command: wire.CmdExit, NoWait: true})
		if err != nil && !errors.Is(err, transport.ErrNotConnected) {
			r.logger.Debug("exit failed", "error", err)
		}
		r.closeErr = r.client.Disconnect()
	})
	return r.closeErr
}

func (r *Robot) send(ctx context.Context, cmd wire.Command, args ...string) (wire.Outcome, error) {
	r.logger.Debug("request", "command", cmd.String())
	return r.client.Do(ctx, tcs.Request{Command: cmd, Args: args})
}

func (r *Robot) sendNoWait(ctx context.Context, cmd wire.Command, args ...string) error {
	r.logger.Debug("request", "command", cmd.String(), "no_wait", true)
	_, err := r.client.Do(ctx, tcs.Request{Command: cmd, Args: args, NoWait: true})
	return err
}

// exec sends a request and discards the payload.
func (r *Robot) exec(ctx context.Context, cmd wire.Command, args ...string) error {
	_, err := r.send(ctx, cmd, args...)
	return err
}

// fields sends a request and checks that the payload holds at least n
// fields.
func (r *Robot) fields(ctx context.Context, n int, cmd wire.Command, args ...string) ([]string, error) {
	out, err := r.send(ctx, cmd, args...)
	if err != nil {
		return nil, err
	}
	if len(out.Payload) < n {
		return nil, &FieldCountError{Command: cmd, Want: n, Got: len(out.Payload)}
	}
	return out.Payload, nil
}

func parseInt(cmd wire.Command, fields []string, i int) (int, error) {
	v, err := strconv.Atoi(fields[i])
	if err != nil {
		return 0, &FieldError{Command: cmd, Index: i, Value: fields[i], Cause: err}
	}
	return v, nil
}

func parseFloats(cmd wire.Command, fields []string) ([6]float64, error) {
	var v [6]float64
	for i := range v {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return v, &FieldError{Command: cmd, Index: i, Value: fields[i], Cause: err}
		}
		v[i] = f
	}
	return v, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
