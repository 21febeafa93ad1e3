package mockrobot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pflex-robotics/tcs-go/pkg/transport"
	"github.com/pflex-robotics/tcs-go/pkg/wire"
)

// Robot is a simulated PFlex controller.
type Robot struct {
	config Config
	logger *slog.Logger
	server transport.TransportServer

	mu    sync.Mutex
	state State

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a mock robot. It does not listen until Start.
func New(config Config) (*Robot, error) {
	if config.Address == "" {
		config.Address = DefaultConfig().Address
	}
	if config.DriftInterval == 0 {
		config.DriftInterval = DefaultDriftInterval
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Slog
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Robot{
		config: config,
		logger: logger,
		state:  config.Initial,
	}

	server, err := transport.NewServer(transport.ServerConfig{
		Address:        config.Address,
		MaxLineSize:    config.MaxLineSize,
		IdleTimeout:    config.IdleTimeout,
		MaxConnections: config.MaxClients,
		Logger:         config.Logger,
		OnConnect:      r.onConnect,
		OnDisconnect: func(conn *transport.ServerConn) {
			r.logger.Info("client disconnected", "conn_id", conn.ConnID(), "remote", conn.RemoteAddr().String())
			r.config.Metrics.ConnectionClosed()
		},
		OnLine: r.onLine,
		OnError: func(conn *transport.ServerConn, err error) {
			if conn != nil {
				r.logger.Warn("connection error", "conn_id", conn.ConnID(), "error", err)
				return
			}
			r.logger.Warn("server error", "error", err)
		},
	})
	if err != nil {
		return nil, err
	}
	r.server = server

	return r, nil
}

// Start listens for clients and starts the free mode simulation.
func (r *Robot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	if err := r.server.Start(ctx); err != nil {
		cancel()
		return err
	}
	r.cancel = cancel

	r.wg.Add(1)
	go r.driftLoop(ctx)

	r.logger.Info("mock robot listening", "addr", r.server.Addr().String())
	return nil
}

// Stop closes all connections and stops the simulation.
func (r *Robot) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	err := r.server.Stop()
	r.wg.Wait()
	return err
}

// Addr returns the listen address.
func (r *Robot) Addr() net.Addr {
	return r.server.Addr()
}

// ConnectionCount returns the number of connected clients.
func (r *Robot) ConnectionCount() int {
	return r.server.ConnectionCount()
}

// Snapshot returns a copy of the current state.
func (r *Robot) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Update mutates the state under the state lock.
func (r *Robot) Update(fn func(s *State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.state)
}

func (r *Robot) onConnect(conn *transport.ServerConn) {
	r.logger.Info("client connected", "conn_id", conn.ConnID(), "remote", conn.RemoteAddr().String())
	r.config.Metrics.ConnectionOpened()
}

func (r *Robot) onLine(conn *transport.ServerConn, line string) {
	r.serve(conn, line)
}

// serve answers one request line on conn and closes conn after exit or a
// failed write.
func (r *Robot) serve(conn transport.ServerConnection, line string) {
	reply, closeAfter := r.Handle(line)

	verb := "?"
	if fields := wire.Fields(line); len(fields) > 0 {
		verb = fields[0]
	}
	code, _ := strconv.Atoi(strings.SplitN(reply, wire.Separator, 2)[0])
	r.config.Metrics.RecordCommand(verb, code, true)
	r.logger.Debug("command", "conn_id", conn.ConnID(), "request", strings.TrimSpace(line), "reply", strings.TrimRight(reply, "\r\n"))

	if err := conn.WriteLine(reply); err != nil {
		r.logger.Warn("failed to send reply", "conn_id", conn.ConnID(), "error", err)
		conn.Close()
		return
	}
	if closeAfter {
		r.logger.Info("client requested exit", "conn_id", conn.ConnID())
		conn.Close()
	}
}

// driftLoop moves the arm slowly while free mode is on.
func (r *Robot) driftLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.DriftInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.state.FreeMode {
				r.state.drift(r.config.DriftStep)
			}
			r.mu.Unlock()
		}
	}
}

// Handle computes the reply to one request line. closeAfter is set when
// the client asked to end the session.
//
// Handle takes the state lock only while reading or mutating state; the
// waitForEOM delay is spent outside it.
func (r *Robot) Handle(line string) (reply string, closeAfter bool) {
	req, verb, err := wire.ParseRequest(line)
	if err != nil {
		if verb == "" {
			return wire.EncodeResponse(wire.StatusSuccess, "Invalid", "command"), false
		}
		return wire.EncodeResponse(wire.StatusGenericError, "Unknown", "command:", verb), false
	}

	h, ok := handlers[req.Command]
	if !ok {
		return wire.EncodeResponse(wire.StatusGenericError, "Unknown", "command:", verb), false
	}

	if req.Command == wire.CmdWaitForEOM && r.config.WaitForEOMDelay > 0 {
		time.Sleep(r.config.WaitForEOMDelay)
	}

	r.mu.Lock()
	reply = h(&r.state, req.Args)
	r.mu.Unlock()

	return reply, req.Command == wire.CmdExit
}

// handler computes a reply from the state. It runs with the state lock held
// and must not block.
type handler func(s *State, args []string) string

var handlers = map[wire.Command]handler{
	wire.CmdNoOp:         ack,
	wire.CmdMode:         handleMode,
	wire.CmdPower:        handlePower,
	wire.CmdSelect:       handleSelect,
	wire.CmdAttach:       handleAttach,
	wire.CmdHome:         handleHome,
	wire.CmdHalt:         handleHalt,
	wire.CmdLoc:          handleLoc,
	wire.CmdLocXYZ:       requireArgs(7, ack),
	wire.CmdProfile:      requireArgs(9, ack),
	wire.CmdMove:         requirePower(ack),
	wire.CmdMoveToCart:   requirePower(requireArgs(6, handleMoveToCart)),
	wire.CmdMoveToJoints: requirePower(handleMoveToJoints),
	wire.CmdMotionState:  handleMotionState,
	wire.CmdMoveOneAxis:  requirePower(requireArgs(3, ack)),
	wire.CmdMoveRail:     handleMoveRail,
	wire.CmdGetParam:     requireArgs(1, handleGetParam),
	wire.CmdGetLocJoints: handleWhereJ,
	wire.CmdGetLocCart:   handleWhereC,
	wire.CmdFreeMode:     requireArgs(1, handleFreeMode),
	wire.CmdSystemSpeed:  handleSystemSpeed,
	wire.CmdPayload:      requirePower(ack),
	wire.CmdWaitForEOM:   ack,
	wire.CmdExit:         ack,
}

func success(fields ...string) string {
	return wire.EncodeResponse(wire.StatusSuccess, fields...)
}

func failure(code int, message string) string {
	return wire.EncodeResponse(code, strings.Fields(message)...)
}

func ack(*State, []string) string {
	return success()
}

func requirePower(next handler) handler {
	return func(s *State, args []string) string {
		if !s.Power {
			return failure(wire.StatusPowerNotEnabled, "Robot power not enabled")
		}
		return next(s, args)
	}
}

func requireArgs(n int, next handler) handler {
	return func(s *State, args []string) string {
		if len(args) < n {
			return failure(wire.StatusGenericError, "Insufficient parameters")
		}
		return next(s, args)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatAxes(v [6]float64) []string {
	out := make([]string, len(v))
	for i, x := range v {
		out[i] = formatFloat(x)
	}
	return out
}

// parseAxes parses six floats; ok is false if any is malformed.
func parseAxes(args []string) ([6]float64, bool) {
	var v [6]float64
	if len(args) < 6 {
		return v, false
	}
	for i := range v {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return v, false
		}
		v[i] = f
	}
	return v, true
}

func handleMode(s *State, args []string) string {
	if len(args) == 0 {
		return success(strconv.Itoa(s.Mode))
	}
	if m, err := strconv.Atoi(args[0]); err == nil {
		s.Mode = m
	}
	return success()
}

func handlePower(s *State, args []string) string {
	if len(args) == 0 {
		return success(boolField(s.Power))
	}
	s.Power = args[0] == "1"
	return success()
}

func handleSelect(s *State, args []string) string {
	if len(args) == 0 {
		if s.SelectedRobot == 0 {
			return failure(wire.StatusGenericError, "No robot selected")
		}
		return success(strconv.Itoa(s.SelectedRobot))
	}
	if args[0] != "1" {
		return failure(wire.StatusGenericError, "Invalid robot index")
	}
	s.SelectedRobot = 1
	return success()
}

func handleAttach(s *State, args []string) string {
	if len(args) == 0 {
		return success(boolField(s.Attached))
	}
	s.Attached = args[0] != "0"
	return success()
}

func handleHome(s *State, _ []string) string {
	if !s.Power {
		return failure(wire.StatusPowerNotEnabled, "Robot power not enabled")
	}
	s.Homed = true
	return success()
}

func handleHalt(s *State, _ []string) string {
	s.MotionState = "Idle"
	return success()
}

func handleLoc(s *State, _ []string) string {
	return success(append([]string{"1"}, formatAxes(s.Position)...)...)
}

func handleMoveToCart(s *State, args []string) string {
	// movec <profile> <x> <y> <z> <yaw> <pitch> <roll>
	if pose, ok := parseAxes(lastSix(args)); ok {
		s.Position = pose
	}
	return success()
}

func handleMoveToJoints(s *State, args []string) string {
	// movej <profile> <j1> ... <j6>
	if joints, ok := parseAxes(lastSix(args)); ok {
		s.Joints = joints
	}
	return success()
}

func lastSix(args []string) []string {
	if len(args) < 6 {
		return nil
	}
	return args[len(args)-6:]
}

func handleMotionState(s *State, _ []string) string {
	return success(s.MotionState)
}

func handleMoveRail(s *State, args []string) string {
	if !s.Rail {
		return failure(wire.StatusGenericError, "No rail available")
	}
	if !s.Power {
		return failure(wire.StatusPowerNotEnabled, "Robot power not enabled")
	}
	// moveRail <robot> <mode> <position>
	if len(args) >= 3 {
		if pos, err := strconv.ParseFloat(args[2], 64); err == nil {
			s.RailPosition = pos
		}
	}
	return success()
}

func handleGetParam(s *State, args []string) string {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return failure(wire.StatusGenericError, "Unknown parameter")
	}
	switch wire.ParamID(id) {
	case wire.ParamHomingStatus:
		return success(boolField(s.Homed))
	case wire.ParamAxisConfig:
		if s.Rail {
			return success(strconv.Itoa(wire.AxisMaskWithRail))
		}
		return success(strconv.Itoa(wire.AxisMaskWithoutRail))
	case wire.ParamLastError:
		return success(strconv.Itoa(s.LastError))
	default:
		return failure(wire.StatusGenericError, "Unknown parameter")
	}
}

func handleWhereJ(s *State, _ []string) string {
	return success(formatAxes(s.Joints)...)
}

func handleWhereC(s *State, _ []string) string {
	return success(formatAxes(s.Position)...)
}

func handleFreeMode(s *State, args []string) string {
	// -1 leaves free mode; any axis number enters it.
	s.FreeMode = args[0] != "-1"
	return success()
}

func handleSystemSpeed(s *State, args []string) string {
	if len(args) == 0 {
		return success(strconv.Itoa(s.SystemSpeed))
	}
	if speed, err := strconv.Atoi(args[0]); err == nil {
		s.SystemSpeed = speed
	}
	return success()
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// String describes the state for logs.
func (s State) String() string {
	return fmt.Sprintf("power=%t attached=%t homed=%t free=%t speed=%d", s.Power, s.Attached, s.Homed, s.FreeMode, s.SystemSpeed)
}
