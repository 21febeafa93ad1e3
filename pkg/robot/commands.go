package robot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pflex-robotics/tcs-go/pkg/retry"
	"github.com/pflex-robotics/tcs-go/pkg/tcs"
	"github.com/pflex-robotics/tcs-go/pkg/wire"
)

// IsConnectionAlive probes the controller with nop.
func (r *Robot) IsConnectionAlive(ctx context.Context) bool {
	return r.exec(ctx, wire.CmdNoOp) == nil
}

// IsAttached reports whether this session holds the robot.
func (r *Robot) IsAttached(ctx context.Context) (bool, error) {
	f, err := r.fields(ctx, 1, wire.CmdAttach)
	if err != nil {
		return false, err
	}
	return f[0] != "0", nil
}

// Attach takes exclusive control of the default robot.
func (r *Robot) Attach(ctx context.Context) error {
	return r.exec(ctx, wire.CmdAttach, strconv.Itoa(DefaultRobotIndex))
}

// SelectRobot selects the default robot.
func (r *Robot) SelectRobot(ctx context.Context) error {
	return r.exec(ctx, wire.CmdSelect, strconv.Itoa(DefaultRobotIndex))
}

// Home homes the robot. Power must be on.
func (r *Robot) Home(ctx context.Context) error {
	return r.exec(ctx, wire.CmdHome)
}

// IsHomed reads the homing status parameter.
func (r *Robot) IsHomed(ctx context.Context) (bool, error) {
	f, err := r.fields(ctx, 1, wire.CmdGetParam,
		wire.ParamHomingStatus.String(), strconv.Itoa(DefaultRobotIndex), "0", "1")
	if err != nil {
		return false, err
	}
	return f[0] == "1", nil
}

// WaitForHomed polls IsHomed until the robot reports homed or ctx ends.
func (r *Robot) WaitForHomed(ctx context.Context) error {
	return retry.Poll(ctx, r.poll, r.IsHomed)
}

// CreateWaypoint stores a cartesian location.
func (r *Robot) CreateWaypoint(ctx context.Context, w Waypoint) error {
	return r.exec(ctx, wire.CmdLocXYZ, w.Args()...)
}

// CreateMotionProfile stores a motion profile without waiting for the reply.
func (r *Robot) CreateMotionProfile(ctx context.Context, p MotionProfile) error {
	return r.sendNoWait(ctx, wire.CmdProfile, p.Args()...)
}

// Location returns the raw loc payload.
func (r *Robot) Location(ctx context.Context) ([]string, error) {
	out, err := r.send(ctx, wire.CmdLoc)
	if err != nil {
		return nil, err
	}
	return out.Payload, nil
}

// EndEffectorPosition returns the current cartesian pose.
func (r *Robot) EndEffectorPosition(ctx context.Context) (EndEffectorPosition, error) {
	f, err := r.fields(ctx, 6, wire.CmdGetLocCart)
	if err != nil {
		return EndEffectorPosition{}, err
	}
	v, err := parseFloats(wire.CmdGetLocCart, f)
	if err != nil {
		return EndEffectorPosition{}, err
	}
	return EndEffectorPosition{X: v[0], Y: v[1], Z: v[2], Yaw: v[3], Pitch: v[4], Roll: v[5]}, nil
}

// Joints returns the current joint positions.
func (r *Robot) Joints(ctx context.Context) (JointPositions, error) {
	f, err := r.fields(ctx, 6, wire.CmdGetLocJoints)
	if err != nil {
		return JointPositions{}, err
	}
	v, err := parseFloats(wire.CmdGetLocJoints, f)
	return JointPositions(v), err
}

// LastError returns the code of the most recent controller error.
func (r *Robot) LastError(ctx context.Context) (int, error) {
	f, err := r.fields(ctx, 1, wire.CmdGetParam, wire.ParamLastError.String())
	if err != nil {
		return 0, err
	}
	return parseInt(wire.CmdGetParam, f, 0)
}

// MotionState returns the controller's motion state text.
func (r *Robot) MotionState(ctx context.Context) (string, error) {
	f, err := r.fields(ctx, 1, wire.CmdMotionState)
	if err != nil {
		return "", err
	}
	return strings.Join(f, wire.Separator), nil
}

// SystemSpeed returns the system speed percentage.
func (r *Robot) SystemSpeed(ctx context.Context) (int, error) {
	f, err := r.fields(ctx, 1, wire.CmdSystemSpeed)
	if err != nil {
		return 0, err
	}
	return parseInt(wire.CmdSystemSpeed, f, 0)
}

// SetSystemSpeed sets the system speed percentage without waiting for the
// reply.
func (r *Robot) SetSystemSpeed(ctx context.Context, speed int) error {
	return r.sendNoWait(ctx, wire.CmdSystemSpeed, strconv.Itoa(speed))
}

// SetPayload sets the payload percentage.
func (r *Robot) SetPayload(ctx context.Context, percent int) error {
	return r.exec(ctx, wire.CmdPayload, strconv.Itoa(percent))
}

// SetFreeMode enables or disables free mode on all axes. The controller
// does not answer when free mode is enabled.
func (r *Robot) SetFreeMode(ctx context.Context, on bool) error {
	if on {
		return r.sendNoWait(ctx, wire.CmdFreeMode, "0")
	}
	return r.exec(ctx, wire.CmdFreeMode, "-1")
}

// SetPower turns high power on or off.
func (r *Robot) SetPower(ctx context.Context, on bool) error {
	return r.exec(ctx, wire.CmdPower, flag(on))
}

// SetMode selects verbose (true) or PC (false) reply mode.
func (r *Robot) SetMode(ctx context.Context, verbose bool) error {
	return r.exec(ctx, wire.CmdMode, flag(verbose))
}

// MoveGripper drives the gripper axis to target using profile.
func (r *Robot) MoveGripper(ctx context.Context, target float64, profile int) error {
	return r.exec(ctx, wire.CmdMoveOneAxis,
		strconv.Itoa(GripperAxis), formatFloat(target), strconv.Itoa(profile))
}

// MoveRail moves the rail to position.
func (r *Robot) MoveRail(ctx context.Context, position float64) error {
	if !r.hasRail {
		return ErrNoRail
	}
	return r.exec(ctx, wire.CmdMoveRail,
		strconv.Itoa(DefaultRobotIndex), "1", formatFloat(position))
}

// MoveToCartesian moves to pose using profile.
func (r *Robot) MoveToCartesian(ctx context.Context, pose EndEffectorPosition, profile int) error {
	return r.exec(ctx, wire.CmdMoveToCart, append([]string{strconv.Itoa(profile)}, pose.Args()...)...)
}

// MoveToWaypoint moves to a stored waypoint without waiting for the reply.
func (r *Robot) MoveToWaypoint(ctx context.Context, waypoint, profile int) error {
	return r.sendNoWait(ctx, wire.CmdMove, strconv.Itoa(waypoint), strconv.Itoa(profile))
}

// MoveToJoints moves to a joint configuration without waiting for the
// reply.
func (r *Robot) MoveToJoints(ctx context.Context, joints JointPositions) error {
	return r.sendNoWait(ctx, wire.CmdMoveToJoints, joints.Args()...)
}

// WaitUntilStatic blocks until the current motion ends, waiting at most
// timeout for the controller to answer.
func (r *Robot) WaitUntilStatic(ctx context.Context, timeout time.Duration) error {
	r.logger.Debug("request", "command", wire.CmdWaitForEOM.String(), "timeout", timeout)
	_, err := r.client.Do(ctx, tcs.Request{Command: wire.CmdWaitForEOM, ReadTimeout: timeout})
	return err
}

// Halt stops motion without waiting for the reply.
func (r *Robot) Halt(ctx context.Context) error {
	return r.sendNoWait(ctx, wire.CmdHalt)
}
