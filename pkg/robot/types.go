package robot

import (
	"strconv"
)

// Fixed end effector orientation used for waypoints.
const (
	DefaultPitch = 90.0
	DefaultRoll  = -180.0
)

// Waypoint is a cartesian location stored on the controller.
type Waypoint struct {
	ID          int
	X, Y, Z     float64
	Orientation float64

	// Rail is the rail position for the waypoint, if any. It is not part of
	// the locXYZ arguments.
	Rail *float64
}

// Args returns the locXYZ arguments: id x y z orientation pitch roll.
func (w Waypoint) Args() []string {
	return []string{
		strconv.Itoa(w.ID),
		formatFloat(w.X),
		formatFloat(w.Y),
		formatFloat(w.Z),
		formatFloat(w.Orientation),
		formatFloat(DefaultPitch),
		formatFloat(DefaultRoll),
	}
}

// MotionProfile is a speed and acceleration profile stored on the
// controller.
type MotionProfile struct {
	ID int

	// Speed, Accel and Decel are percentages of the maximum.
	Speed float64
	Accel float64
	Decel float64

	// AccelRamp and DecelRamp are in seconds.
	AccelRamp float64
	DecelRamp float64

	InRange      float64
	StraightLine bool
}

// DefaultMotionProfile returns the controller's default profile values.
func DefaultMotionProfile(id int) MotionProfile {
	return MotionProfile{
		ID:        id,
		Speed:     50,
		Accel:     50,
		Decel:     50,
		AccelRamp: 0.1,
		DecelRamp: 0.1,
		InRange:   10,
	}
}

// Args returns the profile arguments:
// id speed speed2 accel decel accelRamp decelRamp inRange straight.
// speed2 is unused and always 0.
func (p MotionProfile) Args() []string {
	straight := "0"
	if p.StraightLine {
		straight = "1"
	}
	return []string{
		strconv.Itoa(p.ID),
		formatFloat(p.Speed),
		"0",
		formatFloat(p.Accel),
		formatFloat(p.Decel),
		formatFloat(p.AccelRamp),
		formatFloat(p.DecelRamp),
		formatFloat(p.InRange),
		straight,
	}
}

// EndEffectorPosition is a cartesian pose in mm and degrees.
type EndEffectorPosition struct {
	X, Y, Z          float64
	Yaw, Pitch, Roll float64
}

// Args returns x y z yaw pitch roll.
func (p EndEffectorPosition) Args() []string {
	return []string{
		formatFloat(p.X),
		formatFloat(p.Y),
		formatFloat(p.Z),
		formatFloat(p.Yaw),
		formatFloat(p.Pitch),
		formatFloat(p.Roll),
	}
}

// JointPositions holds one value per joint.
type JointPositions [6]float64

// Args returns the joint values in order.
func (j JointPositions) Args() []string {
	args := make([]string, len(j))
	for i, v := range j {
		args[i] = formatFloat(v)
	}
	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
