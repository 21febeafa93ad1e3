package wire

import "strconv"

// ParamID identifies a parameter database entry read with CmdGetParam.
type ParamID int

const (
	// ParamLastError holds the code of the most recent controller error.
	ParamLastError ParamID = 320

	// ParamAxisConfig holds the axis configuration mask.
	ParamAxisConfig ParamID = 2003

	// ParamHomingStatus is 1 when the robot is homed.
	ParamHomingStatus ParamID = 2800
)

// Axis configuration masks reported by ParamAxisConfig.
const (
	AxisMaskWithRail    = 111
	AxisMaskWithoutRail = 15
)

// String returns the parameter ID as sent on the wire.
func (p ParamID) String() string {
	return strconv.Itoa(int(p))
}
