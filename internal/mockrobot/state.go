package mockrobot

import "math"

// Axis wrap limits for free mode drift.
const (
	linearLimit  = 2000.0
	angularLimit = 360.0
)

// State is the simulated robot state.
type State struct {
	Power    bool `yaml:"power"`
	Attached bool `yaml:"attached"`
	Homed    bool `yaml:"homed"`

	// Position is x, y, z, yaw, pitch, roll.
	Position [6]float64 `yaml:"position"`
	Joints   [6]float64 `yaml:"joints"`

	FreeMode    bool `yaml:"free_mode"`
	SystemSpeed int  `yaml:"system_speed"`
	Mode        int  `yaml:"mode"`

	// Rail reports whether a linear rail is installed.
	Rail         bool    `yaml:"rail"`
	RailPosition float64 `yaml:"rail_position"`

	MotionState string `yaml:"motion_state"`

	// SelectedRobot is 0 until selectRobot succeeds.
	SelectedRobot int `yaml:"selected_robot"`

	// LastError is reported by pd 320.
	LastError int `yaml:"last_error"`
}

// DefaultState returns a powered, unattached, unhomed robot with a rail.
func DefaultState() State {
	return State{
		Power:       true,
		Position:    [6]float64{300, 0, 150, 0, 90, -180},
		SystemSpeed: 50,
		Rail:        true,
		MotionState: "Idle",
	}
}

// drift advances every position axis by step, wrapping at the axis limit.
func (s *State) drift(step float64) {
	for i := range s.Position {
		limit := linearLimit
		if i >= 3 {
			limit = angularLimit
		}
		s.Position[i] = math.Mod(s.Position[i]+step, limit)
	}
}
