package wire

import "fmt"

// Command is a TCS command verb.
type Command uint8

const (
	// CmdNoOp does nothing; used to probe connection liveness.
	CmdNoOp Command = iota + 1

	// CmdMode queries or sets the TCS reply mode (verbose or PC mode).
	CmdMode

	// CmdPower queries or sets high power.
	CmdPower

	// CmdSelect selects the robot that subsequent commands address.
	CmdSelect

	// CmdAttach queries or sets exclusive control of the selected robot.
	CmdAttach

	// CmdHome homes the robot.
	CmdHome

	// CmdHalt stops motion immediately.
	CmdHalt

	// CmdLoc reads a stored location.
	CmdLoc

	// CmdLocXYZ defines a cartesian location.
	CmdLocXYZ

	// CmdProfile defines a motion profile.
	CmdProfile

	// CmdMove moves to a stored location using a motion profile.
	CmdMove

	// CmdMoveToCart moves to a cartesian pose.
	CmdMoveToCart

	// CmdMoveToJoints moves to a joint configuration.
	CmdMoveToJoints

	// CmdMotionState queries the motion state.
	CmdMotionState

	// CmdMoveOneAxis moves a single axis.
	CmdMoveOneAxis

	// CmdMoveRail moves the linear rail.
	CmdMoveRail

	// CmdGetParam reads a parameter database entry.
	CmdGetParam

	// CmdGetLocJoints reads the current joint positions.
	CmdGetLocJoints

	// CmdGetLocCart reads the current cartesian position.
	CmdGetLocCart

	// CmdFreeMode enables or disables free mode.
	CmdFreeMode

	// CmdSystemSpeed queries or sets the system speed.
	CmdSystemSpeed

	// CmdPayload sets the payload percentage.
	CmdPayload

	// CmdWaitForEOM blocks until the end of the current motion.
	CmdWaitForEOM

	// CmdExit closes the session.
	CmdExit
)

// commandNames maps each command to its wire verb.
var commandNames = map[Command]string{
	CmdNoOp:         "nop",
	CmdMode:         "mode",
	CmdPower:        "hp",
	CmdSelect:       "selectRobot",
	CmdAttach:       "attach",
	CmdHome:         "home",
	CmdHalt:         "halt",
	CmdLoc:          "loc",
	CmdLocXYZ:       "locXYZ",
	CmdProfile:      "profile",
	CmdMove:         "move",
	CmdMoveToCart:   "movec",
	CmdMoveToJoints: "movej",
	CmdMotionState:  "state",
	CmdMoveOneAxis:  "moveoneaxis",
	CmdMoveRail:     "moveRail",
	CmdGetParam:     "pd",
	CmdGetLocJoints: "wherej",
	CmdGetLocCart:   "wherec",
	CmdFreeMode:     "freemode",
	CmdSystemSpeed:  "mspeed",
	CmdPayload:      "payload",
	CmdWaitForEOM:   "waitForEOM",
	CmdExit:         "exit",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for cmd, name := range commandNames {
		m[name] = cmd
	}
	return m
}()

// String returns the wire verb for the command.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", uint8(c))
}

// IsValid returns true if the command is part of the TCS vocabulary.
func (c Command) IsValid() bool {
	_, ok := commandNames[c]
	return ok
}

// ParseCommand resolves a wire verb. Verbs are case sensitive.
func ParseCommand(verb string) (Command, error) {
	if cmd, ok := commandsByName[verb]; ok {
		return cmd, nil
	}
	return 0, fmt.Errorf("unknown command %q", verb)
}

// Commands returns every command in declaration order.
func Commands() []Command {
	cmds := make([]Command, 0, len(commandNames))
	for c := CmdNoOp; c <= CmdExit; c++ {
		cmds = append(cmds, c)
	}
	return cmds
}
