// Package robot provides a PFlex arm API on top of the TCS client.
//
// Each method maps to one TCS command. Arguments are formatted in the order
// the controller expects and response payloads are parsed into typed values:
//
//	arm, err := robot.Dial(ctx, "192.168.0.1", robot.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer arm.Close()
//
//	if err := arm.SetPower(ctx, true); err != nil {
//		return err
//	}
//	pos, err := arm.EndEffectorPosition(ctx)
//
// Some commands are sent without waiting for a reply, as the controller
// either answers late or not at all: profile, move, movej, halt, mspeed
// with a value, freemode on, and exit. Their errors only report write
// failures.
package robot
