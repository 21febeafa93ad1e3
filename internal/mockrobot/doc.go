// Package mockrobot simulates a PFlex controller speaking TCS.
//
// A Robot serves any number of clients over the line server from package
// transport. All clients share one robot state guarded by a mutex that is
// never held while waiting on the network or sleeping. Replies follow the
// controller's format: "<code> <fields>\r\n".
//
// The simulation covers what the client side needs for integration tests:
// power gating (-1046 for motion while power is off), parameter queries for
// homing, axis configuration and last error, position readback, a free
// mode in which the arm drifts slowly, and an end-of-motion wait.
//
// Configuration is YAML overlaid on DefaultConfig:
//
//	address: ":10100"
//	wait_for_eom_delay: 200ms
//	idle_timeout: 10m
//	max_clients: 4
//	initial:
//	  power: false
//	  rail: true
package mockrobot
