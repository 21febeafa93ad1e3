// Package wire defines the TCS text wire format spoken by PFlex controllers.
//
// TCS is line oriented. A request is a command verb optionally followed by
// space separated arguments and terminated by a line feed. A response is a
// signed integer status code optionally followed by space separated fields
// and terminated by CR LF.
//
// # Line Format
//
//	Request (client -> controller):   <command>[ <arg1> ... <argN>]\n
//	Response (controller -> client):  <code>[ <field1> ... <fieldN>]\r\n
//
// Example Session:
//
//	CLI: hp 1
//	SRV: 0
//	CLI: pd 2800 1 0 1
//	SRV: 0 1
//	CLI: home
//	SRV: -1046 Robot power not enabled
//
// # Status Codes
//
// The leading token of every response classifies the outcome:
//   - 0: success, remaining tokens are the payload
//   - 1: warning, remaining tokens are the payload
//   - -1046: power not enabled
//   - anything else: controller error, reported by numeric value only
//
// There is no quoting or escaping. Argument values containing whitespace
// cannot be represented.
package wire
