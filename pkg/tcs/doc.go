// Package tcs implements the request executor of the TCS protocol client.
//
// A Client owns one transport.Conn and runs at most one request at a time:
// the request line is written, and unless the request is fire-and-forget,
// exactly one response line is read, decoded and classified.
//
//	client := tcs.NewClient(tcs.DefaultConfig())
//	if err := client.Connect(ctx, "192.168.0.1", 0); err != nil {
//		return err
//	}
//	defer client.Disconnect()
//
//	out, err := client.Send(ctx, wire.CmdGetParam, "2800", "1", "0", "1")
//
// # Errors
//
// Send returns the classified wire.Outcome together with an error. Error
// outcomes are returned as *wire.DomainError; use errors.Is with
// wire.ErrPowerNotEnabled to detect the power condition. A read that times
// out returns transport.ErrTimeout, other socket failures return
// *transport.IOError and leave the client disconnected. The client never
// retries; see package retry for caller-side policies.
//
// # Unclaimed replies
//
// Controllers answer fire-and-forget commands too, and a reply can arrive
// after its request timed out. The client counts such unclaimed replies and
// drains them, each bounded by Config.DrainTimeout, before the next request
// that waits for a response.
package tcs
