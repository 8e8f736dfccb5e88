// Package orchestrate runs the device operation sequence: register the
// appliance with the monitor, wait for discovery, install credentials,
// snapshot and clone the device state, perform the requested operation,
// and release monitor resources.
//
// The sequence is single-shot. Registration is bounded at 30 seconds
// and the discovery wait is bounded by the caller's context; neither is
// retried once its bound expires. The monitor is always closed when the
// sequence returns, on success and on failure alike.
package orchestrate
