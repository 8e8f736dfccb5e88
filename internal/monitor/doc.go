// Package monitor tracks Maevex appliances over the lifetime of a run.
//
// A Monitor is the client-side replacement for a vendor device-monitor: it
// registers appliances by address (Add), keeps per-device snapshots fresh
// in the background (polling plus the appliance's WebSocket event stream),
// and lets callers wait for a device to become discoverable (Await).
//
// Unlike a process-wide singleton, a Monitor is an injected value and
// credentials are scoped per device (SetCredentials). Close releases all
// background watch resources and is safe to call more than once.
package monitor
