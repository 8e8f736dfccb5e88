// Package maevex implements the management client for Maevex-family
// encoder/decoder appliances.
//
// The appliances expose an HTTPS/JSON management surface plus a WebSocket
// status stream. This package wraps both behind a per-device Client:
//
//	client := maevex.NewClient("192.168.1.20")
//	client.SetAuth("admin", "secret")
//	info, err := client.Info(ctx)
//
// Settings and the record-mark map are always handed to callers as deep
// copies (Clone), so local edits never alias state held by a monitor that
// is concurrently refreshing snapshots. Mutations go back through
// ApplySettings, which returns the appliance's apply status together with
// a fresh device snapshot.
//
// All errors returned by the client are *DeviceError values carrying an
// error category and a retryability flag; transient network and 5xx
// failures are retried with exponential backoff.
package maevex
