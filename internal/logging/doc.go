// Package logging provides structured logging for maevexctl.
//
// Logging is built on zap and is silent by default so that command output
// stays clean for interactive use. Verbosity is controlled through the
// MAEVEXCTL_LOG_LEVEL environment variable ("debug", "info", "warn",
// "error"); when the variable is unset a nop logger is installed.
//
// The package exposes a small set of domain helpers (LogDeviceRequest,
// LogDeviceEvent, LogMonitorState) so that call sites log consistent field
// names for device traffic and monitor state transitions.
package logging
