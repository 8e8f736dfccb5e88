// Package ui renders maevexctl's styled terminal output.
//
// It provides the building blocks the commands compose: a command header
// box, a step-list progress display with a transfer bar, success/failure
// result boxes with troubleshooting tips, and a Runner that drives the
// header/progress/result flow for one device operation.
//
// Rendering is built on lipgloss styles with a bubbles progress bar; the
// RenderOnce helper pushes a finished view through Bubble Tea's renderer
// for consistent terminal handling without an interactive session.
package ui
