// Package logging wires log/slog with Clipsight's console and JSON handlers
// and the standardized attribute keys used across the daemon.
package logging
