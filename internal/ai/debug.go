package ai

import "sync/atomic"

// debugLoggingEnabled controls whether per-poll debug logging is enabled.
// Package-level flag so that hot paths skip building log attributes.
var debugLoggingEnabled atomic.Bool

// EnableDebugLogging enables or disables debug logging for the decision layers.
// Called from main after parsing config.
func EnableDebugLogging(enabled bool) {
	debugLoggingEnabled.Store(enabled)
}

// IsDebugEnabled returns true if debug logging is enabled.
// Use this to guard debug log calls on the poll path:
//
//	if ai.IsDebugEnabled() {
//	    slog.Debug("agent action changed", "from", old, "to", action)
//	}
func IsDebugEnabled() bool {
	return debugLoggingEnabled.Load()
}
