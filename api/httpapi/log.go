package httpapi

import "github.com/decred/slog"

// log is a logger that is initialized with no output filters. The package
// performs no logging by default until the caller requests it.
var log = slog.Disabled

// DisableLog disables all package log output.
func DisableLog() {
	log = slog.Disabled
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}
