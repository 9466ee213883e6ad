package application

import "log/slog"

// ResolveLogger keeps call sites nil-safe when no logger was injected.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
