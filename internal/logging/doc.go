// Package logging builds slog loggers with the console and JSON handlers
// shared by the daemon and CLI, plus the typed attribute helpers and
// standardized field names used across lectern.
package logging
