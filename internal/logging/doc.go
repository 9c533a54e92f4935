// Package logging assembles structured slog loggers and formatting helpers used
// across worldip.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so command and workflow code can
// tag log lines with correlation IDs, draft IDs and the running command. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Logs are written to stderr by default so stdout stays reserved for command
// output such as digests and JSON.
package logging
