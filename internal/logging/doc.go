// Package logging builds slog loggers for the consolidate CLI and server,
// with console and JSON output formats and shared attribute helpers.
package logging
