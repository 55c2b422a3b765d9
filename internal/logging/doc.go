// Package logging builds the process-wide slog logger and provides the
// attribute helpers components use for consistent structured fields.
package logging
