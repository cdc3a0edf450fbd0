// Package logging builds the process-wide slog logger: a console handler for
// interactive use and a JSON handler for machine consumption, fanned out to
// stdout and the daemon's append-only log file.
package logging
