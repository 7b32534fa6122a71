// Package logging wraps log/slog with the attribute helpers and standardized
// field keys used across the daemon and CLI.
//
// Loggers are constructed from config (format, level, optional log file) and
// augmented per movie and per request via context-derived fields. Components
// receive child loggers through NewComponentLogger so every line carries a
// component key.
package logging
