// Package logging builds the slog loggers used across mealvault.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log files or collection. Components obtain a child logger
// via NewComponentLogger so every line carries a stable component attribute.
package logging
