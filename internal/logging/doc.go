// Package logging wraps log/slog with the console and JSON handlers used by
// the CLI, plus attribute helpers and standardized field names so components
// log consistently.
package logging
