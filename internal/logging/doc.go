// Package logging wraps log/slog with the project's handler construction,
// attribute helpers, and context-derived structured fields.
package logging
