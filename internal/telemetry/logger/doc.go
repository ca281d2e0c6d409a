// Package logger builds the structured slog logger used across
// snapdist: JSON or text output, configurable level with runtime
// adjustment.
package logger
