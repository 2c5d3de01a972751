// Package config loads, normalizes, and validates reelvault's TOML
// configuration. Defaults live in defaults.go and the annotated sample file;
// secrets may be overridden through REELVAULT_* environment variables.
package config
