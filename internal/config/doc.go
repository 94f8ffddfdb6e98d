// Package config loads, normalizes, and validates montage configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides for the
// ffmpeg binaries and log level. Export defaults are validated against the
// same presets the engine accepts, so a bad config fails at load time rather
// than mid-export.
package config
