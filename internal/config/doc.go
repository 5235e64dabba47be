// Package config loads, normalizes, and validates taskqueue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TASKQUEUE_DB. The Config type centralizes every knob the CLI and queue
// engine need, so the database location, busy-retry budget, and notification
// settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
