// Package config loads, normalizes, and validates timelapse configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TIMELAPSE_API_TOKEN and REDIS_ADDR.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
