// Package config loads, normalizes, and validates ringlog configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the RINGLOG_BIND environment
// override. The Config type centralizes every knob the daemon and CLI need:
// where logs and sockets live, which address the line server binds, how many
// records the ring keeps, and which sink stores them.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
