// Package config loads, normalizes, and validates splice configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the SPLICE_LOG_LEVEL environment
// override. The Config type gathers the container, schema, catalog and
// logging settings the CLI and the engine facade need in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical byte orders and clear validation errors.
package config
