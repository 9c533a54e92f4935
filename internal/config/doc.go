// Package config loads, normalizes, and validates worldip configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// WORLDIP_API_URL and WORLDIP_API_TOKEN. The Config type centralizes every knob
// the CLI needs so the registry endpoint, local state directory and
// fingerprint settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
