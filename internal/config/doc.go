// Package config loads, normalizes, and validates nxqueue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NXQUEUE_REDIS_PASSWORD. The Config type centralizes every knob the daemon and
// CLI need: state and log directories, the lock coordinator backend, the
// blacklist reaper schedule, and the queue descriptors registered at startup.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
