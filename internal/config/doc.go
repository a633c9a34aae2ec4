// Package config loads, normalizes, and validates lectern's TOML
// configuration. Timing knobs for the scheduler and trigger live here so the
// watchdog and settle behavior stay tunable and testable.
package config
