// Package config loads, normalizes, and validates the TOML configuration
// shared by all commands. Defaults apply when no config file exists; flag
// overrides are merged by the CLI after loading.
package config
