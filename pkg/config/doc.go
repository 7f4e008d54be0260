// Package config loads and validates the engine's YAML configuration
// document: devices, groups, retry policy overrides, concurrency and
// monitor tuning, and the directories/paths the engine persists to.
//
// A malformed document is always a config.ConfigError, which is fatal
// at startup (exit code 2, per spec) but never panics.
package config
