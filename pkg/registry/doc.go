// Package registry is the in-memory device/group catalogue. It is
// loaded once at startup from a config.ConfigDocument, validated, and
// held read-only thereafter; Reload swaps in a fully validated new
// snapshot atomically or leaves the old one in place on any validation
// failure. No signal handler in this module calls Reload.
package registry
