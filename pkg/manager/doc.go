// Package manager implements the Device Manager: bulk turn_on,
// turn_off, and query operations that resolve a target through the
// registry and fan out through the Retry Executor under a shared
// capacity limit. Individual device failures never abort siblings.
package manager
