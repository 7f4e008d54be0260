// Package monitor implements the Monitor: a periodic health-probe
// cycle that tracks each device's DeviceHealthState through the
// debounced ONLINE/OFFLINE transition table and derives a fleet-wide
// AlertLevel once per cycle.
package monitor
