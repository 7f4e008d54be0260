// Package model defines the engine's core data types: devices, groups,
// retry policy, action records, execution reports, scheduled jobs, and
// the monitor's health-state and alert-level vocabulary.
//
// Device and Group are immutable once loaded by the registry; nothing
// in this package mutates them after construction. Everything else
// here (ActionRecord, ExecutionReport, ScheduledJob, DeviceHealthState)
// is a plain value produced and consumed by other packages.
package model
