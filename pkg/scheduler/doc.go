// Package scheduler implements the Scheduler: a persistent, cron-like
// job table that fires TurnOn/TurnOff callbacks against the Device
// Manager at configured local times. Job mutations are written to a
// SQLite-backed store before the in-memory schedule is updated, so a
// crash between the two never leaves the store and the running
// schedule disagreeing about what should fire next.
package scheduler
