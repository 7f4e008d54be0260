// Package log provides the ambient operational-event logging interface
// used across the engine: scheduler ticks, reload outcomes, persistence
// faults, monitor transitions, and adapter lifecycle notices.
//
// It deliberately mirrors the engine's own ActionRecord/Report pipeline
// in shape but serves a different purpose: those are durable audit
// trails, this is operator-facing diagnostic output. A caller supplies
// a Logger (commonly a SlogAdapter wrapping log/slog) and every engine
// component logs through it rather than calling slog directly, so tests
// can substitute a NoopLogger or a recording fake.
package log
