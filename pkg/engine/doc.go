// Package engine is the composition root: it owns the Registry, Action
// Log Sink, Device Manager, Scheduler, Monitor, Report Store and mDNS
// Discovery Hinter, wires one process-wide cancellation signal across
// them, and exposes the method set an external transport (HTTP or a
// CLI) calls into. No handler in this repo does its own wiring of
// sub-components; everything goes through an Engine.
package engine
