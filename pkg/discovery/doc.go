// Package discovery browses the LAN for aquactl-capable devices via
// mDNS (service type "_aquactl._tcp") and surfaces them as read-only
// hints. It never adds devices to the registry itself — the engine
// does not model equipment it did not discover at startup (spec
// non-goal); a hint is an operator prompt to add a device to
// configuration by hand, nothing more.
package discovery
