package model

import (
	"errors"
	"fmt"
	"regexp"
)

// DeviceType identifies a device family and, through the adapter
// registry, the ProtocolAdapter that drives it.
type DeviceType string

const (
	DeviceTelnetProjector  DeviceType = "telnet_projector"
	DeviceJSONRPCProjector DeviceType = "jsonrpc_projector"
	DevicePCWake           DeviceType = "pc_wake"
	DeviceGenericTCP       DeviceType = "generic_tcp"
)

// Valid reports whether t is one of the recognized device types.
func (t DeviceType) Valid() bool {
	switch t {
	case DeviceTelnetProjector, DeviceJSONRPCProjector, DevicePCWake, DeviceGenericTCP:
		return true
	default:
		return false
	}
}

// Errors surfaced while validating a device definition at load time.
var (
	ErrMissingTelnetCredentials = errors.New("telnet-style device requires username and password")
	ErrMissingWakeMAC           = errors.New("pc_wake device requires a MAC address")
	ErrInvalidMAC               = errors.New("malformed MAC address")
	ErrUnknownDeviceType        = errors.New("unknown device type")
)

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// TelnetCredentials authenticates against a telnet-style projector.
type TelnetCredentials struct {
	Username string
	Password string
}

// WakeCredentials configures a pc_wake device's magic-packet target and,
// optionally, a management channel for graceful shutdown requests.
type WakeCredentials struct {
	MAC          string
	ShutdownHost string
	ShutdownPort int
}

// HasShutdownChannel reports whether a graceful power_off target is configured.
func (w WakeCredentials) HasShutdownChannel() bool {
	return w.ShutdownHost != "" && w.ShutdownPort > 0
}

// Credentials bundles the per-type credential variants. At most one of
// Telnet or Wake is set, matching the device's Type.
type Credentials struct {
	Telnet *TelnetCredentials
	Wake   *WakeCredentials
}

// ProbeKind identifies how the Health Prober reaches a device.
type ProbeKind string

const (
	ProbeICMP ProbeKind = "icmp"
	ProbeTCP  ProbeKind = "tcp"
	ProbeHTTP ProbeKind = "http"
)

// ProbeSpec describes how a device should be health-checked.
type ProbeSpec struct {
	Kind ProbeKind

	// Port is used by ProbeTCP; defaults to the device's Port if zero.
	Port int

	// Path and ExpectStatusBelow are used by ProbeHTTP.
	// A response status strictly below ExpectStatusBelow is reachable.
	// ExpectStatusBelow defaults to 400 (accepts 2xx/3xx).
	Path              string
	ExpectStatusBelow int
}

// Device is an immutable, network-addressable piece of equipment.
// Identity is Device.ID; all other fields are fixed at load time.
type Device struct {
	ID          string
	Name        string
	Type        DeviceType
	Host        string
	Port        int
	GroupIDs    []string
	Credentials Credentials
	ProbeSpec   ProbeSpec
}

// Validate checks that a device's fields are internally consistent for
// its declared Type. It does not check cross-references (e.g. group
// membership); the registry does that at load time.
func (d Device) Validate() error {
	if d.ID == "" {
		return errors.New("device id must not be empty")
	}
	if d.Host == "" {
		return fmt.Errorf("device %q: host must not be empty", d.ID)
	}
	if !d.Type.Valid() {
		return fmt.Errorf("device %q: %w: %q", d.ID, ErrUnknownDeviceType, d.Type)
	}

	switch d.Type {
	case DeviceTelnetProjector, DeviceJSONRPCProjector:
		if d.Credentials.Telnet == nil || d.Credentials.Telnet.Username == "" || d.Credentials.Telnet.Password == "" {
			return fmt.Errorf("device %q: %w", d.ID, ErrMissingTelnetCredentials)
		}
	case DevicePCWake:
		if d.Credentials.Wake == nil || d.Credentials.Wake.MAC == "" {
			return fmt.Errorf("device %q: %w", d.ID, ErrMissingWakeMAC)
		}
		if !macPattern.MatchString(d.Credentials.Wake.MAC) {
			return fmt.Errorf("device %q: %w: %q", d.ID, ErrInvalidMAC, d.Credentials.Wake.MAC)
		}
	case DeviceGenericTCP:
		// No credentials required.
	}

	return nil
}

// EffectiveProbeSpec returns the device's probe spec, defaulting an
// unset Kind to a TCP connect against the device's own port.
func (d Device) EffectiveProbeSpec() ProbeSpec {
	ps := d.ProbeSpec
	if ps.Kind == "" {
		ps.Kind = ProbeTCP
	}
	if ps.Kind == ProbeTCP && ps.Port == 0 {
		ps.Port = d.Port
	}
	if ps.Kind == ProbeHTTP && ps.ExpectStatusBelow == 0 {
		ps.ExpectStatusBelow = 400
	}
	return ps
}

// Group is a named, ordered set of devices acted upon as a unit.
type Group struct {
	ID        string
	Name      string
	DeviceIDs []string
}
