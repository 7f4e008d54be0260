package adapter

import (
	"fmt"

	"github.com/aquactl/aquactl/pkg/model"
)

// Registry maps a device type to the ProtocolAdapter implementation
// that drives it. Device Manager looks adapters up here rather than
// branching on Device.Type itself.
type Registry struct {
	adapters map[model.DeviceType]ProtocolAdapter
}

// NewRegistry builds the registry with the four built-in adapters.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[model.DeviceType]ProtocolAdapter{
			model.DeviceTelnetProjector:  TelnetAdapter{},
			model.DeviceJSONRPCProjector: JSONRPCAdapter{},
			model.DevicePCWake:           PCWakeAdapter{},
			model.DeviceGenericTCP:       GenericTCPAdapter{},
		},
	}
}

// For looks up the adapter for a device type.
func (r *Registry) For(t model.DeviceType) (ProtocolAdapter, error) {
	a, ok := r.adapters[t]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for device type %q", t)
	}
	return a, nil
}
