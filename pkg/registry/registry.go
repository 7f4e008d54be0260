package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/aquactl/aquactl/pkg/config"
	"github.com/aquactl/aquactl/pkg/model"
)

// ErrNotFound is returned by Group when the group id is unknown.
var ErrNotFound = errors.New("not found")

type snapshot struct {
	devices map[string]model.Device
	groups  map[string]model.Group
	order   []string // device ids, sorted, for deterministic All()
}

// Registry is the read-mostly device/group catalogue. The zero value
// is not usable; construct with Load.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// Load validates doc and constructs a new Registry. A validation
// failure is fatal at startup (config.ConfigError), per spec.
func Load(doc config.ConfigDocument) (*Registry, error) {
	snap, err := build(doc)
	if err != nil {
		return nil, err
	}
	r := &Registry{}
	r.snap.Store(snap)
	return r, nil
}

// Reload validates doc and, only if valid, atomically swaps in the new
// snapshot. On any validation error the current snapshot is left
// untouched and the error is returned.
func (r *Registry) Reload(doc config.ConfigDocument) error {
	snap, err := build(doc)
	if err != nil {
		return err
	}
	r.snap.Store(snap)
	return nil
}

func build(doc config.ConfigDocument) (*snapshot, error) {
	devices := make(map[string]model.Device, len(doc.Devices))
	order := make([]string, 0, len(doc.Devices))

	for _, d := range doc.Devices {
		if _, dup := devices[d.ID]; dup {
			return nil, &config.ConfigError{Msg: fmt.Sprintf("duplicate device id %q", d.ID)}
		}
		if err := d.Validate(); err != nil {
			return nil, &config.ConfigError{Msg: err.Error()}
		}
		devices[d.ID] = d
		order = append(order, d.ID)
	}

	groups := make(map[string]model.Group, len(doc.Groups))
	for _, g := range doc.Groups {
		if _, dup := groups[g.ID]; dup {
			return nil, &config.ConfigError{Msg: fmt.Sprintf("duplicate group id %q", g.ID)}
		}
		seen := make(map[string]struct{}, len(g.DeviceIDs))
		for _, id := range g.DeviceIDs {
			if _, dup := seen[id]; dup {
				return nil, &config.ConfigError{Msg: fmt.Sprintf("group %q: duplicate member %q", g.ID, id)}
			}
			seen[id] = struct{}{}
			if _, ok := devices[id]; !ok {
				return nil, &config.ConfigError{Msg: fmt.Sprintf("group %q: unknown device %q", g.ID, id)}
			}
		}
		groups[g.ID] = g
	}

	// Validate that each device's declared group_ids resolve.
	for _, d := range devices {
		for _, gid := range d.GroupIDs {
			if _, ok := groups[gid]; !ok {
				return nil, &config.ConfigError{Msg: fmt.Sprintf("device %q: unknown group %q", d.ID, gid)}
			}
		}
	}

	sort.Strings(order)
	return &snapshot{devices: devices, groups: groups, order: order}, nil
}

// Get returns the device with the given id, if any.
func (r *Registry) Get(id string) (model.Device, bool) {
	snap := r.snap.Load()
	d, ok := snap.devices[id]
	return d, ok
}

// All returns every loaded device in stable (sorted-by-id) order.
func (r *Registry) All() []model.Device {
	snap := r.snap.Load()
	out := make([]model.Device, 0, len(snap.order))
	for _, id := range snap.order {
		out = append(out, snap.devices[id])
	}
	return out
}

// AllGroups returns every loaded group.
func (r *Registry) AllGroups() []model.Group {
	snap := r.snap.Load()
	out := make([]model.Group, 0, len(snap.groups))
	for _, g := range snap.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Group returns the devices belonging to the named group, in the
// group's declared member order.
func (r *Registry) Group(id string) ([]model.Device, error) {
	snap := r.snap.Load()
	g, ok := snap.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %q: %w", id, ErrNotFound)
	}
	out := make([]model.Device, 0, len(g.DeviceIDs))
	for _, did := range g.DeviceIDs {
		out = append(out, snap.devices[did])
	}
	return out, nil
}

// IDsMatching resolves a scheduler/API target to a concrete, snapshot-
// stable list of device ids. The target set is snapshotted at this
// call, per spec.md §9 (resolve "all" at dispatch time, not at fire
// configuration time).
func (r *Registry) IDsMatching(t model.Target) ([]string, error) {
	snap := r.snap.Load()

	switch t.Kind {
	case model.TargetAll:
		out := make([]string, len(snap.order))
		copy(out, snap.order)
		return out, nil
	case model.TargetDevice:
		if _, ok := snap.devices[t.ID]; !ok {
			return nil, fmt.Errorf("device %q: %w", t.ID, ErrNotFound)
		}
		return []string{t.ID}, nil
	case model.TargetGroup:
		g, ok := snap.groups[t.ID]
		if !ok {
			return nil, fmt.Errorf("group %q: %w", t.ID, ErrNotFound)
		}
		out := make([]string, len(g.DeviceIDs))
		copy(out, g.DeviceIDs)
		return out, nil
	default:
		return nil, fmt.Errorf("malformed target: %q", t)
	}
}

// DeviceSnapshot is the serializable, credential-free view of a device
// used by Snapshot() for the round-trip property test and by the
// external HTTP DTO layer.
type DeviceSnapshot struct {
	ID       string
	Name     string
	Type     model.DeviceType
	Host     string
	Port     int
	GroupIDs []string
}

// GroupSnapshot mirrors model.Group for export.
type GroupSnapshot struct {
	ID        string
	Name      string
	DeviceIDs []string
}

// Snapshot returns the effective, credential-free device/group set as
// of this call. Credential material is never included here; callers
// that need it for persistence go through pkg/vault explicitly.
func (r *Registry) Snapshot() ([]DeviceSnapshot, []GroupSnapshot) {
	snap := r.snap.Load()

	devices := make([]DeviceSnapshot, 0, len(snap.order))
	for _, id := range snap.order {
		d := snap.devices[id]
		devices = append(devices, DeviceSnapshot{
			ID: d.ID, Name: d.Name, Type: d.Type, Host: d.Host, Port: d.Port,
			GroupIDs: append([]string(nil), d.GroupIDs...),
		})
	}

	groups := make([]GroupSnapshot, 0, len(snap.groups))
	for _, g := range snap.groups {
		groups = append(groups, GroupSnapshot{ID: g.ID, Name: g.Name, DeviceIDs: append([]string(nil), g.DeviceIDs...)})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })

	return devices, groups
}
