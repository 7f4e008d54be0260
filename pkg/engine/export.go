package engine

import (
	"fmt"

	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/registry"
	"github.com/aquactl/aquactl/pkg/vault"
)

// DeviceExportView is one device's effective-configuration export
// entry: the credential-free registry view plus its telnet credentials
// sealed under the Credential Vault, if it has any. Never carries
// plaintext secrets.
type DeviceExportView struct {
	ID                string                         `json:"id"`
	Name              string                         `json:"name"`
	Type              model.DeviceType               `json:"type"`
	Host              string                         `json:"host"`
	Port              int                            `json:"port"`
	GroupIDs          []string                       `json:"group_ids"`
	SealedCredentials *vault.SealedTelnetCredentials `json:"sealed_credentials,omitempty"`
}

// ConfigSnapshotView is the effective-configuration export: the full
// device/group set as currently loaded, with secrets sealed rather
// than omitted or written in the clear.
type ConfigSnapshotView struct {
	Devices []DeviceExportView    `json:"devices"`
	Groups  []registry.GroupSnapshot `json:"groups"`
}

// ExportSnapshot produces the effective-configuration export used by
// config-backup tooling: every loaded device and group, with telnet
// passwords sealed through the Credential Vault so the result never
// round-trips plaintext secrets to disk.
func (e *Engine) ExportSnapshot() (ConfigSnapshotView, error) {
	deviceSnaps, groupSnaps := e.registry.Snapshot()
	byID := make(map[string]model.Device, len(deviceSnaps))
	for _, d := range e.registry.All() {
		byID[d.ID] = d
	}

	devices := make([]DeviceExportView, 0, len(deviceSnaps))
	for _, ds := range deviceSnaps {
		view := DeviceExportView{
			ID: ds.ID, Name: ds.Name, Type: ds.Type, Host: ds.Host, Port: ds.Port,
			GroupIDs: ds.GroupIDs,
		}
		if d, ok := byID[ds.ID]; ok && d.Credentials.Telnet != nil {
			sealed, err := e.vault.SealTelnetCredentials(d.Credentials.Telnet)
			if err != nil {
				return ConfigSnapshotView{}, classify(fmt.Errorf("sealing credentials for device %q: %w", ds.ID, err))
			}
			view.SealedCredentials = sealed
		}
		devices = append(devices, view)
	}

	return ConfigSnapshotView{Devices: devices, Groups: groupSnaps}, nil
}
