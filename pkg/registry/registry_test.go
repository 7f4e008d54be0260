package registry

import (
	"testing"

	"github.com/aquactl/aquactl/pkg/config"
	"github.com/aquactl/aquactl/pkg/model"
)

func testDoc() config.ConfigDocument {
	return config.ConfigDocument{
		Devices: []model.Device{
			{ID: "d1", Name: "Cube 1", Type: model.DeviceGenericTCP, Host: "10.0.0.1", Port: 80, GroupIDs: []string{"g1"}},
			{ID: "d2", Name: "Cube 2", Type: model.DeviceGenericTCP, Host: "10.0.0.2", Port: 80, GroupIDs: []string{"g1"}},
		},
		Groups: []model.Group{
			{ID: "g1", Name: "Exhibit Cubes", DeviceIDs: []string{"d1", "d2"}},
		},
	}
}

func TestLoadAndGet(t *testing.T) {
	r, err := Load(testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, ok := r.Get("d1")
	if !ok || d.Name != "Cube 1" {
		t.Fatalf("expected to find d1, got %+v ok=%v", d, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatal("expected missing device to not be found")
	}
}

func TestLoadRejectsUnknownGroupMember(t *testing.T) {
	doc := testDoc()
	doc.Groups[0].DeviceIDs = append(doc.Groups[0].DeviceIDs, "ghost")
	if _, err := Load(doc); err == nil {
		t.Fatal("expected error for unknown group member")
	}
}

func TestLoadRejectsDuplicateGroupMember(t *testing.T) {
	doc := testDoc()
	doc.Groups[0].DeviceIDs = []string{"d1", "d1"}
	if _, err := Load(doc); err == nil {
		t.Fatal("expected error for duplicate group member")
	}
}

func TestIDsMatchingAll(t *testing.T) {
	r, err := Load(testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids, err := r.IDsMatching(model.Target{Kind: model.TargetAll})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
}

func TestIDsMatchingUnresolvableTarget(t *testing.T) {
	r, err := Load(testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.IDsMatching(model.Target{Kind: model.TargetDevice, ID: "ghost"}); err == nil {
		t.Fatal("expected error for unresolvable device target")
	}
	if _, err := r.IDsMatching(model.Target{Kind: model.TargetGroup, ID: "ghost"}); err == nil {
		t.Fatal("expected error for unresolvable group target")
	}
}

func TestReloadKeepsOldSnapshotOnFailure(t *testing.T) {
	r, err := Load(testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := testDoc()
	bad.Devices[0].Host = "" // invalid

	if err := r.Reload(bad); err == nil {
		t.Fatal("expected reload to fail validation")
	}

	// Old snapshot must still be intact.
	if _, ok := r.Get("d1"); !ok {
		t.Fatal("expected old snapshot to survive a failed reload")
	}
}

func TestReloadSwapsOnSuccess(t *testing.T) {
	r, err := Load(testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated := testDoc()
	updated.Devices[0].Name = "Renamed Cube"

	if err := r.Reload(updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, _ := r.Get("d1")
	if d.Name != "Renamed Cube" {
		t.Fatalf("expected reload to apply, got %q", d.Name)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r, err := Load(testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	devices, groups := r.Snapshot()
	if len(devices) != 2 || len(groups) != 1 {
		t.Fatalf("unexpected snapshot shape: %d devices, %d groups", len(devices), len(groups))
	}

	doc2 := config.ConfigDocument{}
	for _, d := range devices {
		doc2.Devices = append(doc2.Devices, model.Device{
			ID: d.ID, Name: d.Name, Type: d.Type, Host: d.Host, Port: d.Port, GroupIDs: d.GroupIDs,
		})
	}
	for _, g := range groups {
		doc2.Groups = append(doc2.Groups, model.Group{ID: g.ID, Name: g.Name, DeviceIDs: g.DeviceIDs})
	}

	r2, err := Load(doc2)
	if err != nil {
		t.Fatalf("unexpected error reloading snapshot: %v", err)
	}
	devices2, groups2 := r2.Snapshot()
	if len(devices2) != len(devices) || len(groups2) != len(groups) {
		t.Fatalf("round-tripped snapshot shape mismatch")
	}
}
