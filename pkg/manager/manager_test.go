package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aquactl/aquactl/pkg/adapter"
	"github.com/aquactl/aquactl/pkg/config"
	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/registry"
)

type recordingSink struct {
	mu      sync.Mutex
	records []model.ActionRecord
}

func (s *recordingSink) Append(r model.ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	doc := config.ConfigDocument{
		Devices: []model.Device{
			{
				ID: "cam1", Name: "Cam 1", Type: model.DeviceGenericTCP,
				Host: "127.0.0.1", Port: 1,
			},
		},
	}
	reg, err := registry.Load(doc)
	if err != nil {
		t.Fatalf("loading registry: %v", err)
	}
	return reg
}

func TestQueryUnreachableDeviceProducesResult(t *testing.T) {
	reg := testRegistry(t)
	sink := &recordingSink{}
	m := New(reg, adapter.NewRegistry(), sink, WithDeadline(2*time.Second))

	report, err := m.Query(context.Background(), model.Target{Kind: model.TargetAll})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(report.Results))
	}
	rec, ok := report.Results["cam1"]
	if !ok {
		t.Fatal("expected a result for cam1")
	}
	if rec.Outcome != model.OutcomeSuccess {
		t.Fatalf("generic_tcp query never errors, expected SUCCESS, got %s", rec.Outcome)
	}
	if sink.count() != 1 {
		t.Fatalf("expected one appended action record, got %d", sink.count())
	}
}

func TestExecuteRejectsUnresolvableTarget(t *testing.T) {
	reg := testRegistry(t)
	m := New(reg, adapter.NewRegistry(), &recordingSink{})

	_, err := m.TurnOn(context.Background(), model.Target{Kind: model.TargetDevice, ID: "missing"})
	if err == nil {
		t.Fatal("expected an error for an unresolvable target")
	}
}

func TestExecuteOneCountsResultsPerDevice(t *testing.T) {
	doc := config.ConfigDocument{
		Devices: []model.Device{
			{ID: "a", Type: model.DeviceGenericTCP, Host: "127.0.0.1", Port: 1},
			{ID: "b", Type: model.DeviceGenericTCP, Host: "127.0.0.1", Port: 1},
		},
	}
	reg, err := registry.Load(doc)
	if err != nil {
		t.Fatalf("loading registry: %v", err)
	}

	m := New(reg, adapter.NewRegistry(), &recordingSink{}, WithDeadline(2*time.Second))
	report, err := m.TurnOn(context.Background(), model.Target{Kind: model.TargetAll})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected results for both devices, got %d", len(report.Results))
	}
	if report.SuccessCount+report.FailureCount != 2 {
		t.Fatalf("expected success+failure counts to sum to 2, got %d+%d", report.SuccessCount, report.FailureCount)
	}
	// generic_tcp never supports power control, so both should fail.
	if report.FailureCount != 2 {
		t.Fatalf("expected both turn_on calls to fail for generic_tcp devices, got failureCount=%d", report.FailureCount)
	}
}
