package monitor

import (
	"testing"
	"time"

	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/probe"
)

var now = time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

func TestTransitionUnknownToOnline(t *testing.T) {
	prior := model.DeviceHealthState{DeviceID: "d1", CurrentStatus: model.StatusUnknown}
	next, recovered, wentOffline := transition(prior, probe.Result{Reachable: true}, now)
	if next.CurrentStatus != model.StatusOnline || next.ConsecutiveFailures != 0 {
		t.Fatalf("unexpected next state: %+v", next)
	}
	if recovered || wentOffline {
		t.Fatalf("unknown->online should not count as recovery or failure, got recovered=%v wentOffline=%v", recovered, wentOffline)
	}
}

func TestTransitionOnlineSingleFailureStaysOnline(t *testing.T) {
	prior := model.DeviceHealthState{DeviceID: "d1", CurrentStatus: model.StatusOnline, ConsecutiveFailures: 0}
	next, _, wentOffline := transition(prior, probe.Result{Reachable: false}, now)
	if next.CurrentStatus != model.StatusOnline {
		t.Fatalf("single failure should debounce, got %+v", next)
	}
	if next.ConsecutiveFailures != 1 {
		t.Fatalf("expected consecutive failures 1, got %d", next.ConsecutiveFailures)
	}
	if wentOffline {
		t.Fatal("single failure must not trigger offline transition")
	}
}

func TestTransitionOnlineSecondFailureGoesOffline(t *testing.T) {
	prior := model.DeviceHealthState{DeviceID: "d1", CurrentStatus: model.StatusOnline, ConsecutiveFailures: 1}
	next, recovered, wentOffline := transition(prior, probe.Result{Reachable: false}, now)
	if next.CurrentStatus != model.StatusOffline {
		t.Fatalf("expected offline after two consecutive failures, got %+v", next)
	}
	if !wentOffline || recovered {
		t.Fatalf("expected wentOffline=true recovered=false, got wentOffline=%v recovered=%v", wentOffline, recovered)
	}
}

func TestTransitionOfflineToOnlineRecovers(t *testing.T) {
	prior := model.DeviceHealthState{DeviceID: "d1", CurrentStatus: model.StatusOffline, ConsecutiveFailures: 4}
	next, recovered, wentOffline := transition(prior, probe.Result{Reachable: true}, now)
	if next.CurrentStatus != model.StatusOnline || next.ConsecutiveFailures != 0 {
		t.Fatalf("unexpected next state: %+v", next)
	}
	if !recovered || wentOffline {
		t.Fatalf("expected recovered=true wentOffline=false, got recovered=%v wentOffline=%v", recovered, wentOffline)
	}
}

func TestTransitionOfflineStaysOffline(t *testing.T) {
	prior := model.DeviceHealthState{DeviceID: "d1", CurrentStatus: model.StatusOffline, ConsecutiveFailures: 4}
	next, recovered, wentOffline := transition(prior, probe.Result{Reachable: false}, now)
	if next.CurrentStatus != model.StatusOffline || next.ConsecutiveFailures != 5 {
		t.Fatalf("unexpected next state: %+v", next)
	}
	if recovered || wentOffline {
		t.Fatal("staying offline should not re-trigger either alert condition")
	}
}

func TestAlertLevelForThresholds(t *testing.T) {
	cases := []struct {
		name                       string
		offline, total             int
		anyRecovered, anyWentOffline bool
		want                       model.AlertLevel
	}{
		{"none triggered", 0, 10, false, false, ""},
		{"recovery only", 0, 10, true, false, model.AlertInfo},
		{"single failure", 1, 10, false, true, model.AlertWarning},
		{"three offline at twenty percent", 3, 15, false, true, model.AlertCritical},
		{"over twenty percent", 3, 10, false, true, model.AlertRed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := alertLevelFor(c.offline, c.total, c.anyRecovered, c.anyWentOffline)
			if got != c.want {
				t.Fatalf("expected %q, got %q", c.want, got)
			}
		})
	}
}
