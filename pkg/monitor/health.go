package monitor

import (
	"time"

	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/probe"
)

// offlineDebounce is the number of consecutive failed probes an
// ONLINE device must accumulate before the Monitor declares it
// OFFLINE. Suppresses single transient probe failures.
const offlineDebounce = 2

// transition applies one probe result to a device's prior health
// state and returns the next state, whether this transition counts as
// a recovery (OFFLINE -> ONLINE, worth an INFO alert), and whether it
// counts as a fresh failure (ONLINE or UNKNOWN -> OFFLINE, worth a
// WARNING alert).
func transition(prior model.DeviceHealthState, result probe.Result, now time.Time) (next model.DeviceHealthState, recovered bool, wentOffline bool) {
	next = prior
	next.LastProbedAt = now

	if result.Reachable {
		next.LastOKAt = now
		next.ConsecutiveFailures = 0
		if prior.CurrentStatus != model.StatusOnline {
			next.StatusSince = now
		}
		recovered = prior.CurrentStatus == model.StatusOffline
		next.CurrentStatus = model.StatusOnline
		return next, recovered, false
	}

	next.ConsecutiveFailures = prior.ConsecutiveFailures + 1

	switch prior.CurrentStatus {
	case model.StatusOnline:
		if next.ConsecutiveFailures < offlineDebounce {
			next.CurrentStatus = model.StatusOnline
			return next, false, false
		}
		next.CurrentStatus = model.StatusOffline
		next.StatusSince = now
		return next, false, true
	case model.StatusOffline:
		next.CurrentStatus = model.StatusOffline
		return next, false, false
	default: // UNKNOWN
		next.CurrentStatus = model.StatusOffline
		next.StatusSince = now
		return next, false, true
	}
}

// alertLevelFor derives the single, highest-priority alert level
// triggered by one cycle's outcomes, or "" if nothing qualifies.
func alertLevelFor(offlineCount, total int, anyRecovered, anyWentOffline bool) model.AlertLevel {
	var ratio float64
	if total > 0 {
		ratio = float64(offlineCount) / float64(total)
	}

	switch {
	case ratio > 0.20:
		return model.AlertRed
	case offlineCount >= 3 && ratio <= 0.20:
		return model.AlertCritical
	case anyWentOffline:
		return model.AlertWarning
	case anyRecovered:
		return model.AlertInfo
	default:
		return ""
	}
}
