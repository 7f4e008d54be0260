package model

import "time"

// DeviceStatus is the Monitor's classification of a single device.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "ONLINE"
	StatusOffline DeviceStatus = "OFFLINE"
	StatusUnknown DeviceStatus = "UNKNOWN"
)

// DeviceHealthState is the Monitor's per-device tracked state. It is
// owned exclusively by the Monitor; external readers see copy-on-
// publish snapshots taken at the end of each cycle.
type DeviceHealthState struct {
	DeviceID            string
	LastProbedAt        time.Time
	LastOKAt            time.Time
	ConsecutiveFailures int
	CurrentStatus       DeviceStatus
	StatusSince         time.Time
}

// AlertLevel is the fleet-wide severity derived from one monitor cycle.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
	AlertRed      AlertLevel = "RED_ALERT"
)

// AlertEvent is emitted at most once per monitor cycle, at the highest
// triggered level.
type AlertEvent struct {
	Timestamp     time.Time  `json:"timestamp"`
	Level         AlertLevel `json:"level"`
	Message       string     `json:"message"`
	OfflineCount  int        `json:"offline_count"`
	TotalCount    int        `json:"total_count"`
	OfflineRatio  float64    `json:"offline_ratio"`
}

// MonitorSample is one cycle's fleet-wide snapshot, recorded by the Report Store.
type MonitorSample struct {
	CycleAt      time.Time `json:"cycle_at"`
	OnlineCount  int       `json:"online_count"`
	OfflineCount int       `json:"offline_count"`
}
