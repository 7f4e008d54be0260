package engine

import (
	"time"

	"github.com/aquactl/aquactl/pkg/model"
)

// HealthSnapshot answers GET /health.
type HealthSnapshot struct {
	DevicesTotal     int     `json:"devices_total"`
	DevicesOnline    int     `json:"devices_online"`
	SuccessRate      float64 `json:"success_rate"`
	SchedulerRunning bool    `json:"scheduler_running"`
}

// DeviceView answers GET /devices entries: the credential-free device
// shape joined with the Monitor's last-known health state, if any.
type DeviceView struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Type     model.DeviceType `json:"type"`
	Host     string           `json:"host"`
	Port     int              `json:"port"`
	GroupIDs []string         `json:"group_ids"`

	Status              model.DeviceStatus `json:"status"`
	LastProbedAt        *time.Time         `json:"last_probed_at,omitempty"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
}

// GroupStatusView answers GET /groups/status entries.
type GroupStatusView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DeviceCount  int    `json:"device_count"`
	OnlineCount  int    `json:"online_count"`
	OfflineCount int    `json:"offline_count"`
}

// ScheduleView answers GET /schedule entries.
type ScheduleView struct {
	ID       string       `json:"id"`
	CronExpr string       `json:"cron_expr"`
	Action   model.Action `json:"action"`
	Target   string       `json:"target"`
	Enabled  bool         `json:"enabled"`
}

// LogPage answers GET /logs: one page of a day's Action Log, optionally
// filtered by outcome.
type LogPage struct {
	Date       string               `json:"date"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalCount int                  `json:"total_count"`
	Records    []model.ActionRecord `json:"records"`
}

// AlertView answers GET /alerts: every AlertEvent recorded within the
// requested lookback window, newest first.
type AlertView struct {
	Events []model.AlertEvent `json:"events"`
}

func scheduleViewOf(job model.ScheduledJob) ScheduleView {
	return ScheduleView{
		ID:       job.ID,
		CronExpr: job.CronExpr,
		Action:   job.Action,
		Target:   job.Target.String(),
		Enabled:  job.Enabled,
	}
}
