package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/aquactl/aquactl/pkg/actionlog"
	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/registry"
)

// logPageSize bounds a single Logs() page.
const logPageSize = 100

// TurnOn powers on every device resolved by target.
func (e *Engine) TurnOn(ctx context.Context, target model.Target) (model.ExecutionReport, error) {
	rep, err := e.manager.TurnOn(ctx, target)
	if err != nil {
		return model.ExecutionReport{}, classify(err)
	}
	return rep, nil
}

// TurnOff powers off every device resolved by target.
func (e *Engine) TurnOff(ctx context.Context, target model.Target) (model.ExecutionReport, error) {
	rep, err := e.manager.TurnOff(ctx, target)
	if err != nil {
		return model.ExecutionReport{}, classify(err)
	}
	return rep, nil
}

// Query reports the current power state of every device resolved by target.
func (e *Engine) Query(ctx context.Context, target model.Target) (model.ExecutionReport, error) {
	rep, err := e.manager.Query(ctx, target)
	if err != nil {
		return model.ExecutionReport{}, classify(err)
	}
	return rep, nil
}

// Health answers GET /health.
func (e *Engine) Health() HealthSnapshot {
	devices := e.registry.All()
	states := e.mon.Snapshot()

	online := 0
	for _, st := range states {
		if st.CurrentStatus == model.StatusOnline {
			online++
		}
	}

	return HealthSnapshot{
		DevicesTotal:     len(devices),
		DevicesOnline:    online,
		SuccessRate:      e.rolling24hSuccessRate(),
		SchedulerRunning: e.schedulerRunning,
	}
}

// rolling24hSuccessRate reads today's and yesterday's Action Log files
// and reports the fraction of records timestamped within the last 24h
// whose outcome is SUCCESS.
func (e *Engine) rolling24hSuccessRate() float64 {
	now := time.Now().UTC()
	cutoff := now.Add(-24 * time.Hour)

	var total, success int
	for _, date := range []string{now.Format("2006-01-02"), cutoff.Format("2006-01-02")} {
		recs, err := actionlog.Read(e.cfg.LogDir, date)
		if err != nil {
			continue
		}
		for _, rec := range recs {
			if rec.Timestamp.Before(cutoff) {
				continue
			}
			total++
			if rec.Outcome == model.OutcomeSuccess {
				success++
			}
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(success) / float64(total)
}

// Devices answers GET /devices: the registry's device set joined with
// the Monitor's last-known health state.
func (e *Engine) Devices() []DeviceView {
	devices := e.registry.All()
	states := make(map[string]model.DeviceHealthState, len(devices))
	for _, st := range e.mon.Snapshot() {
		states[st.DeviceID] = st
	}

	out := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		v := DeviceView{
			ID: d.ID, Name: d.Name, Type: d.Type, Host: d.Host, Port: d.Port,
			GroupIDs: append([]string(nil), d.GroupIDs...),
			Status:   model.StatusUnknown,
		}
		if st, ok := states[d.ID]; ok {
			v.Status = st.CurrentStatus
			v.ConsecutiveFailures = st.ConsecutiveFailures
			if !st.LastProbedAt.IsZero() {
				t := st.LastProbedAt
				v.LastProbedAt = &t
			}
		}
		out = append(out, v)
	}
	return out
}

// Groups answers GET /groups.
func (e *Engine) Groups() []registry.GroupSnapshot {
	_, groups := e.registry.Snapshot()
	return groups
}

// GroupStatus answers GET /groups/status: per-group online/offline
// counts derived from the Monitor's current snapshot.
func (e *Engine) GroupStatus() ([]GroupStatusView, error) {
	_, groups := e.registry.Snapshot()
	states := make(map[string]model.DeviceStatus, len(e.registry.All()))
	for _, st := range e.mon.Snapshot() {
		states[st.DeviceID] = st.CurrentStatus
	}

	out := make([]GroupStatusView, 0, len(groups))
	for _, g := range groups {
		view := GroupStatusView{ID: g.ID, Name: g.Name, DeviceCount: len(g.DeviceIDs)}
		for _, id := range g.DeviceIDs {
			switch states[id] {
			case model.StatusOnline:
				view.OnlineCount++
			case model.StatusOffline:
				view.OfflineCount++
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// Schedule answers GET /schedule: every job currently known to the
// Scheduler, sorted by id.
func (e *Engine) Schedule() []ScheduleView {
	jobs := e.sched.Jobs()
	out := make([]ScheduleView, len(jobs))
	for i, j := range jobs {
		out[i] = scheduleViewOf(j)
	}
	return out
}

// CreateJob validates and persists a new scheduled job, or replaces an
// existing one with the same id. A caller that leaves ID empty gets
// one generated for it.
func (e *Engine) CreateJob(job model.ScheduledJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if _, err := cron.ParseStandard(job.CronExpr); err != nil {
		return classify(fmt.Errorf("%w: cron expression %q: %v", ErrInvalidSchedule, job.CronExpr, err))
	}
	if _, err := e.registry.IDsMatching(job.Target); err != nil {
		return classify(fmt.Errorf("%w: %v", ErrInvalidSchedule, err))
	}
	if err := e.sched.Create(job); err != nil {
		return classify(err)
	}
	return nil
}

// UpdateJob replaces an existing job's definition. Semantically
// identical to CreateJob; kept as a distinct method so transport
// adapters can route POST (create) and PUT (update) separately even
// though both resolve to an upsert here.
func (e *Engine) UpdateJob(job model.ScheduledJob) error {
	return e.CreateJob(job)
}

// DeleteJob removes a scheduled job.
func (e *Engine) DeleteJob(id string) error {
	if !e.jobExists(id) {
		return classify(fmt.Errorf("%w: %q", ErrUnknownJob, id))
	}
	if err := e.sched.Delete(id); err != nil {
		return classify(err)
	}
	return nil
}

// SetJobEnabled flips a job's enabled flag.
func (e *Engine) SetJobEnabled(id string, enabled bool) error {
	if !e.jobExists(id) {
		return classify(fmt.Errorf("%w: %q", ErrUnknownJob, id))
	}
	if err := e.sched.SetEnabled(id, enabled); err != nil {
		return classify(err)
	}
	return nil
}

// TriggerJob fires a job immediately without altering its schedule.
func (e *Engine) TriggerJob(ctx context.Context, id string) (model.ExecutionReport, error) {
	if !e.jobExists(id) {
		return model.ExecutionReport{}, classify(fmt.Errorf("%w: %q", ErrUnknownJob, id))
	}
	rep, err := e.sched.TriggerNow(ctx, id)
	if err != nil {
		return model.ExecutionReport{}, classify(err)
	}
	return rep, nil
}

func (e *Engine) jobExists(id string) bool {
	for _, j := range e.sched.Jobs() {
		if j.ID == id {
			return true
		}
	}
	return false
}

// Logs answers GET /logs: one page of date's Action Log, optionally
// filtered to records whose Outcome matches level (case-insensitive).
// An empty level returns every outcome.
func (e *Engine) Logs(date, level string, page int) (LogPage, error) {
	if page < 1 {
		page = 1
	}
	recs, err := actionlog.Read(e.cfg.LogDir, date)
	if err != nil {
		return LogPage{}, classify(fmt.Errorf("reading action log for %s: %w", date, err))
	}

	if level != "" {
		filtered := recs[:0:0]
		for _, rec := range recs {
			if strings.EqualFold(string(rec.Outcome), level) {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })

	total := len(recs)
	start := (page - 1) * logPageSize
	if start > total {
		start = total
	}
	end := start + logPageSize
	if end > total {
		end = total
	}

	return LogPage{
		Date: date, Page: page, PageSize: logPageSize,
		TotalCount: total, Records: append([]model.ActionRecord(nil), recs[start:end]...),
	}, nil
}

// Alerts answers GET /alerts: every recorded AlertEvent within the
// last hours, newest first.
func (e *Engine) Alerts(hours int) AlertView {
	if hours <= 0 {
		hours = 24
	}
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	e.alertsMu.Lock()
	snapshot := append([]model.AlertEvent(nil), e.alerts...)
	e.alertsMu.Unlock()

	out := make([]model.AlertEvent, 0, len(snapshot))
	for _, ev := range snapshot {
		if ev.Timestamp.After(cutoff) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return AlertView{Events: out}
}

// pageFromQuery parses a 1-based page number from a query-string
// value, defaulting to 1 for an empty or malformed input. It is
// unexported and has no caller in this package.
func pageFromQuery(raw string) int {
	if raw == "" {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
