package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aquactl/aquactl/pkg/log"
	"github.com/aquactl/aquactl/pkg/model"
)

// Dispatcher is the subset of the Device Manager the Scheduler drives.
// Implemented by pkg/manager.Manager.
type Dispatcher interface {
	TurnOn(ctx context.Context, target model.Target) (model.ExecutionReport, error)
	TurnOff(ctx context.Context, target model.Target) (model.ExecutionReport, error)
}

// ReportFunc receives the ExecutionReport produced by every fired job,
// scheduled or triggered. Wired to the Report Store by the engine.
type ReportFunc func(model.ExecutionReport)

// wakeCheckInterval bounds how long the run loop ever sleeps between
// checks, so a job created or re-enabled after the loop last computed
// its wake time is still picked up promptly.
const wakeCheckInterval = time.Second

type entry struct {
	job      model.ScheduledJob
	schedule cron.Schedule
	nextRun  time.Time
}

// Scheduler is the Scheduler component.
type Scheduler struct {
	store      *Store
	dispatcher Dispatcher
	loc        *time.Location
	logger     log.Logger
	onReport   ReportFunc

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithLogger attaches an operational logger.
func WithLogger(l log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithOnReport registers a callback invoked with every fired job's
// ExecutionReport.
func WithOnReport(f ReportFunc) Option {
	return func(s *Scheduler) { s.onReport = f }
}

// New loads every persisted job from store and builds a Scheduler that
// dispatches through d, evaluating cron expressions in the named IANA
// timezone (or "Local"/"UTC").
func New(store *Store, d Dispatcher, timezone string, opts ...Option) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	s := &Scheduler{
		store:      store,
		dispatcher: d,
		loc:        loc,
		logger:     log.NoopLogger{},
		entries:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}

	stored, err := store.LoadAll()
	if err != nil {
		return nil, err
	}

	now := time.Now().In(loc)
	for _, sj := range stored {
		sched, err := parseCronExpr(sj.Job.CronExpr)
		if err != nil {
			s.logger.Log(log.Event{
				Timestamp: time.Now().UTC(), Level: log.LevelError, Component: log.ComponentScheduler,
				Message: "dropping job with unparsable cron expression", JobID: sj.Job.ID, Err: err,
			})
			continue
		}

		nextRun := sj.NextRun.In(loc)
		if !nextRun.After(now) {
			// A fire was missed while the process was down. Per spec,
			// missed fires are not replayed: schedule the next future
			// occurrence instead.
			nextRun = sched.Next(now)
		}

		s.entries[sj.Job.ID] = &entry{job: sj.Job, schedule: sched, nextRun: nextRun}
	}

	return s, nil
}

func parseCronExpr(expr string) (cron.Schedule, error) {
	return cron.ParseStandard(expr)
}

// Run blocks, firing due jobs until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(wakeCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

// fireDue dispatches every job whose nextRun has passed, in ascending
// lexicographic order of job id, and reschedules each.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := time.Now().In(s.loc)

	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if e.job.Enabled && !e.nextRun.After(now) {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].job.ID < due[j].job.ID })
	s.mu.Unlock()

	for _, e := range due {
		s.fire(ctx, e, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, e *entry, now time.Time) {
	report := s.dispatch(ctx, e.job)

	next := e.schedule.Next(now)

	s.mu.Lock()
	e.nextRun = next
	s.mu.Unlock()

	if err := s.store.Upsert(e.job, next.UTC()); err != nil {
		s.logger.Log(log.Event{
			Timestamp: time.Now().UTC(), Level: log.LevelError, Component: log.ComponentScheduler,
			Message: "failed to persist next run time", JobID: e.job.ID, Err: err,
		})
	}

	if s.onReport != nil {
		s.onReport(report)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, job model.ScheduledJob) model.ExecutionReport {
	var report model.ExecutionReport
	var err error

	switch job.Action {
	case model.ActionTurnOn:
		report, err = s.dispatcher.TurnOn(ctx, job.Target)
	case model.ActionTurnOff:
		report, err = s.dispatcher.TurnOff(ctx, job.Target)
	default:
		err = fmt.Errorf("job %q: unsupported scheduled action %q", job.ID, job.Action)
	}

	if err != nil {
		now := time.Now().UTC()
		report = model.ExecutionReport{
			StartedAt: now, FinishedAt: now, RequestedAction: job.Action,
			Results: map[string]model.ActionRecord{
				job.Target.String(): {
					Timestamp: now, DeviceID: job.Target.String(), Action: job.Action,
					Outcome: model.OutcomeProtocolError, ErrorMessage: err.Error(),
				},
			},
			FailureCount: 1,
		}
		s.logger.Log(log.Event{
			Timestamp: now, Level: log.LevelError, Component: log.ComponentScheduler,
			Message: "scheduled job failed to resolve target", JobID: job.ID, Err: err,
		})
	}
	return report
}

// TriggerNow runs job's callback immediately without altering its
// persisted or in-memory next_run_time.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (model.ExecutionReport, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return model.ExecutionReport{}, fmt.Errorf("scheduler: unknown job %q", id)
	}
	return s.dispatch(ctx, e.job), nil
}

// Create persists a new job and adds it to the in-memory schedule. The
// durable write happens before the in-memory entry is visible, per the
// synchronous persist-before-apply rule.
func (s *Scheduler) Create(job model.ScheduledJob) error {
	sched, err := parseCronExpr(job.CronExpr)
	if err != nil {
		return fmt.Errorf("job %q: %w", job.ID, err)
	}

	now := time.Now().In(s.loc)
	next := sched.Next(now)

	if err := s.store.Upsert(job, next.UTC()); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[job.ID] = &entry{job: job, schedule: sched, nextRun: next}
	s.mu.Unlock()
	return nil
}

// Update replaces an existing job's definition, recomputing its next
// fire time. Same persist-before-apply ordering as Create.
func (s *Scheduler) Update(job model.ScheduledJob) error {
	return s.Create(job)
}

// Delete removes a job from the store and the in-memory schedule. The
// durable delete happens first.
func (s *Scheduler) Delete(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// SetEnabled flips a job's enabled flag, persisting before updating
// the in-memory copy.
func (s *Scheduler) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: unknown job %q", id)
	}
	job := e.job
	job.Enabled = enabled
	s.mu.Unlock()

	if err := s.store.Upsert(job, e.nextRun.UTC()); err != nil {
		return err
	}

	s.mu.Lock()
	e.job = job
	s.mu.Unlock()
	return nil
}

// Jobs returns a snapshot of every scheduled job.
func (s *Scheduler) Jobs() []model.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ScheduledJob, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close closes the underlying store.
func (s *Scheduler) Close() error {
	return s.store.Close()
}
