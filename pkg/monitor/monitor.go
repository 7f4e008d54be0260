package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aquactl/aquactl/pkg/log"
	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/probe"
	"github.com/aquactl/aquactl/pkg/registry"
)

// DefaultInterval is the default time between monitor cycles.
const DefaultInterval = 60 * time.Second

// DefaultCapacity is the Monitor's own semaphore size when none is
// shared in via WithSemaphore.
const DefaultCapacity = 10

// ActionAppender receives the PROBE action record a fired alert is
// recorded as. Implemented by pkg/actionlog.Sink.
type ActionAppender interface {
	Append(model.ActionRecord) error
}

// AlertFunc receives at most one AlertEvent per cycle.
type AlertFunc func(model.AlertEvent)

// SampleFunc receives the fleet-wide sample produced by every cycle,
// whether or not an alert fired.
type SampleFunc func(model.MonitorSample)

// Monitor is the Monitor component: it runs a bounded-concurrency
// probe cycle on a timer, owns every device's DeviceHealthState, and
// derives fleet alerts from the per-cycle transition set.
type Monitor struct {
	registry *registry.Registry
	prober   *probe.Prober
	sink     ActionAppender
	logger   log.Logger

	sem      chan struct{}
	interval time.Duration

	onAlert  AlertFunc
	onSample SampleFunc

	mu     sync.Mutex
	states map[string]model.DeviceHealthState
}

// Option configures a Monitor at construction time.
type Option func(*Monitor)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithSemaphore injects a shared bounded-concurrency channel, typically
// the same one in use by the Device Manager (pkg/manager.Semaphore).
func WithSemaphore(sem chan struct{}) Option {
	return func(m *Monitor) {
		if sem != nil {
			m.sem = sem
		}
	}
}

// WithLogger attaches an operational logger.
func WithLogger(l log.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithOnAlert registers a callback invoked with the single highest-
// priority alert triggered by a cycle, if any. Never called while
// holding the Monitor's internal lock.
func WithOnAlert(f AlertFunc) Option {
	return func(m *Monitor) { m.onAlert = f }
}

// WithOnSample registers a callback invoked once per completed cycle,
// whether or not it triggered an alert.
func WithOnSample(f SampleFunc) Option {
	return func(m *Monitor) { m.onSample = f }
}

// New constructs a Monitor over reg, probing with prober and appending
// alert records to sink.
func New(reg *registry.Registry, prober *probe.Prober, sink ActionAppender, opts ...Option) *Monitor {
	m := &Monitor{
		registry: reg,
		prober:   prober,
		sink:     sink,
		logger:   log.NoopLogger{},
		sem:      make(chan struct{}, DefaultCapacity),
		interval: DefaultInterval,
		states:   make(map[string]model.DeviceHealthState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run blocks, executing one cycle immediately and then one per
// interval, until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.RunCycle(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// transitionOutcome is the per-device result of one cycle's probe,
// collected before the lock is released so fleet alert derivation
// never runs while other goroutines might still be mutating state.
type transitionOutcome struct {
	deviceID   string
	recovered  bool
	wentOffline bool
}

// RunCycle probes every registered device once, under the shared
// semaphore, and returns the fleet-wide sample it produced.
func (m *Monitor) RunCycle(ctx context.Context) model.MonitorSample {
	devices := m.registry.All()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := make([]transitionOutcome, 0, len(devices))

	for _, d := range devices {
		wg.Add(1)
		go func(dev model.Device) {
			defer wg.Done()
			out := m.probeOne(ctx, dev, now)
			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()
		}(d)
	}
	wg.Wait()

	onlineCount, offlineCount := 0, 0
	anyRecovered, anyWentOffline := false, false

	m.mu.Lock()
	for _, st := range m.states {
		switch st.CurrentStatus {
		case model.StatusOnline:
			onlineCount++
		case model.StatusOffline:
			offlineCount++
		}
	}
	m.mu.Unlock()

	for _, out := range outcomes {
		anyRecovered = anyRecovered || out.recovered
		anyWentOffline = anyWentOffline || out.wentOffline
	}

	sample := model.MonitorSample{
		CycleAt:      now,
		OnlineCount:  onlineCount,
		OfflineCount: offlineCount,
	}

	level := alertLevelFor(offlineCount, len(devices), anyRecovered, anyWentOffline)
	if level != "" {
		var ratio float64
		if len(devices) > 0 {
			ratio = float64(offlineCount) / float64(len(devices))
		}
		event := model.AlertEvent{
			Timestamp:    now,
			Level:        level,
			Message:      alertMessage(level, offlineCount, len(devices)),
			OfflineCount: offlineCount,
			TotalCount:   len(devices),
			OfflineRatio: ratio,
		}
		m.emitAlert(event)
	}

	if m.onSample != nil {
		m.onSample(sample)
	}
	return sample
}

// probeOne gates one device's probe through the shared semaphore,
// applies the resulting transition under lock, and returns the fields
// needed for fleet alert derivation without holding the lock longer
// than the state mutation itself.
func (m *Monitor) probeOne(ctx context.Context, dev model.Device, now time.Time) transitionOutcome {
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return transitionOutcome{deviceID: dev.ID}
	}

	result := m.prober.Probe(ctx, dev)

	m.mu.Lock()
	prior, ok := m.states[dev.ID]
	if !ok {
		prior = model.DeviceHealthState{DeviceID: dev.ID, CurrentStatus: model.StatusUnknown, StatusSince: now}
	}
	next, recovered, wentOffline := transition(prior, result, now)
	m.states[dev.ID] = next
	m.mu.Unlock()

	if recovered {
		m.logger.Log(log.Event{
			Timestamp: now, Level: log.LevelInfo, Component: log.ComponentMonitor,
			Message: "device recovered", DeviceID: dev.ID,
		})
	}

	return transitionOutcome{deviceID: dev.ID, recovered: recovered, wentOffline: wentOffline}
}

// emitAlert invokes the registered alert callback and records the
// alert as a PROBE action record, outside any internal lock.
func (m *Monitor) emitAlert(event model.AlertEvent) {
	if m.onAlert != nil {
		m.onAlert(event)
	}
	if m.sink == nil {
		return
	}
	rec := model.ActionRecord{
		Timestamp:    event.Timestamp,
		DeviceID:     "",
		Action:       model.ActionProbe,
		Attempts:     1,
		Outcome:      model.OutcomeSuccess,
		ErrorMessage: event.Message,
	}
	if err := m.sink.Append(rec); err != nil {
		m.logger.Log(log.Event{
			Timestamp: event.Timestamp, Level: log.LevelError, Component: log.ComponentMonitor,
			Message: "failed to append alert record", Err: err,
		})
	}
}

// Snapshot returns a copy of every tracked device's current health
// state, safe for external callers (e.g. the Health() API method).
func (m *Monitor) Snapshot() []model.DeviceHealthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DeviceHealthState, 0, len(m.states))
	for _, st := range m.states {
		out = append(out, st)
	}
	return out
}

func alertMessage(level model.AlertLevel, offline, total int) string {
	return fmt.Sprintf("%s: %d/%d devices offline", level, offline, total)
}
