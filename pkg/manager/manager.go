package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aquactl/aquactl/pkg/adapter"
	"github.com/aquactl/aquactl/pkg/log"
	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/registry"
	"github.com/aquactl/aquactl/pkg/retry"
)

// DefaultCapacity is the default shared semaphore size, per spec.
const DefaultCapacity = 10

// DefaultDeadline is the default overall bulk-operation deadline.
const DefaultDeadline = 10 * time.Minute

// admitTimeout bounds the up-front backpressure check.
const admitTimeout = 1 * time.Second

// ErrBusy is returned when the manager cannot even begin admitting a
// batch within the backpressure budget.
var ErrBusy = errors.New("device manager is busy")

// ActionAppender receives one ActionRecord per completed device
// attempt terminus. Implemented by pkg/actionlog.Sink.
type ActionAppender interface {
	Append(model.ActionRecord) error
}

// Manager is the Device Manager.
type Manager struct {
	registry *registry.Registry
	adapters *adapter.Registry
	executor *retry.Executor
	sink     ActionAppender
	logger   log.Logger

	sem chan struct{}

	policy   model.RetryPolicy
	deadline time.Duration

	deviceMu   sync.Mutex
	deviceLock map[string]*sync.Mutex
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithCapacity overrides the shared semaphore size.
func WithCapacity(c int) Option {
	return func(m *Manager) {
		if c > 0 {
			m.sem = make(chan struct{}, c)
		}
	}
}

// WithRetryPolicy overrides the default retry policy applied to every
// dispatched call.
func WithRetryPolicy(p model.RetryPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithDeadline overrides the overall bulk-operation deadline.
func WithDeadline(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.deadline = d
		}
	}
}

// WithLogger attaches an operational logger.
func WithLogger(l log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithSemaphore injects a pre-built semaphore channel in place of the
// one New would otherwise allocate. The Monitor shares this channel so
// health probes and device commands draw from the same bounded pool of
// concurrent device interactions, per the concurrency model.
func WithSemaphore(sem chan struct{}) Option {
	return func(m *Manager) {
		if sem != nil {
			m.sem = sem
		}
	}
}

// New constructs a Device Manager.
func New(reg *registry.Registry, adapters *adapter.Registry, sink ActionAppender, opts ...Option) *Manager {
	m := &Manager{
		registry:   reg,
		adapters:   adapters,
		executor:   retry.NewExecutor(),
		sink:       sink,
		logger:     log.NoopLogger{},
		sem:        make(chan struct{}, DefaultCapacity),
		policy:     model.DefaultRetryPolicy(),
		deadline:   DefaultDeadline,
		deviceLock: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TurnOn powers on every device resolved by target.
func (m *Manager) TurnOn(ctx context.Context, target model.Target) (model.ExecutionReport, error) {
	return m.execute(ctx, model.ActionTurnOn, target)
}

// TurnOff powers off every device resolved by target.
func (m *Manager) TurnOff(ctx context.Context, target model.Target) (model.ExecutionReport, error) {
	return m.execute(ctx, model.ActionTurnOff, target)
}

// Query reports the power state of every device resolved by target.
func (m *Manager) Query(ctx context.Context, target model.Target) (model.ExecutionReport, error) {
	return m.execute(ctx, model.ActionQuery, target)
}

func (m *Manager) execute(ctx context.Context, action model.Action, target model.Target) (model.ExecutionReport, error) {
	ids, err := m.registry.IDsMatching(target)
	if err != nil {
		return model.ExecutionReport{}, fmt.Errorf("resolving target %q: %w", target, err)
	}

	if err := m.admit(ctx); err != nil {
		return model.ExecutionReport{}, err
	}

	overallCtx, cancel := context.WithTimeout(ctx, m.deadline)
	defer cancel()

	started := time.Now().UTC()

	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make(map[string]model.ActionRecord, len(ids))

	for _, id := range ids {
		wg.Add(1)
		go func(deviceID string) {
			defer wg.Done()
			rec := m.executeOne(overallCtx, deviceID, action)
			mu.Lock()
			results[deviceID] = rec
			mu.Unlock()
			m.append(rec)
		}(id)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-overallCtx.Done():
	}

	mu.Lock()
	for _, id := range ids {
		if _, ok := results[id]; ok {
			continue
		}
		rec := model.ActionRecord{
			Timestamp: time.Now().UTC(),
			DeviceID:  id,
			Action:    action,
			Attempts:  0,
			Outcome:   model.OutcomeTimeout,
		}
		results[id] = rec
		m.append(rec)
	}
	mu.Unlock()

	report := model.ExecutionReport{
		StartedAt:       started,
		FinishedAt:      time.Now().UTC(),
		RequestedAction: action,
		Results:         results,
	}
	for _, rec := range results {
		if rec.Outcome == model.OutcomeSuccess {
			report.SuccessCount++
		} else {
			report.FailureCount++
		}
	}
	return report, nil
}

// admit applies the batch-level backpressure check: it must be able
// to reserve a slot of shared capacity within admitTimeout, or the
// whole call fails fast rather than starting some devices and
// stalling on others.
func (m *Manager) admit(ctx context.Context) error {
	timer := time.NewTimer(admitTimeout)
	defer timer.Stop()

	select {
	case m.sem <- struct{}{}:
		<-m.sem
		return nil
	case <-timer.C:
		return ErrBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) executeOne(ctx context.Context, deviceID string, action model.Action) model.ActionRecord {
	dev, ok := m.registry.Get(deviceID)
	if !ok {
		return model.ActionRecord{
			Timestamp:    time.Now().UTC(),
			DeviceID:     deviceID,
			Action:       action,
			Outcome:      model.OutcomeProtocolError,
			ErrorMessage: "device not found in registry",
		}
	}

	lock := m.lockFor(deviceID)
	lock.Lock()
	defer lock.Unlock()

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return model.ActionRecord{
			Timestamp: time.Now().UTC(),
			DeviceID:  deviceID,
			Action:    action,
			Outcome:   model.OutcomeTimeout,
			Cancelled: true,
		}
	}
	defer func() { <-m.sem }()

	adp, err := m.adapters.For(dev.Type)
	if err != nil {
		return model.ActionRecord{
			Timestamp:    time.Now().UTC(),
			DeviceID:     deviceID,
			Action:       action,
			Outcome:      model.OutcomeProtocolError,
			ErrorMessage: err.Error(),
		}
	}

	return m.executor.Run(ctx, deviceID, action, m.policy, attemptFuncFor(adp, dev, action))
}

func attemptFuncFor(adp adapter.ProtocolAdapter, dev model.Device, action model.Action) retry.AttemptFunc {
	return func(ctx context.Context) (model.Outcome, error) {
		switch action {
		case model.ActionTurnOn:
			return adp.PowerOn(ctx, dev)
		case model.ActionTurnOff:
			return adp.PowerOff(ctx, dev)
		case model.ActionQuery:
			_, outcome, err := adp.QueryPower(ctx, dev)
			return outcome, err
		default:
			return model.OutcomeProtocolError, fmt.Errorf("device manager does not dispatch action %q", action)
		}
	}
}

// Semaphore exposes the shared bounded-concurrency channel so other
// subsystems (the Monitor) can gate their own device interactions
// through the same pool rather than a duplicate one.
func (m *Manager) Semaphore() chan struct{} {
	return m.sem
}

func (m *Manager) lockFor(deviceID string) *sync.Mutex {
	m.deviceMu.Lock()
	defer m.deviceMu.Unlock()
	l, ok := m.deviceLock[deviceID]
	if !ok {
		l = &sync.Mutex{}
		m.deviceLock[deviceID] = l
	}
	return l
}

func (m *Manager) append(rec model.ActionRecord) {
	if m.sink == nil {
		return
	}
	if err := m.sink.Append(rec); err != nil {
		m.logger.Log(log.Event{
			Timestamp: time.Now().UTC(),
			Level:     log.LevelError,
			Component: log.ComponentManager,
			Message:   "failed to append action record",
			DeviceID:  rec.DeviceID,
			Err:       err,
		})
	}
}
