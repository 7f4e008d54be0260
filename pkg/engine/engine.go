package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aquactl/aquactl/pkg/actionlog"
	"github.com/aquactl/aquactl/pkg/adapter"
	"github.com/aquactl/aquactl/pkg/config"
	"github.com/aquactl/aquactl/pkg/discovery"
	"github.com/aquactl/aquactl/pkg/log"
	"github.com/aquactl/aquactl/pkg/manager"
	"github.com/aquactl/aquactl/pkg/model"
	"github.com/aquactl/aquactl/pkg/monitor"
	"github.com/aquactl/aquactl/pkg/probe"
	"github.com/aquactl/aquactl/pkg/registry"
	"github.com/aquactl/aquactl/pkg/reportstore"
	"github.com/aquactl/aquactl/pkg/scheduler"
	"github.com/aquactl/aquactl/pkg/vault"
)

// maxRecentAlerts bounds the in-memory alert ring Alerts() serves
// from; older events are still durable in the Report Store's daily
// files but are not replayed into this fast path.
const maxRecentAlerts = 500

// Engine is the composition root. It owns every long-lived subsystem
// and is the only thing an external transport (HTTP handler or the
// CLI) talks to.
type Engine struct {
	cfg config.ConfigDocument

	registry *registry.Registry
	sink     *actionlog.Sink
	manager  *manager.Manager
	sched    *scheduler.Scheduler
	mon      *monitor.Monitor
	reports  *reportstore.Store
	hinter   *discovery.Hinter
	vault    *vault.Vault
	logger   log.Logger

	alertsMu sync.Mutex
	alerts   []model.AlertEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	schedulerRunning bool
}

// New constructs an Engine from a validated configuration document and
// immediately starts its background loops (Monitor, Scheduler, and,
// if enabled, the mDNS Discovery Hinter). Call Shutdown to stop them.
func New(cfg config.ConfigDocument, logger log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.NoopLogger{}
	}

	reg, err := registry.Load(cfg)
	if err != nil {
		return nil, err
	}

	sink, err := actionlog.NewSink(cfg.LogDir)
	if err != nil {
		return nil, &config.ConfigError{Msg: "constructing action log sink", Cause: err}
	}

	reports, err := reportstore.New(cfg.ReportDir)
	if err != nil {
		return nil, &config.ConfigError{Msg: "constructing report store", Cause: err}
	}

	store, err := scheduler.NewStore(cfg.ScheduleDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening schedule store %s: %w: %w", cfg.ScheduleDBPath, ErrScheduleStoreUnavailable, err)
	}

	sem := make(chan struct{}, cfg.MaxConcurrency)

	mgr := manager.New(reg, adapter.NewRegistry(), sink,
		manager.WithSemaphore(sem),
		manager.WithRetryPolicy(cfg.Retry),
		manager.WithLogger(logger),
	)

	v, err := vault.NewFromEnv()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("constructing credential vault: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sched, err := scheduler.New(store, mgr, cfg.Timezone,
		scheduler.WithLogger(logger),
		scheduler.WithOnReport(func(rep model.ExecutionReport) {
			if err := reports.AppendReport(rep); err != nil {
				logger.Log(log.Event{Timestamp: time.Now().UTC(), Level: log.LevelError, Component: log.ComponentReportStore,
					Message: "failed to append scheduled execution report", Err: err})
			}
		}),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("constructing scheduler: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		registry: reg,
		sink:     sink,
		manager:  mgr,
		sched:    sched,
		reports:  reports,
		vault:    v,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	e.mon = monitor.New(reg, probe.New(), sink,
		monitor.WithSemaphore(sem),
		monitor.WithInterval(time.Duration(cfg.MonitorIntervalSec)*time.Second),
		monitor.WithLogger(logger),
		monitor.WithOnAlert(e.recordAlert),
		monitor.WithOnSample(func(s model.MonitorSample) {
			if err := reports.AppendSample(s); err != nil {
				logger.Log(log.Event{Timestamp: time.Now().UTC(), Level: log.LevelError, Component: log.ComponentReportStore,
					Message: "failed to append monitor sample", Err: err})
			}
		}),
	)

	if cfg.DiscoveryEnabled {
		e.hinter = discovery.NewHinter(5 * time.Minute)
	}

	e.start()
	return e, nil
}

func (e *Engine) start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.mon.Run(e.ctx)
	}()

	e.schedulerRunning = true
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.sched.Run(e.ctx)
	}()

	if e.hinter != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.hinter.Run(e.ctx)
		}()
	}
}

func (e *Engine) recordAlert(event model.AlertEvent) {
	e.alertsMu.Lock()
	e.alerts = append(e.alerts, event)
	if len(e.alerts) > maxRecentAlerts {
		e.alerts = e.alerts[len(e.alerts)-maxRecentAlerts:]
	}
	e.alertsMu.Unlock()

	if err := e.reports.AppendAlert(event); err != nil {
		e.logger.Log(log.Event{Timestamp: time.Now().UTC(), Level: log.LevelError, Component: log.ComponentReportStore,
			Message: "failed to append alert event", Err: err})
	}
}

// Shutdown trips the process-wide cancellation signal, waits for every
// background loop to exit (bounded by ctx), and releases durable
// handles. Safe to call once.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	e.schedulerRunning = false

	var firstErr error
	if err := e.sched.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.sink.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
