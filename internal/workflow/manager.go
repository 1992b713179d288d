package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clipsight/internal/config"
	"clipsight/internal/logging"
	"clipsight/internal/media"
	"clipsight/internal/stages"
)

// Manager runs the pipeline: a bounded pool of workers claims pending media
// records and drives each through its stage sequence.
type Manager struct {
	cfg                *config.Config
	store              *media.Store
	logger             *slog.Logger
	deps               *stages.Deps
	pollInterval       time.Duration
	errorRetryInterval time.Duration
	heartbeat          *heartbeatLoop

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager over the supplied stage
// dependencies. The worker count and polling cadence come from cfg.Workflow.
func NewManager(cfg *config.Config, store *media.Store, logger *slog.Logger, deps *stages.Deps) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:                cfg,
		store:              store,
		logger:             logging.NewComponentLogger(logger, "workflow"),
		deps:               deps,
		pollInterval:       time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeat: &heartbeatLoop{
			store:    store,
			logger:   logger,
			interval: time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		},
	}
}

// Start recovers interrupted records and launches the worker pool. It returns
// immediately; workers run until Stop or context cancellation.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}

	recovered, err := m.store.RecoverInterrupted(ctx, "interrupted by daemon restart")
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if recovered > 0 {
		m.logger.Info("recovered interrupted records", logging.Int64("count", recovered))
	}

	workers := m.cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(workers)
	m.mu.Unlock()

	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates background processing and waits for in-flight stages to
// observe cancellation.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", index))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		record, err := m.store.ClaimNextPending(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("claim next pending failed", logging.Error(err))
			if !sleepCtx(ctx, m.errorRetryInterval) {
				return
			}
			continue
		}
		if record == nil {
			if !sleepCtx(ctx, m.pollInterval) {
				return
			}
			continue
		}

		if err := m.processRecord(ctx, logger, record); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
