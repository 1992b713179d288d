package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"clipsight/internal/config"
	"clipsight/internal/logging"
	"clipsight/internal/logstream"
	"clipsight/internal/media"
	"clipsight/internal/stages"
	"clipsight/internal/workflow"
)

// Daemon ties the store, workflow manager, log streamer, and HTTP API
// together and enforces single-instance execution via a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *media.Store
	workflow *workflow.Manager
	streamer *logstream.Streamer
	tools    stages.MediaTools
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies. The streamer is
// registered as the store's notifier.
func New(cfg *config.Config, store *media.Store, logger *slog.Logger, wf *workflow.Manager, tools stages.MediaTools) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if tools == nil {
		tools = stages.NewFFmpegTools(cfg)
	}

	streamer := logstream.New(store)
	store.SetNotifier(streamer)

	lockPath := filepath.Join(cfg.Paths.DataDir, "clipsightd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		streamer: streamer,
		tools:    tools,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, launches the workflow manager, and
// begins serving the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipsight daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.workflow.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the API, the workflow manager, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock failed", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the bound API address once Start has succeeded.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Running reports whether background processing is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
