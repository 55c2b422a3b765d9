package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"vodmill/internal/api"
	"vodmill/internal/config"
	"vodmill/internal/history"
	"vodmill/internal/jobstate"
	"vodmill/internal/logging"
	"vodmill/internal/media"
	"vodmill/internal/pipeline"
	"vodmill/internal/preflight"
	"vodmill/internal/status"
	"vodmill/internal/watcher"
)

// Daemon wires the watcher, worker, and status server into one lifecycle
// and enforces single-instance execution with a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store   *jobstate.Store
	client  *status.Client
	queue   *pipeline.Queue
	worker  *pipeline.Worker
	watcher *watcher.Watcher
	server  *api.Server
	history *history.Store

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with all collaborators wired. The history store
// is opened here; everything else stays inert until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	hist, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	store := jobstate.NewStore()
	client := status.NewClient(cfg, store, logger)
	toolset := media.NewToolset(cfg, logger)
	queue := pipeline.NewQueue(0)
	driver := pipeline.NewDriver(cfg, toolset, client, logger)
	worker := pipeline.NewWorker(queue, driver, hist, logger)

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		client:   client,
		queue:    queue,
		worker:   worker,
		server:   api.NewServer(cfg, store, logger),
		history:  hist,
		lockPath: filepath.Join(cfg.Paths.LogDir, "vodmilld.lock"),
	}
	d.lock = flock.New(d.lockPath)
	d.watcher = watcher.New(cfg, queue.Enqueue, logger)
	return d, nil
}

// Start acquires the instance lock, runs preflight, and launches the
// watcher, worker, and status server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vodmill daemon instance is already running")
	}

	results := preflight.RunAll(d.cfg)
	for _, result := range results {
		if result.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		} else {
			d.logger.Warn("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.Bool("optional", result.Optional),
			)
		}
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		_ = d.lock.Unlock()
		return fmt.Errorf("preflight failed: %s", failed[0].Detail)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.worker.Start(runCtx); err != nil {
		d.abortStart()
		return fmt.Errorf("start worker: %w", err)
	}
	if err := d.watcher.Start(runCtx); err != nil {
		d.worker.Stop()
		d.abortStart()
		return fmt.Errorf("start watcher: %w", err)
	}

	// A dead status endpoint degrades visibility, not processing. Log and
	// keep going.
	if err := d.server.Start(runCtx); err != nil {
		d.logger.Error("status server failed to start", logging.Error(err))
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("input_dir", d.cfg.Paths.InputDir),
		logging.String("lock", d.lockPath),
		logging.Bool("events_enabled", d.client.Enabled()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	_ = d.lock.Unlock()
}

// Stop halts intake first, then waits for the in-flight job and shuts the
// status server down.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.watcher.Stop()
	d.worker.Stop()
	d.server.Stop()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases persistent resources.
func (d *Daemon) Close() error {
	d.Stop()
	return d.history.Close()
}

// StatusAddr returns the bound status server address, or empty when the
// server failed to start.
func (d *Daemon) StatusAddr() string {
	return d.server.Addr()
}
