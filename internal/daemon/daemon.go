// Package daemon runs the background sync loop: a connectivity monitor that
// triggers queue replay on every offline→online transition, guarded by a
// single-instance lock.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"mealvault/internal/config"
	"mealvault/internal/connectivity"
	"mealvault/internal/logging"
	"mealvault/internal/syncqueue"
)

type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	monitor  *connectivity.Monitor
	replayer *syncqueue.Replayer
	queue    *syncqueue.Store

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Online       bool
	Queue        syncqueue.Stats
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, queue *syncqueue.Store, monitor *connectivity.Monitor, replayer *syncqueue.Replayer, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || queue == nil || monitor == nil || replayer == nil || logger == nil {
		return nil, errors.New("daemon requires config, queue, monitor, replayer, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "mealvaultd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		monitor:  monitor,
		replayer: replayer,
		queue:    queue,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers entries stranded in-flight by a
// previous crash, and begins connectivity monitoring. Every offline→online
// transition triggers one replay pass.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mealvault daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	reset, err := d.queue.ResetStuckInFlight(runCtx)
	if err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("reset stuck entries: %w", err)
	}
	if reset > 0 {
		d.logger.InfoContext(runCtx, "requeued entries stranded in-flight", logging.Int64("count", reset))
	}

	d.monitor.OnOnline(func(cbCtx context.Context) {
		if _, err := d.replayer.ReplayAll(cbCtx); err != nil {
			d.logger.ErrorContext(cbCtx, "replay pass failed", logging.Error(err))
		}
	})
	d.monitor.Start(runCtx)

	d.running.Store(true)
	d.logger.InfoContext(runCtx, "mealvault daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts monitoring and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("mealvault daemon stopped")
}

// Close stops the daemon and closes the queue store it owns.
func (d *Daemon) Close() error {
	d.Stop()
	if d.queue != nil {
		return d.queue.Close()
	}
	return nil
}

// Status reports the daemon's current state.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	stats, err := d.queue.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:      d.running.Load(),
		Online:       d.monitor.Online(),
		Queue:        stats,
		LockFilePath: d.lockPath,
	}, nil
}
