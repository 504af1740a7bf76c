package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IdleSweeper removes throttle entries that carry no active penalty
type IdleSweeper interface {
	DeleteIdle(now time.Time, ttl time.Duration) int
}

// CleanupManager periodically drops idle attempt state so memory stays
// bounded by recently active usernames
type CleanupManager struct {
	states   IdleSweeper
	logger   *slog.Logger
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	states IdleSweeper,
	logger *slog.Logger,
	interval time.Duration,
	ttl time.Duration,
) *CleanupManager {
	return &CleanupManager{
		states:   states,
		logger:   logger,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task and blocks until Stop or ctx is done
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.RunOnce()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce sweeps idle entries and returns how many were removed
func (cm *CleanupManager) RunOnce() int {
	removed := cm.states.DeleteIdle(cm.now(), cm.ttl)
	if removed > 0 {
		cm.logger.Info("idle attempt state swept", slog.Int("entries_removed", removed))
	}
	return removed
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
