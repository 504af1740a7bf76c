package coordination

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
)

// Stopper is the shared stop flag the monitor trips
type Stopper interface {
	Stop(reason string)
	Stopped() bool
}

// Monitor polls a Broadcaster on a fixed interval and trips the stop flag
// when a sibling reports a finding for the same username
type Monitor struct {
	broadcaster Broadcaster
	stop        Stopper
	username    string
	interval    time.Duration
	logger      *slog.Logger
}

// NewMonitor creates a Monitor
func NewMonitor(broadcaster Broadcaster, stop Stopper, username string, interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{
		broadcaster: broadcaster,
		stop:        stop,
		username:    username,
		interval:    interval,
		logger:      logger,
	}
}

// Run polls until a sibling finding shows up, the stop flag is set by
// someone else, or ctx is done. It returns the sibling's finding, if any.
func (m *Monitor) Run(ctx context.Context) (*models.Finding, error) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case <-ticker.C:
		}

		if m.stop.Stopped() {
			return nil, nil
		}

		finding, err := m.broadcaster.Poll(ctx)
		if err != nil {
			m.logger.Warn("failed to poll found flag", slog.Any("error", err))
			continue
		}
		if finding == nil {
			continue
		}
		if finding.Username != m.username {
			m.logger.Debug("ignoring finding for another username", slog.String("username", finding.Username))
			continue
		}

		m.logger.Info("password found by sibling instance",
			slog.Int("instance_id", finding.InstanceID),
			slog.String("timestamp", finding.Timestamp))
		m.stop.Stop("sibling")
		return finding, nil
	}
}
