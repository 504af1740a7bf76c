package dispatcher

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

// Prober submits one candidate for username
type Prober interface {
	Probe(ctx context.Context, username, candidate string) ProbeResult
}

// Publisher announces a finding to sibling instances
type Publisher interface {
	Publish(ctx context.Context, finding models.Finding) error
}

// Config holds dispatcher settings
type Config struct {
	Concurrency   int
	MaxTries      int // 0 means unlimited
	ProgressEvery int
	InstanceID    int
	RunID         string
}

// Report summarizes one Run
type Report struct {
	Submitted int
	Found     bool
	Password  string
	Finding   *models.Finding
	Stopped   bool // stopped by the shared signal rather than exhaustion
}

// Dispatcher feeds candidates from a sequence into concurrent probes.
// It checks the stop signal between submissions and lets requests already
// sent run to completion. Queued probes that have not started are dropped
// once the stop signal is set or ctx is done.
type Dispatcher struct {
	prober    Prober
	publisher Publisher
	stop      *StopSignal
	stats     *Stats
	config    Config
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	finding *models.Finding
}

// New creates a Dispatcher. publisher may be nil for single-instance runs.
func New(prober Prober, publisher Publisher, stop *StopSignal, stats *Stats, config Config, logger *slog.Logger) *Dispatcher {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.ProgressEvery < 1 {
		config.ProgressEvery = 1000
	}
	return &Dispatcher{
		prober:    prober,
		publisher: publisher,
		stop:      stop,
		stats:     stats,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Run probes candidates from seq for username until the sequence is
// exhausted, MaxTries candidates were submitted, the stop signal is set or
// ctx is done. It always waits for in-flight probes before returning.
// The returned error is ctx.Err() when ctx ended the run; the stop signal
// is then set with reason "interrupted".
func (d *Dispatcher) Run(ctx context.Context, username string, seq iter.Seq[string]) (Report, error) {
	limiter := NewLimiter(d.config.Concurrency)
	backlog := 2 * d.config.Concurrency

	var report Report
	for candidate := range seq {
		if d.stop.Stopped() || ctx.Err() != nil {
			break
		}
		if d.config.MaxTries > 0 && report.Submitted >= d.config.MaxTries {
			d.logger.Warn("max tries reached", slog.Int("max_tries", d.config.MaxTries))
			break
		}

		// Keep the queue short so memory does not grow with the sequence
		if err := limiter.WaitBelow(ctx, backlog); err != nil {
			break
		}
		if d.stop.Stopped() {
			break
		}

		report.Submitted++
		limiter.Submit(func() {
			d.probe(ctx, username, candidate)
		})

		if report.Submitted%d.config.ProgressEvery == 0 {
			d.logger.Info("progress",
				slog.Int("submitted", report.Submitted),
				slog.Int("tried", d.stats.Tried()))
		}
	}

	if ctx.Err() != nil {
		d.stop.Stop("interrupted")
	}
	limiter.Wait()

	d.mu.Lock()
	if d.finding != nil {
		report.Found = true
		report.Password = d.finding.Password
		finding := *d.finding
		report.Finding = &finding
	}
	d.mu.Unlock()
	report.Stopped = !report.Found && d.stop.Stopped()

	d.logger.Info("dispatch finished",
		slog.Int("submitted", report.Submitted),
		slog.Bool("found", report.Found))

	if err := ctx.Err(); err != nil && !report.Found {
		return report, err
	}
	return report, nil
}

func (d *Dispatcher) probe(ctx context.Context, username, candidate string) {
	// A sibling or an earlier probe may have won while this one was queued
	if d.stop.Stopped() || ctx.Err() != nil {
		return
	}

	result := d.prober.Probe(ctx, username, candidate)
	if result.Outcome == Error && ctx.Err() != nil && errors.Is(result.Err, ctx.Err()) {
		// Cancelled before the request went out
		return
	}
	d.stats.Record(result)

	switch result.Outcome {
	case Match:
		d.recordMatch(ctx, username, candidate)
	case Error:
		d.logger.Debug("probe error",
			slog.String("candidate", pkglogger.MaskSecret(candidate)),
			slog.Any("error", result.Err))
	default:
		d.logger.Debug("probe rejected",
			slog.String("candidate", pkglogger.MaskSecret(candidate)),
			slog.Int("status", result.Status))
	}
}

func (d *Dispatcher) recordMatch(ctx context.Context, username, password string) {
	finding := models.Finding{
		Username:   username,
		Password:   password,
		Timestamp:  d.now().UTC().Format(time.RFC3339),
		InstanceID: d.config.InstanceID,
		RunID:      d.config.RunID,
	}

	d.mu.Lock()
	first := d.finding == nil
	if first {
		d.finding = &finding
	}
	d.mu.Unlock()

	d.stats.RecordFinding(finding)
	d.stop.Stop("match")

	if !first {
		// Near-simultaneous matches are tolerated, only the first is published
		return
	}

	d.logger.Info("password found", slog.String("username", username))
	if d.publisher != nil {
		// Siblings must hear about the match even when this run is shutting down
		if err := d.publisher.Publish(context.WithoutCancel(ctx), finding); err != nil {
			d.logger.Error("failed to publish finding", slog.Any("error", err))
		}
	}
}
