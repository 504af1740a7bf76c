package attack

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/BradenHooton/gatekeeper/internal/candidates"
	"github.com/BradenHooton/gatekeeper/internal/config"
	"github.com/BradenHooton/gatekeeper/internal/coordination"
	"github.com/BradenHooton/gatekeeper/internal/dispatcher"
	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/BradenHooton/gatekeeper/internal/rainbow"
)

// Process exit codes
const (
	ExitFound     = 0
	ExitExhausted = 1
	ExitFatal     = 2
)

// CommonUsernames are probed in enumerate mode
var CommonUsernames = []string{
	"admin", "administrator", "root", "user", "test",
	"guest", "info", "support", "webmaster", "manager",
}

// enumerationPassword is never expected to be valid
const enumerationPassword = "invalid_password_test_12345"

// Result describes a finished run
type Result struct {
	Mode        Mode
	Found       bool
	Finding     *models.Finding
	BySibling   bool // found by another instance
	Interrupted bool
	Submitted   int

	Usernames []string // enumerate
	TableSize int      // create-table

	Stats *dispatcher.StatsReport
}

// ExitCode maps the result to the process exit status
func (r *Result) ExitCode() int {
	if r.Found || r.Mode.Utility() {
		return ExitFound
	}
	return ExitExhausted
}

type phase struct {
	name string
	seq  iter.Seq[string]
}

// Runner executes one attack mode against the configured target
type Runner struct {
	config      *config.AttackConfig
	prober      dispatcher.Prober
	broadcaster coordination.Broadcaster
	logger      *slog.Logger
	now         func() time.Time
	runID       string
}

// NewRunner wires the HTTP prober and the file broadcaster from cfg
func NewRunner(cfg *config.AttackConfig, logger *slog.Logger) *Runner {
	prober := dispatcher.NewHTTPProber(dispatcher.ProberConfig{
		TargetURL: cfg.TargetURL,
		Timeout:   cfg.RequestTimeout,
		Delay:     cfg.RequestDelay,
		MaxConns:  cfg.Concurrency,
	}, logger)
	broadcaster := coordination.NewFileBroadcaster(cfg.FoundFlagPath, logger)

	return NewRunnerWith(cfg, prober, broadcaster, logger)
}

// NewRunnerWith creates a Runner with explicit collaborators
func NewRunnerWith(cfg *config.AttackConfig, prober dispatcher.Prober, broadcaster coordination.Broadcaster, logger *slog.Logger) *Runner {
	runID := uuid.NewString()
	return &Runner{
		config:      cfg,
		prober:      prober,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("run_id", runID)),
		now:         time.Now,
		runID:       runID,
	}
}

// RunID identifies this run in findings and stats
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes mode for username. Errors are fatal: bad input files or
// configuration the run could not start with. A run that ends without a
// match is not an error.
func (r *Runner) Run(ctx context.Context, username string, mode Mode) (*Result, error) {
	r.logger.Info("attack starting",
		slog.String("target", r.config.TargetURL),
		slog.String("username", username),
		slog.String("mode", string(mode)),
		slog.Int("concurrency", r.config.Concurrency),
		slog.Duration("delay", r.config.RequestDelay),
		slog.Int("instance_id", r.config.InstanceID),
		slog.Int("total_instances", r.config.TotalInstances))

	switch mode {
	case ModeCreateTable:
		return r.createTable()
	case ModeEnumerate:
		return r.enumerate(ctx, CommonUsernames), nil
	}

	// Build every sequence first so a missing input fails before any request
	phases, err := r.phases(mode)
	if err != nil {
		return nil, err
	}

	if r.config.InstanceID == 0 {
		if err := r.broadcaster.Reset(ctx); err != nil {
			return nil, err
		}
	}

	return r.search(ctx, username, mode, phases), nil
}

func (r *Runner) search(ctx context.Context, username string, mode Mode, phases []phase) *Result {
	stop := &dispatcher.StopSignal{}
	stats := dispatcher.NewStats(r.now())
	result := &Result{Mode: mode}

	g, gctx := errgroup.WithContext(ctx)
	monitorCtx, stopMonitor := context.WithCancel(gctx)
	defer stopMonitor()

	var sibling *models.Finding
	if r.config.Sharded() {
		monitor := coordination.NewMonitor(r.broadcaster, stop, username, r.config.PollInterval, r.logger)
		r.logger.Info("shared state monitor started", slog.Duration("interval", r.config.PollInterval))
		g.Go(func() error {
			found, err := monitor.Run(monitorCtx)
			sibling = found
			return err
		})
	}

	g.Go(func() error {
		defer stopMonitor()
		r.runPhases(gctx, username, phases, stop, stats, result)
		return nil
	})

	// Neither goroutine returns an error
	_ = g.Wait()

	if !result.Found && sibling != nil {
		result.Found = true
		result.BySibling = true
		result.Finding = sibling
	}

	report := stats.Snapshot(r.now())
	report.RunID = r.runID
	report.Mode = string(mode)
	report.Username = username
	report.InstanceID = r.config.InstanceID
	report.TotalInstances = r.config.TotalInstances
	report.StopReason = stop.Reason()
	switch {
	case report.StopReason != "":
	case result.Interrupted:
		report.StopReason = "interrupted"
	default:
		report.StopReason = "exhausted"
	}
	result.Stats = &report

	if err := dispatcher.SaveStats(r.config.StatsPath, report); err != nil {
		r.logger.Error("failed to save stats", slog.Any("error", err))
	} else {
		r.logger.Info("statistics saved", slog.String("path", r.config.StatsPath))
	}

	r.logger.Info("attack finished",
		slog.Bool("found", result.Found),
		slog.Bool("by_sibling", result.BySibling),
		slog.Int("submitted", result.Submitted),
		slog.String("stop_reason", report.StopReason))

	return result
}

func (r *Runner) runPhases(ctx context.Context, username string, phases []phase, stop *dispatcher.StopSignal, stats *dispatcher.Stats, result *Result) {
	for _, p := range phases {
		if stop.Stopped() {
			return
		}

		// MAX_TRIES bounds the whole run, not each phase
		remaining := 0
		if r.config.MaxTries > 0 {
			remaining = r.config.MaxTries - result.Submitted
			if remaining <= 0 {
				return
			}
		}

		logger := r.logger.With(slog.String("phase", p.name))
		logger.Info("phase starting",
			slog.String("instance", fmt.Sprintf("%d/%d", r.config.InstanceID+1, r.config.TotalInstances)))

		d := dispatcher.New(r.prober, r.broadcaster, stop, stats, dispatcher.Config{
			Concurrency:   r.config.Concurrency,
			MaxTries:      remaining,
			ProgressEvery: r.config.ProgressEvery,
			InstanceID:    r.config.InstanceID,
			RunID:         r.runID,
		}, logger)

		report, err := d.Run(ctx, username, p.seq)
		result.Submitted += report.Submitted
		if report.Found {
			result.Found = true
			result.Finding = report.Finding
			return
		}
		if err != nil {
			logger.Warn("attack interrupted", slog.Any("error", err))
			result.Interrupted = true
			return
		}
		logger.Info("phase completed", slog.Int("submitted", report.Submitted))
	}
}

func (r *Runner) phases(mode Mode) ([]phase, error) {
	var phases []phase

	switch mode {
	case ModeRainbow:
		table, err := rainbow.Load(r.config.RainbowTablePath, r.logger)
		if err != nil {
			return nil, fmt.Errorf("%w (run create-table first)", err)
		}
		phases = append(phases, phase{"rainbow", r.shard(slices.Values(table.Passwords()))})
	case ModeDictionary, ModeHybrid:
		seq, err := r.dictionary()
		if err != nil {
			return nil, err
		}
		phases = append(phases, phase{"dictionary", r.shard(seq)})
	case ModeBruteforce:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	if mode == ModeBruteforce || mode == ModeHybrid {
		alphabet, err := candidates.Charset(r.config.Charset)
		if err != nil {
			return nil, err
		}
		r.logger.Info("bruteforce search space",
			slog.Int("charset_size", len(alphabet)),
			slog.Int("max_length", r.config.MaxLength),
			slog.Uint64("candidates", candidates.Count(len(alphabet), r.config.MaxLength)))
		phases = append(phases, phase{"bruteforce", r.shard(candidates.Exhaustive(alphabet, r.config.MaxLength))})
	}

	return phases, nil
}

func (r *Runner) dictionary() (iter.Seq[string], error) {
	words, err := candidates.LoadWordlist(r.config.DictionaryPath)
	if err != nil {
		return nil, err
	}
	words = candidates.WithCommonPasswords(words)
	r.logger.Info("dictionary loaded", slog.Int("base_words", len(words)))

	rules := candidates.RulesForYear(r.now().Year())
	rules.PairwiseLimit = r.config.PairwiseLimit
	return candidates.Expand(words, rules), nil
}

func (r *Runner) shard(seq iter.Seq[string]) iter.Seq[string] {
	if !r.config.Sharded() {
		return seq
	}
	return candidates.Shard(seq, r.config.InstanceID, r.config.TotalInstances)
}

func (r *Runner) createTable() (*Result, error) {
	seq, err := r.dictionary()
	if err != nil {
		return nil, err
	}

	r.logger.Info("building rainbow table", slog.Any("algorithms", r.config.HashAlgorithms))
	table, err := rainbow.Build(seq, r.config.HashAlgorithms)
	if err != nil {
		return nil, err
	}
	if err := table.Save(r.config.RainbowTablePath); err != nil {
		return nil, err
	}

	r.logger.Info("rainbow table created",
		slog.Int("entries", table.Len()),
		slog.String("path", r.config.RainbowTablePath))

	return &Result{Mode: ModeCreateTable, TableSize: table.Len()}, nil
}

// enumerate posts a bogus password for each username. Any status other
// than 404 marks the username as potentially valid.
func (r *Runner) enumerate(ctx context.Context, usernames []string) *Result {
	result := &Result{Mode: ModeEnumerate}

	for _, username := range usernames {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		probe := r.prober.Probe(ctx, username, enumerationPassword)
		if probe.Outcome == dispatcher.Error {
			r.logger.Error("failed to test username",
				slog.String("username", username),
				slog.Any("error", probe.Err))
			continue
		}
		if probe.Status != http.StatusNotFound {
			result.Usernames = append(result.Usernames, username)
			r.logger.Info("potential valid username",
				slog.String("username", username),
				slog.Int("status", probe.Status))
		}
	}

	r.logger.Info("enumeration finished", slog.Int("potential_usernames", len(result.Usernames)))
	return result
}

// IsInputError reports whether err comes from a missing or unusable input
// file rather than from the environment
func IsInputError(err error) bool {
	return errors.Is(err, candidates.ErrInputNotFound) || errors.Is(err, rainbow.ErrTableNotFound)
}
