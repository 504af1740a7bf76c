package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
	"golang.org/x/time/rate"
)

// Outcome classifies a single probe
type Outcome int

const (
	NoMatch Outcome = iota
	Match
	Error
)

func (o Outcome) String() string {
	switch o {
	case Match:
		return "match"
	case Error:
		return "error"
	default:
		return "no_match"
	}
}

// DefaultUserAgents is the pool a User-Agent is drawn from per request
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
}

// ProbeResult is the outcome of one login request
type ProbeResult struct {
	Candidate string
	Outcome   Outcome
	Status    int
	Duration  time.Duration
	Err       error
}

// ProberConfig holds prober settings
type ProberConfig struct {
	TargetURL  string
	Timeout    time.Duration
	Delay      time.Duration // minimum spacing between requests, 0 disables
	UserAgents []string
	MaxConns   int // idle connections kept per host, usually the concurrency
}

// HTTPProber posts credential pairs to the login endpoint
type HTTPProber struct {
	client     *http.Client
	targetURL  string
	pacer      *rate.Limiter
	userAgents []string
	logger     *slog.Logger
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewHTTPProber creates an HTTPProber
func NewHTTPProber(config ProberConfig, logger *slog.Logger) *HTTPProber {
	userAgents := config.UserAgents
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}

	var pacer *rate.Limiter
	if config.Delay > 0 {
		pacer = rate.NewLimiter(rate.Every(config.Delay), 1)
	}

	return &HTTPProber{
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: max(config.MaxConns, 2),
				IdleConnTimeout:     90 * time.Second,
			},
		},
		targetURL:  config.TargetURL,
		pacer:      pacer,
		userAgents: userAgents,
		logger:     logger,
	}
}

// Probe submits one credential pair. Transport failures come back as
// Outcome Error with Err set; every HTTP status other than 200 is a
// NoMatch. Cancelling ctx aborts the pacing wait, but a request already
// sent runs to completion under the client timeout.
func (p *HTTPProber) Probe(ctx context.Context, username, candidate string) ProbeResult {
	result := ProbeResult{Candidate: candidate}

	if p.pacer != nil {
		if err := p.pace(ctx); err != nil {
			result.Outcome = Error
			result.Err = err
			return result
		}
	}

	body, err := json.Marshal(loginBody{Username: username, Password: candidate})
	if err != nil {
		result.Outcome = Error
		result.Err = fmt.Errorf("failed to encode login body: %w", err)
		return result
	}

	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, p.targetURL, bytes.NewReader(body))
	if err != nil {
		result.Outcome = Error
		result.Err = fmt.Errorf("failed to build login request: %w", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", p.userAgents[rand.IntN(len(p.userAgents))])

	start := time.Now()
	resp, err := p.client.Do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Outcome = Error
		result.Err = err
		p.logger.Error("probe failed",
			slog.String("candidate", pkglogger.MaskSecret(candidate)),
			slog.Any("error", err))
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	switch resp.StatusCode {
	case http.StatusOK:
		result.Outcome = Match
	case http.StatusUnauthorized:
		result.Outcome = NoMatch
	case http.StatusForbidden, http.StatusLocked, http.StatusTooManyRequests:
		result.Outcome = NoMatch
		p.logger.Warn("probe throttled",
			slog.Int("status", resp.StatusCode),
			slog.String("retry_after", resp.Header.Get("Retry-After")),
			slog.String("candidate", pkglogger.MaskSecret(candidate)))
	default:
		result.Outcome = NoMatch
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		p.logger.Warn("unexpected status",
			slog.Int("status", resp.StatusCode),
			slog.String("body", strings.TrimSpace(string(snippet))),
			slog.String("candidate", pkglogger.MaskSecret(candidate)))
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return result
}

// pace waits for the next pacer slot. Unlike rate.Limiter.Wait it reports
// ctx.Err() rather than failing early when a deadline falls before the slot.
func (p *HTTPProber) pace(ctx context.Context) error {
	reservation := p.pacer.Reserve()
	delay := reservation.Delay()
	if delay == 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	}
}
