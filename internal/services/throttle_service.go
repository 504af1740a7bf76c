package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/BradenHooton/gatekeeper/internal/repositories"
	pkgauth "github.com/BradenHooton/gatekeeper/pkg/auth"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

// CredentialStore defines the read-only credential lookup
type CredentialStore interface {
	GetPassword(ctx context.Context, username string) (string, error)
}

// AttemptStateStore defines serialized per-username access to throttle state
type AttemptStateStore interface {
	Update(username string, fn repositories.UpdateFunc) error
}

// PenaltyMode selects how a failure delay is applied
type PenaltyMode string

const (
	// PenaltyCooldown rejects further attempts until the delay has elapsed
	PenaltyCooldown PenaltyMode = "cooldown"
	// PenaltyBlock holds the failed response for the delay instead
	PenaltyBlock PenaltyMode = "block"
)

// ThrottleConfig holds configuration for the login throttle.
// A zero threshold disables that stage.
type ThrottleConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	CaptchaThreshold int
	Delay            DelayPolicy
	PenaltyMode      PenaltyMode
}

// ThrottleService decides for each login attempt whether credentials are
// checked at all and what a failure costs.
//
// Checks run in order: lockout, cooldown, captcha, credentials. The cheapest
// and most severe rejection comes first so locked accounts never reach the
// captcha verifier or the password compare.
type ThrottleService struct {
	creds   CredentialStore
	states  AttemptStateStore
	captcha CaptchaVerifier
	config  ThrottleConfig
	logger  *slog.Logger
	audit   *pkglogger.AuditLogger
	now     func() time.Time
}

// NewThrottleService creates a new ThrottleService. A nil captcha verifier
// disables captcha gating regardless of the configured threshold.
func NewThrottleService(
	creds CredentialStore,
	states AttemptStateStore,
	captcha CaptchaVerifier,
	config ThrottleConfig,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *ThrottleService {
	if captcha == nil {
		config.CaptchaThreshold = 0
	}
	if config.PenaltyMode == "" {
		config.PenaltyMode = PenaltyCooldown
	}
	return &ThrottleService{
		creds:   creds,
		states:  states,
		captcha: captcha,
		config:  config,
		logger:  logger,
		audit:   audit,
		now:     time.Now,
	}
}

// SetClock replaces the time source
func (s *ThrottleService) SetClock(now func() time.Time) {
	s.now = now
}

// Attempt runs one login attempt through the throttle.
//
// On success the username's state is cleared and a LoginResult returned.
// Rejections and failed passwords come back as *models.ThrottleError wrapping
// ErrAccountLocked, ErrCooldownActive, ErrCaptchaRequired, ErrInvalidCaptcha or
// ErrUnauthorized. A captcha transport failure wraps ErrCaptchaUnavailable and,
// like any other error raised during verification, leaves the state untouched.
func (s *ThrottleService) Attempt(ctx context.Context, attempt models.LoginAttempt) (*models.LoginResult, error) {
	now := s.now()

	var result *models.LoginResult
	var rejection *models.ThrottleError
	var failureCount int

	err := s.states.Update(attempt.Username, func(state *models.AttemptState) (bool, error) {
		clearExpired(state, now)

		// 1. Lockout
		if state.IsLocked(now) {
			rejection = &models.ThrottleError{
				Reason:          models.ErrAccountLocked,
				RetryAfter:      state.LockedUntil.Sub(now),
				RequiresCaptcha: state.RequiresCaptcha,
			}
			return !state.IsClean(), nil
		}

		// 2. Cooldown
		if state.InCooldown(now) {
			rejection = &models.ThrottleError{
				Reason:          models.ErrCooldownActive,
				RetryAfter:      state.CooldownUntil.Sub(now),
				RequiresCaptcha: state.RequiresCaptcha,
			}
			return !state.IsClean(), nil
		}

		// 3. Captcha
		if state.RequiresCaptcha && s.captcha != nil {
			if attempt.CaptchaToken == "" {
				rejection = &models.ThrottleError{Reason: models.ErrCaptchaRequired, RequiresCaptcha: true}
				return true, nil
			}
			ok, err := s.captcha.Verify(ctx, attempt.CaptchaToken, attempt.RemoteIP)
			if err != nil {
				return false, fmt.Errorf("%w: %v", models.ErrCaptchaUnavailable, err)
			}
			if !ok {
				rejection = &models.ThrottleError{Reason: models.ErrInvalidCaptcha, RequiresCaptcha: true}
				return true, nil
			}
		}

		// 4. Credentials
		matched, err := s.checkCredentials(ctx, attempt.Username, attempt.Password)
		if err != nil {
			return false, err
		}

		// 5. Success clears everything
		if matched {
			result = &models.LoginResult{Username: attempt.Username, AuthenticatedAt: now}
			return false, nil
		}

		// 6. Failure
		rejection = s.registerFailure(state, now)
		failureCount = state.FailureCount
		return true, nil
	})

	if err != nil {
		s.logger.Error("login attempt aborted",
			slog.String("username", attempt.Username),
			slog.Any("error", err))
		return nil, err
	}

	if result != nil {
		s.audit.LogLoginAttempt(pkglogger.AuditEvent{
			EventType: "login_success",
			Username:  attempt.Username,
			IPAddress: attempt.RemoteIP,
			UserAgent: attempt.UserAgent,
			Success:   true,
		})
		return result, nil
	}

	s.audit.LogLoginAttempt(pkglogger.AuditEvent{
		EventType:     "login_rejected",
		Username:      attempt.Username,
		IPAddress:     attempt.RemoteIP,
		UserAgent:     attempt.UserAgent,
		FailureReason: failureReason(rejection),
		FailureCount:  failureCount,
		RetryAfter:    rejection.RetryAfter,
	})
	if rejection.Locked {
		s.logger.Warn("account locked",
			slog.String("username", attempt.Username),
			slog.Duration("lockout_duration", rejection.RetryAfter))
	}
	return nil, rejection
}

// checkCredentials treats unknown usernames as a plain mismatch
func (s *ThrottleService) checkCredentials(ctx context.Context, username, password string) (bool, error) {
	stored, err := s.creds.GetPassword(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up credentials: %w", err)
	}
	return pkgauth.ComparePassword(stored, password), nil
}

// registerFailure applies step 6: count, captcha flag, then lockout or delay
func (s *ThrottleService) registerFailure(state *models.AttemptState, now time.Time) *models.ThrottleError {
	state.FailureCount++
	failedAt := now
	state.LastFailureAt = &failedAt
	failures := state.FailureCount

	if s.config.CaptchaThreshold > 0 && failures >= s.config.CaptchaThreshold {
		state.RequiresCaptcha = true
	}

	rejection := &models.ThrottleError{Reason: models.ErrUnauthorized}

	if s.config.LockoutThreshold > 0 && failures >= s.config.LockoutThreshold {
		lockedUntil := now.Add(s.config.LockoutDuration)
		state.LockedUntil = &lockedUntil
		state.CooldownUntil = nil
		state.FailureCount = 0
		rejection.Locked = true
		rejection.RetryAfter = s.config.LockoutDuration
	} else if s.config.Delay != nil {
		if delay := s.config.Delay.Delay(failures); delay > 0 {
			if s.config.PenaltyMode == PenaltyBlock {
				rejection.Hold = delay
			} else {
				cooldownUntil := now.Add(delay)
				state.CooldownUntil = &cooldownUntil
				rejection.RetryAfter = delay
			}
		}
	}

	rejection.RequiresCaptcha = state.RequiresCaptcha
	return rejection
}

// clearExpired drops lock and cooldown timestamps that are already in the past
func clearExpired(state *models.AttemptState, now time.Time) {
	if state.LockedUntil != nil && !state.LockedUntil.After(now) {
		state.LockedUntil = nil
	}
	if state.CooldownUntil != nil && !state.CooldownUntil.After(now) {
		state.CooldownUntil = nil
	}
}

func failureReason(rejection *models.ThrottleError) string {
	switch {
	case errors.Is(rejection, models.ErrAccountLocked):
		return "locked"
	case errors.Is(rejection, models.ErrCooldownActive):
		return "cooldown"
	case errors.Is(rejection, models.ErrCaptchaRequired):
		return "captcha_required"
	case errors.Is(rejection, models.ErrInvalidCaptcha):
		return "captcha_invalid"
	case rejection.Locked:
		return "invalid_credentials_locked"
	default:
		return "invalid_credentials"
	}
}
