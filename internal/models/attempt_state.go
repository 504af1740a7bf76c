package models

import "time"

// LoginAttempt is a single login request as seen by the throttle
type LoginAttempt struct {
	Username     string
	Password     string
	CaptchaToken string
	RemoteIP     string
	UserAgent    string
}

// AttemptState tracks throttle state for one username.
// Entries are created on the first attempt and removed on successful login.
type AttemptState struct {
	FailureCount    int
	LockedUntil     *time.Time
	CooldownUntil   *time.Time
	RequiresCaptcha bool
	LastFailureAt   *time.Time
}

// IsLocked reports whether the lockout is still in effect at now
func (s *AttemptState) IsLocked(now time.Time) bool {
	return s.LockedUntil != nil && s.LockedUntil.After(now)
}

// InCooldown reports whether the cooldown is still in effect at now
func (s *AttemptState) InCooldown(now time.Time) bool {
	return s.CooldownUntil != nil && s.CooldownUntil.After(now)
}

// IsClean reports whether the entry carries no penalty at all
func (s *AttemptState) IsClean() bool {
	return s.FailureCount == 0 && s.LockedUntil == nil && s.CooldownUntil == nil && !s.RequiresCaptcha
}

// Idle reports whether the entry has no active penalty at now and its last
// failure is older than ttl. Idle entries can be swept.
func (s *AttemptState) Idle(now time.Time, ttl time.Duration) bool {
	if s.IsLocked(now) || s.InCooldown(now) {
		return false
	}
	if s.LastFailureAt == nil {
		return true
	}
	return now.Sub(*s.LastFailureAt) >= ttl
}

// LoginResult is returned for a successful authentication
type LoginResult struct {
	Username        string
	AuthenticatedAt time.Time
}
