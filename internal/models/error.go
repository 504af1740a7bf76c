package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Throttle decisions
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrCooldownActive     = errors.New("login cooldown active")
	ErrCaptchaRequired    = errors.New("captcha required")
	ErrInvalidCaptcha     = errors.New("captcha verification failed")
	ErrCaptchaUnavailable = errors.New("captcha verification unavailable")
)

// ThrottleError is returned when the throttle rejects an attempt before or
// after the credential check. It unwraps to one of the throttle sentinels.
type ThrottleError struct {
	Reason          error
	RetryAfter      time.Duration
	RequiresCaptcha bool
	Locked          bool          // this failure started a lockout
	Hold            time.Duration // response hold in block penalty mode
}

func (e *ThrottleError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%v, retry after %s", e.Reason, e.RetryAfter.Round(time.Second))
	}
	return e.Reason.Error()
}

func (e *ThrottleError) Unwrap() error {
	return e.Reason
}

// RetryAfterSeconds rounds the retry-after hint up to whole seconds
func (e *ThrottleError) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}
