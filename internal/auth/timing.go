package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for response timing on failed logins
type TimingConfig struct {
	Base   time.Duration // Minimum time a failed login takes
	Jitter time.Duration // Random extra on top of Base
}

// TimingDelay pads failed login responses so that an unknown username, a
// wrong password and a throttle rejection take about the same time.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
	}
}

// cryptoRandIntn returns a secure random number between 0 and max (exclusive)
func cryptoRandIntn(max int64) (int64, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int64(randomValue % uint64(max)), nil
}

// Target returns Base plus a fresh random jitter
func (td *TimingDelay) Target() time.Duration {
	target := td.config.Base
	if td.config.Jitter > 0 {
		if n, err := cryptoRandIntn(int64(td.config.Jitter)); err == nil {
			target += time.Duration(n)
		}
	}
	return target
}

// WaitFrom sleeps until at least Target() has elapsed since startTime.
// It returns early with ctx.Err() if the request goes away.
func (td *TimingDelay) WaitFrom(ctx context.Context, startTime time.Time) error {
	remaining := td.Target() - time.Since(startTime)
	return Hold(ctx, remaining)
}

// Hold blocks for d or until ctx is done, whichever comes first
func Hold(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
