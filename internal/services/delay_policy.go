package services

import (
	"fmt"
	"math"
	"time"
)

// DelayPolicy maps the failure count of a username to the delay imposed
// after that failure
type DelayPolicy interface {
	Delay(failureCount int) time.Duration
}

// FixedDelay imposes the same delay after every failure
type FixedDelay struct {
	Base time.Duration
}

func (p FixedDelay) Delay(failureCount int) time.Duration {
	if failureCount <= 0 {
		return 0
	}
	return p.Base
}

// ExponentialDelay doubles the delay per failure: min(base * 2^(n-1), cap).
// A zero cap leaves the growth unbounded.
type ExponentialDelay struct {
	Base time.Duration
	Cap  time.Duration
}

func (p ExponentialDelay) Delay(failureCount int) time.Duration {
	if failureCount <= 0 || p.Base <= 0 {
		return 0
	}

	delay := p.Base
	for i := 1; i < failureCount; i++ {
		if p.Cap > 0 && delay >= p.Cap {
			break
		}
		if delay > math.MaxInt64/2 {
			return time.Duration(math.MaxInt64)
		}
		delay *= 2
	}

	if p.Cap > 0 && delay > p.Cap {
		return p.Cap
	}
	return delay
}

// ProgressiveDelay looks the delay up in a fixed schedule indexed by failure
// count. Counts past the end of the schedule reuse its last step.
type ProgressiveDelay struct {
	Steps []time.Duration
}

func (p ProgressiveDelay) Delay(failureCount int) time.Duration {
	if failureCount <= 0 || len(p.Steps) == 0 {
		return 0
	}
	idx := min(failureCount-1, len(p.Steps)-1)
	return p.Steps[idx]
}

// NewDelayPolicy builds the policy for a configured strategy name
func NewDelayPolicy(strategy string, base, maxDelay time.Duration, schedule []time.Duration) (DelayPolicy, error) {
	switch strategy {
	case "fixed":
		return FixedDelay{Base: base}, nil
	case "exponential":
		return ExponentialDelay{Base: base, Cap: maxDelay}, nil
	case "progressive":
		if len(schedule) == 0 {
			return nil, fmt.Errorf("progressive delay needs a non-empty schedule")
		}
		steps := make([]time.Duration, len(schedule))
		copy(steps, schedule)
		return ProgressiveDelay{Steps: steps}, nil
	default:
		return nil, fmt.Errorf("unknown delay strategy %q", strategy)
	}
}
