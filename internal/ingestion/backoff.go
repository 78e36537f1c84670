package ingestion

import "time"

// BackoffPolicy computes retry delays as an explicit finite policy so it can
// be tested independently of the coordinator loop.
type BackoffPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultBackoffPolicy returns the retry defaults used by the coordinator.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Delay returns the wait before the given attempt (1-based). Attempt 1 has no
// delay; each subsequent attempt doubles the base delay, capped at MaxDelay.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := p.BaseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if delay > p.MaxDelay {
		return p.MaxDelay
	}

	return delay
}
