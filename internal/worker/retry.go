package worker

import "time"

// RetryPolicy bounds retries of infrastructure failures: Attempts total
// executions, exponential backoff doubling from BaseDelay.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy is the pipeline contract: 3 attempts, 500ms base, x2.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Delay returns the backoff before the given retry (1-based: Delay(1) is the
// wait before the second execution).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < retry; i++ {
		d *= 2
	}
	return d
}
