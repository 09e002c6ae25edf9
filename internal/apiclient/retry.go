package apiclient

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ShouldRetry decides whether another attempt is worthwhile. attempt is the
// 1-based number of the attempt that just failed. Pure function: the policy
// can be exercised without a transport or a real clock.
func ShouldRetry(attempt, maxAttempts int, class Class) bool {
	if attempt >= maxAttempts {
		return false
	}
	switch class {
	case ClassServer, ClassNetwork, ClassTimeout:
		return true
	default:
		// Auth failures redirect to sign-in; other 4xx will not succeed
		// unchanged.
		return false
	}
}

// Schedule produces the delay between attempts: exponential with jitter.
type Schedule struct {
	b *backoff.ExponentialBackOff
}

// NewSchedule creates the production delay schedule.
func NewSchedule() *Schedule {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 5 * time.Second
	return &Schedule{b: b}
}

// NewDeterministicSchedule creates a jitter-free schedule for tests.
func NewDeterministicSchedule() *Schedule {
	s := NewSchedule()
	s.b.RandomizationFactor = 0
	s.b.Reset()
	return s
}

// Next returns the delay to sleep before the next attempt.
func (s *Schedule) Next() time.Duration {
	return s.b.NextBackOff()
}
