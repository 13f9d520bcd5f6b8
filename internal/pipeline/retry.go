package pipeline

import (
	"time"

	"contractiq/internal/model"
)

// Policy is the retry policy applied when an attempt fails.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

// Decision is the outcome of applying the policy to a failed attempt.
type Decision struct {
	Retry    bool
	Delay    time.Duration
	FailKind model.ErrorKind
}

// Decide maps a failure kind and the attempt number that just failed to
// either a delayed retry or a terminal failure. Only transient failures
// retry; a transient failure on the final attempt becomes RetriesExhausted.
func (p Policy) Decide(kind model.ErrorKind, attempt int) Decision {
	if kind != model.KindTransient {
		return Decision{FailKind: kind}
	}
	if attempt >= p.MaxAttempts {
		return Decision{FailKind: model.KindRetriesExhausted}
	}
	return Decision{Retry: true, Delay: p.backoff(attempt)}
}

// backoff doubles the base delay per completed attempt, capped.
func (p Policy) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Cap {
			return p.Cap
		}
	}
	if delay > p.Cap {
		return p.Cap
	}
	return delay
}
