package services

import (
	"net/http"
	"time"

	"github.com/ochairo/triagedl/internal/domain/entities"
)

// Default retry parameters
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// RetryDecision is the policy answer for one failed attempt
type RetryDecision struct {
	Retry bool
	Delay time.Duration
}

// RetryPolicy decides whether a classified failure is worth another attempt.
// Only transient failures are retried; the delay doubles from BaseDelay per
// attempt and is capped at MaxDelay. Attempts are numbered from 1.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the 5 attempts / 2s base / 10s cap policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// ShouldRetry returns the decision for a failure of the given kind at attempt
func (p RetryPolicy) ShouldRetry(attempt int, kind entities.FailureKind) RetryDecision {
	if kind != entities.FailureTransient {
		return RetryDecision{}
	}
	if attempt < 1 || attempt > p.MaxAttempts {
		return RetryDecision{}
	}
	return RetryDecision{Retry: true, Delay: p.Backoff(attempt)}
}

// Backoff returns min(BaseDelay * 2^(attempt-1), MaxDelay)
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			break
		}
		delay *= 2
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// ClassifyStatus maps an HTTP status code onto a FailureKind.
// 5xx is treated as transient and any other non-2xx code as fatal, apart
// from 404 and 429 which have their own kinds.
func ClassifyStatus(code int) entities.FailureKind {
	switch {
	case code >= 200 && code < 300:
		return entities.FailureNone
	case code == http.StatusNotFound:
		return entities.FailureNotFound
	case code == http.StatusTooManyRequests:
		return entities.FailureRateLimited
	case code >= 500:
		return entities.FailureTransient
	default:
		return entities.FailureFatal
	}
}
