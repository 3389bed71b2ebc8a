// Package failure turns pattern application failures into knowledge: each
// failure is classified, fed into the pattern's recent-failure window, and,
// past a threshold, synthesized into an anti-pattern that short-circuits
// future selection.
package failure

import (
	"strings"
	"time"

	"github.com/pagelens/pagelens/pkg/models"
)

// RetryStrategy names how a failed request should be retried. Closed set.
type RetryStrategy string

// Retry strategies
const (
	RetryNone      RetryStrategy = "none"
	RetryImmediate RetryStrategy = "immediate"
	RetryBackoff   RetryStrategy = "backoff_exponential"
	RetryWaitFixed RetryStrategy = "wait_fixed"
	RetryAfterAuth RetryStrategy = "after_auth"
)

// Classification is the classifier's verdict on one failure
type Classification struct {
	Category                models.FailureCategory `json:"category"`
	ShouldCreateAntiPattern bool                   `json:"shouldCreateAntiPattern"`
	ShouldRetry             bool                   `json:"shouldRetry"`
	RetryStrategy           RetryStrategy          `json:"retryStrategy"`
}

// slowResponseThreshold marks a nominally successful status as a timeout
// when the server took this long to produce it.
const slowResponseThreshold = 30 * time.Second

// Classify maps a failure's observable signals onto a category and a
// retry decision. Status code wins; the message and response time break
// ties for transport-level failures that carry no status.
func Classify(statusCode int, message string, responseTime time.Duration) Classification {
	lower := strings.ToLower(message)

	switch {
	case statusCode == 401 || statusCode == 403:
		return Classification{
			Category:                models.FailureAuthRequired,
			ShouldCreateAntiPattern: true,
			ShouldRetry:             true,
			RetryStrategy:           RetryAfterAuth,
		}
	case statusCode == 429:
		return Classification{
			Category:      models.FailureRateLimited,
			ShouldRetry:   true,
			RetryStrategy: RetryWaitFixed,
		}
	case statusCode == 404 || statusCode == 410:
		return Classification{
			Category:                models.FailureNotFound,
			ShouldCreateAntiPattern: true,
			RetryStrategy:           RetryNone,
		}
	case statusCode >= 500:
		return Classification{
			Category:      models.FailureServerError,
			ShouldRetry:   true,
			RetryStrategy: RetryBackoff,
		}
	case statusCode == 400 || statusCode == 422:
		return Classification{
			Category:                models.FailureValidation,
			ShouldCreateAntiPattern: true,
			RetryStrategy:           RetryNone,
		}
	}

	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") ||
		responseTime >= slowResponseThreshold:
		return Classification{
			Category:      models.FailureTimeout,
			ShouldRetry:   true,
			RetryStrategy: RetryBackoff,
		}
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "network"):
		return Classification{
			Category:      models.FailureNetwork,
			ShouldRetry:   true,
			RetryStrategy: RetryBackoff,
		}
	}

	return Classification{
		Category:      models.FailureUnknown,
		ShouldRetry:   true,
		RetryStrategy: RetryImmediate,
	}
}
