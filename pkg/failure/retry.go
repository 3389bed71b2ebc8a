package failure

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// maxWait caps every computed wait so a hostile or confused server cannot
// park us for hours.
const maxWait = 60 * time.Second

// BackoffInterval is the exponential wait before the given retry attempt:
// min(2^attempt, 60) seconds. Attempt counts from 0.
func BackoffInterval(attempt int) time.Duration {
	seconds := math.Pow(2, float64(attempt))
	wait := time.Duration(seconds) * time.Second
	if wait > maxWait {
		return maxWait
	}
	return wait
}

// RetryAfterInterval computes how long rate-limit headers ask us to wait.
// Retry-After takes either integer seconds or an HTTP-date; X-RateLimit-Reset
// is a Unix timestamp in seconds. The result is capped at 60 seconds and
// never negative. ok is false when neither header is present and parseable.
func RetryAfterInterval(headers http.Header, now time.Time) (time.Duration, bool) {
	if value := headers.Get("Retry-After"); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return capWait(time.Duration(seconds) * time.Second), true
		}
		if at, err := http.ParseTime(value); err == nil {
			return capWait(at.Sub(now)), true
		}
	}
	if value := headers.Get("X-RateLimit-Reset"); value != "" {
		if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
			return capWait(time.Unix(unix, 0).Sub(now)), true
		}
	}
	return 0, false
}

func capWait(wait time.Duration) time.Duration {
	if wait < 0 {
		return 0
	}
	if wait > maxWait {
		return maxWait
	}
	return wait
}

// Retry runs op according to the strategy, observing ctx at every wait.
// maxAttempts bounds the total number of op invocations; zero or negative
// means the package default of three.
func Retry(ctx context.Context, strategy RetryStrategy, maxAttempts int, op func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	switch strategy {
	case RetryNone:
		return op(ctx)
	case RetryImmediate:
		var err error
		for attempt := 0; attempt < maxAttempts; attempt++ {
			if err = ctx.Err(); err != nil {
				return err
			}
			if err = op(ctx); err == nil {
				return nil
			}
		}
		return err
	case RetryAfterAuth:
		return errors.New("retry requires authentication first")
	case RetryWaitFixed, RetryBackoff:
		policy := newPolicy(strategy, maxAttempts)
		return backoff.Retry(func() error {
			return op(ctx)
		}, backoff.WithContext(policy, ctx))
	default:
		return op(ctx)
	}
}

func newPolicy(strategy RetryStrategy, maxAttempts int) backoff.BackOff {
	var policy backoff.BackOff
	if strategy == RetryWaitFixed {
		policy = backoff.NewConstantBackOff(time.Second)
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = time.Second
		exp.Multiplier = 2
		exp.MaxInterval = maxWait
		exp.RandomizationFactor = 0
		policy = exp
	}
	return backoff.WithMaxRetries(policy, uint64(maxAttempts-1))
}
