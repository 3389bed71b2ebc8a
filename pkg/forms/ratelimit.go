package forms

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pagelens/pagelens/pkg/failure"
	"github.com/pagelens/pagelens/pkg/models"
)

// Default pacing before a domain publishes its own limits
const (
	defaultSubmitRate  = rate.Limit(1)
	defaultSubmitBurst = 5
)

// rateLimitTable tracks observed rate-limit state per domain and paces
// submissions. A 429 blocks the domain until the advertised reset; otherwise
// a token bucket keeps the submission rate polite.
type rateLimitTable struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	info     map[string]*models.RateLimitInfo
	blocked  map[string]time.Time
	now      func() time.Time
}

func newRateLimitTable() *rateLimitTable {
	return &rateLimitTable{
		limiters: make(map[string]*rate.Limiter),
		info:     make(map[string]*models.RateLimitInfo),
		blocked:  make(map[string]time.Time),
		now:      time.Now,
	}
}

// Wait returns how long the caller must hold off before submitting to the
// domain. Zero means go ahead; the token bucket reservation is consumed.
func (t *rateLimitTable) Wait(domain string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if until, ok := t.blocked[domain]; ok {
		if now.Before(until) {
			return until.Sub(now)
		}
		delete(t.blocked, domain)
	}

	limiter, ok := t.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(defaultSubmitRate, defaultSubmitBurst)
		t.limiters[domain] = limiter
	}
	reservation := limiter.ReserveN(now, 1)
	return reservation.DelayFrom(now)
}

// Observe records rate-limit headers from a response. On 429 the domain is
// blocked until the computed reset and the returned info carries the
// retry-after interval.
func (t *rateLimitTable) Observe(domain string, status int, headers http.Header) *models.RateLimitInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	info, ok := t.info[domain]
	if !ok {
		info = &models.RateLimitInfo{}
		t.info[domain] = info
	}

	if limit, err := strconv.Atoi(headers.Get("X-RateLimit-Limit")); err == nil {
		info.Limit = limit
	}
	if remaining, err := strconv.Atoi(headers.Get("X-RateLimit-Remaining")); err == nil {
		info.Remaining = remaining
	}
	if reset, err := strconv.ParseInt(headers.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		info.ResetAt = time.Unix(reset, 0)
	}

	if status == http.StatusTooManyRequests {
		info.RateLimitCount++
		info.LastRateLimitTime = now
		wait, ok := failure.RetryAfterInterval(headers, now)
		if !ok {
			wait = failure.BackoffInterval(info.RateLimitCount)
		}
		info.RetryAfterSeconds = int(wait / time.Second)
		t.blocked[domain] = now.Add(wait)
	}

	copied := *info
	return &copied
}

// Snapshot returns a copy of the recorded state for a domain, or nil
func (t *rateLimitTable) Snapshot(domain string) *models.RateLimitInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.info[domain]
	if !ok {
		return nil
	}
	copied := *info
	return &copied
}
