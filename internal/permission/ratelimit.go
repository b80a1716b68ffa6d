package permission

import (
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"permgate/internal/domain"
	"permgate/internal/pattern"
)

// mcpLimiter enforces mcpTools.rateLimits with one token bucket per window.
// Keys of the rate limit map are MCP specs and may use wildcards. A call is
// charged to every key that matches it, so adding a key can only tighten the
// budget of a tool.
type mcpLimiter struct {
	mu      sync.Mutex
	keys    []string
	buckets map[string]*toolBuckets
}

type toolBuckets struct {
	perMinute *rate.Limiter // nil when unlimited
	perHour   *rate.Limiter
}

func newMCPLimiter(limits map[string]domain.RateLimit) *mcpLimiter {
	l := &mcpLimiter{
		keys:    slices.Sorted(maps.Keys(limits)),
		buckets: make(map[string]*toolBuckets, len(limits)),
	}
	for tool, lim := range limits {
		l.buckets[tool] = &toolBuckets{
			perMinute: window(lim.MaxCallsPerMinute, time.Minute),
			perHour:   window(lim.MaxCallsPerHour, time.Hour),
		}
	}
	return l
}

// window returns a limiter allowing n calls per period, refilling evenly.
// A non-positive n means no limit for that window.
func window(n int, period time.Duration) *rate.Limiter {
	if n <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(period/time.Duration(n)), n)
}

// allow charges one call for spec at now against every matching key. It
// returns the first exhausted key and false when any window is empty. Tools
// without a configured limit always pass. Nothing is charged when the call
// is refused.
func (l *mcpLimiter) allow(spec string, now time.Time) (string, bool) {
	if l == nil {
		return "", true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []*toolBuckets
	for _, key := range l.keys {
		if !pattern.MatchMCP(spec, key) {
			continue
		}
		b := l.buckets[key]
		if b.perMinute != nil && b.perMinute.TokensAt(now) < 1 {
			return key, false
		}
		if b.perHour != nil && b.perHour.TokensAt(now) < 1 {
			return key, false
		}
		matched = append(matched, b)
	}
	for _, b := range matched {
		if b.perMinute != nil {
			b.perMinute.AllowN(now, 1)
		}
		if b.perHour != nil {
			b.perHour.AllowN(now, 1)
		}
	}
	return "", true
}
