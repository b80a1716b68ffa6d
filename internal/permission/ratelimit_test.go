package permission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"permgate/internal/domain"
)

func TestMCPLimiter_NilAlwaysAllows(t *testing.T) {
	var l *mcpLimiter
	_, ok := l.allow("a:b", time.Now())
	assert.True(t, ok)
}

func TestMCPLimiter_EveryMatchingKeyIsCharged(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newMCPLimiter(map[string]domain.RateLimit{
		"fs:*":    {MaxCallsPerMinute: 2},
		"fs:read": {MaxCallsPerMinute: 1},
	})

	_, ok := l.allow("fs:read", now)
	assert.True(t, ok)

	key, ok := l.allow("fs:read", now)
	assert.False(t, ok)
	assert.Equal(t, "fs:read", key)

	_, ok = l.allow("fs:write", now)
	assert.True(t, ok, "the refused read was not charged to fs:*")

	key, ok = l.allow("fs:write", now)
	assert.False(t, ok)
	assert.Equal(t, "fs:*", key)
}

func TestMCPLimiter_WildcardKeyCannotLoosenExactKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newMCPLimiter(map[string]domain.RateLimit{
		"*":          {MaxCallsPerMinute: 100},
		"octocode:*": {MaxCallsPerMinute: 1},
	})

	_, ok := l.allow("octocode:search", now)
	assert.True(t, ok)
	key, ok := l.allow("octocode:search", now)
	assert.False(t, ok)
	assert.Equal(t, "octocode:*", key)
}

func TestMCPLimiter_ZeroMeansUnlimited(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newMCPLimiter(map[string]domain.RateLimit{"a:b": {MaxCallsPerHour: 0, MaxCallsPerMinute: 0}})
	for range 100 {
		_, ok := l.allow("a:b", now)
		assert.True(t, ok)
	}
}

func TestMCPLimiter_RefusedCallsAreNotCharged(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newMCPLimiter(map[string]domain.RateLimit{"a:b": {MaxCallsPerMinute: 1, MaxCallsPerHour: 1}})

	_, ok := l.allow("a:b", now)
	assert.True(t, ok)
	_, ok = l.allow("a:b", now.Add(30*time.Second))
	assert.False(t, ok)
	_, ok = l.allow("a:b", now.Add(time.Hour))
	assert.True(t, ok)
}
