package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestLogOverflowRef(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))

	rec := NewRequestLog(ts, "10.0.0.5", "GET", "/api/users", 200, "curl", "")
	assert.Nil(t, rec.OverflowRef)
	assert.False(t, rec.HasOverflow())
	assert.Equal(t, time.UTC, rec.Timestamp.Location())

	rec = NewRequestLog(ts, "10.0.0.5", "POST", "/api/echo", 200, "curl", "overflow/2026-03-01/000001")
	require.NotNil(t, rec.OverflowRef)
	assert.True(t, rec.HasOverflow())
}

func TestBanEntryExpiry(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := BanEntry{BannedAt: t0, Reason: "manual"}

	assert.False(t, b.IsExpired(t0.Add(59*time.Minute), time.Hour))
	assert.True(t, b.IsExpired(t0.Add(time.Hour), time.Hour))
	assert.True(t, b.IsExpired(t0.Add(61*time.Minute), time.Hour))
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "pass", DecisionPass.String())
	assert.Equal(t, "soft_throttle", DecisionSoftThrottle.String())
	assert.Equal(t, "hard_ban", DecisionHardBan.String())
}
