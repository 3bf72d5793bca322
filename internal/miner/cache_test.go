package miner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(filepath.Join(t.TempDir(), "dashboard.json"))
}

func TestCacheEndTimeRoundTrip(t *testing.T) {
	c := newTestCache(t)
	userID := uuid.New()
	endsAt := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	_, ok := c.EndTime(userID)
	assert.False(t, ok)

	c.SetEndTime(userID, endsAt)
	got, ok := c.EndTime(userID)
	require.True(t, ok)
	assert.True(t, got.Equal(endsAt), "end time survives the millisecond round trip")

	// hints are per-user scoped
	_, ok = c.EndTime(uuid.New())
	assert.False(t, ok)
}

func TestCacheClearEndTimeDropsBothKeys(t *testing.T) {
	c := newTestCache(t)
	userID := uuid.New()

	c.SetEndTime(userID, time.Now().Add(time.Hour))
	c.set(keyLegacyEndTime, "1704110400000")

	c.ClearEndTime(userID)

	_, ok := c.EndTime(userID)
	assert.False(t, ok)
	_, ok = c.LegacyEndTime()
	assert.False(t, ok)
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.json")
	userID := uuid.New()
	endsAt := time.Now().Add(12 * time.Hour).Truncate(time.Millisecond)

	NewCache(path).SetEndTime(userID, endsAt)

	got, ok := NewCache(path).EndTime(userID)
	require.True(t, ok)
	assert.True(t, got.Equal(endsAt))
}

func TestCacheLockedBalanceMirror(t *testing.T) {
	c := newTestCache(t)

	_, ok := c.LockedBalance()
	assert.False(t, ok)

	c.SetLockedBalance(48.5)
	v, ok := c.LockedBalance()
	require.True(t, ok)
	assert.Equal(t, 48.5, v)
}

func TestCachePendingReferralConsumedOnce(t *testing.T) {
	c := newTestCache(t)

	_, ok := c.TakePendingReferral()
	assert.False(t, ok)

	c.SetPendingReferral("WELCOME1")
	code, ok := c.TakePendingReferral()
	require.True(t, ok)
	assert.Equal(t, "WELCOME1", code)

	_, ok = c.TakePendingReferral()
	assert.False(t, ok, "the pending referral is a consume-once hint")
}

func TestCacheOAuthIdentityConsumesPendingReferral(t *testing.T) {
	c := newTestCache(t)
	id := uuid.New()

	c.SetPendingReferral("WELCOME1")

	ident := c.OAuthIdentity(id, "miner@test.local", "Miner")
	require.NotNil(t, ident)
	assert.Equal(t, id, ident.ID)
	assert.Equal(t, "miner@test.local", ident.Email)
	assert.Equal(t, "Miner", ident.DisplayName)
	assert.Equal(t, "WELCOME1", ident.PendingReferral)

	// a second bootstrap attempt must not re-claim the bonus
	again := c.OAuthIdentity(id, "miner@test.local", "Miner")
	assert.Empty(t, again.PendingReferral)
}

func TestCacheToleratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	c := NewCache(path)
	_, ok := c.LegacyEndTime()
	assert.False(t, ok)

	c.SetLockedBalance(1)
	v, ok := c.LockedBalance()
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestCacheIgnoresMalformedEndTime(t *testing.T) {
	c := newTestCache(t)
	c.set(keyLegacyEndTime, "not-a-number")

	_, ok := c.LegacyEndTime()
	assert.False(t, ok)
}
