package miner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ccox_dashboard/internal/client"
	"ccox_dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisplay struct {
	mu        sync.Mutex
	active    bool
	progress  float64
	remaining string
	notices   []string
}

func (d *fakeDisplay) SetActive(active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = active
}

func (d *fakeDisplay) SetProgress(fraction float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.progress = fraction
}

func (d *fakeDisplay) SetHashRate(rate float64) {}

func (d *fakeDisplay) SetRemaining(remaining string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remaining = remaining
}

func (d *fakeDisplay) Notify(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, message)
}

func (d *fakeDisplay) lastNotice() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.notices) == 0 {
		return ""
	}
	return d.notices[len(d.notices)-1]
}

// backend is a scripted stand-in for the mining API.
type backend struct {
	t *testing.T

	mu           sync.Mutex
	userID       uuid.UUID
	startedAt    time.Time
	hasActive    bool
	lockedAfter  float64
	autoSwapped  bool
	completeHits int
	cancelHits   int
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/mining/start", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		already := b.hasActive
		if !already {
			b.hasActive = true
		}
		json.NewEncoder(w).Encode(map[string]any{
			"session_id":     int64(1),
			"already_active": already,
			"started_at":     b.startedAt.UTC().Format(time.RFC3339),
			"ends_at":        b.startedAt.Add(24 * time.Hour).UTC().Format(time.RFC3339),
			"reward":         2.0,
		})
	})
	mux.HandleFunc("/api/v1/mining/active", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.hasActive {
			json.NewEncoder(w).Encode(map[string]any{"session": nil})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"session": map[string]any{
				"id":         int64(1),
				"user_id":    b.userID,
				"status":     "active",
				"started_at": b.startedAt.UTC().Format(time.RFC3339Nano),
			},
			"ends_at": b.startedAt.Add(24 * time.Hour).UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/api/v1/mining/complete", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.completeHits++
		if !b.hasActive {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "NO_ACTIVE_SESSION"})
			return
		}
		b.hasActive = false
		json.NewEncoder(w).Encode(map[string]any{
			"reward":         2.0,
			"locked_balance": b.lockedAfter,
			"auto_swapped":   b.autoSwapped,
			"threshold":      50.0,
		})
	})
	mux.HandleFunc("/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": b.userID, "username": "miner"},
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		b.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	})
	return mux
}

func newTestController(t *testing.T, b *backend) (*Controller, *fakeDisplay, *Cache) {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	c := client.New(srv.URL)
	c.SetToken("test-token")
	sess := &client.Session{
		Client: c,
		User:   &domain.User{ID: b.userID, Username: "miner"},
	}

	cache := NewCache(filepath.Join(t.TempDir(), "dashboard.json"))
	display := &fakeDisplay{}
	return NewController(sess, cache, display), display, cache
}

func TestStartRecordsEndTimeAndActivates(t *testing.T) {
	startedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt}
	ctrl, display, cache := newTestController(t, b)
	ctrl.nowFn = func() time.Time { return startedAt.Add(time.Minute) }

	require.NoError(t, ctrl.Start(context.Background()))

	assert.Equal(t, StateActive, ctrl.State())
	assert.True(t, display.active)
	assert.Equal(t, startedAt.Add(24*time.Hour), ctrl.EndsAt())

	cached, ok := cache.EndTime(b.userID)
	require.True(t, ok)
	assert.Equal(t, startedAt.Add(24*time.Hour), cached.UTC())
}

func TestStartWhileActiveIsGuarded(t *testing.T) {
	startedAt := time.Now().UTC().Truncate(time.Second)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt}
	ctrl, _, _ := newTestController(t, b)

	require.NoError(t, ctrl.Start(context.Background()))
	assert.ErrorIs(t, ctrl.Start(context.Background()), ErrAlreadyMining)
}

func TestProgressAtHalfWindow(t *testing.T) {
	startedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt}
	ctrl, display, _ := newTestController(t, b)

	ctrl.nowFn = func() time.Time { return startedAt }
	require.NoError(t, ctrl.Start(context.Background()))

	ctrl.nowFn = func() time.Time { return startedAt.Add(12 * time.Hour) }
	completed := ctrl.Tick(context.Background())

	assert.False(t, completed)
	assert.InDelta(t, 0.5, display.progress, 0.0001)
	assert.Equal(t, "12h 00m 00s", display.remaining)
}

func TestCompletionFiresAtWindowEndNotEarlier(t *testing.T) {
	startedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt, lockedAfter: 2}
	ctrl, display, cache := newTestController(t, b)

	ctrl.nowFn = func() time.Time { return startedAt }
	require.NoError(t, ctrl.Start(context.Background()))

	ctrl.nowFn = func() time.Time { return startedAt.Add(24*time.Hour - time.Second) }
	assert.False(t, ctrl.Tick(context.Background()))
	assert.Equal(t, 0, b.completeHits)

	ctrl.nowFn = func() time.Time { return startedAt.Add(24*time.Hour + time.Second) }
	assert.True(t, ctrl.Tick(context.Background()))
	assert.Equal(t, 1, b.completeHits)
	assert.Equal(t, StateIdle, ctrl.State())
	assert.False(t, display.active)

	_, ok := cache.EndTime(b.userID)
	assert.False(t, ok, "settlement must clear the cached end time")
}

func TestRunReturnsAfterSettlement(t *testing.T) {
	startedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt, lockedAfter: 2}
	ctrl, _, _ := newTestController(t, b)

	ctrl.nowFn = func() time.Time { return startedAt }
	require.NoError(t, ctrl.Start(context.Background()))

	// the very first tick lands past the window end and settles
	ctrl.nowFn = func() time.Time { return startedAt.Add(25 * time.Hour) }

	done := make(chan struct{})
	go func() {
		ctrl.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run must return once the session settles")
	}

	assert.Equal(t, 1, b.completeHits)
	assert.Equal(t, StateIdle, ctrl.State())
}

func TestCompletionBelowThresholdReportsDistance(t *testing.T) {
	startedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt, lockedAfter: 2}
	ctrl, display, _ := newTestController(t, b)

	ctrl.nowFn = func() time.Time { return startedAt }
	require.NoError(t, ctrl.Start(context.Background()))

	ctrl.nowFn = func() time.Time { return startedAt.Add(25 * time.Hour) }
	require.True(t, ctrl.Tick(context.Background()))

	notice := display.lastNotice()
	assert.Contains(t, notice, "48.00 more until auto-swap")
	assert.Contains(t, notice, "2.00/50.00")
}

func TestCompletionAtThresholdReportsAutoSwap(t *testing.T) {
	startedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt, lockedAfter: 50, autoSwapped: true}
	ctrl, display, _ := newTestController(t, b)

	ctrl.nowFn = func() time.Time { return startedAt }
	require.NoError(t, ctrl.Start(context.Background()))

	ctrl.nowFn = func() time.Time { return startedAt.Add(25 * time.Hour) }
	require.True(t, ctrl.Tick(context.Background()))

	assert.Contains(t, display.lastNotice(), "sent to swap")
}

func TestCompleteWithoutSessionIsDistinguished(t *testing.T) {
	startedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt}
	ctrl, display, _ := newTestController(t, b)

	ctrl.nowFn = func() time.Time { return startedAt }
	require.NoError(t, ctrl.Start(context.Background()))

	// the session settles out of band before the tick fires
	b.mu.Lock()
	b.hasActive = false
	b.mu.Unlock()

	ctrl.nowFn = func() time.Time { return startedAt.Add(25 * time.Hour) }
	require.True(t, ctrl.Tick(context.Background()))

	assert.Equal(t, StateIdle, ctrl.State())
	assert.Contains(t, display.lastNotice(), "No active mining session")
}

func TestManualStopLeavesRemoteSessionActive(t *testing.T) {
	startedAt := time.Now().UTC().Truncate(time.Second)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt}
	ctrl, display, _ := newTestController(t, b)

	require.NoError(t, ctrl.Start(context.Background()))
	ctrl.Stop()

	assert.Equal(t, StateIdle, ctrl.State())
	assert.False(t, display.active)
	assert.Zero(t, display.progress)
	assert.Equal(t, 0, b.cancelHits)
	assert.True(t, b.hasActive, "stop is cosmetic only, the remote session keeps running")

	// the next reconciliation resumes the same session
	require.NoError(t, ctrl.Reconcile(context.Background()))
	assert.Equal(t, StateActive, ctrl.State())
}

func TestReconcileResumesFutureRemoteSession(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	startedAt := now.Add(-6 * time.Hour)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt, hasActive: true}
	ctrl, _, _ := newTestController(t, b)
	ctrl.nowFn = func() time.Time { return now }

	require.NoError(t, ctrl.Reconcile(context.Background()))

	assert.Equal(t, StateActive, ctrl.State())
	remaining := ctrl.EndsAt().Sub(now)
	assert.InDelta(t, (18 * time.Hour).Seconds(), remaining.Seconds(), 1.0,
		"resume must land within one tick of the true remaining time")
}

func TestReconcileExpiredRemoteSessionEmitsClaimNotice(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	startedAt := now.Add(-48 * time.Hour)
	b := &backend{t: t, userID: uuid.New(), startedAt: startedAt, hasActive: true}
	ctrl, display, cache := newTestController(t, b)
	ctrl.nowFn = func() time.Time { return now }

	cache.SetEndTime(b.userID, startedAt.Add(24*time.Hour))

	require.NoError(t, ctrl.Reconcile(context.Background()))

	assert.Equal(t, StateIdle, ctrl.State())
	assert.Contains(t, display.lastNotice(), "ready to be claimed")
	assert.Equal(t, 0, b.completeHits, "reconciliation must not settle on the user's behalf")

	_, ok := cache.EndTime(b.userID)
	assert.False(t, ok, "stale per-user hint must be cleared")
}

func TestReconcileFallsBackToPerUserThenLegacyHint(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &backend{t: t, userID: uuid.New(), startedAt: now}
	ctrl, _, cache := newTestController(t, b)
	ctrl.nowFn = func() time.Time { return now }

	// only the legacy unscoped key survives
	cache.set(keyLegacyEndTime, "1704110400000") // 2024-01-01T12:00:00Z
	require.NoError(t, ctrl.Reconcile(context.Background()))
	assert.Equal(t, StateActive, ctrl.State())
	assert.Equal(t, now.Add(12*time.Hour), ctrl.EndsAt().UTC())

	// the per-user key wins over the legacy one
	ctrl.Stop()
	cache.SetEndTime(b.userID, now.Add(6*time.Hour))
	require.NoError(t, ctrl.Reconcile(context.Background()))
	assert.Equal(t, now.Add(6*time.Hour), ctrl.EndsAt().UTC())
}

func TestReconcileExpiredLocalHint(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 1, 0, time.UTC)
	b := &backend{t: t, userID: uuid.New(), startedAt: now}
	ctrl, display, cache := newTestController(t, b)
	ctrl.nowFn = func() time.Time { return now }

	cache.SetEndTime(b.userID, now.Add(-time.Second))
	require.NoError(t, ctrl.Reconcile(context.Background()))

	assert.Equal(t, StateIdle, ctrl.State())
	assert.Contains(t, display.lastNotice(), "ready to be claimed")
	_, ok := cache.EndTime(b.userID)
	assert.False(t, ok)
}

func TestReconcileIdleWithoutSessionOrHints(t *testing.T) {
	b := &backend{t: t, userID: uuid.New(), startedAt: time.Now()}
	ctrl, display, _ := newTestController(t, b)

	require.NoError(t, ctrl.Reconcile(context.Background()))
	assert.Equal(t, StateIdle, ctrl.State())
	assert.Empty(t, display.notices)
}
