package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ccox_dashboard/internal/client"
	"ccox_dashboard/internal/domain"
	"ccox_dashboard/internal/miner"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	username    string
	ccox        string
	usdt        string
	locked      string
	totalUsers  string
	totalShares string
}

func (s *fakeSink) SetUsername(v string) { s.username = v }

func (s *fakeSink) SetCcoxBalance(v string) { s.ccox = v }

func (s *fakeSink) SetUsdtBalance(v string) { s.usdt = v }

func (s *fakeSink) SetLockedBalance(v string) { s.locked = v }

func (s *fakeSink) SetTotalUsers(v string) { s.totalUsers = v }

func (s *fakeSink) SetTotalShares(v string) { s.totalShares = v }

var _ Sink = (*fakeSink)(nil)

func newTestBinder(t *testing.T, handler http.Handler) (*Binder, *fakeSink, *miner.Cache) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := client.New(srv.URL)
	c.SetToken("tok")
	sess := &client.Session{Client: c, User: &domain.User{ID: uuid.New()}}
	cache := miner.NewCache(filepath.Join(t.TempDir(), "dashboard.json"))
	sink := &fakeSink{}
	return NewBinder(sess, cache, sink), sink, cache
}

func profileHandler(lockedBalance float64, statsStatus int) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{
				"id":             uuid.New(),
				"username":       "satoshi_42",
				"ccox_balance":   123.456,
				"usdt_balance":   7.0,
				"locked_balance": lockedBalance,
			},
		})
	})
	mux.HandleFunc("/api/v1/stats", func(w http.ResponseWriter, r *http.Request) {
		if statsStatus != http.StatusOK {
			w.WriteHeader(statsStatus)
			json.NewEncoder(w).Encode(map[string]string{"error": "unavailable"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"total_users": 1234,
			"total_posts": 56,
		})
	})
	return mux
}

func TestBindRendersFormattedValues(t *testing.T) {
	binder, sink, cache := newTestBinder(t, profileHandler(48.5, http.StatusOK))

	binder.Bind(context.Background())

	assert.Equal(t, "satoshi_42", sink.username)
	assert.Equal(t, "123.46", sink.ccox)
	assert.Equal(t, "7.00", sink.usdt)
	assert.Equal(t, "48.50", sink.locked)
	assert.Equal(t, "1234", sink.totalUsers)
	assert.Equal(t, "56", sink.totalShares)

	mirrored, ok := cache.LockedBalance()
	require.True(t, ok)
	assert.Equal(t, 48.5, mirrored)
}

func TestBindPublishesLockedBalanceToListeners(t *testing.T) {
	binder, _, _ := newTestBinder(t, profileHandler(12.0, http.StatusOK))

	var got []float64
	binder.OnBalancesUpdated(func(locked float64) { got = append(got, locked) })
	binder.OnBalancesUpdated(func(locked float64) { got = append(got, locked) })

	binder.Bind(context.Background())

	assert.Equal(t, []float64{12.0, 12.0}, got)
}

func TestBindSwallowsStatsFailure(t *testing.T) {
	binder, sink, _ := newTestBinder(t, profileHandler(0, http.StatusInternalServerError))

	binder.Bind(context.Background())

	// profile values still render, the counters stay blank
	assert.Equal(t, "satoshi_42", sink.username)
	assert.Empty(t, sink.totalUsers)
	assert.Empty(t, sink.totalShares)
}

func TestBindSwallowsProfileFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to load profile"})
	})
	mux.HandleFunc("/api/v1/stats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"total_users": 9, "total_posts": 3})
	})
	binder, sink, _ := newTestBinder(t, mux)

	notified := false
	binder.OnBalancesUpdated(func(float64) { notified = true })

	binder.Bind(context.Background())

	assert.Empty(t, sink.username, "stale values are preferred over an error page")
	assert.False(t, notified, "no event without a fresh balance")
	assert.Equal(t, "9", sink.totalUsers)
}
