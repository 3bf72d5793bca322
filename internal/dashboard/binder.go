// Package dashboard renders account state into whatever view is attached.
// Every read is best-effort: a failure leaves the previous values on screen
// instead of blocking the page.
package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"ccox_dashboard/internal/client"
	"ccox_dashboard/internal/logger"
	"ccox_dashboard/internal/miner"
)

// Sink receives the formatted dashboard values. Implementations decide how
// (and whether) to show each field; the binder never cares.
type Sink interface {
	SetUsername(name string)
	SetCcoxBalance(formatted string)
	SetUsdtBalance(formatted string)
	SetLockedBalance(formatted string)
	SetTotalUsers(formatted string)
	SetTotalShares(formatted string)
}

// BalancesListener observes the locked-balance value after each bind, so
// other views react without re-querying the backend.
type BalancesListener func(lockedBalance float64)

// Binder reads profile balances and the global counters and pushes them into
// the sink. The locked balance is additionally mirrored into the local cache
// and published to in-process listeners.
type Binder struct {
	session *client.Session
	cache   *miner.Cache
	sink    Sink

	mu        sync.Mutex
	listeners []BalancesListener
}

func NewBinder(session *client.Session, cache *miner.Cache, sink Sink) *Binder {
	return &Binder{session: session, cache: cache, sink: sink}
}

// OnBalancesUpdated subscribes to locked-balance changes.
func (b *Binder) OnBalancesUpdated(fn BalancesListener) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// Bind refreshes the profile and counters and renders them. Failures are
// logged and swallowed.
func (b *Binder) Bind(ctx context.Context) {
	if err := b.session.Refresh(ctx); err != nil {
		logger.Warn("dashboard profile refresh failed", "error", err)
	} else {
		user := b.session.User
		b.sink.SetUsername(user.Username)
		b.sink.SetCcoxBalance(formatAmount(user.CcoxBalance))
		b.sink.SetUsdtBalance(formatAmount(user.UsdtBalance))
		b.sink.SetLockedBalance(formatAmount(user.LockedBalance))

		b.cache.SetLockedBalance(user.LockedBalance)
		b.publish(user.LockedBalance)
	}

	stats, err := b.session.Client.Stats(ctx)
	if err != nil {
		logger.Warn("dashboard stats read failed", "error", err)
		return
	}
	b.sink.SetTotalUsers(formatCount(stats.TotalUsers))
	b.sink.SetTotalShares(formatCount(stats.TotalPosts))
}

func (b *Binder) publish(lockedBalance float64) {
	b.mu.Lock()
	listeners := make([]BalancesListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(lockedBalance)
	}
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatCount(v int64) string {
	return strconv.FormatInt(v, 10)
}
