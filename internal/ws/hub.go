// Package ws pushes balances-updated events to a user's open dashboard
// sockets, so other pages react to balance changes without re-polling.
package ws

import (
	"sync"

	"ccox_dashboard/internal/logger"

	"github.com/google/uuid"
)

// BalanceEvent is the payload every balance-changing operation broadcasts.
type BalanceEvent struct {
	Type          string  `json:"type"`
	CcoxBalance   float64 `json:"ccox_balance"`
	UsdtBalance   float64 `json:"usdt_balance"`
	LockedBalance float64 `json:"locked_balance"`
}

const eventBalancesUpdated = "balances_updated"

type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, present := set[c]; present {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// NotifyBalances fans a balances-updated event out to the user's sockets.
// Slow consumers are dropped rather than blocking the caller.
func (h *Hub) NotifyBalances(userID uuid.UUID, ccox, usdt, locked float64) {
	event := BalanceEvent{
		Type:          eventBalancesUpdated,
		CcoxBalance:   ccox,
		UsdtBalance:   usdt,
		LockedBalance: locked,
	}

	h.mu.RLock()
	var stale []*Client
	for c := range h.clients[userID] {
		select {
		case c.send <- event:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		logger.Warn("dropping slow balance-event consumer", "user_id", userID)
		h.Unregister(c)
	}
}

// ClientCount reports open sockets for a user (used in tests).
func (h *Hub) ClientCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
