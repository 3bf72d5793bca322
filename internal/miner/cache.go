package miner

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"

	"ccox_dashboard/internal/client"
	"ccox_dashboard/internal/logger"

	"github.com/google/uuid"
)

// Storage keys. The unscoped end-time key predates per-user scoping and is
// still honored as a last-resort hint.
const (
	keyLegacyEndTime   = "miningEndTime"
	keyEndTimePrefix   = "miningEndTime_"
	keyLockedBalance   = "lockedBalance"
	keyPendingReferral = "pendingReferral"
)

// Cache is the local persistent store the dashboard keeps between runs:
// mining end-time hints, the locked-balance mirror and a pending referral
// code. Values are hints only; the remote state always wins.
type Cache struct {
	mu   sync.Mutex
	path string
}

func NewCache(path string) *Cache {
	return &Cache{path: path}
}

func (c *Cache) load() map[string]string {
	data := make(map[string]string)
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to read local cache", "path", c.path, "error", err)
		}
		return data
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		logger.Warn("corrupt local cache, starting fresh", "path", c.path, "error", err)
		return make(map[string]string)
	}
	return data
}

func (c *Cache) save(data map[string]string) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := os.WriteFile(c.path, raw, 0o600); err != nil {
		logger.Warn("failed to write local cache", "path", c.path, "error", err)
	}
}

func (c *Cache) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.load()
	data[key] = value
	c.save(data)
}

func (c *Cache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.load()[key]
	return v, ok
}

func (c *Cache) delete(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.load()
	for _, k := range keys {
		delete(data, k)
	}
	c.save(data)
}

// SetEndTime records when the user's current session ends, in epoch
// milliseconds under the per-user key.
func (c *Cache) SetEndTime(userID uuid.UUID, endsAt time.Time) {
	c.set(keyEndTimePrefix+userID.String(), strconv.FormatInt(endsAt.UnixMilli(), 10))
}

// EndTime returns the per-user end-time hint.
func (c *Cache) EndTime(userID uuid.UUID) (time.Time, bool) {
	return c.endTime(keyEndTimePrefix + userID.String())
}

// LegacyEndTime returns the unscoped end-time hint.
func (c *Cache) LegacyEndTime() (time.Time, bool) {
	return c.endTime(keyLegacyEndTime)
}

func (c *Cache) endTime(key string) (time.Time, bool) {
	v, ok := c.get(key)
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// ClearEndTime drops both the per-user and the legacy hint.
func (c *Cache) ClearEndTime(userID uuid.UUID) {
	c.delete(keyEndTimePrefix+userID.String(), keyLegacyEndTime)
}

// SetLockedBalance mirrors the latest locked-balance value so other views
// can show it without re-querying the backend.
func (c *Cache) SetLockedBalance(v float64) {
	c.set(keyLockedBalance, strconv.FormatFloat(v, 'f', -1, 64))
}

func (c *Cache) LockedBalance() (float64, bool) {
	v, ok := c.get(keyLockedBalance)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SetPendingReferral stashes a referral code picked up from an invite link
// until profile creation consumes it.
func (c *Cache) SetPendingReferral(code string) {
	c.set(keyPendingReferral, code)
}

// TakePendingReferral returns the stashed referral code and consumes it.
func (c *Cache) TakePendingReferral() (string, bool) {
	code, ok := c.get(keyPendingReferral)
	if ok {
		c.delete(keyPendingReferral)
	}
	return code, ok
}

// OAuthIdentity assembles the identity handed to bootstrap on the OAuth
// sign-in path. Any stashed referral code rides along and is consumed here,
// so the bonus can only be claimed by the first profile provisioned.
func (c *Cache) OAuthIdentity(id uuid.UUID, email, displayName string) *client.Identity {
	ident := &client.Identity{ID: id, Email: email, DisplayName: displayName}
	if code, ok := c.TakePendingReferral(); ok {
		ident.PendingReferral = code
	}
	return ident
}
