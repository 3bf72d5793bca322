// Package miner drives the mining countdown: start, 1-second ticking,
// settlement at the end of the window and reconciliation against the remote
// session on startup.
package miner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"ccox_dashboard/internal/client"
	"ccox_dashboard/internal/logger"
)

type State int

const (
	StateIdle State = iota
	StateActive
	StateCompleting
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCompleting:
		return "completing"
	default:
		return "idle"
	}
}

var ErrAlreadyMining = errors.New("mining session already running")

// DefaultWindow is the fixed session length. The server reports exact start
// and end times; this is the fallback when only an end-time hint survives.
const DefaultWindow = 24 * time.Hour

// Display receives the controller's visual output. Implementations must not
// block; every method may be called once per tick.
type Display interface {
	SetActive(active bool)
	SetProgress(fraction float64)
	SetHashRate(rate float64)
	SetRemaining(remaining string)
	Notify(message string)
}

// Controller is the mining state machine: Idle, Active (ticking countdown),
// Completing (settlement in flight), back to Idle.
type Controller struct {
	session *client.Session
	cache   *Cache
	display Display

	state  State
	endsAt time.Time
	window time.Duration

	nowFn  func() time.Time
	rateFn func() float64
}

func NewController(session *client.Session, cache *Cache, display Display) *Controller {
	return &Controller{
		session: session,
		cache:   cache,
		display: display,
		state:   StateIdle,
		window:  DefaultWindow,
		nowFn:   time.Now,
		// cosmetic only, the backend pays a fixed reward regardless
		rateFn: func() float64 { return 20 + rand.Float64()*80 },
	}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) EndsAt() time.Time { return c.endsAt }

// Start begins a session. The server side is idempotent: if a session is
// already running its data comes back unchanged and the countdown resumes
// against it.
func (c *Controller) Start(ctx context.Context) error {
	if c.state != StateIdle {
		return ErrAlreadyMining
	}

	res, err := c.session.Client.StartMining(ctx)
	if err != nil {
		return err
	}

	if res.EndsAt.After(res.StartedAt) {
		c.window = res.EndsAt.Sub(res.StartedAt)
	}
	c.enterActive(res.EndsAt)
	if res.AlreadyActive {
		logger.Info("resumed running mining session",
			"session_id", res.SessionID, "ends_at", res.EndsAt)
	}
	return nil
}

// Stop clears the countdown display only. The remote session stays active
// and is picked up again by the next reconciliation.
func (c *Controller) Stop() {
	c.state = StateIdle
	c.resetDisplay()
}

// Tick advances the countdown by one evaluation. It is a no-op outside the
// Active state. Returns true when the tick triggered settlement.
func (c *Controller) Tick(ctx context.Context) bool {
	if c.state != StateActive {
		return false
	}

	now := c.nowFn()
	remaining := c.endsAt.Sub(now)
	if remaining > 0 {
		c.display.SetProgress(progress(c.window, remaining))
		c.display.SetHashRate(c.rateFn())
		c.display.SetRemaining(formatRemaining(remaining))
		return false
	}

	c.state = StateCompleting
	c.display.SetProgress(1)
	c.display.SetRemaining(formatRemaining(0))
	c.complete(ctx)
	return true
}

// Run ticks once per second until the session settles, the controller leaves
// the Active state, or the context ends.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.Tick(ctx) || c.state != StateActive {
				return
			}
		}
	}
}

func (c *Controller) complete(ctx context.Context) {
	defer func() {
		c.state = StateIdle
		c.resetDisplay()
	}()

	res, err := c.session.Client.CompleteMining(ctx)
	if err != nil {
		if errors.Is(err, client.ErrNoActiveSession) {
			c.cache.ClearEndTime(c.session.User.ID)
			c.display.Notify("No active mining session to settle.")
			return
		}
		logger.Error("mining settlement failed", "error", err)
		c.display.Notify("Mining completion failed, please try again.")
		return
	}

	c.cache.ClearEndTime(c.session.User.ID)
	if err := c.session.Refresh(ctx); err != nil {
		logger.Warn("profile refresh after settlement failed", "error", err)
	}

	if res.AutoSwapped {
		c.display.Notify(fmt.Sprintf(
			"Mining complete! +%.2f CCOX earned. %.2f CCOX sent to swap.",
			res.Reward, res.LockedBalance))
		return
	}
	c.display.Notify(fmt.Sprintf(
		"Mining complete! +%.2f CCOX earned. %.2f more until auto-swap (%.2f/%.2f).",
		res.Reward, res.Threshold-res.LockedBalance, res.LockedBalance, res.Threshold))
}

// Reconcile restores the countdown after a restart. The remote session is
// authoritative; the local cache is only a degraded hint used when the
// remote cannot be consulted or reports nothing.
func (c *Controller) Reconcile(ctx context.Context) error {
	active, err := c.session.Client.ActiveMining(ctx)
	if err != nil {
		logger.Warn("active-session lookup failed, falling back to local hint", "error", err)
		c.reconcileFromCache()
		return nil
	}

	if active != nil {
		if active.EndsAt.After(active.Session.StartedAt) {
			c.window = active.EndsAt.Sub(active.Session.StartedAt)
		}
		c.applyEndTime(active.EndsAt, true)
		return nil
	}

	c.reconcileFromCache()
	return nil
}

func (c *Controller) reconcileFromCache() {
	userID := c.session.User.ID
	endsAt, ok := c.cache.EndTime(userID)
	if !ok {
		endsAt, ok = c.cache.LegacyEndTime()
	}
	if !ok {
		c.state = StateIdle
		return
	}
	c.applyEndTime(endsAt, false)
}

// applyEndTime enters Active for a future end time. An expired one means the
// reward is claimable: the stale hint is dropped and the user notified, but
// settlement is never invoked automatically.
func (c *Controller) applyEndTime(endsAt time.Time, remote bool) {
	if endsAt.After(c.nowFn()) {
		c.enterActive(endsAt)
		return
	}

	c.cache.ClearEndTime(c.session.User.ID)
	c.state = StateIdle
	c.display.Notify("Your mining reward is ready to be claimed!")
	if remote {
		logger.Info("expired remote session found during reconciliation",
			"user_id", c.session.User.ID, "ended_at", endsAt)
	}
}

func (c *Controller) enterActive(endsAt time.Time) {
	c.endsAt = endsAt
	c.state = StateActive
	c.cache.SetEndTime(c.session.User.ID, endsAt)
	c.display.SetActive(true)
}

func (c *Controller) resetDisplay() {
	c.display.SetActive(false)
	c.display.SetProgress(0)
	c.display.SetHashRate(0)
	c.display.SetRemaining("")
}

// progress is the elapsed fraction of the window, clamped to [0, 1].
func progress(total, remaining time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	p := float64(total-remaining) / float64(total)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02dh %02dm %02ds", h, m, s)
}
