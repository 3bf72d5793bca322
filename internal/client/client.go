// Package client wraps the dashboard API the way the pages consume it:
// identity operations, profile and stats reads, balance mutation, transfers,
// the mining lifecycle, referrals, leaderboards and swaps. Every operation
// either returns a decoded payload or an error the caller can branch on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"ccox_dashboard/internal/domain"

	"github.com/google/uuid"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken installs the bearer token used on authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SignOut drops the local credential. The server keeps no session state.
func (c *Client) SignOut() {
	c.SetToken("")
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return translate(resp.StatusCode, apiErr.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// --- identity ---

func (c *Client) SignUp(ctx context.Context, email, password, username, referralCode string) (*domain.User, error) {
	var out struct {
		User *domain.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":         email,
		"password":      password,
		"username":      username,
		"referral_code": referralCode,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	var out struct {
		Token string       `json:"token"`
		User  *domain.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return out.User, nil
}

func (c *Client) ResendConfirmation(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/resend-confirmation",
		map[string]string{"email": email}, nil)
}

// OAuthResult reports the identity exchange. Provisioned is true when this
// was a first login and a profile row was created.
type OAuthResult struct {
	Token       string       `json:"token"`
	User        *domain.User `json:"user"`
	Provisioned bool         `json:"provisioned"`
}

func (c *Client) OAuthExchange(ctx context.Context, identityID uuid.UUID, email, displayName, pendingReferral string) (*OAuthResult, error) {
	var out OAuthResult
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/oauth/exchange", map[string]string{
		"identity_id":      identityID.String(),
		"email":            email,
		"display_name":     displayName,
		"pending_referral": pendingReferral,
	}, &out)
	if err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// --- profile and stats ---

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out struct {
		User *domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// SiteStats are the global dashboard counters.
type SiteStats struct {
	TotalUsers int64 `json:"total_users"`
	TotalPosts int64 `json:"total_posts"`
}

func (c *Client) Stats(ctx context.Context) (*SiteStats, error) {
	var out SiteStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- balances ---

func (c *Client) AdjustBalance(ctx context.Context, currency string, delta float64) (float64, error) {
	var out struct {
		Balance float64 `json:"balance"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/balance/adjust", map[string]any{
		"currency": currency,
		"delta":    delta,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (c *Client) AddLocked(ctx context.Context, amount float64) (float64, error) {
	var out struct {
		LockedBalance float64 `json:"locked_balance"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/balance/locked",
		map[string]any{"amount": amount}, &out)
	if err != nil {
		return 0, err
	}
	return out.LockedBalance, nil
}

func (c *Client) Transfer(ctx context.Context, recipient string, amount float64, currency string) (*domain.Transaction, error) {
	var out struct {
		Transaction *domain.Transaction `json:"transaction"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/transfer", map[string]any{
		"recipient": recipient,
		"amount":    amount,
		"currency":  currency,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Transaction, nil
}

func (c *Client) Transactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	var out struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/transactions"+limitQuery(limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// --- mining lifecycle ---

// MiningStart is the start operation's report. AlreadyActive means an
// existing session was returned instead of a new one being created.
type MiningStart struct {
	SessionID     int64     `json:"session_id"`
	AlreadyActive bool      `json:"already_active"`
	StartedAt     time.Time `json:"started_at"`
	EndsAt        time.Time `json:"ends_at"`
	Reward        float64   `json:"reward"`
}

func (c *Client) StartMining(ctx context.Context) (*MiningStart, error) {
	var out MiningStart
	if err := c.do(ctx, http.MethodPost, "/api/v1/mining/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MiningComplete is the settlement outcome reported by the server.
type MiningComplete struct {
	Reward        float64      `json:"reward"`
	LockedBalance float64      `json:"locked_balance"`
	AutoSwapped   bool         `json:"auto_swapped"`
	Swap          *domain.Swap `json:"swap,omitempty"`
	Threshold     float64      `json:"threshold"`
}

func (c *Client) CompleteMining(ctx context.Context) (*MiningComplete, error) {
	var out MiningComplete
	if err := c.do(ctx, http.MethodPost, "/api/v1/mining/complete", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveSession pairs the running session with its server-computed end time.
type ActiveSession struct {
	Session *domain.MiningSession `json:"session"`
	EndsAt  time.Time             `json:"ends_at"`
}

// ActiveMining returns the caller's running session, or nil when idle.
func (c *Client) ActiveMining(ctx context.Context) (*ActiveSession, error) {
	var out ActiveSession
	if err := c.do(ctx, http.MethodGet, "/api/v1/mining/active", nil, &out); err != nil {
		return nil, err
	}
	if out.Session == nil {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) MiningHistory(ctx context.Context, limit int) ([]domain.MiningSession, error) {
	var out struct {
		Sessions []domain.MiningSession `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/mining/history"+limitQuery(limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// --- referrals ---

func (c *Client) ReferralCode(ctx context.Context) (string, error) {
	var out struct {
		Code string `json:"code"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/referral/code", nil, &out); err != nil {
		return "", err
	}
	return out.Code, nil
}

func (c *Client) ReferralStats(ctx context.Context) (*domain.ReferralStats, error) {
	var out domain.ReferralStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/referral/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecentReferrals(ctx context.Context, limit int) ([]domain.Referral, error) {
	var out struct {
		Referrals []domain.Referral `json:"referrals"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/referral/recent"+limitQuery(limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Referrals, nil
}

// --- leaderboards ---

// LeaderboardEntry is the union of the three board shapes; fields not used
// by the requested board type stay zero.
type LeaderboardEntry struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	TotalReward float64   `json:"total_reward"`
	TotalBonus  float64   `json:"total_bonus"`
	Referrals   int       `json:"referrals"`
	CcoxBalance float64   `json:"ccox_balance"`
	UsdtBalance float64   `json:"usdt_balance"`
}

func (c *Client) Leaderboard(ctx context.Context, boardType string) ([]LeaderboardEntry, error) {
	var out struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
	}
	path := "/api/v1/leaderboard?type=" + url.QueryEscape(boardType)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}

// --- swaps ---

func (c *Client) InitiateSwap(ctx context.Context, amount float64) (*domain.Swap, error) {
	var out struct {
		Swap *domain.Swap `json:"swap"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/swap/initiate",
		map[string]any{"amount": amount}, &out)
	if err != nil {
		return nil, err
	}
	return out.Swap, nil
}

// CompletePendingSwap settles a matured swap. completed is false when there
// is no pending swap or it has not matured yet.
func (c *Client) CompletePendingSwap(ctx context.Context) (completed bool, amount float64, err error) {
	var out struct {
		Completed bool    `json:"completed"`
		Amount    float64 `json:"amount"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/swap/complete-pending", nil, &out); err != nil {
		return false, 0, err
	}
	return out.Completed, out.Amount, nil
}

func (c *Client) SwapHistory(ctx context.Context, limit int) ([]domain.Swap, error) {
	var out struct {
		Swaps []domain.Swap `json:"swaps"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/swap/history"+limitQuery(limit), nil, &out); err != nil {
		return nil, err
	}
	return out.Swaps, nil
}

// --- kyc ---

// KYCStatus returns the latest application status, empty when none exists.
func (c *Client) KYCStatus(ctx context.Context) (string, error) {
	var out struct {
		Status *string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/kyc/status", nil, &out); err != nil {
		return "", err
	}
	if out.Status == nil {
		return "", nil
	}
	return *out.Status, nil
}

func limitQuery(limit int) string {
	if limit <= 0 {
		return ""
	}
	return "?limit=" + strconv.Itoa(limit)
}
