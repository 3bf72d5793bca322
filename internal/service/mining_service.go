package service

import (
	"context"
	"errors"
	"time"

	"ccox_dashboard/internal/domain"
	"ccox_dashboard/internal/logger"
	"ccox_dashboard/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNoActiveSession distinguishes "nothing to settle" from real
	// failures, so a completion retry cannot fabricate a second reward.
	ErrNoActiveSession = errors.New("no active mining session found")

	// ErrSessionNotMatured rejects settlement before the session window has
	// elapsed; the countdown is rendered client-side but the clock that pays
	// out is this one.
	ErrSessionNotMatured = errors.New("mining session has not matured yet")
)

// MiningService drives the session lifecycle: start (idempotent), complete
// (settle reward into locked balance, auto-swap at the threshold), lookups.
type MiningService struct {
	db          *pgxpool.Pool
	miningRepo  *repository.MiningRepository
	txRepo      *repository.TransactionRepository
	userRepo    *repository.UserRepository
	swapService *SwapService

	reward    float64
	duration  time.Duration
	threshold float64
}

func NewMiningService(db *pgxpool.Pool, swapService *SwapService, reward float64, duration time.Duration, threshold float64) *MiningService {
	return &MiningService{
		db:          db,
		miningRepo:  repository.NewMiningRepository(db),
		txRepo:      repository.NewTransactionRepository(db),
		userRepo:    repository.NewUserRepository(db),
		swapService: swapService,
		reward:      reward,
		duration:    duration,
		threshold:   threshold,
	}
}

func (s *MiningService) Duration() time.Duration { return s.duration }

// StartResult reports the running session; AlreadyActive is set when start
// found an existing session instead of creating one.
type StartResult struct {
	Session       *domain.MiningSession
	AlreadyActive bool
	EndsAt        time.Time
}

// Start begins a mining session or returns the existing active one. If more
// than one active session exists (a data anomaly), all but the most recently
// started are cancelled before resuming.
func (s *MiningService) Start(ctx context.Context, userID uuid.UUID) (*StartResult, error) {
	active, err := s.miningRepo.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(active) > 1 {
		logger.Warn("multiple active mining sessions, cancelling extras",
			"user_id", userID, "count", len(active))
		for _, stale := range active[1:] {
			if err := s.miningRepo.Cancel(ctx, stale.ID); err != nil {
				return nil, err
			}
		}
	}

	if len(active) > 0 {
		session := active[0]
		return &StartResult{
			Session:       session,
			AlreadyActive: true,
			EndsAt:        session.EndsAt(s.duration),
		}, nil
	}

	session, err := s.miningRepo.Create(ctx, userID, s.reward)
	if err != nil {
		return nil, err
	}
	return &StartResult{
		Session: session,
		EndsAt:  session.EndsAt(s.duration),
	}, nil
}

// Active returns the most recent active session, or ErrNoActiveSession.
func (s *MiningService) Active(ctx context.Context, userID uuid.UUID) (*domain.MiningSession, error) {
	active, err := s.miningRepo.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, ErrNoActiveSession
	}
	return active[0], nil
}

// CompleteResult reports the settlement outcome. AutoSwapped is set when the
// post-credit locked balance crossed the threshold and a swap was initiated.
type CompleteResult struct {
	Reward        float64      `json:"reward"`
	LockedBalance float64      `json:"locked_balance"`
	AutoSwapped   bool         `json:"auto_swapped"`
	Swap          *domain.Swap `json:"swap,omitempty"`
	Threshold     float64      `json:"threshold"`
}

// Complete settles the user's active session: marks it completed, writes the
// system-issued mining ledger row (nil sender) and credits the reward to the
// locked balance, all in one transaction. When the resulting locked balance
// reaches the auto-swap threshold, a swap for the full locked amount is
// initiated before returning.
func (s *MiningService) Complete(ctx context.Context, userID uuid.UUID) (*CompleteResult, error) {
	active, err := s.miningRepo.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, ErrNoActiveSession
	}
	session := active[0]
	if time.Now().Before(session.EndsAt(s.duration)) {
		return nil, ErrSessionNotMatured
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = s.miningRepo.CompleteWithTx(ctx, tx, session.ID); err != nil {
		return nil, err
	}

	ledger := &domain.Transaction{
		SenderID:    nil,
		RecipientID: userID,
		Amount:      session.RewardAmount,
		Currency:    "CCOX",
		Type:        domain.TxTypeMining,
	}
	if err = s.txRepo.CreateWithTx(ctx, tx, ledger); err != nil {
		return nil, err
	}

	locked, err := addToLockedWithTx(ctx, tx, userID, session.RewardAmount)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	result := &CompleteResult{
		Reward:        session.RewardAmount,
		LockedBalance: locked,
		Threshold:     s.threshold,
	}

	if locked >= s.threshold {
		swap, err := s.swapService.Initiate(ctx, userID, locked)
		if err != nil {
			// The reward is already settled; surface the swap failure in logs
			// and let the user retry the swap from the wallet page.
			logger.Error("auto-swap after mining completion failed",
				"user_id", userID, "amount", locked, "error", err)
		} else {
			result.AutoSwapped = true
			result.Swap = swap
			result.LockedBalance = 0
		}
	}

	return result, nil
}

// History returns the user's recent sessions, newest first.
func (s *MiningService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.MiningSession, error) {
	return s.miningRepo.HistoryByUser(ctx, userID, limit)
}
