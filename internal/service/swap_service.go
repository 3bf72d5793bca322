package service

import (
	"context"
	"fmt"

	"ccox_dashboard/internal/domain"
	"ccox_dashboard/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SwapService converts locked balance into spendable CCOX on a delay.
// Initiation moves the amount out of locked_balance into a pending swap;
// completion credits the wallet once the maturity window has passed.
type SwapService struct {
	db       *pgxpool.Pool
	swapRepo *repository.SwapRepository
	txRepo   *repository.TransactionRepository

	maturityDays int
}

func NewSwapService(db *pgxpool.Pool, maturityDays int) *SwapService {
	return &SwapService{
		db:           db,
		swapRepo:     repository.NewSwapRepository(db),
		txRepo:       repository.NewTransactionRepository(db),
		maturityDays: maturityDays,
	}
}

// Initiate moves amount from locked balance into a pending swap that
// completes after the maturity window.
func (s *SwapService) Initiate(ctx context.Context, userID uuid.UUID, amount float64) (*domain.Swap, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = addToLockedWithTx(ctx, tx, userID, -amount); err != nil {
		return nil, err
	}

	swap, err := s.swapRepo.CreateWithTx(ctx, tx, userID, amount,
		fmt.Sprintf("%d days", s.maturityDays))
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return swap, nil
}

// CompleteIfDue settles the user's oldest pending swap when its timer has
// expired. Returns (nil, repository.ErrNoPendingSwap) when there is nothing
// pending, and (nil, nil) when a swap exists but has not matured yet.
func (s *SwapService) CompleteIfDue(ctx context.Context, userID uuid.UUID) (*domain.Swap, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	swap, err := s.swapRepo.PendingForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var due bool
	err = tx.QueryRow(ctx, `SELECT now() >= $1`, swap.CompletesAt).Scan(&due)
	if err != nil {
		return nil, err
	}
	if !due {
		return nil, nil
	}

	if err = s.swapRepo.CompleteWithTx(ctx, tx, swap.ID); err != nil {
		return nil, err
	}

	if _, err = adjustWithTx(ctx, tx, userID, "ccox_balance", swap.Amount); err != nil {
		return nil, err
	}

	ledger := &domain.Transaction{
		SenderID:    nil,
		RecipientID: userID,
		Amount:      swap.Amount,
		Currency:    "CCOX",
		Type:        domain.TxTypeSwap,
	}
	if err = s.txRepo.CreateWithTx(ctx, tx, ledger); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	swap.Status = domain.SwapCompleted
	return swap, nil
}

// History returns the user's swaps, newest first.
func (s *SwapService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Swap, error) {
	return s.swapRepo.ByUser(ctx, userID, limit)
}
