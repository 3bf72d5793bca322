package service

import (
	"context"
	"errors"
	"fmt"

	"ccox_dashboard/internal/domain"
	"ccox_dashboard/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownCurrency   = errors.New("unknown currency")
)

// BalanceService owns every balance mutation. Each mutation and its ledger
// row commit in one database transaction with the user row locked, so two
// tabs or a rapid double-click cannot lose an update.
type BalanceService struct {
	db              *pgxpool.Pool
	transactionRepo *repository.TransactionRepository
}

func NewBalanceService(db *pgxpool.Pool) *BalanceService {
	return &BalanceService{
		db:              db,
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// Get returns the user's balance for a currency.
func (s *BalanceService) Get(ctx context.Context, userID uuid.UUID, currency string) (float64, error) {
	field := domain.BalanceField(currency)
	if field == "" {
		return 0, ErrUnknownCurrency
	}

	var balance float64
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, field), userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return balance, nil
}

// Adjust applies a signed delta to the named balance field and returns the
// new value. Negative deltas fail rather than driving the balance below zero.
func (s *BalanceService) Adjust(ctx context.Context, userID uuid.UUID, currency string, delta float64) (float64, error) {
	field := domain.BalanceField(currency)
	if field == "" {
		return 0, ErrUnknownCurrency
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	newBalance, err := adjustWithTx(ctx, tx, userID, field, delta)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func adjustWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, field string, delta float64) (float64, error) {
	var newBalance float64
	err := tx.QueryRow(ctx,
		fmt.Sprintf(
			`UPDATE users SET %[1]s = %[1]s + $1 WHERE id = $2 AND %[1]s + $1 >= 0 RETURNING %[1]s`,
			field,
		),
		delta, userID,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			_ = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
			if !exists {
				return 0, ErrUserNotFound
			}
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}
	return newBalance, nil
}

// Transfer moves amount between two users and writes the ledger row, all in
// one transaction. Both user rows are locked in id order to avoid deadlocks.
func (s *BalanceService) Transfer(ctx context.Context, senderID, recipientID uuid.UUID, amount float64, currency string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	field := domain.BalanceField(currency)
	if field == "" {
		return nil, ErrUnknownCurrency
	}
	if senderID == recipientID {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	firstID, secondID := senderID, recipientID
	if firstID.String() > secondID.String() {
		firstID, secondID = secondID, firstID
	}
	for _, id := range []uuid.UUID{firstID, secondID} {
		var locked float64
		err = tx.QueryRow(ctx,
			fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 FOR UPDATE`, field), id,
		).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	}

	if _, err = adjustWithTx(ctx, tx, senderID, field, -amount); err != nil {
		return nil, err
	}
	if _, err = adjustWithTx(ctx, tx, recipientID, field, amount); err != nil {
		return nil, err
	}

	ledger := &domain.Transaction{
		SenderID:    &senderID,
		RecipientID: recipientID,
		Amount:      amount,
		Currency:    currency,
		Type:        domain.TxTypeTransfer,
	}
	if err = s.transactionRepo.CreateWithTx(ctx, tx, ledger); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ledger, nil
}

// AddToLocked credits the reward holding bucket.
func (s *BalanceService) AddToLocked(ctx context.Context, userID uuid.UUID, amount float64) (float64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	newBalance, err := addToLockedWithTx(ctx, tx, userID, amount)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func addToLockedWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount float64) (float64, error) {
	var newBalance float64
	err := tx.QueryRow(ctx,
		`UPDATE users SET locked_balance = locked_balance + $1
		 WHERE id = $2 AND locked_balance + $1 >= 0
		 RETURNING locked_balance`,
		amount, userID,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			_ = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
			if !exists {
				return 0, ErrUserNotFound
			}
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}
	return newBalance, nil
}
