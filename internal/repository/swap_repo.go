package repository

import (
	"context"
	"errors"

	"ccox_dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoPendingSwap = errors.New("no pending swap")

type SwapRepository struct {
	db *pgxpool.Pool
}

func NewSwapRepository(db *pgxpool.Pool) *SwapRepository {
	return &SwapRepository{db: db}
}

const swapColumns = `id, user_id, amount, status, initiated_at, completes_at, completed_at`

func scanSwap(row pgx.Row) (*domain.Swap, error) {
	var s domain.Swap
	err := row.Scan(&s.ID, &s.UserID, &s.Amount, &s.Status, &s.InitiatedAt, &s.CompletesAt, &s.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoPendingSwap
		}
		return nil, err
	}
	return &s, nil
}

func (r *SwapRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount float64, maturity string) (*domain.Swap, error) {
	return scanSwap(tx.QueryRow(ctx,
		`INSERT INTO swaps (user_id, amount, status, completes_at)
		 VALUES ($1, $2, 'pending', now() + $3::interval)
		 RETURNING `+swapColumns,
		userID, amount, maturity,
	))
}

// PendingForUpdate locks the user's pending swap row for settlement.
func (r *SwapRepository) PendingForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Swap, error) {
	return scanSwap(tx.QueryRow(ctx,
		`SELECT `+swapColumns+`
		 FROM swaps
		 WHERE user_id = $1 AND status = 'pending'
		 ORDER BY initiated_at ASC
		 LIMIT 1
		 FOR UPDATE`,
		userID,
	))
}

func (r *SwapRepository) CompleteWithTx(ctx context.Context, tx pgx.Tx, swapID int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE swaps SET status = 'completed', completed_at = now()
		 WHERE id = $1 AND status = 'pending'`,
		swapID,
	)
	return err
}

func (r *SwapRepository) ByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Swap, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+swapColumns+`
		 FROM swaps
		 WHERE user_id = $1
		 ORDER BY initiated_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Swap
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
