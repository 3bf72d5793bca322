package repository

import (
	"context"

	"ccox_dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO transactions (sender_id, recipient_id, amount, currency, type)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		tx.SenderID, tx.RecipientID, tx.Amount, tx.Currency, tx.Type,
	).Scan(&tx.ID, &tx.CreatedAt)
}

// CreateWithTx inserts the ledger row inside an existing database transaction.
func (r *TransactionRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, tx *domain.Transaction) error {
	return dbTx.QueryRow(ctx,
		`INSERT INTO transactions (sender_id, recipient_id, amount, currency, type)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		tx.SenderID, tx.RecipientID, tx.Amount, tx.Currency, tx.Type,
	).Scan(&tx.ID, &tx.CreatedAt)
}

// GetByUser returns recent ledger rows where the user is sender or recipient,
// with counterparty usernames resolved for display.
func (r *TransactionRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.sender_id, t.recipient_id, t.amount, t.currency, t.type, t.created_at,
		        COALESCE(s.username, ''), COALESCE(rcp.username, '')
		 FROM transactions t
		 LEFT JOIN users s ON s.id = t.sender_id
		 LEFT JOIN users rcp ON rcp.id = t.recipient_id
		 WHERE t.sender_id = $1 OR t.recipient_id = $1
		 ORDER BY t.created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID, &tx.SenderID, &tx.RecipientID, &tx.Amount, &tx.Currency,
			&tx.Type, &tx.CreatedAt, &tx.SenderUsername, &tx.RecipientUsername,
		); err != nil {
			return nil, err
		}
		res = append(res, &tx)
	}
	return res, rows.Err()
}
