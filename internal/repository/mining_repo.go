package repository

import (
	"context"

	"ccox_dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MiningRepository struct {
	db *pgxpool.Pool
}

func NewMiningRepository(db *pgxpool.Pool) *MiningRepository {
	return &MiningRepository{db: db}
}

const sessionColumns = `id, user_id, status, reward_amount, started_at, completed_at`

func scanSession(row pgx.Row) (*domain.MiningSession, error) {
	var s domain.MiningSession
	err := row.Scan(&s.ID, &s.UserID, &s.Status, &s.RewardAmount, &s.StartedAt, &s.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ActiveSessions returns all active sessions for a user, most recent first.
// More than one row is a data anomaly the service cleans up on start.
func (r *MiningRepository) ActiveSessions(ctx context.Context, userID uuid.UUID) ([]*domain.MiningSession, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM mining_sessions
		 WHERE user_id = $1 AND status = 'active'
		 ORDER BY started_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.MiningSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *MiningRepository) Create(ctx context.Context, userID uuid.UUID, reward float64) (*domain.MiningSession, error) {
	return scanSession(r.db.QueryRow(ctx,
		`INSERT INTO mining_sessions (user_id, status, reward_amount)
		 VALUES ($1, 'active', $2)
		 RETURNING `+sessionColumns,
		userID, reward,
	))
}

func (r *MiningRepository) Cancel(ctx context.Context, sessionID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE mining_sessions SET status = 'cancelled', completed_at = now()
		 WHERE id = $1 AND status = 'active'`,
		sessionID,
	)
	return err
}

// CompleteWithTx marks the session completed inside an existing transaction so
// the settlement (ledger row + locked-balance credit) commits atomically.
func (r *MiningRepository) CompleteWithTx(ctx context.Context, tx pgx.Tx, sessionID int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE mining_sessions SET status = 'completed', completed_at = now()
		 WHERE id = $1 AND status = 'active'`,
		sessionID,
	)
	return err
}

func (r *MiningRepository) HistoryByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.MiningSession, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM mining_sessions
		 WHERE user_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.MiningSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// MiningLeaderboardEntry aggregates completed-session rewards per user.
type MiningLeaderboardEntry struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	TotalReward float64   `json:"total_reward"`
}

func (r *MiningRepository) Leaderboard(ctx context.Context, limit int) ([]MiningLeaderboardEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT m.user_id, u.username, SUM(m.reward_amount) AS total_reward
		 FROM mining_sessions m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.status = 'completed'
		 GROUP BY m.user_id, u.username
		 ORDER BY total_reward DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []MiningLeaderboardEntry
	for rows.Next() {
		var e MiningLeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.TotalReward); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
