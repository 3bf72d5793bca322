package repository

import (
	"context"
	"errors"

	"ccox_dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReferralRepository struct {
	db *pgxpool.Pool
}

func NewReferralRepository(db *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// ResolveCode maps a referral code to the referrer's user id. Codes are
// username-equivalent tokens and case-insensitive, so the lookup checks the
// explicit referral_code column first and falls back to username.
func (r *ReferralRepository) ResolveCode(ctx context.Context, code string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT id FROM users WHERE LOWER(referral_code) = LOWER($1) OR LOWER(username) = LOWER($1)`,
		code,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrProfileNotFound
	}
	return id, err
}

func (r *ReferralRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, ref *domain.Referral) error {
	return tx.QueryRow(ctx,
		`INSERT INTO referrals (referrer_id, referred_id, referral_code, bonus_amount)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (referred_id) DO NOTHING
		 RETURNING id, created_at`,
		ref.ReferrerID, ref.ReferredID, ref.ReferralCode, ref.BonusAmount,
	).Scan(&ref.ID, &ref.CreatedAt)
}

func (r *ReferralRepository) StatsByReferrer(ctx context.Context, referrerID uuid.UUID) (*domain.ReferralStats, error) {
	var stats domain.ReferralStats
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(bonus_amount), 0)
		 FROM referrals
		 WHERE referrer_id = $1`,
		referrerID,
	).Scan(&stats.TotalReferrals, &stats.TotalEarned)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *ReferralRepository) RecentByReferrer(ctx context.Context, referrerID uuid.UUID, limit int) ([]*domain.Referral, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT ref.id, ref.referrer_id, ref.referred_id, ref.referral_code,
		        ref.bonus_amount, ref.created_at, u.username
		 FROM referrals ref
		 JOIN users u ON u.id = ref.referred_id
		 WHERE ref.referrer_id = $1
		 ORDER BY ref.created_at DESC
		 LIMIT $2`,
		referrerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Referral
	for rows.Next() {
		var ref domain.Referral
		if err := rows.Scan(
			&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.ReferralCode,
			&ref.BonusAmount, &ref.CreatedAt, &ref.ReferredUsername,
		); err != nil {
			return nil, err
		}
		res = append(res, &ref)
	}
	return res, rows.Err()
}

// CodeForUser returns the user's shareable referral code, preferring the
// explicit column and falling back to the username.
func (r *ReferralRepository) CodeForUser(ctx context.Context, userID uuid.UUID) (string, error) {
	var code, username string
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(referral_code, ''), username FROM users WHERE id = $1`,
		userID,
	).Scan(&code, &username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrProfileNotFound
	}
	if err != nil {
		return "", err
	}
	if code != "" {
		return code, nil
	}
	return username, nil
}

// ReferralLeaderboardEntry aggregates referral bonuses per referrer.
type ReferralLeaderboardEntry struct {
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	TotalBonus float64   `json:"total_bonus"`
	Referrals  int       `json:"referrals"`
}

func (r *ReferralRepository) Leaderboard(ctx context.Context, limit int) ([]ReferralLeaderboardEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ref.referrer_id, u.username, COALESCE(SUM(ref.bonus_amount), 0), COUNT(*)
		 FROM referrals ref
		 JOIN users u ON u.id = ref.referrer_id
		 GROUP BY ref.referrer_id, u.username
		 ORDER BY 3 DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []ReferralLeaderboardEntry
	for rows.Next() {
		var e ReferralLeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.TotalBonus, &e.Referrals); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
