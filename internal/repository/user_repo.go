package repository

import (
	"context"
	"errors"

	"ccox_dashboard/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrProfileNotFound is the distinguished "no profile row" condition that
	// triggers first-login provisioning instead of failing bootstrap.
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
)

const userColumns = `id, username, COALESCE(email, ''), email_confirmed,
	 ccox_balance, usdt_balance, locked_balance,
	 COALESCE(referral_code, ''), referrer_id, created_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.EmailConfirmed,
		&u.CcoxBalance,
		&u.UsdtBalance,
		&u.LockedBalance,
		&u.ReferralCode,
		&u.ReferrerID,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindRecipient resolves a transfer recipient by email or username,
// mirroring the lookup the transfer form accepts.
func (r *UserRepository) FindRecipient(ctx context.Context, recipient string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 OR username = $1`, recipient))
}

// Upsert creates the profile row keyed by identity id. Used both by
// email/password sign-up and by first-login OAuth provisioning.
func (r *UserRepository) Upsert(ctx context.Context, u *domain.User, passwordHash string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, email, email_confirmed, password_hash,
		                    ccox_balance, usdt_balance, locked_balance, referrer_id)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), 0, 0, 0, $6)
		 ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, email = EXCLUDED.email`,
		u.ID, u.Username, u.Email, u.EmailConfirmed, passwordHash, u.ReferrerID,
	)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

func (r *UserRepository) PasswordHash(ctx context.Context, email string) (uuid.UUID, string, bool, error) {
	var (
		id        uuid.UUID
		hash      string
		confirmed bool
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, COALESCE(password_hash, ''), email_confirmed FROM users WHERE email = $1`,
		email,
	).Scan(&id, &hash, &confirmed)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, "", false, ErrProfileNotFound
	}
	return id, hash, confirmed, err
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET email_confirmed = TRUE WHERE id = $1`, id)
	return err
}

// WealthTop returns users ordered by wallet balance, for the wealth leaderboard.
func (r *UserRepository) WealthTop(ctx context.Context, limit int) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY ccox_balance DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
