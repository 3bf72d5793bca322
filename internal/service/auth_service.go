package service

import (
	"context"
	"errors"
	"strings"

	"ccox_dashboard/internal/domain"
	"ccox_dashboard/internal/logger"
	"ccox_dashboard/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrUsernameTaken      = repository.ErrUsernameTaken
)

const provisionRetries = 5

// AuthService covers the identity operations: sign up, sign in, resend
// confirmation, and first-login OAuth provisioning.
type AuthService struct {
	db           *pgxpool.Pool
	userRepo     *repository.UserRepository
	referralRepo *repository.ReferralRepository

	referralBonus float64
}

func NewAuthService(db *pgxpool.Pool, referralBonus float64) *AuthService {
	return &AuthService{
		db:            db,
		userRepo:      repository.NewUserRepository(db),
		referralRepo:  repository.NewReferralRepository(db),
		referralBonus: referralBonus,
	}
}

// SignUp registers an email/password account. The username must be free; a
// valid referral code links the new user to its referrer and credits the
// referrer's locked balance with the sign-up bonus.
func (s *AuthService) SignUp(ctx context.Context, email, password, username, referralCode string) (*domain.User, error) {
	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var referrerID *uuid.UUID
	code := strings.ToUpper(strings.TrimSpace(referralCode))
	if code != "" {
		id, err := s.referralRepo.ResolveCode(ctx, code)
		if err == nil {
			referrerID = &id
		} else if !errors.Is(err, repository.ErrProfileNotFound) {
			return nil, err
		}
	}

	user := &domain.User{
		ID:         uuid.New(),
		Username:   username,
		Email:      email,
		ReferrerID: referrerID,
	}
	if err := s.userRepo.Upsert(ctx, user, string(hash)); err != nil {
		return nil, err
	}

	if referrerID != nil {
		if err := s.recordReferral(ctx, *referrerID, user.ID, code); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// SignIn verifies credentials and returns the user with a fresh token.
// Unconfirmed emails are a distinguished condition the login page turns into
// a "resend confirmation" prompt.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	id, hash, confirmed, err := s.userRepo.PasswordHash(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !confirmed {
		return "", nil, ErrEmailNotConfirmed
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}

	token, err := GenerateJWT(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// ResendConfirmation re-queues the confirmation mail. Delivery is handled by
// the mail relay; here we only validate the address maps to an unconfirmed
// account.
func (s *AuthService) ResendConfirmation(ctx context.Context, email string) error {
	_, _, confirmed, err := s.userRepo.PasswordHash(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if confirmed {
		return errors.New("email already confirmed")
	}
	logger.Info("confirmation mail re-queued", "email", email)
	return nil
}

func (s *AuthService) ConfirmEmail(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.ConfirmEmail(ctx, userID)
}

// ProvisionOAuth creates the profile row for a first-time OAuth login. The
// username is derived from provider metadata (or the email local-part) with
// a random tag; on a collision a fresh tag is tried a bounded number of
// times. A pending referral code from the sign-up page is resolved into the
// referrer link exactly once.
func (s *AuthService) ProvisionOAuth(ctx context.Context, identityID uuid.UUID, email, displayName, pendingReferral string) (*domain.User, error) {
	var referrerID *uuid.UUID
	if pendingReferral != "" {
		id, err := s.referralRepo.ResolveCode(ctx, pendingReferral)
		if err == nil {
			referrerID = &id
		} else if !errors.Is(err, repository.ErrProfileNotFound) {
			return nil, err
		}
	}

	var user *domain.User
	for attempt := 0; attempt < provisionRetries; attempt++ {
		candidate := &domain.User{
			ID:             identityID,
			Username:       DeriveUsername(displayName, email),
			Email:          email,
			EmailConfirmed: true, // the provider vouched for the address
			ReferrerID:     referrerID,
		}
		err := s.userRepo.Upsert(ctx, candidate, "")
		if err == nil {
			user = candidate
			break
		}
		if !errors.Is(err, repository.ErrUsernameTaken) {
			return nil, err
		}
	}
	if user == nil {
		return nil, ErrUsernameTaken
	}

	if referrerID != nil {
		if err := s.recordReferral(ctx, *referrerID, user.ID, pendingReferral); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// recordReferral writes the referral row and the referrer's locked-balance
// bonus in one transaction.
func (s *AuthService) recordReferral(ctx context.Context, referrerID, referredID uuid.UUID, code string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ref := &domain.Referral{
		ReferrerID:   referrerID,
		ReferredID:   referredID,
		ReferralCode: code,
		BonusAmount:  s.referralBonus,
	}
	if err = s.referralRepo.CreateWithTx(ctx, tx, ref); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// ON CONFLICT DO NOTHING hit: the user was already referred.
			return nil
		}
		return err
	}

	if _, err = addToLockedWithTx(ctx, tx, referrerID, s.referralBonus); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
