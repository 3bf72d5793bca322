package domain

import (
	"time"

	"github.com/google/uuid"
)

// Referral links a referred sign-up to its referrer. Created once at sign-up
// when a valid referral code is supplied.
type Referral struct {
	ID               int64     `db:"id" json:"id"`
	ReferrerID       uuid.UUID `db:"referrer_id" json:"referrer_id"`
	ReferredID       uuid.UUID `db:"referred_id" json:"referred_id"`
	ReferralCode     string    `db:"referral_code" json:"referral_code"`
	BonusAmount      float64   `db:"bonus_amount" json:"bonus_amount"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	ReferredUsername string    `db:"-" json:"referred_username,omitempty"`
}

type ReferralStats struct {
	TotalReferrals int     `json:"total_referrals"`
	TotalEarned    float64 `json:"total_earned"`
	ReferralClicks int     `json:"referral_clicks"` // placeholder for future tracking
}
