package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the profile row behind every dashboard page. The id matches the
// auth identity id, so first-time OAuth logins upsert by id.
type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	Email          string     `db:"email" json:"email"`
	EmailConfirmed bool       `db:"email_confirmed" json:"email_confirmed"`
	CcoxBalance    float64    `db:"ccox_balance" json:"ccox_balance"`
	UsdtBalance    float64    `db:"usdt_balance" json:"usdt_balance"`
	LockedBalance  float64    `db:"locked_balance" json:"locked_balance"`
	ReferralCode   string     `db:"referral_code" json:"referral_code,omitempty"`
	ReferrerID     *uuid.UUID `db:"referrer_id" json:"referrer_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// BalanceField maps a currency tag to its users-table column. Unknown
// currencies return "" so callers reject them instead of touching a column
// that does not exist.
func BalanceField(currency string) string {
	switch currency {
	case "CCOX":
		return "ccox_balance"
	case "USDT":
		return "usdt_balance"
	default:
		return ""
	}
}
