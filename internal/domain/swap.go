package domain

import (
	"time"

	"github.com/google/uuid"
)

type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapCompleted SwapStatus = "completed"
)

// Swap is a time-delayed conversion of locked balance into spendable CCOX.
// Initiation moves the amount out of locked_balance; completion credits the
// wallet once completes_at has passed.
type Swap struct {
	ID          int64      `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Amount      float64    `db:"amount" json:"amount"`
	Status      SwapStatus `db:"status" json:"status"`
	InitiatedAt time.Time  `db:"initiated_at" json:"initiated_at"`
	CompletesAt time.Time  `db:"completes_at" json:"completes_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
