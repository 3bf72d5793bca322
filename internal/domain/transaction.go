package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TxTypeTransfer = "transfer"
	TxTypeMining   = "mining"
	TxTypeSwap     = "swap"
)

// Transaction is an immutable ledger row. SenderID is nil for system-issued
// rewards (mining payouts, swap credits).
type Transaction struct {
	ID                int64      `db:"id" json:"id"`
	SenderID          *uuid.UUID `db:"sender_id" json:"sender_id,omitempty"`
	RecipientID       uuid.UUID  `db:"recipient_id" json:"recipient_id"`
	Amount            float64    `db:"amount" json:"amount"`
	Currency          string     `db:"currency" json:"currency"`
	Type              string     `db:"type" json:"type"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	SenderUsername    string     `db:"-" json:"sender_username,omitempty"`
	RecipientUsername string     `db:"-" json:"recipient_username,omitempty"`
}
