package domain

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// MiningSession is a timed reward-accrual record. At most one active session
// per user; extras are a data anomaly and get cancelled on the next start.
type MiningSession struct {
	ID           int64         `db:"id" json:"id"`
	UserID       uuid.UUID     `db:"user_id" json:"user_id"`
	Status       SessionStatus `db:"status" json:"status"`
	RewardAmount float64       `db:"reward_amount" json:"reward_amount"`
	StartedAt    time.Time     `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}

// EndsAt is the authoritative session end: start plus the fixed window.
func (s *MiningSession) EndsAt(duration time.Duration) time.Time {
	return s.StartedAt.Add(duration)
}
