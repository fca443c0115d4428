package model

import "time"

// BucksBalance is the materialized running total for one child. It is updated
// in the same SQL transaction as every BucksTransaction append, so the two
// never diverge.
type BucksBalance struct {
	ChildID        int64     `json:"child_id"`
	FamilyID       int64     `json:"family_id"`
	Balance        int       `json:"balance"`
	LifetimeEarned int       `json:"lifetime_earned"`
	LifetimeSpent  int       `json:"lifetime_spent"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BucksTransaction is immutable once written.
type BucksTransaction struct {
	ID               int64     `json:"id"`
	FamilyID         int64     `json:"family_id"`
	ChildID          int64     `json:"child_id"`
	Amount           int       `json:"amount"` // signed
	Reason           string    `json:"reason"`
	SourceType       string    `json:"source_type"` // chore, reward, adjustment
	SourceID         *int64    `json:"source_id,omitempty"`
	ResultingBalance int       `json:"resulting_balance"`
	ActorID          int64     `json:"actor_id"`
	CreatedAt        time.Time `json:"created_at"`
}

const (
	SourceChore      = "chore"
	SourceReward     = "reward"
	SourceAdjustment = "adjustment"
)
