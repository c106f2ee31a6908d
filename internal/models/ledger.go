package models

import "time"

// LedgerEntry is one immutable audit record of a balance change. Exactly one
// entry is written per balance mutation, in the same transaction as the
// balance update.
type LedgerEntry struct {
	ID        int       `json:"id" db:"id"`
	AccountID int64     `json:"account_id" db:"account_id"`
	Delta     int64     `json:"delta" db:"delta"` // signed amount in noirs
	Reason    string    `json:"reason" db:"reason"`
	ActorID   int64     `json:"actor_id" db:"actor_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
