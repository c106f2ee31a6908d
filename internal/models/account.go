package models

import "time"

// Account is one club member's ledger row. The ID is the stable chat user
// id supplied by the transport; rows are created implicitly on the first
// balance mutation or key grant and never deleted.
type Account struct {
	ID        int64     `json:"id" db:"id"`
	Balance   int64     `json:"balance" db:"balance"` // noirs, never negative at rest
	HasKey    bool      `json:"has_key" db:"has_key"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
