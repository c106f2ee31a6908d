// Package store persists club state: account balances, key flags, roles and
// the append-only ledger log. Two implementations exist: a Postgres store
// used in production and an in-memory store used by tests and as a fallback
// when no database is configured.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/denbedilov/the-archivist/internal/models"
)

// ErrNoRole indicates the account has no role row at all.
var ErrNoRole = errors.New("no role assigned")

// ErrSameAccount indicates a transfer where sender and receiver match.
var ErrSameAccount = errors.New("cannot transfer to yourself")

// InsufficientBalanceError is returned when a debit would drive a balance
// below zero. The balance is carried so replies can show it; no write
// happens when this error is returned.
type InsufficientBalanceError struct {
	AccountID int64
	Balance   int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: account %d has %d, requested %d",
		e.AccountID, e.Balance, e.Requested)
}

// Store is the persistence contract the command executor runs against.
// Every balance mutation is atomic with its ledger entry.
type Store interface {
	// Balance returns the current balance, zero for unknown accounts.
	Balance(ctx context.Context, accountID int64) (int64, error)

	// Credit adds amount (> 0) to the account, creating it if needed, and
	// appends one ledger entry in the same transaction. Returns the balance
	// the mutation produced.
	Credit(ctx context.Context, accountID, amount int64, reason string, actorID int64) (int64, error)

	// Debit subtracts amount (> 0) from the account and appends one ledger
	// entry in the same transaction, returning the balance the mutation
	// produced. A debit that would drive the balance negative returns
	// *InsufficientBalanceError and writes nothing.
	Debit(ctx context.Context, accountID, amount int64, reason string, actorID int64) (int64, error)

	// Transfer moves amount from one account to another atomically,
	// appending a debit and a credit entry that share the given reason.
	// Fails with ErrSameAccount or *InsufficientBalanceError.
	Transfer(ctx context.Context, fromID, toID, amount int64, reason string, actorID int64) error

	// ResetBalance zeroes one account's balance, logging the removed amount
	// when there was one.
	ResetBalance(ctx context.Context, accountID int64, actorID int64) error

	// ResetAllBalances zeroes every balance, logging one entry per account
	// that held a nonzero balance. Idempotent.
	ResetAllBalances(ctx context.Context, actorID int64) error

	// HasKey reports whether the account holds a safe key.
	HasKey(ctx context.Context, accountID int64) (bool, error)

	// SetKey grants or revokes the safe key, creating the account row if
	// needed. Idempotent.
	SetKey(ctx context.Context, accountID int64, hasKey bool) error

	// KeyHolders lists every account with the key flag set.
	KeyHolders(ctx context.Context) ([]models.Account, error)

	// TopBalances lists accounts with balance > 0, richest first.
	TopBalances(ctx context.Context, limit int) ([]models.Account, error)

	// RecentEntries lists the newest ledger entries, newest first.
	RecentEntries(ctx context.Context, limit int) ([]models.LedgerEntry, error)

	// Role returns the account's role row, ErrNoRole when none exists.
	Role(ctx context.Context, accountID int64) (*models.Role, error)

	// UpsertRole sets title and description, preserving any image reference
	// already on the row.
	UpsertRole(ctx context.Context, accountID int64, title, description string) error

	// ClearRole blanks title and description but keeps the image reference.
	ClearRole(ctx context.Context, accountID int64) error

	// SetRoleImage sets the image reference, creating the row if needed and
	// leaving title and description alone.
	SetRoleImage(ctx context.Context, accountID int64, imageRef string) error

	// RolesWithTitles lists all roles that currently carry a title.
	RolesWithTitles(ctx context.Context) ([]models.Role, error)

	// Purge irreversibly destroys all ledger state in one transaction.
	// The schema itself survives.
	Purge(ctx context.Context) error
}
