package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/denbedilov/the-archivist/internal/models"
)

// PostgresStore implements Store on a database/sql connection. Every
// multi-step mutation runs in a single transaction with the affected rows
// locked, so concurrent commands against the same account serialize at the
// database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Balance(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) Credit(ctx context.Context, accountID, amount int64, reason string, actorID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	balance, err := lockAccount(ctx, tx, accountID)
	if err != nil {
		return 0, err
	}
	if err := updateBalance(ctx, tx, accountID, balance+amount); err != nil {
		return 0, err
	}
	if err := appendEntry(ctx, tx, accountID, amount, reason, actorID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance + amount, nil
}

func (s *PostgresStore) Debit(ctx context.Context, accountID, amount int64, reason string, actorID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	balance, err := lockAccount(ctx, tx, accountID)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, &InsufficientBalanceError{AccountID: accountID, Balance: balance, Requested: amount}
	}
	if err := updateBalance(ctx, tx, accountID, balance-amount); err != nil {
		return 0, err
	}
	if err := appendEntry(ctx, tx, accountID, -amount, reason, actorID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance - amount, nil
}

func (s *PostgresStore) Transfer(ctx context.Context, fromID, toID, amount int64, reason string, actorID int64) error {
	if fromID == toID {
		return ErrSameAccount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock in id order to avoid deadlocks between crossing transfers.
	firstLock, secondLock := fromID, toID
	if fromID > toID {
		firstLock, secondLock = toID, fromID
	}
	firstBal, err := lockAccount(ctx, tx, firstLock)
	if err != nil {
		return err
	}
	secondBal, err := lockAccount(ctx, tx, secondLock)
	if err != nil {
		return err
	}

	fromBal, toBal := firstBal, secondBal
	if firstLock != fromID {
		fromBal, toBal = secondBal, firstBal
	}

	if fromBal < amount {
		return &InsufficientBalanceError{AccountID: fromID, Balance: fromBal, Requested: amount}
	}

	if err := updateBalance(ctx, tx, fromID, fromBal-amount); err != nil {
		return err
	}
	if err := updateBalance(ctx, tx, toID, toBal+amount); err != nil {
		return err
	}
	if err := appendEntry(ctx, tx, fromID, -amount, reason, actorID); err != nil {
		return err
	}
	if err := appendEntry(ctx, tx, toID, amount, reason, actorID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) ResetBalance(ctx context.Context, accountID int64, actorID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	balance, err := lockAccount(ctx, tx, accountID)
	if err != nil {
		return err
	}
	if balance != 0 {
		if err := updateBalance(ctx, tx, accountID, 0); err != nil {
			return err
		}
		if err := appendEntry(ctx, tx, accountID, -balance, "pocket emptied", actorID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ResetAllBalances(ctx context.Context, actorID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, balance FROM accounts WHERE balance <> 0 FOR UPDATE`)
	if err != nil {
		return fmt.Errorf("query nonzero balances: %w", err)
	}
	type held struct {
		id      int64
		balance int64
	}
	var holders []held
	for rows.Next() {
		var h held
		if err := rows.Scan(&h.id, &h.balance); err != nil {
			rows.Close()
			return err
		}
		holders = append(holders, h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, h := range holders {
		if err := appendEntry(ctx, tx, h.id, -h.balance, "all pockets emptied", actorID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = 0, updated_at = $1 WHERE balance <> 0`, time.Now()); err != nil {
		return fmt.Errorf("zero balances: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStore) HasKey(ctx context.Context, accountID int64) (bool, error) {
	var hasKey bool
	err := s.db.QueryRowContext(ctx,
		`SELECT has_key FROM accounts WHERE id = $1`, accountID).Scan(&hasKey)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query key flag: %w", err)
	}
	return hasKey, nil
}

func (s *PostgresStore) SetKey(ctx context.Context, accountID int64, hasKey bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, balance, has_key, updated_at)
		VALUES ($1, 0, $2, $3)
		ON CONFLICT (id) DO UPDATE SET has_key = EXCLUDED.has_key, updated_at = EXCLUDED.updated_at`,
		accountID, hasKey, time.Now())
	if err != nil {
		return fmt.Errorf("set key flag: %w", err)
	}
	return nil
}

func (s *PostgresStore) KeyHolders(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, balance, has_key FROM accounts WHERE has_key ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query key holders: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (s *PostgresStore) TopBalances(ctx context.Context, limit int) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, balance, has_key FROM accounts
		WHERE balance > 0
		ORDER BY balance DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top balances: %w", err)
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (s *PostgresStore) RecentEntries(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, delta, reason, actor_id, created_at
		FROM ledger_log
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger log: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Delta, &e.Reason, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Role(ctx context.Context, accountID int64) (*models.Role, error) {
	var r models.Role
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, title, description, image_ref
		FROM roles WHERE account_id = $1`, accountID).
		Scan(&r.AccountID, &r.Title, &r.Description, &r.ImageRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRole
	}
	if err != nil {
		return nil, fmt.Errorf("query role: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) UpsertRole(ctx context.Context, accountID int64, title, description string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO roles (account_id, title, description, image_ref)
		VALUES ($1, $2, $3, '')
		ON CONFLICT (account_id) DO UPDATE SET title = EXCLUDED.title, description = EXCLUDED.description`,
		accountID, title, description)
	if err != nil {
		return fmt.Errorf("upsert role: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearRole(ctx context.Context, accountID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE roles SET title = '', description = '' WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("clear role: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetRoleImage(ctx context.Context, accountID int64, imageRef string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO roles (account_id, title, description, image_ref)
		VALUES ($1, '', '', $2)
		ON CONFLICT (account_id) DO UPDATE SET image_ref = EXCLUDED.image_ref`,
		accountID, imageRef)
	if err != nil {
		return fmt.Errorf("set role image: %w", err)
	}
	return nil
}

func (s *PostgresStore) RolesWithTitles(ctx context.Context) ([]models.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, title, description, image_ref
		FROM roles
		WHERE title <> ''
		ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.AccountID, &r.Title, &r.Description, &r.ImageRef); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *PostgresStore) Purge(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"ledger_log", "roles", "accounts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("purge %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// lockAccount reads the balance with a row lock, inserting the account row
// first when it does not exist yet.
func lockAccount(ctx context.Context, tx *sql.Tx, accountID int64) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, balance, has_key, updated_at)
		VALUES ($1, 0, FALSE, $2)
		ON CONFLICT (id) DO NOTHING`,
		accountID, time.Now()); err != nil {
		return 0, fmt.Errorf("ensure account: %w", err)
	}

	var balance int64
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("lock account: %w", err)
	}
	return balance, nil
}

func updateBalance(ctx context.Context, tx *sql.Tx, accountID, balance int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3`,
		balance, time.Now(), accountID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

func appendEntry(ctx context.Context, tx *sql.Tx, accountID, delta int64, reason string, actorID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_log (account_id, delta, reason, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		accountID, delta, reason, actorID, time.Now())
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func scanAccounts(rows *sql.Rows) ([]models.Account, error) {
	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Balance, &a.HasKey); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
