package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/denbedilov/the-archivist/internal/models"
)

// MemoryStore is an in-process Store. It backs the executor tests and serves
// as a zero-dependency fallback; state is lost on shutdown.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[int64]*models.Account
	roles    map[int64]*models.Role
	entries  []models.LedgerEntry
	nextID   int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]*models.Account),
		roles:    make(map[int64]*models.Role),
		nextID:   1,
	}
}

func (s *MemoryStore) account(accountID int64) *models.Account {
	a, ok := s.accounts[accountID]
	if !ok {
		a = &models.Account{ID: accountID}
		s.accounts[accountID] = a
	}
	return a
}

func (s *MemoryStore) append(accountID, delta int64, reason string, actorID int64) {
	s.entries = append(s.entries, models.LedgerEntry{
		ID:        s.nextID,
		AccountID: accountID,
		Delta:     delta,
		Reason:    reason,
		ActorID:   actorID,
		CreatedAt: time.Now(),
	})
	s.nextID++
}

func (s *MemoryStore) Balance(_ context.Context, accountID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[accountID]; ok {
		return a.Balance, nil
	}
	return 0, nil
}

func (s *MemoryStore) Credit(_ context.Context, accountID, amount int64, reason string, actorID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(accountID)
	a.Balance += amount
	a.UpdatedAt = time.Now()
	s.append(accountID, amount, reason, actorID)
	return a.Balance, nil
}

func (s *MemoryStore) Debit(_ context.Context, accountID, amount int64, reason string, actorID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(accountID)
	if a.Balance < amount {
		return 0, &InsufficientBalanceError{AccountID: accountID, Balance: a.Balance, Requested: amount}
	}
	a.Balance -= amount
	a.UpdatedAt = time.Now()
	s.append(accountID, -amount, reason, actorID)
	return a.Balance, nil
}

func (s *MemoryStore) Transfer(_ context.Context, fromID, toID, amount int64, reason string, actorID int64) error {
	if fromID == toID {
		return ErrSameAccount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.account(fromID)
	to := s.account(toID)
	if from.Balance < amount {
		return &InsufficientBalanceError{AccountID: fromID, Balance: from.Balance, Requested: amount}
	}
	from.Balance -= amount
	to.Balance += amount
	now := time.Now()
	from.UpdatedAt, to.UpdatedAt = now, now
	s.append(fromID, -amount, reason, actorID)
	s.append(toID, amount, reason, actorID)
	return nil
}

func (s *MemoryStore) ResetBalance(_ context.Context, accountID int64, actorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(accountID)
	if a.Balance != 0 {
		s.append(accountID, -a.Balance, "pocket emptied", actorID)
		a.Balance = 0
		a.UpdatedAt = time.Now()
	}
	return nil
}

func (s *MemoryStore) ResetAllBalances(_ context.Context, actorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Balance != 0 {
			s.append(a.ID, -a.Balance, "all pockets emptied", actorID)
			a.Balance = 0
			a.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (s *MemoryStore) HasKey(_ context.Context, accountID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[accountID]; ok {
		return a.HasKey, nil
	}
	return false, nil
}

func (s *MemoryStore) SetKey(_ context.Context, accountID int64, hasKey bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(accountID)
	a.HasKey = hasKey
	a.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) KeyHolders(_ context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var holders []models.Account
	for _, a := range s.accounts {
		if a.HasKey {
			holders = append(holders, *a)
		}
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].ID < holders[j].ID })
	return holders, nil
}

func (s *MemoryStore) TopBalances(_ context.Context, limit int) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var top []models.Account
	for _, a := range s.accounts {
		if a.Balance > 0 {
			top = append(top, *a)
		}
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Balance != top[j].Balance {
			return top[i].Balance > top[j].Balance
		}
		return top[i].ID < top[j].ID
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (s *MemoryStore) RecentEntries(_ context.Context, limit int) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.LedgerEntry
	for i := len(s.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, s.entries[i])
	}
	return entries, nil
}

func (s *MemoryStore) Role(_ context.Context, accountID int64) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[accountID]
	if !ok {
		return nil, ErrNoRole
	}
	copied := *r
	return &copied, nil
}

func (s *MemoryStore) UpsertRole(_ context.Context, accountID int64, title, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[accountID]
	if !ok {
		r = &models.Role{AccountID: accountID}
		s.roles[accountID] = r
	}
	r.Title = title
	r.Description = description
	return nil
}

func (s *MemoryStore) ClearRole(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.roles[accountID]; ok {
		r.Title = ""
		r.Description = ""
	}
	return nil
}

func (s *MemoryStore) SetRoleImage(_ context.Context, accountID int64, imageRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[accountID]
	if !ok {
		r = &models.Role{AccountID: accountID}
		s.roles[accountID] = r
	}
	r.ImageRef = imageRef
	return nil
}

func (s *MemoryStore) RolesWithTitles(_ context.Context) ([]models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var roles []models.Role
	for _, r := range s.roles {
		if r.HasTitle() {
			roles = append(roles, *r)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].AccountID < roles[j].AccountID })
	return roles, nil
}

func (s *MemoryStore) Purge(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[int64]*models.Account)
	s.roles = make(map[int64]*models.Role)
	s.entries = nil
	s.nextID = 1
	return nil
}

// LedgerEntries returns a copy of the full log, oldest first. Used by tests
// to assert the one-entry-per-mutation invariant.
func (s *MemoryStore) LedgerEntries() []models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LedgerEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
