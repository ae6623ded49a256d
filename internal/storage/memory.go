package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sol1corejz/adsledger/internal/models"
)

// MemoryStore is an in-memory Store for tests and local development.
// Transactions run one at a time against a copy of the state, which replaces
// the live state only on commit.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}

	s.state = work
	return nil
}

func (s *MemoryStore) Close() error { return nil }

type memState struct {
	users        map[uuid.UUID]models.User
	userOrder    []uuid.UUID
	authAccounts []models.AuthAccount
	balances     map[uuid.UUID]models.Balance
	transactions []models.Transaction
	adUnits      []models.AdUnit
	adViews      []models.AdView
	withdrawals  []models.Withdrawal
}

func newMemState() *memState {
	return &memState{
		users:    make(map[uuid.UUID]models.User),
		balances: make(map[uuid.UUID]models.Balance),
	}
}

// clone copies every collection. Records are values; pointer fields inside
// them are never mutated in place, only replaced.
func (st *memState) clone() *memState {
	c := newMemState()
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.balances {
		c.balances[k] = v
	}
	c.userOrder = append([]uuid.UUID(nil), st.userOrder...)
	c.authAccounts = append([]models.AuthAccount(nil), st.authAccounts...)
	c.transactions = append([]models.Transaction(nil), st.transactions...)
	c.adUnits = append([]models.AdUnit(nil), st.adUnits...)
	c.adViews = append([]models.AdView(nil), st.adViews...)
	c.withdrawals = append([]models.Withdrawal(nil), st.withdrawals...)
	return c
}

type memTx struct {
	st *memState
}

func (t *memTx) CreateUser(_ context.Context, user models.User) error {
	if _, ok := t.st.users[user.ID]; ok {
		return fmt.Errorf("%w: user %s", ErrConflict, user.ID)
	}
	for _, u := range t.st.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: email %s", ErrConflict, user.Email)
		}
	}
	t.st.users[user.ID] = user
	t.st.userOrder = append(t.st.userOrder, user.ID)
	return nil
}

func (t *memTx) GetUser(_ context.Context, id uuid.UUID) (models.User, error) {
	user, ok := t.st.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (t *memTx) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range t.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (t *memTx) ListUserSummaries(_ context.Context) ([]models.UserSummary, error) {
	summaries := make([]models.UserSummary, 0, len(t.st.userOrder))
	for _, id := range t.st.userOrder {
		u := t.st.users[id]
		b, ok := t.st.balances[id]
		if !ok {
			continue
		}
		summaries = append(summaries, models.UserSummary{
			UserID:    u.ID,
			Email:     u.Email,
			Username:  u.Username,
			Available: b.Available,
			Pending:   b.Pending,
		})
	}
	return summaries, nil
}

func (t *memTx) CreateAuthAccount(_ context.Context, account models.AuthAccount) error {
	for _, a := range t.st.authAccounts {
		if a.Provider == account.Provider && a.ProviderID == account.ProviderID {
			return fmt.Errorf("%w: auth account %s/%s", ErrConflict, account.Provider, account.ProviderID)
		}
	}
	if _, ok := t.st.users[account.UserID]; !ok {
		return fmt.Errorf("auth account references unknown user %s", account.UserID)
	}
	t.st.authAccounts = append(t.st.authAccounts, account)
	return nil
}

func (t *memTx) GetAuthAccount(_ context.Context, provider, providerID string) (models.AuthAccount, error) {
	for _, a := range t.st.authAccounts {
		if a.Provider == provider && a.ProviderID == providerID {
			return a, nil
		}
	}
	return models.AuthAccount{}, ErrNotFound
}

func (t *memTx) CreateBalance(_ context.Context, balance models.Balance) error {
	if _, ok := t.st.users[balance.UserID]; !ok {
		return fmt.Errorf("balance references unknown user %s", balance.UserID)
	}
	if _, ok := t.st.balances[balance.UserID]; ok {
		return fmt.Errorf("%w: balance %s", ErrConflict, balance.UserID)
	}
	t.st.balances[balance.UserID] = balance
	return nil
}

func (t *memTx) GetBalance(_ context.Context, userID uuid.UUID) (models.Balance, error) {
	b, ok := t.st.balances[userID]
	if !ok {
		return models.Balance{}, ErrNotFound
	}
	return b, nil
}

// LockBalance is GetBalance: memory transactions are already serialized.
func (t *memTx) LockBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	return t.GetBalance(ctx, userID)
}

func (t *memTx) UpdateBalance(_ context.Context, balance models.Balance) error {
	if _, ok := t.st.balances[balance.UserID]; !ok {
		return ErrNotFound
	}
	t.st.balances[balance.UserID] = balance
	return nil
}

func (t *memTx) AppendTransaction(_ context.Context, transaction models.Transaction) error {
	t.st.transactions = append(t.st.transactions, transaction)
	return nil
}

func (t *memTx) ListTransactions(_ context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tr := range t.st.transactions {
		if tr.UserID == userID {
			out = append(out, tr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) CreateAdUnit(_ context.Context, unit models.AdUnit) error {
	for _, u := range t.st.adUnits {
		if u.ID == unit.ID {
			return fmt.Errorf("%w: ad unit %s", ErrConflict, unit.ID)
		}
	}
	t.st.adUnits = append(t.st.adUnits, unit)
	return nil
}

func (t *memTx) GetAdUnit(_ context.Context, id uuid.UUID) (models.AdUnit, error) {
	for _, u := range t.st.adUnits {
		if u.ID == id {
			return u, nil
		}
	}
	return models.AdUnit{}, ErrNotFound
}

func (t *memTx) ListAdUnits(_ context.Context, activeOnly bool) ([]models.AdUnit, error) {
	var out []models.AdUnit
	for _, u := range t.st.adUnits {
		if activeOnly && !u.IsActive {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *memTx) CreateAdView(_ context.Context, view models.AdView) error {
	for _, v := range t.st.adViews {
		if v.SessionToken == view.SessionToken {
			return fmt.Errorf("%w: session token", ErrConflict)
		}
	}
	t.st.adViews = append(t.st.adViews, view)
	return nil
}

func (t *memTx) GetAdViewByToken(_ context.Context, token string) (models.AdView, error) {
	for _, v := range t.st.adViews {
		if v.SessionToken == token {
			return v, nil
		}
	}
	return models.AdView{}, ErrNotFound
}

func (t *memTx) LatestAdView(_ context.Context, userID uuid.UUID) (models.AdView, error) {
	var (
		latest models.AdView
		found  bool
	)
	for _, v := range t.st.adViews {
		if v.UserID != userID {
			continue
		}
		if !found || !v.StartedAt.Before(latest.StartedAt) {
			latest, found = v, true
		}
	}
	if !found {
		return models.AdView{}, ErrNotFound
	}
	return latest, nil
}

func (t *memTx) CountCompletedAdViewsSince(_ context.Context, userID uuid.UUID, since time.Time) (int, error) {
	count := 0
	for _, v := range t.st.adViews {
		if v.UserID == userID && v.Status == models.AdViewCompleted && !v.StartedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (t *memTx) UpdateAdView(_ context.Context, view models.AdView) error {
	for i, v := range t.st.adViews {
		if v.ID == view.ID {
			t.st.adViews[i] = view
			return nil
		}
	}
	return ErrNotFound
}

func (t *memTx) CreateWithdrawal(_ context.Context, w models.Withdrawal) error {
	t.st.withdrawals = append(t.st.withdrawals, w)
	return nil
}

func (t *memTx) LockWithdrawal(_ context.Context, id uuid.UUID) (models.Withdrawal, error) {
	for _, w := range t.st.withdrawals {
		if w.ID == id {
			return w, nil
		}
	}
	return models.Withdrawal{}, ErrNotFound
}

func (t *memTx) UpdateWithdrawal(_ context.Context, w models.Withdrawal) error {
	for i, existing := range t.st.withdrawals {
		if existing.ID == w.ID {
			t.st.withdrawals[i] = w
			return nil
		}
	}
	return ErrNotFound
}

func (t *memTx) ListWithdrawals(_ context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	for _, w := range t.st.withdrawals {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (t *memTx) ListAllWithdrawals(_ context.Context) ([]models.Withdrawal, error) {
	out := append([]models.Withdrawal(nil), t.st.withdrawals...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
