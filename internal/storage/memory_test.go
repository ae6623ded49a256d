package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/adsledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, store Store, email string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	err := store.InTx(ctx, func(tx Tx) error {
		if err := tx.CreateUser(ctx, models.User{ID: id, Email: email, Username: "user", IsActive: true, CreatedAt: time.Now()}); err != nil {
			return err
		}
		return tx.CreateBalance(ctx, models.Balance{UserID: id, Available: decimal.Zero, Pending: decimal.Zero})
	})
	require.NoError(t, err)
	return id
}

func TestMemoryStoreRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	userID := seedUser(t, store, "a@example.com")

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx Tx) error {
		b, err := tx.LockBalance(ctx, userID)
		require.NoError(t, err)
		b.Available = decimal.NewFromInt(100)
		require.NoError(t, tx.UpdateBalance(ctx, b))
		require.NoError(t, tx.AppendTransaction(ctx, models.Transaction{ID: uuid.New(), UserID: userID, Amount: b.Available}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_ = store.InTx(ctx, func(tx Tx) error {
		b, err := tx.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.True(t, b.Available.IsZero())

		history, err := tx.ListTransactions(ctx, userID, 10)
		require.NoError(t, err)
		assert.Empty(t, history)
		return nil
	})
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewMemoryStore().InTx(ctx, func(tx Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryStoreUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	userID := seedUser(t, store, "a@example.com")

	err := store.InTx(ctx, func(tx Tx) error {
		return tx.CreateUser(ctx, models.User{ID: uuid.New(), Email: "a@example.com"})
	})
	assert.ErrorIs(t, err, ErrConflict)

	account := models.AuthAccount{ID: uuid.New(), UserID: userID, Provider: models.ProviderGoogle, ProviderID: "tok"}
	require.NoError(t, store.InTx(ctx, func(tx Tx) error { return tx.CreateAuthAccount(ctx, account) }))

	account.ID = uuid.New()
	err = store.InTx(ctx, func(tx Tx) error { return tx.CreateAuthAccount(ctx, account) })
	assert.ErrorIs(t, err, ErrConflict)

	view := models.AdView{ID: uuid.New(), UserID: userID, SessionToken: "abc", Status: models.AdViewStarted}
	require.NoError(t, store.InTx(ctx, func(tx Tx) error { return tx.CreateAdView(ctx, view) }))

	view.ID = uuid.New()
	err = store.InTx(ctx, func(tx Tx) error { return tx.CreateAdView(ctx, view) })
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryStoreQueries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	userID := seedUser(t, store, "a@example.com")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := store.InTx(ctx, func(tx Tx) error {
		for i := 0; i < 5; i++ {
			err := tx.AppendTransaction(ctx, models.Transaction{
				ID:         uuid.New(),
				UserID:     userID,
				Amount:     decimal.NewFromInt(int64(i)),
				OccurredAt: base.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				return err
			}
		}
		for i, status := range []string{models.AdViewCompleted, models.AdViewStarted, models.AdViewCompleted} {
			err := tx.CreateAdView(ctx, models.AdView{
				ID:           uuid.New(),
				UserID:       userID,
				SessionToken: uuid.NewString(),
				Status:       status,
				StartedAt:    base.Add(time.Duration(i) * time.Hour),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	_ = store.InTx(ctx, func(tx Tx) error {
		history, err := tx.ListTransactions(ctx, userID, 3)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.True(t, history[0].Amount.Equal(decimal.NewFromInt(4)))
		assert.True(t, history[2].Amount.Equal(decimal.NewFromInt(2)))

		latest, err := tx.LatestAdView(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, base.Add(2*time.Hour), latest.StartedAt)

		count, err := tx.CountCompletedAdViewsSince(ctx, userID, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		_, err = tx.LatestAdView(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
}

func TestMemoryStoreListAdUnits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.InTx(ctx, func(tx Tx) error {
		for _, u := range []models.AdUnit{
			{ID: uuid.New(), Name: "Zeta", IsActive: true},
			{ID: uuid.New(), Name: "Alpha", IsActive: true},
			{ID: uuid.New(), Name: "Hidden", IsActive: false},
		} {
			if err := tx.CreateAdUnit(ctx, u); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	_ = store.InTx(ctx, func(tx Tx) error {
		active, err := tx.ListAdUnits(ctx, true)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, "Alpha", active[0].Name)

		all, err := tx.ListAdUnits(ctx, false)
		require.NoError(t, err)
		assert.Len(t, all, 3)
		return nil
	})
}
