package storage

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/adsledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func TestPGStoreInTxCommits(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	user := models.User{ID: uuid.New(), Email: "a@example.com", Username: "alice", PasswordHash: "hash", IsActive: true, CreatedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (id, email, username, password_hash, is_active, created_at)")).
		WithArgs(user.ID, user.Email, user.Username, user.PasswordHash, user.IsActive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO balances (user_id, available, pending, updated_at)")).
		WithArgs(user.ID, decimal.Zero, decimal.Zero, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.InTx(ctx, func(tx Tx) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.CreateBalance(ctx, models.Balance{UserID: user.ID, Available: decimal.Zero, Pending: decimal.Zero, UpdatedAt: user.CreatedAt})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreInTxRollsBackOnUniqueViolation(t *testing.T) {
	cases := map[string]error{
		"pgx": &pgconn.PgError{Code: "23505", Message: "duplicate key"},
		"pq":  &pq.Error{Code: "23505", Message: "duplicate key"},
	}

	for name, driverErr := range cases {
		t.Run(name, func(t *testing.T) {
			store, mock := newMockStore(t)
			ctx := context.Background()

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(driverErr)
			mock.ExpectRollback()

			err := store.InTx(ctx, func(tx Tx) error {
				return tx.CreateUser(ctx, models.User{ID: uuid.New(), Email: "a@example.com"})
			})
			assert.ErrorIs(t, err, ErrConflict)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPGStoreInTxRollsBackOnPanic(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.InTx(context.Background(), func(tx Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreCommitFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := store.InTx(context.Background(), func(tx Tx) error { return nil })
	assert.ErrorContains(t, err, "commit tx")
}

func TestPGStoreLockBalanceLocksRow(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	userID := uuid.New()
	updated := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, available, pending, updated_at FROM balances WHERE user_id = $1 FOR UPDATE;")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "available", "pending", "updated_at"}).
			AddRow(userID.String(), "12.5", "2", updated))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE balances SET available = $1, pending = $2, updated_at = $3 WHERE user_id = $4;")).
		WithArgs(decimal.RequireFromString("2.5"), decimal.RequireFromString("12"), sqlmock.AnyArg(), userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.InTx(ctx, func(tx Tx) error {
		b, err := tx.LockBalance(ctx, userID)
		if err != nil {
			return err
		}
		assert.Equal(t, userID, b.UserID)
		assert.True(t, b.Available.Equal(decimal.RequireFromString("12.5")))

		amount := decimal.NewFromInt(10)
		b.Available = b.Available.Sub(amount)
		b.Pending = b.Pending.Add(amount)
		return tx.UpdateBalance(ctx, b)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreNotFoundMapping(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM balances WHERE user_id = $1;")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "available", "pending", "updated_at"}))
	mock.ExpectRollback()

	err := store.InTx(ctx, func(tx Tx) error {
		_, err := tx.GetBalance(ctx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreUpdateWithoutRow(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE withdrawals SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.InTx(ctx, func(tx Tx) error {
		return tx.UpdateWithdrawal(ctx, models.Withdrawal{ID: uuid.New(), Status: models.WithdrawalApproved})
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreLockWithdrawalScansNullables(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	id, userID := uuid.New(), uuid.New()
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	columns := []string{"id", "user_id", "amount", "fee", "payout_method", "destination", "status", "created_at", "reviewed_at", "review_notes"}
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM withdrawals WHERE id = $1 FOR UPDATE;")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(id.String(), userID.String(), "10", "0.20", "paypal", "a@example.com", "pending", created, nil, nil))
	mock.ExpectCommit()

	err := store.InTx(ctx, func(tx Tx) error {
		w, err := tx.LockWithdrawal(ctx, id)
		if err != nil {
			return err
		}
		assert.Equal(t, userID, w.UserID)
		assert.Equal(t, models.WithdrawalPending, w.Status)
		assert.Nil(t, w.ReviewedAt)
		assert.Nil(t, w.ReviewNotes)
		assert.True(t, w.Fee.Equal(decimal.RequireFromString("0.2")))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreCountCompletedAdViews(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	userID := uuid.New()
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ad_views WHERE user_id = $1 AND status = $2 AND started_at >= $3;")).
		WithArgs(userID, models.AdViewCompleted, since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectCommit()

	err := store.InTx(ctx, func(tx Tx) error {
		count, err := tx.CountCompletedAdViewsSince(ctx, userID, since)
		assert.Equal(t, 7, count)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenRejectsEmptyURI(t *testing.T) {
	_, err := Open(context.Background(), "pgx", "")
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

// TestPGStoreIntegration runs against a live database when TEST_POSTGRES_DSN
// is set.
func TestPGStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := Open(ctx, "pgx", dsn)
	require.NoError(t, err)
	defer store.Close()

	userID := seedUser(t, store, uuid.NewString()+"@example.com")
	err = store.InTx(ctx, func(tx Tx) error {
		b, err := tx.LockBalance(ctx, userID)
		if err != nil {
			return err
		}
		b.Available = decimal.RequireFromString("0.00512345")
		return tx.UpdateBalance(ctx, b)
	})
	require.NoError(t, err)

	err = store.InTx(ctx, func(tx Tx) error {
		b, err := tx.GetBalance(ctx, userID)
		if err != nil {
			return err
		}
		assert.True(t, b.Available.Equal(decimal.RequireFromString("0.00512345")))
		return nil
	})
	require.NoError(t, err)
}
