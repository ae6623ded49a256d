package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sol1corejz/adsledger/internal/models"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("record already exists")
	ErrConnectionFailed = errors.New("db connection failed")
)

// Store runs units of work against the ledger. fn's changes are committed
// when it returns nil and rolled back otherwise.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx is the set of record operations available inside a unit of work.
// Lock* methods hold the row until the surrounding transaction ends.
type Tx interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	ListUserSummaries(ctx context.Context) ([]models.UserSummary, error)

	CreateAuthAccount(ctx context.Context, account models.AuthAccount) error
	GetAuthAccount(ctx context.Context, provider, providerID string) (models.AuthAccount, error)

	CreateBalance(ctx context.Context, balance models.Balance) error
	GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error)
	LockBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error)
	UpdateBalance(ctx context.Context, balance models.Balance) error

	AppendTransaction(ctx context.Context, transaction models.Transaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)

	CreateAdUnit(ctx context.Context, unit models.AdUnit) error
	GetAdUnit(ctx context.Context, id uuid.UUID) (models.AdUnit, error)
	ListAdUnits(ctx context.Context, activeOnly bool) ([]models.AdUnit, error)

	CreateAdView(ctx context.Context, view models.AdView) error
	GetAdViewByToken(ctx context.Context, token string) (models.AdView, error)
	LatestAdView(ctx context.Context, userID uuid.UUID) (models.AdView, error)
	CountCompletedAdViewsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	UpdateAdView(ctx context.Context, view models.AdView) error

	CreateWithdrawal(ctx context.Context, withdrawal models.Withdrawal) error
	LockWithdrawal(ctx context.Context, id uuid.UUID) (models.Withdrawal, error)
	UpdateWithdrawal(ctx context.Context, withdrawal models.Withdrawal) error
	ListWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error)
	ListAllWithdrawals(ctx context.Context) ([]models.Withdrawal, error)
}
