package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AdViewStarted   = "started"
	AdViewCompleted = "completed"

	TransactionEarn  = "earn"
	TransactionSpend = "spend"

	SourceAdView     = "ad_view"
	SourceWithdrawal = "withdrawal"

	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"

	ProviderGoogle = "google"
)

type User struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

type AuthAccount struct {
	ID         uuid.UUID `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	Provider   string    `db:"provider"`
	ProviderID string    `db:"provider_id"`
	CreatedAt  time.Time `db:"created_at"`
}

type AdUnit struct {
	ID              uuid.UUID       `db:"id"`
	Name            string          `db:"name"`
	RewardMin       decimal.Decimal `db:"reward_min"`
	RewardMax       decimal.Decimal `db:"reward_max"`
	CooldownSeconds int             `db:"cooldown_seconds"`
	DailyCap        int             `db:"daily_cap"`
	IsActive        bool            `db:"is_active"`
}

func (u AdUnit) Cooldown() time.Duration {
	return time.Duration(u.CooldownSeconds) * time.Second
}

// AdView is one ad-watch session. CompletedAt and RewardedAmount stay nil
// until the session is completed.
type AdView struct {
	ID             uuid.UUID        `db:"id"`
	UserID         uuid.UUID        `db:"user_id"`
	AdUnitID       uuid.UUID        `db:"ad_unit_id"`
	SessionToken   string           `db:"session_token"`
	Status         string           `db:"status"`
	StartedAt      time.Time        `db:"started_at"`
	CompletedAt    *time.Time       `db:"completed_at"`
	RewardedAmount *decimal.Decimal `db:"rewarded_amount"`
}

type Balance struct {
	UserID    uuid.UUID       `db:"user_id"`
	Available decimal.Decimal `db:"available"`
	Pending   decimal.Decimal `db:"pending"`
	UpdatedAt time.Time       `db:"updated_at"`
}

type Transaction struct {
	ID         uuid.UUID       `db:"id"`
	UserID     uuid.UUID       `db:"user_id"`
	Type       string          `db:"type"`
	Source     string          `db:"source"`
	Amount     decimal.Decimal `db:"amount"`
	OccurredAt time.Time       `db:"occurred_at"`
}

type Withdrawal struct {
	ID           uuid.UUID       `db:"id"`
	UserID       uuid.UUID       `db:"user_id"`
	Amount       decimal.Decimal `db:"amount"`
	Fee          decimal.Decimal `db:"fee"`
	PayoutMethod string          `db:"payout_method"`
	Destination  string          `db:"destination"`
	Status       string          `db:"status"`
	CreatedAt    time.Time       `db:"created_at"`
	ReviewedAt   *time.Time      `db:"reviewed_at"`
	ReviewNotes  *string         `db:"review_notes"`
}

// UserSummary is the admin view of an account and its balance.
type UserSummary struct {
	UserID    uuid.UUID       `db:"user_id"`
	Email     string          `db:"email"`
	Username  string          `db:"username"`
	Available decimal.Decimal `db:"available"`
	Pending   decimal.Decimal `db:"pending"`
}
