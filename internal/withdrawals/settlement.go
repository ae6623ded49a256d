package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/adsledger/internal/apperr"
	"github.com/sol1corejz/adsledger/internal/logger"
	"github.com/sol1corejz/adsledger/internal/metrics"
	"github.com/sol1corejz/adsledger/internal/models"
	"github.com/sol1corejz/adsledger/internal/storage"
	"go.uber.org/zap"
)

// AmountPrecision is the number of decimal places a ledger amount may carry.
const AmountPrecision = 8

var (
	MinimumAmount = decimal.NewFromInt(10)
	// Fee is recorded on every withdrawal but never deducted from the payout.
	Fee = decimal.RequireFromString("0.20")
)

type Settlement struct {
	store storage.Store
	now   func() time.Time
}

type Option func(*Settlement)

func WithClock(now func() time.Time) Option {
	return func(s *Settlement) { s.now = now }
}

func NewSettlement(store storage.Store, opts ...Option) *Settlement {
	s := &Settlement{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Request struct {
	UserID       uuid.UUID
	Amount       decimal.Decimal
	PayoutMethod string
	Destination  string
}

// RequestWithdrawal moves req.Amount from the user's available funds into
// pending and queues a withdrawal for review.
func (s *Settlement) RequestWithdrawal(ctx context.Context, req Request) (models.Withdrawal, error) {
	if !req.Amount.Equal(req.Amount.Round(AmountPrecision)) {
		return models.Withdrawal{}, apperr.Validation("amount has more than 8 decimal places")
	}
	if req.Amount.LessThan(MinimumAmount) {
		return models.Withdrawal{}, apperr.Validation("minimum withdrawal is " + MinimumAmount.String())
	}
	if strings.TrimSpace(req.PayoutMethod) == "" || strings.TrimSpace(req.Destination) == "" {
		return models.Withdrawal{}, apperr.Validation("payout method and destination are required")
	}

	now := s.now().UTC()
	var withdrawal models.Withdrawal

	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		balance, err := tx.LockBalance(ctx, req.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		if err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}

		if balance.Available.LessThan(req.Amount) {
			return apperr.Validation("insufficient balance")
		}

		balance.Available = balance.Available.Sub(req.Amount)
		balance.Pending = balance.Pending.Add(req.Amount)
		balance.UpdatedAt = now
		if err := tx.UpdateBalance(ctx, balance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		withdrawal = models.Withdrawal{
			ID:           uuid.New(),
			UserID:       req.UserID,
			Amount:       req.Amount,
			Fee:          Fee,
			PayoutMethod: req.PayoutMethod,
			Destination:  req.Destination,
			Status:       models.WithdrawalPending,
			CreatedAt:    now,
		}
		if err := tx.CreateWithdrawal(ctx, withdrawal); err != nil {
			return fmt.Errorf("create withdrawal: %w", err)
		}

		err = tx.AppendTransaction(ctx, models.Transaction{
			ID:         uuid.New(),
			UserID:     req.UserID,
			Type:       models.TransactionSpend,
			Source:     models.SourceWithdrawal,
			Amount:     req.Amount.Neg(),
			OccurredAt: now,
		})
		if err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Withdrawal{}, err
	}

	metrics.WithdrawalsRequested.Inc()
	logger.Log.Info("Withdrawal requested",
		zap.String("userID", req.UserID.String()),
		zap.String("withdrawalID", withdrawal.ID.String()),
		zap.String("amount", req.Amount.String()))

	return withdrawal, nil
}

func (s *Settlement) ListWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	var list []models.Withdrawal
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		list, err = tx.ListWithdrawals(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	return list, nil
}

// ListAllWithdrawals returns every withdrawal, newest first.
func (s *Settlement) ListAllWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	var list []models.Withdrawal
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		list, err = tx.ListAllWithdrawals(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list all withdrawals: %w", err)
	}
	return list, nil
}

// ReviewWithdrawal records the review decision on a pending withdrawal.
// The pending funds stay where they are whatever the decision.
func (s *Settlement) ReviewWithdrawal(ctx context.Context, id uuid.UUID, decision string, notes *string) (models.Withdrawal, error) {
	if decision != models.WithdrawalApproved && decision != models.WithdrawalRejected {
		return models.Withdrawal{}, apperr.Validation("decision must be approved or rejected")
	}

	now := s.now().UTC()
	var withdrawal models.Withdrawal

	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		w, err := tx.LockWithdrawal(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("withdrawal not found")
		}
		if err != nil {
			return fmt.Errorf("lock withdrawal: %w", err)
		}
		if w.Status != models.WithdrawalPending {
			return apperr.InvalidState("withdrawal already " + w.Status)
		}

		reviewedAt := now
		w.Status = decision
		w.ReviewedAt = &reviewedAt
		w.ReviewNotes = notes
		if err := tx.UpdateWithdrawal(ctx, w); err != nil {
			return fmt.Errorf("update withdrawal: %w", err)
		}

		withdrawal = w
		return nil
	})
	if err != nil {
		return models.Withdrawal{}, err
	}

	metrics.WithdrawalsReviewed.WithLabelValues(decision).Inc()
	logger.Log.Info("Withdrawal reviewed",
		zap.String("withdrawalID", id.String()),
		zap.String("decision", decision))

	return withdrawal, nil
}
