package rewards

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
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

// RewardPrecision is the number of decimal places kept on a drawn reward.
const RewardPrecision = 8

// DefaultAdUnit is seeded when the store has no ad units at all.
var DefaultAdUnit = models.AdUnit{
	Name:            "Rewarded Video",
	RewardMin:       decimal.RequireFromString("0.002"),
	RewardMax:       decimal.RequireFromString("0.01"),
	CooldownSeconds: 60,
	DailyCap:        30,
	IsActive:        true,
}

// UniformFunc draws a value from [min, max].
type UniformFunc func(min, max decimal.Decimal) decimal.Decimal

func uniform(min, max decimal.Decimal) decimal.Decimal {
	if !max.GreaterThan(min) {
		return min
	}
	span := max.Sub(min)
	return min.Add(span.Mul(decimal.NewFromFloat(rand.Float64()))).Round(RewardPrecision)
}

type Engine struct {
	store   storage.Store
	uniform UniformFunc
	now     func() time.Time
	loc     *time.Location
}

type Option func(*Engine)

func WithUniform(f UniformFunc) Option {
	return func(e *Engine) { e.uniform = f }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets where the daily cap's midnight falls. UTC by default.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func NewEngine(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		uniform: uniform,
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type StartResult struct {
	SessionToken    string
	CooldownSeconds int
}

type CompleteResult struct {
	Reward     decimal.Decimal
	NewBalance decimal.Decimal
}

func newSessionToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (e *Engine) dayStart(now time.Time) time.Time {
	t := now.In(e.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.loc)
}

func lockUserBalance(ctx context.Context, tx storage.Tx, userID uuid.UUID) (models.Balance, error) {
	balance, err := tx.LockBalance(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Balance{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return models.Balance{}, fmt.Errorf("lock balance: %w", err)
	}
	return balance, nil
}

// StartSession opens an ad-watch session for userID on adUnitID unless the
// user is still cooling down from their last session or has used up today's
// cap of completed sessions.
func (e *Engine) StartSession(ctx context.Context, userID, adUnitID uuid.UUID) (StartResult, error) {
	now := e.now().UTC()
	var result StartResult

	err := e.store.InTx(ctx, func(tx storage.Tx) error {
		unit, err := tx.GetAdUnit(ctx, adUnitID)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && !unit.IsActive) {
			return apperr.NotFound("ad unit not found")
		}
		if err != nil {
			return fmt.Errorf("get ad unit: %w", err)
		}

		if _, err := lockUserBalance(ctx, tx, userID); err != nil {
			return err
		}

		last, err := tx.LatestAdView(ctx, userID)
		switch {
		case err == nil:
			if now.Sub(last.StartedAt) < unit.Cooldown() {
				metrics.RateLimited.WithLabelValues("cooldown").Inc()
				return apperr.RateLimited("cooldown active")
			}
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("latest ad view: %w", err)
		}

		completedToday, err := tx.CountCompletedAdViewsSince(ctx, userID, e.dayStart(now))
		if err != nil {
			return fmt.Errorf("count ad views: %w", err)
		}
		if completedToday >= unit.DailyCap {
			metrics.RateLimited.WithLabelValues("daily_cap").Inc()
			return apperr.RateLimited("daily cap reached")
		}

		view := models.AdView{
			ID:           uuid.New(),
			UserID:       userID,
			AdUnitID:     unit.ID,
			SessionToken: newSessionToken(),
			Status:       models.AdViewStarted,
			StartedAt:    now,
		}
		if err := tx.CreateAdView(ctx, view); err != nil {
			return fmt.Errorf("create ad view: %w", err)
		}

		result = StartResult{SessionToken: view.SessionToken, CooldownSeconds: unit.CooldownSeconds}
		return nil
	})
	if err != nil {
		logger.Log.Debug("Ad session not started", zap.String("userID", userID.String()), zap.Error(err))
		return StartResult{}, err
	}

	metrics.SessionsStarted.Inc()
	return result, nil
}

// CompleteSession credits the reward for a started session. The ad view,
// the balance and the ledger entry change together or not at all.
func (e *Engine) CompleteSession(ctx context.Context, userID uuid.UUID, sessionToken string) (CompleteResult, error) {
	now := e.now().UTC()
	var result CompleteResult

	err := e.store.InTx(ctx, func(tx storage.Tx) error {
		balance, err := lockUserBalance(ctx, tx, userID)
		if err != nil {
			return err
		}

		view, err := tx.GetAdViewByToken(ctx, sessionToken)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && view.UserID != userID) {
			return apperr.NotFound("session not found")
		}
		if err != nil {
			return fmt.Errorf("get ad view: %w", err)
		}
		if view.Status != models.AdViewStarted {
			return apperr.InvalidState("already completed")
		}

		reward := decimal.Zero
		unit, err := tx.GetAdUnit(ctx, view.AdUnitID)
		switch {
		case err == nil:
			reward = e.uniform(unit.RewardMin, unit.RewardMax)
		case errors.Is(err, storage.ErrNotFound):
			logger.Log.Warn("Ad unit missing for session, rewarding zero", zap.String("adUnitID", view.AdUnitID.String()))
		default:
			return fmt.Errorf("get ad unit: %w", err)
		}

		completedAt := now
		view.Status = models.AdViewCompleted
		view.CompletedAt = &completedAt
		view.RewardedAmount = &reward
		if err := tx.UpdateAdView(ctx, view); err != nil {
			return fmt.Errorf("update ad view: %w", err)
		}

		balance.Available = balance.Available.Add(reward)
		balance.UpdatedAt = now
		if err := tx.UpdateBalance(ctx, balance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		err = tx.AppendTransaction(ctx, models.Transaction{
			ID:         uuid.New(),
			UserID:     userID,
			Type:       models.TransactionEarn,
			Source:     models.SourceAdView,
			Amount:     reward,
			OccurredAt: now,
		})
		if err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}

		result = CompleteResult{Reward: reward, NewBalance: balance.Available}
		return nil
	})
	if err != nil {
		return CompleteResult{}, err
	}

	metrics.SessionsCompleted.Inc()
	metrics.RewardAmount.Add(result.Reward.InexactFloat64())
	logger.Log.Info("Ad session completed",
		zap.String("userID", userID.String()),
		zap.String("reward", result.Reward.String()),
		zap.String("available", result.NewBalance.String()))

	return result, nil
}

// ListAdUnits returns the active ad units.
func (e *Engine) ListAdUnits(ctx context.Context) ([]models.AdUnit, error) {
	var units []models.AdUnit
	err := e.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		units, err = tx.ListAdUnits(ctx, true)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list ad units: %w", err)
	}
	return units, nil
}

// EnsureDefaultAdUnit seeds DefaultAdUnit into an empty ad inventory.
func (e *Engine) EnsureDefaultAdUnit(ctx context.Context) error {
	return e.store.InTx(ctx, func(tx storage.Tx) error {
		units, err := tx.ListAdUnits(ctx, false)
		if err != nil {
			return fmt.Errorf("list ad units: %w", err)
		}
		if len(units) > 0 {
			return nil
		}

		unit := DefaultAdUnit
		unit.ID = uuid.New()
		if err := tx.CreateAdUnit(ctx, unit); err != nil {
			return fmt.Errorf("create default ad unit: %w", err)
		}

		logger.Log.Info("Seeded default ad unit", zap.String("adUnitID", unit.ID.String()))
		return nil
	})
}
