package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/adsledger/internal/apperr"
	"github.com/sol1corejz/adsledger/internal/auth"
	"github.com/sol1corejz/adsledger/internal/logger"
	"github.com/sol1corejz/adsledger/internal/models"
	"github.com/sol1corejz/adsledger/internal/storage"
	"go.uber.org/zap"
)

// HistoryLimit caps the number of ledger entries GetHistory returns.
const HistoryLimit = 20

type Service struct {
	store  storage.Store
	tokens *auth.TokenIssuer
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.Store, tokens *auth.TokenIssuer, opts ...Option) *Service {
	s := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Registration struct {
	UserID               uuid.UUID
	VerificationRequired bool
}

type Session struct {
	AccessToken string
	UserID      uuid.UUID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newUserWithBalance(ctx context.Context, tx storage.Tx, user models.User) error {
	if err := tx.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return apperr.Conflict("email already used")
		}
		return fmt.Errorf("create user: %w", err)
	}

	err := tx.CreateBalance(ctx, models.Balance{
		UserID:    user.ID,
		Available: decimal.Zero,
		Pending:   decimal.Zero,
		UpdatedAt: user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("create balance: %w", err)
	}
	return nil
}

// Register creates a password account with an empty balance. Address
// verification happens out of band, so the result always asks for it.
func (s *Service) Register(ctx context.Context, email, password, username string) (Registration, error) {
	email = normalizeEmail(email)

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return Registration{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}

	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		_, err := tx.GetUserByEmail(ctx, email)
		if err == nil {
			return apperr.Conflict("email already used")
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("get user by email: %w", err)
		}
		return newUserWithBalance(ctx, tx, user)
	})
	if err != nil {
		return Registration{}, err
	}

	logger.Log.Info("User registered", zap.String("userID", user.ID.String()))
	return Registration{UserID: user.ID, VerificationRequired: true}, nil
}

// Login exchanges an e-mail and password for a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	var user models.User
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		user, err = tx.GetUserByEmail(ctx, normalizeEmail(email))
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, apperr.Unauthorized("wrong email or password")
	}
	if err != nil {
		return Session{}, fmt.Errorf("get user by email: %w", err)
	}

	if !user.IsActive || !auth.CheckPassword(user.PasswordHash, password) {
		return Session{}, apperr.Unauthorized("wrong email or password")
	}

	return s.issue(user.ID)
}

func (s *Service) issue(userID uuid.UUID) (Session, error) {
	token, err := s.tokens.GenerateToken(userID)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: token, UserID: userID}, nil
}

func tokenPrefix(token string) string {
	r := []rune(token)
	if len(r) > 8 {
		r = r[:8]
	}
	return string(r)
}

// ExternalIdentityLogin resolves a provider token to a user, provisioning the
// user, balance and identity link on first sight. The token is taken as
// already verified by the caller.
func (s *Service) ExternalIdentityLogin(ctx context.Context, providerToken string) (Session, error) {
	if strings.TrimSpace(providerToken) == "" {
		return Session{}, apperr.Validation("invalid token")
	}

	userID, err := s.lookupIdentity(ctx, providerToken)
	if err == nil {
		return s.issue(userID)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return Session{}, err
	}

	hashed, err := auth.HashPassword(uuid.NewString())
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	prefix := tokenPrefix(providerToken)
	user := models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("google_%s@example.com", prefix),
		Username:     "google_" + prefix,
		PasswordHash: hashed,
		IsActive:     true,
		CreatedAt:    now,
	}

	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		existing, err := tx.GetAuthAccount(ctx, models.ProviderGoogle, providerToken)
		if err == nil {
			user.ID = existing.UserID
			return nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("get auth account: %w", err)
		}

		if _, err := tx.GetUserByEmail(ctx, user.Email); err == nil {
			user.Email = fmt.Sprintf("google_%s_%s@example.com", prefix, user.ID.String()[:8])
		}
		if err := newUserWithBalance(ctx, tx, user); err != nil {
			return err
		}

		err = tx.CreateAuthAccount(ctx, models.AuthAccount{
			ID:         uuid.New(),
			UserID:     user.ID,
			Provider:   models.ProviderGoogle,
			ProviderID: providerToken,
			CreatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("create auth account: %w", err)
		}

		logger.Log.Info("Provisioned user from external identity", zap.String("userID", user.ID.String()))
		return nil
	})
	if errors.Is(err, storage.ErrConflict) || apperr.Is(err, apperr.KindConflict) {
		// A concurrent first login for the same identity won the insert.
		userID, lookupErr := s.lookupIdentity(ctx, providerToken)
		if lookupErr == nil {
			return s.issue(userID)
		}
	}
	if err != nil {
		return Session{}, err
	}

	return s.issue(user.ID)
}

func (s *Service) lookupIdentity(ctx context.Context, providerToken string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		account, err := tx.GetAuthAccount(ctx, models.ProviderGoogle, providerToken)
		if err != nil {
			return err
		}
		userID = account.UserID
		return nil
	})
	return userID, err
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	var balance models.Balance
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		balance, err = tx.GetBalance(ctx, userID)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return models.Balance{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return models.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// GetHistory returns the user's most recent ledger entries, newest first.
func (s *Service) GetHistory(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	var history []models.Transaction
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		var err error
		history, err = tx.ListTransactions(ctx, userID, HistoryLimit)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return history, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	var users []models.UserSummary
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		users, err = tx.ListUserSummaries(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
