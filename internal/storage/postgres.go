package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/adsledger/internal/logger"
	"github.com/sol1corejz/adsledger/internal/models"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// PGStore is the Postgres-backed Store. It works with both the pgx stdlib
// driver ("pgx") and lib/pq ("postgres").
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

// Open connects to databaseURI with the named database/sql driver and applies
// pending schema migrations.
func Open(ctx context.Context, driver, databaseURI string) (*PGStore, error) {
	if databaseURI == "" {
		return nil, ErrConnectionFailed
	}

	db, err := sql.Open(driver, databaseURI)
	if err != nil {
		logger.Log.Error("Error opening database connection", zap.Error(err))
		return nil, ErrConnectionFailed
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Log.Error("Error pinging database", zap.Error(err))
		return nil, ErrConnectionFailed
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return NewPGStore(db), nil
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Close() error {
	return s.db.Close()
}

func (s *PGStore) InTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Log.Error("Error rolling back transaction", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(&pgTx{tx: sqlTx}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

func insertErr(err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) CreateUser(ctx context.Context, user models.User) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, is_active, created_at) VALUES ($1, $2, $3, $4, $5, $6);
	`, user.ID, user.Email, user.Username, user.PasswordHash, user.IsActive, user.CreatedAt)
	return insertErr(err)
}

const userColumns = `id, email, username, password_hash, is_active, created_at`

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.IsActive, &user.CreatedAt)
	if err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

func (t *pgTx) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1;`, id))
}

func (t *pgTx) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(t.tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1;`, email))
}

func (t *pgTx) ListUserSummaries(ctx context.Context) ([]models.UserSummary, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT u.id, u.email, u.username, b.available, b.pending
		FROM users u JOIN balances b ON b.user_id = u.id
		ORDER BY u.created_at;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.UserSummary
	for rows.Next() {
		var s models.UserSummary
		if err := rows.Scan(&s.UserID, &s.Email, &s.Username, &s.Available, &s.Pending); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (t *pgTx) CreateAuthAccount(ctx context.Context, account models.AuthAccount) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO auth_accounts (id, user_id, provider, provider_id, created_at) VALUES ($1, $2, $3, $4, $5);
	`, account.ID, account.UserID, account.Provider, account.ProviderID, account.CreatedAt)
	return insertErr(err)
}

func (t *pgTx) GetAuthAccount(ctx context.Context, provider, providerID string) (models.AuthAccount, error) {
	var account models.AuthAccount
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, user_id, provider, provider_id, created_at FROM auth_accounts WHERE provider = $1 AND provider_id = $2;
	`, provider, providerID).Scan(&account.ID, &account.UserID, &account.Provider, &account.ProviderID, &account.CreatedAt)
	if err != nil {
		return models.AuthAccount{}, notFound(err)
	}
	return account, nil
}

func (t *pgTx) CreateBalance(ctx context.Context, balance models.Balance) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, available, pending, updated_at) VALUES ($1, $2, $3, $4);
	`, balance.UserID, balance.Available, balance.Pending, balance.UpdatedAt)
	return insertErr(err)
}

func (t *pgTx) getBalance(ctx context.Context, query string, userID uuid.UUID) (models.Balance, error) {
	var balance models.Balance
	err := t.tx.QueryRowContext(ctx, query, userID).
		Scan(&balance.UserID, &balance.Available, &balance.Pending, &balance.UpdatedAt)
	if err != nil {
		return models.Balance{}, notFound(err)
	}
	return balance, nil
}

func (t *pgTx) GetBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	return t.getBalance(ctx, `SELECT user_id, available, pending, updated_at FROM balances WHERE user_id = $1;`, userID)
}

func (t *pgTx) LockBalance(ctx context.Context, userID uuid.UUID) (models.Balance, error) {
	return t.getBalance(ctx, `SELECT user_id, available, pending, updated_at FROM balances WHERE user_id = $1 FOR UPDATE;`, userID)
}

func (t *pgTx) UpdateBalance(ctx context.Context, balance models.Balance) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE balances SET available = $1, pending = $2, updated_at = $3 WHERE user_id = $4;
	`, balance.Available, balance.Pending, balance.UpdatedAt, balance.UserID)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (t *pgTx) AppendTransaction(ctx context.Context, transaction models.Transaction) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, source, amount, occurred_at) VALUES ($1, $2, $3, $4, $5, $6);
	`, transaction.ID, transaction.UserID, transaction.Type, transaction.Source, transaction.Amount, transaction.OccurredAt)
	return insertErr(err)
}

func (t *pgTx) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, user_id, type, source, amount, occurred_at FROM transactions
		WHERE user_id = $1 ORDER BY occurred_at DESC LIMIT $2;
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var tr models.Transaction
		if err := rows.Scan(&tr.ID, &tr.UserID, &tr.Type, &tr.Source, &tr.Amount, &tr.OccurredAt); err != nil {
			return nil, err
		}
		transactions = append(transactions, tr)
	}

	return transactions, rows.Err()
}

func (t *pgTx) CreateAdUnit(ctx context.Context, unit models.AdUnit) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ad_units (id, name, reward_min, reward_max, cooldown_seconds, daily_cap, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`, unit.ID, unit.Name, unit.RewardMin, unit.RewardMax, unit.CooldownSeconds, unit.DailyCap, unit.IsActive)
	return insertErr(err)
}

const adUnitColumns = `id, name, reward_min, reward_max, cooldown_seconds, daily_cap, is_active`

type scanner interface {
	Scan(dest ...any) error
}

func scanAdUnit(row scanner) (models.AdUnit, error) {
	var unit models.AdUnit
	err := row.Scan(&unit.ID, &unit.Name, &unit.RewardMin, &unit.RewardMax, &unit.CooldownSeconds, &unit.DailyCap, &unit.IsActive)
	return unit, err
}

func (t *pgTx) GetAdUnit(ctx context.Context, id uuid.UUID) (models.AdUnit, error) {
	unit, err := scanAdUnit(t.tx.QueryRowContext(ctx, `SELECT `+adUnitColumns+` FROM ad_units WHERE id = $1;`, id))
	if err != nil {
		return models.AdUnit{}, notFound(err)
	}
	return unit, nil
}

func (t *pgTx) ListAdUnits(ctx context.Context, activeOnly bool) ([]models.AdUnit, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+adUnitColumns+` FROM ad_units WHERE is_active OR NOT $1 ORDER BY name;
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.AdUnit
	for rows.Next() {
		unit, err := scanAdUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	return units, rows.Err()
}

func (t *pgTx) CreateAdView(ctx context.Context, view models.AdView) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ad_views (id, user_id, ad_unit_id, session_token, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, view.ID, view.UserID, view.AdUnitID, view.SessionToken, view.Status, view.StartedAt)
	return insertErr(err)
}

const adViewColumns = `id, user_id, ad_unit_id, session_token, status, started_at, completed_at, rewarded_amount`

func scanAdView(row *sql.Row) (models.AdView, error) {
	var (
		view        models.AdView
		completedAt sql.NullTime
		rewarded    decimal.NullDecimal
	)
	err := row.Scan(&view.ID, &view.UserID, &view.AdUnitID, &view.SessionToken, &view.Status, &view.StartedAt, &completedAt, &rewarded)
	if err != nil {
		return models.AdView{}, notFound(err)
	}
	if completedAt.Valid {
		view.CompletedAt = &completedAt.Time
	}
	if rewarded.Valid {
		view.RewardedAmount = &rewarded.Decimal
	}
	return view, nil
}

func (t *pgTx) GetAdViewByToken(ctx context.Context, token string) (models.AdView, error) {
	return scanAdView(t.tx.QueryRowContext(ctx, `SELECT `+adViewColumns+` FROM ad_views WHERE session_token = $1;`, token))
}

func (t *pgTx) LatestAdView(ctx context.Context, userID uuid.UUID) (models.AdView, error) {
	return scanAdView(t.tx.QueryRowContext(ctx, `
		SELECT `+adViewColumns+` FROM ad_views WHERE user_id = $1 ORDER BY started_at DESC LIMIT 1;
	`, userID))
}

func (t *pgTx) CountCompletedAdViewsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ad_views WHERE user_id = $1 AND status = $2 AND started_at >= $3;
	`, userID, models.AdViewCompleted, since).Scan(&count)
	return count, err
}

func (t *pgTx) UpdateAdView(ctx context.Context, view models.AdView) error {
	var rewarded decimal.NullDecimal
	if view.RewardedAmount != nil {
		rewarded = decimal.NewNullDecimal(*view.RewardedAmount)
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE ad_views SET status = $1, completed_at = $2, rewarded_amount = $3 WHERE id = $4;
	`, view.Status, toNullTime(view.CompletedAt), rewarded, view.ID)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (t *pgTx) CreateWithdrawal(ctx context.Context, w models.Withdrawal) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO withdrawals (id, user_id, amount, fee, payout_method, destination, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`, w.ID, w.UserID, w.Amount, w.Fee, w.PayoutMethod, w.Destination, w.Status, w.CreatedAt)
	return insertErr(err)
}

const withdrawalColumns = `id, user_id, amount, fee, payout_method, destination, status, created_at, reviewed_at, review_notes`

func scanWithdrawal(row scanner) (models.Withdrawal, error) {
	var (
		w          models.Withdrawal
		reviewedAt sql.NullTime
		notes      sql.NullString
	)
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.Fee, &w.PayoutMethod, &w.Destination, &w.Status, &w.CreatedAt, &reviewedAt, &notes)
	if err != nil {
		return models.Withdrawal{}, err
	}
	if reviewedAt.Valid {
		w.ReviewedAt = &reviewedAt.Time
	}
	if notes.Valid {
		w.ReviewNotes = &notes.String
	}
	return w, nil
}

func (t *pgTx) LockWithdrawal(ctx context.Context, id uuid.UUID) (models.Withdrawal, error) {
	w, err := scanWithdrawal(t.tx.QueryRowContext(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE;`, id))
	if err != nil {
		return models.Withdrawal{}, notFound(err)
	}
	return w, nil
}

func (t *pgTx) UpdateWithdrawal(ctx context.Context, w models.Withdrawal) error {
	var notes sql.NullString
	if w.ReviewNotes != nil {
		notes = sql.NullString{String: *w.ReviewNotes, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE withdrawals SET status = $1, reviewed_at = $2, review_notes = $3 WHERE id = $4;
	`, w.Status, toNullTime(w.ReviewedAt), notes, w.ID)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (t *pgTx) listWithdrawals(ctx context.Context, query string, args ...any) ([]models.Withdrawal, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var withdrawals []models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		withdrawals = append(withdrawals, w)
	}

	return withdrawals, rows.Err()
}

func (t *pgTx) ListWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	return t.listWithdrawals(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at;`, userID)
}

func (t *pgTx) ListAllWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	return t.listWithdrawals(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals ORDER BY created_at DESC;`)
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
