package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sol1corejz/adsledger/cmd/config"
	"github.com/sol1corejz/adsledger/internal/accounts"
	"github.com/sol1corejz/adsledger/internal/auth"
	"github.com/sol1corejz/adsledger/internal/handlers"
	"github.com/sol1corejz/adsledger/internal/logger"
	"github.com/sol1corejz/adsledger/internal/rewards"
	"github.com/sol1corejz/adsledger/internal/storage"
	"github.com/sol1corejz/adsledger/internal/withdrawals"
	"go.uber.org/zap"
)

func main() {
	cfg, cfgErr := config.ParseFlags()

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		logger.Log.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Log.Sync()

	if cfgErr != nil {
		logger.Log.Fatal("Invalid configuration", zap.Error(cfgErr))
	}

	if err := run(cfg); err != nil {
		logger.Log.Fatal("Failed to run server", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.DatabaseURI == "" {
		logger.Log.Warn("No database uri given, using in-memory storage")
		return storage.NewMemoryStore(), nil
	}
	pg, err := storage.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURI)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

// signingSecret returns the configured JWT secret, or a random one when it
// is missing or the known placeholder. Random secrets die with the process.
func signingSecret(configured string) (string, error) {
	if configured != "" && configured != config.InsecureJWTSecret {
		return configured, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	logger.Log.Warn("No usable JWT secret configured, tokens are signed with a random per-process secret")
	return hex.EncodeToString(buf), nil
}

func run(cfg config.Config) error {
	loc, err := time.LoadLocation(cfg.DayBoundaryTZ)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	secret, err := signingSecret(cfg.JWTSecret)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenIssuer(secret, cfg.TokenTTL)
	engine := rewards.NewEngine(store, rewards.WithLocation(loc))
	if err := engine.EnsureDefaultAdUnit(ctx); err != nil {
		return err
	}

	if cfg.AdminKeyHash == "" {
		logger.Log.Warn("No admin key hash configured, admin routes are closed")
	}

	h := handlers.New(
		accounts.NewService(store, tokens),
		engine,
		withdrawals.NewSettlement(store),
		tokens,
	)
	app := handlers.NewApp(h, auth.NewAdminVerifier(cfg.AdminKeyHash))

	go func() {
		<-ctx.Done()
		logger.Log.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Log.Error("Failed to shut down server", zap.Error(err))
		}
	}()

	logger.Log.Info("Running server", zap.String("address", cfg.RunAddress))
	return app.Listen(cfg.RunAddress)
}
