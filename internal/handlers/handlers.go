package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/adsledger/internal/accounts"
	"github.com/sol1corejz/adsledger/internal/auth"
	"github.com/sol1corejz/adsledger/internal/metrics"
	"github.com/sol1corejz/adsledger/internal/middleware"
	"github.com/sol1corejz/adsledger/internal/rewards"
	"github.com/sol1corejz/adsledger/internal/withdrawals"
)

const requestTimeout = 10 * time.Second

func init() {
	// Amounts go out as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type Handler struct {
	accounts    *accounts.Service
	rewards     *rewards.Engine
	withdrawals *withdrawals.Settlement
	tokens      *auth.TokenIssuer
}

func New(accountService *accounts.Service, engine *rewards.Engine, settlement *withdrawals.Settlement, tokens *auth.TokenIssuer) *Handler {
	return &Handler{
		accounts:    accountService,
		rewards:     engine,
		withdrawals: settlement,
		tokens:      tokens,
	}
}

func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), requestTimeout)
}

func currentUserID(c *fiber.Ctx) uuid.UUID {
	userID, _ := c.Locals(middleware.UserIDKey).(uuid.UUID)
	return userID
}

// NewApp builds the fiber application with every route mounted.
func NewApp(h *Handler, verifier *auth.AdminVerifier) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger)
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "message": "ads ledger running"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	app.Post("/api/auth/register", h.RegisterHandler)
	app.Post("/api/auth/login", h.LoginHandler)
	app.Post("/api/auth/google", h.GoogleAuthHandler)

	authenticated := middleware.Auth(h.tokens)

	adRoutes := app.Group("/api/ads", authenticated)
	adRoutes.Get("/units", h.ListAdUnitsHandler)
	adRoutes.Post("/start", h.StartAdHandler)
	adRoutes.Post("/complete", h.CompleteAdHandler)

	meRoutes := app.Group("/api/me", authenticated)
	meRoutes.Get("/balance", h.GetUserBalanceHandler)
	meRoutes.Get("/history", h.GetHistoryHandler)

	withdrawRoutes := app.Group("/api/withdraw", authenticated)
	withdrawRoutes.Post("/request", h.WithdrawHandler)
	withdrawRoutes.Get("/list", h.GetWithdrawalsHandler)

	adminRoutes := app.Group("/api/admin", middleware.Admin(verifier))
	adminRoutes.Get("/users", h.AdminListUsersHandler)
	adminRoutes.Get("/withdrawals", h.AdminListWithdrawalsHandler)
	adminRoutes.Post("/withdrawals/:id/review", h.AdminReviewWithdrawalHandler)

	return app
}
