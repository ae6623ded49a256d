package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/adsledger/internal/apperr"
)

type AdminUserSummary struct {
	UserID   string          `json:"user_id"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Balance  decimal.Decimal `json:"balance"`
	Pending  decimal.Decimal `json:"pending"`
}

type AdminWithdrawalSummary struct {
	WithdrawalID string          `json:"withdrawal_id"`
	UserID       string          `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type AdminWithdrawalReviewRequest struct {
	Status      string  `json:"status" validate:"required,oneof=approved rejected"`
	ReviewNotes *string `json:"review_notes"`
}

func (h *Handler) AdminListUsersHandler(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.accounts.ListUsers(ctx)
	if err != nil {
		return respondError(c, err)
	}

	response := make([]AdminUserSummary, 0, len(users))
	for _, u := range users {
		response = append(response, AdminUserSummary{
			UserID:   u.UserID.String(),
			Email:    u.Email,
			Username: u.Username,
			Balance:  u.Available,
			Pending:  u.Pending,
		})
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *Handler) AdminListWithdrawalsHandler(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.withdrawals.ListAllWithdrawals(ctx)
	if err != nil {
		return respondError(c, err)
	}

	response := make([]AdminWithdrawalSummary, 0, len(list))
	for _, w := range list {
		response = append(response, AdminWithdrawalSummary{
			WithdrawalID: w.ID.String(),
			UserID:       w.UserID.String(),
			Amount:       w.Amount,
			Status:       w.Status,
			CreatedAt:    w.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *Handler) AdminReviewWithdrawalHandler(c *fiber.Ctx) error {
	withdrawalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, apperr.NotFound("withdrawal not found"))
	}

	var request AdminWithdrawalReviewRequest
	if err := bind(c, &request); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	withdrawal, err := h.withdrawals.ReviewWithdrawal(ctx, withdrawalID, request.Status, request.ReviewNotes)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(newWithdrawResponse(withdrawal))
}
