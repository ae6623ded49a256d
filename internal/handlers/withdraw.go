package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/adsledger/internal/models"
	"github.com/sol1corejz/adsledger/internal/withdrawals"
)

type WithdrawRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	PayoutMethod string          `json:"payout_method" validate:"required,max=64"`
	Destination  string          `json:"destination" validate:"required,max=255"`
}

type WithdrawResponse struct {
	WithdrawalID string    `json:"withdrawal_id"`
	Status       string    `json:"status"`
	QueuedAt     time.Time `json:"queued_at"`
}

func newWithdrawResponse(w models.Withdrawal) WithdrawResponse {
	return WithdrawResponse{
		WithdrawalID: w.ID.String(),
		Status:       w.Status,
		QueuedAt:     w.CreatedAt,
	}
}

func (h *Handler) WithdrawHandler(c *fiber.Ctx) error {
	var request WithdrawRequest
	if err := bind(c, &request); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	withdrawal, err := h.withdrawals.RequestWithdrawal(ctx, withdrawals.Request{
		UserID:       currentUserID(c),
		Amount:       request.Amount,
		PayoutMethod: request.PayoutMethod,
		Destination:  request.Destination,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(newWithdrawResponse(withdrawal))
}

func (h *Handler) GetWithdrawalsHandler(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.withdrawals.ListWithdrawals(ctx, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	response := make([]WithdrawResponse, 0, len(list))
	for _, w := range list {
		response = append(response, newWithdrawResponse(w))
	}

	return c.Status(fiber.StatusOK).JSON(response)
}
