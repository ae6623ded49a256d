package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type BalanceResponse struct {
	Balance  decimal.Decimal `json:"balance"`
	Pending  decimal.Decimal `json:"pending"`
	Currency string          `json:"currency"`
}

type EarningsItem struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source"`
}

type EarningsHistoryResponse struct {
	Items []EarningsItem `json:"items"`
}

func (h *Handler) GetUserBalanceHandler(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	balance, err := h.accounts.GetBalance(ctx, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(BalanceResponse{
		Balance:  balance.Available,
		Pending:  balance.Pending,
		Currency: "USD",
	})
}

func (h *Handler) GetHistoryHandler(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	history, err := h.accounts.GetHistory(ctx, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}

	items := make([]EarningsItem, 0, len(history))
	for _, tr := range history {
		items = append(items, EarningsItem{
			TransactionID: tr.ID.String(),
			Amount:        tr.Amount,
			OccurredAt:    tr.OccurredAt,
			Source:        tr.Source,
		})
	}

	return c.Status(fiber.StatusOK).JSON(EarningsHistoryResponse{Items: items})
}
