package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sol1corejz/adsledger/internal/apperr"
)

type AdUnitResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	RewardMin       decimal.Decimal `json:"reward_min"`
	RewardMax       decimal.Decimal `json:"reward_max"`
	CooldownSeconds int             `json:"cooldown_seconds"`
	DailyCap        int             `json:"daily_cap"`
}

type AdStartRequest struct {
	AdUnitID string `json:"ad_unit_id" validate:"required"`
}

type AdStartResponse struct {
	SessionToken    string `json:"session_token"`
	CooldownSeconds int    `json:"cooldown_seconds"`
}

type AdCompleteRequest struct {
	SessionToken string `json:"session_token" validate:"required"`
}

type AdCompleteResponse struct {
	Reward     decimal.Decimal `json:"reward"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

func (h *Handler) ListAdUnitsHandler(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	units, err := h.rewards.ListAdUnits(ctx)
	if err != nil {
		return respondError(c, err)
	}

	response := make([]AdUnitResponse, 0, len(units))
	for _, unit := range units {
		response = append(response, AdUnitResponse{
			ID:              unit.ID.String(),
			Name:            unit.Name,
			RewardMin:       unit.RewardMin,
			RewardMax:       unit.RewardMax,
			CooldownSeconds: unit.CooldownSeconds,
			DailyCap:        unit.DailyCap,
		})
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *Handler) StartAdHandler(c *fiber.Ctx) error {
	var request AdStartRequest
	if err := bind(c, &request); err != nil {
		return respondError(c, err)
	}

	adUnitID, err := uuid.Parse(request.AdUnitID)
	if err != nil {
		return respondError(c, apperr.NotFound("ad unit not found"))
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.rewards.StartSession(ctx, currentUserID(c), adUnitID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(AdStartResponse{
		SessionToken:    result.SessionToken,
		CooldownSeconds: result.CooldownSeconds,
	})
}

func (h *Handler) CompleteAdHandler(c *fiber.Ctx) error {
	var request AdCompleteRequest
	if err := bind(c, &request); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.rewards.CompleteSession(ctx, currentUserID(c), request.SessionToken)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(AdCompleteResponse{
		Reward:     result.Reward,
		NewBalance: result.NewBalance,
	})
}
