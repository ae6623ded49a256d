package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/adsledger/internal/accounts"
	"github.com/sol1corejz/adsledger/internal/middleware"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Username string `json:"username" validate:"required,min=3,max=32"`
}

type RegisterResponse struct {
	Message              string `json:"message"`
	UserID               string `json:"user_id"`
	VerificationRequired bool   `json:"verification_required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type GoogleAuthRequest struct {
	IDToken string `json:"id_token" validate:"max=512"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

func (h *Handler) RegisterHandler(c *fiber.Ctx) error {
	var request RegisterRequest
	if err := bind(c, &request); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	registration, err := h.accounts.Register(ctx, request.Email, request.Password, request.Username)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(RegisterResponse{
		Message:              "Registered successfully",
		UserID:               registration.UserID.String(),
		VerificationRequired: registration.VerificationRequired,
	})
}

func (h *Handler) LoginHandler(c *fiber.Ctx) error {
	var request LoginRequest
	if err := bind(c, &request); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, err := h.accounts.Login(ctx, request.Email, request.Password)
	if err != nil {
		return respondError(c, err)
	}

	return h.sendToken(c, session)
}

func (h *Handler) GoogleAuthHandler(c *fiber.Ctx) error {
	var request GoogleAuthRequest
	if err := bind(c, &request); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	session, err := h.accounts.ExternalIdentityLogin(ctx, request.IDToken)
	if err != nil {
		return respondError(c, err)
	}

	return h.sendToken(c, session)
}

func (h *Handler) sendToken(c *fiber.Ctx, session accounts.Session) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    session.AccessToken,
		Expires:  time.Now().Add(h.tokens.TTL()),
		HTTPOnly: true,
	})

	c.Set(fiber.HeaderAuthorization, "Bearer "+session.AccessToken)

	return c.Status(fiber.StatusOK).JSON(TokenResponse{
		AccessToken: session.AccessToken,
		TokenType:   "bearer",
		UserID:      session.UserID.String(),
	})
}
