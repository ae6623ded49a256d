package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/adsledger/internal/apperr"
	"github.com/sol1corejz/adsledger/internal/auth"
)

const (
	UserIDKey       = "userID"
	TokenCookieName = "jwt"
	AdminKeyHeader  = "X-Admin-Key"
)

func deny(c *fiber.Ctx, kind apperr.Kind, message string) error {
	return c.Status(apperr.HTTPStatus(kind)).JSON(fiber.Map{
		"error": fiber.Map{"code": kind, "message": message},
	})
}

func bearerToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Cookies(TokenCookieName)
}

// Auth resolves the bearer token from the Authorization header or the jwt
// cookie and stores the caller's uuid.UUID under UserIDKey.
func Auth(tokens *auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return deny(c, apperr.KindUnauthorized, "Unauthorized")
		}

		userID, err := tokens.ParseToken(tokenString)
		if err != nil {
			return deny(c, apperr.KindUnauthorized, "Invalid or expired token")
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// Admin admits requests whose X-Admin-Key matches the configured hash.
func Admin(verifier *auth.AdminVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !verifier.Verify(c.Get(AdminKeyHeader)) {
			return deny(c, apperr.KindForbidden, "Not authorized")
		}
		return c.Next()
	}
}
