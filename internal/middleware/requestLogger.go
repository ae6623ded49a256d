package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/adsledger/internal/logger"
	"github.com/sol1corejz/adsledger/internal/metrics"
	"go.uber.org/zap"
)

// RequestLogger logs every request and records it in the HTTP metrics.
func RequestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
			c.Status(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	elapsed := time.Since(start)

	route := c.Route().Path
	metrics.ObserveHTTP(c.Method(), route, status, elapsed.Seconds())

	logger.Log.Info("Request handled",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", elapsed))

	return nil
}
