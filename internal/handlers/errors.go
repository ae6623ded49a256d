package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/adsledger/internal/apperr"
	"github.com/sol1corejz/adsledger/internal/logger"
	"go.uber.org/zap"
)

type ErrorBody struct {
	Code    apperr.Kind `json:"code"`
	Message string      `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return c.Status(apperr.HTTPStatus(appErr.Kind)).JSON(ErrorResponse{
			Error: ErrorBody{Code: appErr.Kind, Message: appErr.Message},
		})
	}

	logger.Log.Error("Internal error", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: ErrorBody{Code: apperr.KindInternal, Message: "Internal server error"},
	})
}

// ErrorHandler renders errors that escape handlers, such as unknown routes,
// in the same shape as respondError.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		kind := apperr.KindInternal
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			kind = apperr.KindNotFound
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			kind = apperr.KindValidation
		case fiber.StatusMethodNotAllowed:
			kind = apperr.KindNotFound
		}
		return c.Status(fiberErr.Code).JSON(ErrorResponse{
			Error: ErrorBody{Code: kind, Message: fiberErr.Message},
		})
	}
	return respondError(c, err)
}
