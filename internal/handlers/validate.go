package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sol1corejz/adsledger/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s characters long", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("field '%s' failed on '%s'", fe.Field(), fe.Tag())
	}
}

// bind parses the JSON body into dst and validates it.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperr.Validation(validationMessage(fieldErrs[0]))
		}
		return apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
	}

	return nil
}
