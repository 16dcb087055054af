package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/BradenHooton/adminauth/internal/models"
)

// Global validator instance (reused across all requests)
var validate = validator.New()

// ValidateRequest validates a struct using go-playground/validator tags. The
// returned error wraps models.ErrValidation, and also models.ErrMissingFields
// when a required field is empty. It names the first failing field for
// server-side logs.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		if ve[0].Tag() == "required" {
			return fmt.Errorf("%w: %w: %s", models.ErrValidation, models.ErrMissingFields, ve[0].Field())
		}
		return fmt.Errorf("%w: %s: %s", models.ErrValidation, ve[0].Field(), formatValidationError(ve[0]))
	}
	return fmt.Errorf("%w: %v", models.ErrValidation, err)
}

// formatValidationError converts a validator FieldError to a readable message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "numeric":
		return "must be numeric"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
