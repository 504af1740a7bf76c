package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateRequest validates a request struct using go-playground/validator
// and reports the first failing field
func ValidateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		// Extract validation errors and format them
		if ve, ok := err.(validator.ValidationErrors); ok {
			if len(ve) > 0 {
				return fmt.Errorf("validation failed: %s: %s",
					ve[0].Field(),
					formatValidationError(ve[0]))
			}
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
