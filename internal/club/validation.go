package club

import (
	"github.com/go-playground/validator/v10"
)

// ValidationHelper wraps the shared validator instance used on command
// arguments before execution.
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// amountArgs gates every balance-changing amount. The parser accepts any
// signed integer; positivity is enforced here so the reply can distinguish
// "must be positive" from "malformed".
type amountArgs struct {
	Amount int64 `validate:"gt=0"`
}

// bestowArgs gates role assignment.
type bestowArgs struct {
	Title string `validate:"required"`
}
