package validators

import (
	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator plugs go-playground/validator into echo.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks the `validate` struct tags of i.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return models.NewValidationError(err.Error())
	}
	return nil
}
