package validation

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("urgency", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "urgent", "this_week", "this_month", "flexible":
			return true
		}
		return false
	})
}

// ValidateStruct validates a struct using its validate tags
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(errs)
		}
		return err
	}
	return nil
}
