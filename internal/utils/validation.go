package contextutils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// emailPattern is the permissive address check used by the web client
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("correo", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// IsValidEmail checks if an email address is acceptable for registration and profile changes
func IsValidEmail(email string) bool {
	return validate.Var(email, "required,correo") == nil
}

// Validator exposes the shared validator so gin bindings and services apply the same rules
func Validator() *validator.Validate {
	return validate
}
