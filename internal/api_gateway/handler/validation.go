package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/noblepay-ledger/internal/domain/shared"
)

// RegisterValidators adds the custom binding tags to gin's validator engine.
// Call it once before serving.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return v.RegisterValidation("currency", validateCurrency)
}

// validateCurrency accepts the supported ISO 4217 codes in any case
func validateCurrency(fl validator.FieldLevel) bool {
	return shared.IsSupportedCurrency(strings.ToUpper(fl.Field().String()))
}
