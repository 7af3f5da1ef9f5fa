package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	ierr "github.com/lexledger/lexledger/internal/errors"
	"github.com/shopspring/decimal"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// NewValidator builds the shared validator on first use and returns it on every call
func NewValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()

		// report json field names so hints match the request body
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		// lets `required`/`gt` style tags see decimal fields as their string form
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})

		validate = v
	})
	return validate
}

func GetValidator() *validator.Validate {
	return NewValidator()
}

func ValidateRequest(req interface{}) error {
	if req == nil {
		return ierr.NewError("request is required").
			WithHint("Request body is required").
			Mark(ierr.ErrValidation)
	}

	if err := GetValidator().Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, err := range validateErrs {
				details[err.Field()] = err.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
