// Package validate checks request payloads and normalizes free-text input.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tendant/simple-admission/pkg/domain"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return instance
}

// Struct validates s against its `validate` tags. Field failures are reported
// as a *domain.ValidationError keyed by the json field name.
func Struct(s interface{}) error {
	if s == nil {
		return fmt.Errorf("is nil")
	}
	if !isStruct(s) {
		return fmt.Errorf("not a struct")
	}

	err := get().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	var invalidValidationError *validator.InvalidValidationError
	switch {
	case errors.As(err, &validationErrors):
		fields := make(map[string]string, len(validationErrors))
		for _, fieldErr := range validationErrors {
			if _, seen := fields[fieldErr.Field()]; seen {
				continue
			}
			fields[fieldErr.Field()] = message(fieldErr)
		}
		return &domain.ValidationError{Fields: fields}
	case errors.As(err, &invalidValidationError):
		return fmt.Errorf("invalid validation error: %w", err)
	default:
		return fmt.Errorf("unknown validation error: %w", err)
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "e164":
		return "must be a phone number in international format"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func isStruct(s interface{}) bool {
	r := reflect.TypeOf(s)
	if r.Kind() == reflect.Ptr {
		r = r.Elem()
	}
	return r.Kind() == reflect.Struct
}
