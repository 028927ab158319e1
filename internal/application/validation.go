package application

import (
	"errors"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/cmc-edu/room-booking/internal/availability"
)

const (
	msgRequired     = "is required"
	msgInvalid      = "is invalid"
	msgEmail        = "must be a valid email address"
	msgDate         = "must be a date in dd/mm/yyyy format"
	msgPositive     = "must be positive"
	msgNonNegative  = "must not be negative"
	msgTooLong      = "is too long"
	msgTooShort     = "is too short"
	msgUnknownRoom  = "room does not exist"
	msgUnknownSlot  = "slot does not exist"
	msgUnknownRole  = "role is not supported"
	msgUnknownState = "status is not supported"
	msgPhone        = "must be a valid phone number"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			if name := field.Tag.Get("field"); name != "" {
				return name
			}
			return field.Name
		})
		_ = v.RegisterValidation("ddmmyyyy", func(fl validator.FieldLevel) bool {
			_, err := availability.ParseDate(fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}

// validateStruct runs the struct tags of v and converts failures into a
// ValidationError keyed by wire field name.
func validateStruct(v any) *ValidationError {
	vErr := &ValidationError{}
	err := structValidator().Struct(v)
	if err == nil {
		return vErr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("_", msgInvalid)
		return vErr
	}
	for _, fe := range fieldErrs {
		vErr.add(fe.Field(), messageForTag(fe))
	}
	return vErr
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return msgEmail
	case "ddmmyyyy":
		return msgDate
	case "gt":
		return msgPositive
	case "gte":
		return msgNonNegative
	case "max":
		return msgTooLong
	case "min":
		return msgTooShort
	}
	return msgInvalid
}
