package user

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	apperrors "github.com/tendant/backend-resources/pkg/errors"
)

const (
	reasonBlank        = "must not be blank"
	reasonInvalidEmail = "must be a valid email address"
	reasonInvalid      = "is invalid"
)

var validate = newValidator()

// newValidator reports fields by their JSON names and knows the notblank tag.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Validate checks every field and returns a VALIDATION_FAILED error listing
// each violation by its JSON field name, or nil.
func (r UserCreateRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.InternalWrap(err, "failed to validate request")
	}

	details := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = reason(fe.Tag())
	}
	return apperrors.ValidationFailed(details)
}

func reason(tag string) string {
	switch tag {
	case "required", "notblank":
		return reasonBlank
	case "email":
		return reasonInvalidEmail
	default:
		return reasonInvalid
	}
}
