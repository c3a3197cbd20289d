// Package validator adapts go-playground/validator to the API error format.
package validator

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jwalitptl/medstaff-api/pkg/errors"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9()\-\s]{5,32}$`)

// Register installs field naming and custom rules on v. Field names in
// messages follow the json tag.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

// New returns a validator with Register applied
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = Register(v)
	return v
}

// Translate converts binding and validation failures into a validation AppError.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		return errors.Validation(message(verrs[0]), err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var sizeErr *http.MaxBytesError
	switch {
	case stderrors.Is(err, io.EOF):
		return errors.Validation("request body is required", err)
	case stderrors.As(err, &syntaxErr):
		return errors.Validation("invalid JSON body", err)
	case stderrors.As(err, &typeErr):
		return errors.Validationf("invalid type for %s", typeErr.Field)
	case stderrors.As(err, &sizeErr):
		return errors.PayloadTooLarge(sizeErr.Limit)
	}
	return errors.Validation("invalid request body", err)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "phone":
		return fmt.Sprintf("%s must be a valid phone number", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must not exceed %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "eq":
		if fe.Param() == "true" {
			return fmt.Sprintf("%s must be accepted", field)
		}
		return fmt.Sprintf("%s must equal %s", field, fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid", field)
}
