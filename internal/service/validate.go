package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"moonscribe/internal/repository"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields the way clients spell them
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return lowerCamel(fld.Name)
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("contenttype", func(fl validator.FieldLevel) bool {
		_, err := repository.ParseContentType(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
		_, err := repository.ParseProvider(fl.Field().String())
		return err == nil
	})
	return v
}

// lowerCamel lower-cases the leading capitals of a Go field name: URL to url,
// ProjectID to projectID, URLPath to urlPath.
func lowerCamel(name string) string {
	runes := []rune(name)
	for i := range runes {
		if !unicode.IsUpper(runes[i]) {
			break
		}
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// validateRequest checks req's struct tags and reports the first failing field.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return WrapError(ErrInvalidInput, err.Error())
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "cannot be empty"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "contenttype":
		return fmt.Sprintf("unknown content type %q", fe.Value())
	case "provider":
		return fmt.Sprintf("unknown provider %q", fe.Value())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
