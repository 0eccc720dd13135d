package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gophermarket/gophermarket/internal/service"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest checks struct tags and reports the first violation as a
// *service.ValidationError named after the JSON field.
func validateRequest(req any) error {
	return translate(validate.Struct(req))
}

func translate(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	return &service.ValidationError{Field: fe.Field(), Message: validationMessage(fe.Field(), fe)}
}

func validationMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", field, fe.Param())
	case "required":
		return fmt.Sprintf("%s is required.", field)
	default:
		return fmt.Sprintf("%s is invalid.", field)
	}
}
