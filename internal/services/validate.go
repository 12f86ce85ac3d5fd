package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/bayni/apiserver/internal/store"
	"github.com/go-playground/validator/v10"
)

// ErrForbidden is returned when the acting user may not perform an operation.
var ErrForbidden = errors.New("forbidden")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput runs struct validation and reports failures as
// store.ErrInvalidInput naming the offending fields.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		fields = append(fields, fmt.Sprintf("%s is %s", field, describeTag(fe)))
	}
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, strings.Join(fields, "; "))
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "oneof":
		return "not one of " + fe.Param()
	case "max":
		return "longer than " + fe.Param()
	case "email":
		return "not an email address"
	default:
		return "invalid (" + fe.Tag() + ")"
	}
}

func forbidden(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}
