package conf

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Copani/matRad/internal/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their persisted key
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fieldKey(fld)
	})
}

// ValidationError describes one invalid field.
type ValidationError struct {
	FieldPath string
	Message   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.FieldPath, e.Message)
}

// ValidationErrors collects every invalid field of a Settings value.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, 0, len(ve))
	for _, e := range ve {
		msgs = append(msgs, e.Error())
	}
	return "validation errors: " + strings.Join(msgs, "; ")
}

// ValidateSettings checks s against the field constraints.
func ValidateSettings(s *Settings) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.New(err).
			Component("configuration").
			Category(errors.CategoryValidation).
			Build()
	}

	ve := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		ve = append(ve, ValidationError{
			FieldPath: trimRootNamespace(fe.Namespace()),
			Message:   describeConstraint(fe),
		})
	}
	return errors.New(ve).
		Component("configuration").
		Category(errors.CategoryValidation).
		Context("invalid_fields", len(ve)).
		Build()
}

// trimRootNamespace drops the root struct name and the inlined Defaults
// level from a validator namespace.
func trimRootNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.TrimPrefix(ns, "Defaults.")
}

func describeConstraint(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q constraint, got %v", fe.Tag(), fe.Value())
	}
}
