package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. A single instance caches
// struct metadata and is safe for concurrent use.
var validate = validator.New()

// FieldError describes one failing field of a model.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError reports every invalid field of a model. Callers can
// correct the input and retry; the model itself is never constructed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, ", ")
}

// Validate checks v against its validate struct tags and returns nil or
// a *ValidationError enumerating all failures.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	return FromValidatorErrors(errs)
}

// FromValidatorErrors converts raw validator errors into the toolkit's
// per-field ValidationError. Services decoding request bodies by hand
// use it to answer in the shared envelope shape.
func FromValidatorErrors(errs validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{Fields: make([]FieldError, 0, len(errs))}
	for _, e := range errs {
		ve.Fields = append(ve.Fields, FieldError{
			Field:   e.Field(),
			Rule:    e.ActualTag(),
			Message: fieldMessage(e),
		})
	}
	return ve
}

func fieldMessage(e validator.FieldError) string {
	switch e.ActualTag() {
	case "required":
		return fmt.Sprintf("field %s is required", e.Field())
	case "required_without":
		return fmt.Sprintf("field %s is required when %s is empty", e.Field(), e.Param())
	case "email":
		return fmt.Sprintf("field %s must be a valid email address", e.Field())
	case "min":
		return fmt.Sprintf("field %s must be at least %s characters", e.Field(), e.Param())
	case "eq":
		return fmt.Sprintf("field %s must equal %q", e.Field(), e.Param())
	default:
		return fmt.Sprintf("field %s is invalid", e.Field())
	}
}
