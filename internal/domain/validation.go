package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so errors line up with request payloads.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldError describes one failed constraint on a request field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationResult is the outcome of checking a request: exactly one of
// Request or Errors is set.
type ValidationResult struct {
	Request *BlogRequest
	Errors  []FieldError
}

// Valid reports whether the request passed validation.
func (r ValidationResult) Valid() bool {
	return r.Request != nil && len(r.Errors) == 0
}

// Err returns nil for a valid result, or an ErrValidation-wrapped summary.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, fe := range r.Errors {
		msgs = append(msgs, fe.Message)
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

// ValidateRequest normalizes req and checks it against the request
// constraints.
func ValidateRequest(req BlogRequest) ValidationResult {
	normalized := req.Normalize()

	err := validate.Struct(normalized)
	if err == nil {
		return ValidationResult{Request: &normalized}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationResult{Errors: []FieldError{{Field: "request", Rule: "invalid", Message: err.Error()}}}
	}

	fieldErrors := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return ValidationResult{Errors: fieldErrors}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag())
	}
}

// ValidateWebsiteURL checks that raw is an absolute URL.
func ValidateWebsiteURL(raw string) error {
	if err := validate.Var(strings.TrimSpace(raw), "required,url"); err != nil {
		return fmt.Errorf("%w: please provide a valid website URL", ErrValidation)
	}
	return nil
}
