package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single failed rule, keyed by the request's json field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []FieldError{{Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		out = append(out, FieldError{Field: fieldPath(e), Message: formatSingleError(e)})
	}
	return out
}

// Summary joins the messages into one line for the error envelope.
func Summary(errs []FieldError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Field != "" {
			parts = append(parts, e.Field+": "+e.Message)
		} else {
			parts = append(parts, e.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func formatSingleError(e validator.FieldError) string {
	param := e.Param()

	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("must be at least %s characters", param)
		}
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("must contain at least %s items", param)
		}
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("must be at most %s characters", param)
		}
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("must contain at most %s items", param)
		}
		return fmt.Sprintf("must be at most %s", param)
	case "len":
		return fmt.Sprintf("must be exactly %s characters", param)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(param, " ", ", "))
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "fqdn":
		return "must be a valid domain name"
	case "numeric":
		return "must contain only digits"
	case "valid_name":
		return "may only contain letters, digits, spaces and . ' - / & ( ) ,"
	case "valid_phone":
		return "must be a phone number of 7-15 digits, optionally starting with +"
	case "no_emoji":
		return "must not contain emoji or special symbols"
	case "slug":
		return "must be lowercase letters, digits and single dashes"
	case "question_type":
		return "must be one of: mcq, coding, behavioral"
	case "interview_type":
		return "must be one of: mcq, coding, behavioral, combo"
	case "future_time":
		return "must be in the future"
	default:
		return fmt.Sprintf("failed the %s rule", e.Tag())
	}
}
