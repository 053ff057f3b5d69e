// ABOUTME: Field-level validation backed by go-playground/validator tags
// ABOUTME: Collects every violated constraint into a single ValidationError

package wishlist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validation tags per field. The oneof lists are derived from the value sets
// so the two cannot drift.
var (
	tagName       = fmt.Sprintf("required,max=%d", MaxNameLength)
	tagMemo       = fmt.Sprintf("max=%d", MaxMemoLength)
	tagBudget     = fmt.Sprintf("gte=0,lte=%d", MaxBudget)
	tagTimeframe  = oneOf(Timeframes)
	tagCategory   = oneOf(Categories)
	tagPriority   = oneOf(Priorities)
	tagStatus     = oneOf(Statuses)
	tagDesireType = oneOf(DesireTypes)
)

func oneOf[T ~string](values []T) string {
	return "oneof=" + strings.Join(Strings(values), " ")
}

// FieldError is a single violated constraint.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every constraint an input violated.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", f.Field, f.Reason))
	}
	return strings.Join(msgs, "; ")
}

// FieldMap returns field names mapped to their first reason.
func (e *ValidationError) FieldMap() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, ok := out[f.Field]; !ok {
			out[f.Field] = f.Reason
		}
	}
	return out
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// check runs a validator tag against value and records any failure under field.
func (e *ValidationError) check(field string, value any, tag string) {
	err := validate.Var(value, tag)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		e.add(field, err.Error())
		return
	}
	for _, fe := range verrs {
		e.add(field, msgForTag(fe))
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}
