// Package validation wraps a shared go-playground validator with the annotation tags.
//
// Custom tags:
//   - patientid: a non-empty string of ASCII digits
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	patientIDPattern = regexp.MustCompile(`^\d+$`)
)

// PatientID reports whether id is a valid medical record number.
func PatientID(id string) bool {
	return patientIDPattern.MatchString(id)
}

// FieldError is one failed field rule.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

func (e FieldError) Error() string { return e.Message }

// Errors is the list of failed rules for one struct.
type Errors []FieldError

func (ve Errors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed any rule.
func (ve Errors) Has(field string) bool {
	for _, e := range ve {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Get returns the shared validator.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("patientid", func(fl validator.FieldLevel) bool {
			return PatientID(fl.Field().String())
		})
	})
	return validate
}

// Struct validates s. The returned error is Errors when rules failed.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(Errors, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: message(fe),
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "patientid":
		return fmt.Sprintf("%s must contain only digits", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param())
	case "gtfield", "ltfield", "gtefield", "ltefield":
		return fmt.Sprintf("%s must be %s %s", fe.Field(), strings.TrimSuffix(fe.Tag(), "field"), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
