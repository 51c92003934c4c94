package core

// validation.go checks imported headers and edited values against a
// dataset's field specs.
//
// Validation happens at two levels:
//  1. Header validation: required columns must be present on import
//  2. Cell validation: an edited value must fit its FieldSpec (type, enum)
//
// Every failure is a ValidationError, which unwraps to ErrFormat.

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field/column name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap makes validation failures match ErrFormat.
func (e ValidationError) Unwrap() error {
	return ErrFormat
}

// NormalizeCell applies the field's normalizer, if any.
func NormalizeCell(value string, spec FieldSpec) string {
	if spec.Normalizer != nil && value != "" {
		return spec.Normalizer(value)
	}
	return value
}

// ValidateCell validates a single cell value against its FieldSpec.
// Empty values are always allowed.
func ValidateCell(value string, spec FieldSpec) error {
	if value == "" {
		return nil
	}

	switch spec.Type {
	case FieldNumeric:
		if _, ok := ParseNumber(value); !ok {
			return ValidationError{Field: spec.Name, Value: value, Message: "invalid number format"}
		}
	case FieldDate:
		if _, ok := ParseDate(value); !ok {
			return ValidationError{Field: spec.Name, Value: value, Message: "invalid date format (use YYYY-MM-DD or similar)"}
		}
	case FieldEnum:
		if len(spec.EnumValues) > 0 {
			for _, ev := range spec.EnumValues {
				if ev == value {
					return nil
				}
			}
			return ValidationError{
				Field:   spec.Name,
				Value:   value,
				Message: fmt.Sprintf("value must be one of: %s", strings.Join(spec.EnumValues, ", ")),
			}
		}
	}
	return nil
}

// ValidateHeaders checks that every required column exists in headers.
func ValidateHeaders(headers []string, specs []FieldSpec) error {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	var missing []string
	for _, spec := range specs {
		if spec.Required && !present[spec.Name] {
			missing = append(missing, spec.Name)
		}
	}

	if len(missing) > 0 {
		return ValidationError{Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	return nil
}

// String returns a human-readable name for a field type.
func (ft FieldType) String() string {
	switch ft {
	case FieldText:
		return "text"
	case FieldEnum:
		return "enum"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "numeric"
	default:
		return "value"
	}
}
