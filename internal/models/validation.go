// internal/models/validation.go
package models

import (
	"strings"

	"github.com/ecocart/storefront-api/internal/utils"
)

// ValidationError reports every field that failed its declared bounds.
type ValidationError struct {
	Fields []utils.ValidationError
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.FieldNames(), ", ")
}

// FieldNames lists the offending fields in report order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

func NewFieldError(field, tag, message string) *ValidationError {
	return &ValidationError{Fields: []utils.ValidationError{{Field: field, Tag: tag, Message: message}}}
}

func validateModel(v interface{}) error {
	err := utils.ValidateStruct(v)
	if err == nil {
		return nil
	}
	fields := utils.GetValidationErrors(err)
	if len(fields) == 0 {
		return err
	}
	return &ValidationError{Fields: fields}
}
