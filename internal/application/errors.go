package application

import (
	"fmt"

	"printvault/internal/domain"
)

// Sentinel errors shared with the domain so adapters need only one import
var (
	ErrNotFound = domain.ErrNotFound
	ErrInvalid  = domain.ErrInvalid
	ErrConflict = domain.ErrConflict
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Code() domain.ErrorCode { return domain.CodeValidation }

func (e *ValidationError) Is(target error) bool {
	return target == domain.ErrInvalid
}
