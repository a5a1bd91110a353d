package domain

import (
	"errors"
	"strings"
)

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrReviewNotFound     = errors.New("review not found")
	ErrReviewNotAllowed   = errors.New("review not allowed")
	ErrPhotoNotFound      = errors.New("photo not found")
	ErrStorage            = errors.New("storage failure")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthenticated    = errors.New("authentication required")
)

// FieldError is one rejected request field.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors renders as "field: message, field: message" and matches ErrValidation.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, ", ")
}

func (e FieldErrors) Unwrap() error { return ErrValidation }

func (e *FieldErrors) add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// orNil keeps a nil interface when nothing was collected.
func (e FieldErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
