package service

import (
	"errors"
	"strings"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")

	// ErrInvalidCredentials is a failed login. It does not say whether the
	// email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrWrongPassword is a password change with an incorrect current password.
	ErrWrongPassword  = errors.New("current password is incorrect")
	ErrDuplicateEmail = errors.New("email already registered")
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every rejected field. It matches ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
