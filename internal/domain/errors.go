package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrResultNotFound is returned when no result matches a lookup.
	ErrResultNotFound = errors.New("quiz result not found")
	// ErrUserNotFound is returned when an account lookup misses.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when registering a taken email or username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized covers missing, malformed, or expired bearer tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when a non-admin attempts an admin-only write.
	ErrForbidden = errors.New("access denied")
	// ErrNetwork wraps transport failures talking to the API.
	ErrNetwork = errors.New("network error")
	// ErrQuestionNotFound indicates a question index outside the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates an option index outside the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAttemptNotFound is returned when a live attempt id is unknown.
	ErrAttemptNotFound = errors.New("attempt not found")
)

// ValidationError describes a malformed create or update payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
