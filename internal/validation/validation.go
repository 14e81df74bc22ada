package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrValidation = errors.New("validation failed")

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	upperRe = regexp.MustCompile(`[A-Z]`)
	lowerRe = regexp.MustCompile(`[a-z]`)
	digitRe = regexp.MustCompile(`\d`)
)

func Username(username string) error {
	if len(username) < 3 {
		return fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
	}
	if len(username) > 50 {
		return fmt.Errorf("%w: username must be at most 50 characters", ErrValidation)
	}
	return nil
}

// Email validates the address format and returns the normalized
// (lowercased) form.
func Email(email string) (string, error) {
	if !emailRe.MatchString(email) {
		return "", fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return strings.ToLower(email), nil
}

// Password enforces the registration policy. It runs before any hashing so
// rejected input never reaches bcrypt.
func Password(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	if len(password) > 128 {
		return fmt.Errorf("%w: password must be at most 128 characters", ErrValidation)
	}
	if !upperRe.MatchString(password) {
		return fmt.Errorf("%w: password must contain at least one uppercase letter", ErrValidation)
	}
	if !lowerRe.MatchString(password) {
		return fmt.Errorf("%w: password must contain at least one lowercase letter", ErrValidation)
	}
	if !digitRe.MatchString(password) {
		return fmt.Errorf("%w: password must contain at least one number", ErrValidation)
	}
	return nil
}
