// Package domain contains core concepts of the chat relay.
// This file defines display-name rules shared by negotiation and renames.
// No runtime, network, or UI logic should be added here.
package domain

import (
	apperrors "chat-relay/errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultUsername = "Guest"
	MaxNameLength   = 32
)

var validate = validator.New()

type nameInput struct {
	Name string `validate:"required,max=32"`
}

// NameKey folds a display name into its registry key.
// Two names are the same participant when their keys are equal.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Disambiguate returns the n-th candidate derived from base, e.g. alice_01.
func Disambiguate(base string, n int) string {
	return fmt.Sprintf("%s_%02d", base, n)
}

// ValidateName checks that a proposed display name is usable as-is.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.ErrBlankName
	}
	if strings.ContainsFunc(name, unicode.IsControl) {
		return fmt.Errorf("%w: control characters are not allowed", apperrors.ErrInvalidName)
	}
	if err := validate.Struct(nameInput{Name: name}); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidName, err.Error())
	}
	return nil
}
