package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrNameRequired = errors.New("name is required")
	ErrNameTooLong  = errors.New("name is too long (max 100 characters)")
	ErrColorFormat  = errors.New("color must look like #rrggbb")
)

// ValidateName checks display names, tag names and space names.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(trimmed) > 100 {
		return ErrNameTooLong
	}
	return nil
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateColor accepts an empty string (no color) or a #rrggbb hex value.
func ValidateColor(color string) error {
	if color == "" || hexColor.MatchString(color) {
		return nil
	}
	return ErrColorFormat
}
