// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/hex"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/healthsync/tokenvault/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// HexKeyMaterial validates that a string is valid hex of the given byte length.
type HexKeyMaterial struct {
	ByteLength int
}

// Validate checks that the value decodes to exactly ByteLength bytes of hex.
func (h HexKeyMaterial) Validate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_hex_key_material", "key material must be a string")
	}

	decoded, err := hex.DecodeString(s)
	if err != nil {
		return validation.NewError("validation_hex_key_material", "key material must be hex-encoded")
	}
	if len(decoded) != h.ByteLength {
		return validation.NewError("validation_hex_key_length", "key material has the wrong length")
	}

	return nil
}

// Provider validates upstream provider identifiers: uppercase alphanumeric
// with underscores, e.g. "GARMIN" or "GOOGLE_FIT".
var Provider = validation.NewStringRuleWithError(
	func(s string) bool {
		if s == "" {
			return false
		}
		for _, r := range s {
			switch {
			case r >= 'A' && r <= 'Z':
			case r >= '0' && r <= '9':
			case r == '_':
			default:
				return false
			}
		}
		return true
	},
	validation.NewError("validation_provider_format", "must be an uppercase provider identifier"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
