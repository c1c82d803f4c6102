package domain

import (
	"encoding/hex"
	"fmt"
)

// DecodeKeyMaterial decodes hex-encoded key material into raw key bytes.
//
// Key material is always transported as a 64-character hex string and must
// decode to exactly 32 bytes. Malformed material fails fast so a bad key never
// reaches a cipher. Callers own the returned slice and should Zero it when done.
func DecodeKeyMaterial(material string) ([]byte, error) {
	if material == "" {
		return nil, ErrMissingKeyMaterial
	}

	key, err := hex.DecodeString(material)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	if len(key) != KeySize {
		Zero(key)
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeySize, KeySize, len(key))
	}

	return key, nil
}
