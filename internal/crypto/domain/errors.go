package domain

import (
	"github.com/healthsync/tokenvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. Callers classify failures
// with errors.Is against these sentinels.
var (
	// ErrEmptyPlaintext indicates an encryption request with no payload.
	ErrEmptyPlaintext = errors.Wrap(errors.ErrInvalidInput, "plaintext must not be empty")

	// ErrDisallowedMetadataKeys indicates encryption metadata contained keys
	// outside the technical whitelist. The offending keys are appended to the
	// error message so callers can fix the request.
	ErrDisallowedMetadataKeys = errors.Wrap(errors.ErrInvalidInput, "disallowed metadata keys")

	// ErrUnknownContext indicates a context tag outside the enumerated set.
	ErrUnknownContext = errors.Wrap(errors.ErrInvalidInput, "unknown encryption context")

	// ErrMalformedEnvelope indicates an envelope that failed structural validation
	// or could not be parsed from its stored representation.
	ErrMalformedEnvelope = errors.Wrap(errors.ErrInvalidInput, "malformed envelope")

	// ErrVersionMismatch indicates the envelope format version is not the one
	// this codec supports. Rotating the format version is a breaking change
	// that requires an explicit migration, never a silent fallback.
	ErrVersionMismatch = errors.Wrap(errors.ErrInvalidInput, "unsupported envelope version")

	// ErrDecryptionFailed indicates authentication tag verification failed.
	//
	// This error can occur due to:
	//   - Wrong decryption key used
	//   - Ciphertext or tag has been tampered with
	//   - AAD differs from the one bound at encryption time
	//
	// For security reasons, the specific cause is not disclosed to prevent
	// information leakage that could aid attackers.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrMissingKeyMaterial indicates no key material was supplied by the key source.
	ErrMissingKeyMaterial = errors.Wrap(errors.ErrInvalidConfig, "missing key material")

	// ErrInvalidKeyMaterial indicates key material that is not valid hex.
	ErrInvalidKeyMaterial = errors.Wrap(errors.ErrInvalidConfig, "invalid key material")

	// ErrInvalidKeySize indicates key material that does not decode to exactly
	// 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidConfig, "invalid key size")

	// ErrUnsupportedAlgorithm indicates an unknown algorithm tag on a key record.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrKeyRecordNotFound indicates the requested key record does not exist.
	ErrKeyRecordNotFound = errors.Wrap(errors.ErrNotFound, "key record not found")
)
