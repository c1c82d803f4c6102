// Package service provides the cryptographic services for encryption at rest:
// AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305), the envelope codec that binds
// ciphertext to a context through additional authenticated data, and key
// sources that supply the current primary key material.
package service

import (
	"context"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
// The authentication tag is carried detached from the ciphertext so the storage
// format can persist it as its own field.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext,
	// the freshly generated nonce, and the detached authentication tag.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce, tag and AAD.
	Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// Codec defines the envelope codec: stateless encryption and decryption of
// byte payloads into storage envelopes, with deterministic AAD construction
// from a context tag and whitelisted technical metadata.
type Codec interface {
	// GenerateKey produces fresh 32-byte key material, hex-encoded for transport.
	GenerateKey() (string, error)

	// Encrypt encrypts plaintext under the supplied hex key material. When a
	// context is given it is bound into the AAD together with the sorted
	// metadata set; metadata keys outside the technical whitelist are rejected.
	Encrypt(
		plaintext []byte,
		material string,
		ctx cryptoDomain.Context,
		metadata cryptoDomain.Metadata,
	) (*cryptoDomain.EncryptedEnvelope, error)

	// Decrypt recovers the plaintext from an envelope under the supplied hex
	// key material. Fails closed: tampering, a wrong key or a changed AAD all
	// surface as the same opaque decryption error.
	Decrypt(envelope *cryptoDomain.EncryptedEnvelope, material string) ([]byte, error)
}

// KeySource supplies the current primary key material as a hex string on
// demand. The core never caches or persists the material; absence is a hard
// configuration failure.
type KeySource interface {
	Current(ctx context.Context) (string, error)
}
