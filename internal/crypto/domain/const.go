package domain

// Algorithm represents the cryptographic algorithm used for encryption.
//
// All supported algorithms provide Authenticated Encryption with Associated Data (AEAD),
// ensuring both confidentiality and authenticity of encrypted data.
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	//
	// AES-GCM (Advanced Encryption Standard in Galois/Counter Mode) combines
	// AES encryption with GMAC authentication. It uses a 256-bit key and is
	// the algorithm behind every envelope at the current format version.
	AESGCM Algorithm = "aes-256-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	//
	// Available through the cipher factory for key records created on platforms
	// without AES hardware acceleration. Envelope format version 1 pins AES-GCM,
	// so a format version bump is required before ciphertexts use it.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// Context identifies the purpose a ciphertext is bound to. The context becomes
// part of the additional authenticated data, so an envelope encrypted for one
// purpose cannot be decrypted under another even with the correct key.
type Context string

const (
	// ContextOAuthToken binds ciphertext holding OAuth access/refresh tokens.
	ContextOAuthToken Context = "OAUTH_TOKEN"

	// ContextHealthData binds ciphertext holding provider health payloads.
	ContextHealthData Context = "HEALTH_DATA"

	// ContextAPIKey binds ciphertext holding provider API keys.
	ContextAPIKey Context = "API_KEY"
)

// KnownContext reports whether ctx is one of the enumerated purposes.
func KnownContext(ctx Context) bool {
	switch ctx {
	case ContextOAuthToken, ContextHealthData, ContextAPIKey:
		return true
	}
	return false
}

const (
	// EnvelopeVersion is the current envelope format version. Decryption rejects
	// any other version; there is no cross-version decode path.
	EnvelopeVersion = 1

	// KeySize is the required key material length in bytes (AES-256).
	KeySize = 32

	// IVSize is the initialization vector length in bytes for envelope format v1.
	IVSize = 16

	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16

	// AADHashLength is the number of hex characters kept from the hash of the
	// full AAD. The hash is an audit artifact only and never feeds decryption.
	AADHashLength = 16
)

// Metadata carries technical facts bound into the AAD alongside the context.
type Metadata map[string]string

// Whitelisted metadata keys. Only deployment-identifying facts are allowed;
// free-form or user-editable fields would permanently break decryption when
// they change.
const (
	MetadataKeyProvider      = "provider"
	MetadataKeyUserID        = "userId"
	MetadataKeyIntegrationID = "integrationId"
)

// allowedMetadataKeys is the closed set of keys accepted in encryption metadata.
var allowedMetadataKeys = map[string]struct{}{
	MetadataKeyProvider:      {},
	MetadataKeyUserID:        {},
	MetadataKeyIntegrationID: {},
}
