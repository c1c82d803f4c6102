package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
)

// aadSeparator joins the parts of an AAD string: the context tag, the format
// version and the serialized metadata set.
const aadSeparator = "::"

// metadataEntrySeparator joins individual key=value metadata entries.
const metadataEntrySeparator = "|"

// EnvelopeCodec implements Codec on top of the AEAD cipher factory.
//
// The codec is pure and stateless: key material is passed in per call, never
// cached, and wiped before returning. All envelopes it produces carry the
// current format version; decryption rejects every other version outright.
//
// Context binding works through AAD. The base AAD string "<context>::v<n>" is
// stored in the envelope and bound to the authentication tag, so a ciphertext
// lifted from one record cannot be decrypted under a different purpose even
// though the symmetric key is shared. The whitelisted metadata set is folded
// into the audit hash: it identifies the deployment facts present at
// encryption time without baking mutable business fields into data the
// envelope needs back for decryption, which must succeed from the stored
// envelope and key alone.
type EnvelopeCodec struct {
	aeadManager AEADManager
}

// NewEnvelopeCodec creates a codec backed by the provided cipher factory.
func NewEnvelopeCodec(aeadManager AEADManager) *EnvelopeCodec {
	return &EnvelopeCodec{aeadManager: aeadManager}
}

// GenerateKey produces fresh 32-byte key material using crypto/rand,
// hex-encoded for transport. No side effects.
func (c *EnvelopeCodec) GenerateKey() (string, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}

	material := hex.EncodeToString(key)
	cryptoDomain.Zero(key)
	return material, nil
}

// Encrypt encrypts plaintext under the supplied hex key material.
//
// A fresh random IV is generated per call. When a context is given, the base
// AAD string is built, bound to the cipher, and stored in the envelope; the
// metadata set is validated against the technical whitelist, sorted, and
// folded into the audit hash of the full AAD. Empty plaintext is rejected
// before any key material is touched.
func (c *EnvelopeCodec) Encrypt(
	plaintext []byte,
	material string,
	ctx cryptoDomain.Context,
	metadata cryptoDomain.Metadata,
) (*cryptoDomain.EncryptedEnvelope, error) {
	if len(plaintext) == 0 {
		return nil, cryptoDomain.ErrEmptyPlaintext
	}

	key, err := cryptoDomain.DecodeKeyMaterial(material)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	envelope := &cryptoDomain.EncryptedEnvelope{
		Version:   cryptoDomain.EnvelopeVersion,
		CreatedAt: time.Now().UTC(),
	}

	var aad []byte
	if ctx != "" {
		if !cryptoDomain.KnownContext(ctx) {
			return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrUnknownContext, ctx)
		}
		if err := cryptoDomain.ValidateMetadata(metadata); err != nil {
			return nil, err
		}

		baseAAD := buildBaseAAD(ctx)
		fullAAD := appendMetadata(baseAAD, metadata)

		envelope.Context = ctx
		envelope.AADVersion = baseAAD
		envelope.AADHash = hashAAD(fullAAD)
		aad = []byte(baseAAD)
	}

	aead, err := c.aeadManager.CreateCipher(key, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}

	ciphertext, iv, tag, err := aead.Encrypt(plaintext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt payload: %w", err)
	}

	envelope.Ciphertext = ciphertext
	envelope.IV = iv
	envelope.AuthTag = tag
	return envelope, nil
}

// Decrypt recovers the plaintext from an envelope under the supplied hex key
// material.
//
// The envelope version must match the codec's current version; there is no
// cross-version decode path. When the envelope carries a context, the stored
// base AAD string is bound verbatim before tag verification. Any verification
// failure surfaces as the opaque decryption error: the caller never learns
// whether the key, IV, ciphertext or AAD was at fault.
func (c *EnvelopeCodec) Decrypt(
	envelope *cryptoDomain.EncryptedEnvelope,
	material string,
) ([]byte, error) {
	if envelope == nil {
		return nil, fmt.Errorf("%w: nil envelope", cryptoDomain.ErrMalformedEnvelope)
	}
	if envelope.Version != cryptoDomain.EnvelopeVersion {
		return nil, fmt.Errorf(
			"%w: envelope version %d, supported version %d",
			cryptoDomain.ErrVersionMismatch,
			envelope.Version,
			cryptoDomain.EnvelopeVersion,
		)
	}

	key, err := cryptoDomain.DecodeKeyMaterial(material)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	var aad []byte
	if envelope.Context != "" && envelope.AADVersion != "" {
		aad = []byte(envelope.AADVersion)
	}

	aead, err := c.aeadManager.CreateCipher(key, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Decrypt(envelope.Ciphertext, envelope.IV, envelope.AuthTag, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}

// buildBaseAAD builds the stored AAD string for a context at the current
// format version, e.g. "OAUTH_TOKEN::v1".
func buildBaseAAD(ctx cryptoDomain.Context) string {
	return fmt.Sprintf("%s%sv%d", ctx, aadSeparator, cryptoDomain.EnvelopeVersion)
}

// appendMetadata extends the base AAD with the metadata set serialized
// deterministically: entries sorted by key, rendered key=value, joined with a
// fixed delimiter. Empty metadata leaves the base unchanged.
func appendMetadata(baseAAD string, metadata cryptoDomain.Metadata) string {
	if len(metadata) == 0 {
		return baseAAD
	}

	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, key+"="+metadata[key])
	}

	return baseAAD + aadSeparator + strings.Join(entries, metadataEntrySeparator)
}

// hashAAD computes the audit hash of the full AAD: hex SHA-256 truncated to a
// fixed prefix. Carried in the envelope for audit trails only; it is never
// supplied back into decryption and never consulted for trust decisions.
func hashAAD(fullAAD string) string {
	sum := sha256.Sum256([]byte(fullAAD))
	return hex.EncodeToString(sum[:])[:cryptoDomain.AADHashLength]
}
