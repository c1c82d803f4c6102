package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
)

func newTestCodec() *EnvelopeCodec {
	return NewEnvelopeCodec(NewAEADManager())
}

func testKey() string {
	return strings.Repeat("a", 64)
}

func TestEnvelopeCodec_GenerateKey(t *testing.T) {
	codec := newTestCodec()

	first, err := codec.GenerateKey()
	require.NoError(t, err)
	assert.Len(t, first, 64)

	key, err := cryptoDomain.DecodeKeyMaterial(first)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	second, err := codec.GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestEnvelopeCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec()

	t.Run("without context", func(t *testing.T) {
		envelope, err := codec.Encrypt([]byte("plain payload"), testKey(), "", nil)
		require.NoError(t, err)
		require.NoError(t, envelope.Validate())
		assert.Empty(t, envelope.Context)
		assert.Empty(t, envelope.AADVersion)
		assert.Empty(t, envelope.AADHash)

		plaintext, err := codec.Decrypt(envelope, testKey())
		require.NoError(t, err)
		assert.Equal(t, []byte("plain payload"), plaintext)
	})

	t.Run("with context and metadata", func(t *testing.T) {
		metadata := cryptoDomain.Metadata{
			cryptoDomain.MetadataKeyProvider:      "GARMIN",
			cryptoDomain.MetadataKeyUserID:        "1",
			cryptoDomain.MetadataKeyIntegrationID: "x",
		}
		envelope, err := codec.Encrypt([]byte("token123"), testKey(), cryptoDomain.ContextOAuthToken, metadata)
		require.NoError(t, err)
		require.NoError(t, envelope.Validate())

		assert.Equal(t, "OAUTH_TOKEN::v1", envelope.AADVersion)
		assert.Len(t, envelope.AADHash, cryptoDomain.AADHashLength)
		assert.Len(t, envelope.IV, 16)
		assert.Len(t, envelope.AuthTag, 16)

		plaintext, err := codec.Decrypt(envelope, testKey())
		require.NoError(t, err)
		assert.Equal(t, []byte("token123"), plaintext)
	})

	t.Run("survives storage serialization", func(t *testing.T) {
		envelope, err := codec.Encrypt([]byte("token123"), testKey(), cryptoDomain.ContextAPIKey, nil)
		require.NoError(t, err)

		data, err := envelope.Marshal()
		require.NoError(t, err)

		parsed, err := cryptoDomain.ParseEnvelope(data)
		require.NoError(t, err)

		plaintext, err := codec.Decrypt(parsed, testKey())
		require.NoError(t, err)
		assert.Equal(t, []byte("token123"), plaintext)
	})
}

func TestEnvelopeCodec_IVUniqueness(t *testing.T) {
	codec := newTestCodec()

	first, err := codec.Encrypt([]byte("same plaintext"), testKey(), cryptoDomain.ContextOAuthToken, nil)
	require.NoError(t, err)
	second, err := codec.Encrypt([]byte("same plaintext"), testKey(), cryptoDomain.ContextOAuthToken, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestEnvelopeCodec_EncryptValidation(t *testing.T) {
	codec := newTestCodec()

	t.Run("empty plaintext", func(t *testing.T) {
		_, err := codec.Encrypt(nil, testKey(), "", nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrEmptyPlaintext)
	})

	t.Run("missing key material", func(t *testing.T) {
		_, err := codec.Encrypt([]byte("data"), "", "", nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrMissingKeyMaterial)
	})

	t.Run("malformed key material", func(t *testing.T) {
		_, err := codec.Encrypt([]byte("data"), "not-hex", "", nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeyMaterial)
	})

	t.Run("short key material", func(t *testing.T) {
		_, err := codec.Encrypt([]byte("data"), strings.Repeat("a", 32), "", nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})

	t.Run("unknown context", func(t *testing.T) {
		_, err := codec.Encrypt([]byte("data"), testKey(), cryptoDomain.Context("NOT_A_CONTEXT"), nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrUnknownContext)
	})

	t.Run("disallowed metadata keys listed", func(t *testing.T) {
		metadata := cryptoDomain.Metadata{
			cryptoDomain.MetadataKeyProvider: "GARMIN",
			"email":                          "a@b.c",
			"comment":                        "free text",
		}
		_, err := codec.Encrypt([]byte("data"), testKey(), cryptoDomain.ContextOAuthToken, metadata)
		assert.ErrorIs(t, err, cryptoDomain.ErrDisallowedMetadataKeys)
		assert.ErrorContains(t, err, "comment, email")
	})
}

func TestEnvelopeCodec_ContextBinding(t *testing.T) {
	codec := newTestCodec()

	encrypt := func(t *testing.T) *cryptoDomain.EncryptedEnvelope {
		t.Helper()
		envelope, err := codec.Encrypt([]byte("secret"), testKey(), cryptoDomain.ContextOAuthToken, nil)
		require.NoError(t, err)
		return envelope
	}

	t.Run("wrong aadVersion string fails", func(t *testing.T) {
		envelope := encrypt(t)
		envelope.AADVersion = "HEALTH_DATA::v1"
		envelope.Context = cryptoDomain.ContextHealthData

		_, err := codec.Decrypt(envelope, testKey())
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("stripped context fails", func(t *testing.T) {
		envelope := encrypt(t)
		envelope.Context = ""
		envelope.AADVersion = ""

		_, err := codec.Decrypt(envelope, testKey())
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})
}

func TestEnvelopeCodec_TamperDetection(t *testing.T) {
	codec := newTestCodec()

	envelope, err := codec.Encrypt([]byte("secret"), testKey(), cryptoDomain.ContextOAuthToken, nil)
	require.NoError(t, err)

	t.Run("flipped auth tag bit", func(t *testing.T) {
		tampered := *envelope
		tampered.AuthTag = append([]byte(nil), envelope.AuthTag...)
		tampered.AuthTag[0] ^= 0x01

		_, err := codec.Decrypt(&tampered, testKey())
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("flipped ciphertext bit", func(t *testing.T) {
		tampered := *envelope
		tampered.Ciphertext = append([]byte(nil), envelope.Ciphertext...)
		tampered.Ciphertext[0] ^= 0x01

		_, err := codec.Decrypt(&tampered, testKey())
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := codec.Decrypt(envelope, strings.Repeat("b", 64))
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})
}

func TestEnvelopeCodec_VersionGate(t *testing.T) {
	codec := newTestCodec()

	envelope, err := codec.Encrypt([]byte("secret"), testKey(), "", nil)
	require.NoError(t, err)

	envelope.Version = 2
	_, err = codec.Decrypt(envelope, testKey())
	assert.ErrorIs(t, err, cryptoDomain.ErrVersionMismatch)
}

func TestEnvelopeCodec_ReferenceScenario(t *testing.T) {
	// Key of 64 'a' characters, plaintext "token123", OAUTH_TOKEN context with
	// GARMIN technical metadata.
	codec := newTestCodec()
	metadata := cryptoDomain.Metadata{
		cryptoDomain.MetadataKeyProvider:      "GARMIN",
		cryptoDomain.MetadataKeyUserID:        "1",
		cryptoDomain.MetadataKeyIntegrationID: "x",
	}

	envelope, err := codec.Encrypt([]byte("token123"), testKey(), cryptoDomain.ContextOAuthToken, metadata)
	require.NoError(t, err)
	assert.Equal(t, "OAUTH_TOKEN::v1", envelope.AADVersion)

	plaintext, err := codec.Decrypt(envelope, testKey())
	require.NoError(t, err)
	assert.Equal(t, "token123", string(plaintext))

	_, err = codec.Decrypt(envelope, strings.Repeat("c", 64))
	assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
}

func TestAppendMetadata(t *testing.T) {
	t.Run("entries sorted by key", func(t *testing.T) {
		full := appendMetadata("OAUTH_TOKEN::v1", cryptoDomain.Metadata{
			cryptoDomain.MetadataKeyUserID:        "1",
			cryptoDomain.MetadataKeyProvider:      "GARMIN",
			cryptoDomain.MetadataKeyIntegrationID: "x",
		})
		assert.Equal(t, "OAUTH_TOKEN::v1::integrationId=x|provider=GARMIN|userId=1", full)
	})

	t.Run("empty metadata leaves base unchanged", func(t *testing.T) {
		assert.Equal(t, "OAUTH_TOKEN::v1", appendMetadata("OAUTH_TOKEN::v1", nil))
	})
}

func TestHashAAD(t *testing.T) {
	first := hashAAD("OAUTH_TOKEN::v1::provider=GARMIN")
	second := hashAAD("OAUTH_TOKEN::v1::provider=GARMIN")
	other := hashAAD("OAUTH_TOKEN::v1::provider=FITBIT")

	assert.Len(t, first, cryptoDomain.AADHashLength)
	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
}
