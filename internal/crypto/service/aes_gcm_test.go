package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestNewAESGCM(t *testing.T) {
	t.Run("accepts 32-byte key", func(t *testing.T) {
		aead, err := NewAESGCM(randomKey(t))
		require.NoError(t, err)
		assert.NotNil(t, aead)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := NewAESGCM(make([]byte, 16))
		assert.Error(t, err)
	})
}

func TestAESGCMCipher_RoundTrip(t *testing.T) {
	aead, err := NewAESGCM(randomKey(t))
	require.NoError(t, err)

	plaintext := []byte("sensitive token")
	aad := []byte("OAUTH_TOKEN::v1")

	ciphertext, nonce, tag, err := aead.Encrypt(plaintext, aad)
	require.NoError(t, err)
	assert.Len(t, nonce, cryptoDomain.IVSize)
	assert.Len(t, tag, cryptoDomain.TagSize)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := aead.Decrypt(ciphertext, nonce, tag, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESGCMCipher_AADMismatch(t *testing.T) {
	aead, err := NewAESGCM(randomKey(t))
	require.NoError(t, err)

	ciphertext, nonce, tag, err := aead.Encrypt([]byte("data"), []byte("context-a"))
	require.NoError(t, err)

	_, err = aead.Decrypt(ciphertext, nonce, tag, []byte("context-b"))
	assert.Error(t, err)

	_, err = aead.Decrypt(ciphertext, nonce, tag, nil)
	assert.Error(t, err)
}

func TestAESGCMCipher_UniqueNonces(t *testing.T) {
	aead, err := NewAESGCM(randomKey(t))
	require.NoError(t, err)

	_, firstNonce, _, err := aead.Encrypt([]byte("data"), nil)
	require.NoError(t, err)
	_, secondNonce, _, err := aead.Encrypt([]byte("data"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, firstNonce, secondNonce)
}

func TestAESGCMCipher_TamperedTag(t *testing.T) {
	aead, err := NewAESGCM(randomKey(t))
	require.NoError(t, err)

	ciphertext, nonce, tag, err := aead.Encrypt([]byte("data"), nil)
	require.NoError(t, err)

	tag[len(tag)-1] ^= 0x80
	_, err = aead.Decrypt(ciphertext, nonce, tag, nil)
	assert.Error(t, err)
}
