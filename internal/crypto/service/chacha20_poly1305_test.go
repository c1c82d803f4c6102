package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChaCha20Poly1305(t *testing.T) {
	t.Run("accepts 32-byte key", func(t *testing.T) {
		aead, err := NewChaCha20Poly1305(randomKey(t))
		require.NoError(t, err)
		assert.NotNil(t, aead)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := NewChaCha20Poly1305(make([]byte, 16))
		assert.Error(t, err)
	})
}

func TestChaCha20Poly1305Cipher_RoundTrip(t *testing.T) {
	aead, err := NewChaCha20Poly1305(randomKey(t))
	require.NoError(t, err)

	plaintext := []byte("sensitive token")
	aad := []byte("API_KEY::v1")

	ciphertext, nonce, tag, err := aead.Encrypt(plaintext, aad)
	require.NoError(t, err)
	assert.Len(t, nonce, 12)
	assert.Len(t, tag, 16)

	decrypted, err := aead.Decrypt(ciphertext, nonce, tag, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestChaCha20Poly1305Cipher_AADMismatch(t *testing.T) {
	aead, err := NewChaCha20Poly1305(randomKey(t))
	require.NoError(t, err)

	ciphertext, nonce, tag, err := aead.Encrypt([]byte("data"), []byte("context-a"))
	require.NoError(t, err)

	_, err = aead.Decrypt(ciphertext, nonce, tag, []byte("context-b"))
	assert.Error(t, err)
}
