package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
)

// base64key:// keeper with a fixed 32-byte key, local-only, used to exercise
// the keeper-backed source without external infrastructure.
const testKeeperURI = "base64key://c21HYmptNzFOeGQxSWc1RlMwd2o5U2xiekFJcm5vbEM="

func TestEnvKeySource(t *testing.T) {
	t.Run("returns configured material", func(t *testing.T) {
		source := NewEnvKeySource(strings.Repeat("a", 64))
		material, err := source.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("a", 64), material)
	})

	t.Run("absence is a hard failure", func(t *testing.T) {
		source := NewEnvKeySource("")
		_, err := source.Current(context.Background())
		assert.ErrorIs(t, err, cryptoDomain.ErrMissingKeyMaterial)
	})
}

func TestKeeperKeySource(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips wrapped key material", func(t *testing.T) {
		material := strings.Repeat("a", 64)

		wrapped, err := WrapKeyMaterial(ctx, testKeeperURI, material)
		require.NoError(t, err)
		assert.NotEqual(t, material, wrapped)

		source := NewKeeperKeySource(testKeeperURI, wrapped)
		unwrapped, err := source.Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, material, unwrapped)
	})

	t.Run("missing ciphertext is a hard failure", func(t *testing.T) {
		source := NewKeeperKeySource(testKeeperURI, "")
		_, err := source.Current(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrMissingKeyMaterial)
	})

	t.Run("invalid base64 ciphertext rejected", func(t *testing.T) {
		source := NewKeeperKeySource(testKeeperURI, "%%%not-base64%%%")
		_, err := source.Current(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeyMaterial)
	})
}
