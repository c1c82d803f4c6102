package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"

	// Register secrets keeper drivers for key unwrapping
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// EnvKeySource supplies key material injected explicitly from configuration.
// There are no implicit environment reads here: config owns the lookup and
// hands the value over once, which keeps the codec and orchestrator free of
// global state.
type EnvKeySource struct {
	material string
}

// NewEnvKeySource creates a key source around explicitly supplied material.
func NewEnvKeySource(material string) *EnvKeySource {
	return &EnvKeySource{material: material}
}

// Current returns the configured key material. Absence is a hard failure.
func (s *EnvKeySource) Current(_ context.Context) (string, error) {
	if s.material == "" {
		return "", cryptoDomain.ErrMissingKeyMaterial
	}
	return s.material, nil
}

// KeeperKeySource supplies key material stored wrapped under a secrets keeper
// (Vault transit, cloud KMS, or base64key:// for development). The wrapped
// blob is unwrapped on demand; the plaintext hex key is never persisted by
// this package. Supported keeper URIs: hashivault://, gcpkms://, awskms://,
// azurekeyvault://, base64key://.
type KeeperKeySource struct {
	keeperURI  string
	ciphertext string
}

// NewKeeperKeySource creates a key source that unwraps the base64-encoded
// ciphertext through the keeper at the given URI.
func NewKeeperKeySource(keeperURI, ciphertext string) *KeeperKeySource {
	return &KeeperKeySource{keeperURI: keeperURI, ciphertext: ciphertext}
}

// Current unwraps and returns the key material as a hex string.
func (s *KeeperKeySource) Current(ctx context.Context) (string, error) {
	if s.keeperURI == "" || s.ciphertext == "" {
		return "", cryptoDomain.ErrMissingKeyMaterial
	}

	keeper, err := secrets.OpenKeeper(ctx, s.keeperURI)
	if err != nil {
		return "", fmt.Errorf("failed to open secrets keeper: %w", err)
	}
	defer func() { _ = keeper.Close() }()

	wrapped, err := base64.StdEncoding.DecodeString(s.ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not valid base64: %v", cryptoDomain.ErrInvalidKeyMaterial, err)
	}

	material, err := keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return "", fmt.Errorf("failed to unwrap key material: %w", err)
	}

	return string(material), nil
}

// WrapKeyMaterial wraps hex key material under the keeper at the given URI and
// returns the base64-encoded ciphertext suitable for ENCRYPTION_KEY_CIPHERTEXT.
// Used by the generate-key command when a keeper is configured.
func WrapKeyMaterial(ctx context.Context, keeperURI, material string) (string, error) {
	keeper, err := secrets.OpenKeeper(ctx, keeperURI)
	if err != nil {
		return "", fmt.Errorf("failed to open secrets keeper: %w", err)
	}
	defer func() { _ = keeper.Close() }()

	wrapped, err := keeper.Encrypt(ctx, []byte(material))
	if err != nil {
		return "", fmt.Errorf("failed to wrap key material: %w", err)
	}

	return base64.StdEncoding.EncodeToString(wrapped), nil
}
