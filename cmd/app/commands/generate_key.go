package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoService "github.com/healthsync/tokenvault/internal/crypto/service"
)

// RunGenerateKey generates fresh key material and writes it to the output.
//
// The hex form is what ENCRYPTION_KEY expects. When a keeper URI is supplied
// the material is also wrapped through the keeper so the operator can store
// ENCRYPTION_KEY_CIPHERTEXT instead of the raw key.
func RunGenerateKey(
	ctx context.Context,
	codec cryptoService.Codec,
	logger *slog.Logger,
	writer io.Writer,
	keeperURI string,
) error {
	material, err := codec.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate key material: %w", err)
	}

	fmt.Fprintf(writer, "Encryption key (hex):\n%s\n", material)

	if keeperURI != "" {
		wrapped, err := cryptoService.WrapKeyMaterial(ctx, keeperURI, material)
		if err != nil {
			return fmt.Errorf("failed to wrap key material: %w", err)
		}
		fmt.Fprintf(writer, "\nKeeper-wrapped key (base64, for ENCRYPTION_KEY_CIPHERTEXT):\n%s\n", wrapped)
	}

	logger.Info("generated new encryption key material",
		slog.Bool("keeper_wrapped", keeperURI != ""),
	)

	return nil
}
