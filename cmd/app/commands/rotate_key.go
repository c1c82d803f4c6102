package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	cryptoService "github.com/healthsync/tokenvault/internal/crypto/service"
	cryptoUsecase "github.com/healthsync/tokenvault/internal/crypto/usecase"
	"github.com/healthsync/tokenvault/internal/metrics"
)

// RunRotateKey performs a full key rotation run.
//
// Fresh key material is generated up front and printed once the rotation
// succeeds: the operator must install it as ENCRYPTION_KEY (or wrap it into
// ENCRYPTION_KEY_CIPHERTEXT when a keeper URI is configured) before the next
// process start, since the registry stores key metadata only. When a metrics
// server is supplied it serves the scrape endpoint for the duration of the
// run so migration progress can be observed.
func RunRotateKey(
	ctx context.Context,
	rotationUseCase cryptoUsecase.RotationUseCase,
	codec cryptoService.Codec,
	metricsServer *metrics.Server,
	logger *slog.Logger,
	writer io.Writer,
	keeperURI string,
) error {
	newMaterial, err := codec.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate key material: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if metricsServer != nil {
		group.Go(metricsServer.Start)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown metrics server", slog.Any("error", err))
			}
			if err := group.Wait(); err != nil {
				logger.Error("metrics server error", slog.Any("error", err))
			}
		}()
	}

	result, err := rotationUseCase.Rotate(groupCtx, newMaterial)
	if err != nil {
		return fmt.Errorf("key rotation failed: %w", err)
	}

	fmt.Fprintf(writer, "Key rotation completed:\n")
	fmt.Fprintf(writer, "  Old key ID:   %s\n", result.OldKeyID)
	fmt.Fprintf(writer, "  New key ID:   %s\n", result.NewKeyID)
	fmt.Fprintf(writer, "  Migrated:     %d\n", result.MigratedCount)
	fmt.Fprintf(writer, "  Failed:       %d\n", result.FailedCount)

	if result.MigratedCount > 0 {
		fmt.Fprintf(writer, "\nNew encryption key (hex, install as ENCRYPTION_KEY):\n%s\n", newMaterial)
		if keeperURI != "" {
			wrapped, err := cryptoService.WrapKeyMaterial(ctx, keeperURI, newMaterial)
			if err != nil {
				return fmt.Errorf("failed to wrap new key material: %w", err)
			}
			fmt.Fprintf(writer, "\nKeeper-wrapped key (base64, for ENCRYPTION_KEY_CIPHERTEXT):\n%s\n", wrapped)
		}
	} else {
		fmt.Fprintf(writer, "\nNo records migrated; previous key remains primary and the generated material was discarded.\n")
	}

	return nil
}
