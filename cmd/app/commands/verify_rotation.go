package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoUsecase "github.com/healthsync/tokenvault/internal/crypto/usecase"
)

// RunVerifyRotation checks the key registry's exactly-one-primary invariant
// and prints the registry status. An invalid registry is returned as an error
// so the process exits non-zero, making the command usable as a health probe.
func RunVerifyRotation(
	ctx context.Context,
	rotationUseCase cryptoUsecase.RotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
) error {
	status, err := rotationUseCase.VerifyRotation(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify rotation: %w", err)
	}

	fmt.Fprintf(writer, "Key registry status:\n")
	fmt.Fprintf(writer, "  Total keys:   %d\n", status.TotalKeys)
	fmt.Fprintf(writer, "  Primary key:  %s\n", status.PrimaryKeyID)
	fmt.Fprintf(writer, "  Valid:        %t\n", status.IsValid)

	if !status.IsValid {
		logger.Error("key registry is invalid",
			slog.Int("total_keys", status.TotalKeys),
			slog.String("primary_key_id", status.PrimaryKeyID),
		)
		return fmt.Errorf("key registry invalid: expected exactly one primary key")
	}

	logger.Info("key registry verified",
		slog.Int("total_keys", status.TotalKeys),
		slog.String("primary_key_id", status.PrimaryKeyID),
	)

	return nil
}
