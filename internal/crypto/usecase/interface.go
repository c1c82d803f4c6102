// Package usecase implements business logic orchestration for the key
// rotation workflow.
//
// The rotation use case coordinates the key registry, the integration store
// and the envelope codec: it registers a fresh key, re-encrypts every stored
// credential envelope under it in throttled batches, and atomically moves
// primacy to the new key once at least one record has been migrated. Per-record
// failures are isolated and counted so one corrupted envelope can never abort
// a fleet-wide migration.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
	integrationDomain "github.com/healthsync/tokenvault/internal/integration/domain"
)

// KeyRepository defines the interface for key registry persistence.
//
// List returns records ordered by version descending (newest first), which
// the rotation workflow relies on to derive the next version. DemotePrimary
// and Promote are the two halves of the primacy cutover and are expected to
// run inside one transaction via database.TxManager.
type KeyRepository interface {
	// Create stores a new key record in the registry.
	Create(ctx context.Context, record *cryptoDomain.KeyRecord) error

	// List retrieves all key records ordered by version descending.
	List(ctx context.Context) ([]*cryptoDomain.KeyRecord, error)

	// GetPrimary retrieves the current primary key record. Returns
	// cryptoDomain.ErrKeyRecordNotFound when no key has been promoted.
	GetPrimary(ctx context.Context) (*cryptoDomain.KeyRecord, error)

	// DemotePrimary clears the primary flag on all currently-primary records.
	DemotePrimary(ctx context.Context, rotatedAt time.Time) error

	// Promote marks the given key record as primary.
	Promote(ctx context.Context, keyID uuid.UUID, activatedAt time.Time) error
}

// IntegrationRepository defines the subset of integration persistence the
// rotation workflow needs: a stable paged sweep over encrypted records and
// the credential swap for each migrated record.
type IntegrationRepository interface {
	// ListEncrypted retrieves a page of integrations holding encrypted
	// credentials, in a stable order.
	ListEncrypted(ctx context.Context, limit uint, offset uint) ([]*integrationDomain.Integration, error)

	// UpdateCredentials replaces the encrypted credentials of an integration
	// and annotates it with the encrypting key and migration time.
	UpdateCredentials(
		ctx context.Context,
		id uuid.UUID,
		encryptedCredentials []byte,
		encryptionKeyID uuid.UUID,
		migratedAt time.Time,
	) error
}

// RotationUseCase defines the key rotation business logic operations.
type RotationUseCase interface {
	// Rotate registers a key for the supplied fresh material, migrates every
	// encrypted record onto it, and promotes it to primary when at least one
	// record was migrated. Individual record failures are counted in the
	// result, never fatal.
	Rotate(ctx context.Context, newMaterial string) (*cryptoDomain.RotationResult, error)

	// VerifyRotation reports whether the registry holds exactly one primary key.
	VerifyRotation(ctx context.Context) (*cryptoDomain.RotationStatus, error)
}
