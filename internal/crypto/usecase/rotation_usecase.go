package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
	cryptoService "github.com/healthsync/tokenvault/internal/crypto/service"
	"github.com/healthsync/tokenvault/internal/database"
	apperrors "github.com/healthsync/tokenvault/internal/errors"
	integrationDomain "github.com/healthsync/tokenvault/internal/integration/domain"
	"github.com/healthsync/tokenvault/internal/metrics"
)

// Config holds rotation use case configuration.
type Config struct {
	// BatchSize is the page size for the migration sweep.
	BatchSize uint
	// BatchesPerSecond throttles how many pages per second the sweep reads,
	// keeping rotation from starving the production database. Zero disables
	// throttling.
	BatchesPerSecond float64
}

// rotationUseCase implements RotationUseCase.
//
// A rotation run has three phases: register the new key (active but not
// primary, so concurrent writers keep using the old primary), migrate every
// encrypted record onto the new key in throttled batches, and finally cut
// primacy over inside one transaction. The cutover only happens when at least
// one record was migrated; rotating an empty store leaves the previous primary
// untouched so the registry never points at a key nothing was encrypted with.
type rotationUseCase struct {
	config          Config
	txManager       database.TxManager
	keyRepo         KeyRepository
	integrationRepo IntegrationRepository
	codec           cryptoService.Codec
	keySource       cryptoService.KeySource
	logger          *slog.Logger
	businessMetrics metrics.BusinessMetrics
}

// NewRotationUseCase creates a new rotation use case instance with the
// provided dependencies.
func NewRotationUseCase(
	config Config,
	txManager database.TxManager,
	keyRepo KeyRepository,
	integrationRepo IntegrationRepository,
	codec cryptoService.Codec,
	keySource cryptoService.KeySource,
	logger *slog.Logger,
	businessMetrics metrics.BusinessMetrics,
) RotationUseCase {
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &rotationUseCase{
		config:          config,
		txManager:       txManager,
		keyRepo:         keyRepo,
		integrationRepo: integrationRepo,
		codec:           codec,
		keySource:       keySource,
		logger:          logger,
		businessMetrics: businessMetrics,
	}
}

// Rotate performs a full key rotation run.
//
// The supplied newMaterial becomes the registry's next key. It must be fresh
// 32-byte hex material (typically from Codec.GenerateKey); the caller is
// responsible for installing it in the key source's backing store once the
// returned result reports a successful cutover. Material problems on either
// the old or the new key abort the run before any state changes.
func (r *rotationUseCase) Rotate(
	ctx context.Context,
	newMaterial string,
) (*cryptoDomain.RotationResult, error) {
	start := time.Now()

	oldMaterial, err := r.keySource.Current(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidConfig, err.Error())
	}
	if err := checkMaterial(oldMaterial); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidConfig, "current key material: "+err.Error())
	}
	if err := checkMaterial(newMaterial); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidConfig, "new key material: "+err.Error())
	}

	oldKeyID := cryptoDomain.OldKeyIDNone
	primary, err := r.keyRepo.GetPrimary(ctx)
	switch {
	case err == nil:
		oldKeyID = primary.KeyID.String()
	case apperrors.Is(err, cryptoDomain.ErrKeyRecordNotFound):
		// First provisioning: nothing to demote later.
	default:
		return nil, err
	}

	newRecord, err := r.registerKey(ctx)
	if err != nil {
		return nil, err
	}

	r.logger.Info("key rotation started",
		slog.String("old_key_id", oldKeyID),
		slog.String("new_key_id", newRecord.KeyID.String()),
		slog.Uint64("batch_size", uint64(r.config.BatchSize)),
	)

	migrated, failed, err := r.migrateRecords(ctx, oldMaterial, newMaterial, newRecord)
	if err != nil {
		return nil, err
	}

	if migrated > 0 {
		if err := r.cutover(ctx, newRecord); err != nil {
			r.businessMetrics.RecordOperation(ctx, "rotation", "cutover", "error")
			return nil, err
		}
		r.businessMetrics.RecordOperation(ctx, "rotation", "cutover", "success")
	} else {
		r.logger.Warn("no records migrated, keeping previous primary key",
			slog.String("new_key_id", newRecord.KeyID.String()),
		)
	}

	result := &cryptoDomain.RotationResult{
		OldKeyID:      oldKeyID,
		NewKeyID:      newRecord.KeyID.String(),
		MigratedCount: migrated,
		FailedCount:   failed,
	}

	r.businessMetrics.RecordDuration(ctx, "rotation", "rotate", time.Since(start), "success")
	r.logger.Info("key rotation finished",
		slog.Int("migrated", result.MigratedCount),
		slog.Int("failed", result.FailedCount),
		slog.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

// registerKey persists the new key record with version = newest + 1. The
// record starts active but non-primary so it can already decrypt migrated
// records while writers keep using the old primary.
func (r *rotationUseCase) registerKey(ctx context.Context) (*cryptoDomain.KeyRecord, error) {
	records, err := r.keyRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	version := uint(1)
	if len(records) > 0 {
		version = records[0].Version + 1
	}

	record := cryptoDomain.NewKeyRecord(version, cryptoDomain.AESGCM)
	if err := r.keyRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// migrateRecords sweeps every integration holding encrypted credentials and
// re-encrypts each one under the new key. A failing record is logged and
// counted, then the sweep moves on; only infrastructure errors (listing a
// page) abort the run.
func (r *rotationUseCase) migrateRecords(
	ctx context.Context,
	oldMaterial string,
	newMaterial string,
	newRecord *cryptoDomain.KeyRecord,
) (migrated int, failed int, err error) {
	var limiter *rate.Limiter
	if r.config.BatchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.config.BatchesPerSecond), 1)
	}

	var offset uint
	for {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return migrated, failed, err
			}
		}

		batch, err := r.integrationRepo.ListEncrypted(ctx, r.config.BatchSize, offset)
		if err != nil {
			return migrated, failed, err
		}
		if len(batch) == 0 {
			break
		}

		for _, integration := range batch {
			if err := r.migrateRecord(ctx, integration, oldMaterial, newMaterial, newRecord); err != nil {
				failed++
				r.businessMetrics.RecordOperation(ctx, "rotation", "migrate_record", "error")
				r.logger.Error("failed to migrate record",
					slog.String("integration_id", integration.ID.String()),
					slog.String("provider", integration.Provider),
					slog.Any("error", err),
				)
				continue
			}
			migrated++
			r.businessMetrics.RecordOperation(ctx, "rotation", "migrate_record", "success")
		}

		r.logger.Info("migrated batch",
			slog.Uint64("offset", uint64(offset)),
			slog.Int("batch_count", len(batch)),
			slog.Int("migrated", migrated),
			slog.Int("failed", failed),
		)

		offset += uint(len(batch))
	}

	return migrated, failed, nil
}

// migrateRecord re-encrypts one integration's credentials: parse the stored
// envelope, decrypt under the old key, encrypt under the new key with the
// original context and metadata rebuilt from the record itself, and persist
// the swap with the key annotation.
func (r *rotationUseCase) migrateRecord(
	ctx context.Context,
	integration *integrationDomain.Integration,
	oldMaterial string,
	newMaterial string,
	newRecord *cryptoDomain.KeyRecord,
) error {
	envelope, err := cryptoDomain.ParseEnvelope(integration.EncryptedCredentials)
	if err != nil {
		return err
	}

	plaintext, err := r.codec.Decrypt(envelope, oldMaterial)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(plaintext)

	reencrypted, err := r.codec.Encrypt(
		plaintext,
		newMaterial,
		envelope.Context,
		rebuildMetadata(integration, envelope),
	)
	if err != nil {
		return err
	}

	data, err := reencrypted.Marshal()
	if err != nil {
		return err
	}

	return r.integrationRepo.UpdateCredentials(
		ctx,
		integration.ID,
		data,
		newRecord.KeyID,
		time.Now().UTC(),
	)
}

// cutover atomically demotes every primary key and promotes the new one.
// Running both updates inside one transaction guarantees the registry is
// never observable with zero or two primary keys.
func (r *rotationUseCase) cutover(ctx context.Context, newRecord *cryptoDomain.KeyRecord) error {
	now := time.Now().UTC()
	return r.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := r.keyRepo.DemotePrimary(ctx, now); err != nil {
			return err
		}
		return r.keyRepo.Promote(ctx, newRecord.KeyID, now)
	})
}

// VerifyRotation checks the exactly-one-primary invariant of the registry.
func (r *rotationUseCase) VerifyRotation(ctx context.Context) (*cryptoDomain.RotationStatus, error) {
	records, err := r.keyRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	status := &cryptoDomain.RotationStatus{
		PrimaryKeyID: cryptoDomain.OldKeyIDNone,
		TotalKeys:    len(records),
	}

	primaries := 0
	for _, record := range records {
		if record.IsPrimary {
			primaries++
			status.PrimaryKeyID = record.KeyID.String()
		}
	}
	status.IsValid = primaries == 1

	return status, nil
}

// checkMaterial validates hex key material without retaining the decoded bytes.
func checkMaterial(material string) error {
	key, err := cryptoDomain.DecodeKeyMaterial(material)
	if err != nil {
		return err
	}
	cryptoDomain.Zero(key)
	return nil
}

// rebuildMetadata reconstructs the whitelisted technical metadata for
// re-encryption from the integration record, which is authoritative for the
// provider/user/integration identity. The stored envelope only carries the
// AAD hash, not the metadata itself.
func rebuildMetadata(
	integration *integrationDomain.Integration,
	envelope *cryptoDomain.EncryptedEnvelope,
) cryptoDomain.Metadata {
	if envelope.Context == "" {
		return nil
	}
	return cryptoDomain.Metadata{
		cryptoDomain.MetadataKeyProvider:      integration.Provider,
		cryptoDomain.MetadataKeyUserID:        integration.UserID,
		cryptoDomain.MetadataKeyIntegrationID: integration.ID.String(),
	}
}
