// Package repository implements data persistence for provider integrations.
// Repositories support both PostgreSQL and MySQL; ListEncrypted provides the
// stable paging order the key rotation migration sweeps over.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/healthsync/tokenvault/internal/database"
	apperrors "github.com/healthsync/tokenvault/internal/errors"
	integrationDomain "github.com/healthsync/tokenvault/internal/integration/domain"
)

// PostgreSQLIntegrationRepository implements Integration persistence for PostgreSQL.
type PostgreSQLIntegrationRepository struct {
	db *sql.DB
}

// NewPostgreSQLIntegrationRepository creates a new PostgreSQL Integration repository instance.
func NewPostgreSQLIntegrationRepository(db *sql.DB) *PostgreSQLIntegrationRepository {
	return &PostgreSQLIntegrationRepository{db: db}
}

// Create inserts a new integration into the PostgreSQL database.
func (p *PostgreSQLIntegrationRepository) Create(
	ctx context.Context,
	integration *integrationDomain.Integration,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO integrations
			  (id, user_id, provider, encrypted_credentials, encryption_key_id, migrated_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		integration.ID,
		integration.UserID,
		integration.Provider,
		integration.EncryptedCredentials,
		integration.EncryptionKeyID,
		integration.MigratedAt,
		integration.CreatedAt,
		integration.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create integration")
	}
	return nil
}

// Get retrieves an integration by its identifier.
func (p *PostgreSQLIntegrationRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*integrationDomain.Integration, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, provider, encrypted_credentials, encryption_key_id, migrated_at, created_at, updated_at
			  FROM integrations
			  WHERE id = $1`

	var integration integrationDomain.Integration
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&integration.ID,
		&integration.UserID,
		&integration.Provider,
		&integration.EncryptedCredentials,
		&integration.EncryptionKeyID,
		&integration.MigratedAt,
		&integration.CreatedAt,
		&integration.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get integration")
	}

	return &integration, nil
}

// ListEncrypted retrieves a page of integrations holding encrypted
// credentials, ordered by id so repeated sweeps see a stable sequence.
func (p *PostgreSQLIntegrationRepository) ListEncrypted(
	ctx context.Context,
	limit uint,
	offset uint,
) ([]*integrationDomain.Integration, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, provider, encrypted_credentials, encryption_key_id, migrated_at, created_at, updated_at
			  FROM integrations
			  WHERE encrypted_credentials IS NOT NULL AND length(encrypted_credentials) > 0
			  ORDER BY id
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encrypted integrations")
	}
	defer func() {
		_ = rows.Close()
	}()

	var integrations []*integrationDomain.Integration
	for rows.Next() {
		var integration integrationDomain.Integration

		err := rows.Scan(
			&integration.ID,
			&integration.UserID,
			&integration.Provider,
			&integration.EncryptedCredentials,
			&integration.EncryptionKeyID,
			&integration.MigratedAt,
			&integration.CreatedAt,
			&integration.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan integration")
		}

		integrations = append(integrations, &integration)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate integrations")
	}

	return integrations, nil
}

// UpdateCredentials replaces the encrypted credentials of an integration and
// records which key produced them and when the migration happened.
func (p *PostgreSQLIntegrationRepository) UpdateCredentials(
	ctx context.Context,
	id uuid.UUID,
	encryptedCredentials []byte,
	encryptionKeyID uuid.UUID,
	migratedAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE integrations
			  SET encrypted_credentials = $1,
			      encryption_key_id = $2,
			      migrated_at = $3,
			      updated_at = $4
			  WHERE id = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		encryptedCredentials,
		encryptionKeyID,
		migratedAt,
		migratedAt,
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update integration credentials")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read update result")
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
