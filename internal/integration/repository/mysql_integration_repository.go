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

// MySQLIntegrationRepository implements Integration persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLIntegrationRepository struct {
	db *sql.DB
}

// NewMySQLIntegrationRepository creates a new MySQL Integration repository instance.
func NewMySQLIntegrationRepository(db *sql.DB) *MySQLIntegrationRepository {
	return &MySQLIntegrationRepository{db: db}
}

// Create inserts a new integration into the MySQL database.
func (m *MySQLIntegrationRepository) Create(
	ctx context.Context,
	integration *integrationDomain.Integration,
) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := integration.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal integration id")
	}

	var keyIDBytes []byte
	if integration.EncryptionKeyID != nil {
		keyIDBytes, err = integration.EncryptionKeyID.MarshalBinary()
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal encryption key id")
		}
	}

	query := `INSERT INTO integrations
			  (id, user_id, provider, encrypted_credentials, encryption_key_id, migrated_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		idBytes,
		integration.UserID,
		integration.Provider,
		integration.EncryptedCredentials,
		keyIDBytes,
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
func (m *MySQLIntegrationRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*integrationDomain.Integration, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal integration id")
	}

	query := `SELECT id, user_id, provider, encrypted_credentials, encryption_key_id, migrated_at, created_at, updated_at
			  FROM integrations
			  WHERE id = ?`

	integration, err := scanIntegration(querier.QueryRowContext(ctx, query, idBytes).Scan)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return integration, nil
}

// ListEncrypted retrieves a page of integrations holding encrypted
// credentials, ordered by id so repeated sweeps see a stable sequence.
func (m *MySQLIntegrationRepository) ListEncrypted(
	ctx context.Context,
	limit uint,
	offset uint,
) ([]*integrationDomain.Integration, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, provider, encrypted_credentials, encryption_key_id, migrated_at, created_at, updated_at
			  FROM integrations
			  WHERE encrypted_credentials IS NOT NULL AND length(encrypted_credentials) > 0
			  ORDER BY id
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encrypted integrations")
	}
	defer func() {
		_ = rows.Close()
	}()

	var integrations []*integrationDomain.Integration
	for rows.Next() {
		integration, err := scanIntegration(rows.Scan)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, integration)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate integrations")
	}

	return integrations, nil
}

// UpdateCredentials replaces the encrypted credentials of an integration and
// records which key produced them and when the migration happened.
func (m *MySQLIntegrationRepository) UpdateCredentials(
	ctx context.Context,
	id uuid.UUID,
	encryptedCredentials []byte,
	encryptionKeyID uuid.UUID,
	migratedAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal integration id")
	}
	keyIDBytes, err := encryptionKeyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal encryption key id")
	}

	query := `UPDATE integrations
			  SET encrypted_credentials = ?,
			      encryption_key_id = ?,
			      migrated_at = ?,
			      updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		encryptedCredentials,
		keyIDBytes,
		migratedAt,
		migratedAt,
		idBytes,
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

// scanIntegration scans an integration row, decoding BINARY(16) identifiers.
func scanIntegration(scan func(dest ...any) error) (*integrationDomain.Integration, error) {
	var (
		integration integrationDomain.Integration
		idBytes     []byte
		keyIDBytes  []byte
	)

	err := scan(
		&idBytes,
		&integration.UserID,
		&integration.Provider,
		&integration.EncryptedCredentials,
		&keyIDBytes,
		&integration.MigratedAt,
		&integration.CreatedAt,
		&integration.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to scan integration")
	}

	id, err := uuid.FromBytes(idBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse integration id")
	}
	integration.ID = id

	if len(keyIDBytes) > 0 {
		keyID, err := uuid.FromBytes(keyIDBytes)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse encryption key id")
		}
		integration.EncryptionKeyID = &keyID
	}

	return &integration, nil
}
