// Package repository implements persistence for the encryption key registry.
//
// The registry stores key metadata only — identifiers, versions, lifecycle
// timestamps and the active/primary flags. Raw key material never reaches
// this package. Repositories exist for PostgreSQL (native UUID/BYTEA types)
// and MySQL (BINARY(16) UUIDs), and all operations are transaction-aware via
// database.GetTx(): the rotation cutover demotes the old primary and promotes
// the new key inside a single transaction, so the registry can never be
// observed with zero or two primary keys after a crash.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
	"github.com/healthsync/tokenvault/internal/database"
	apperrors "github.com/healthsync/tokenvault/internal/errors"
)

// PostgreSQLKeyRepository implements key registry persistence for PostgreSQL.
//
// Database schema:
//   - key_id: UUID PRIMARY KEY
//   - version: INTEGER (monotonic per key)
//   - is_active: BOOLEAN (key usable for decryption)
//   - is_primary: BOOLEAN (key used for new encryptions)
//   - algorithm: TEXT (AEAD scheme tag)
//   - created_at / activated_at / rotated_at / expires_at / last_used_at:
//     TIMESTAMP WITH TIME ZONE (lifecycle markers, all but created_at nullable)
type PostgreSQLKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLKeyRepository creates a new PostgreSQL key registry repository.
func NewPostgreSQLKeyRepository(db *sql.DB) *PostgreSQLKeyRepository {
	return &PostgreSQLKeyRepository{db: db}
}

// Create inserts a new key record into the registry.
func (p *PostgreSQLKeyRepository) Create(ctx context.Context, record *cryptoDomain.KeyRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO encryption_keys
			  (key_id, version, is_active, is_primary, algorithm, created_at, activated_at, rotated_at, expires_at, last_used_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.KeyID,
		record.Version,
		record.IsActive,
		record.IsPrimary,
		record.Algorithm,
		record.CreatedAt,
		record.ActivatedAt,
		record.RotatedAt,
		record.ExpiresAt,
		record.LastUsedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create key record")
	}
	return nil
}

// List retrieves all key records ordered by version descending (newest first).
// The ordering lets callers derive the next rotation version from the head.
func (p *PostgreSQLKeyRepository) List(ctx context.Context) ([]*cryptoDomain.KeyRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT key_id, version, is_active, is_primary, algorithm, created_at, activated_at, rotated_at, expires_at, last_used_at
			  FROM encryption_keys
			  ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list key records")
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*cryptoDomain.KeyRecord
	for rows.Next() {
		var record cryptoDomain.KeyRecord

		err := rows.Scan(
			&record.KeyID,
			&record.Version,
			&record.IsActive,
			&record.IsPrimary,
			&record.Algorithm,
			&record.CreatedAt,
			&record.ActivatedAt,
			&record.RotatedAt,
			&record.ExpiresAt,
			&record.LastUsedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan key record")
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate key records")
	}

	return records, nil
}

// GetPrimary retrieves the current primary key record, or
// ErrKeyRecordNotFound when no key has been promoted yet.
func (p *PostgreSQLKeyRepository) GetPrimary(ctx context.Context) (*cryptoDomain.KeyRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT key_id, version, is_active, is_primary, algorithm, created_at, activated_at, rotated_at, expires_at, last_used_at
			  FROM encryption_keys
			  WHERE is_primary = true`

	var record cryptoDomain.KeyRecord
	err := querier.QueryRowContext(ctx, query).Scan(
		&record.KeyID,
		&record.Version,
		&record.IsActive,
		&record.IsPrimary,
		&record.Algorithm,
		&record.CreatedAt,
		&record.ActivatedAt,
		&record.RotatedAt,
		&record.ExpiresAt,
		&record.LastUsedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, cryptoDomain.ErrKeyRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get primary key record")
	}

	return &record, nil
}

// DemotePrimary clears the primary flag on every currently-primary key record
// and stamps their rotation time. Bulk update by predicate: part one of the
// cutover, expected to run inside the same transaction as Promote.
func (p *PostgreSQLKeyRepository) DemotePrimary(ctx context.Context, rotatedAt time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE encryption_keys
			  SET is_primary = false,
			      rotated_at = $1
			  WHERE is_primary = true`

	_, err := querier.ExecContext(ctx, query, rotatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to demote primary key records")
	}
	return nil
}

// Promote marks the key record as primary and stamps its activation time.
// Part two of the cutover.
func (p *PostgreSQLKeyRepository) Promote(ctx context.Context, keyID uuid.UUID, activatedAt time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE encryption_keys
			  SET is_primary = true,
			      activated_at = $1
			  WHERE key_id = $2`

	result, err := querier.ExecContext(ctx, query, activatedAt, keyID)
	if err != nil {
		return apperrors.Wrap(err, "failed to promote key record")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read promote result")
	}
	if affected == 0 {
		return cryptoDomain.ErrKeyRecordNotFound
	}

	return nil
}
