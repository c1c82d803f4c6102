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

// MySQLKeyRepository implements key registry persistence for MySQL.
//
// Database schema:
//   - key_id: BINARY(16) PRIMARY KEY (UUID bytes)
//   - version: INT UNSIGNED
//   - is_active / is_primary: BOOLEAN
//   - algorithm: VARCHAR(32)
//   - created_at / activated_at / rotated_at / expires_at / last_used_at:
//     TIMESTAMP(6) (all but created_at nullable)
type MySQLKeyRepository struct {
	db *sql.DB
}

// NewMySQLKeyRepository creates a new MySQL key registry repository.
func NewMySQLKeyRepository(db *sql.DB) *MySQLKeyRepository {
	return &MySQLKeyRepository{db: db}
}

// Create inserts a new key record into the registry.
func (m *MySQLKeyRepository) Create(ctx context.Context, record *cryptoDomain.KeyRecord) error {
	querier := database.GetTx(ctx, m.db)

	keyIDBytes, err := record.KeyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal key id")
	}

	query := `INSERT INTO encryption_keys
			  (key_id, version, is_active, is_primary, algorithm, created_at, activated_at, rotated_at, expires_at, last_used_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		keyIDBytes,
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
func (m *MySQLKeyRepository) List(ctx context.Context) ([]*cryptoDomain.KeyRecord, error) {
	querier := database.GetTx(ctx, m.db)

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
		record, err := scanKeyRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate key records")
	}

	return records, nil
}

// GetPrimary retrieves the current primary key record, or
// ErrKeyRecordNotFound when no key has been promoted yet.
func (m *MySQLKeyRepository) GetPrimary(ctx context.Context) (*cryptoDomain.KeyRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT key_id, version, is_active, is_primary, algorithm, created_at, activated_at, rotated_at, expires_at, last_used_at
			  FROM encryption_keys
			  WHERE is_primary = true`

	record, err := scanKeyRecord(querier.QueryRowContext(ctx, query).Scan)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrKeyRecordNotFound
		}
		return nil, err
	}

	return record, nil
}

// DemotePrimary clears the primary flag on every currently-primary key record
// and stamps their rotation time.
func (m *MySQLKeyRepository) DemotePrimary(ctx context.Context, rotatedAt time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE encryption_keys
			  SET is_primary = false,
			      rotated_at = ?
			  WHERE is_primary = true`

	_, err := querier.ExecContext(ctx, query, rotatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to demote primary key records")
	}
	return nil
}

// Promote marks the key record as primary and stamps its activation time.
func (m *MySQLKeyRepository) Promote(ctx context.Context, keyID uuid.UUID, activatedAt time.Time) error {
	querier := database.GetTx(ctx, m.db)

	keyIDBytes, err := keyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal key id")
	}

	query := `UPDATE encryption_keys
			  SET is_primary = true,
			      activated_at = ?
			  WHERE key_id = ?`

	result, err := querier.ExecContext(ctx, query, activatedAt, keyIDBytes)
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

// scanKeyRecord scans a key registry row, decoding the BINARY(16) key id.
func scanKeyRecord(scan func(dest ...any) error) (*cryptoDomain.KeyRecord, error) {
	var (
		record     cryptoDomain.KeyRecord
		keyIDBytes []byte
	)

	err := scan(
		&keyIDBytes,
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
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to scan key record")
	}

	keyID, err := uuid.FromBytes(keyIDBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse key id")
	}
	record.KeyID = keyID

	return &record, nil
}
