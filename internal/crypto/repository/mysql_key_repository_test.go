package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
)

func keyIDBytes(t *testing.T, record *cryptoDomain.KeyRecord) []byte {
	t.Helper()
	b, err := record.KeyID.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMySQLKeyRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewMySQLKeyRepository(db)
	record := cryptoDomain.NewKeyRecord(1, cryptoDomain.AESGCM)

	mock.ExpectExec("INSERT INTO encryption_keys").
		WithArgs(
			keyIDBytes(t, record), record.Version, record.IsActive, record.IsPrimary,
			record.Algorithm, record.CreatedAt, record.ActivatedAt,
			record.RotatedAt, record.ExpiresAt, record.LastUsedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), record)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLKeyRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewMySQLKeyRepository(db)
	now := time.Now().UTC()
	record := cryptoDomain.NewKeyRecord(1, cryptoDomain.AESGCM)

	rows := sqlmock.NewRows(keyColumns).
		AddRow(keyIDBytes(t, record), record.Version, true, true, record.Algorithm, now, now, nil, nil, nil)

	mock.ExpectQuery("SELECT (.+) FROM encryption_keys ORDER BY version DESC").
		WillReturnRows(rows)

	records, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.KeyID, records[0].KeyID)
	assert.True(t, records[0].IsPrimary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLKeyRepository_GetPrimary(t *testing.T) {
	t.Run("returns primary record", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() {
			_ = db.Close()
		}()

		repo := NewMySQLKeyRepository(db)
		record := cryptoDomain.NewKeyRecord(1, cryptoDomain.AESGCM)
		now := time.Now().UTC()

		rows := sqlmock.NewRows(keyColumns).
			AddRow(keyIDBytes(t, record), record.Version, true, true, record.Algorithm, now, now, nil, nil, nil)

		mock.ExpectQuery("SELECT (.+) FROM encryption_keys").
			WillReturnRows(rows)

		primary, err := repo.GetPrimary(context.Background())
		require.NoError(t, err)
		assert.Equal(t, record.KeyID, primary.KeyID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no primary yields not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() {
			_ = db.Close()
		}()

		repo := NewMySQLKeyRepository(db)

		mock.ExpectQuery("SELECT (.+) FROM encryption_keys").
			WillReturnRows(sqlmock.NewRows(keyColumns))

		_, err = repo.GetPrimary(context.Background())
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLKeyRepository_Cutover(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewMySQLKeyRepository(db)
	record := cryptoDomain.NewKeyRecord(2, cryptoDomain.AESGCM)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE encryption_keys SET is_primary = false").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE encryption_keys SET is_primary = true").
		WithArgs(now, keyIDBytes(t, record)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DemotePrimary(context.Background(), now))
	require.NoError(t, repo.Promote(context.Background(), record.KeyID, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
