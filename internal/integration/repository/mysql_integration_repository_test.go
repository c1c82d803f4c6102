package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	integrationDomain "github.com/healthsync/tokenvault/internal/integration/domain"
)

func uuidBytes(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	b, err := id.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMySQLIntegrationRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewMySQLIntegrationRepository(db)
	integration := integrationDomain.NewIntegration("user-1", "GARMIN", []byte(`{"version":1}`))

	mock.ExpectExec("INSERT INTO integrations").
		WithArgs(
			uuidBytes(t, integration.ID), integration.UserID, integration.Provider,
			integration.EncryptedCredentials, []byte(nil),
			integration.MigratedAt, integration.CreatedAt, integration.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), integration)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLIntegrationRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewMySQLIntegrationRepository(db)
	integration := integrationDomain.NewIntegration("user-1", "GARMIN", []byte(`{"version":1}`))
	keyID := uuid.Must(uuid.NewV7())

	rows := sqlmock.NewRows(integrationColumns).AddRow(
		uuidBytes(t, integration.ID), integration.UserID, integration.Provider,
		integration.EncryptedCredentials, uuidBytes(t, keyID), nil,
		integration.CreatedAt, integration.UpdatedAt,
	)

	mock.ExpectQuery("SELECT (.+) FROM integrations WHERE id").
		WithArgs(uuidBytes(t, integration.ID)).
		WillReturnRows(rows)

	found, err := repo.Get(context.Background(), integration.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.ID, found.ID)
	require.NotNil(t, found.EncryptionKeyID)
	assert.Equal(t, keyID, *found.EncryptionKeyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLIntegrationRepository_UpdateCredentials(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewMySQLIntegrationRepository(db)
	id := uuid.Must(uuid.NewV7())
	keyID := uuid.Must(uuid.NewV7())
	migratedAt := time.Now().UTC()
	credentials := []byte(`{"version":1}`)

	mock.ExpectExec("UPDATE integrations SET encrypted_credentials").
		WithArgs(credentials, uuidBytes(t, keyID), migratedAt, migratedAt, uuidBytes(t, id)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateCredentials(context.Background(), id, credentials, keyID, migratedAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
