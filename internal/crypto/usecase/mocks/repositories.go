// Package mocks provides mock implementations for testing the rotation use case.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
	integrationDomain "github.com/healthsync/tokenvault/internal/integration/domain"
)

// MockKeyRepository is a mock implementation of KeyRepository for testing.
type MockKeyRepository struct {
	mock.Mock
}

// Create mocks the Create method of KeyRepository.
func (m *MockKeyRepository) Create(ctx context.Context, record *cryptoDomain.KeyRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// List mocks the List method of KeyRepository.
func (m *MockKeyRepository) List(ctx context.Context) ([]*cryptoDomain.KeyRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.KeyRecord), args.Error(1)
}

// GetPrimary mocks the GetPrimary method of KeyRepository.
func (m *MockKeyRepository) GetPrimary(ctx context.Context) (*cryptoDomain.KeyRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.KeyRecord), args.Error(1)
}

// DemotePrimary mocks the DemotePrimary method of KeyRepository.
func (m *MockKeyRepository) DemotePrimary(ctx context.Context, rotatedAt time.Time) error {
	args := m.Called(ctx, rotatedAt)
	return args.Error(0)
}

// Promote mocks the Promote method of KeyRepository.
func (m *MockKeyRepository) Promote(ctx context.Context, keyID uuid.UUID, activatedAt time.Time) error {
	args := m.Called(ctx, keyID, activatedAt)
	return args.Error(0)
}

// MockIntegrationRepository is a mock implementation of IntegrationRepository for testing.
type MockIntegrationRepository struct {
	mock.Mock
}

// ListEncrypted mocks the ListEncrypted method of IntegrationRepository.
func (m *MockIntegrationRepository) ListEncrypted(
	ctx context.Context,
	limit uint,
	offset uint,
) ([]*integrationDomain.Integration, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*integrationDomain.Integration), args.Error(1)
}

// UpdateCredentials mocks the UpdateCredentials method of IntegrationRepository.
func (m *MockIntegrationRepository) UpdateCredentials(
	ctx context.Context,
	id uuid.UUID,
	encryptedCredentials []byte,
	encryptionKeyID uuid.UUID,
	migratedAt time.Time,
) error {
	args := m.Called(ctx, id, encryptedCredentials, encryptionKeyID, migratedAt)
	return args.Error(0)
}

// MockKeySource is a mock implementation of KeySource for testing.
type MockKeySource struct {
	mock.Mock
}

// Current mocks the Current method of KeySource.
func (m *MockKeySource) Current(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockTxManager is a mock implementation of database.TxManager that invokes
// the callback directly, without a real transaction.
type MockTxManager struct {
	mock.Mock
}

// WithTx records the call and runs fn with the same context.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}
