package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/healthsync/tokenvault/internal/crypto/domain"
)

// MockRotationUseCase is a mock implementation of RotationUseCase for testing.
type MockRotationUseCase struct {
	mock.Mock
}

// Rotate mocks the Rotate method of RotationUseCase.
func (m *MockRotationUseCase) Rotate(
	ctx context.Context,
	newMaterial string,
) (*cryptoDomain.RotationResult, error) {
	args := m.Called(ctx, newMaterial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.RotationResult), args.Error(1)
}

// VerifyRotation mocks the VerifyRotation method of RotationUseCase.
func (m *MockRotationUseCase) VerifyRotation(ctx context.Context) (*cryptoDomain.RotationStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.RotationStatus), args.Error(1)
}
