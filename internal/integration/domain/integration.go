// Package domain defines the core domain models for third-party provider
// integrations. An integration stores the provider credentials (OAuth tokens
// or API keys) for one user, encrypted at rest as a serialized envelope.
package domain

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	appvalidation "github.com/healthsync/tokenvault/internal/validation"
)

// Integration represents one user's connection to an upstream provider.
type Integration struct {
	// ID is the unique identifier of this integration.
	ID uuid.UUID
	// UserID identifies the owning user.
	UserID string
	// Provider is the upstream provider identifier (e.g., "GARMIN").
	Provider string
	// EncryptedCredentials holds the serialized encrypted envelope for the
	// provider credentials. Empty when the integration has been disconnected.
	EncryptedCredentials []byte
	// EncryptionKeyID references the registry key that encrypted the
	// credentials (nil for records written before key tracking existed).
	EncryptionKeyID *uuid.UUID
	// MigratedAt is the UTC timestamp of the last key rotation migration
	// that re-encrypted this record (nil if never migrated).
	MigratedAt *time.Time
	// CreatedAt is the UTC timestamp when the integration was created.
	CreatedAt time.Time
	// UpdatedAt is the UTC timestamp of the last credentials update.
	UpdatedAt time.Time
}

// Validate checks the integration fields against the domain rules.
func (i *Integration) Validate() error {
	err := validation.ValidateStruct(
		i,
		validation.Field(&i.UserID, validation.Required, appvalidation.NotBlank),
		validation.Field(&i.Provider, validation.Required, appvalidation.Provider),
	)
	return appvalidation.WrapValidationError(err)
}

// NewIntegration creates an integration for a user and provider with
// a time-ordered identifier.
func NewIntegration(userID, provider string, encryptedCredentials []byte) *Integration {
	now := time.Now().UTC()
	return &Integration{
		ID:                   uuid.Must(uuid.NewV7()),
		UserID:               userID,
		Provider:             provider,
		EncryptedCredentials: encryptedCredentials,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}
