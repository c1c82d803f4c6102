package domain

import (
	"time"

	"github.com/google/uuid"
)

// KeyRecord is the registry metadata for one encryption key. It never holds
// raw key bytes; key material lives with the external key source and is passed
// into codec calls by value per invocation.
//
// Exactly one key record is primary at any steady state once the first key has
// been provisioned. The primary key encrypts new data; other active keys stay
// decrypt-capable until every record encrypted under them has migrated.
type KeyRecord struct {
	KeyID       uuid.UUID  // Unique identifier (UUIDv7)
	Version     uint       // Monotonic per key, bumped on each rotation
	IsActive    bool       // Key is usable for decryption
	IsPrimary   bool       // Key is used for new encryptions
	Algorithm   Algorithm  // AEAD scheme tag (e.g. aes-256-gcm)
	CreatedAt   time.Time
	ActivatedAt *time.Time // Set when the key is promoted to primary
	RotatedAt   *time.Time // Set on the old primary when it is demoted
	ExpiresAt   *time.Time
	LastUsedAt  *time.Time
}

// NewKeyRecord builds a registry entry for a freshly generated key. New keys
// start active but non-primary: a key must prove itself through a successful
// migration before promotion.
func NewKeyRecord(version uint, alg Algorithm) *KeyRecord {
	return &KeyRecord{
		KeyID:     uuid.Must(uuid.NewV7()),
		Version:   version,
		IsActive:  true,
		IsPrimary: false,
		Algorithm: alg,
		CreatedAt: time.Now().UTC(),
	}
}
