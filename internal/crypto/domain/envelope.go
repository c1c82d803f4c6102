// Package domain defines the core domain models for encryption at rest.
//
// It models the encrypted envelope stored alongside integration records, the
// key registry metadata used for rotation, and the context/metadata rules that
// bind ciphertext to its purpose via additional authenticated data (AAD).
// Raw key material is never part of these models; it is supplied per call by
// the key source and wiped after use.
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// EncryptedEnvelope is the storage representation of one ciphertext.
//
// Byte fields serialize as base64 through encoding/json. The envelope carries
// everything decryption needs except the key: the IV, the detached GCM tag,
// the format version gate, and the exact base AAD string bound at encryption
// time. AADHash is audit-only and is never consulted for trust decisions.
type EncryptedEnvelope struct {
	Version    int       `json:"version"`
	Ciphertext []byte    `json:"ciphertext"`
	IV         []byte    `json:"iv"`
	AuthTag    []byte    `json:"authTag"`
	CreatedAt  time.Time `json:"createdAt"`
	Context    Context   `json:"context,omitempty"`
	AADVersion string    `json:"aadVersion,omitempty"`
	AADHash    string    `json:"aadHash,omitempty"`
}

// Validate checks the structural invariants of the envelope.
//
// If a context is present the stored base AAD string must be present as well,
// since decryption reconstructs the AAD verbatim from it. The reverse also
// holds: a base AAD without a context has no meaning.
func (e *EncryptedEnvelope) Validate() error {
	if e.Version <= 0 {
		return fmt.Errorf("%w: version must be positive", ErrMalformedEnvelope)
	}
	if len(e.Ciphertext) == 0 {
		return fmt.Errorf("%w: empty ciphertext", ErrMalformedEnvelope)
	}
	if len(e.IV) != IVSize {
		return fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMalformedEnvelope, IVSize, len(e.IV))
	}
	if len(e.AuthTag) != TagSize {
		return fmt.Errorf("%w: auth tag must be %d bytes, got %d", ErrMalformedEnvelope, TagSize, len(e.AuthTag))
	}
	if e.Context != "" {
		if !KnownContext(e.Context) {
			return fmt.Errorf("%w: %s", ErrUnknownContext, e.Context)
		}
		if e.AADVersion == "" {
			return fmt.Errorf("%w: context present without aadVersion", ErrMalformedEnvelope)
		}
	} else if e.AADVersion != "" {
		return fmt.Errorf("%w: aadVersion present without context", ErrMalformedEnvelope)
	}
	return nil
}

// Marshal serializes the envelope for storage.
func (e *EncryptedEnvelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return data, nil
}

// ParseEnvelope deserializes and validates a stored envelope.
func ParseEnvelope(data []byte) (*EncryptedEnvelope, error) {
	var envelope EncryptedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := envelope.Validate(); err != nil {
		return nil, err
	}
	return &envelope, nil
}

// ValidateMetadata checks that every metadata key is on the technical
// whitelist. The returned error names each offending key, sorted, so the
// caller knows exactly what to remove.
func ValidateMetadata(metadata Metadata) error {
	var disallowed []string
	for key := range metadata {
		if _, ok := allowedMetadataKeys[key]; !ok {
			disallowed = append(disallowed, key)
		}
	}
	if len(disallowed) == 0 {
		return nil
	}
	sort.Strings(disallowed)
	return fmt.Errorf("%w: %s", ErrDisallowedMetadataKeys, strings.Join(disallowed, ", "))
}
