package domain

// OldKeyIDNone is the sentinel reported in RotationResult.OldKeyID when no key
// record was primary before the rotation (first provisioning).
const OldKeyIDNone = "none"

// RotationResult summarizes one rotation run. Immutable once returned.
type RotationResult struct {
	OldKeyID      string
	NewKeyID      string
	MigratedCount int
	FailedCount   int
}

// RotationStatus is the registry health report produced by verification.
// IsValid holds iff exactly one key record is primary.
type RotationStatus struct {
	IsValid      bool
	PrimaryKeyID string
	TotalKeys    int
}
