package model

// HashValue is a hex-encoded content digest.
type HashValue string

// String returns the digest as a string.
func (h HashValue) String() string {
	return string(h)
}

// Short returns the first 8 characters for display.
func (h HashValue) Short() string {
	s := string(h)
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}

// IntegrityState represents the verification status of a catalog entry.
type IntegrityState string

const (
	IntegrityVerified   IntegrityState = "verified"
	IntegrityTampered   IntegrityState = "tampered"
	IntegrityUnverified IntegrityState = "unverified"
	IntegrityMissing    IntegrityState = "missing"
)
