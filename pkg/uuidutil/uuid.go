// Package uuidutil generates identifiers for sessions and file handles.
package uuidutil

import "github.com/google/uuid"

// NewV4 generates a random UUID v4 string.
// Panics if the random source fails.
func NewV4() string {
	return uuid.New().String()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
