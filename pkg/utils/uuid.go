package utils

import "github.com/google/uuid"

// NewID returns a random (version 4) UUID string used as a record ID.
func NewID() string {
	return uuid.NewString()
}

// IsID reports whether s is a well-formed UUID.
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
