package store

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a new random record id.
func NewID() string {
	return uuid.NewString()
}

// canonicalIDLen is the length of the dashed hex form.
const canonicalIDLen = 36

// ValidID reports whether id is a record id in canonical dashed form.
// Braced, urn and undashed spellings are rejected.
func ValidID(id string) bool {
	id = strings.TrimSpace(id)
	if len(id) != canonicalIDLen {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
