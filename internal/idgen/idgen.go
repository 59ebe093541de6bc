// Package idgen generates event identifiers backed by nanoid.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix marks an identifier as an event ID.
var DefaultPrefix = "ev-"

// Alphabet is lower-case only so IDs survive case-insensitive shells and URLs.
var Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// Generate returns a new event ID using the default prefix.
func Generate() (string, error) {
	return GenerateWithPrefix(DefaultPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Plausible reports whether id could have come from Generate. Callers use it
// to reject garbage path segments before touching the store; IDs supplied by
// clients at creation time are not required to pass.
func Plausible(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		if r <= ' ' || r == '/' || r == 0x7f {
			return false
		}
	}
	return !strings.ContainsAny(id, "?#%")
}
