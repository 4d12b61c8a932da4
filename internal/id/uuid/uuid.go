// Package uuid provides correlation ID generation for ticks and HTTP requests.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates UUID v7 strings. v7 IDs sort by creation time, so tick
// IDs in the log file order the same way the ticks ran.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUID7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// MustNewID returns a UUID7 string, falling back to a random v4 when the
// v7 generator fails.
func (g Generator) MustNewID() string {
	id, err := g.NewID()
	if err != nil {
		return uuid.NewString()
	}
	return id
}
