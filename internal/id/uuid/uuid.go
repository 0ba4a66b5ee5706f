// Package uuid generates request identifiers.
package uuid

import (
	"github.com/google/uuid"
)

// Generator creates time-ordered UUID strings.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string, falling back to v4 if the clock source fails.
func (Generator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
