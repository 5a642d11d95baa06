// Package idgen defines the pluggable entity-ID generator spec.md §6
// requires the core to consume through a small interface, without
// owning generator *strategy selection* itself (spec.md §1 Non-goal).
package idgen

import "github.com/google/uuid"

// Generator produces opaque, totally ordered, hashable entity IDs.
// The core never inspects an ID beyond equality and ordering.
type Generator interface {
	NewID() string
}

// UUIDGenerator is the default Generator, producing random (v4) UUIDs.
type UUIDGenerator struct{}

// NewID returns a new random UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
