// Package entitystore implements the EntityStore of spec.md §3: a
// map from entity ID to its content, position, optional bounds, and
// the set of node keys it currently occupies.
package entitystore

import "github.com/arbortree/spatialidx/internal/geom"

// Record is one EntityRecord (spec.md §3). OccupyingKeys has exactly
// one member for a point entity; for a bounded entity under the
// SpanCells policy it holds every node key whose cell intersects the
// entity's bounds. Radius is an independent narrow-phase sphere radius
// used by ray intersection (spec.md §8 scenario 5): a point entity can
// carry one without it affecting Bounds, OccupyingKeys, or node
// placement. Zero means no explicit radius was given.
type Record[K comparable] struct {
	ID            string
	Content       any
	Position      geom.Point3
	Bounds        *geom.Bounds
	Radius        float64
	OccupyingKeys map[K]struct{}
}

// Store is the EntityStore. It is always accessed under the owning
// engine's read-write lock — it has no internal locking of its own,
// matching spec.md §3's ownership rule that IndexEngine exclusively
// owns it.
type Store[K comparable] struct {
	records map[string]*Record[K]
}

// New constructs an empty Store.
func New[K comparable]() *Store[K] {
	return &Store[K]{records: make(map[string]*Record[K])}
}

// Put inserts or replaces the record for id.
func (s *Store[K]) Put(r *Record[K]) { s.records[r.ID] = r }

// Get returns the record for id, if any.
func (s *Store[K]) Get(id string) (*Record[K], bool) {
	r, ok := s.records[id]
	return r, ok
}

// Delete removes the record for id.
func (s *Store[K]) Delete(id string) { delete(s.records, id) }

// Len returns the number of entities in the store.
func (s *Store[K]) Len() int { return len(s.records) }

// Range calls f for every record; f must not mutate the store.
func (s *Store[K]) Range(f func(*Record[K]) bool) {
	for _, r := range s.records {
		if !f(r) {
			return
		}
	}
}
