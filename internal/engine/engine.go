// Package engine implements the key-generic IndexEngine spec.md §4.6
// describes: a sorted map from SpatialKey to Node, an EntityStore, and
// the insert/remove/update/lookup/subdivide operations that mutate
// them under a single read-write lock. Exactly one type parameter K
// selects the backend (morton.Key or tetra.Key) at instantiation time,
// replacing the inheritance-based node hierarchy spec.md §9 calls out
// for removal.
package engine

import (
	"sort"
	"sync"

	"github.com/arbortree/spatialidx/internal/entitystore"
	"github.com/arbortree/spatialidx/internal/geom"
	"github.com/arbortree/spatialidx/internal/idgen"
	"github.com/arbortree/spatialidx/internal/key"
	"github.com/arbortree/spatialidx/internal/node"
	"github.com/arbortree/spatialidx/internal/obs"
	"github.com/arbortree/spatialidx/internal/spatialerr"
)

// SpanningPolicy selects how a bounded entity's occupying-key set is
// computed (spec.md §6).
type SpanningPolicy int

const (
	// SingleCell stores a bounded entity once, at the node containing
	// its center.
	SingleCell SpanningPolicy = iota
	// SpanCells stores a bounded entity at every node whose cell
	// intersects its bounds.
	SpanCells
)

// Config configures an Engine at construction. New does not validate
// the fields; it fills in defaults for zero values, and there is no
// mutation after construction.
type Config struct {
	MaxEntitiesPerNode uint16
	MaxDepth           uint8
	SpanningPolicy     SpanningPolicy
	IDGenerator        idgen.Generator
	Metrics            *obs.Metrics
}

func (c *Config) setDefaults() {
	if c.MaxEntitiesPerNode == 0 {
		c.MaxEntitiesPerNode = 16
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = key.MaxLevel
	}
	if c.IDGenerator == nil {
		c.IDGenerator = idgen.UUIDGenerator{}
	}
	if c.Metrics == nil {
		c.Metrics = obs.NewMetrics("")
	}
}

// Engine is the IndexEngine. K is the backend's key type; backend
// carries the actual coordinate<->key and neighbor-enumeration logic
// (internal/key.Backend), so Engine itself never special-cases cubic
// vs tetrahedral.
type Engine[K key.Spatial[K]] struct {
	mu      sync.RWMutex
	backend key.Backend[K]
	cfg     Config

	nodes      map[K]*node.Node
	sortedKeys []K // kept sorted; searched with sort.Search
	entities   *entitystore.Store[K]
}

// New constructs an Engine over the given backend and configuration.
func New[K key.Spatial[K]](backend key.Backend[K], cfg Config) *Engine[K] {
	cfg.setDefaults()
	e := &Engine[K]{
		backend:  backend,
		cfg:      cfg,
		nodes:    make(map[K]*node.Node),
		entities: entitystore.New[K](),
	}
	root := backend.Root()
	e.nodes[root] = node.New(int(cfg.MaxEntitiesPerNode))
	e.sortedKeys = []K{root}
	return e
}

// insertSorted inserts k into e.sortedKeys, keeping it sorted, unless
// already present. Must be called with the write lock held.
func (e *Engine[K]) insertSorted(k K) {
	i := sort.Search(len(e.sortedKeys), func(i int) bool { return !e.sortedKeys[i].Less(k) })
	if i < len(e.sortedKeys) && e.sortedKeys[i] == k {
		return
	}
	e.sortedKeys = append(e.sortedKeys, k)
	copy(e.sortedKeys[i+1:], e.sortedKeys[i:])
	e.sortedKeys[i] = k
}

// removeSorted removes k from e.sortedKeys. Must be called with the
// write lock held.
func (e *Engine[K]) removeSorted(k K) {
	i := sort.Search(len(e.sortedKeys), func(i int) bool { return !e.sortedKeys[i].Less(k) })
	if i < len(e.sortedKeys) && e.sortedKeys[i] == k {
		e.sortedKeys = append(e.sortedKeys[:i], e.sortedKeys[i+1:]...)
	}
}

// getOrCreateNode returns the Node at k, creating an empty one (and
// registering k in sortedKeys) if absent. Must be called with the
// write lock held.
func (e *Engine[K]) getOrCreateNode(k K) *node.Node {
	n, ok := e.nodes[k]
	if ok {
		return n
	}
	n = node.New(int(e.cfg.MaxEntitiesPerNode))
	e.nodes[k] = n
	e.insertSorted(k)
	return n
}

// Insert implements spec.md §4.6 insert: a point entity at position,
// stored at the node containing it at level.
func (e *Engine[K]) Insert(position geom.Point3, level uint8, content any) (string, error) {
	if level > e.backend.MaxLevel() {
		return "", spatialerr.ErrInvalidLevel
	}
	k, err := e.backend.CoordToKey(position, level)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.cfg.IDGenerator.NewID()
	rec := &entitystore.Record[K]{
		ID:            id,
		Content:       content,
		Position:      position,
		OccupyingKeys: map[K]struct{}{},
	}
	e.entities.Put(rec)

	e.placeEntity(rec, false, k, k, level)
	e.cfg.Metrics.InsertsTotal.Inc()
	e.cfg.Metrics.EntityCount.Inc()
	return id, nil
}

// InsertSphere implements spec.md §4.6 insert for a point entity that
// additionally carries a narrow-phase sphere radius (spec.md §8
// scenario 5), used only by Ray; it does not affect node placement or
// OccupyingKeys, which behave exactly as Insert's.
func (e *Engine[K]) InsertSphere(position geom.Point3, level uint8, content any, radius float64) (string, error) {
	if level > e.backend.MaxLevel() {
		return "", spatialerr.ErrInvalidLevel
	}
	k, err := e.backend.CoordToKey(position, level)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.cfg.IDGenerator.NewID()
	rec := &entitystore.Record[K]{
		ID:            id,
		Content:       content,
		Position:      position,
		Radius:        radius,
		OccupyingKeys: map[K]struct{}{},
	}
	e.entities.Put(rec)

	e.placeEntity(rec, false, k, k, level)
	e.cfg.Metrics.InsertsTotal.Inc()
	e.cfg.Metrics.EntityCount.Inc()
	return id, nil
}

// InsertBounded implements spec.md §4.6 insert_bounded: a bounded
// entity, whose occupying-key set depends on the engine's spanning
// policy.
func (e *Engine[K]) InsertBounded(position geom.Point3, level uint8, content any, bounds geom.Bounds) (string, error) {
	if level > e.backend.MaxLevel() {
		return "", spatialerr.ErrInvalidLevel
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	keys, err := e.occupyingKeysForBounds(position, bounds, level)
	if err != nil {
		return "", err
	}

	id := e.cfg.IDGenerator.NewID()
	b := bounds
	rec := &entitystore.Record[K]{
		ID:            id,
		Content:       content,
		Position:      position,
		Bounds:        &b,
		OccupyingKeys: map[K]struct{}{},
	}
	e.entities.Put(rec)

	for _, k := range keys {
		e.placeEntity(rec, false, k, k, level)
	}
	e.cfg.Metrics.InsertsTotal.Inc()
	e.cfg.Metrics.EntityCount.Inc()
	return id, nil
}

// occupyingKeysForBounds computes the key set a bounded entity should
// occupy at level, per the engine's spanning policy.
func (e *Engine[K]) occupyingKeysForBounds(position geom.Point3, bounds geom.Bounds, level uint8) ([]K, error) {
	if e.cfg.SpanningPolicy == SingleCell {
		k, err := e.backend.CoordToKey(position, level)
		if err != nil {
			return nil, err
		}
		return []K{k}, nil
	}

	kMin, kMax, err := e.backend.EnclosingKeysForBox(bounds, level)
	if err != nil {
		return nil, err
	}
	var keys []K
	for k := kMin; ; {
		if e.backend.NodeAABB(k).Intersects(bounds) {
			keys = append(keys, k)
		}
		next, ok := e.backend.Next(k)
		if !ok || k == kMax {
			break
		}
		k = next
	}
	if len(keys) == 0 {
		// The center cell always qualifies even if the range walk
		// over- or under-shoots at domain edges.
		k, err := e.backend.CoordToKey(position, level)
		if err != nil {
			return nil, err
		}
		keys = []K{k}
	}
	return keys, nil
}

// subdivide implements spec.md §4.6 subdivide(K): redistributes every
// entity at k into its children at level+1, then clears k's own
// entity list. Must be called with the write lock held.
//
// Redistribution goes through placeEntity rather than a direct
// getOrCreateNode+AddEntity, because a child key can itself already be
// internal by the time this runs — e.g. many entities sharing the same
// coarse cell cascade through several levels in a single Insert, each
// redistribution landing in a child that a sibling entity's own
// redistribution just subdivided further. placeEntity's descent (and,
// if needed, its own recursive subdivide) is what keeps every entity
// resting in an actual leaf instead of piling back up in a node that
// setChildBitsFor already marked as internal.
func (e *Engine[K]) subdivide(k K, level uint8) error {
	n, ok := e.nodes[k]
	if !ok {
		return nil
	}
	ids := n.Snapshot()
	childLevel := level + 1

	for _, id := range ids {
		rec, ok := e.entities.Get(id)
		if !ok {
			continue
		}
		if rec.Bounds != nil && e.cfg.SpanningPolicy == SpanCells {
			childKeys, err := e.occupyingKeysForBounds(rec.Position, *rec.Bounds, childLevel)
			if err != nil {
				continue
			}
			delete(rec.OccupyingKeys, k)
			e.setChildBitsFor(k, childKeys)
			for _, ck := range childKeys {
				e.placeEntity(rec, false, ck, ck, childLevel)
			}
			continue
		}

		ck, err := e.backend.CoordToKey(rec.Position, childLevel)
		if err != nil {
			continue
		}
		e.setChildBitsFor(k, []K{ck})
		e.placeEntity(rec, true, k, ck, childLevel)
	}

	n.Clear()
	return nil
}

// placeEntity adds rec to the node that actually houses its position,
// starting the search at (k, level) and, if that node has already been
// subdivided by an earlier redistribution, continuing down through its
// children (computed the same way CoordToKey would for a fresh insert,
// and created if missing) until it reaches a leaf or MaxDepth — an
// internal node's entity list must stay empty (spec.md §3/§4.5), so a
// new arrival can never simply be appended to one. The resting node is
// then linked to the root through ensureAncestorChain, so root-down
// traversals reach it. hasOldKey/oldKey name
// the occupying key to remove from rec.OccupyingKeys, if any (Insert
// and InsertBounded pass hasOldKey=false for a brand-new record).
// Recurses into subdivide when the resting node now exceeds
// MaxEntitiesPerNode.
func (e *Engine[K]) placeEntity(rec *entitystore.Record[K], hasOldKey bool, oldKey K, k K, level uint8) {
	n := e.getOrCreateNode(k)
	for !n.IsLeaf() && level < e.cfg.MaxDepth {
		nextLevel := level + 1
		nk, err := e.backend.CoordToKey(rec.Position, nextLevel)
		if err != nil {
			break
		}
		k, level = nk, nextLevel
		n = e.getOrCreateNode(k)
	}
	e.ensureAncestorChain(k)

	if hasOldKey {
		delete(rec.OccupyingKeys, oldKey)
	}
	rec.OccupyingKeys[k] = struct{}{}

	if splitNeeded := n.AddEntity(rec.ID); splitNeeded && level < e.cfg.MaxDepth {
		e.subdivide(k, level)
	}
}

// setChildBitsFor marks k's child-occupancy bitmask for each key in
// childKeys that is actually a direct child of k (spanning policies
// can land an entity in a non-direct descendant when the backend's
// child enumeration skips levels; this guards that).
func (e *Engine[K]) setChildBitsFor(k K, childKeys []K) {
	n := e.nodes[k]
	for slot := uint8(0); slot < 8; slot++ {
		want := k.ChildAt(slot)
		for _, ck := range childKeys {
			if ck == want {
				n.SetChild(slot)
				break
			}
		}
	}
}

// Remove implements spec.md §4.6 remove(id).
func (e *Engine[K]) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.entities.Get(id)
	if !ok {
		return spatialerr.ErrEntityNotFound
	}

	for k := range rec.OccupyingKeys {
		n, ok := e.nodes[k]
		if !ok {
			continue
		}
		if emptyNeeded := n.RemoveEntity(id); emptyNeeded {
			delete(e.nodes, k)
			e.removeSorted(k)
			e.clearChildBit(k)
		}
	}
	e.entities.Delete(id)
	e.cfg.Metrics.RemovesTotal.Inc()
	e.cfg.Metrics.EntityCount.Dec()
	return nil
}

// clearChildBit clears k's bit in its parent's child bitmask, per
// spec.md §4.6 remove's "requires one parent() call".
func (e *Engine[K]) clearChildBit(k K) {
	parent, ok := k.Parent()
	if !ok {
		return
	}
	pn, ok := e.nodes[parent]
	if !ok {
		return
	}
	for slot := uint8(0); slot < 8; slot++ {
		if parent.ChildAt(slot) == k {
			pn.ClearChild(slot)
			return
		}
	}
}

// Update implements spec.md §4.6 update(id, new_position, level).
func (e *Engine[K]) Update(id string, newPosition geom.Point3, level uint8) error {
	if level > e.backend.MaxLevel() {
		return spatialerr.ErrInvalidLevel
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.entities.Get(id)
	if !ok {
		return spatialerr.ErrEntityNotFound
	}

	newKey, err := e.backend.CoordToKey(newPosition, level)
	if err != nil {
		return err
	}

	if rec.Bounds == nil && len(rec.OccupyingKeys) == 1 {
		var oldKey K
		for k := range rec.OccupyingKeys {
			oldKey = k
		}
		if oldKey == newKey {
			rec.Position = newPosition
			e.cfg.Metrics.UpdatesTotal.Inc()
			return nil
		}
	}

	// General case: remove then re-insert under the same ID, atomic
	// with respect to readers since both happen under this write lock.
	for k := range rec.OccupyingKeys {
		n, ok := e.nodes[k]
		if !ok {
			continue
		}
		if emptyNeeded := n.RemoveEntity(id); emptyNeeded {
			delete(e.nodes, k)
			e.removeSorted(k)
			e.clearChildBit(k)
		}
	}

	rec.Position = newPosition
	rec.OccupyingKeys = map[K]struct{}{}

	if rec.Bounds != nil {
		keys, err := e.occupyingKeysForBounds(newPosition, *rec.Bounds, level)
		if err != nil {
			return err
		}
		for _, k := range keys {
			e.placeEntity(rec, false, k, k, level)
		}
		e.cfg.Metrics.UpdatesTotal.Inc()
		return nil
	}

	e.placeEntity(rec, false, newKey, newKey, level)
	e.cfg.Metrics.UpdatesTotal.Inc()
	return nil
}

// descendEntities visits every entity actually resting under k,
// pruning by test against each node's AABB along the way. k itself may
// already be internal — entities a prior subdivide() pushed deeper are
// only reachable by following the children it actually has, the same
// way Frustum/Visitor walk the tree, rather than assuming they still
// sit at k's own level. Queries seeded at a caller-chosen level (KNN,
// Range, Ray) call this on every same-level node they visit so a
// cascade past that level never hides entities from them.
func (e *Engine[K]) descendEntities(k K, test func(geom.Bounds) bool, visit func(string)) {
	n, ok := e.nodes[k]
	if !ok {
		return
	}
	if n.IsLeaf() {
		for _, id := range n.Entities() {
			visit(id)
		}
		return
	}
	for slot := uint8(0); slot < 8; slot++ {
		if !n.HasChild(slot) {
			continue
		}
		child := k.ChildAt(slot)
		if test(e.backend.NodeAABB(child)) {
			e.descendEntities(child, test, visit)
		}
	}
}

// Lookup implements spec.md §4.6 lookup(position, level).
func (e *Engine[K]) Lookup(position geom.Point3, level uint8) ([]string, error) {
	if level > e.backend.MaxLevel() {
		return nil, spatialerr.ErrInvalidLevel
	}
	k, err := e.backend.CoordToKey(position, level)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	n, ok := e.nodes[k]
	if !ok {
		return nil, nil
	}
	return n.Snapshot(), nil
}

// Len returns the number of entities currently indexed.
func (e *Engine[K]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.entities.Len()
}
