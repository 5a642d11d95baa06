package engine

// Balancer implements spec.md §4.6's TreeBalancer: shouldSplit and
// shouldMerge policy decisions, kept as a standalone value so callers
// can swap in a different policy without touching Engine itself.
// Rebalancing is opt-in — Engine's own Insert/Remove path uses the
// inline threshold check in placeEntity, not this type; Balancer exists
// for callers that want to re-evaluate split/merge decisions outside
// the per-op hot path (e.g. a periodic maintenance pass).
type Balancer struct {
	MaxEntitiesPerNode uint16
	MaxDepth           uint8
	MergeThreshold     uint16
}

// ShouldSplit reports whether a node with count entities at depth
// should be subdivided.
func (b Balancer) ShouldSplit(count int, depth uint8) bool {
	return count >= int(b.MaxEntitiesPerNode) && depth < b.MaxDepth
}

// ShouldMerge reports whether sibling leaves with a combined entity
// count of combinedCount, and no grandchildren, should be merged back
// into their parent.
func (b Balancer) ShouldMerge(combinedCount int, hasGrandchildren bool) bool {
	return !hasGrandchildren && combinedCount <= int(b.MergeThreshold)
}

// Rebalance walks the tree and merges any sibling-leaf group under a
// node whose combined count falls at or below the balancer's merge
// threshold and which has no grandchildren, serialized under the
// write lock (spec.md §4.6: "serialized under the write lock").
func (e *Engine[K]) Rebalance(b Balancer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rebalanceNode(e.backend.Root(), b)
}

func (e *Engine[K]) rebalanceNode(k K, b Balancer) {
	n, ok := e.nodes[k]
	if !ok {
		return
	}
	if n.IsLeaf() {
		return
	}

	var children []K
	for slot := uint8(0); slot < 8; slot++ {
		if !n.HasChild(slot) {
			continue
		}
		children = append(children, k.ChildAt(slot))
	}

	for _, ck := range children {
		e.rebalanceNode(ck, b)
	}

	// Re-read each child's count/leaf-ness after the recursive pass
	// above: a child may have just absorbed its own grandchildren,
	// changing both its count and its leaf status.
	hasGrandchildren := false
	combined := 0
	for _, ck := range children {
		cn, ok := e.nodes[ck]
		if !ok {
			continue
		}
		combined += cn.Count()
		if !cn.IsLeaf() {
			hasGrandchildren = true
		}
	}

	if !b.ShouldMerge(combined, hasGrandchildren) {
		return
	}

	for slot := uint8(0); slot < 8; slot++ {
		if !n.HasChild(slot) {
			continue
		}
		ck := k.ChildAt(slot)
		cn, ok := e.nodes[ck]
		if !ok {
			continue
		}
		for _, id := range cn.Entities() {
			n.AddEntity(id)
			if rec, ok := e.entities.Get(id); ok {
				delete(rec.OccupyingKeys, ck)
				rec.OccupyingKeys[k] = struct{}{}
			}
		}
		delete(e.nodes, ck)
		e.removeSorted(ck)
		n.ClearChild(slot)
	}
}
