package engine

// VisitResult is a Visitor callback's return value (spec.md §4.8).
type VisitResult int

const (
	// Continue proceeds with traversal as normal.
	Continue VisitResult = iota
	// SkipSubtree skips the rest of the current node's subtree.
	// Returned from VisitNodePre (either strategy), it skips that
	// node's entities, children and VisitNodePost; returned from
	// VisitEntity in a depth-first walk, it skips the node's remaining
	// entities and its children, and VisitNodePost still runs.
	// Anywhere else it acts as Continue.
	SkipSubtree
	// Terminate stops traversal immediately.
	Terminate
)

// Visitor is spec.md §4.8's callback set. Any nil callback is treated
// as always returning Continue. depth is the key's own Level(); parent
// is the zero K value with ok=false at the root.
type Visitor[K comparable] struct {
	VisitNodePre  func(k K, parent K, parentOK bool, depth uint8) VisitResult
	VisitEntity   func(k K, depth uint8, entityID string) VisitResult
	VisitNodePost func(k K, parent K, parentOK bool, depth uint8) VisitResult
}

// WalkDepthFirst implements spec.md §4.8's depth-first (pre-order)
// traversal strategy, serialized under the read lock for its entire
// duration; the visitor must not call back into the engine.
func (e *Engine[K]) WalkDepthFirst(v Visitor[K]) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	e.walkDF(e.backend.Root(), zeroKey[K](), false, 0, v)
}

func (e *Engine[K]) walkDF(k, parent K, parentOK bool, depth uint8, v Visitor[K]) VisitResult {
	n, ok := e.nodes[k]
	if !ok {
		return Continue
	}

	if v.VisitNodePre != nil {
		switch v.VisitNodePre(k, parent, parentOK, depth) {
		case Terminate:
			return Terminate
		case SkipSubtree:
			return Continue
		}
	}

	skipChildren := false
	if v.VisitEntity != nil {
	entityLoop:
		for _, id := range n.Entities() {
			switch v.VisitEntity(k, depth, id) {
			case Terminate:
				return Terminate
			case SkipSubtree:
				skipChildren = true
				break entityLoop
			}
		}
	}

	if !skipChildren {
		for slot := uint8(0); slot < 8; slot++ {
			if n.HasChild(slot) {
				if r := e.walkDF(k.ChildAt(slot), k, true, depth+1, v); r == Terminate {
					return Terminate
				}
			}
		}
	}

	if v.VisitNodePost != nil {
		if v.VisitNodePost(k, parent, parentOK, depth) == Terminate {
			return Terminate
		}
	}
	return Continue
}

// WalkBreadthFirst implements spec.md §4.8's breadth-first
// (level-order) traversal strategy.
func (e *Engine[K]) WalkBreadthFirst(v Visitor[K]) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	type frame struct {
		k        K
		parent   K
		parentOK bool
		depth    uint8
	}
	queue := []frame{{k: e.backend.Root(), depth: 0}}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]

		n, ok := e.nodes[f.k]
		if !ok {
			continue
		}

		if v.VisitNodePre != nil {
			switch v.VisitNodePre(f.k, f.parent, f.parentOK, f.depth) {
			case Terminate:
				return
			case SkipSubtree:
				continue
			}
		}

		if v.VisitEntity != nil {
			for _, id := range n.Entities() {
				if v.VisitEntity(f.k, f.depth, id) == Terminate {
					return
				}
			}
		}

		for slot := uint8(0); slot < 8; slot++ {
			if n.HasChild(slot) {
				queue = append(queue, frame{k: f.k.ChildAt(slot), parent: f.k, parentOK: true, depth: f.depth + 1})
			}
		}

		if v.VisitNodePost != nil {
			if v.VisitNodePost(f.k, f.parent, f.parentOK, f.depth) == Terminate {
				return
			}
		}
	}
}

func zeroKey[K comparable]() K {
	var z K
	return z
}
