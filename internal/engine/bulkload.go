package engine

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/arbortree/spatialidx/internal/entitystore"
	"github.com/arbortree/spatialidx/internal/geom"
	"github.com/arbortree/spatialidx/internal/node"
	"github.com/arbortree/spatialidx/internal/spatialerr"
)

// BulkItem is one entity to load, in spec.md §4.6 bulk load input
// order.
type BulkItem struct {
	Position geom.Point3
	Content  any
	Bounds   *geom.Bounds
}

// BulkResult reports the outcome of a BulkLoad call: IDs is indexed by
// input position (empty string at the index of a skipped entity);
// FailedIndices lists which input indices were skipped for invalid
// coordinates (spec.md §4.6's partial-failure contract).
type BulkResult struct {
	IDs           []string
	FailedIndices []int
}

type bulkKeyed[K comparable] struct {
	idx int
	key K
}

type bulkEntry struct {
	index    int
	content  any
	bounds   *geom.Bounds
	position geom.Point3
}

type bulkLeaf[K comparable] struct {
	key     K
	level   uint8
	entries []bulkEntry
}

// BulkLoad implements spec.md §4.6 bulk load: compute each entity's
// key at level, sort by key (SFC order maximizes locality), build
// leaves with an explicit recursive split (descending only when a run
// would violate maxEntitiesPerNode, never per-entity), construct
// spatially disjoint partitions in parallel via errgroup, and merge
// into the engine's node map in one write-lock pass — the "deferred
// subdivision, single finalize pass" spec.md §5 describes.
func (e *Engine[K]) BulkLoad(ctx context.Context, items []BulkItem, level uint8) (BulkResult, error) {
	if level > e.backend.MaxLevel() {
		return BulkResult{}, spatialerr.ErrInvalidLevel
	}

	var valid []bulkKeyed[K]
	var failed []int
	for i, it := range items {
		k, err := e.backend.CoordToKey(it.Position, level)
		if err != nil {
			failed = append(failed, i)
			continue
		}
		valid = append(valid, bulkKeyed[K]{idx: i, key: k})
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].key.Less(valid[j].key) })

	numPartitions := runtime.GOMAXPROCS(0)
	if numPartitions > len(valid) {
		numPartitions = len(valid)
	}
	if numPartitions < 1 {
		numPartitions = 1
	}
	chunkSize := (len(valid) + numPartitions - 1) / numPartitions
	if chunkSize == 0 {
		chunkSize = 1
	}

	var partitions [][]bulkKeyed[K]
	for i := 0; i < len(valid); {
		end := i + chunkSize
		if end > len(valid) {
			end = len(valid)
		}
		for end < len(valid) && valid[end].key == valid[end-1].key {
			end++
		}
		partitions = append(partitions, valid[i:end])
		i = end
	}

	leavesPerPartition := make([][]bulkLeaf[K], len(partitions))
	g, gctx := errgroup.WithContext(ctx)
	for pi, part := range partitions {
		pi, part := pi, part
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			leavesPerPartition[pi] = e.buildPartitionLeaves(part, items, level)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BulkResult{}, err
	}

	ids := make([]string, len(items))
	e.mu.Lock()
	defer e.mu.Unlock()

	var inserted int
	for _, leaves := range leavesPerPartition {
		for _, leaf := range leaves {
			n := e.getOrCreateNode(leaf.key)
			for _, entry := range leaf.entries {
				id := e.cfg.IDGenerator.NewID()
				rec := &entitystore.Record[K]{
					ID:            id,
					Content:       entry.content,
					Position:      entry.position,
					Bounds:        entry.bounds,
					OccupyingKeys: map[K]struct{}{leaf.key: {}},
				}
				e.entities.Put(rec)
				n.AddEntity(id)
				ids[entry.index] = id
				inserted++
			}
			e.ensureAncestorChain(leaf.key)
		}
	}
	e.cfg.Metrics.InsertsTotal.Add(float64(inserted))
	e.cfg.Metrics.EntityCount.Add(float64(inserted))

	return BulkResult{IDs: ids, FailedIndices: failed}, nil
}

// buildPartitionLeaves groups one partition's sorted, same-key runs
// and recursively splits any run that would violate
// maxEntitiesPerNode, building purely in-memory leaf descriptions with
// no access to shared engine state (safe to run concurrently across
// partitions).
func (e *Engine[K]) buildPartitionLeaves(part []bulkKeyed[K], items []BulkItem, level uint8) []bulkLeaf[K] {
	var leaves []bulkLeaf[K]
	i := 0
	for i < len(part) {
		j := i + 1
		for j < len(part) && part[j].key == part[i].key {
			j++
		}
		entries := make([]bulkEntry, 0, j-i)
		for _, kk := range part[i:j] {
			it := items[kk.idx]
			entries = append(entries, bulkEntry{index: kk.idx, content: it.Content, bounds: it.Bounds, position: it.Position})
		}
		leaves = append(leaves, e.splitGroup(entries, part[i].key, level)...)
		i = j
	}
	return leaves
}

// splitGroup recursively descends a same-key run one level at a time
// until it fits under maxEntitiesPerNode or hits maxDepth, matching
// spec.md §4.6's "descend until the run fits in one leaf" bulk-load
// rule. If every entry in the run maps to the same child key at the
// next level (the run can't actually be split further, e.g. many
// coincident points), it stops rather than recursing forever.
func (e *Engine[K]) splitGroup(entries []bulkEntry, key K, level uint8) []bulkLeaf[K] {
	if len(entries) <= int(e.cfg.MaxEntitiesPerNode) || level >= e.cfg.MaxDepth {
		return []bulkLeaf[K]{{key: key, level: level, entries: entries}}
	}

	childLevel := level + 1
	byChild := make(map[K][]bulkEntry)
	var order []K
	for _, en := range entries {
		ck, err := e.backend.CoordToKey(en.position, childLevel)
		if err != nil {
			ck = key
		}
		if _, ok := byChild[ck]; !ok {
			order = append(order, ck)
		}
		byChild[ck] = append(byChild[ck], en)
	}
	if len(byChild) <= 1 {
		return []bulkLeaf[K]{{key: key, level: level, entries: entries}}
	}

	var out []bulkLeaf[K]
	for _, ck := range order {
		out = append(out, e.splitGroup(byChild[ck], ck, childLevel)...)
	}
	return out
}

// ensureAncestorChain walks from k up to the root, materializing any
// missing ancestor node and setting the child bit connecting it to the
// level below, so root-anchored traversals (Visitor, Frustum, Plane)
// can reach leaves placed directly at a deep level, by placeEntity or
// by BulkLoad. Stops
// early once it reaches an ancestor that was already connected.
func (e *Engine[K]) ensureAncestorChain(k K) {
	cur := k
	for {
		parent, ok := cur.Parent()
		if !ok {
			return
		}
		pn, existed := e.nodes[parent]
		if !existed {
			pn = node.New(int(e.cfg.MaxEntitiesPerNode))
			e.nodes[parent] = pn
			e.insertSorted(parent)
		}

		alreadyConnected := false
		for slot := uint8(0); slot < 8; slot++ {
			if parent.ChildAt(slot) == cur {
				alreadyConnected = pn.HasChild(slot)
				pn.SetChild(slot)
				break
			}
		}
		if existed && alreadyConnected {
			return
		}
		cur = parent
	}
}
