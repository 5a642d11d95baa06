package engine

import (
	"time"

	"github.com/arbortree/spatialidx/internal/geom"
	"github.com/arbortree/spatialidx/internal/pool"
)

// KNN implements spec.md §4.6 k-nearest-neighbor search: a pooled
// bounded max-heap seeded from the node containing q, expanded outward
// via the backend's neighbor enumeration until the closest unvisited
// node is farther than the heap's current worst distance. Each visited
// node is descended into whichever children it actually has before
// testing entities, so a node a prior subdivide pushed past level is
// still reached.
func (e *Engine[K]) KNN(q geom.Point3, k int, maxDist float64, level uint8) ([]pool.Candidate, error) {
	if k <= 0 {
		return nil, nil
	}

	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()
	defer func() {
		e.cfg.Metrics.QueriesTotal.WithLabelValues("knn").Inc()
		e.cfg.Metrics.QueryLatency.WithLabelValues("knn").Observe(time.Since(start).Seconds())
	}()

	seed, err := e.backend.CoordToKey(q, level)
	if err != nil {
		return nil, err
	}

	heap := pool.AcquireMaxHeap(k)
	defer pool.ReleaseMaxHeap(heap)

	visited := make(map[K]struct{}, 64)

	frontier := []K{seed}
	maxDistSq := maxDist * maxDist
	if maxDist <= 0 {
		maxDistSq = -1 // no cap
	}

	for len(frontier) > 0 {
		next := frontier[:0:0]
		progressed := false

		for _, nk := range frontier {
			if _, ok := visited[nk]; ok {
				continue
			}
			visited[nk] = struct{}{}

			aabb := e.backend.NodeAABB(nk)
			distSq := aabb.DistSqToPoint(q)
			if maxDistSq >= 0 && distSq > maxDistSq {
				continue
			}
			if worst, ok := heap.Worst(); ok && heap.Full() && distSq > worst.Distance {
				continue
			}

			progressed = true
			e.descendEntities(nk, func(b geom.Bounds) bool {
				d := b.DistSqToPoint(q)
				if maxDistSq >= 0 && d > maxDistSq {
					return false
				}
				if worst, ok := heap.Worst(); ok && heap.Full() && d > worst.Distance {
					return false
				}
				return true
			}, func(id string) {
				rec, ok := e.entities.Get(id)
				if !ok {
					return
				}
				d := rec.Position.DistSq(q)
				if maxDistSq >= 0 && d > maxDistSq {
					return
				}
				heap.Offer(pool.Candidate{ID: id, Distance: d})
			})

			for _, nb := range e.backend.Neighbors(nk) {
				if _, ok := visited[nb]; ok {
					continue
				}
				if _, ok := e.nodes[nb]; !ok {
					continue
				}
				nbAABB := e.backend.NodeAABB(nb)
				nbDistSq := nbAABB.DistSqToPoint(q)
				if worst, ok := heap.Worst(); ok && heap.Full() && nbDistSq > worst.Distance {
					continue
				}
				next = append(next, nb)
			}
		}

		if !progressed {
			break
		}
		frontier = next
	}

	return heap.Sorted(), nil
}
