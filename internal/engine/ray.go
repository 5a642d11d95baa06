package engine

import (
	"sort"
	"time"

	"github.com/arbortree/spatialidx/internal/geom"
)

// RayHit is one entity intersection along a ray, ordered by T
// ascending (spec.md §4.6 ray intersection).
type RayHit struct {
	ID string
	T  float64
}

// Ray implements spec.md §4.6 ray intersection: front-to-back
// traversal via the backend's neighbor enumeration, a slab test
// against each node's AABB, and a per-entity shape test for entities
// in nodes the ray actually pierces. Each pierced node is descended
// into whichever children it actually has, so entities a prior
// subdivide pushed past level are still reached.
func (e *Engine[K]) Ray(r geom.Ray, maxT float64, level uint8) ([]RayHit, error) {
	if maxT <= 0 {
		maxT = 1e18
	}

	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()
	defer func() {
		e.cfg.Metrics.QueriesTotal.WithLabelValues("ray").Inc()
		e.cfg.Metrics.QueryLatency.WithLabelValues("ray").Observe(time.Since(start).Seconds())
	}()

	seed, err := e.backend.CoordToKey(r.Origin, level)
	if err != nil {
		seed = e.backend.Root()
	}

	visited := make(map[K]struct{}, 64)
	seen := make(map[string]struct{})
	var hits []RayHit

	frontier := []K{seed}
	for len(frontier) > 0 {
		var next []K
		for _, nk := range frontier {
			if _, ok := visited[nk]; ok {
				continue
			}
			visited[nk] = struct{}{}

			aabb := e.backend.NodeAABB(nk)
			_, _, hit := r.IntersectBounds(aabb, maxT)
			if !hit {
				continue
			}

			e.descendEntities(nk, func(b geom.Bounds) bool {
				_, _, hit := r.IntersectBounds(b, maxT)
				return hit
			}, func(id string) {
				if _, dup := seen[id]; dup {
					return
				}
				rec, ok := e.entities.Get(id)
				if !ok {
					return
				}
				radius := rec.Radius
				if radius == 0 {
					if b := rec.Bounds; b != nil {
						radius = b.Max.Sub(b.Min).Dist(geom.Point3{}) / 2
					}
				}
				if t, ok := r.IntersectSphere(rec.Position, radius); ok && t <= maxT {
					seen[id] = struct{}{}
					hits = append(hits, RayHit{ID: id, T: t})
				}
			})

			for _, nb := range e.backend.Neighbors(nk) {
				if _, ok := visited[nb]; ok {
					continue
				}
				if _, ok := e.nodes[nb]; !ok {
					continue
				}
				if _, _, hit := r.IntersectBounds(e.backend.NodeAABB(nb), maxT); hit {
					next = append(next, nb)
				}
			}
		}
		frontier = next
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].T != hits[j].T {
			return hits[i].T < hits[j].T
		}
		return hits[i].ID < hits[j].ID
	})
	return hits, nil
}
