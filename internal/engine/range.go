package engine

import (
	"time"

	"github.com/arbortree/spatialidx/internal/geom"
	"github.com/arbortree/spatialidx/internal/key"
)

// rangeIterator implements spec.md §4.7 LazyRangeIterator: it streams
// the keys at a target level whose cell AABB intersects a bounding
// volume, in SFC order, using O(1) additional memory beyond the
// current key. It is not restartable — callers construct a fresh one
// per query.
type rangeIterator[K key.Spatial[K]] struct {
	backend key.Backend[K]
	bounds  geom.Bounds
	kMax    K
	cur     K
	done    bool
	started bool
}

// newRangeIterator computes the enclosing SFC range for bounds at
// level and returns an iterator over it.
func newRangeIterator[K key.Spatial[K]](backend key.Backend[K], bounds geom.Bounds, level uint8) (*rangeIterator[K], error) {
	kMin, kMax, err := backend.EnclosingKeysForBox(bounds, level)
	if err != nil {
		return nil, err
	}
	return &rangeIterator[K]{backend: backend, bounds: bounds, cur: kMin, kMax: kMax}, nil
}

// Next yields the next key in [kMin, kMax] whose cell AABB intersects
// bounds, skipping keys that don't, or ok=false once the range (or the
// domain) is exhausted.
func (it *rangeIterator[K]) Next() (K, bool) {
	for {
		if it.done {
			var zero K
			return zero, false
		}
		if !it.started {
			it.started = true
		} else {
			next, ok := it.backend.Next(it.cur)
			if !ok || it.cur == it.kMax {
				it.done = true
				var zero K
				return zero, false
			}
			it.cur = next
		}
		if it.cur == it.kMax {
			it.done = true
		}
		if it.backend.NodeAABB(it.cur).Intersects(it.bounds) {
			return it.cur, true
		}
		if it.done {
			var zero K
			return zero, false
		}
	}
}

// Range implements spec.md §4.6's range query: stream keys intersecting
// bounds at level via the LazyRangeIterator, descend into whichever
// children each yielded key actually has (a prior subdivide may have
// pushed its entities deeper than level), filter each candidate
// entity's exact position/bounds, and return the union. stop, if
// non-nil, is polled each step and causes early return of the partial
// result accumulated so far (spec.md §5 cancellation contract).
func (e *Engine[K]) Range(bounds geom.Bounds, level uint8, stop <-chan struct{}) ([]string, error) {
	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()
	defer func() {
		e.cfg.Metrics.QueriesTotal.WithLabelValues("range").Inc()
		e.cfg.Metrics.QueryLatency.WithLabelValues("range").Observe(time.Since(start).Seconds())
	}()

	it, err := newRangeIterator[K](e.backend, bounds, level)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for {
		select {
		case <-stop:
			return out, nil
		default:
		}
		k, ok := it.Next()
		if !ok {
			break
		}
		e.descendEntities(k, func(b geom.Bounds) bool { return b.Intersects(bounds) }, func(id string) {
			if _, dup := seen[id]; dup {
				return
			}
			rec, ok := e.entities.Get(id)
			if !ok {
				return
			}
			intersects := false
			if rec.Bounds != nil {
				intersects = rec.Bounds.Intersects(bounds)
			} else {
				intersects = bounds.Contains(rec.Position)
			}
			if intersects {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		})
	}
	return out, nil
}
