// Package spatialidx is a generic 3D spatial-indexing core: two
// concrete space-filling-curve backends (a cubic octree over Morton
// codes, and a tetrahedral tree over a level/type-path key) sharing
// one generic engine for insert/update/remove, point lookup, range,
// k-NN, ray intersection, frustum/plane culling, and collision
// detection.
package spatialidx

import (
	"context"

	"github.com/arbortree/spatialidx/internal/engine"
	"github.com/arbortree/spatialidx/internal/morton"
	"github.com/arbortree/spatialidx/internal/obs"
	"github.com/arbortree/spatialidx/internal/tetra"
)

// Octree is a cubic space-partitioning tree keyed by Morton codes.
// Coordinates must lie in [0, 2^21).
type Octree struct {
	eng *engine.Engine[morton.Key]
}

// NewOctree constructs an Octree with the given options.
func NewOctree(opts ...Option) (*Octree, error) {
	cfg := defaultConfig()
	if err := cfg.apply(opts); err != nil {
		return nil, err
	}
	eng := engine.New[morton.Key](morton.New(), toEngineConfig(cfg))
	return &Octree{eng: eng}, nil
}

// TetTree is a tetrahedral space-partitioning tree keyed by a
// (level, type-path) tuple. Coordinates must lie in [0, 2^21)
// (non-negative only, spec.md §6).
type TetTree struct {
	eng *engine.Engine[tetra.Key]
}

// NewTetTree constructs a TetTree with the given options.
func NewTetTree(opts ...Option) (*TetTree, error) {
	cfg := defaultConfig()
	if err := cfg.apply(opts); err != nil {
		return nil, err
	}
	eng := engine.New[tetra.Key](tetra.New(), toEngineConfig(cfg))
	return &TetTree{eng: eng}, nil
}

func toEngineConfig(c *config) engine.Config {
	ec := engine.Config{
		MaxEntitiesPerNode: c.maxEntitiesPerNode,
		MaxDepth:           c.maxDepth,
		SpanningPolicy:     c.spanningPolicy,
		IDGenerator:        c.idGenerator,
	}
	if c.metricsNamespace != "" {
		ec.Metrics = obs.NewMetrics(c.metricsNamespace)
	}
	return ec
}

// context is accepted on the query paths below for cancellation
// consistency with the rest of the Go ecosystem, even though the
// underlying engine's own cancellation primitive is a stop channel
// (spec.md §5); stopChanFromContext bridges the two.

// stopChanFromContext returns a channel that closes when ctx is done,
// bridging context-based cancellation onto the engine's stop-channel
// contract (spec.md §5).
func stopChanFromContext(ctx context.Context) <-chan struct{} {
	return ctx.Done()
}
