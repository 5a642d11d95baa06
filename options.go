package spatialidx

import (
	"fmt"

	"github.com/arbortree/spatialidx/internal/engine"
	"github.com/arbortree/spatialidx/internal/idgen"
)

// SpanningPolicy selects how a bounded entity occupies cells. See
// engine.SpanningPolicy for the underlying semantics.
type SpanningPolicy = engine.SpanningPolicy

const (
	SingleCell = engine.SingleCell
	SpanCells  = engine.SpanCells
)

// config is the resolved construction state an Option mutates.
type config struct {
	maxEntitiesPerNode uint16
	maxDepth           uint8
	spanningPolicy     SpanningPolicy
	idGenerator        idgen.Generator
	metricsNamespace   string
}

func defaultConfig() *config {
	return &config{
		maxEntitiesPerNode: 16,
		maxDepth:           21,
		spanningPolicy:     SingleCell,
	}
}

// Option configures an Octree or TetTree at construction.
type Option func(*config) error

// WithMaxEntitiesPerNode sets the split threshold (spec.md §4.6).
func WithMaxEntitiesPerNode(n uint16) Option {
	return func(c *config) error {
		if n == 0 {
			return fmt.Errorf("%w: max entities per node must be positive", ErrInvalidConfig)
		}
		c.maxEntitiesPerNode = n
		return nil
	}
}

// WithMaxDepth sets the deepest level the tree may subdivide to. Must
// not exceed 21 (spec.md §6 level domain).
func WithMaxDepth(depth uint8) Option {
	return func(c *config) error {
		if depth > 21 {
			return fmt.Errorf("%w: max depth cannot exceed 21", ErrInvalidConfig)
		}
		c.maxDepth = depth
		return nil
	}
}

// WithSpanningPolicy sets the bounded-entity spanning policy
// (SingleCell or SpanCells). Fixed at construction (spec.md §6).
func WithSpanningPolicy(p SpanningPolicy) Option {
	return func(c *config) error {
		c.spanningPolicy = p
		return nil
	}
}

// WithIDGenerator overrides the default UUID entity-ID generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(c *config) error {
		if g == nil {
			return fmt.Errorf("%w: id generator cannot be nil", ErrInvalidConfig)
		}
		c.idGenerator = g
		return nil
	}
}

// WithMetricsNamespace distinguishes this tree's Prometheus metrics
// from another tree instance's in the same process.
func WithMetricsNamespace(ns string) Option {
	return func(c *config) error {
		c.metricsNamespace = ns
		return nil
	}
}

func (c *config) apply(opts []Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}
