// Package pool implements the thread-safe object pools spec.md §4.1's
// ObjectPool row calls for: priority queues, ID sets, and candidate
// slices reused across query paths. Each pool follows the
// Acquire/Release shape of the retrieved arxobject ObjectPool (a
// package-level sync.Pool with a reset-on-release pair of functions),
// generalized from one fixed pooled type to one pool per concern.
package pool

import (
	"container/heap"
	"sort"
	"sync"
)

// Candidate is a (distance, entity ID) pair used by range, k-NN, and
// ray queries — the same shape as the teacher's util.Candidate, keyed
// by string entity ID instead of a uint32 node index since the engine
// exposes entity IDs as opaque strings (spec.md §6).
type Candidate struct {
	ID       string
	Distance float64
}

var candidateSlicePool = sync.Pool{
	New: func() any { return make([]Candidate, 0, 64) },
}

// AcquireCandidateSlice returns a zero-length candidate slice from the
// pool, ready to append to.
func AcquireCandidateSlice() []Candidate {
	return candidateSlicePool.Get().([]Candidate)[:0]
}

// ReleaseCandidateSlice returns s to the pool.
func ReleaseCandidateSlice(s []Candidate) {
	candidateSlicePool.Put(s) //nolint:staticcheck // intentionally retains capacity
}

var idSlicePool = sync.Pool{
	New: func() any { return make([]string, 0, 64) },
}

// AcquireIDSlice returns a zero-length string slice from the pool.
func AcquireIDSlice() []string {
	return idSlicePool.Get().([]string)[:0]
}

// ReleaseIDSlice returns s to the pool.
func ReleaseIDSlice(s []string) {
	idSlicePool.Put(s)
}

var idSetPool = sync.Pool{
	New: func() any { return make(map[string]struct{}, 64) },
}

// AcquireIDSet returns an empty ID set from the pool.
func AcquireIDSet() map[string]struct{} {
	return idSetPool.Get().(map[string]struct{})
}

// ReleaseIDSet clears s and returns it to the pool.
func ReleaseIDSet(s map[string]struct{}) {
	clear(s)
	idSetPool.Put(s)
}

// BoundedMaxHeap is a k-NN candidate heap: a max-heap over Distance
// bounded to Cap entries, so the root is always the current worst of
// the k best candidates seen so far. Mirrors the teacher's
// container/heap-based MaxHeap, generalized with a fixed capacity so
// k-NN search can push unconditionally and let the heap self-trim.
type BoundedMaxHeap struct {
	items []Candidate
	cap   int
}

func (h *BoundedMaxHeap) Len() int            { return len(h.items) }
func (h *BoundedMaxHeap) Less(i, j int) bool  { return h.items[i].Distance > h.items[j].Distance }
func (h *BoundedMaxHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *BoundedMaxHeap) Push(x interface{})  { h.items = append(h.items, x.(Candidate)) }
func (h *BoundedMaxHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// Offer pushes c if the heap has room, or if c beats the current
// worst candidate (the heap root), evicting the root in that case.
// Returns true if c was kept.
func (h *BoundedMaxHeap) Offer(c Candidate) bool {
	if h.Len() < h.cap {
		heap.Push(h, c)
		return true
	}
	if h.Len() > 0 && c.Distance < h.items[0].Distance {
		heap.Pop(h)
		heap.Push(h, c)
		return true
	}
	return false
}

// Full reports whether the heap holds Cap candidates.
func (h *BoundedMaxHeap) Full() bool { return h.Len() >= h.cap }

// Worst returns the current worst (largest-distance) candidate and
// whether the heap is non-empty.
func (h *BoundedMaxHeap) Worst() (Candidate, bool) {
	if h.Len() == 0 {
		return Candidate{}, false
	}
	return h.items[0], true
}

// Sorted drains the heap and returns its contents ascending by
// distance, ties broken by ID ascending (spec.md §6 k-NN ordering).
func (h *BoundedMaxHeap) Sorted() []Candidate {
	out := make([]Candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Candidate)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out
}

var maxHeapPool = sync.Pool{New: func() any { return &BoundedMaxHeap{} }}

// AcquireMaxHeap returns a BoundedMaxHeap from the pool, reset to the
// given capacity.
func AcquireMaxHeap(capacity int) *BoundedMaxHeap {
	h := maxHeapPool.Get().(*BoundedMaxHeap)
	h.items = h.items[:0]
	h.cap = capacity
	return h
}

// ReleaseMaxHeap returns h to the pool.
func ReleaseMaxHeap(h *BoundedMaxHeap) {
	maxHeapPool.Put(h)
}
