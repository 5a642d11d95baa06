package tetra

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Cache holds the three fixed-size open-addressed tables spec.md
// §4.4 describes: Tet->TetKey (tmIndex), Tet->parent Tet, and
// Tet->parent-type. Each is a pair of parallel arrays indexed by
// hash&(N-1); a collision simply overwrites the slot, trading hit
// rate for O(1), lock-light access. Because Tet values are pure
// (tmIndex/parent are functions, not stateful computations), a
// torn/overwritten read is always safe to discard and recompute —
// this is spec.md §4.4's "cache misses are always safe" contract.
type Cache struct {
	tmIndex    tmIndexTable
	parentTet  parentTetTable
	parentType parentTypeTable
}

const (
	tmIndexSlots    = 65536
	parentTetSlots  = 16384
	parentTypeSlots = 65536
)

// NewCache constructs an empty Cache. TetCache is normally used through
// the process-wide Global instance; NewCache exists for the per-engine
// or per-thread mode spec.md §4.4/§5 call out as optional.
func NewCache() *Cache {
	return &Cache{
		tmIndex:    tmIndexTable{keys: make([]uint64, tmIndexSlots), vals: make([]Key, tmIndexSlots)},
		parentTet:  parentTetTable{keys: make([]uint64, parentTetSlots), vals: make([]Tet, parentTetSlots)},
		parentType: parentTypeTable{keys: make([]uint64, parentTypeSlots), vals: make([]uint8, parentTypeSlots)},
	}
}

// Global is the process-wide Cache every Tet method consults by
// default — created at first use, never torn down, per spec.md §4.4
// / design note in spec.md §9 ("no surprising singletons": its
// lifecycle is exactly this one paragraph).
var Global = NewCache()

// threadLocal mirrors Global's structure for contended workloads
// (spec.md §4.4), one Cache per goroutine-local slot via sync.Pool so
// callers don't need to plumb a cache handle through every call site.
var threadLocal = sync.Pool{New: func() any { return NewCache() }}

// AcquireThreadLocal and ReleaseThreadLocal hand out and return a
// per-goroutine Cache from the thread-local pool.
func AcquireThreadLocal() *Cache  { return threadLocal.Get().(*Cache) }
func ReleaseThreadLocal(c *Cache) { threadLocal.Put(c) }

func tetHash(t Tet) uint64 {
	var buf [11]byte
	binary.LittleEndian.PutUint32(buf[0:4], t.X)
	binary.LittleEndian.PutUint32(buf[4:8], t.Y)
	buf[8] = t.Level
	buf[9] = t.Type
	// Y and Z share no bits of X, so mixing Z in after Level/Type
	// keeps the common (X,Y vary, Level/Type fixed) access pattern
	// from colliding on the low bits xxhash weights most.
	var zbuf [4]byte
	binary.LittleEndian.PutUint32(zbuf[:], t.Z)
	h := xxhash.New()
	h.Write(buf[:])
	h.Write(zbuf[:])
	return h.Sum64()
}

type tmIndexTable struct {
	keys []uint64
	vals []Key
}

func (c *Cache) lookupTMIndex(t Tet) (Key, bool) {
	h := tetHash(t)
	slot := h & uint64(len(c.tmIndex.keys)-1)
	if atomic.LoadUint64(&c.tmIndex.keys[slot]) == h+1 {
		return c.tmIndex.vals[slot], true
	}
	return Key{}, false
}

func (c *Cache) storeTMIndex(t Tet, k Key) {
	h := tetHash(t)
	slot := h & uint64(len(c.tmIndex.keys)-1)
	c.tmIndex.vals[slot] = k
	atomic.StoreUint64(&c.tmIndex.keys[slot], h+1) // +1: 0 means empty
}

type parentTetTable struct {
	keys []uint64
	vals []Tet
}

func (c *Cache) lookupParentTet(t Tet) (Tet, bool) {
	h := tetHash(t)
	slot := h & uint64(len(c.parentTet.keys)-1)
	if atomic.LoadUint64(&c.parentTet.keys[slot]) == h+1 {
		return c.parentTet.vals[slot], true
	}
	return Tet{}, false
}

func (c *Cache) storeParentTet(t, parent Tet) {
	h := tetHash(t)
	slot := h & uint64(len(c.parentTet.keys)-1)
	c.parentTet.vals[slot] = parent
	atomic.StoreUint64(&c.parentTet.keys[slot], h+1)
}

type parentTypeTable struct {
	keys []uint64
	vals []uint8
}

func (c *Cache) lookupParentType(t Tet) (uint8, bool) {
	h := tetHash(t)
	slot := h & uint64(len(c.parentType.keys)-1)
	if atomic.LoadUint64(&c.parentType.keys[slot]) == h+1 {
		return c.parentType.vals[slot], true
	}
	return 0, false
}

func (c *Cache) storeParentType(t Tet, typ uint8) {
	h := tetHash(t)
	slot := h & uint64(len(c.parentType.keys)-1)
	c.parentType.vals[slot] = typ
	atomic.StoreUint64(&c.parentType.keys[slot], h+1)
}

// TMIndexCached returns t.TMIndex(), consulting and populating the
// tmIndex cache per spec.md §4.3 ("Callers MUST consult TetCache
// first; implementations MUST populate it on miss"). On a miss it
// walks the parent chain through ParentCached rather than t.Parent(),
// so the same call also exercises the parent-Tet and parent-type
// tables (spec.md §4.4: all three tables back this hot path).
func (c *Cache) TMIndexCached(t Tet) Key {
	if k, ok := c.lookupTMIndex(t); ok {
		return k
	}
	k := c.tmIndexViaParentChain(t)
	c.storeTMIndex(t, k)
	return k
}

// tmIndexViaParentChain mirrors Tet.TMIndex()'s walk, using
// ParentCached at each step instead of the uncached Parent().
func (c *Cache) tmIndexViaParentChain(t Tet) Key {
	slots := make([]uint8, 0, t.Level)
	cur := t
	for cur.Level > 0 {
		h := cur.CellSize()
		slots = append(slots, octantSlot(cur.X, cur.Y, cur.Z, h))
		parent, _ := c.ParentCached(cur)
		cur = parent
	}
	k := Root()
	for i := len(slots) - 1; i >= 0; i-- {
		k = k.ChildAt(slots[i])
	}
	return k
}

// ParentCached returns t.Parent(), consulting the parent-Tet cache
// first and, on a miss there, the parent-type cache (spec.md §4.4:
// "Consulted when parent-Tet cache misses, so a newly computed type
// can be reused to build parent Tets").
func (c *Cache) ParentCached(t Tet) (Tet, bool) {
	if t.Level == 0 {
		return Tet{}, false
	}
	if parent, ok := c.lookupParentTet(t); ok {
		return parent, true
	}

	h := t.CellSize()
	slot := octantSlot(t.X, t.Y, t.Z, h)

	var parentType uint8
	if pt, ok := c.lookupParentType(t); ok {
		parentType = pt
	} else {
		parentType = parentTypeOf(t.Type, slot)
		c.storeParentType(t, parentType)
	}

	parent := Tet{X: t.X &^ h, Y: t.Y &^ h, Z: t.Z &^ h, Level: t.Level - 1, Type: parentType}
	c.storeParentTet(t, parent)
	return parent, true
}
