// Package collision implements spec.md §4.9: broad-phase pairing over
// an engine's candidate query nodes, and narrow-phase shape-pair
// tests. Narrow-phase geometry (SAT, segment-to-segment closest
// point) has no third-party counterpart anywhere in the retrieved
// corpus, so this package is built on stdlib math directly — the
// exception to this module's general library-first rule, recorded in
// the grounding ledger.
package collision

import (
	"math"
	"sort"

	"github.com/arbortree/spatialidx/internal/geom"
)

// Contact is one narrow-phase collision result (spec.md §4.9): a pair
// of entity IDs, the contact point, penetration depth, and contact
// normal pointing from A toward B.
type Contact struct {
	IDA, IDB    string
	Point       geom.Point3
	Penetration float64
	Normal      geom.Point3
}

// Shape is any narrow-phase-testable shape: Sphere, Box (OBB or AABB),
// or Capsule. The double-dispatch table below switches on the
// concrete dynamic type of each side of a pair.
type Shape interface{}

// Entity pairs a broad-phase candidate with its narrow-phase shape.
type Entity struct {
	ID    string
	Shape Shape
	AABB  geom.Bounds
}

// BroadPhase emits every distinct unordered pair (A,B) among
// candidates whose AABBs overlap (spec.md §4.9 broad phase), each pair
// emitted exactly once.
func BroadPhase(candidates []Entity) [][2]Entity {
	var pairs [][2]Entity
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[i].AABB.Intersects(candidates[j].AABB) {
				pairs = append(pairs, [2]Entity{candidates[i], candidates[j]})
			}
		}
	}
	return pairs
}

// NarrowPhase runs the appropriate shape-pair test on every broad
// phase pair and returns the contacts that actually overlap, ordered
// by descending penetration (ties by ID, spec.md §4.9).
func NarrowPhase(pairs [][2]Entity) []Contact {
	var out []Contact
	for _, pair := range pairs {
		if c, hit := testPair(pair[0], pair[1]); hit {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Penetration != out[j].Penetration {
			return out[i].Penetration > out[j].Penetration
		}
		if out[i].IDA != out[j].IDA {
			return out[i].IDA < out[j].IDA
		}
		return out[i].IDB < out[j].IDB
	})
	return out
}

// testPair double-dispatches on the concrete shape types of a and b.
func testPair(a, b Entity) (Contact, bool) {
	switch sa := a.Shape.(type) {
	case geom.Sphere:
		switch sb := b.Shape.(type) {
		case geom.Sphere:
			return sphereSphere(a.ID, sa, b.ID, sb)
		case geom.Box:
			return sphereBox(a.ID, sa, b.ID, sb)
		case geom.Capsule:
			return sphereCapsule(a.ID, sa, b.ID, sb)
		}
	case geom.Box:
		switch sb := b.Shape.(type) {
		case geom.Sphere:
			c, hit := sphereBox(b.ID, sb, a.ID, sa)
			return flip(c), hit
		case geom.Box:
			return boxBox(a.ID, sa, b.ID, sb)
		case geom.Capsule:
			return boxCapsule(a.ID, sa, b.ID, sb)
		}
	case geom.Capsule:
		switch sb := b.Shape.(type) {
		case geom.Sphere:
			c, hit := sphereCapsule(b.ID, sb, a.ID, sa)
			return flip(c), hit
		case geom.Box:
			c, hit := boxCapsule(b.ID, sb, a.ID, sa)
			return flip(c), hit
		case geom.Capsule:
			return capsuleCapsule(a.ID, sa, b.ID, sb)
		}
	}
	return Contact{}, false
}

func flip(c Contact) Contact {
	c.IDA, c.IDB = c.IDB, c.IDA
	c.Normal = c.Normal.Scale(-1)
	return c
}

// sphereSphere: distance² vs sum-of-radii² (spec.md §4.9).
func sphereSphere(idA string, a geom.Sphere, idB string, b geom.Sphere) (Contact, bool) {
	d := b.Center.Sub(a.Center)
	distSq := d.Dot(d)
	radiusSum := a.Radius + b.Radius
	if distSq >= radiusSum*radiusSum {
		return Contact{}, false
	}
	dist := math.Sqrt(distSq)
	penetration := radiusSum - dist
	var normal geom.Point3
	if dist > 1e-12 {
		normal = d.Scale(1 / dist)
	} else {
		normal = geom.Point3{X: 1}
	}
	point := a.Center.Add(normal.Scale(a.Radius))
	return Contact{IDA: idA, IDB: idB, Point: point, Penetration: penetration, Normal: normal}, true
}

// boxBox: SAT (spec.md §4.9 OBB-OBB) over each box's three face
// normals plus every non-degenerate cross product of their axes, up to
// 15 axes in all; for two boxes carrying the standard basis this
// amounts to a per-axis overlap test.
func boxBox(idA string, a geom.Box, idB string, b geom.Box) (Contact, bool) {
	axes := make([]geom.Point3, 0, 15)
	axes = append(axes, a.Axes[0], a.Axes[1], a.Axes[2], b.Axes[0], b.Axes[1], b.Axes[2])
	for _, ai := range a.Axes {
		for _, bj := range b.Axes {
			cross := geom.Point3{
				X: ai.Y*bj.Z - ai.Z*bj.Y,
				Y: ai.Z*bj.X - ai.X*bj.Z,
				Z: ai.X*bj.Y - ai.Y*bj.X,
			}
			if cross.Dot(cross) > 1e-12 {
				axes = append(axes, cross)
			}
		}
	}

	d := b.Center.Sub(a.Center)
	minOverlap := math.Inf(1)
	var minAxis geom.Point3
	for _, axis := range axes {
		length := math.Sqrt(axis.Dot(axis))
		if length < 1e-12 {
			continue
		}
		n := axis.Scale(1 / length)
		projA := math.Abs(a.Half.X*n.Dot(a.Axes[0])) + math.Abs(a.Half.Y*n.Dot(a.Axes[1])) + math.Abs(a.Half.Z*n.Dot(a.Axes[2]))
		projB := math.Abs(b.Half.X*n.Dot(b.Axes[0])) + math.Abs(b.Half.Y*n.Dot(b.Axes[1])) + math.Abs(b.Half.Z*n.Dot(b.Axes[2]))
		dist := math.Abs(d.Dot(n))
		overlap := projA + projB - dist
		if overlap <= 0 {
			return Contact{}, false
		}
		if overlap < minOverlap {
			minOverlap = overlap
			if d.Dot(n) < 0 {
				n = n.Scale(-1)
			}
			minAxis = n
		}
	}

	mid := a.Center.Add(b.Center).Scale(0.5)
	return Contact{IDA: idA, IDB: idB, Point: mid, Penetration: minOverlap, Normal: minAxis}, true
}

// sphereBox: clamp sphere center to box, distance test (spec.md §4.9).
func sphereBox(idA string, s geom.Sphere, idB string, b geom.Box) (Contact, bool) {
	local := s.Center.Sub(b.Center)
	lx := local.Dot(b.Axes[0])
	ly := local.Dot(b.Axes[1])
	lz := local.Dot(b.Axes[2])
	clamp := func(v, h float64) float64 {
		if v < -h {
			return -h
		}
		if v > h {
			return h
		}
		return v
	}
	cx, cy, cz := clamp(lx, b.Half.X), clamp(ly, b.Half.Y), clamp(lz, b.Half.Z)
	closest := b.Center.
		Add(b.Axes[0].Scale(cx)).
		Add(b.Axes[1].Scale(cy)).
		Add(b.Axes[2].Scale(cz))

	d := s.Center.Sub(closest)
	distSq := d.Dot(d)
	if distSq >= s.Radius*s.Radius {
		return Contact{}, false
	}
	dist := math.Sqrt(distSq)
	var normal geom.Point3
	if dist > 1e-12 {
		normal = d.Scale(-1 / dist)
	} else {
		normal = geom.Point3{X: 1}
	}
	return Contact{IDA: idA, IDB: idB, Point: closest, Penetration: s.Radius - dist, Normal: normal}, true
}

// closestPointsSegmentSegment returns the closest points on segments
// (p1,q1) and (p2,q2), the classic clamped-parametric solution.
func closestPointsSegmentSegment(p1, q1, p2, q2 geom.Point3) (geom.Point3, geom.Point3) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	const eps = 1e-12
	if a <= eps && e <= eps {
		return p1, p2
	}
	if a <= eps {
		s = 0
		t = clamp01(f / e)
	} else {
		c := d1.Dot(r)
		if e <= eps {
			t = 0
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom != 0 {
				s = clamp01((b*f - c*e) / denom)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}
	return p1.Add(d1.Scale(s)), p2.Add(d2.Scale(t))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sphereCapsule treats the sphere as a degenerate capsule.
func sphereCapsule(idA string, s geom.Sphere, idB string, c geom.Capsule) (Contact, bool) {
	closestOnCapsule, _ := closestPointsSegmentSegment(c.A, c.B, s.Center, s.Center)
	d := s.Center.Sub(closestOnCapsule)
	distSq := d.Dot(d)
	radiusSum := s.Radius + c.Radius
	if distSq >= radiusSum*radiusSum {
		return Contact{}, false
	}
	dist := math.Sqrt(distSq)
	var normal geom.Point3
	if dist > 1e-12 {
		normal = d.Scale(-1 / dist)
	} else {
		normal = geom.Point3{X: 1}
	}
	point := closestOnCapsule.Sub(normal.Scale(c.Radius))
	return Contact{IDA: idA, IDB: idB, Point: point, Penetration: radiusSum - dist, Normal: normal}, true
}

// boxCapsule approximates the capsule's axis against the box via the
// sphere-box test at the capsule-axis point nearest the box center,
// sufficient for broad collision reporting without a full box-segment
// SAT pass.
func boxCapsule(idA string, b geom.Box, idB string, c geom.Capsule) (Contact, bool) {
	nearest, _ := closestPointsSegmentSegment(c.A, c.B, b.Center, b.Center)
	sphereContact, hit := sphereBox(idB, geom.Sphere{Center: nearest, Radius: c.Radius}, idA, b)
	if !hit {
		return Contact{}, false
	}
	return flip(sphereContact), true
}

// capsuleCapsule: segment-to-segment closest point, then a
// sphere-sphere test at those points (spec.md §4.9).
func capsuleCapsule(idA string, a geom.Capsule, idB string, b geom.Capsule) (Contact, bool) {
	pa, pb := closestPointsSegmentSegment(a.A, a.B, b.A, b.B)
	return sphereSphere(idA, geom.Sphere{Center: pa, Radius: a.Radius}, idB, geom.Sphere{Center: pb, Radius: b.Radius})
}
