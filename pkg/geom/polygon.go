package geom

import (
	"math"
	"strconv"
	"strings"
)

// Polygon is a simple polygon without holes. The hull is normalized:
// clockwise, no duplicate or collinear points, starting at the
// lexicographically smallest point. Normalized polygons compare equal
// point by point when they describe the same shape.
type Polygon struct {
	Hull []Point
}

// NewPolygon normalizes the given points into a polygon.
func NewPolygon(pts []Point) Polygon {
	return Polygon{Hull: normalizeHull(pts)}
}

// NewBoxPolygon returns the polygon for a box.
func NewBoxPolygon(b Box) Polygon {
	if b.IsEmpty() {
		return Polygon{}
	}
	return Polygon{Hull: []Point{
		{b.Left, b.Bottom},
		{b.Left, b.Top},
		{b.Right, b.Top},
		{b.Right, b.Bottom},
	}}
}

func normalizeHull(pts []Point) []Point {
	// drop consecutive duplicates (cyclic)
	var h []Point
	for _, p := range pts {
		if len(h) > 0 && h[len(h)-1] == p {
			continue
		}
		h = append(h, p)
	}
	for len(h) > 1 && h[0] == h[len(h)-1] {
		h = h[:len(h)-1]
	}

	// drop collinear points until stable
	for changed := true; changed && len(h) >= 3; {
		changed = false
		for i := 0; i < len(h) && len(h) >= 3; i++ {
			prev := h[(i+len(h)-1)%len(h)]
			next := h[(i+1)%len(h)]
			if cross(h[i].Sub(prev), next.Sub(h[i])) == 0 {
				h = append(h[:i], h[i+1:]...)
				changed = true
				i--
			}
		}
	}
	if len(h) < 3 {
		return nil
	}

	if signedArea2(h) > 0 {
		// counter-clockwise: reverse
		for i, j := 0, len(h)-1; i < j; i, j = i+1, j-1 {
			h[i], h[j] = h[j], h[i]
		}
	}

	start := 0
	for i, p := range h {
		if p.X < h[start].X || (p.X == h[start].X && p.Y < h[start].Y) {
			start = i
		}
	}
	out := make([]Point, 0, len(h))
	out = append(out, h[start:]...)
	out = append(out, h[:start]...)
	return out
}

func cross(a, b Vector) int64 {
	return a.X*b.Y - a.Y*b.X
}

func signedArea2(h []Point) int64 {
	var a int64
	for i := range h {
		p, q := h[i], h[(i+1)%len(h)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a
}

// IsEmpty reports whether the polygon has no area.
func (p Polygon) IsEmpty() bool { return len(p.Hull) < 3 }

// BBox returns the bounding box.
func (p Polygon) BBox() Box {
	b := EmptyBox()
	for _, pt := range p.Hull {
		b = b.AddPoint(pt)
	}
	return b
}

// IsBox reports whether the polygon is an axis-aligned rectangle.
func (p Polygon) IsBox() bool {
	if len(p.Hull) != 4 {
		return false
	}
	return NewBoxPolygon(p.BBox()).Equal(p)
}

// Area2 returns twice the area.
func (p Polygon) Area2() int64 {
	a := signedArea2(p.Hull)
	if a < 0 {
		return -a
	}
	return a
}

// Area returns the area in square database units.
func (p Polygon) Area() float64 {
	return float64(p.Area2()) / 2
}

// Perimeter returns the hull length in database units.
func (p Polygon) Perimeter() float64 {
	var l float64
	for i := range p.Hull {
		d := p.Hull[(i+1)%len(p.Hull)].Sub(p.Hull[i])
		l += math.Hypot(float64(d.X), float64(d.Y))
	}
	return l
}

// Moved displaces the polygon.
func (p Polygon) Moved(v Vector) Polygon {
	h := make([]Point, len(p.Hull))
	for i, pt := range p.Hull {
		h[i] = pt.Add(v)
	}
	return Polygon{Hull: h}
}

// Transformed applies t (with rounding) and renormalizes.
func (p Polygon) Transformed(t Trans) Polygon {
	h := make([]Point, len(p.Hull))
	for i, pt := range p.Hull {
		h[i] = t.Apply(pt)
	}
	return NewPolygon(h)
}

// Equal compares the normalized hulls.
func (p Polygon) Equal(q Polygon) bool {
	if len(p.Hull) != len(q.Hull) {
		return false
	}
	for i := range p.Hull {
		if p.Hull[i] != q.Hull[i] {
			return false
		}
	}
	return true
}

// Less defines a total order on normalized polygons.
func (p Polygon) Less(q Polygon) bool {
	n := min(len(p.Hull), len(q.Hull))
	for i := 0; i < n; i++ {
		a, b := p.Hull[i], q.Hull[i]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
	}
	return len(p.Hull) < len(q.Hull)
}

type edge struct {
	p1, p2 Point
}

func (p Polygon) edges() []edge {
	e := make([]edge, len(p.Hull))
	for i := range p.Hull {
		e[i] = edge{p.Hull[i], p.Hull[(i+1)%len(p.Hull)]}
	}
	return e
}

func orient(a, b, c Point) int {
	v := cross(b.Sub(a), c.Sub(a))
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func onSegment(a, b, p Point) bool {
	return min(a.X, b.X) <= p.X && p.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= p.Y && p.Y <= max(a.Y, b.Y)
}

func (e edge) intersects(f edge) bool {
	o1 := orient(e.p1, e.p2, f.p1)
	o2 := orient(e.p1, e.p2, f.p2)
	o3 := orient(f.p1, f.p2, e.p1)
	o4 := orient(f.p1, f.p2, e.p2)
	if o1 != o2 && o3 != o4 {
		return true
	}
	return (o1 == 0 && onSegment(e.p1, e.p2, f.p1)) ||
		(o2 == 0 && onSegment(e.p1, e.p2, f.p2)) ||
		(o3 == 0 && onSegment(f.p1, f.p2, e.p1)) ||
		(o4 == 0 && onSegment(f.p1, f.p2, e.p2))
}

// ContainsPoint reports whether pt is inside the polygon or on its boundary.
func (p Polygon) ContainsPoint(pt Point) bool {
	if p.IsEmpty() || !p.BBox().Contains(pt) {
		return false
	}
	inside := false
	for _, e := range p.edges() {
		if orient(e.p1, e.p2, pt) == 0 && onSegment(e.p1, e.p2, pt) {
			return true
		}
		if (e.p1.Y > pt.Y) != (e.p2.Y > pt.Y) {
			// x coordinate of the crossing, compared without division
			num := (pt.Y-e.p1.Y)*(e.p2.X-e.p1.X) + e.p1.X*(e.p2.Y-e.p1.Y)
			den := e.p2.Y - e.p1.Y
			lhs := pt.X * den
			if (den > 0 && lhs < num) || (den < 0 && lhs > num) {
				inside = !inside
			}
		}
	}
	return inside
}

// Interacts reports whether two polygons overlap or touch.
func (p Polygon) Interacts(q Polygon) bool {
	if p.IsEmpty() || q.IsEmpty() || !p.BBox().Touches(q.BBox()) {
		return false
	}
	qe := q.edges()
	for _, e := range p.edges() {
		if !NewBox(e.p1, e.p2).Touches(q.BBox()) {
			continue
		}
		for _, f := range qe {
			if e.intersects(f) {
				return true
			}
		}
	}
	return q.ContainsPoint(p.Hull[0]) || p.ContainsPoint(q.Hull[0])
}

// SharedEdgeLength returns the total length of collinear boundary segments
// that p and q have in common.
func SharedEdgeLength(p, q Polygon) float64 {
	var total float64
	qe := q.edges()
	for _, e := range p.edges() {
		d := e.p2.Sub(e.p1)
		l2 := float64(d.X*d.X + d.Y*d.Y)
		if l2 == 0 {
			continue
		}
		for _, f := range qe {
			if cross(d, f.p2.Sub(f.p1)) != 0 || cross(d, f.p1.Sub(e.p1)) != 0 {
				continue
			}
			// project f onto e, parameter in units of |d|^2
			t1 := float64(dot(f.p1.Sub(e.p1), d))
			t2 := float64(dot(f.p2.Sub(e.p1), d))
			lo := math.Max(0, math.Min(t1, t2))
			hi := math.Min(l2, math.Max(t1, t2))
			if hi > lo {
				total += (hi - lo) / math.Sqrt(l2)
			}
		}
	}
	return total
}

func dot(a, b Vector) int64 {
	return a.X*b.X + a.Y*b.Y
}

func (p Polygon) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, pt := range p.Hull {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.FormatInt(pt.X, 10))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatInt(pt.Y, 10))
	}
	sb.WriteByte(')')
	return sb.String()
}
