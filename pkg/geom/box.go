package geom

import (
	"fmt"
	"math"
)

// Box is an axis-aligned rectangle in database units. A box with
// Left > Right or Bottom > Top is empty.
type Box struct {
	Left, Bottom, Right, Top int64
}

// EmptyBox returns a box that contains nothing and absorbs any box added to it.
func EmptyBox() Box {
	return Box{Left: 1, Bottom: 1, Right: -1, Top: -1}
}

// WorldBox returns the box covering the whole coordinate space.
func WorldBox() Box {
	const w = math.MaxInt64 / 4
	return Box{Left: -w, Bottom: -w, Right: w, Top: w}
}

// NewBox builds a box from two corner points in any order.
func NewBox(p1, p2 Point) Box {
	return Box{
		Left:   min(p1.X, p2.X),
		Bottom: min(p1.Y, p2.Y),
		Right:  max(p1.X, p2.X),
		Top:    max(p1.Y, p2.Y),
	}
}

// IsEmpty checks if the box is empty.
func (b Box) IsEmpty() bool {
	return b.Left > b.Right || b.Bottom > b.Top
}

// IsWorld reports whether b is the world box.
func (b Box) IsWorld() bool {
	return b == WorldBox()
}

// P1 is the lower-left corner.
func (b Box) P1() Point { return Point{b.Left, b.Bottom} }

// P2 is the upper-right corner.
func (b Box) P2() Point { return Point{b.Right, b.Top} }

// Width of the box.
func (b Box) Width() int64 { return b.Right - b.Left }

// Height of the box.
func (b Box) Height() int64 { return b.Top - b.Bottom }

// Center returns the center point of the box (rounded toward negative infinity).
func (b Box) Center() Point {
	return Point{floorDiv2(b.Left + b.Right), floorDiv2(b.Bottom + b.Top)}
}

// Touches checks if two boxes overlap or share an edge or corner.
func (b Box) Touches(other Box) bool {
	if b.IsEmpty() || other.IsEmpty() {
		return false
	}
	return b.Left <= other.Right && b.Right >= other.Left &&
		b.Bottom <= other.Top && b.Top >= other.Bottom
}

// Contains checks if a point is within the box (edges included).
func (b Box) Contains(p Point) bool {
	return !b.IsEmpty() && p.X >= b.Left && p.X <= b.Right && p.Y >= b.Bottom && p.Y <= b.Top
}

// Add returns the smallest box enclosing both boxes.
func (b Box) Add(other Box) Box {
	if other.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return other
	}
	return Box{
		Left:   min(b.Left, other.Left),
		Bottom: min(b.Bottom, other.Bottom),
		Right:  max(b.Right, other.Right),
		Top:    max(b.Top, other.Top),
	}
}

// AddPoint expands the box to include a point.
func (b Box) AddPoint(p Point) Box {
	return b.Add(Box{p.X, p.Y, p.X, p.Y})
}

// Moved displaces the box.
func (b Box) Moved(v Vector) Box {
	if b.IsEmpty() {
		return b
	}
	return Box{b.Left + v.X, b.Bottom + v.Y, b.Right + v.X, b.Top + v.Y}
}

// Enlarged grows the box by d on every side.
func (b Box) Enlarged(d int64) Box {
	if b.IsEmpty() {
		return b
	}
	return Box{b.Left - d, b.Bottom - d, b.Right + d, b.Top + d}
}

// Transformed returns the bounding box of the transformed corners.
func (b Box) Transformed(t Trans) Box {
	if b.IsEmpty() || b.IsWorld() {
		return b
	}
	r := EmptyBox()
	for _, p := range []Point{{b.Left, b.Bottom}, {b.Left, b.Top}, {b.Right, b.Top}, {b.Right, b.Bottom}} {
		r = r.AddPoint(t.Apply(p))
	}
	return r
}

func (b Box) String() string {
	if b.IsEmpty() {
		return "()"
	}
	return fmt.Sprintf("(%d,%d;%d,%d)", b.Left, b.Bottom, b.Right, b.Top)
}

func floorDiv2(v int64) int64 {
	if v < 0 {
		return (v - 1) / 2
	}
	return v / 2
}
