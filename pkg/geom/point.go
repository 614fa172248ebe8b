// Package geom provides the integer and floating-point geometry primitives
// shared by the layout database, the clustering engine and the extractors.
//
// Layout coordinates are integers in database units (dbu). User-space
// coordinates (micrometers) are floats and are converted through a
// magnification-only Trans built from the database unit.
package geom

import (
	"fmt"
	"math"
)

// Point is a location in database units.
type Point struct {
	X, Y int64
}

// Vector is a displacement in database units.
type Vector struct {
	X, Y int64
}

// DPoint is a location in user units.
type DPoint struct {
	X, Y float64
}

// DVector is a displacement in user units.
type DVector struct {
	X, Y float64
}

// Add displaces the point.
func (p Point) Add(v Vector) Point { return Point{p.X + v.X, p.Y + v.Y} }

// Sub returns the displacement from q to p.
func (p Point) Sub(q Point) Vector { return Vector{p.X - q.X, p.Y - q.Y} }

// Neg returns the inverted vector.
func (v Vector) Neg() Vector { return Vector{-v.X, -v.Y} }

// Add sums two vectors.
func (v Vector) Add(w Vector) Vector { return Vector{v.X + w.X, v.Y + w.Y} }

// ToD converts to user-unit representation without scaling.
func (v Vector) ToD() DVector { return DVector{float64(v.X), float64(v.Y)} }

// ToD converts to user-unit representation without scaling.
func (p Point) ToD() DPoint { return DPoint{float64(p.X), float64(p.Y)} }

// Add displaces the point.
func (p DPoint) Add(v DVector) DPoint { return DPoint{p.X + v.X, p.Y + v.Y} }

// Round converts to database units, rounding half away from zero.
func (p DPoint) Round() Point { return Point{roundCoord(p.X), roundCoord(p.Y)} }

// Round converts to database units, rounding half away from zero.
func (v DVector) Round() Vector { return Vector{roundCoord(v.X), roundCoord(v.Y)} }

// Scale multiplies both components.
func (v DVector) Scale(f float64) DVector { return DVector{v.X * f, v.Y * f} }

func (p Point) String() string   { return fmt.Sprintf("%d,%d", p.X, p.Y) }
func (v Vector) String() string  { return fmt.Sprintf("%d,%d", v.X, v.Y) }
func (p DPoint) String() string  { return fmt.Sprintf("%g,%g", p.X, p.Y) }
func (v DVector) String() string { return fmt.Sprintf("%g,%g", v.X, v.Y) }

func roundCoord(f float64) int64 {
	return int64(math.Round(f))
}
