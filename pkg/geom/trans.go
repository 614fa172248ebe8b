package geom

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
)

// Tolerance used when comparing transformations for equality.
const Tolerance = 1e-10

// Trans is a complex affine transformation: optional mirroring at the x
// axis, then magnification and counter-clockwise rotation, then
// displacement.
//
//	p' = R(Angle) * Mag * M(Mirror) * p + Disp
//
// The same type serves integer layout transforms (applied with rounding) and
// user-unit transforms. The zero value has Mag 0 which is treated as 1.
type Trans struct {
	Disp   DVector
	Angle  float64 // degrees
	Mag    float64
	Mirror bool
}

// Unity returns the identity transformation.
func Unity() Trans {
	return Trans{Mag: 1}
}

// NewDisp returns a pure displacement.
func NewDisp(v Vector) Trans {
	return Trans{Mag: 1, Disp: v.ToD()}
}

// NewTrans builds a complex transformation.
func NewTrans(mag, angle float64, mirror bool, disp DVector) Trans {
	return Trans{Mag: mag, Angle: normAngle(angle), Mirror: mirror, Disp: disp}
}

// DBUTrans returns the transformation from database units to user units.
func DBUTrans(dbu float64) Trans {
	return Trans{Mag: dbu}
}

func (t Trans) mag() float64 {
	if t.Mag == 0 {
		return 1
	}
	return t.Mag
}

// sincos returns exact values for multiples of 90 degrees.
func sincos(angle float64) (float64, float64) {
	a := normAngle(angle)
	switch a {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	r := a * math.Pi / 180
	return math.Sin(r), math.Cos(r)
}

func normAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	if scalar.EqualWithinAbs(a, 360, Tolerance) {
		a = 0
	}
	return a
}

// ApplyD transforms a user-unit point.
func (t Trans) ApplyD(p DPoint) DPoint {
	x, y := p.X, p.Y
	if t.Mirror {
		y = -y
	}
	s, c := sincos(t.Angle)
	m := t.mag()
	return DPoint{
		X: m*(c*x-s*y) + t.Disp.X,
		Y: m*(s*x+c*y) + t.Disp.Y,
	}
}

// ApplyVectorD transforms a displacement (no translation).
func (t Trans) ApplyVectorD(v DVector) DVector {
	p := t.ApplyD(DPoint{v.X, v.Y})
	return DVector{p.X - t.Disp.X, p.Y - t.Disp.Y}
}

// Apply transforms an integer point with rounding.
func (t Trans) Apply(p Point) Point {
	return t.ApplyD(p.ToD()).Round()
}

// Concat returns t*u, the transformation that applies u first and t second.
func (t Trans) Concat(u Trans) Trans {
	angle := t.Angle
	if t.Mirror {
		angle -= u.Angle
	} else {
		angle += u.Angle
	}
	d := t.ApplyVectorD(u.Disp)
	return Trans{
		Disp:   DVector{d.X + t.Disp.X, d.Y + t.Disp.Y},
		Angle:  normAngle(angle),
		Mag:    t.mag() * u.mag(),
		Mirror: t.Mirror != u.Mirror,
	}
}

// Inverted returns the inverse transformation.
func (t Trans) Inverted() Trans {
	inv := Trans{
		Mag:    1 / t.mag(),
		Mirror: t.Mirror,
	}
	if t.Mirror {
		inv.Angle = normAngle(t.Angle)
	} else {
		inv.Angle = normAngle(-t.Angle)
	}
	d := inv.ApplyVectorD(t.Disp)
	inv.Disp = DVector{-d.X, -d.Y}
	return inv
}

// Equal compares two transformations within Tolerance.
func (t Trans) Equal(u Trans) bool {
	if t.Mirror != u.Mirror {
		return false
	}
	da := math.Abs(normAngle(t.Angle) - normAngle(u.Angle))
	if da > 180 {
		da = 360 - da
	}
	return da < Tolerance &&
		scalar.EqualWithinAbsOrRel(t.mag(), u.mag(), Tolerance, Tolerance) &&
		scalar.EqualWithinAbsOrRel(t.Disp.X, u.Disp.X, Tolerance, Tolerance) &&
		scalar.EqualWithinAbsOrRel(t.Disp.Y, u.Disp.Y, Tolerance, Tolerance)
}

// IsUnity reports whether t is the identity.
func (t Trans) IsUnity() bool {
	return t.Equal(Unity())
}

// IsOrtho reports whether the rotation is a multiple of 90 degrees.
func (t Trans) IsOrtho() bool {
	a := normAngle(t.Angle)
	return math.Mod(a, 90) == 0
}

// IsMag reports whether a magnification other than 1 is present.
func (t Trans) IsMag() bool {
	return !scalar.EqualWithinAbs(t.mag(), 1, Tolerance)
}

// Scaled converts t between unit systems: the result is
// dbu * t * dbu^-1 (dbu to user units for f = dbu).
func (t Trans) Scaled(f float64) Trans {
	return DBUTrans(f).Concat(t).Concat(DBUTrans(1 / f))
}

// Displacement returns the displacement rounded to database units.
func (t Trans) Displacement() Vector {
	return t.Disp.Round()
}

func (t Trans) String() string {
	var sb strings.Builder
	if t.Mirror {
		fmt.Fprintf(&sb, "m%g", normAngle(t.Angle)/2)
	} else {
		fmt.Fprintf(&sb, "r%g", normAngle(t.Angle))
	}
	if t.IsMag() {
		fmt.Fprintf(&sb, " *%g", t.mag())
	}
	fmt.Fprintf(&sb, " %g,%g", t.Disp.X, t.Disp.Y)
	return sb.String()
}
