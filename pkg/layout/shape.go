package layout

import "github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"

// ShapeKind is a bit set selecting shape types.
type ShapeKind uint8

const (
	ShapeBoxes ShapeKind = 1 << iota
	ShapePolygons
	ShapeTexts

	ShapePolygonLike = ShapeBoxes | ShapePolygons
	ShapeAll         = ShapeBoxes | ShapePolygons | ShapeTexts
)

// Text is a string anchored at a point.
type Text struct {
	String string
	Pos    geom.Point
}

// Shape is one entry of a cell's per-layer shape container.
type Shape struct {
	Kind    ShapeKind
	Polygon geom.Polygon
	Text    Text
	PropID  PropID
}

// BoxShape creates a box shape.
func BoxShape(b geom.Box, prop PropID) Shape {
	return Shape{Kind: ShapeBoxes, Polygon: geom.NewBoxPolygon(b), PropID: prop}
}

// PolygonShape creates a polygon shape. Rectangles are stored as boxes.
func PolygonShape(p geom.Polygon, prop PropID) Shape {
	k := ShapePolygons
	if p.IsBox() {
		k = ShapeBoxes
	}
	return Shape{Kind: k, Polygon: p, PropID: prop}
}

// TextShape creates a text shape.
func TextShape(s string, pos geom.Point, prop PropID) Shape {
	return Shape{Kind: ShapeTexts, Text: Text{String: s, Pos: pos}, PropID: prop}
}

// IsText reports whether the shape is a text.
func (s Shape) IsText() bool { return s.Kind == ShapeTexts }

// BBox returns the bounding box. A text has a degenerate box at its anchor.
func (s Shape) BBox() geom.Box {
	if s.IsText() {
		return geom.NewBox(s.Text.Pos, s.Text.Pos)
	}
	return s.Polygon.BBox()
}

// Transformed returns the shape under t.
func (s Shape) Transformed(t geom.Trans) Shape {
	r := s
	if s.IsText() {
		r.Text.Pos = t.Apply(s.Text.Pos)
		return r
	}
	r.Polygon = s.Polygon.Transformed(t)
	if s.Kind == ShapeBoxes && !r.Polygon.IsBox() {
		r.Kind = ShapePolygons
	}
	return r
}
