package layout

import "github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"

// RecursiveShapeIterator delivers the shapes of one layer of a cell and all
// cells below it, each with the accumulated transformation into the top
// cell.
type RecursiveShapeIterator struct {
	Layout *Layout
	Top    CellIndex
	Layer  int
	Kinds  ShapeKind
	// Region restricts delivery to shapes touching it. The world box means
	// no restriction.
	Region geom.Box
	// ComplexRegion further restricts the region to a union of boxes.
	ComplexRegion []geom.Box
}

// NewRecursiveShapeIterator creates an unclipped iterator for all shape kinds.
func NewRecursiveShapeIterator(ly *Layout, top CellIndex, layer int) RecursiveShapeIterator {
	return RecursiveShapeIterator{
		Layout: ly,
		Top:    top,
		Layer:  layer,
		Kinds:  ShapeAll,
		Region: geom.WorldBox(),
	}
}

// WithKinds returns a copy restricted to the given shape kinds.
func (it RecursiveShapeIterator) WithKinds(k ShapeKind) RecursiveShapeIterator {
	it.Kinds = k
	return it
}

// WithLayer returns a copy delivering another layer.
func (it RecursiveShapeIterator) WithLayer(layer int) RecursiveShapeIterator {
	it.Layer = layer
	return it
}

// WithRegion returns a copy clipped to a box.
func (it RecursiveShapeIterator) WithRegion(b geom.Box) RecursiveShapeIterator {
	it.Region = b
	return it
}

// IsClipped reports whether the iterator is restricted to a region.
func (it RecursiveShapeIterator) IsClipped() bool {
	return !it.Region.IsWorld() || len(it.ComplexRegion) > 0
}

func (it RecursiveShapeIterator) selects(b geom.Box) bool {
	if !it.Region.IsWorld() && !b.Touches(it.Region) {
		return false
	}
	if len(it.ComplexRegion) == 0 {
		return true
	}
	for _, r := range it.ComplexRegion {
		if b.Touches(r) {
			return true
		}
	}
	return false
}

// Walk calls fn for every selected shape with the transformation from the
// shape's cell into the top cell. Walking stops when fn returns false.
func (it RecursiveShapeIterator) Walk(fn func(s Shape, cell CellIndex, t geom.Trans) bool) {
	if it.Layout == nil || it.Layout.Cell(it.Top) == nil {
		return
	}
	kinds := it.Kinds
	if kinds == 0 {
		kinds = ShapeAll
	}

	type frame struct {
		ci CellIndex
		t  geom.Trans
	}
	clipped := it.IsClipped()
	stack := []frame{{ci: it.Top, t: geom.Unity()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := it.Layout.cells[f.ci]

		for _, s := range c.shapes[it.Layer] {
			if s.Kind&kinds == 0 {
				continue
			}
			if clipped && !it.selects(s.BBox().Transformed(f.t)) {
				continue
			}
			if !fn(s, f.ci, f.t) {
				return
			}
		}

		// push in reverse so instances are visited in order
		for i := len(c.insts) - 1; i >= 0; i-- {
			inst := c.insts[i]
			t := f.t.Concat(inst.Trans)
			if clipped && !it.selects(it.Layout.cells[inst.Cell].BBox().Transformed(t)) {
				continue
			}
			stack = append(stack, frame{ci: inst.Cell, t: t})
		}
	}
}
