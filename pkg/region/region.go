// Package region provides polygon sets in two flavors: flat regions that
// hold their polygons directly, and deep regions that reference a layer of
// a DeepShapeStore and keep the cell hierarchy intact.
package region

import (
	"sort"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
)

// Region is a set of polygons. The zero value is an empty flat region.
type Region struct {
	polys []geom.Polygon
	deep  *DeepLayer
}

// New creates a flat region.
func New(polys ...geom.Polygon) *Region {
	r := &Region{}
	for _, p := range polys {
		r.Insert(p)
	}
	return r
}

// NewDeep creates a region backed by a deep layer. The region holds a
// reference on the layer until Release is called.
func NewDeep(dl *DeepLayer) *Region {
	dl.Retain()
	return &Region{deep: dl}
}

// DeepLayer reports whether the region is hierarchical and if so returns
// the layer backing it.
func (r *Region) DeepLayer() (*DeepLayer, bool) {
	if r == nil || r.deep == nil {
		return nil, false
	}
	return r.deep, true
}

// IsDeep reports whether the region is hierarchical.
func (r *Region) IsDeep() bool {
	_, ok := r.DeepLayer()
	return ok
}

// Release drops the region's reference on its deep layer.
func (r *Region) Release() {
	if r.deep != nil {
		r.deep.Release()
		r.deep = nil
	}
}

// Insert adds a polygon. For a deep region the polygon goes into the
// store's top cell.
func (r *Region) Insert(p geom.Polygon) {
	if p.IsEmpty() {
		return
	}
	if r.deep != nil {
		st := r.deep.store
		st.layout.Cell(st.top).Insert(r.deep.layer, layout.PolygonShape(p, 0))
		return
	}
	r.polys = append(r.polys, p)
}

// InsertBox adds a box.
func (r *Region) InsertBox(b geom.Box) {
	r.Insert(geom.NewBoxPolygon(b))
}

// Polygons returns the polygons. Deep regions are flattened into top cell
// coordinates.
func (r *Region) Polygons() []geom.Polygon {
	if r == nil {
		return nil
	}
	if r.deep == nil {
		return r.polys
	}
	st := r.deep.store
	var out []geom.Polygon
	layout.NewRecursiveShapeIterator(st.layout, st.top, r.deep.layer).
		WithKinds(layout.ShapePolygonLike).
		Walk(func(s layout.Shape, _ layout.CellIndex, t geom.Trans) bool {
			out = append(out, s.Polygon.Transformed(t))
			return true
		})
	return out
}

// Sorted returns the polygons in canonical order.
func (r *Region) Sorted() []geom.Polygon {
	ps := append([]geom.Polygon(nil), r.Polygons()...)
	sort.Slice(ps, func(i, j int) bool { return ps[i].Less(ps[j]) })
	return ps
}

// Count returns the number of polygons.
func (r *Region) Count() int { return len(r.Polygons()) }

// IsEmpty reports whether the region has no polygons.
func (r *Region) IsEmpty() bool { return r.Count() == 0 }

// BBox returns the bounding box of all polygons.
func (r *Region) BBox() geom.Box {
	b := geom.EmptyBox()
	for _, p := range r.Polygons() {
		b = b.Add(p.BBox())
	}
	return b
}

// Area returns the sum of polygon areas. Overlaps are counted twice.
func (r *Region) Area() float64 {
	var a float64
	for _, p := range r.Polygons() {
		a += p.Area()
	}
	return a
}

// Moved returns a flat copy displaced by v.
func (r *Region) Moved(v geom.Vector) *Region {
	out := &Region{}
	for _, p := range r.Polygons() {
		out.polys = append(out.polys, p.Moved(v))
	}
	return out
}

// Interacting returns a flat region of the polygons of r that touch or
// overlap any polygon of other.
func (r *Region) Interacting(other *Region) *Region {
	out := &Region{}
	ops := other.Polygons()
	for _, p := range r.Polygons() {
		for _, q := range ops {
			if p.Interacts(q) {
				out.polys = append(out.polys, p)
				break
			}
		}
	}
	return out
}
