package layout

import (
	"sort"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
)

// CellIndex identifies a cell within its layout.
type CellIndex int

// Instance places a cell inside another one.
type Instance struct {
	Cell   CellIndex
	Trans  geom.Trans
	PropID PropID
}

// Cell is a hierarchical container of shapes and child instances.
type Cell struct {
	layout *Layout
	index  CellIndex
	name   string

	shapes map[int][]Shape
	insts  []Instance

	// PropID attaches properties to the cell itself.
	PropID PropID

	bbox geom.Box
}

// Index returns the cell index.
func (c *Cell) Index() CellIndex { return c.index }

// Name returns the cell name.
func (c *Cell) Name() string { return c.name }

// Layout returns the owning layout.
func (c *Cell) Layout() *Layout { return c.layout }

// Shapes returns the shapes on one layer. The slice must not be modified.
func (c *Cell) Shapes(layer int) []Shape {
	return c.shapes[layer]
}

// Layers returns the layers that hold shapes in this cell, sorted.
func (c *Cell) Layers() []int {
	ls := make([]int, 0, len(c.shapes))
	for l, s := range c.shapes {
		if len(s) > 0 {
			ls = append(ls, l)
		}
	}
	sort.Ints(ls)
	return ls
}

// Insert adds a shape on a layer.
func (c *Cell) Insert(layer int, s Shape) {
	c.shapes[layer] = append(c.shapes[layer], s)
	c.layout.invalidate()
}

// InsertBox adds a box shape.
func (c *Cell) InsertBox(layer int, b geom.Box) {
	c.Insert(layer, BoxShape(b, 0))
}

// InsertPolygon adds a polygon shape.
func (c *Cell) InsertPolygon(layer int, p geom.Polygon) {
	c.Insert(layer, PolygonShape(p, 0))
}

// InsertText adds a text shape.
func (c *Cell) InsertText(layer int, s string, pos geom.Point) {
	c.Insert(layer, TextShape(s, pos, 0))
}

// ClearLayer removes all shapes from a layer.
func (c *Cell) ClearLayer(layer int) {
	if len(c.shapes[layer]) > 0 {
		delete(c.shapes, layer)
		c.layout.invalidate()
	}
}

// Instances returns the child instances. Instance identity is the slice
// index, which stays stable while further instances are appended.
func (c *Cell) Instances() []Instance {
	return c.insts
}

// InsertInstance adds a child instance and returns its index.
func (c *Cell) InsertInstance(inst Instance) int {
	c.insts = append(c.insts, inst)
	c.layout.invalidate()
	return len(c.insts) - 1
}

// BBox returns the bounding box of all shapes of the cell and its children.
func (c *Cell) BBox() geom.Box {
	c.layout.UpdateBBoxes()
	return c.bbox
}

// IsEmpty reports whether the cell has neither shapes nor instances.
func (c *Cell) IsEmpty() bool {
	if len(c.insts) > 0 {
		return false
	}
	for _, s := range c.shapes {
		if len(s) > 0 {
			return false
		}
	}
	return true
}

// ChildCells returns the distinct cells instantiated directly in c, sorted.
func (c *Cell) ChildCells() []CellIndex {
	seen := make(map[CellIndex]bool)
	var out []CellIndex
	for _, inst := range c.insts {
		if !seen[inst.Cell] {
			seen[inst.Cell] = true
			out = append(out, inst.Cell)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
