// Package layout is a compact hierarchical layout database: cells holding
// per-layer shapes and child instances, a layer table, a property
// repository, a recursive shape iterator and structural cell mapping.
//
// Coordinates are integer database units. Cell and layer identities are
// dense indexes that stay stable for the lifetime of the layout.
package layout

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
)

// DefaultDBU is the database unit of a new layout in micrometers.
const DefaultDBU = 0.001

// Layout owns cells, layers and properties.
type Layout struct {
	dbu    float64
	cells  []*Cell
	byName map[string]CellIndex
	layers layerTable
	props  *PropertiesRepository
	dirty  bool
}

// New creates an empty layout.
func New() *Layout {
	return &Layout{
		dbu:    DefaultDBU,
		byName: make(map[string]CellIndex),
		layers: newLayerTable(),
		props:  NewPropertiesRepository(),
	}
}

// DBU returns the database unit in micrometers.
func (l *Layout) DBU() float64 { return l.dbu }

// SetDBU sets the database unit.
func (l *Layout) SetDBU(dbu float64) { l.dbu = dbu }

// Properties returns the property repository.
func (l *Layout) Properties() *PropertiesRepository { return l.props }

func (l *Layout) invalidate() { l.dirty = true }

func (l *Layout) uniqueName(name string) string {
	if _, taken := l.byName[name]; !taken {
		return name
	}
	for i := 1; ; i++ {
		n := fmt.Sprintf("%s$%d", name, i)
		if _, taken := l.byName[n]; !taken {
			return n
		}
	}
}

// AddCell creates a new cell. If the name is taken, a "$n" suffix makes it
// unique.
func (l *Layout) AddCell(name string) *Cell {
	c := &Cell{
		layout: l,
		index:  CellIndex(len(l.cells)),
		name:   l.uniqueName(name),
		shapes: make(map[int][]Shape),
		bbox:   geom.EmptyBox(),
	}
	l.cells = append(l.cells, c)
	l.byName[c.name] = c.index
	l.invalidate()
	return c
}

// Cell returns a cell by index or nil.
func (l *Layout) Cell(ci CellIndex) *Cell {
	if ci < 0 || int(ci) >= len(l.cells) {
		return nil
	}
	return l.cells[ci]
}

// CellByName looks up a cell by name.
func (l *Layout) CellByName(name string) (*Cell, bool) {
	ci, ok := l.byName[name]
	if !ok {
		return nil, false
	}
	return l.cells[ci], true
}

// Cells returns all cells in index order.
func (l *Layout) Cells() []*Cell { return l.cells }

// CellCount returns the number of cells.
func (l *Layout) CellCount() int { return len(l.cells) }

// RenameCell changes a cell name. The new name is made unique.
func (l *Layout) RenameCell(ci CellIndex, name string) {
	c := l.Cell(ci)
	if c == nil || c.name == name {
		return
	}
	delete(l.byName, c.name)
	c.name = l.uniqueName(name)
	l.byName[c.name] = ci
}

// InsertLayer adds a layer and returns its index.
func (l *Layout) InsertLayer(lp LayerProperties) int {
	return l.layers.insert(lp)
}

// FindLayer looks up a layer by its properties.
func (l *Layout) FindLayer(lp LayerProperties) (int, bool) {
	return l.layers.find(lp)
}

// LayerProperties returns the properties of a layer.
func (l *Layout) LayerProperties(layer int) LayerProperties {
	if layer < 0 || layer >= len(l.layers.byIndex) {
		return LayerProperties{Null: true}
	}
	return l.layers.byIndex[layer]
}

// LayerCount returns the number of layers.
func (l *Layout) LayerCount() int { return len(l.layers.byIndex) }

// ClearLayer removes all shapes of a layer from every cell.
func (l *Layout) ClearLayer(layer int) {
	for _, c := range l.cells {
		c.ClearLayer(layer)
	}
}

// TopCells returns the cells that are not instantiated anywhere.
func (l *Layout) TopCells() []*Cell {
	called := make([]bool, len(l.cells))
	for _, c := range l.cells {
		for _, inst := range c.insts {
			called[inst.Cell] = true
		}
	}
	var tops []*Cell
	for i, c := range l.cells {
		if !called[i] {
			tops = append(tops, c)
		}
	}
	return tops
}

// CalledCells returns the set of cells reachable from top, including top.
func (l *Layout) CalledCells(top CellIndex) map[CellIndex]bool {
	seen := map[CellIndex]bool{top: true}
	stack := []CellIndex{top}
	for len(stack) > 0 {
		ci := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range l.cells[ci].ChildCells() {
			if !seen[child] {
				seen[child] = true
				stack = append(stack, child)
			}
		}
	}
	return seen
}

// BottomUp returns all cells ordered children first.
func (l *Layout) BottomUp() []CellIndex {
	levels := l.Levels()
	var out []CellIndex
	for _, lv := range levels {
		out = append(out, lv...)
	}
	return out
}

// Levels groups cells by hierarchy height: leaf cells first, then cells
// whose children are all in earlier levels. Cells within a level are
// independent of each other.
func (l *Layout) Levels() [][]CellIndex {
	height := make([]int, len(l.cells))
	done := make([]bool, len(l.cells))
	for i := range l.cells {
		if done[i] {
			continue
		}
		// post-order over an explicit stack
		type frame struct {
			ci   CellIndex
			next int
		}
		stack := []frame{{ci: CellIndex(i)}}
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			children := l.cells[f.ci].ChildCells()
			if f.next < len(children) {
				ch := children[f.next]
				f.next++
				if !done[ch] {
					stack = append(stack, frame{ci: ch})
				}
				continue
			}
			h := 0
			for _, ch := range children {
				h = max(h, height[ch]+1)
			}
			height[f.ci] = h
			done[f.ci] = true
			stack = stack[:len(stack)-1]
		}
	}

	var levels [][]CellIndex
	for i, h := range height {
		for len(levels) <= h {
			levels = append(levels, nil)
		}
		levels[h] = append(levels[h], CellIndex(i))
	}
	return levels
}

// UpdateBBoxes recomputes cached cell bounding boxes if the layout changed.
// It must not run concurrently with modifications.
func (l *Layout) UpdateBBoxes() {
	if !l.dirty {
		return
	}
	for _, lv := range l.Levels() {
		for _, ci := range lv {
			c := l.cells[ci]
			b := geom.EmptyBox()
			for _, shapes := range c.shapes {
				for _, s := range shapes {
					b = b.Add(s.BBox())
				}
			}
			for _, inst := range c.insts {
				b = b.Add(l.cells[inst.Cell].bbox.Transformed(inst.Trans))
			}
			c.bbox = b
		}
	}
	l.dirty = false
}
