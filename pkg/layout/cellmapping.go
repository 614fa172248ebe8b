package layout

// CellMapping maps cells of a source layout to cells of a target layout.
type CellMapping struct {
	m map[CellIndex]CellIndex
}

// NewCellMapping creates an empty mapping.
func NewCellMapping() *CellMapping {
	return &CellMapping{m: make(map[CellIndex]CellIndex)}
}

// Map records a source to target pair.
func (cm *CellMapping) Map(src, dst CellIndex) {
	cm.m[src] = dst
}

// Target returns the target cell for a source cell.
func (cm *CellMapping) Target(src CellIndex) (CellIndex, bool) {
	dst, ok := cm.m[src]
	return dst, ok
}

// Len returns the number of mapped cells.
func (cm *CellMapping) Len() int { return len(cm.m) }

// Table returns a copy of the mapping.
func (cm *CellMapping) Table() map[CellIndex]CellIndex {
	out := make(map[CellIndex]CellIndex, len(cm.m))
	for k, v := range cm.m {
		out[k] = v
	}
	return out
}

// CreateSingleMapping maps only the two top cells.
func (cm *CellMapping) CreateSingleMapping(target *Layout, targetCell CellIndex, source *Layout, sourceCell CellIndex) {
	cm.m = map[CellIndex]CellIndex{sourceCell: targetCell}
}

// CreateFromGeometry maps source cells to target cells by matching the
// instance structure below the two top cells: a source instance maps to a
// target instance with the same transformation and an equal cell bounding
// box.
func (cm *CellMapping) CreateFromGeometry(target *Layout, targetCell CellIndex, source *Layout, sourceCell CellIndex) {
	cm.m = map[CellIndex]CellIndex{sourceCell: targetCell}

	type pair struct{ src, dst CellIndex }
	stack := []pair{{sourceCell, targetCell}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dstInsts := target.Cell(p.dst).Instances()
		used := make([]bool, len(dstInsts))
		for _, si := range source.Cell(p.src).Instances() {
			if _, mapped := cm.m[si.Cell]; mapped {
				continue
			}
			sb := source.Cell(si.Cell).BBox()
			for j, di := range dstInsts {
				if used[j] || !si.Trans.Equal(di.Trans) {
					continue
				}
				if target.Cell(di.Cell).BBox() != sb {
					continue
				}
				used[j] = true
				cm.m[si.Cell] = di.Cell
				stack = append(stack, pair{si.Cell, di.Cell})
				break
			}
		}
	}
}

// CreateMissingMapping creates target cells for every source cell below
// sourceCell that is not mapped yet, except the excluded ones, and copies
// the instances of the new cells' source counterparts into them. Instances
// of excluded cells are dropped. Returns the new target cells.
func (cm *CellMapping) CreateMissingMapping(target *Layout, source *Layout, sourceCell CellIndex, exclude map[CellIndex]bool) []CellIndex {
	var created []CellIndex
	var fresh []CellIndex
	called := source.CalledCells(sourceCell)
	for _, ci := range source.BottomUp() {
		if !called[ci] {
			continue
		}
		if _, ok := cm.m[ci]; ok || exclude[ci] {
			continue
		}
		nc := target.AddCell(source.Cell(ci).Name())
		cm.m[ci] = nc.Index()
		created = append(created, nc.Index())
		fresh = append(fresh, ci)
	}

	for _, ci := range fresh {
		dst := target.Cell(cm.m[ci])
		for _, inst := range source.Cell(ci).Instances() {
			if exclude[inst.Cell] {
				continue
			}
			dst.InsertInstance(Instance{Cell: cm.m[inst.Cell], Trans: inst.Trans})
		}
	}
	return created
}
