package cluster

import (
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
)

// walk visits a cluster and every cluster linked below it, pre-order, with
// the transformation into the frame of the starting cell.
func (h *HierClusters) walk(cell layout.CellIndex, id ID, fn func(c *LocalCluster, t geom.Trans) bool) {
	type frame struct {
		cell layout.CellIndex
		id   ID
		t    geom.Trans
	}
	stack := []frame{{cell: cell, id: id, t: geom.Unity()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cc, ok := h.cells[f.cell]
		if !ok {
			continue
		}
		c := cc.Cluster(f.id)
		if c == nil {
			continue
		}
		if !fn(c, f.t) {
			return
		}
		conns := cc.Connections(f.id)
		for i := len(conns) - 1; i >= 0; i-- {
			ci := conns[i]
			stack = append(stack, frame{cell: ci.Cell, id: ci.ID, t: f.t.Concat(ci.Trans)})
		}
	}
}

// WalkShapes calls fn for every shape on layer of the cluster, and with
// recursive set, of all clusters linked below it. The transformation maps
// each shape into the frame of cell.
func (h *HierClusters) WalkShapes(cell layout.CellIndex, id ID, layer int, recursive bool, fn func(s layout.Shape, t geom.Trans) bool) {
	if !recursive {
		c := h.ClustersPerCell(cell).Cluster(id)
		if c == nil {
			return
		}
		for _, s := range c.Shapes(layer) {
			if !fn(s, geom.Unity()) {
				return
			}
		}
		return
	}

	stop := false
	h.walk(cell, id, func(c *LocalCluster, t geom.Trans) bool {
		for _, s := range c.Shapes(layer) {
			if !fn(s, t) {
				stop = true
				return false
			}
		}
		return !stop
	})
}

// ClusterShapes collects the shapes of a cluster on one layer, transformed
// into the frame of cell.
func (h *HierClusters) ClusterShapes(cell layout.CellIndex, id ID, layer int, recursive bool) []layout.Shape {
	var out []layout.Shape
	h.WalkShapes(cell, id, layer, recursive, func(s layout.Shape, t geom.Trans) bool {
		out = append(out, s.Transformed(t))
		return true
	})
	return out
}
