// Package cluster computes connected components of shapes over a cell
// hierarchy. Each cell gets its own cluster collection. A cluster links to
// clusters of child instances it connects to, and a child cluster that some
// parent links to is no longer a root cluster.
//
// Cells of the same hierarchy height are clustered in parallel. Links into
// children are committed after each height level completes.
package cluster

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/connectivity"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
)

// Options tunes a clustering run.
type Options struct {
	// Threads bounds the number of cells clustered concurrently.
	Threads int
	// Exclude lists cells that are neither clustered nor looked into.
	Exclude map[layout.CellIndex]bool
}

// HierClusters holds the per-cell cluster collections of one hierarchy.
type HierClusters struct {
	ly      *layout.Layout
	top     layout.CellIndex
	conn    *connectivity.Connectivity
	exclude map[layout.CellIndex]bool

	cells map[layout.CellIndex]*ConnectedClusters

	mu   sync.Mutex
	flat map[flatKey]*flatCluster
}

type flatKey struct {
	cell layout.CellIndex
	id   ID
}

// flatCluster is a cluster's geometry including everything linked below it,
// in the frame of its own cell.
type flatCluster struct {
	shapes  map[int][]layout.Shape
	bbox    geom.Box
	globals []connectivity.GlobalID
}

// pendingLink is a link found while clustering a cell that needs to be
// committed after the level completes. A path longer than one instance
// step requires connector clusters in the intermediate cells.
type pendingLink struct {
	cluster ID
	path    []int
	leaf    ID
}

type cellResult struct {
	cell  layout.CellIndex
	cc    *ConnectedClusters
	links []pendingLink
}

// Build clusters all cells below top over the layers of conn.
func Build(ctx context.Context, ly *layout.Layout, top layout.CellIndex, conn *connectivity.Connectivity, opts Options) (*HierClusters, error) {
	if ly.Cell(top) == nil {
		return nil, fmt.Errorf("cluster: invalid top cell %d", top)
	}
	h := &HierClusters{
		ly:      ly,
		top:     top,
		conn:    conn,
		exclude: opts.Exclude,
		cells:   make(map[layout.CellIndex]*ConnectedClusters),
		flat:    make(map[flatKey]*flatCluster),
	}
	ly.UpdateBBoxes()

	reached := h.reachable()
	layers := conn.Layers()

	for _, level := range ly.Levels() {
		var cells []layout.CellIndex
		for _, ci := range level {
			if reached[ci] {
				cells = append(cells, ci)
			}
		}
		if len(cells) == 0 {
			continue
		}

		results := make([]*cellResult, len(cells))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(opts.Threads, 1))
		for i, ci := range cells {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = h.buildCell(ci, layers)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("cluster: build interrupted: %w", err)
		}

		for _, r := range results {
			h.cells[r.cell] = r.cc
		}
		for _, r := range results {
			h.commit(r)
		}
	}
	return h, nil
}

func (h *HierClusters) reachable() map[layout.CellIndex]bool {
	seen := map[layout.CellIndex]bool{h.top: true}
	stack := []layout.CellIndex{h.top}
	for len(stack) > 0 {
		ci := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range h.ly.Cell(ci).ChildCells() {
			if !seen[child] && !h.exclude[child] {
				seen[child] = true
				stack = append(stack, child)
			}
		}
	}
	return seen
}

// Layout returns the clustered layout.
func (h *HierClusters) Layout() *layout.Layout { return h.ly }

// Top returns the top cell of the clustered hierarchy.
func (h *HierClusters) Top() layout.CellIndex { return h.top }

// Connectivity returns the connectivity the clusters were built with.
func (h *HierClusters) Connectivity() *connectivity.Connectivity { return h.conn }

// ClustersPerCell returns the cluster collection of a cell. Cells that were
// not clustered yield an empty collection.
func (h *HierClusters) ClustersPerCell(ci layout.CellIndex) *ConnectedClusters {
	if cc, ok := h.cells[ci]; ok {
		return cc
	}
	return newConnectedClusters()
}

// New creates an empty cluster hierarchy to be filled through
// ConnectedClusters.Insert and AddConnection, as when reading a stored
// extraction result.
func New(ly *layout.Layout, top layout.CellIndex, conn *connectivity.Connectivity) *HierClusters {
	return &HierClusters{
		ly:    ly,
		top:   top,
		conn:  conn,
		cells: make(map[layout.CellIndex]*ConnectedClusters),
		flat:  make(map[flatKey]*flatCluster),
	}
}

// CellClusters returns the cluster collection of a cell, creating an empty
// one if the cell has none.
func (h *HierClusters) CellClusters(ci layout.CellIndex) *ConnectedClusters {
	cc, ok := h.cells[ci]
	if !ok {
		cc = newConnectedClusters()
		h.cells[ci] = cc
	}
	return cc
}

// AddConnection links cluster id of cell to a cluster of a child instance.
// The child cluster loses its root status.
func (h *HierClusters) AddConnection(cell layout.CellIndex, id ID, ref ClusterInstance) {
	h.CellClusters(cell).addConnection(id, ref)
	h.CellClusters(ref.Cell).markUpward(ref.ID)
}

// HasCell reports whether a cell was clustered.
func (h *HierClusters) HasCell(ci layout.CellIndex) bool {
	_, ok := h.cells[ci]
	return ok
}

type item struct {
	layer int
	shape layout.Shape
	bbox  geom.Box
}

type candidate struct {
	path  []int
	cell  layout.CellIndex
	id    ID
	trans geom.Trans
	flat  *flatCluster
	bbox  geom.Box

	shapes map[int][]layout.Shape
}

func (c *candidate) transformed() map[int][]layout.Shape {
	if c.shapes == nil {
		c.shapes = make(map[int][]layout.Shape, len(c.flat.shapes))
		for l, ss := range c.flat.shapes {
			for _, s := range ss {
				c.shapes[l] = append(c.shapes[l], s.Transformed(c.trans))
			}
		}
	}
	return c.shapes
}

func (h *HierClusters) localClusters(cell *layout.Cell, layers []int) []*LocalCluster {
	var items []item
	for _, l := range layers {
		for _, s := range cell.Shapes(l) {
			if s.IsText() {
				continue
			}
			items = append(items, item{layer: l, shape: s, bbox: s.BBox()})
		}
	}

	uf := newUnionFind(len(items))

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return items[order[a]].bbox.Left < items[order[b]].bbox.Left })
	for oi, i := range order {
		a := items[i]
		for _, j := range order[oi+1:] {
			b := items[j]
			if b.bbox.Left > a.bbox.Right {
				break
			}
			if !h.conn.Interacts(a.layer, b.layer) {
				continue
			}
			if shapesConnect(a.shape, b.shape) {
				uf.union(i, j)
			}
		}
	}

	firstWithGlobal := make(map[connectivity.GlobalID]int)
	for i, it := range items {
		for _, g := range h.conn.GlobalNets(it.layer) {
			if f, ok := firstWithGlobal[g]; ok {
				uf.union(f, i)
			} else {
				firstWithGlobal[g] = i
			}
		}
	}

	var out []*LocalCluster
	for _, grp := range uf.groups() {
		c := NewLocalCluster()
		for _, i := range grp {
			c.Add(items[i].layer, items[i].shape)
			for _, g := range h.conn.GlobalNets(items[i].layer) {
				c.AddGlobal(g)
			}
		}
		out = append(out, c)
	}
	return out
}

func (h *HierClusters) buildCell(ci layout.CellIndex, layers []int) *cellResult {
	cell := h.ly.Cell(ci)
	locals := h.localClusters(cell, layers)

	insts := cell.Instances()
	instBoxes := make([]geom.Box, len(insts))
	for k, inst := range insts {
		if h.exclude[inst.Cell] {
			instBoxes[k] = geom.EmptyBox()
			continue
		}
		instBoxes[k] = h.ly.Cell(inst.Cell).BBox().Transformed(inst.Trans)
	}

	var cands []*candidate
	for k := range insts {
		if h.exclude[insts[k].Cell] {
			continue
		}
		interest := func(b geom.Box) bool {
			for _, lc := range locals {
				if lc.BBox().Touches(b) {
					return true
				}
			}
			for k2, ib := range instBoxes {
				if k2 != k && ib.Touches(b) {
					return true
				}
			}
			return false
		}
		cands = append(cands, h.candidates(ci, k, interest)...)
	}

	nl := len(locals)
	uf := newUnionFind(nl + len(cands))

	for li, lc := range locals {
		for cj, c := range cands {
			if !lc.BBox().Touches(c.bbox) {
				continue
			}
			if shapesInteract(h.conn, lc.shapes, c.transformed()) {
				uf.union(li, nl+cj)
			}
		}
	}
	for i, a := range cands {
		for j := i + 1; j < len(cands); j++ {
			b := cands[j]
			if a.path[0] == b.path[0] || !a.bbox.Touches(b.bbox) {
				continue
			}
			if shapesInteract(h.conn, a.transformed(), b.transformed()) {
				uf.union(nl+i, nl+j)
			}
		}
	}

	firstWithGlobal := make(map[connectivity.GlobalID]int)
	joinGlobals := func(node int, gs []connectivity.GlobalID) {
		for _, g := range gs {
			if f, ok := firstWithGlobal[g]; ok {
				uf.union(f, node)
			} else {
				firstWithGlobal[g] = node
			}
		}
	}
	for li, lc := range locals {
		joinGlobals(li, lc.GlobalNets())
	}
	for cj, c := range cands {
		joinGlobals(nl+cj, c.flat.globals)
	}

	res := &cellResult{cell: ci, cc: newConnectedClusters()}
	for _, grp := range uf.groups() {
		var merged *LocalCluster
		hasGlobal := false
		for _, n := range grp {
			if n < nl {
				if merged == nil {
					merged = NewLocalCluster()
				}
				lc := locals[n]
				for _, l := range lc.Layers() {
					for _, s := range lc.shapes[l] {
						merged.Add(l, s)
					}
				}
				for g := range lc.globals {
					merged.AddGlobal(g)
				}
			} else if len(cands[n-nl].flat.globals) > 0 {
				hasGlobal = true
			}
		}
		if merged == nil {
			if len(grp) < 2 && !hasGlobal {
				continue
			}
			merged = NewLocalCluster()
		}

		id := res.cc.Insert(merged)
		for _, n := range grp {
			if n < nl {
				continue
			}
			c := cands[n-nl]
			for _, g := range c.flat.globals {
				merged.AddGlobal(g)
			}
			if len(c.path) == 1 {
				inst := insts[c.path[0]]
				res.cc.addConnection(id, ClusterInstance{ID: c.id, Cell: inst.Cell, Inst: c.path[0], Trans: inst.Trans, PropID: inst.PropID})
			}
			res.links = append(res.links, pendingLink{cluster: id, path: c.path, leaf: c.id})
		}
	}
	return res
}

// candidates lists the clusters below instance k of cell ci that may connect
// to something in ci: the child cell's own clusters and, deeper down,
// clusters not yet linked into their parent cell.
func (h *HierClusters) candidates(ci layout.CellIndex, k int, interest func(geom.Box) bool) []*candidate {
	type frame struct {
		owner layout.CellIndex
		cell  layout.CellIndex
		trans geom.Trans
		path  []int
	}
	inst := h.ly.Cell(ci).Instances()[k]
	stack := []frame{{owner: ci, cell: inst.Cell, trans: inst.Trans, path: []int{k}}}

	var out []*candidate
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cc, ok := h.cells[f.cell]
		if !ok {
			continue
		}
		var ownerCC *ConnectedClusters
		var step layout.Instance
		if len(f.path) > 1 {
			ownerCC = h.cells[f.owner]
			step = h.ly.Cell(f.owner).Instances()[f.path[len(f.path)-1]]
		}

		for _, c := range cc.Clusters() {
			if ownerCC != nil {
				ref := ClusterInstance{ID: c.id, Cell: f.cell, Inst: f.path[len(f.path)-1], Trans: step.Trans, PropID: step.PropID}
				if _, linked := ownerCC.FindClusterWithConnection(ref); linked {
					continue
				}
			}
			fc := h.flatten(f.cell, c.id)
			bbox := fc.bbox.Transformed(f.trans)
			if len(fc.globals) == 0 && (bbox.IsEmpty() || !interest(bbox)) {
				continue
			}
			out = append(out, &candidate{
				path:  f.path,
				cell:  f.cell,
				id:    c.id,
				trans: f.trans,
				flat:  fc,
				bbox:  bbox,
			})
		}

		for j, sub := range h.ly.Cell(f.cell).Instances() {
			if h.exclude[sub.Cell] {
				continue
			}
			t := f.trans.Concat(sub.Trans)
			if !interest(h.ly.Cell(sub.Cell).BBox().Transformed(t)) {
				continue
			}
			path := make([]int, len(f.path)+1)
			copy(path, f.path)
			path[len(f.path)] = j
			stack = append(stack, frame{owner: f.cell, cell: sub.Cell, trans: t, path: path})
		}
	}
	return out
}

func (h *HierClusters) commit(r *cellResult) {
	insts := h.ly.Cell(r.cell).Instances()
	for _, l := range r.links {
		if len(l.path) == 1 {
			h.cells[insts[l.path[0]].Cell].markUpward(l.leaf)
			continue
		}
		ref := h.resolve(r.cell, l.path, l.leaf)
		r.cc.addConnection(l.cluster, ref)
		h.cells[ref.Cell].markUpward(ref.ID)
	}
}

// resolve turns a multi-step link into a reference to a cluster of the
// direct child, creating connector clusters in intermediate cells.
func (h *HierClusters) resolve(ci layout.CellIndex, path []int, leaf ID) ClusterInstance {
	cells := []layout.CellIndex{ci}
	for _, k := range path {
		cells = append(cells, h.ly.Cell(cells[len(cells)-1]).Instances()[k].Cell)
	}

	id := leaf
	for i := len(path) - 1; i >= 1; i-- {
		owner := cells[i]
		inst := h.ly.Cell(owner).Instances()[path[i]]
		ref := ClusterInstance{ID: id, Cell: cells[i+1], Inst: path[i], Trans: inst.Trans, PropID: inst.PropID}
		occ := h.cells[owner]
		if existing, ok := occ.FindClusterWithConnection(ref); ok {
			id = existing
			continue
		}
		conn := NewLocalCluster()
		for _, g := range h.flatten(ref.Cell, ref.ID).globals {
			conn.AddGlobal(g)
		}
		nid := occ.Insert(conn)
		occ.addConnection(nid, ref)
		h.cells[ref.Cell].markUpward(ref.ID)
		id = nid
	}

	inst := h.ly.Cell(ci).Instances()[path[0]]
	return ClusterInstance{ID: id, Cell: cells[1], Inst: path[0], Trans: inst.Trans, PropID: inst.PropID}
}

func (h *HierClusters) flatten(cell layout.CellIndex, id ID) *flatCluster {
	key := flatKey{cell, id}
	h.mu.Lock()
	fc, ok := h.flat[key]
	h.mu.Unlock()
	if ok {
		return fc
	}

	fc = &flatCluster{shapes: make(map[int][]layout.Shape), bbox: geom.EmptyBox()}
	globals := make(map[connectivity.GlobalID]bool)
	h.walk(cell, id, func(c *LocalCluster, t geom.Trans) bool {
		for _, l := range c.Layers() {
			for _, s := range c.shapes[l] {
				ts := s.Transformed(t)
				fc.shapes[l] = append(fc.shapes[l], ts)
				fc.bbox = fc.bbox.Add(ts.BBox())
			}
		}
		for g := range c.globals {
			globals[g] = true
		}
		return true
	})
	for g := range globals {
		fc.globals = append(fc.globals, g)
	}
	sort.Slice(fc.globals, func(i, j int) bool { return fc.globals[i] < fc.globals[j] })

	h.mu.Lock()
	h.flat[key] = fc
	h.mu.Unlock()
	return fc
}
