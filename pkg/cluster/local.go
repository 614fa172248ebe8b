package cluster

import (
	"sort"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/connectivity"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
)

// ID identifies a cluster within one cell. Zero is never a valid id.
type ID uint

// LocalCluster is a set of connected shapes inside one cell. It may be
// empty when it only joins clusters of child instances.
type LocalCluster struct {
	id      ID
	shapes  map[int][]layout.Shape
	globals map[connectivity.GlobalID]bool
	bbox    geom.Box
}

// NewLocalCluster creates a free-standing cluster, e.g. a probe cluster.
func NewLocalCluster() *LocalCluster {
	return &LocalCluster{
		shapes:  make(map[int][]layout.Shape),
		globals: make(map[connectivity.GlobalID]bool),
		bbox:    geom.EmptyBox(),
	}
}

// ID returns the cluster id.
func (c *LocalCluster) ID() ID { return c.id }

// Add inserts a shape on a layer.
func (c *LocalCluster) Add(layer int, s layout.Shape) {
	c.shapes[layer] = append(c.shapes[layer], s)
	c.bbox = c.bbox.Add(s.BBox())
}

// AddGlobal attaches a global net.
func (c *LocalCluster) AddGlobal(id connectivity.GlobalID) {
	c.globals[id] = true
}

// Shapes returns the shapes on one layer.
func (c *LocalCluster) Shapes(layer int) []layout.Shape { return c.shapes[layer] }

// Layers returns the layers with shapes, sorted.
func (c *LocalCluster) Layers() []int {
	ls := make([]int, 0, len(c.shapes))
	for l, s := range c.shapes {
		if len(s) > 0 {
			ls = append(ls, l)
		}
	}
	sort.Ints(ls)
	return ls
}

// GlobalNets returns the attached global nets, sorted.
func (c *LocalCluster) GlobalNets() []connectivity.GlobalID {
	out := make([]connectivity.GlobalID, 0, len(c.globals))
	for id := range c.globals {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BBox returns the bounding box of the local shapes.
func (c *LocalCluster) BBox() geom.Box { return c.bbox }

// IsEmpty reports whether the cluster has no local shapes.
func (c *LocalCluster) IsEmpty() bool { return c.bbox.IsEmpty() }

// PropIDs returns the distinct non-zero property ids of the shapes, sorted.
func (c *LocalCluster) PropIDs() []layout.PropID {
	seen := make(map[layout.PropID]bool)
	var out []layout.PropID
	for _, l := range c.Layers() {
		for _, s := range c.shapes[l] {
			if s.PropID != 0 && !seen[s.PropID] {
				seen[s.PropID] = true
				out = append(out, s.PropID)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Interacts reports whether any shape of other, transformed by t into this
// cluster's frame, connects to a shape of c.
func (c *LocalCluster) Interacts(other *LocalCluster, t geom.Trans, conn *connectivity.Connectivity) bool {
	if c.IsEmpty() || other.IsEmpty() {
		return false
	}
	if !c.bbox.Touches(other.bbox.Transformed(t)) {
		return false
	}
	moved := make(map[int][]layout.Shape, len(other.shapes))
	for l, ss := range other.shapes {
		for _, s := range ss {
			moved[l] = append(moved[l], s.Transformed(t))
		}
	}
	return shapesInteract(conn, c.shapes, moved)
}

// ClusterInstance references a cluster of a child cell through one
// instance of the parent cell.
type ClusterInstance struct {
	ID     ID
	Cell   layout.CellIndex
	Inst   int
	Trans  geom.Trans
	PropID layout.PropID
}

// ConnectedClusters holds the clusters of one cell together with their links
// into child instances.
type ConnectedClusters struct {
	clusters []*LocalCluster
	conns    map[ID][]ClusterInstance
	rev      map[ClusterInstance]ID
	upward   map[ID]bool
}

func newConnectedClusters() *ConnectedClusters {
	return &ConnectedClusters{
		conns:  make(map[ID][]ClusterInstance),
		rev:    make(map[ClusterInstance]ID),
		upward: make(map[ID]bool),
	}
}

// Len returns the number of clusters.
func (cc *ConnectedClusters) Len() int { return len(cc.clusters) }

// Clusters returns the clusters in id order.
func (cc *ConnectedClusters) Clusters() []*LocalCluster { return cc.clusters }

// Cluster returns a cluster by id or nil.
func (cc *ConnectedClusters) Cluster(id ID) *LocalCluster {
	if id == 0 || int(id) > len(cc.clusters) {
		return nil
	}
	return cc.clusters[id-1]
}

// Insert adds a cluster and assigns its id. Ids are dense from 1.
func (cc *ConnectedClusters) Insert(c *LocalCluster) ID {
	cc.clusters = append(cc.clusters, c)
	c.id = ID(len(cc.clusters))
	return c.id
}

// Connections returns the child-cluster links of a cluster.
func (cc *ConnectedClusters) Connections(id ID) []ClusterInstance {
	return cc.conns[id]
}

func (cc *ConnectedClusters) addConnection(id ID, ci ClusterInstance) {
	cc.conns[id] = append(cc.conns[id], ci)
	cc.rev[ci] = id
}

// FindClusterWithConnection returns the cluster that links to ci.
func (cc *ConnectedClusters) FindClusterWithConnection(ci ClusterInstance) (ID, bool) {
	id, ok := cc.rev[ci]
	return id, ok
}

// IsRoot reports whether no parent cell links to the cluster.
func (cc *ConnectedClusters) IsRoot(id ID) bool { return !cc.upward[id] }

func (cc *ConnectedClusters) markUpward(id ID) { cc.upward[id] = true }

func propsCompatible(a, b layout.PropID) bool {
	return a == 0 || b == 0 || a == b
}

func shapesConnect(a, b layout.Shape) bool {
	if !propsCompatible(a.PropID, b.PropID) {
		return false
	}
	if !a.BBox().Touches(b.BBox()) {
		return false
	}
	return a.Polygon.Interacts(b.Polygon)
}

// shapesInteract reports whether two per-layer shape sets in the same frame
// connect under conn.
func shapesInteract(conn *connectivity.Connectivity, a, b map[int][]layout.Shape) bool {
	for la, sa := range a {
		for lb, sb := range b {
			if !conn.Interacts(la, lb) {
				continue
			}
			for _, x := range sa {
				for _, y := range sb {
					if shapesConnect(x, y) {
						return true
					}
				}
			}
		}
	}
	return false
}
