package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/connectivity"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
)

func build(t *testing.T, ly *layout.Layout, top *layout.Cell, conn *connectivity.Connectivity, threads int) *HierClusters {
	t.Helper()
	h, err := Build(context.Background(), ly, top.Index(), conn, Options{Threads: threads})
	require.NoError(t, err)
	return h
}

func TestUnionFind(t *testing.T) {
	u := newUnionFind(6)
	u.union(0, 3)
	u.union(4, 5)
	u.union(3, 5)
	assert.Equal(t, [][]int{{0, 3, 4, 5}, {1}, {2}}, u.groups())
	assert.Equal(t, u.find(0), u.find(4))
	assert.NotEqual(t, u.find(1), u.find(2))
}

func TestLocalClustering(t *testing.T) {
	ly := layout.New()
	m1 := ly.InsertLayer(layout.LayerProperties{Layer: 1})
	m2 := ly.InsertLayer(layout.LayerProperties{Layer: 2})
	top := ly.AddCell("TOP")

	top.InsertBox(m1, geom.Box{0, 0, 10, 10})
	top.InsertBox(m1, geom.Box{10, 0, 20, 10}) // touches the first
	top.InsertBox(m1, geom.Box{30, 0, 40, 10}) // isolated
	top.InsertBox(m2, geom.Box{35, 5, 60, 6})  // joins the isolated one via m2
	top.InsertBox(m2, geom.Box{100, 0, 110, 10})

	conn := connectivity.New()
	conn.Connect(m1)
	conn.ConnectLayers(m1, m2)

	h := build(t, ly, top, conn, 1)
	cc := h.ClustersPerCell(top.Index())
	require.Equal(t, 3, cc.Len())

	c1 := cc.Cluster(1)
	assert.Len(t, c1.Shapes(m1), 2)
	assert.Equal(t, geom.Box{0, 0, 20, 10}, c1.BBox())

	c2 := cc.Cluster(2)
	assert.Len(t, c2.Shapes(m1), 1)
	assert.Len(t, c2.Shapes(m2), 1)

	// m2 has no self connection: the far box stays alone
	assert.Equal(t, geom.Box{100, 0, 110, 10}, cc.Cluster(3).BBox())
	assert.Nil(t, cc.Cluster(0))
	assert.Nil(t, cc.Cluster(4))
	assert.True(t, cc.IsRoot(1))
}

func TestPropertiesSeparateShapes(t *testing.T) {
	ly := layout.New()
	l := ly.InsertLayer(layout.LayerProperties{Layer: 1})
	top := ly.AddCell("TOP")
	props := ly.Properties()
	name := props.NameID("TERMINAL_ID")

	top.Insert(l, layout.BoxShape(geom.Box{0, 0, 10, 10}, props.Single(name, 0)))
	top.Insert(l, layout.BoxShape(geom.Box{5, 0, 15, 10}, props.Single(name, 1)))

	conn := connectivity.New()
	conn.Connect(l)

	h := build(t, ly, top, conn, 1)
	assert.Equal(t, 2, h.ClustersPerCell(top.Index()).Len())

	// a shape without properties bridges both
	top.InsertBox(l, geom.Box{0, 20, 15, 30})
	top.InsertBox(l, geom.Box{0, 5, 1, 25})
	top.InsertBox(l, geom.Box{14, 5, 15, 25})
	h = build(t, ly, top, conn, 1)
	assert.Equal(t, 1, h.ClustersPerCell(top.Index()).Len())
}

func TestChildClusterLosesRootStatus(t *testing.T) {
	ly := layout.New()
	l := ly.InsertLayer(layout.LayerProperties{Layer: 1})
	a := ly.AddCell("A")
	a.InsertBox(l, geom.Box{0, 0, 10, 10})
	a.InsertBox(l, geom.Box{50, 0, 60, 10})

	top := ly.AddCell("TOP")
	top.InsertInstance(layout.Instance{Cell: a.Index(), Trans: geom.NewDisp(geom.Vector{100, 0})})
	top.InsertBox(l, geom.Box{110, 0, 120, 10})

	conn := connectivity.New()
	conn.Connect(l)

	h := build(t, ly, top, conn, 2)
	acc := h.ClustersPerCell(a.Index())
	require.Equal(t, 2, acc.Len())
	assert.False(t, acc.IsRoot(1))
	assert.True(t, acc.IsRoot(2))

	tcc := h.ClustersPerCell(top.Index())
	require.Equal(t, 1, tcc.Len())
	conns := tcc.Connections(1)
	require.Len(t, conns, 1)
	assert.Equal(t, ClusterInstance{ID: 1, Cell: a.Index(), Inst: 0, Trans: geom.NewDisp(geom.Vector{100, 0})}, conns[0])

	id, ok := tcc.FindClusterWithConnection(conns[0])
	assert.True(t, ok)
	assert.Equal(t, ID(1), id)

	local := h.ClusterShapes(top.Index(), 1, l, false)
	require.Len(t, local, 1)
	rec := h.ClusterShapes(top.Index(), 1, l, true)
	require.Len(t, rec, 2)
	assert.Equal(t, geom.Box{100, 0, 110, 10}, rec[1].BBox())
}

func TestDeepLinkCreatesConnector(t *testing.T) {
	ly := layout.New()
	l := ly.InsertLayer(layout.LayerProperties{Layer: 1})
	a := ly.AddCell("A")
	a.InsertBox(l, geom.Box{0, 0, 10, 10})
	b := ly.AddCell("B")
	b.InsertInstance(layout.Instance{Cell: a.Index(), Trans: geom.Unity()})
	top := ly.AddCell("TOP")
	top.InsertInstance(layout.Instance{Cell: b.Index(), Trans: geom.NewDisp(geom.Vector{100, 0})})
	top.InsertBox(l, geom.Box{110, 0, 150, 10})

	conn := connectivity.New()
	conn.Connect(l)

	h := build(t, ly, top, conn, 1)

	bcc := h.ClustersPerCell(b.Index())
	require.Equal(t, 1, bcc.Len())
	assert.True(t, bcc.Cluster(1).IsEmpty())
	assert.False(t, bcc.IsRoot(1))
	assert.False(t, h.ClustersPerCell(a.Index()).IsRoot(1))

	rec := h.ClusterShapes(top.Index(), 1, l, true)
	require.Len(t, rec, 2)
	assert.Equal(t, geom.Box{100, 0, 110, 10}, rec[1].BBox())
}

func TestInstanceToInstance(t *testing.T) {
	ly := layout.New()
	l := ly.InsertLayer(layout.LayerProperties{Layer: 1})
	a := ly.AddCell("A")
	a.InsertBox(l, geom.Box{0, 0, 10, 10})
	top := ly.AddCell("TOP")
	top.InsertInstance(layout.Instance{Cell: a.Index(), Trans: geom.Unity()})
	top.InsertInstance(layout.Instance{Cell: a.Index(), Trans: geom.NewDisp(geom.Vector{10, 0})})
	top.InsertInstance(layout.Instance{Cell: a.Index(), Trans: geom.NewDisp(geom.Vector{50, 0})})

	conn := connectivity.New()
	conn.Connect(l)

	h := build(t, ly, top, conn, 1)
	tcc := h.ClustersPerCell(top.Index())
	require.Equal(t, 1, tcc.Len())
	assert.Len(t, tcc.Connections(1), 2)
	assert.True(t, tcc.Cluster(1).IsEmpty())
}

func TestGlobalNetsJoinAcrossInstances(t *testing.T) {
	ly := layout.New()
	l := ly.InsertLayer(layout.LayerProperties{Layer: 1})
	a := ly.AddCell("A")
	a.InsertBox(l, geom.Box{0, 0, 10, 10})
	top := ly.AddCell("TOP")
	top.InsertInstance(layout.Instance{Cell: a.Index(), Trans: geom.Unity()})
	top.InsertInstance(layout.Instance{Cell: a.Index(), Trans: geom.NewDisp(geom.Vector{1000, 0})})

	conn := connectivity.New()
	conn.Connect(l)
	vss := conn.ConnectGlobal(l, "VSS")

	for _, threads := range []int{1, 4} {
		h := build(t, ly, top, conn, threads)
		tcc := h.ClustersPerCell(top.Index())
		require.Equal(t, 1, tcc.Len())
		assert.Len(t, tcc.Connections(1), 2)
		assert.Equal(t, []connectivity.GlobalID{vss}, tcc.Cluster(1).GlobalNets())
		assert.False(t, h.ClustersPerCell(a.Index()).IsRoot(1))
	}
}

func TestExcludedCells(t *testing.T) {
	ly := layout.New()
	l := ly.InsertLayer(layout.LayerProperties{Layer: 1})
	d := ly.AddCell("D$X")
	d.InsertBox(l, geom.Box{0, 0, 10, 10})
	top := ly.AddCell("TOP")
	top.InsertInstance(layout.Instance{Cell: d.Index(), Trans: geom.Unity()})
	top.InsertBox(l, geom.Box{5, 5, 20, 20})

	conn := connectivity.New()
	conn.Connect(l)

	h, err := Build(context.Background(), ly, top.Index(), conn, Options{Exclude: map[layout.CellIndex]bool{d.Index(): true}})
	require.NoError(t, err)
	assert.False(t, h.HasCell(d.Index()))
	tcc := h.ClustersPerCell(top.Index())
	require.Equal(t, 1, tcc.Len())
	assert.Empty(t, tcc.Connections(1))
}

func TestBuildCancelled(t *testing.T) {
	ly := layout.New()
	top := ly.AddCell("TOP")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, ly, top.Index(), connectivity.New(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalClusterInteracts(t *testing.T) {
	conn := connectivity.New()
	conn.Connect(0)

	c := NewLocalCluster()
	c.Add(0, layout.BoxShape(geom.Box{0, 0, 10, 10}, 0))
	probe := NewLocalCluster()
	probe.Add(0, layout.BoxShape(geom.Box{104, 4, 106, 6}, 0))

	assert.False(t, c.Interacts(probe, geom.Unity(), conn))
	assert.True(t, c.Interacts(probe, geom.NewDisp(geom.Vector{-100, 0}), conn))

	other := connectivity.New()
	assert.False(t, c.Interacts(probe, geom.NewDisp(geom.Vector{-100, 0}), other))
}
