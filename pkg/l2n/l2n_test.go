package l2n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/extract"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/region"
)

// hierFixture is a TOP cell with two SUB instances at x=0 and x=100. SUB
// holds one M1 square labelled "A", TOP a wire overlapping each instance.
type hierFixture struct {
	src      *layout.Layout
	top, sub *layout.Cell
	m1, lbl  int
}

func newHierFixture() *hierFixture {
	ly := layout.New()
	f := &hierFixture{
		src: ly,
		m1:  ly.InsertLayer(layout.LayerProperties{Layer: 1, Name: "M1"}),
		lbl: ly.InsertLayer(layout.LayerProperties{Layer: 2, Name: "LBL"}),
	}
	f.sub = ly.AddCell("SUB")
	f.sub.InsertBox(f.m1, geom.Box{Left: 0, Bottom: 0, Right: 10, Top: 10})
	f.sub.InsertText(f.lbl, "A", geom.Point{X: 5, Y: 5})

	f.top = ly.AddCell("TOP")
	for _, x := range []int64{0, 100} {
		f.top.InsertInstance(layout.Instance{Cell: f.sub.Index(), Trans: geom.NewDisp(geom.Vector{X: x})})
		f.top.InsertBox(f.m1, geom.Box{Left: x + 8, Bottom: 0, Right: x + 30, Top: 10})
	}
	return f
}

func (f *hierFixture) newL2N(t *testing.T) (*LayoutToNetlist, *region.Region, *region.Region) {
	t.Helper()
	l, err := New(layout.NewRecursiveShapeIterator(f.src, f.top.Index(), f.m1))
	require.NoError(t, err)
	t.Cleanup(l.Close)

	m1, err := l.MakePolygonLayer(f.m1, "M1")
	require.NoError(t, err)
	lbl, err := l.MakeTextLayer(f.lbl, "LBL")
	require.NoError(t, err)
	require.NoError(t, l.Connect(m1))
	require.NoError(t, l.ConnectLayers(m1, lbl))
	return l, m1, lbl
}

func (f *hierFixture) extract(t *testing.T) (*LayoutToNetlist, *region.Region, *region.Region) {
	t.Helper()
	l, m1, lbl := f.newL2N(t)
	require.NoError(t, l.ExtractNetlist(context.Background()))
	return l, m1, lbl
}

func TestNewRejectsClippedIterator(t *testing.T) {
	f := newHierFixture()
	it := layout.NewRecursiveShapeIterator(f.src, f.top.Index(), f.m1).
		WithRegion(geom.Box{Left: 0, Bottom: 0, Right: 5, Top: 5})
	_, err := New(it)
	assert.ErrorIs(t, err, ErrClippedLayout)
}

func TestLayerRegistry(t *testing.T) {
	f := newHierFixture()
	l, m1, lbl := f.newL2N(t)

	r, ok := l.LayerByName("M1")
	require.True(t, ok)
	assert.Equal(t, "M1", l.NameOf(r))
	assert.Equal(t, "LBL", l.NameOf(lbl))
	_, ok = l.LayerByName("NOPE")
	assert.False(t, ok)

	m1Layer, err := l.LayerOf(m1)
	require.NoError(t, err)
	lblLayer, err := l.LayerOf(lbl)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{m1Layer: "M1", lblLayer: "LBL"}, l.LayerNames())
	assert.Equal(t, []int{m1Layer, lblLayer}, l.Connectivity().Layers())

	empty := l.MakeEmptyLayer("SCRATCH")
	assert.Equal(t, "SCRATCH", l.NameOf(empty))
	assert.True(t, empty.IsEmpty())

	// two SUB squares and two wires; labels only on the text layer
	assert.Equal(t, 4, m1.Count())
	assert.Equal(t, 2, lbl.Count())

	_, err = l.LayerOf(region.New())
	assert.ErrorIs(t, err, ErrNotDeep)

	other, _, _ := newHierFixture().newL2N(t)
	foreign, _ := other.LayerByName("M1")
	_, err = l.LayerOf(foreign)
	assert.ErrorContains(t, err, "does not belong to this extractor")
}

func TestConnectRejectsFlatRegions(t *testing.T) {
	f := newHierFixture()
	l, err := New(layout.NewRecursiveShapeIterator(f.src, f.top.Index(), f.m1))
	require.NoError(t, err)
	defer l.Close()
	m1, err := l.MakeLayer(f.m1, "M1")
	require.NoError(t, err)

	flat := region.New(geom.NewBoxPolygon(geom.Box{Left: 0, Bottom: 0, Right: 1, Top: 1}))

	assert.ErrorIs(t, l.Connect(flat), ErrNotDeep)
	assert.ErrorIs(t, l.ConnectLayers(m1, flat), ErrNotDeep)
	assert.ErrorIs(t, l.ConnectLayers(flat, m1), ErrNotDeep)
	_, err = l.ConnectGlobal(flat, "VSS")
	assert.ErrorIs(t, err, ErrNotDeep)

	assert.Empty(t, l.Connectivity().Layers())
	assert.Equal(t, 0, l.Connectivity().GlobalNetCount())
}

func TestStandaloneHasNoSource(t *testing.T) {
	l, err := NewStandalone()
	require.NoError(t, err)
	defer l.Close()

	_, err = l.MakeLayer(0, "M1")
	assert.Error(t, err)

	top, ok := l.InternalTopCell()
	require.True(t, ok)
	assert.Equal(t, "TOP", l.InternalLayout().Cell(top).Name())
}

func TestExtractionLifecycle(t *testing.T) {
	f := newHierFixture()
	l, m1, _ := f.newL2N(t)

	_, err := l.NetClusters()
	assert.ErrorIs(t, err, ErrNotExtracted)
	_, err = l.ProbeNetDBU(m1, geom.Point{X: 3, Y: 5})
	assert.ErrorIs(t, err, ErrNotExtracted)
	assert.False(t, l.IsExtracted())

	require.NoError(t, l.ExtractNetlist(context.Background()))
	assert.True(t, l.IsExtracted())

	hc, err := l.NetClusters()
	require.NoError(t, err)
	assert.NotNil(t, hc)

	assert.ErrorIs(t, l.ExtractNetlist(context.Background()), ErrAlreadyExtracted)
	assert.ErrorIs(t, l.Connect(m1), ErrAlreadyExtracted)
	_, err = l.ConnectGlobal(m1, "VDD")
	assert.ErrorIs(t, err, ErrAlreadyExtracted)
}

func TestExtractNetlistHierarchy(t *testing.T) {
	f := newHierFixture()
	l, _, _ := f.extract(t)
	nl := l.Netlist()

	sub := nl.CircuitByName("SUB")
	require.NotNil(t, sub)
	require.Len(t, sub.Nets(), 1)
	a := sub.Nets()[0]
	assert.Equal(t, "A", a.Name())
	require.Len(t, sub.Pins(), 1)
	assert.Equal(t, "A", sub.Pins()[0].Name())
	assert.Same(t, a, sub.NetForPin(0))

	top := nl.CircuitByName("TOP")
	require.NotNil(t, top)
	assert.Empty(t, top.Pins())
	require.Len(t, top.Nets(), 2)
	require.Len(t, top.SubCircuits(), 2)

	n0 := top.SubCircuits()[0].NetForPin(0)
	n1 := top.SubCircuits()[1].NetForPin(0)
	require.NotNil(t, n0)
	require.NotNil(t, n1)
	assert.NotSame(t, n0, n1)
	assert.Same(t, sub, top.SubCircuits()[1].CircuitRef())
	assert.InDelta(t, 0.1, top.SubCircuits()[1].Trans().Disp.X, 1e-12)

	assert.Equal(t, []*netlist.Circuit{top}, nl.TopCircuits())
}

func TestShapesOfNet(t *testing.T) {
	f := newHierFixture()
	l, m1, lbl := f.extract(t)
	top := l.Netlist().CircuitByName("TOP")
	net := top.SubCircuits()[0].NetForPin(0)

	tests := []struct {
		name      string
		recursive bool
		want      []geom.Box
	}{
		{"local", false, []geom.Box{{Left: 8, Bottom: 0, Right: 30, Top: 10}}},
		{"recursive", true, []geom.Box{
			{Left: 0, Bottom: 0, Right: 10, Top: 10},
			{Left: 8, Bottom: 0, Right: 30, Top: 10},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := l.ShapesOfNet(net, m1, tt.recursive)
			require.NoError(t, err)
			var got []geom.Box
			for _, p := range r.Sorted() {
				got = append(got, p.BBox())
			}
			assert.Equal(t, tt.want, got)
		})
	}

	a := l.Netlist().CircuitByName("SUB").NetByName("A")
	r, err := l.ShapesOfNet(a, lbl, false)
	require.NoError(t, err)
	require.Equal(t, 1, r.Count())
	assert.Equal(t, geom.Box{Left: 4, Bottom: 4, Right: 6, Top: 6}, r.Polygons()[0].BBox())
}

func TestProbeNet(t *testing.T) {
	f := newHierFixture()
	l, m1, _ := f.extract(t)
	top := l.Netlist().CircuitByName("TOP")
	left := top.SubCircuits()[0].NetForPin(0)
	right := top.SubCircuits()[1].NetForPin(0)

	tests := []struct {
		name string
		p    geom.Point
		want *netlist.Net
	}{
		{"inside first instance", geom.Point{X: 3, Y: 5}, left},
		{"inside second instance", geom.Point{X: 103, Y: 5}, right},
		{"on top level wire", geom.Point{X: 20, Y: 5}, left},
		{"nothing there", geom.Point{X: 50, Y: 50}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.ProbeNetDBU(m1, tt.p)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}

	got, err := l.ProbeNet(m1, geom.DPoint{X: 0.103, Y: 0.005})
	require.NoError(t, err)
	assert.Same(t, right, got)
}

func TestProbeStopsAtUnconnectedPin(t *testing.T) {
	f := newHierFixture()
	// a third SUB with nothing attached keeps its net inside SUB
	f.top.InsertInstance(layout.Instance{Cell: f.sub.Index(), Trans: geom.NewDisp(geom.Vector{X: 200})})
	l, m1, _ := f.extract(t)

	got, err := l.ProbeNetDBU(m1, geom.Point{X: 203, Y: 5})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SUB", got.Circuit().Name())
	assert.Equal(t, "A", got.Name())
}

func TestProbeRemovedCircuit(t *testing.T) {
	f := newHierFixture()
	l, m1, _ := f.extract(t)
	nl := l.Netlist()
	nl.RemoveCircuit(nl.CircuitByName("SUB"))

	got, err := l.ProbeNetDBU(m1, geom.Point{X: 3, Y: 5})
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = l.ProbeNetDBU(m1, geom.Point{X: 20, Y: 5})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "TOP", got.Circuit().Name())
}

func TestCellMappingInto(t *testing.T) {
	f := newHierFixture()
	l, _, _ := f.extract(t)
	internalTop, _ := l.InternalTopCell()
	internalSub, ok := l.DeepShapeStore().InternalCell(f.sub.Index())
	require.True(t, ok)

	cm, err := l.CellMappingInto(f.src, f.top.Index(), false)
	require.NoError(t, err)
	got, ok := cm.Target(internalTop)
	require.True(t, ok)
	assert.Equal(t, f.top.Index(), got)
	got, ok = cm.Target(internalSub)
	require.True(t, ok)
	assert.Equal(t, f.sub.Index(), got)

	target := layout.New()
	tc := target.AddCell("T")
	cm, err = l.ConstCellMappingInto(target, tc.Index())
	require.NoError(t, err)
	got, ok = cm.Target(internalTop)
	require.True(t, ok)
	assert.Equal(t, tc.Index(), got)
	assert.Equal(t, 1, target.CellCount())
}

// mosFixture draws one MOS transistor: source, gate and drain side by side.
func mosFixture() (*layout.Layout, *layout.Cell, int, int) {
	ly := layout.New()
	top := ly.AddCell("TOP")
	sd := ly.InsertLayer(layout.LayerProperties{Layer: 1, Name: "SD"})
	g := ly.InsertLayer(layout.LayerProperties{Layer: 2, Name: "G"})
	top.InsertBox(sd, geom.Box{Left: 0, Bottom: 0, Right: 10, Top: 20})
	top.InsertBox(g, geom.Box{Left: 10, Bottom: 0, Right: 15, Top: 20})
	top.InsertBox(sd, geom.Box{Left: 15, Bottom: 0, Right: 25, Top: 20})
	return ly, top, sd, g
}

func extractMOS(t *testing.T) *LayoutToNetlist {
	t.Helper()
	ly, top, sdLayer, gLayer := mosFixture()
	l, err := New(layout.NewRecursiveShapeIterator(ly, top.Index(), sdLayer))
	require.NoError(t, err)
	t.Cleanup(l.Close)

	sd, err := l.MakePolygonLayer(sdLayer, "SD")
	require.NoError(t, err)
	g, err := l.MakePolygonLayer(gLayer, "G")
	require.NoError(t, err)

	x := extract.NewMOS3Extractor("NMOS")
	require.NoError(t, l.ExtractDevices(context.Background(), x, map[string]*region.Region{"SD": sd, "G": g}))
	require.False(t, x.HasErrors())

	require.NoError(t, l.Connect(sd))
	require.NoError(t, l.Connect(g))
	require.NoError(t, l.ExtractNetlist(context.Background()))
	return l
}

func TestExtractDevicesAndNets(t *testing.T) {
	l := extractMOS(t)
	nl := l.Netlist()

	top := nl.CircuitByName("TOP")
	require.NotNil(t, top)
	require.Len(t, top.Devices(), 1)
	assert.Len(t, top.Nets(), 3)

	d := top.Devices()[0]
	assert.Equal(t, "NMOS", d.Class().Name())
	seen := make(map[*netlist.Net]bool)
	for _, name := range []string{"S", "G", "D"} {
		tid, ok := d.Class().TerminalID(name)
		require.True(t, ok)
		n := d.NetForTerminal(tid)
		require.NotNil(t, n, "terminal %s", name)
		assert.False(t, seen[n], "terminal %s shares a net", name)
		seen[n] = true
	}

	// device abstract cells do not become circuits
	assert.Len(t, nl.Circuits(), 1)
}
