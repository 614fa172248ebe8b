package l2n

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/cluster"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/region"
)

// ShapesOfNet returns the shapes of a net on one layer in the coordinates of
// the net's circuit. With recursive set, shapes of the subcircuit nets
// joined to it are included as well.
func (l *LayoutToNetlist) ShapesOfNet(net *netlist.Net, r *region.Region, recursive bool) (*region.Region, error) {
	if !l.extracted {
		return nil, ErrNotExtracted
	}
	layer, err := l.LayerOf(r)
	if err != nil {
		return nil, err
	}
	c := net.Circuit()
	if c == nil {
		return nil, fmt.Errorf("l2n: net %s is not part of a circuit", net.ExpandedName())
	}
	ci, ok := c.CellIndex()
	if !ok {
		return nil, fmt.Errorf("l2n: circuit %s has no layout cell", c.Name())
	}

	out := region.New()
	for _, s := range l.clusters.ClusterShapes(ci, net.ClusterID(), layer, recursive) {
		if !s.IsText() {
			out.Insert(s.Polygon)
		}
	}
	return out, nil
}

// ProbeNet returns the net found at a point given in user units on a
// layer. The result is the net of the topmost circuit the net is routed
// into through pins. A point on no net yields nil without an error.
func (l *LayoutToNetlist) ProbeNet(r *region.Region, p geom.DPoint) (*netlist.Net, error) {
	dbu := l.dss.Layout().DBU()
	return l.ProbeNetDBU(r, geom.DPoint{X: p.X / dbu, Y: p.Y / dbu}.Round())
}

// ProbeNetDBU is ProbeNet with the point in database units.
func (l *LayoutToNetlist) ProbeNetDBU(r *region.Region, p geom.Point) (*netlist.Net, error) {
	if !l.extracted {
		return nil, ErrNotExtracted
	}
	layer, err := l.LayerOf(r)
	if err != nil {
		return nil, err
	}
	top, ok := l.dss.TopCell()
	if !ok {
		return nil, fmt.Errorf("l2n: no internal top cell")
	}

	test := cluster.NewLocalCluster()
	test.Add(layer, layout.BoxShape(geom.NewBox(p, p).Enlarged(1), 0))

	id, path := l.searchNet(top, test)
	if id == 0 {
		probeTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}

	cells := make([]layout.CellIndex, 0, len(path)+1)
	cells = append(cells, top)
	for _, inst := range path {
		cells = append(cells, inst.Cell)
	}

	// circuits or nets may have been removed from the netlist since
	var net *netlist.Net
	circuit := l.nl.CircuitByCell(cells[len(cells)-1])
	if circuit != nil {
		net = circuit.NetByClusterID(id)
	}
	if net == nil {
		probeTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}

	dbu := l.dss.Layout().DBU()
	for len(path) > 0 && net.IsExternal() {
		cells = cells[:len(cells)-1]
		parentCell := cells[len(cells)-1]
		pinID := net.Pins()[0]
		dtrans := path[len(path)-1].Trans.Scaled(dbu)

		var up *netlist.Net
		for _, sc := range circuit.Refs() {
			parent := sc.Circuit()
			if parent == nil || !sc.Trans().Equal(dtrans) {
				continue
			}
			if ci, ok := parent.CellIndex(); !ok || ci != parentCell {
				continue
			}
			up = sc.NetForPin(pinID)
			circuit = parent
			break
		}
		if up == nil {
			break
		}
		net = up
		path = path[:len(path)-1]
	}

	probeTotal.WithLabelValues("hit").Inc()
	return net, nil
}

// searchNet looks for the first cluster interacting with test, visiting
// each cell's own clusters before descending into its instances. It
// returns the cluster id and the instance path from top to the cell
// holding it, or 0 if nothing interacts.
func (l *LayoutToNetlist) searchNet(top layout.CellIndex, test *cluster.LocalCluster) (cluster.ID, []layout.Instance) {
	type frame struct {
		cell layout.CellIndex
		// maps top coordinates into the cell
		t    geom.Trans
		path []layout.Instance
	}

	ly := l.dss.Layout()
	ly.UpdateBBoxes()

	stack := []frame{{cell: top, t: geom.Unity()}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		tb := test.BBox().Transformed(f.t)
		for _, lc := range l.clusters.ClustersPerCell(f.cell).Clusters() {
			if lc.BBox().Touches(tb) && lc.Interacts(test, f.t, l.conn) {
				return lc.ID(), f.path
			}
		}

		insts := ly.Cell(f.cell).Instances()
		for k := len(insts) - 1; k >= 0; k-- {
			inst := insts[k]
			if l.nl.DeviceAbstractByCell(inst.Cell) != nil {
				continue
			}
			if !ly.Cell(inst.Cell).BBox().Transformed(inst.Trans).Touches(tb) {
				continue
			}
			path := make([]layout.Instance, len(f.path), len(f.path)+1)
			copy(path, f.path)
			stack = append(stack, frame{
				cell: inst.Cell,
				t:    inst.Trans.Inverted().Concat(f.t),
				path: append(path, inst),
			})
		}
	}
	return 0, nil
}
