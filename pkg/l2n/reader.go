package l2n

import (
	"errors"
	"fmt"
	"io"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/cluster"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
)

// Read parses the netlist text format into nl. Layout constructs (units,
// layers, connectivity and geometry) are parsed and dropped.
func Read(r io.Reader, path string, nl *netlist.Netlist) error {
	t, err := newTokenizer(r, path)
	if err != nil {
		return err
	}
	rd := &reader{t: t, nl: nl, dbu: 1.0}
	return rd.wrap(rd.readNetlist())
}

// ReadInto parses the netlist text format into a standalone extractor. The
// cells, shapes, instances and cluster wiring of the stored extraction are
// rebuilt in the internal layout and the extractor is marked extracted.
func ReadInto(r io.Reader, path string, l *LayoutToNetlist) error {
	if l.extracted {
		return ErrAlreadyExtracted
	}
	if _, ok := l.dss.TopCell(); !ok {
		return fmt.Errorf("l2n: reading requires an extractor with an internal top cell")
	}
	t, err := newTokenizer(r, path)
	if err != nil {
		return err
	}

	ly := l.dss.Layout()
	ly.SetDBU(1.0)
	rd := &reader{t: t, nl: l.makeNetlist(), l2n: l, ly: ly, hc: l.hierClusters(), dbu: 1.0}
	if err := rd.wrap(rd.readNetlist()); err != nil {
		return err
	}
	l.setExtracted()
	return nil
}

// clusterLink is a cluster connection recorded while reading a circuit and
// applied once the circuit's instances are complete.
type clusterLink struct {
	from, to cluster.ID
}

type reader struct {
	t   *tokenizer
	nl  *netlist.Netlist
	dbu float64

	// layout-producing mode only
	l2n *LayoutToNetlist
	ly  *layout.Layout
	hc  *cluster.HierClusters

	ref geom.Point
}

func (rd *reader) layoutMode() bool { return rd.l2n != nil }

// wrap turns any error into a ParseError carrying the current line.
func (rd *reader) wrap(err error) error {
	if err == nil {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	return &ParseError{Msg: err.Error(), Line: rd.t.line(), Path: rd.t.path}
}

func (rd *reader) readNetlist() error {
	t := rd.t
	for !t.atEnd() {
		var err error
		switch {
		case t.testKey(kwVersion):
			err = rd.readSimple(func() error {
				_, err := t.readInt()
				return err
			})
		case t.testKey(kwDescription):
			err = rd.readSimple(func() error {
				_, err := t.readWordOrQuoted()
				return err
			})
		case t.testKey(kwUnit):
			err = rd.readSimple(func() error {
				dbu, err := t.readDouble()
				if err != nil {
					return err
				}
				if dbu <= 0 {
					return t.errorf("Invalid database unit: %g", dbu)
				}
				rd.dbu = dbu
				if rd.layoutMode() {
					rd.ly.SetDBU(dbu)
				}
				return nil
			})
		case t.testKey(kwTop):
			err = rd.readSimple(func() error {
				name, err := t.readWordOrQuoted()
				if err != nil {
					return err
				}
				if rd.layoutMode() {
					top, _ := rd.l2n.dss.TopCell()
					rd.ly.RenameCell(top, name)
				}
				return nil
			})
		case t.testKey(kwLayer):
			err = rd.readLayer()
		case t.testKey(kwClass):
			err = rd.readClass()
		case t.testKey(kwConnect):
			err = rd.readConnect()
		case t.testKey(kwGlobal):
			err = rd.readGlobal()
		case t.testKey(kwCircuit):
			err = rd.readCircuit()
		case t.testKey(kwDevice):
			err = rd.readAbstract()
		default:
			err = t.errorf("Invalid keyword")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readSimple reads a braced group with a single body.
func (rd *reader) readSimple(body func() error) error {
	br := rd.t.openBrace()
	if err := body(); err != nil {
		return err
	}
	return br.done()
}

func (rd *reader) layerByName(name string) (int, error) {
	r, ok := rd.l2n.LayerByName(name)
	if !ok {
		return 0, rd.t.errorf("Not a valid layer name: %s", name)
	}
	return rd.l2n.LayerOf(r)
}

func (rd *reader) readLayer() error {
	t := rd.t
	br := t.openBrace()
	name, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	var lspec string
	if br.more() {
		if lspec, err = t.readWordOrQuoted(); err != nil {
			return err
		}
	}
	if err := br.done(); err != nil {
		return err
	}
	if !rd.layoutMode() {
		return nil
	}

	lp := layout.NamedLayer(name)
	if lspec != "" {
		if lp, err = layout.ParseLayerProperties(lspec); err != nil {
			return err
		}
	}
	rd.l2n.makeEmptyLayer(name, lp)
	return nil
}

func (rd *reader) readClass() error {
	t := rd.t
	br := t.openBrace()
	name, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	tmpl, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	if err := br.done(); err != nil {
		return err
	}

	if rd.nl.DeviceClassByName(name) != nil {
		return t.errorf("Device class must be defined before being used in device")
	}
	dc, ok := netlist.NewDeviceClassFromTemplate(tmpl, name)
	if !ok {
		return t.errorf("Invalid device class template: %s", tmpl)
	}
	return rd.nl.AddDeviceClass(dc)
}

func (rd *reader) readConnect() error {
	t := rd.t
	br := t.openBrace()
	l1, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	for br.more() {
		l2, err := t.readWordOrQuoted()
		if err != nil {
			return err
		}
		if !rd.layoutMode() {
			continue
		}
		a, ok := rd.l2n.LayerByName(l1)
		if !ok {
			return t.errorf("Not a valid layer name: %s", l1)
		}
		b, ok := rd.l2n.LayerByName(l2)
		if !ok {
			return t.errorf("Not a valid layer name: %s", l2)
		}
		if err := rd.l2n.ConnectLayers(a, b); err != nil {
			return err
		}
	}
	return br.done()
}

func (rd *reader) readGlobal() error {
	t := rd.t
	br := t.openBrace()
	l1, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	for br.more() {
		g, err := t.readWordOrQuoted()
		if err != nil {
			return err
		}
		if !rd.layoutMode() {
			continue
		}
		a, ok := rd.l2n.LayerByName(l1)
		if !ok {
			return t.errorf("Not a valid layer name: %s", l1)
		}
		if _, err := rd.l2n.ConnectGlobal(a, g); err != nil {
			return err
		}
	}
	return br.done()
}

func (rd *reader) readCircuit() error {
	t := rd.t
	br := t.openBrace()
	name, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}

	c := netlist.NewCircuit(name)
	var cell *layout.Cell
	if rd.layoutMode() {
		var ok bool
		if cell, ok = rd.ly.CellByName(name); !ok {
			cell = rd.ly.AddCell(name)
		}
		c.SetCellIndex(cell.Index())
	}
	rd.nl.AddCircuit(c)

	// keyed by instance index in cell
	links := make(map[int][]clusterLink)
	id2net := make(map[int]*netlist.Net)

	for br.more() {
		switch {
		case t.testKey(kwNet):
			err = rd.readNet(c, cell, id2net)
		case t.testKey(kwPin):
			err = rd.readPin(c, id2net)
		case t.testKey(kwDevice):
			err = rd.readDevice(c, cell, id2net, links)
		case t.testKey(kwCircuit):
			err = rd.readSubCircuit(c, cell, id2net, links)
		default:
			err = t.errorf("Invalid keyword inside circuit definition (net, pin, device or circuit expected)")
		}
		if err != nil {
			return err
		}
	}
	if err := br.done(); err != nil {
		return err
	}

	if !rd.layoutMode() {
		return nil
	}
	for k, inst := range cell.Instances() {
		for _, lk := range links[k] {
			if lk.from == 0 || lk.to == 0 {
				continue
			}
			rd.hc.AddConnection(cell.Index(), lk.from, cluster.ClusterInstance{
				ID:     lk.to,
				Cell:   inst.Cell,
				Inst:   k,
				Trans:  inst.Trans,
				PropID: inst.PropID,
			})
		}
	}
	return nil
}

func (rd *reader) netByID(id2net map[int]*netlist.Net, id int) (*netlist.Net, error) {
	n := id2net[id]
	if n == nil {
		return nil, rd.t.errorf("Not a valid net ID: %d", id)
	}
	return n, nil
}

func (rd *reader) readNet(c *netlist.Circuit, cell *layout.Cell, id2net map[int]*netlist.Net) error {
	t := rd.t
	br := t.openBrace()
	id, err := t.readInt()
	if err != nil {
		return err
	}
	var name string
	if t.testKey(kwName) {
		if err := rd.readSimple(func() error {
			name, err = t.readWordOrQuoted()
			return err
		}); err != nil {
			return err
		}
	}

	net := netlist.NewNet(name, 0)
	c.AddNet(net)
	id2net[id] = net

	var lc *cluster.LocalCluster
	if rd.layoutMode() {
		lc = cluster.NewLocalCluster()
		net.SetClusterID(rd.hc.CellClusters(cell.Index()).Insert(lc))
	}
	if err := rd.readGeometries(br, lc, cell); err != nil {
		return err
	}
	return br.done()
}

func (rd *reader) readPin(c *netlist.Circuit, id2net map[int]*netlist.Net) error {
	t := rd.t
	br := t.openBrace()
	name, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	pin := c.AddPin(name)
	if br.more() {
		netID, err := t.readInt()
		if err != nil {
			return err
		}
		net, err := rd.netByID(id2net, netID)
		if err != nil {
			return err
		}
		c.ConnectPin(pin.ID(), net)
	}
	return br.done()
}

func (rd *reader) terminalID(dc *netlist.DeviceClass, name string) (int, error) {
	id, ok := dc.TerminalID(name)
	if !ok {
		return 0, rd.t.errorf("Not a valid terminal name: %s for device class: %s", name, dc.Name())
	}
	return id, nil
}

func (rd *reader) abstractByName(name string) (*netlist.DeviceAbstract, error) {
	da := rd.nl.DeviceAbstractByName(name)
	if da == nil {
		return nil, rd.t.errorf("Not a valid device abstract name: %s", name)
	}
	return da, nil
}

func (rd *reader) readDevice(c *netlist.Circuit, cell *layout.Cell, id2net map[int]*netlist.Net, links map[int][]clusterLink) error {
	t := rd.t
	br := t.openBrace()
	name, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	daName, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	da, err := rd.abstractByName(daName)
	if err != nil {
		return err
	}
	dc := da.Class()

	d := netlist.NewDevice(dc, name)
	d.SetAbstract(da)
	c.AddDevice(d)

	var x, y int64
	maxTID := 0

	for br.more() {
		switch {
		case t.testKey(kwLocation):
			err = rd.readSimple(func() error {
				if x, err = t.readCoord(); err != nil {
					return err
				}
				y, err = t.readCoord()
				return err
			})

		case t.testKey(kwDevice):
			err = rd.readSimple(func() error {
				n, err := t.readWordOrQuoted()
				if err != nil {
					return err
				}
				dx, err := t.readCoord()
				if err != nil {
					return err
				}
				dy, err := t.readCoord()
				if err != nil {
					return err
				}
				other, err := rd.abstractByName(n)
				if err != nil {
					return err
				}
				d.AddOtherAbstract(netlist.DeviceAbstractRef{
					Abstract: other,
					Offset:   geom.DVector{X: rd.dbu * float64(dx), Y: rd.dbu * float64(dy)},
				})
				return nil
			})

		case t.testKey(kwConnect):
			err = rd.readSimple(func() error {
				idx, err := t.readInt()
				if err != nil {
					return err
				}
				outer, err := t.readWordOrQuoted()
				if err != nil {
					return err
				}
				inner, err := t.readWordOrQuoted()
				if err != nil {
					return err
				}
				if idx < 0 || idx > len(d.OtherAbstracts()) {
					return t.errorf("Not a valid device component index: %d", idx)
				}
				outerID, err := rd.terminalID(dc, outer)
				if err != nil {
					return err
				}
				innerID, err := rd.terminalID(dc, inner)
				if err != nil {
					return err
				}
				d.AddReconnectedTerminal(outerID, netlist.DeviceReconnectedTerminal{DeviceIndex: idx, OtherTerminalID: innerID})
				return nil
			})

		case t.testKey(kwTerminal):
			err = rd.readSimple(func() error {
				tname, err := t.readWordOrQuoted()
				if err != nil {
					return err
				}
				netID, err := t.readInt()
				if err != nil {
					return err
				}
				tid, err := rd.terminalID(dc, tname)
				if err != nil {
					return err
				}
				maxTID = max(maxTID, tid+1)
				net, err := rd.netByID(id2net, netID)
				if err != nil {
					return err
				}
				d.ConnectTerminal(tid, net)
				return nil
			})

		case t.testKey(kwParam):
			err = rd.readSimple(func() error {
				pname, err := t.readWordOrQuoted()
				if err != nil {
					return err
				}
				v, err := t.readDouble()
				if err != nil {
					return err
				}
				pid, ok := dc.ParameterID(pname)
				if !ok {
					pid = dc.AddParameter(pname, "", 0, false)
				}
				d.SetParameter(pid, v)
				return nil
			})

		default:
			err = t.errorf("Invalid keyword inside device definition (location, param or terminal expected)")
		}
		if err != nil {
			return err
		}
	}

	d.SetPosition(geom.DPoint{X: rd.dbu * float64(x), Y: rd.dbu * float64(y)})
	if err := br.done(); err != nil {
		return err
	}
	if !rd.layoutMode() {
		return nil
	}

	// primary abstract first, then the others in order
	var insts []int
	pos := geom.Vector{X: x, Y: y}
	ci, _ := da.CellIndex()
	insts = append(insts, cell.InsertInstance(layout.Instance{Cell: ci, Trans: geom.NewDisp(pos)}))
	for _, o := range d.OtherAbstracts() {
		oci, _ := o.Abstract.CellIndex()
		off := o.Offset.Scale(1 / rd.dbu).Round()
		insts = append(insts, cell.InsertInstance(layout.Instance{Cell: oci, Trans: geom.NewDisp(pos.Add(off))}))
	}

	reconnected := len(d.ReconnectedTerminalIDs()) > 0
	for tid := 0; tid < maxTID; tid++ {
		net := d.NetForTerminal(tid)
		if net == nil {
			continue
		}
		if !reconnected {
			k := insts[0]
			links[k] = append(links[k], clusterLink{from: net.ClusterID(), to: da.ClusterIDForTerminal(tid)})
			continue
		}
		for _, rt := range d.ReconnectedTerminals(tid) {
			target := da
			if rt.DeviceIndex > 0 {
				target = d.OtherAbstracts()[rt.DeviceIndex-1].Abstract
			}
			k := insts[rt.DeviceIndex]
			links[k] = append(links[k], clusterLink{from: net.ClusterID(), to: target.ClusterIDForTerminal(rt.OtherTerminalID)})
		}
	}
	return nil
}

func (rd *reader) readSubCircuit(c *netlist.Circuit, cell *layout.Cell, id2net map[int]*netlist.Net, links map[int][]clusterLink) error {
	t := rd.t
	br := t.openBrace()
	name, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	refName, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	ref := rd.nl.CircuitByName(refName)
	if ref == nil {
		return t.errorf("Not a valid device circuit name: %s", refName)
	}

	sc := netlist.NewSubCircuit(ref, name)
	c.AddSubCircuit(sc)

	var x, y int64
	angle, mag := 0.0, 1.0
	mirror := false
	pinsSeen := false
	var refs []clusterLink

	placement := func(key string) error {
		if pinsSeen {
			return t.errorf("%s key must come before pin key in subcircuit definition", key)
		}
		return nil
	}

	for br.more() {
		switch {
		case t.testKey(kwLocation):
			if err = placement(kwLocation.long); err != nil {
				break
			}
			err = rd.readSimple(func() error {
				if x, err = t.readCoord(); err != nil {
					return err
				}
				y, err = t.readCoord()
				return err
			})

		case t.testKey(kwRotation):
			if err = placement(kwRotation.long); err != nil {
				break
			}
			err = rd.readSimple(func() error {
				angle, err = t.readDouble()
				return err
			})

		case t.testKey(kwMirror):
			mirror = true
			err = placement(kwMirror.long)

		case t.testKey(kwScale):
			if err = placement(kwScale.long); err != nil {
				break
			}
			err = rd.readSimple(func() error {
				mag, err = t.readDouble()
				return err
			})

		case t.testKey(kwPin):
			pinsSeen = true
			err = rd.readSimple(func() error {
				pname, err := t.readWordOrQuoted()
				if err != nil {
					return err
				}
				netID, err := t.readInt()
				if err != nil {
					return err
				}
				pin := ref.PinByName(pname)
				if pin == nil {
					return t.errorf("Not a valid pin name: %s for circuit: %s", pname, ref.Name())
				}
				net, err := rd.netByID(id2net, netID)
				if err != nil {
					return err
				}
				sc.ConnectPin(pin.ID(), net)
				// a pin without a net inside the referenced circuit links nothing
				if inner := ref.NetForPin(pin.ID()); inner != nil {
					refs = append(refs, clusterLink{from: net.ClusterID(), to: inner.ClusterID()})
				}
				return nil
			})

		default:
			err = t.errorf("Invalid keyword inside subcircuit definition (location, rotation, mirror, scale or pin expected)")
		}
		if err != nil {
			return err
		}
	}
	if err := br.done(); err != nil {
		return err
	}

	sc.SetTrans(geom.NewTrans(mag, angle, mirror, geom.DVector{X: rd.dbu * float64(x), Y: rd.dbu * float64(y)}))
	if !rd.layoutMode() {
		return nil
	}

	rci, ok := ref.CellIndex()
	if !ok {
		return t.errorf("Circuit %s has no layout cell", ref.Name())
	}
	k := cell.InsertInstance(layout.Instance{
		Cell:  rci,
		Trans: geom.NewTrans(mag, angle, mirror, geom.DVector{X: float64(x), Y: float64(y)}),
	})
	links[k] = refs
	return nil
}

func (rd *reader) readAbstract() error {
	t := rd.t
	br := t.openBrace()
	name, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}
	className, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}

	// unknown classes become generic classes that grow terminals on demand
	dc := rd.nl.DeviceClassByName(className)
	generic := dc == nil
	if generic {
		dc = netlist.NewDeviceClass(className)
		if err := rd.nl.AddDeviceClass(dc); err != nil {
			return err
		}
	}

	da := netlist.NewDeviceAbstract(dc, name)
	var cell *layout.Cell
	if rd.layoutMode() {
		cell = rd.ly.AddCell(name)
		da.SetCellIndex(cell.Index())
	}
	rd.nl.AddDeviceAbstract(da)

	for br.more() {
		if !t.testKey(kwTerminal) {
			return t.errorf("Invalid keyword inside device abstract definition (terminal expected)")
		}
		if err := rd.readAbstractTerminal(da, cell, generic); err != nil {
			return err
		}
	}
	return br.done()
}

func (rd *reader) readAbstractTerminal(da *netlist.DeviceAbstract, cell *layout.Cell, generic bool) error {
	t := rd.t
	br := t.openBrace()
	name, err := t.readWordOrQuoted()
	if err != nil {
		return err
	}

	dc := da.Class()
	tid, ok := dc.TerminalID(name)
	if !ok {
		if !generic {
			return t.errorf("Not a valid terminal name: %s for device class: %s", name, dc.Name())
		}
		tid = dc.AddTerminal(name, "")
	}

	var lc *cluster.LocalCluster
	if rd.layoutMode() {
		lc = cluster.NewLocalCluster()
		da.SetClusterIDForTerminal(tid, rd.hc.CellClusters(cell.Index()).Insert(lc))
	}
	if err := rd.readGeometries(br, lc, cell); err != nil {
		return err
	}
	return br.done()
}

// readGeometries reads the shapes of a net or terminal. In layout mode they
// go into lc and cell, otherwise they are dropped.
func (rd *reader) readGeometries(br *brace, lc *cluster.LocalCluster, cell *layout.Cell) error {
	rd.ref = geom.Point{}
	for br.more() {
		layerName, p, err := rd.readGeometry()
		if err != nil {
			return err
		}
		if lc == nil {
			continue
		}
		layer, err := rd.layerByName(layerName)
		if err != nil {
			return err
		}
		s := layout.PolygonShape(p, 0)
		lc.Add(layer, s)
		cell.Insert(layer, s)
	}
	return nil
}

func (rd *reader) readGeometry() (string, geom.Polygon, error) {
	t := rd.t
	switch {
	case t.testKey(kwRect):
		br := t.openBrace()
		name, err := t.readWordOrQuoted()
		if err != nil {
			return "", geom.Polygon{}, err
		}
		lb, err := rd.readPoint()
		if err != nil {
			return "", geom.Polygon{}, err
		}
		rt, err := rd.readPoint()
		if err != nil {
			return "", geom.Polygon{}, err
		}
		if err := br.done(); err != nil {
			return "", geom.Polygon{}, err
		}
		return name, geom.NewBoxPolygon(geom.NewBox(lb, rt)), nil

	case t.testKey(kwPolygon):
		br := t.openBrace()
		name, err := t.readWordOrQuoted()
		if err != nil {
			return "", geom.Polygon{}, err
		}
		var pts []geom.Point
		for br.more() {
			p, err := rd.readPoint()
			if err != nil {
				return "", geom.Polygon{}, err
			}
			pts = append(pts, p)
		}
		if err := br.done(); err != nil {
			return "", geom.Polygon{}, err
		}
		return name, geom.NewPolygon(pts), nil
	}
	return "", geom.Polygon{}, t.errorf("Invalid keyword inside net or terminal definition (polygon or rect expected)")
}

// readPoint reads "x y", where either coordinate may be "*" to repeat the
// previous one, or "(dx dy)" relative to the previous point.
func (rd *reader) readPoint() (geom.Point, error) {
	t := rd.t
	p := rd.ref
	if t.test("(") {
		dx, err := t.readCoord()
		if err != nil {
			return p, err
		}
		dy, err := t.readCoord()
		if err != nil {
			return p, err
		}
		if err := t.expect(")"); err != nil {
			return p, err
		}
		p = p.Add(geom.Vector{X: dx, Y: dy})
	} else {
		var err error
		if !t.test("*") {
			if p.X, err = t.readCoord(); err != nil {
				return p, err
			}
		}
		if !t.test("*") {
			if p.Y, err = t.readCoord(); err != nil {
				return p, err
			}
		}
	}
	rd.ref = p
	return p, nil
}
