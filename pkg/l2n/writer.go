package l2n

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/cluster"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
)

// Write stores an extraction result in the netlist text format: layers,
// connectivity, device abstracts with terminal geometry and circuits with
// net geometry. short selects the one-letter keywords and drops the
// indentation.
func Write(w io.Writer, l *LayoutToNetlist, short bool) error {
	if !l.extracted {
		return ErrNotExtracted
	}
	wr := newWriter(w, short)
	wr.l2n = l
	wr.ly = l.dss.Layout()
	wr.hc = l.clusters
	wr.dbu = wr.ly.DBU()
	wr.layerNames = make(map[int]string)
	for _, layer := range l.conn.Layers() {
		wr.layerNames[layer] = "L$" + strconv.Itoa(layer)
	}
	for layer, name := range l.LayerNames() {
		wr.layerNames[layer] = name
	}
	if err := wr.write(l.nl); err != nil {
		return err
	}
	return wr.bw.Flush()
}

// WriteNetlist stores a netlist without geometry, placements or
// connectivity. Devices still need an abstract.
func WriteNetlist(w io.Writer, nl *netlist.Netlist, short bool) error {
	wr := newWriter(w, short)
	wr.dbu = 1.0
	if err := wr.write(nl); err != nil {
		return err
	}
	return wr.bw.Flush()
}

type writer struct {
	bw    *bufio.Writer
	short bool

	// nil when writing a plain netlist
	l2n        *LayoutToNetlist
	ly         *layout.Layout
	hc         *cluster.HierClusters
	layerNames map[int]string
	dbu        float64

	ref geom.Point
}

func newWriter(w io.Writer, short bool) *writer {
	return &writer{bw: bufio.NewWriter(w), short: short}
}

func (wr *writer) withLayout() bool { return wr.l2n != nil }

func (wr *writer) key(k keyword) string { return k.spelling(wr.short) }

// line writes one indented line.
func (wr *writer) line(indent int, format string, args ...any) {
	if !wr.short {
		wr.bw.WriteString(strings.Repeat(" ", indent))
	}
	fmt.Fprintf(wr.bw, format, args...)
	wr.bw.WriteByte('\n')
}

func (wr *writer) comment(indent int, s string) {
	if !wr.short {
		wr.line(indent, "# %s", s)
	}
}

func formatDouble(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (wr *writer) toDBU(v float64) int64 {
	return int64(math.Round(v / wr.dbu))
}

func (wr *writer) write(nl *netlist.Netlist) error {
	wr.line(0, "%s", formatHeader)
	wr.line(0, "%s(%d)", wr.key(kwVersion), FormatVersion)

	if wr.withLayout() {
		top, _ := wr.l2n.dss.TopCell()
		wr.line(0, "%s(%s)", wr.key(kwTop), quoteIfNeeded(wr.ly.Cell(top).Name()))
		wr.line(0, "%s(%s)", wr.key(kwUnit), formatDouble(wr.dbu))
		wr.writeConnectivity()
	}

	wr.writeClasses(nl)

	if abstracts := nl.DeviceAbstracts(); len(abstracts) > 0 {
		wr.comment(0, "Device abstracts")
		for _, da := range abstracts {
			wr.writeAbstract(da)
		}
	}

	if circuits := nl.BottomUp(); len(circuits) > 0 {
		wr.comment(0, "Circuits")
		for _, c := range circuits {
			if err := wr.writeCircuit(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (wr *writer) writeConnectivity() {
	conn := wr.l2n.conn
	layers := conn.Layers()
	if len(layers) == 0 {
		return
	}

	wr.comment(0, "Layers")
	for _, layer := range layers {
		lp := wr.ly.LayerProperties(layer)
		if lp.Null {
			wr.line(0, "%s(%s)", wr.key(kwLayer), quoteIfNeeded(wr.layerNames[layer]))
			continue
		}
		wr.line(0, "%s(%s %s)", wr.key(kwLayer), quoteIfNeeded(wr.layerNames[layer]), quoteIfNeeded(lp.String()))
	}

	wr.comment(0, "Connectivity")
	for _, layer := range layers {
		var others []string
		for _, o := range conn.ConnectedLayers(layer) {
			others = append(others, quoteIfNeeded(wr.layerNames[o]))
		}
		if len(others) > 0 {
			wr.line(0, "%s(%s %s)", wr.key(kwConnect), quoteIfNeeded(wr.layerNames[layer]), strings.Join(others, " "))
		}
	}
	for _, layer := range layers {
		var globals []string
		for _, g := range conn.GlobalNets(layer) {
			globals = append(globals, quoteIfNeeded(conn.GlobalNetName(g)))
		}
		if len(globals) > 0 {
			wr.line(0, "%s(%s %s)", wr.key(kwGlobal), quoteIfNeeded(wr.layerNames[layer]), strings.Join(globals, " "))
		}
	}
}

// writeClasses declares the classes created from templates. Other classes
// are rebuilt from the terminals of their abstracts when reading.
func (wr *writer) writeClasses(nl *netlist.Netlist) {
	first := true
	for _, dc := range nl.DeviceClasses() {
		if dc.TemplateName() == "" {
			continue
		}
		if first {
			wr.comment(0, "Device classes")
			first = false
		}
		wr.line(0, "%s(%s %s)", wr.key(kwClass), quoteIfNeeded(dc.Name()), quoteIfNeeded(dc.TemplateName()))
	}
}

func (wr *writer) writeAbstract(da *netlist.DeviceAbstract) {
	wr.line(0, "%s(%s %s", wr.key(kwDevice), quoteIfNeeded(da.Name()), quoteIfNeeded(da.Class().Name()))
	ci, hasCell := da.CellIndex()
	for _, td := range da.Class().Terminals() {
		id := da.ClusterIDForTerminal(td.ID)
		if !wr.withLayout() || !hasCell || id == 0 {
			wr.line(1, "%s(%s)", wr.key(kwTerminal), quoteIfNeeded(td.Name))
			continue
		}
		wr.line(1, "%s(%s", wr.key(kwTerminal), quoteIfNeeded(td.Name))
		wr.writeGeometry(2, ci, id)
		wr.line(1, ")")
	}
	wr.line(0, ")")
}

func (wr *writer) writeCircuit(c *netlist.Circuit) error {
	wr.line(0, "%s(%s", wr.key(kwCircuit), quoteIfNeeded(c.Name()))
	ci, hasCell := c.CellIndex()

	ids := make(map[*netlist.Net]int, len(c.Nets()))
	if nets := c.Nets(); len(nets) > 0 {
		wr.comment(1, "Nets")
		for k, n := range nets {
			ids[n] = k + 1
			wr.writeNet(n, k+1, ci, hasCell)
		}
	}

	if pins := c.Pins(); len(pins) > 0 {
		wr.comment(1, "Outgoing pins and their connections to nets")
		for _, p := range pins {
			if n := c.NetForPin(p.ID()); n != nil {
				wr.line(1, "%s(%s %d)", wr.key(kwPin), quoteIfNeeded(p.ExpandedName()), ids[n])
			} else {
				wr.line(1, "%s(%s)", wr.key(kwPin), quoteIfNeeded(p.ExpandedName()))
			}
		}
	}

	if devices := c.Devices(); len(devices) > 0 {
		wr.comment(1, "Devices and their connections")
		for _, d := range devices {
			if err := wr.writeDevice(d, ids); err != nil {
				return err
			}
		}
	}

	if subs := c.SubCircuits(); len(subs) > 0 {
		wr.comment(1, "Subcircuits and their connections")
		for _, sc := range subs {
			wr.writeSubCircuit(sc, ids)
		}
	}

	wr.line(0, ")")
	return nil
}

func (wr *writer) writeNet(n *netlist.Net, id int, ci layout.CellIndex, hasCell bool) {
	head := fmt.Sprintf("%s(%d", wr.key(kwNet), id)
	if n.Name() != "" {
		head += fmt.Sprintf(" %s(%s)", wr.key(kwName), quoteIfNeeded(n.Name()))
	}
	if !wr.withLayout() || !hasCell || n.ClusterID() == 0 {
		wr.line(1, "%s)", head)
		return
	}
	wr.line(1, "%s", head)
	wr.writeGeometry(2, ci, n.ClusterID())
	wr.line(1, ")")
}

// writeGeometry writes the local shapes of a cluster, layer by layer.
// Coordinates repeating the previous point's are written as "*".
func (wr *writer) writeGeometry(indent int, ci layout.CellIndex, id cluster.ID) {
	wr.ref = geom.Point{}
	for _, layer := range wr.sortedLayers() {
		name := quoteIfNeeded(wr.layerNames[layer])
		for _, s := range wr.hc.ClusterShapes(ci, id, layer, false) {
			if s.IsText() || s.Polygon.IsEmpty() {
				continue
			}
			p := s.Polygon
			if p.IsBox() {
				b := p.BBox()
				wr.line(indent, "%s(%s %s %s)", wr.key(kwRect), name, wr.point(b.P1()), wr.point(b.P2()))
				continue
			}
			pts := make([]string, len(p.Hull))
			for k, pt := range p.Hull {
				pts[k] = wr.point(pt)
			}
			wr.line(indent, "%s(%s %s)", wr.key(kwPolygon), name, strings.Join(pts, " "))
		}
	}
}

func (wr *writer) point(p geom.Point) string {
	x, y := "*", "*"
	if p.X != wr.ref.X {
		x = strconv.FormatInt(p.X, 10)
	}
	if p.Y != wr.ref.Y {
		y = strconv.FormatInt(p.Y, 10)
	}
	wr.ref = p
	return x + " " + y
}

func (wr *writer) sortedLayers() []int {
	layers := make([]int, 0, len(wr.layerNames))
	for l := range wr.layerNames {
		layers = append(layers, l)
	}
	sort.Ints(layers)
	return layers
}

func (wr *writer) writeDevice(d *netlist.Device, ids map[*netlist.Net]int) error {
	da := d.Abstract()
	if da == nil {
		return fmt.Errorf("l2n: device %s has no abstract", d.ExpandedName())
	}
	dc := d.Class()

	wr.line(1, "%s(%s %s", wr.key(kwDevice), quoteIfNeeded(d.ExpandedName()), quoteIfNeeded(da.Name()))
	if wr.withLayout() {
		pos := d.Position()
		wr.line(2, "%s(%d %d)", wr.key(kwLocation), wr.toDBU(pos.X), wr.toDBU(pos.Y))
	}
	for _, o := range d.OtherAbstracts() {
		wr.line(2, "%s(%s %d %d)", wr.key(kwDevice), quoteIfNeeded(o.Abstract.Name()), wr.toDBU(o.Offset.X), wr.toDBU(o.Offset.Y))
	}
	for _, tid := range d.ReconnectedTerminalIDs() {
		outer := dc.TerminalByID(tid)
		for _, rt := range d.ReconnectedTerminals(tid) {
			inner := dc.TerminalByID(rt.OtherTerminalID)
			if outer == nil || inner == nil {
				continue
			}
			wr.line(2, "%s(%d %s %s)", wr.key(kwConnect), rt.DeviceIndex, quoteIfNeeded(outer.Name), quoteIfNeeded(inner.Name))
		}
	}
	for _, pd := range dc.Parameters() {
		wr.line(2, "%s(%s %s)", wr.key(kwParam), quoteIfNeeded(pd.Name), formatDouble(d.Parameter(pd.ID)))
	}
	for _, td := range dc.Terminals() {
		if n := d.NetForTerminal(td.ID); n != nil {
			wr.line(2, "%s(%s %d)", wr.key(kwTerminal), quoteIfNeeded(td.Name), ids[n])
		}
	}
	wr.line(1, ")")
	return nil
}

func (wr *writer) writeSubCircuit(sc *netlist.SubCircuit, ids map[*netlist.Net]int) {
	ref := sc.CircuitRef()
	wr.line(1, "%s(%s %s", wr.key(kwCircuit), quoteIfNeeded(sc.ExpandedName()), quoteIfNeeded(ref.Name()))
	if wr.withLayout() {
		t := sc.Trans()
		wr.line(2, "%s(%d %d)", wr.key(kwLocation), wr.toDBU(t.Disp.X), wr.toDBU(t.Disp.Y))
		if t.Angle != 0 {
			wr.line(2, "%s(%s)", wr.key(kwRotation), formatDouble(t.Angle))
		}
		if t.Mirror {
			wr.line(2, "%s", wr.key(kwMirror))
		}
		if t.IsMag() {
			wr.line(2, "%s(%s)", wr.key(kwScale), formatDouble(t.Mag))
		}
	}
	for _, p := range ref.Pins() {
		if n := sc.NetForPin(p.ID()); n != nil {
			wr.line(2, "%s(%s %d)", wr.key(kwPin), quoteIfNeeded(p.ExpandedName()), ids[n])
		}
	}
	wr.line(1, ")")
}
