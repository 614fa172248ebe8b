package l2n

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/cluster"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/extract"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
)

// ExtractNetlist clusters the connected layers over the whole hierarchy and
// fills the netlist with circuits, nets, pins and subcircuits. Device
// terminals are attached through the abstract cells placed by earlier
// device extraction. It can run only once.
func (l *LayoutToNetlist) ExtractNetlist(ctx context.Context) error {
	if l.extracted {
		return ErrAlreadyExtracted
	}
	top, ok := l.dss.TopCell()
	if !ok {
		return fmt.Errorf("l2n: no layers have been created")
	}
	nl := l.makeNetlist()
	ly := l.dss.Layout()

	l.logger.Info("net extraction started",
		"layers", len(l.conn.Layers()), "global_nets", l.conn.GlobalNetCount(), "threads", l.dss.Threads())

	hc, err := cluster.Build(ctx, ly, top, l.conn, cluster.Options{Threads: l.dss.Threads()})
	if err != nil {
		return fmt.Errorf("l2n: %w", err)
	}

	ne := &netExtractor{
		ly:       ly,
		nl:       nl,
		hc:       hc,
		textProp: -1,
		termProp: -1,
		devProp:  -1,
	}
	props := ly.Properties()
	if id, ok := props.LookupName(l.dss.TextPropertyName()); ok {
		ne.textProp = id
	}
	if id, ok := props.LookupName(extract.TerminalIDPropertyName); ok {
		ne.termProp = id
	}
	if id, ok := props.LookupName(extract.DeviceIDPropertyName); ok {
		ne.devProp = id
	}

	called := ly.CalledCells(top)
	for _, ci := range ly.BottomUp() {
		if !called[ci] {
			continue
		}
		if da := nl.DeviceAbstractByCell(ci); da != nil {
			ne.mapTerminals(ci, da)
			continue
		}
		ne.makeCircuit(ci)
	}

	l.clusters = hc
	l.extracted = true
	netExtractionsTotal.Inc()
	l.logger.Info("net extraction finished", "circuits", len(nl.Circuits()))
	return nil
}

type netExtractor struct {
	ly *layout.Layout
	nl *netlist.Netlist
	hc *cluster.HierClusters

	// property name ids, -1 when absent from the layout
	textProp int
	termProp int
	devProp  int
}

// mapTerminals records which cluster of a device abstract cell carries
// each terminal.
func (ne *netExtractor) mapTerminals(ci layout.CellIndex, da *netlist.DeviceAbstract) {
	if ne.termProp < 0 {
		return
	}
	props := ne.ly.Properties()
	for _, c := range ne.hc.ClustersPerCell(ci).Clusters() {
		for _, pid := range c.PropIDs() {
			tid, ok := props.IntValue(pid, ne.termProp)
			if ok && da.ClusterIDForTerminal(tid) == 0 {
				da.SetClusterIDForTerminal(tid, c.ID())
			}
		}
	}
}

func (ne *netExtractor) makeCircuit(ci layout.CellIndex) {
	cell := ne.ly.Cell(ci)
	c := ne.nl.CircuitByCell(ci)
	if c == nil {
		c = netlist.NewCircuit(cell.Name())
		c.SetCellIndex(ci)
		ne.nl.AddCircuit(c)
	}

	dbu := ne.ly.DBU()
	insts := cell.Instances()
	subs := make(map[int]*netlist.SubCircuit)
	for k, inst := range insts {
		ref := ne.nl.CircuitByCell(inst.Cell)
		if ref == nil {
			continue
		}
		sc := netlist.NewSubCircuit(ref, "")
		sc.SetTrans(inst.Trans.Scaled(dbu))
		c.AddSubCircuit(sc)
		subs[k] = sc
	}

	cc := ne.hc.ClustersPerCell(ci)
	for _, lc := range cc.Clusters() {
		net := netlist.NewNet(ne.netName(lc), lc.ID())
		c.AddNet(net)

		if !cc.IsRoot(lc.ID()) {
			pin := c.AddPin(net.ExpandedName())
			c.ConnectPin(pin.ID(), net)
		}

		for _, ref := range cc.Connections(lc.ID()) {
			if da := ne.nl.DeviceAbstractByCell(ref.Cell); da != nil {
				ne.connectDevice(c, insts[ref.Inst], da, ref.ID, net)
				continue
			}
			sc := subs[ref.Inst]
			if sc == nil {
				continue
			}
			childNet := sc.CircuitRef().NetByClusterID(ref.ID)
			if childNet == nil || !childNet.IsExternal() {
				continue
			}
			sc.ConnectPin(childNet.Pins()[0], net)
		}
	}
}

func (ne *netExtractor) connectDevice(c *netlist.Circuit, inst layout.Instance, da *netlist.DeviceAbstract, id cluster.ID, net *netlist.Net) {
	if ne.devProp < 0 {
		return
	}
	did, ok := ne.ly.Properties().IntValue(inst.PropID, ne.devProp)
	if !ok {
		return
	}
	d := c.DeviceByID(did)
	if d == nil {
		return
	}
	for _, td := range da.Class().Terminals() {
		if da.ClusterIDForTerminal(td.ID) == id {
			d.ConnectTerminal(td.ID, net)
		}
	}
}

// netName joins the label strings found on the cluster's own shapes. Nets
// without labels are named after their global nets.
func (ne *netExtractor) netName(lc *cluster.LocalCluster) string {
	var names []string
	seen := make(map[string]bool)
	if ne.textProp >= 0 {
		props := ne.ly.Properties()
		for _, pid := range lc.PropIDs() {
			if s, ok := props.StringValue(pid, ne.textProp); ok && !seen[s] {
				seen[s] = true
				names = append(names, s)
			}
		}
	}
	if len(names) == 0 {
		conn := ne.hc.Connectivity()
		for _, g := range lc.GlobalNets() {
			names = append(names, conn.GlobalNetName(g))
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
