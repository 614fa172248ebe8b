package netlist

import (
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/cluster"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
)

// Circuit is the netlist of one cell.
type Circuit struct {
	netlist *Netlist
	name    string
	cell    layout.CellIndex
	hasCell bool

	nets         []*Net
	netByCluster map[cluster.ID]*Net
	netByName    map[string]*Net
	nextNetID    int

	pins    []*Pin
	pinNets map[int]*Net

	devices      []*Device
	nextDeviceID int

	subcircuits []*SubCircuit
	nextSubID   int

	refs []*SubCircuit
}

// NewCircuit creates a circuit not yet added to a netlist.
func NewCircuit(name string) *Circuit {
	return &Circuit{
		name:         name,
		netByCluster: make(map[cluster.ID]*Net),
		netByName:    make(map[string]*Net),
		pinNets:      make(map[int]*Net),
	}
}

// Name returns the circuit name.
func (c *Circuit) Name() string { return c.name }

// SetName renames the circuit.
func (c *Circuit) SetName(name string) {
	if c.netlist != nil {
		if c.netlist.circuitByName[c.name] == c {
			delete(c.netlist.circuitByName, c.name)
		}
		c.netlist.circuitByName[name] = c
	}
	c.name = name
}

// Netlist returns the owning netlist, nil once removed.
func (c *Circuit) Netlist() *Netlist { return c.netlist }

// CellIndex returns the layout cell the circuit belongs to.
func (c *Circuit) CellIndex() (layout.CellIndex, bool) { return c.cell, c.hasCell }

// SetCellIndex binds the circuit to a layout cell.
func (c *Circuit) SetCellIndex(ci layout.CellIndex) {
	if c.netlist != nil {
		if c.hasCell && c.netlist.circuitByCell[c.cell] == c {
			delete(c.netlist.circuitByCell, c.cell)
		}
		c.netlist.circuitByCell[ci] = c
	}
	c.cell = ci
	c.hasCell = true
}

// AddNet adds a net and assigns its id.
func (c *Circuit) AddNet(n *Net) {
	c.nextNetID++
	n.id = c.nextNetID
	n.circuit = c
	c.nets = append(c.nets, n)
	if n.clusterID != 0 {
		c.netByCluster[n.clusterID] = n
	}
	if n.name != "" {
		c.netByName[n.name] = n
	}
}

// NewNet creates and adds a net.
func (c *Circuit) NewNet(name string) *Net {
	n := &Net{name: name}
	c.AddNet(n)
	return n
}

// RemoveNet disconnects and deletes a net.
func (c *Circuit) RemoveNet(n *Net) {
	for i, x := range c.nets {
		if x == n {
			c.nets = append(c.nets[:i], c.nets[i+1:]...)
			break
		}
	}
	if c.netByCluster[n.clusterID] == n {
		delete(c.netByCluster, n.clusterID)
	}
	if c.netByName[n.name] == n {
		delete(c.netByName, n.name)
	}
	for _, pid := range n.pins {
		delete(c.pinNets, pid)
	}
	for _, tr := range n.terminals {
		delete(tr.Device.terminals, tr.TerminalID)
	}
	for _, sp := range n.subcircuitPins {
		delete(sp.SubCircuit.pinNets, sp.PinID)
	}
	n.pins, n.terminals, n.subcircuitPins = nil, nil, nil
	n.circuit = nil
}

// Nets returns the nets in creation order.
func (c *Circuit) Nets() []*Net { return c.nets }

// NetByClusterID finds the net built from a cluster.
func (c *Circuit) NetByClusterID(id cluster.ID) *Net { return c.netByCluster[id] }

// NetByName finds a net by name.
func (c *Circuit) NetByName(name string) *Net { return c.netByName[name] }

// NetByID finds a net by id.
func (c *Circuit) NetByID(id int) *Net {
	for _, n := range c.nets {
		if n.id == id {
			return n
		}
	}
	return nil
}

// AddPin creates a pin. Pin ids are dense from 0.
func (c *Circuit) AddPin(name string) *Pin {
	p := &Pin{id: len(c.pins), name: name}
	c.pins = append(c.pins, p)
	return p
}

// Pins returns the pins in id order.
func (c *Circuit) Pins() []*Pin { return c.pins }

// PinByID returns a pin or nil.
func (c *Circuit) PinByID(id int) *Pin {
	if id < 0 || id >= len(c.pins) {
		return nil
	}
	return c.pins[id]
}

// PinByName finds a pin by name.
func (c *Circuit) PinByName(name string) *Pin {
	for _, p := range c.pins {
		if p.name == name {
			return p
		}
	}
	return nil
}

// ConnectPin binds a pin to a net, replacing any previous binding.
func (c *Circuit) ConnectPin(pinID int, n *Net) {
	if old := c.pinNets[pinID]; old != nil {
		old.pins = removeInt(old.pins, pinID)
	}
	if n == nil {
		delete(c.pinNets, pinID)
		return
	}
	c.pinNets[pinID] = n
	n.pins = append(n.pins, pinID)
}

// NetForPin returns the net bound to a pin, or nil.
func (c *Circuit) NetForPin(pinID int) *Net { return c.pinNets[pinID] }

// AddDevice adds a device and assigns its id.
func (c *Circuit) AddDevice(d *Device) {
	c.nextDeviceID++
	d.id = c.nextDeviceID
	d.circuit = c
	c.devices = append(c.devices, d)
}

// Devices returns the devices in creation order.
func (c *Circuit) Devices() []*Device { return c.devices }

// DeviceByID finds a device by id.
func (c *Circuit) DeviceByID(id int) *Device {
	for _, d := range c.devices {
		if d.id == id {
			return d
		}
	}
	return nil
}

// DeviceByName finds a device by name.
func (c *Circuit) DeviceByName(name string) *Device {
	for _, d := range c.devices {
		if d.name == name {
			return d
		}
	}
	return nil
}

// AddSubCircuit adds a subcircuit and assigns its id.
func (c *Circuit) AddSubCircuit(sc *SubCircuit) {
	c.nextSubID++
	sc.id = c.nextSubID
	sc.parent = c
	c.subcircuits = append(c.subcircuits, sc)
	if sc.ref != nil {
		sc.ref.refs = append(sc.ref.refs, sc)
	}
}

// RemoveSubCircuit deletes a subcircuit and its pin connections.
func (c *Circuit) RemoveSubCircuit(sc *SubCircuit) {
	for i, x := range c.subcircuits {
		if x == sc {
			c.subcircuits = append(c.subcircuits[:i], c.subcircuits[i+1:]...)
			break
		}
	}
	for pid := range sc.pinNets {
		sc.ConnectPin(pid, nil)
	}
	if sc.ref != nil {
		for i, x := range sc.ref.refs {
			if x == sc {
				sc.ref.refs = append(sc.ref.refs[:i], sc.ref.refs[i+1:]...)
				break
			}
		}
	}
	sc.parent = nil
}

// SubCircuits returns the subcircuits in creation order.
func (c *Circuit) SubCircuits() []*SubCircuit { return c.subcircuits }

// SubCircuitByName finds a subcircuit by name.
func (c *Circuit) SubCircuitByName(name string) *SubCircuit {
	for _, sc := range c.subcircuits {
		if sc.name == name {
			return sc
		}
	}
	return nil
}

// Refs returns the subcircuits instantiating this circuit.
func (c *Circuit) Refs() []*SubCircuit { return c.refs }

func removeInt(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
