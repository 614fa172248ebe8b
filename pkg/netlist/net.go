package netlist

import (
	"strconv"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/cluster"
)

// NetTerminalRef is a device terminal attached to a net.
type NetTerminalRef struct {
	Device     *Device
	TerminalID int
}

// NetSubcircuitPinRef is a subcircuit pin attached to a net.
type NetSubcircuitPinRef struct {
	SubCircuit *SubCircuit
	PinID      int
}

// Net is an electrical node inside one circuit.
type Net struct {
	id        int
	name      string
	clusterID cluster.ID
	circuit   *Circuit

	pins           []int
	terminals      []NetTerminalRef
	subcircuitPins []NetSubcircuitPinRef
}

// NewNet creates a net tied to a cluster. Add it to a circuit with AddNet.
func NewNet(name string, id cluster.ID) *Net {
	return &Net{name: name, clusterID: id}
}

// ID returns the net id within its circuit.
func (n *Net) ID() int { return n.id }

// Name returns the net name, possibly empty.
func (n *Net) Name() string { return n.name }

// SetName renames the net.
func (n *Net) SetName(name string) {
	if n.circuit != nil {
		if n.circuit.netByName[n.name] == n {
			delete(n.circuit.netByName, n.name)
		}
		if name != "" {
			n.circuit.netByName[name] = n
		}
	}
	n.name = name
}

// ExpandedName returns the name or "$<id>" for anonymous nets.
func (n *Net) ExpandedName() string {
	if n.name != "" {
		return n.name
	}
	return "$" + strconv.Itoa(n.id)
}

// ClusterID returns the cluster the net was built from.
func (n *Net) ClusterID() cluster.ID { return n.clusterID }

// SetClusterID rebinds the net to a cluster.
func (n *Net) SetClusterID(id cluster.ID) {
	if n.circuit != nil {
		if n.circuit.netByCluster[n.clusterID] == n {
			delete(n.circuit.netByCluster, n.clusterID)
		}
		if id != 0 {
			n.circuit.netByCluster[id] = n
		}
	}
	n.clusterID = id
}

// Circuit returns the owning circuit, nil once removed.
func (n *Net) Circuit() *Circuit { return n.circuit }

// IsExternal reports whether a pin of the circuit is bound to the net.
func (n *Net) IsExternal() bool { return len(n.pins) > 0 }

// Pins returns the ids of the circuit pins bound to the net.
func (n *Net) Pins() []int { return n.pins }

// Terminals returns the device terminals on the net.
func (n *Net) Terminals() []NetTerminalRef { return n.terminals }

// SubcircuitPins returns the subcircuit pins on the net.
func (n *Net) SubcircuitPins() []NetSubcircuitPinRef { return n.subcircuitPins }

// Pin is a named connection point of a circuit.
type Pin struct {
	id   int
	name string
}

// ID returns the pin id.
func (p *Pin) ID() int { return p.id }

// Name returns the pin name, possibly empty.
func (p *Pin) Name() string { return p.name }

// ExpandedName returns the name or "$<id>" for anonymous pins.
func (p *Pin) ExpandedName() string {
	if p.name != "" {
		return p.name
	}
	return "$" + strconv.Itoa(p.id)
}
