package netlist

import (
	"strconv"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/cluster"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
)

// DeviceAbstract is the geometric footprint shared by devices: a layout cell
// holding the terminal shapes and the cluster id of each terminal in it.
type DeviceAbstract struct {
	name    string
	class   *DeviceClass
	cell    layout.CellIndex
	hasCell bool

	terminalClusters map[int]cluster.ID
}

// NewDeviceAbstract creates an abstract for a class.
func NewDeviceAbstract(class *DeviceClass, name string) *DeviceAbstract {
	return &DeviceAbstract{
		name:             name,
		class:            class,
		terminalClusters: make(map[int]cluster.ID),
	}
}

// Name returns the abstract name.
func (da *DeviceAbstract) Name() string { return da.name }

// Class returns the device class.
func (da *DeviceAbstract) Class() *DeviceClass { return da.class }

// CellIndex returns the layout cell holding the terminal shapes.
func (da *DeviceAbstract) CellIndex() (layout.CellIndex, bool) { return da.cell, da.hasCell }

// SetCellIndex binds the abstract to a cell. Call before AddDeviceAbstract.
func (da *DeviceAbstract) SetCellIndex(ci layout.CellIndex) {
	da.cell = ci
	da.hasCell = true
}

// ClusterIDForTerminal returns the terminal's cluster in the abstract cell,
// 0 if unknown.
func (da *DeviceAbstract) ClusterIDForTerminal(terminalID int) cluster.ID {
	return da.terminalClusters[terminalID]
}

// SetClusterIDForTerminal records the terminal's cluster.
func (da *DeviceAbstract) SetClusterIDForTerminal(terminalID int, id cluster.ID) {
	da.terminalClusters[terminalID] = id
}

// SubCircuit is an instance of a circuit inside another circuit.
type SubCircuit struct {
	id      int
	name    string
	ref     *Circuit
	parent  *Circuit
	trans   geom.Trans
	pinNets map[int]*Net
}

// NewSubCircuit creates an instance of ref. Add it with AddSubCircuit.
func NewSubCircuit(ref *Circuit, name string) *SubCircuit {
	return &SubCircuit{
		name:    name,
		ref:     ref,
		trans:   geom.Unity(),
		pinNets: make(map[int]*Net),
	}
}

// ID returns the subcircuit id within its parent.
func (sc *SubCircuit) ID() int { return sc.id }

// Name returns the name, possibly empty.
func (sc *SubCircuit) Name() string { return sc.name }

// SetName renames the subcircuit.
func (sc *SubCircuit) SetName(name string) { sc.name = name }

// ExpandedName returns the name or "$<id>" for anonymous subcircuits.
func (sc *SubCircuit) ExpandedName() string {
	if sc.name != "" {
		return sc.name
	}
	return "$" + strconv.Itoa(sc.id)
}

// CircuitRef returns the instantiated circuit.
func (sc *SubCircuit) CircuitRef() *Circuit { return sc.ref }

// Circuit returns the parent circuit.
func (sc *SubCircuit) Circuit() *Circuit { return sc.parent }

// Trans returns the placement in user units.
func (sc *SubCircuit) Trans() geom.Trans { return sc.trans }

// SetTrans sets the placement in user units.
func (sc *SubCircuit) SetTrans(t geom.Trans) { sc.trans = t }

// NetForPin returns the parent net on a pin of the referenced circuit.
func (sc *SubCircuit) NetForPin(pinID int) *Net { return sc.pinNets[pinID] }

// ConnectPin attaches a pin to a parent net, replacing any previous one.
func (sc *SubCircuit) ConnectPin(pinID int, n *Net) {
	if old := sc.pinNets[pinID]; old != nil {
		for i, sp := range old.subcircuitPins {
			if sp.SubCircuit == sc && sp.PinID == pinID {
				old.subcircuitPins = append(old.subcircuitPins[:i], old.subcircuitPins[i+1:]...)
				break
			}
		}
	}
	if n == nil {
		delete(sc.pinNets, pinID)
		return
	}
	sc.pinNets[pinID] = n
	n.subcircuitPins = append(n.subcircuitPins, NetSubcircuitPinRef{SubCircuit: sc, PinID: pinID})
}
