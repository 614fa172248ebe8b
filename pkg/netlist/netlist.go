// Package netlist holds the extracted circuit graph: circuits with nets,
// pins, devices and subcircuit instances, plus the device classes and device
// abstracts shared across circuits.
//
// All objects are owned by the Netlist. Circuits are tied 1:1 to cells of
// the layout they were extracted from.
package netlist

import (
	"fmt"
	"sort"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
)

// Netlist is the aggregate root of the circuit graph.
type Netlist struct {
	circuits       []*Circuit
	circuitByName  map[string]*Circuit
	circuitByCell  map[layout.CellIndex]*Circuit
	classes        []*DeviceClass
	classByName    map[string]*DeviceClass
	abstracts      []*DeviceAbstract
	abstractByName map[string]*DeviceAbstract
	abstractByCell map[layout.CellIndex]*DeviceAbstract
}

// New creates an empty netlist.
func New() *Netlist {
	return &Netlist{
		circuitByName:  make(map[string]*Circuit),
		circuitByCell:  make(map[layout.CellIndex]*Circuit),
		classByName:    make(map[string]*DeviceClass),
		abstractByName: make(map[string]*DeviceAbstract),
		abstractByCell: make(map[layout.CellIndex]*DeviceAbstract),
	}
}

// AddCircuit adds a circuit. A circuit without a cell gets none assigned.
func (nl *Netlist) AddCircuit(c *Circuit) {
	c.netlist = nl
	nl.circuits = append(nl.circuits, c)
	nl.circuitByName[c.name] = c
	if c.hasCell {
		nl.circuitByCell[c.cell] = c
	}
}

// RemoveCircuit deletes a circuit. Subcircuits referring to it are removed
// from their parents.
func (nl *Netlist) RemoveCircuit(c *Circuit) {
	for i, x := range nl.circuits {
		if x == c {
			nl.circuits = append(nl.circuits[:i], nl.circuits[i+1:]...)
			break
		}
	}
	if nl.circuitByName[c.name] == c {
		delete(nl.circuitByName, c.name)
	}
	if c.hasCell && nl.circuitByCell[c.cell] == c {
		delete(nl.circuitByCell, c.cell)
	}
	for _, ref := range append([]*SubCircuit(nil), c.refs...) {
		if ref.parent != nil {
			ref.parent.RemoveSubCircuit(ref)
		}
	}
	c.netlist = nil
}

// Circuits returns the circuits in insertion order.
func (nl *Netlist) Circuits() []*Circuit { return nl.circuits }

// CircuitByName looks up a circuit.
func (nl *Netlist) CircuitByName(name string) *Circuit { return nl.circuitByName[name] }

// CircuitByCell looks up the circuit extracted from a cell.
func (nl *Netlist) CircuitByCell(ci layout.CellIndex) *Circuit { return nl.circuitByCell[ci] }

// TopCircuits returns the circuits not referenced by any subcircuit.
func (nl *Netlist) TopCircuits() []*Circuit {
	var out []*Circuit
	for _, c := range nl.circuits {
		if len(c.refs) == 0 {
			out = append(out, c)
		}
	}
	return out
}

// BottomUp returns the circuits ordered so that every circuit comes after
// the circuits it instantiates.
func (nl *Netlist) BottomUp() []*Circuit {
	done := make(map[*Circuit]bool)
	var out []*Circuit
	for _, root := range nl.circuits {
		if done[root] {
			continue
		}
		type frame struct {
			c    *Circuit
			next int
		}
		stack := []frame{{c: root}}
		onStack := map[*Circuit]bool{root: true}
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(f.c.subcircuits) {
				ref := f.c.subcircuits[f.next].ref
				f.next++
				if ref != nil && !done[ref] && !onStack[ref] {
					onStack[ref] = true
					stack = append(stack, frame{c: ref})
				}
				continue
			}
			done[f.c] = true
			delete(onStack, f.c)
			out = append(out, f.c)
			stack = stack[:len(stack)-1]
		}
	}
	return out
}

// AddDeviceClass registers a device class. Names must be unique.
func (nl *Netlist) AddDeviceClass(dc *DeviceClass) error {
	if _, exists := nl.classByName[dc.name]; exists {
		return fmt.Errorf("netlist: device class %q already exists", dc.name)
	}
	nl.classes = append(nl.classes, dc)
	nl.classByName[dc.name] = dc
	return nil
}

// DeviceClasses returns the classes in registration order.
func (nl *Netlist) DeviceClasses() []*DeviceClass { return nl.classes }

// DeviceClassByName looks up a device class.
func (nl *Netlist) DeviceClassByName(name string) *DeviceClass { return nl.classByName[name] }

// AddDeviceAbstract registers a device abstract.
func (nl *Netlist) AddDeviceAbstract(da *DeviceAbstract) {
	nl.abstracts = append(nl.abstracts, da)
	nl.abstractByName[da.name] = da
	if da.hasCell {
		nl.abstractByCell[da.cell] = da
	}
}

// DeviceAbstracts returns the abstracts in registration order.
func (nl *Netlist) DeviceAbstracts() []*DeviceAbstract { return nl.abstracts }

// DeviceAbstractByName looks up a device abstract.
func (nl *Netlist) DeviceAbstractByName(name string) *DeviceAbstract { return nl.abstractByName[name] }

// DeviceAbstractByCell looks up the abstract that owns a cell.
func (nl *Netlist) DeviceAbstractByCell(ci layout.CellIndex) *DeviceAbstract {
	return nl.abstractByCell[ci]
}

// DeviceAbstractCells returns the cells owned by device abstracts, sorted.
func (nl *Netlist) DeviceAbstractCells() []layout.CellIndex {
	out := make([]layout.CellIndex, 0, len(nl.abstractByCell))
	for ci := range nl.abstractByCell {
		out = append(out, ci)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
