package netlist

import (
	"strconv"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
)

// DeviceAbstractRef places an auxiliary abstract relative to the device.
type DeviceAbstractRef struct {
	Abstract *DeviceAbstract
	Offset   geom.DVector
}

// DeviceReconnectedTerminal redirects a terminal to a terminal of another
// abstract. DeviceIndex 0 is the primary abstract, i+1 is OtherAbstracts[i].
type DeviceReconnectedTerminal struct {
	DeviceIndex     int
	OtherTerminalID int
}

// Device is an instance of a device class inside a circuit.
type Device struct {
	id      int
	name    string
	circuit *Circuit

	class          *DeviceClass
	abstract       *DeviceAbstract
	otherAbstracts []DeviceAbstractRef
	reconnected    map[int][]DeviceReconnectedTerminal

	terminals map[int]*Net
	params    map[int]float64
	position  geom.DPoint
}

// NewDevice creates a device of a class. Add it to a circuit with AddDevice.
func NewDevice(class *DeviceClass, name string) *Device {
	return &Device{
		name:      name,
		class:     class,
		terminals: make(map[int]*Net),
		params:    make(map[int]float64),
	}
}

// ID returns the device id within its circuit.
func (d *Device) ID() int { return d.id }

// Name returns the device name, possibly empty.
func (d *Device) Name() string { return d.name }

// SetName renames the device.
func (d *Device) SetName(name string) { d.name = name }

// ExpandedName returns the name or "$<id>" for anonymous devices.
func (d *Device) ExpandedName() string {
	if d.name != "" {
		return d.name
	}
	return "$" + strconv.Itoa(d.id)
}

// Circuit returns the owning circuit.
func (d *Device) Circuit() *Circuit { return d.circuit }

// Class returns the device class.
func (d *Device) Class() *DeviceClass { return d.class }

// Abstract returns the primary device abstract.
func (d *Device) Abstract() *DeviceAbstract { return d.abstract }

// SetAbstract sets the primary device abstract.
func (d *Device) SetAbstract(a *DeviceAbstract) { d.abstract = a }

// OtherAbstracts returns the auxiliary abstracts.
func (d *Device) OtherAbstracts() []DeviceAbstractRef { return d.otherAbstracts }

// AddOtherAbstract appends an auxiliary abstract.
func (d *Device) AddOtherAbstract(r DeviceAbstractRef) {
	d.otherAbstracts = append(d.otherAbstracts, r)
}

// ReconnectedTerminals returns the redirections for a terminal.
func (d *Device) ReconnectedTerminals(terminalID int) []DeviceReconnectedTerminal {
	return d.reconnected[terminalID]
}

// ReconnectedTerminalIDs returns the terminals with redirections.
func (d *Device) ReconnectedTerminalIDs() []int {
	var out []int
	for _, td := range d.class.terminals {
		if _, ok := d.reconnected[td.ID]; ok {
			out = append(out, td.ID)
		}
	}
	return out
}

// AddReconnectedTerminal adds a redirection for a terminal.
func (d *Device) AddReconnectedTerminal(terminalID int, r DeviceReconnectedTerminal) {
	if d.reconnected == nil {
		d.reconnected = make(map[int][]DeviceReconnectedTerminal)
	}
	d.reconnected[terminalID] = append(d.reconnected[terminalID], r)
}

// Position returns the device location in user units.
func (d *Device) Position() geom.DPoint { return d.position }

// SetPosition sets the device location.
func (d *Device) SetPosition(p geom.DPoint) { d.position = p }

// Parameter returns a parameter value, falling back to the class default.
func (d *Device) Parameter(id int) float64 {
	if v, ok := d.params[id]; ok {
		return v
	}
	if pd := d.class.ParameterByID(id); pd != nil {
		return pd.Default
	}
	return 0
}

// ParameterByName returns a parameter value by name.
func (d *Device) ParameterByName(name string) float64 {
	id, ok := d.class.ParameterID(name)
	if !ok {
		return 0
	}
	return d.Parameter(id)
}

// SetParameter sets a parameter value.
func (d *Device) SetParameter(id int, v float64) { d.params[id] = v }

// SetParameterByName sets a parameter value by name. Unknown names are
// ignored.
func (d *Device) SetParameterByName(name string, v float64) {
	if id, ok := d.class.ParameterID(name); ok {
		d.params[id] = v
	}
}

// ParameterValues returns all parameter values in class order.
func (d *Device) ParameterValues() []float64 {
	out := make([]float64, len(d.class.params))
	for i, pd := range d.class.params {
		out[i] = d.Parameter(pd.ID)
	}
	return out
}

// NetForTerminal returns the net on a terminal, or nil.
func (d *Device) NetForTerminal(terminalID int) *Net { return d.terminals[terminalID] }

// ConnectTerminal attaches a terminal to a net, replacing any previous one.
func (d *Device) ConnectTerminal(terminalID int, n *Net) {
	if old := d.terminals[terminalID]; old != nil {
		for i, tr := range old.terminals {
			if tr.Device == d && tr.TerminalID == terminalID {
				old.terminals = append(old.terminals[:i], old.terminals[i+1:]...)
				break
			}
		}
	}
	if n == nil {
		delete(d.terminals, terminalID)
		return
	}
	d.terminals[terminalID] = n
	n.terminals = append(n.terminals, NetTerminalRef{Device: d, TerminalID: terminalID})
}

// Clone copies class, abstracts, parameters and position. The copy has no
// id, circuit or terminal connections.
func (d *Device) Clone() *Device {
	c := NewDevice(d.class, d.name)
	c.abstract = d.abstract
	c.otherAbstracts = append([]DeviceAbstractRef(nil), d.otherAbstracts...)
	if d.reconnected != nil {
		c.reconnected = make(map[int][]DeviceReconnectedTerminal, len(d.reconnected))
		for k, v := range d.reconnected {
			c.reconnected[k] = append([]DeviceReconnectedTerminal(nil), v...)
		}
	}
	for k, v := range d.params {
		c.params[k] = v
	}
	c.position = d.position
	return c
}
