package netlist

import "sort"

// TerminalDefinition declares one terminal of a device class.
type TerminalDefinition struct {
	ID          int
	Name        string
	Description string
}

// ParameterDefinition declares one parameter of a device class.
type ParameterDefinition struct {
	ID          int
	Name        string
	Description string
	Default     float64
	Primary     bool
}

// DeviceClass describes a behavioral device type and its terminals and
// parameters.
type DeviceClass struct {
	name        string
	description string
	template    string
	terminals   []TerminalDefinition
	params      []ParameterDefinition
}

// NewDeviceClass creates a generic class without terminals or parameters.
func NewDeviceClass(name string) *DeviceClass {
	return &DeviceClass{name: name}
}

// Name returns the class name.
func (dc *DeviceClass) Name() string { return dc.name }

// SetName renames the class. Call before AddDeviceClass.
func (dc *DeviceClass) SetName(name string) { dc.name = name }

// Description returns the class description.
func (dc *DeviceClass) Description() string { return dc.description }

// SetDescription sets the class description.
func (dc *DeviceClass) SetDescription(s string) { dc.description = s }

// TemplateName returns the template the class was created from, or "".
func (dc *DeviceClass) TemplateName() string { return dc.template }

// Terminals returns the terminal definitions in id order.
func (dc *DeviceClass) Terminals() []TerminalDefinition { return dc.terminals }

// Parameters returns the parameter definitions in id order.
func (dc *DeviceClass) Parameters() []ParameterDefinition { return dc.params }

// AddTerminal declares a terminal and returns its id.
func (dc *DeviceClass) AddTerminal(name, description string) int {
	id := len(dc.terminals)
	dc.terminals = append(dc.terminals, TerminalDefinition{ID: id, Name: name, Description: description})
	return id
}

// AddParameter declares a parameter and returns its id.
func (dc *DeviceClass) AddParameter(name, description string, def float64, primary bool) int {
	id := len(dc.params)
	dc.params = append(dc.params, ParameterDefinition{ID: id, Name: name, Description: description, Default: def, Primary: primary})
	return id
}

// TerminalID looks up a terminal by name.
func (dc *DeviceClass) TerminalID(name string) (int, bool) {
	for _, t := range dc.terminals {
		if t.Name == name {
			return t.ID, true
		}
	}
	return 0, false
}

// TerminalByID returns a terminal definition or nil.
func (dc *DeviceClass) TerminalByID(id int) *TerminalDefinition {
	if id < 0 || id >= len(dc.terminals) {
		return nil
	}
	return &dc.terminals[id]
}

// ParameterID looks up a parameter by name.
func (dc *DeviceClass) ParameterID(name string) (int, bool) {
	for _, p := range dc.params {
		if p.Name == name {
			return p.ID, true
		}
	}
	return 0, false
}

// ParameterByID returns a parameter definition or nil.
func (dc *DeviceClass) ParameterByID(id int) *ParameterDefinition {
	if id < 0 || id >= len(dc.params) {
		return nil
	}
	return &dc.params[id]
}

type classTemplate struct {
	description string
	terminals   [][2]string
	params      []ParameterDefinition
}

var templates = map[string]classTemplate{
	"RES": {
		description: "Resistor",
		terminals:   [][2]string{{"A", "Terminal A"}, {"B", "Terminal B"}},
		params: []ParameterDefinition{
			{Name: "R", Description: "Resistance (Ohm)", Primary: true},
			{Name: "L", Description: "Length (micrometer)"},
			{Name: "W", Description: "Width (micrometer)"},
			{Name: "A", Description: "Area (square micrometer)"},
			{Name: "P", Description: "Perimeter (micrometer)"},
		},
	},
	"RES3": {
		description: "Resistor with bulk terminal",
		terminals:   [][2]string{{"A", "Terminal A"}, {"B", "Terminal B"}, {"W", "Terminal W (well, bulk)"}},
		params: []ParameterDefinition{
			{Name: "R", Description: "Resistance (Ohm)", Primary: true},
			{Name: "L", Description: "Length (micrometer)"},
			{Name: "W", Description: "Width (micrometer)"},
			{Name: "A", Description: "Area (square micrometer)"},
			{Name: "P", Description: "Perimeter (micrometer)"},
		},
	},
	"CAP": {
		description: "Capacitor",
		terminals:   [][2]string{{"A", "Terminal A"}, {"B", "Terminal B"}},
		params: []ParameterDefinition{
			{Name: "C", Description: "Capacitance (Farad)", Primary: true},
			{Name: "A", Description: "Area (square micrometer)"},
			{Name: "P", Description: "Perimeter (micrometer)"},
		},
	},
	"CAP3": {
		description: "Capacitor with bulk terminal",
		terminals:   [][2]string{{"A", "Terminal A"}, {"B", "Terminal B"}, {"W", "Terminal W (well, bulk)"}},
		params: []ParameterDefinition{
			{Name: "C", Description: "Capacitance (Farad)", Primary: true},
			{Name: "A", Description: "Area (square micrometer)"},
			{Name: "P", Description: "Perimeter (micrometer)"},
		},
	},
	"DIODE": {
		description: "Diode",
		terminals:   [][2]string{{"A", "Anode"}, {"C", "Cathode"}},
		params: []ParameterDefinition{
			{Name: "A", Description: "Area (square micrometer)", Primary: true},
			{Name: "P", Description: "Perimeter (micrometer)"},
		},
	},
	"MOS3": {
		description: "Three-terminal MOS transistor",
		terminals:   [][2]string{{"S", "Source"}, {"G", "Gate"}, {"D", "Drain"}},
		params:      mosParams,
	},
	"MOS4": {
		description: "Four-terminal MOS transistor",
		terminals:   [][2]string{{"S", "Source"}, {"G", "Gate"}, {"D", "Drain"}, {"B", "Bulk"}},
		params:      mosParams,
	},
	"BJT3": {
		description: "Bipolar transistor",
		terminals:   [][2]string{{"C", "Collector"}, {"B", "Base"}, {"E", "Emitter"}},
		params:      bjtParams,
	},
	"BJT4": {
		description: "Bipolar transistor with substrate terminal",
		terminals:   [][2]string{{"C", "Collector"}, {"B", "Base"}, {"E", "Emitter"}, {"S", "Substrate"}},
		params:      bjtParams,
	},
}

var mosParams = []ParameterDefinition{
	{Name: "L", Description: "Gate length (micrometer)", Primary: true},
	{Name: "W", Description: "Gate width (micrometer)", Primary: true},
	{Name: "AS", Description: "Source area (square micrometer)"},
	{Name: "AD", Description: "Drain area (square micrometer)"},
	{Name: "PS", Description: "Source perimeter (micrometer)"},
	{Name: "PD", Description: "Drain perimeter (micrometer)"},
}

var bjtParams = []ParameterDefinition{
	{Name: "AE", Description: "Emitter area (square micrometer)", Primary: true},
	{Name: "PE", Description: "Emitter perimeter (micrometer)"},
	{Name: "AB", Description: "Base area (square micrometer)"},
	{Name: "PB", Description: "Base perimeter (micrometer)"},
	{Name: "AC", Description: "Collector area (square micrometer)"},
	{Name: "PC", Description: "Collector perimeter (micrometer)"},
	{Name: "NE", Description: "Emitter count", Default: 1},
}

// TemplateNames lists the known device class templates, sorted.
func TemplateNames() []string {
	out := make([]string, 0, len(templates))
	for n := range templates {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NewDeviceClassFromTemplate creates a class named name from a template.
// It reports false if the template is unknown.
func NewDeviceClassFromTemplate(template, name string) (*DeviceClass, bool) {
	t, ok := templates[template]
	if !ok {
		return nil, false
	}
	dc := &DeviceClass{name: name, description: t.description, template: template}
	for _, term := range t.terminals {
		dc.AddTerminal(term[0], term[1])
	}
	for _, p := range t.params {
		dc.AddParameter(p.Name, p.Description, p.Default, p.Primary)
	}
	return dc, true
}
