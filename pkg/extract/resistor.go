package extract

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/connectivity"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/region"
)

// Geometry indexes of the resistor recognizer inputs.
const (
	ResistorBody = iota
	ResistorContact
)

type resistorRecognizer struct {
	sheetRho float64
}

// NewResistorExtractor recognizes two-terminal resistors. Inputs are "R"
// (resistor body) and "C" (contacts). Every body needs exactly two
// contacts. sheetRho is the sheet resistance in ohm per square.
func NewResistorExtractor(name string, sheetRho float64) *DeviceExtractor {
	return NewDeviceExtractor(name, &resistorRecognizer{sheetRho: sheetRho})
}

func (r *resistorRecognizer) Setup(x *DeviceExtractor) error {
	dc, _ := netlist.NewDeviceClassFromTemplate("RES", x.Name())
	if err := x.RegisterDeviceClass(dc); err != nil {
		return err
	}
	x.DefineLayer("R", "Resistor body")
	x.DefineLayer("C", "Contacts")
	return nil
}

func (r *resistorRecognizer) Connectivity(layers []int) *connectivity.Connectivity {
	c := connectivity.New()
	c.Connect(layers[ResistorBody])
	c.ConnectLayers(layers[ResistorBody], layers[ResistorContact])
	return c
}

func (r *resistorRecognizer) ExtractDevices(x *DeviceExtractor, geometry []*region.Region) error {
	dc := x.DeviceClass()
	tA, _ := dc.TerminalID("A")
	tB, _ := dc.TerminalID("B")
	dbu := x.DBU()

	contacts := geometry[ResistorContact].Sorted()
	for _, body := range geometry[ResistorBody].Sorted() {
		var cs []geom.Polygon
		for _, c := range contacts {
			if c.Interacts(body) {
				cs = append(cs, c)
			}
		}
		if len(cs) != 2 {
			x.ErrorCategoryAt("res", "Resistor recognition",
				fmt.Sprintf("expected two contacts on resistor body, found %d", len(cs)), body)
			continue
		}

		// contacts abutting the body define the width; overlapping contacts
		// fall back to the narrow side of the body
		w := (geom.SharedEdgeLength(body, cs[0]) + geom.SharedEdgeLength(body, cs[1])) / 2
		if w <= 0 {
			b := body.BBox()
			w = float64(min(b.Width(), b.Height()))
		}
		if w <= 0 {
			x.ErrorCategoryAt("res", "Resistor recognition", "degenerate resistor body", body)
			continue
		}
		l := body.Area() / w

		d, err := x.CreateDevice()
		if err != nil {
			return err
		}
		d.SetParameterByName("R", r.sheetRho*l/w)
		d.SetParameterByName("L", l*dbu)
		d.SetParameterByName("W", w*dbu)
		d.SetParameterByName("A", body.Area()*dbu*dbu)
		d.SetParameterByName("P", body.Perimeter()*dbu)

		c := body.BBox().Center()
		d.SetPosition(geom.DPoint{X: float64(c.X) * dbu, Y: float64(c.Y) * dbu})

		x.DefineTerminal(d, tA, ResistorContact, cs[0])
		x.DefineTerminal(d, tB, ResistorContact, cs[1])
	}
	return nil
}
