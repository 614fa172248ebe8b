package extract

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/connectivity"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/region"
)

// Geometry indexes of the MOS recognizer inputs.
const (
	MOSSourceDrain = iota
	MOSGate
	MOSBulk
)

type mosRecognizer struct {
	bulk bool
}

// NewMOS3Extractor recognizes three-terminal MOS transistors. Inputs are
// "SD" (source and drain diffusion, already separated at the gate) and "G"
// (gate). Every gate needs exactly two abutting SD regions.
func NewMOS3Extractor(name string) *DeviceExtractor {
	return NewDeviceExtractor(name, &mosRecognizer{})
}

// NewMOS4Extractor is NewMOS3Extractor with a bulk terminal. The extra
// input "W" receives the gate shape as the bulk terminal.
func NewMOS4Extractor(name string) *DeviceExtractor {
	return NewDeviceExtractor(name, &mosRecognizer{bulk: true})
}

func (m *mosRecognizer) Setup(x *DeviceExtractor) error {
	tmpl := "MOS3"
	if m.bulk {
		tmpl = "MOS4"
	}
	dc, _ := netlist.NewDeviceClassFromTemplate(tmpl, x.Name())
	if err := x.RegisterDeviceClass(dc); err != nil {
		return err
	}
	x.DefineLayer("SD", "Source/drain diffusion")
	x.DefineLayer("G", "Gate")
	if m.bulk {
		x.DefineLayer("W", "Well (bulk)")
	}
	return nil
}

func (m *mosRecognizer) Connectivity(layers []int) *connectivity.Connectivity {
	c := connectivity.New()
	c.Connect(layers[MOSGate])
	c.ConnectLayers(layers[MOSGate], layers[MOSSourceDrain])
	return c
}

func (m *mosRecognizer) ExtractDevices(x *DeviceExtractor, geometry []*region.Region) error {
	dc := x.DeviceClass()
	tS, _ := dc.TerminalID("S")
	tG, _ := dc.TerminalID("G")
	tD, _ := dc.TerminalID("D")
	tB, _ := dc.TerminalID("B")
	dbu := x.DBU()

	sd := geometry[MOSSourceDrain].Sorted()
	for _, gate := range geometry[MOSGate].Sorted() {
		var diff []geom.Polygon
		for _, p := range sd {
			if p.Interacts(gate) {
				diff = append(diff, p)
			}
		}
		if len(diff) != 2 {
			x.ErrorCategoryAt("mos", "MOS recognition",
				fmt.Sprintf("expected two source/drain regions at gate, found %d", len(diff)), gate)
			continue
		}
		shared := geom.SharedEdgeLength(gate, diff[0]) + geom.SharedEdgeLength(gate, diff[1])
		if shared <= 0 {
			x.ErrorCategoryAt("mos", "MOS recognition", "source/drain regions do not abut the gate", gate)
			continue
		}
		w := shared / 2
		l := gate.Area() / w

		d, err := x.CreateDevice()
		if err != nil {
			return err
		}
		d.SetParameterByName("W", w*dbu)
		d.SetParameterByName("L", l*dbu)
		d.SetParameterByName("AS", diff[0].Area()*dbu*dbu)
		d.SetParameterByName("AD", diff[1].Area()*dbu*dbu)
		d.SetParameterByName("PS", diff[0].Perimeter()*dbu)
		d.SetParameterByName("PD", diff[1].Perimeter()*dbu)

		c := gate.BBox().Center()
		d.SetPosition(geom.DPoint{X: float64(c.X) * dbu, Y: float64(c.Y) * dbu})

		x.DefineTerminal(d, tS, MOSSourceDrain, diff[0])
		x.DefineTerminal(d, tG, MOSGate, gate)
		x.DefineTerminal(d, tD, MOSSourceDrain, diff[1])
		if m.bulk {
			x.DefineTerminal(d, tB, MOSBulk, gate)
		}
	}
	return nil
}
