// Package extract recognizes devices in hierarchical layout geometry.
//
// A DeviceExtractor clusters the recognizer's input layers over the cell
// hierarchy and hands the geometry of every root cluster to a Recognizer,
// which creates devices and defines their terminal shapes. Terminal shapes
// are stored in device abstract cells that are shared by all devices with
// the same footprint and parameters. Root clusters whose normalized
// geometry was seen before reuse the devices recognized the first time.
package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/cluster"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/connectivity"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/region"
)

// Property names attached to device abstract cells, their terminal shapes
// and their instances.
const (
	TerminalIDPropertyName  = "TERMINAL_ID"
	DeviceIDPropertyName    = "DEVICE_ID"
	DeviceClassPropertyName = "DEVICE_CLASS"
)

// Recognizer is the device specific part of an extraction.
type Recognizer interface {
	// Setup registers the device class and declares the input layers.
	Setup(x *DeviceExtractor) error
	// Connectivity returns the connectivity that forms device clusters.
	// layers holds the layer of each declared input, in declaration order.
	Connectivity(layers []int) *connectivity.Connectivity
	// ExtractDevices recognizes devices in one root cluster. geometry holds
	// one region per declared input, moved so the cluster's bounding box
	// starts at the origin. A returned error aborts the extraction;
	// recognition problems are reported through the extractor's Error
	// methods instead.
	ExtractDevices(x *DeviceExtractor, geometry []*region.Region) error
}

// LayerDefinition is one input layer declared by a recognizer.
type LayerDefinition struct {
	Name        string
	Description string
	Index       int
}

type newDevice struct {
	device   *netlist.Device
	geometry terminalShapes
}

// DeviceExtractor runs a Recognizer over a layout hierarchy. It is not safe
// for concurrent use.
type DeviceExtractor struct {
	name    string
	rec     Recognizer
	logger  *slog.Logger
	threads int

	layerDefs []LayerDefinition
	class     *netlist.DeviceClass
	nl        *netlist.Netlist

	ly      *layout.Layout
	layers  []int
	cell    layout.CellIndex
	circuit *netlist.Circuit
	disp    geom.Vector

	terminalIDProp  int
	deviceIDProp    int
	deviceClassProp int

	newDevices  map[int]*newDevice
	newOrder    []int
	deviceCells *deviceCellCache

	errors      []ExtractorError
	done, total int
}

// NewDeviceExtractor creates an extractor. The name becomes the name of
// the device class the recognizer registers.
func NewDeviceExtractor(name string, r Recognizer) *DeviceExtractor {
	return &DeviceExtractor{
		name:    name,
		rec:     r,
		logger:  slog.New(slog.DiscardHandler),
		threads: 1,
	}
}

// Name returns the extractor name.
func (x *DeviceExtractor) Name() string { return x.name }

// SetLogger sets the logger. A nil logger discards.
func (x *DeviceExtractor) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	x.logger = l
}

// SetThreads sets the worker count for clustering in ExtractLayers.
func (x *DeviceExtractor) SetThreads(n int) { x.threads = max(n, 1) }

// LayerDefinitions returns the input layers declared by the recognizer.
func (x *DeviceExtractor) LayerDefinitions() []LayerDefinition { return x.layerDefs }

// DeviceClass returns the registered class, or nil.
func (x *DeviceExtractor) DeviceClass() *netlist.DeviceClass { return x.class }

// DBU returns the database unit of the layout being extracted.
func (x *DeviceExtractor) DBU() float64 {
	if x.ly == nil {
		return layout.DefaultDBU
	}
	return x.ly.DBU()
}

// Circuit returns the circuit of the cell being extracted.
func (x *DeviceExtractor) Circuit() *netlist.Circuit { return x.circuit }

// CellName returns the name of the cell being extracted.
func (x *DeviceExtractor) CellName() string {
	if x.ly == nil {
		return ""
	}
	if c := x.ly.Cell(x.cell); c != nil {
		return c.Name()
	}
	return ""
}

// Errors returns the recognition errors of the last extraction.
func (x *DeviceExtractor) Errors() []ExtractorError { return x.errors }

// HasErrors reports whether the last extraction recorded errors.
func (x *DeviceExtractor) HasErrors() bool { return len(x.errors) > 0 }

// Progress returns the number of root clusters processed and the total.
func (x *DeviceExtractor) Progress() (done, total int) { return x.done, x.total }

// RegisterDeviceClass adds the recognizer's device class to the netlist.
// The class is renamed after the extractor. Only one class may be
// registered per extraction.
func (x *DeviceExtractor) RegisterDeviceClass(dc *netlist.DeviceClass) error {
	if x.class != nil {
		return ErrDeviceClassSet
	}
	if x.name == "" {
		return ErrNoName
	}
	dc.SetName(x.name)
	if x.nl != nil {
		if existing := x.nl.DeviceClassByName(x.name); existing != nil {
			x.class = existing
			return nil
		}
		if err := x.nl.AddDeviceClass(dc); err != nil {
			return fmt.Errorf("extract: %w", err)
		}
	}
	x.class = dc
	return nil
}

// DefineLayer declares the next input layer and returns its geometry index.
func (x *DeviceExtractor) DefineLayer(name, description string) int {
	idx := len(x.layerDefs)
	x.layerDefs = append(x.layerDefs, LayerDefinition{Name: name, Description: description, Index: idx})
	return idx
}

// CreateDevice adds a new device of the registered class to the current
// circuit.
func (x *DeviceExtractor) CreateDevice() (*netlist.Device, error) {
	if x.class == nil {
		return nil, ErrNoDeviceClass
	}
	d := netlist.NewDevice(x.class, "")
	x.circuit.AddDevice(d)
	devicesTotal.Inc()
	return d, nil
}

// DefineTerminal assigns a shape on the given input layer to a terminal.
// Coordinates are those of the geometry passed to ExtractDevices.
func (x *DeviceExtractor) DefineTerminal(d *netlist.Device, terminalID, geometryIndex int, p geom.Polygon) {
	nd, ok := x.newDevices[d.ID()]
	if !ok {
		nd = &newDevice{device: d, geometry: make(terminalShapes)}
		x.newDevices[d.ID()] = nd
		x.newOrder = append(x.newOrder, d.ID())
	}
	layer := x.layers[geometryIndex]
	if nd.geometry[terminalID] == nil {
		nd.geometry[terminalID] = make(map[int][]geom.Polygon)
	}
	nd.geometry[terminalID][layer] = append(nd.geometry[terminalID][layer], p)
}

// DefineTerminalBox assigns a box to a terminal.
func (x *DeviceExtractor) DefineTerminalBox(d *netlist.Device, terminalID, geometryIndex int, b geom.Box) {
	x.DefineTerminal(d, terminalID, geometryIndex, geom.NewBoxPolygon(b))
}

// DefineTerminalPoint assigns a point to a terminal. The point becomes a
// box one database unit larger on each side.
func (x *DeviceExtractor) DefineTerminalPoint(d *netlist.Device, terminalID, geometryIndex int, p geom.Point) {
	x.DefineTerminalBox(d, terminalID, geometryIndex, geom.NewBox(p, p).Enlarged(1))
}

// Error records a recognition error for the current cell.
func (x *DeviceExtractor) Error(msg string) {
	x.addError(ExtractorError{Message: msg})
}

// ErrorAt records a recognition error with the offending shape, given in
// the coordinates of the geometry passed to ExtractDevices.
func (x *DeviceExtractor) ErrorAt(msg string, p geom.Polygon) {
	x.addError(ExtractorError{Message: msg, Geometry: p.Moved(x.disp)})
}

// ErrorCategory records a categorized recognition error.
func (x *DeviceExtractor) ErrorCategory(name, description, msg string) {
	x.addError(ExtractorError{Message: msg, CategoryName: name, CategoryDescription: description})
}

// ErrorCategoryAt records a categorized recognition error with a shape.
func (x *DeviceExtractor) ErrorCategoryAt(name, description, msg string, p geom.Polygon) {
	x.addError(ExtractorError{Message: msg, CategoryName: name, CategoryDescription: description, Geometry: p.Moved(x.disp)})
}

func (x *DeviceExtractor) addError(e ExtractorError) {
	e.CellName = x.CellName()
	x.errors = append(x.errors, e)
	errorsTotal.Inc()
	x.logger.Warn("device recognition error", "extractor", x.name, "error", e.String())
}

func (x *DeviceExtractor) initialize(nl *netlist.Netlist) error {
	x.layerDefs = nil
	x.class = nil
	x.nl = nl
	x.errors = nil
	x.done, x.total = 0, 0
	x.deviceCells = newDeviceCellCache()
	if err := x.rec.Setup(x); err != nil {
		return err
	}
	return nil
}

// Extract runs device extraction on the deep layers of a store. layers maps
// each declared input name to a deep region of dss.
func (x *DeviceExtractor) Extract(ctx context.Context, dss *region.DeepShapeStore, layers map[string]*region.Region, nl *netlist.Netlist) error {
	if err := x.initialize(nl); err != nil {
		return err
	}

	ids := make([]int, 0, len(x.layerDefs))
	for _, ld := range x.layerDefs {
		r, ok := layers[ld.Name]
		if !ok || r == nil {
			return fmt.Errorf("%w: %s", ErrMissingInputLayer, ld.Name)
		}
		dl, ok := r.DeepLayer()
		if !ok {
			return fmt.Errorf("%w: layer '%s'", ErrInvalidRegion, ld.Name)
		}
		if dl.Store() != dss {
			return fmt.Errorf("%w: layer '%s'", ErrForeignRegion, ld.Name)
		}
		ids = append(ids, dl.Layer())
	}

	top, ok := dss.TopCell()
	if !ok {
		return fmt.Errorf("extract: deep shape store has no top cell")
	}
	x.threads = dss.Threads()
	return x.extract(ctx, dss.Layout(), top, ids)
}

// ExtractLayers runs device extraction on plain layers of a layout.
func (x *DeviceExtractor) ExtractLayers(ctx context.Context, ly *layout.Layout, top layout.CellIndex, layers []int, nl *netlist.Netlist) error {
	if err := x.initialize(nl); err != nil {
		return err
	}
	if len(layers) != len(x.layerDefs) {
		return fmt.Errorf("%w: %d layers given, %d declared", ErrMissingInputLayer, len(layers), len(x.layerDefs))
	}
	return x.extract(ctx, ly, top, layers)
}

func (x *DeviceExtractor) extract(ctx context.Context, ly *layout.Layout, top layout.CellIndex, layers []int) error {
	x.ly = ly
	x.layers = layers

	props := ly.Properties()
	x.terminalIDProp = props.NameID(TerminalIDPropertyName)
	x.deviceIDProp = props.NameID(DeviceIDPropertyName)
	x.deviceClassProp = props.NameID(DeviceClassPropertyName)

	exclude := make(map[layout.CellIndex]bool)
	for _, ci := range x.nl.DeviceAbstractCells() {
		exclude[ci] = true
	}

	x.logger.Info("device extraction started", "extractor", x.name, "layers", len(layers))

	conn := x.rec.Connectivity(layers)
	hc, err := cluster.Build(ctx, ly, top, conn, cluster.Options{Threads: x.threads, Exclude: exclude})
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	called := ly.CalledCells(top)
	var cells []layout.CellIndex
	for _, ci := range ly.BottomUp() {
		if called[ci] && !exclude[ci] {
			cells = append(cells, ci)
		}
	}

	for _, ci := range cells {
		cc := hc.ClustersPerCell(ci)
		for _, c := range cc.Clusters() {
			if cc.IsRoot(c.ID()) {
				x.total++
			}
		}
	}

	geoCache := newGeometryCache()
	hits, misses := 0, 0

	for _, ci := range cells {
		x.cell = ci
		x.circuit = x.circuitFor(ci)

		cc := hc.ClustersPerCell(ci)
		for _, c := range cc.Clusters() {
			if !cc.IsRoot(c.ID()) {
				continue
			}
			x.done++

			geometry := make([]*region.Region, len(layers))
			bbox := geom.EmptyBox()
			for i, l := range layers {
				r := region.New()
				for _, s := range hc.ClusterShapes(ci, c.ID(), l, true) {
					if !s.IsText() {
						r.Insert(s.Polygon)
					}
				}
				geometry[i] = r
				bbox = bbox.Add(r.BBox())
			}
			if bbox.IsEmpty() {
				continue
			}

			disp := geom.Vector{X: bbox.Left, Y: bbox.Bottom}
			key := make(geometryKey, len(geometry))
			for i, r := range geometry {
				geometry[i] = r.Moved(disp.Neg())
				key[i] = geometry[i].Sorted()
			}

			entry, h := geoCache.lookup(key)
			if entry != nil {
				hits++
				clustersTotal.WithLabelValues("hit").Inc()
				x.pushCachedDevices(entry.devices, entry.disp, disp)
				continue
			}

			misses++
			clustersTotal.WithLabelValues("miss").Inc()
			x.newDevices = make(map[int]*newDevice)
			x.newOrder = nil
			x.disp = disp

			if err := x.rec.ExtractDevices(x, geometry); err != nil {
				return fmt.Errorf("extract: %s in cell %s: %w", x.name, x.CellName(), err)
			}

			entry = &geometryEntry{key: key, disp: disp}
			for _, id := range x.newOrder {
				entry.devices = append(entry.devices, x.newDevices[id].device)
			}
			x.pushNewDevices(disp)
			geoCache.insert(h, entry)
		}
	}

	x.disp = geom.Vector{}
	x.logger.Debug("device cache statistics", "extractor", x.name,
		"cluster_hits", hits, "cluster_misses", misses, "abstracts", x.deviceCells.len())
	x.logger.Info("device extraction finished", "extractor", x.name,
		"clusters", x.total, "errors", len(x.errors))
	return nil
}

// circuitFor returns the circuit of a cell, creating it if needed.
func (x *DeviceExtractor) circuitFor(ci layout.CellIndex) *netlist.Circuit {
	if c := x.nl.CircuitByCell(ci); c != nil {
		return c
	}
	c := netlist.NewCircuit(x.ly.Cell(ci).Name())
	c.SetCellIndex(ci)
	x.nl.AddCircuit(c)
	return c
}

func (x *DeviceExtractor) positionDBU(p geom.DPoint) geom.Vector {
	dbu := x.ly.DBU()
	return geom.DVector{X: p.X / dbu, Y: p.Y / dbu}.Round()
}

// pushNewDevices places the devices recognized in the current cluster.
// Their positions move from cluster coordinates into cell coordinates and
// their terminal shapes go into (possibly shared) abstract cells.
func (x *DeviceExtractor) pushNewDevices(dispCache geom.Vector) {
	dbu := x.ly.DBU()
	props := x.ly.Properties()

	for _, id := range x.newOrder {
		nd := x.newDevices[id]
		d := nd.device

		disp := x.positionDBU(d.Position())
		d.SetPosition(d.Position().Add(dispCache.ToD().Scale(dbu)))

		key := newDeviceCellKey(nd.geometry, disp, d.ParameterValues())
		entry, h := x.deviceCells.lookup(key)
		if entry == nil {
			cell := x.ly.AddCell("D$" + x.class.Name())
			cell.PropID = props.Single(x.deviceClassProp, x.class.Name())

			da := netlist.NewDeviceAbstract(x.class, cell.Name())
			da.SetCellIndex(cell.Index())
			x.nl.AddDeviceAbstract(da)

			for _, tg := range key.Terminals {
				prop := props.Single(x.terminalIDProp, tg.Terminal)
				for _, lg := range tg.Layers {
					for _, p := range lg.Polygons {
						cell.Insert(lg.Layer, layout.PolygonShape(p, prop))
					}
				}
			}

			entry = &deviceCellEntry{key: key, abstract: da, cell: cell.Index()}
			x.deviceCells.insert(h, entry)
		}

		d.SetAbstract(entry.abstract)
		x.ly.Cell(x.cell).InsertInstance(layout.Instance{
			Cell:   entry.cell,
			Trans:  geom.NewDisp(dispCache.Add(disp)),
			PropID: props.Single(x.deviceIDProp, d.ID()),
		})
	}
}

// pushCachedDevices clones devices recognized in an identical cluster seen
// at dispCache and places the clones relative to newDisp.
func (x *DeviceExtractor) pushCachedDevices(devices []*netlist.Device, dispCache, newDisp geom.Vector) {
	dbu := x.ly.DBU()
	props := x.ly.Properties()
	shift := newDisp.Add(dispCache.Neg())

	for _, cached := range devices {
		disp := x.positionDBU(cached.Position()).Add(dispCache.Neg())

		d := cached.Clone()
		x.circuit.AddDevice(d)
		devicesTotal.Inc()
		d.SetPosition(cached.Position().Add(shift.ToD().Scale(dbu)))

		ci, _ := cached.Abstract().CellIndex()
		x.ly.Cell(x.cell).InsertInstance(layout.Instance{
			Cell:   ci,
			Trans:  geom.NewDisp(newDisp.Add(disp)),
			PropID: props.Single(x.deviceIDProp, d.ID()),
		})
	}
}
