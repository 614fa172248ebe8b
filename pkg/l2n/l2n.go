package l2n

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/cluster"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/connectivity"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/extract"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/region"
)

// LayoutToNetlist is the extraction orchestrator. It is not safe for
// concurrent use.
type LayoutToNetlist struct {
	iter    layout.RecursiveShapeIterator
	hasIter bool

	dss  *region.DeepShapeStore
	conn *connectivity.Connectivity

	// one retained handle per internal layer
	kept  map[int]*region.Region
	named map[string]*region.Region
	names map[int]string

	nl        *netlist.Netlist
	clusters  *cluster.HierClusters
	extracted bool

	cfg    Config
	logger *slog.Logger
}

// Option configures a LayoutToNetlist.
type Option func(*LayoutToNetlist)

// WithConfig sets the engine configuration.
func WithConfig(cfg Config) Option {
	return func(l *LayoutToNetlist) { l.cfg = cfg }
}

// WithLogger sets the logger. A nil logger discards.
func WithLogger(logger *slog.Logger) Option {
	return func(l *LayoutToNetlist) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func newLayoutToNetlist(dss *region.DeepShapeStore, opts []Option) (*LayoutToNetlist, error) {
	l := &LayoutToNetlist{
		dss:    dss,
		conn:   connectivity.New(),
		kept:   make(map[int]*region.Region),
		named:  make(map[string]*region.Region),
		names:  make(map[int]string),
		cfg:    *DefaultConfig(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.cfg.Validate(); err != nil {
		return nil, err
	}
	dss.SetThreads(l.cfg.Threads)
	dss.SetAreaRatio(l.cfg.AreaRatio)
	dss.SetMaxVertexCount(l.cfg.MaxVertexCount)
	dss.SetTextEnlargement(l.cfg.TextEnlargement)
	dss.SetTextPropertyName(l.cfg.TextPropertyName)
	return l, nil
}

// New creates an extractor over the hierarchy below iter. The iterator must
// not be clipped: cluster ids are only meaningful for whole cells.
func New(iter layout.RecursiveShapeIterator, opts ...Option) (*LayoutToNetlist, error) {
	if iter.IsClipped() {
		return nil, ErrClippedLayout
	}
	if iter.Layout == nil || iter.Layout.Cell(iter.Top) == nil {
		return nil, fmt.Errorf("l2n: iterator has no valid top cell")
	}
	l, err := newLayoutToNetlist(region.NewDeepShapeStore(), opts)
	if err != nil {
		return nil, err
	}
	l.iter = iter
	l.hasIter = true
	return l, nil
}

// NewStandalone creates an extractor without a source layout. Its internal
// layout holds a single TOP cell. This is the target for ReadInto.
func NewStandalone(opts ...Option) (*LayoutToNetlist, error) {
	return newLayoutToNetlist(region.NewStandaloneStore("TOP"), opts)
}

// Close releases the layers held by the extractor.
func (l *LayoutToNetlist) Close() {
	for layer, r := range l.kept {
		r.Release()
		delete(l.kept, layer)
	}
	clear(l.named)
	clear(l.names)
}

// SetThreads sets the number of cells clustered concurrently.
func (l *LayoutToNetlist) SetThreads(n int) {
	l.dss.SetThreads(n)
	l.cfg.Threads = l.dss.Threads()
}

// Threads returns the clustering worker count.
func (l *LayoutToNetlist) Threads() int { return l.dss.Threads() }

// SetAreaRatio sets the polygon split threshold handed to the deep shape
// store. Shapes are stored unsplit.
func (l *LayoutToNetlist) SetAreaRatio(r float64) {
	l.dss.SetAreaRatio(r)
	l.cfg.AreaRatio = r
}

// AreaRatio returns the polygon split threshold.
func (l *LayoutToNetlist) AreaRatio() float64 { return l.dss.AreaRatio() }

// SetMaxVertexCount sets the vertex split threshold. Zero means no limit.
func (l *LayoutToNetlist) SetMaxVertexCount(n int) {
	l.dss.SetMaxVertexCount(n)
	l.cfg.MaxVertexCount = n
}

// MaxVertexCount returns the vertex split threshold.
func (l *LayoutToNetlist) MaxVertexCount() int { return l.dss.MaxVertexCount() }

// MakeLayer pulls all shapes of a source layer into a new deep layer. A
// non-empty name registers the layer under that name.
func (l *LayoutToNetlist) MakeLayer(layer int, name string) (*region.Region, error) {
	return l.makeLayer(layer, layout.ShapeAll, name)
}

// MakeTextLayer is MakeLayer restricted to texts. Each text becomes a small
// label box carrying the string as a property.
func (l *LayoutToNetlist) MakeTextLayer(layer int, name string) (*region.Region, error) {
	return l.makeLayer(layer, layout.ShapeTexts, name)
}

// MakePolygonLayer is MakeLayer restricted to boxes and polygons.
func (l *LayoutToNetlist) MakePolygonLayer(layer int, name string) (*region.Region, error) {
	return l.makeLayer(layer, layout.ShapePolygonLike, name)
}

func (l *LayoutToNetlist) makeLayer(layer int, kinds layout.ShapeKind, name string) (*region.Region, error) {
	if !l.hasIter {
		return nil, fmt.Errorf("l2n: no source layout to take layer %d from", layer)
	}
	dl, err := l.dss.CreateLayer(l.iter.WithLayer(layer).WithKinds(kinds))
	if err != nil {
		return nil, fmt.Errorf("l2n: failed to create layer %d: %w", layer, err)
	}
	r := region.NewDeep(dl)
	if name != "" {
		l.register(dl, name)
	}
	return r, nil
}

// MakeEmptyLayer creates an empty deep layer, registered under name.
func (l *LayoutToNetlist) MakeEmptyLayer(name string) *region.Region {
	return l.makeEmptyLayer(name, layout.NamedLayer(name))
}

func (l *LayoutToNetlist) makeEmptyLayer(name string, lp layout.LayerProperties) *region.Region {
	dl := l.dss.NewLayer(lp)
	r := region.NewDeep(dl)
	if name != "" {
		l.register(dl, name)
	}
	return r
}

// RegisterLayer names a deep layer of this extractor. The extractor keeps
// the layer alive until Close.
func (l *LayoutToNetlist) RegisterLayer(r *region.Region, name string) error {
	dl, err := l.deepLayer(r, "layer registration")
	if err != nil {
		return err
	}
	l.register(dl, name)
	return nil
}

func (l *LayoutToNetlist) register(dl *region.DeepLayer, name string) {
	if old, ok := l.named[name]; ok {
		if odl, ok := old.DeepLayer(); ok {
			delete(l.names, odl.Layer())
		}
	}
	l.named[name] = l.keep(dl)
	l.names[dl.Layer()] = name
}

// keep returns the extractor's own handle on a deep layer, creating and
// retaining it on first use.
func (l *LayoutToNetlist) keep(dl *region.DeepLayer) *region.Region {
	if r, ok := l.kept[dl.Layer()]; ok {
		return r
	}
	r := region.NewDeep(dl)
	l.kept[dl.Layer()] = r
	return r
}

// LayerByName returns a registered layer.
func (l *LayoutToNetlist) LayerByName(name string) (*region.Region, bool) {
	r, ok := l.named[name]
	return r, ok
}

// NameOf returns the registered name of a layer, or "".
func (l *LayoutToNetlist) NameOf(r *region.Region) string {
	dl, ok := r.DeepLayer()
	if !ok || dl.Store() != l.dss {
		return ""
	}
	return l.names[dl.Layer()]
}

// LayerNames returns the registered names by internal layer index.
func (l *LayoutToNetlist) LayerNames() map[int]string {
	out := make(map[int]string, len(l.names))
	for k, v := range l.names {
		out[k] = v
	}
	return out
}

// LayerOf returns the internal layer index of a deep region.
func (l *LayoutToNetlist) LayerOf(r *region.Region) (int, error) {
	dl, err := l.deepLayer(r, "layer lookup")
	if err != nil {
		return 0, err
	}
	return dl.Layer(), nil
}

func (l *LayoutToNetlist) deepLayer(r *region.Region, what string) (*region.DeepLayer, error) {
	dl, ok := r.DeepLayer()
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrNotDeep, what)
	}
	if dl.Store() != l.dss {
		return nil, fmt.Errorf("l2n: %s does not belong to this extractor (%s)", dl, what)
	}
	return dl, nil
}

// Connect makes the shapes of a layer connect to each other.
func (l *LayoutToNetlist) Connect(r *region.Region) error {
	if l.extracted {
		return ErrAlreadyExtracted
	}
	dl, err := l.deepLayer(r, "intra-layer connectivity")
	if err != nil {
		return err
	}
	l.keep(dl)
	l.conn.Connect(dl.Layer())
	return nil
}

// ConnectLayers makes the shapes of two layers connect where they touch.
// Nothing is registered unless both regions are valid.
func (l *LayoutToNetlist) ConnectLayers(a, b *region.Region) error {
	if l.extracted {
		return ErrAlreadyExtracted
	}
	dla, err := l.deepLayer(a, "first layer")
	if err != nil {
		return err
	}
	dlb, err := l.deepLayer(b, "second layer")
	if err != nil {
		return err
	}
	l.keep(dla)
	l.keep(dlb)
	l.conn.ConnectLayers(dla.Layer(), dlb.Layer())
	return nil
}

// ConnectGlobal connects the shapes of a layer to a named global net.
func (l *LayoutToNetlist) ConnectGlobal(r *region.Region, name string) (connectivity.GlobalID, error) {
	if l.extracted {
		return 0, ErrAlreadyExtracted
	}
	dl, err := l.deepLayer(r, "global connectivity")
	if err != nil {
		return 0, err
	}
	l.keep(dl)
	return l.conn.ConnectGlobal(dl.Layer(), name), nil
}

// Connectivity returns the connectivity registered so far.
func (l *LayoutToNetlist) Connectivity() *connectivity.Connectivity { return l.conn }

// ExtractDevices runs a device extractor. layers maps the extractor's input
// names to deep layers of this extractor. Devices must be extracted before
// the netlist.
func (l *LayoutToNetlist) ExtractDevices(ctx context.Context, x *extract.DeviceExtractor, layers map[string]*region.Region) error {
	if l.extracted {
		return ErrAlreadyExtracted
	}
	nl := l.makeNetlist()
	if err := x.Extract(ctx, l.dss, layers, nl); err != nil {
		return fmt.Errorf("l2n: device extraction %q failed: %w", x.Name(), err)
	}
	if x.HasErrors() {
		l.logger.Warn("device extraction reported errors", "extractor", x.Name(), "errors", len(x.Errors()))
	}
	return nil
}

// Netlist returns the netlist, nil before any extraction step.
func (l *LayoutToNetlist) Netlist() *netlist.Netlist { return l.nl }

// IsExtracted reports whether the netlist has been extracted or read.
func (l *LayoutToNetlist) IsExtracted() bool { return l.extracted }

// NetClusters returns the clusters behind the extracted nets.
func (l *LayoutToNetlist) NetClusters() (*cluster.HierClusters, error) {
	if !l.extracted {
		return nil, ErrNotExtracted
	}
	return l.clusters, nil
}

// InternalLayout returns the layout of the deep shape store.
func (l *LayoutToNetlist) InternalLayout() *layout.Layout { return l.dss.Layout() }

// InternalTopCell returns the top cell of the internal layout.
func (l *LayoutToNetlist) InternalTopCell() (layout.CellIndex, bool) { return l.dss.TopCell() }

// DeepShapeStore returns the store holding the extractor's layers.
func (l *LayoutToNetlist) DeepShapeStore() *region.DeepShapeStore { return l.dss }

func (l *LayoutToNetlist) makeNetlist() *netlist.Netlist {
	if l.nl == nil {
		l.nl = netlist.New()
	}
	return l.nl
}

// hierClusters returns the cluster hierarchy, creating an empty one for
// the reader.
func (l *LayoutToNetlist) hierClusters() *cluster.HierClusters {
	if l.clusters == nil {
		top, _ := l.dss.TopCell()
		l.clusters = cluster.New(l.dss.Layout(), top, l.conn)
	}
	return l.clusters
}

func (l *LayoutToNetlist) setExtracted() {
	l.hierClusters()
	l.extracted = true
}

// CellMappingInto maps the internal cells onto target. When target is the
// source layout the mapping follows the mirrored hierarchy, otherwise it is
// derived from matching instance geometry. Internal cells without a
// counterpart are created in target. Device abstract cells are only
// included with withDeviceCells.
func (l *LayoutToNetlist) CellMappingInto(target *layout.Layout, targetCell layout.CellIndex, withDeviceCells bool) (*layout.CellMapping, error) {
	internal := l.dss.Layout()
	top, ok := l.dss.TopCell()
	if !ok {
		return nil, fmt.Errorf("l2n: no internal top cell")
	}

	var cm *layout.CellMapping
	if src, _ := l.dss.Source(); src == target {
		cm = l.dss.CellMappingToOriginal()
	} else {
		cm = layout.NewCellMapping()
		cm.CreateFromGeometry(target, targetCell, internal, top)
	}

	var exclude map[layout.CellIndex]bool
	if !withDeviceCells && l.nl != nil {
		exclude = make(map[layout.CellIndex]bool)
		for _, ci := range l.nl.DeviceAbstractCells() {
			exclude[ci] = true
		}
	}
	cm.CreateMissingMapping(target, internal, top, exclude)
	return cm, nil
}

// ConstCellMappingInto maps the internal cells onto target without
// modifying it. A single-cell target maps only the top cells.
func (l *LayoutToNetlist) ConstCellMappingInto(target *layout.Layout, targetCell layout.CellIndex) (*layout.CellMapping, error) {
	top, ok := l.dss.TopCell()
	if !ok {
		return nil, fmt.Errorf("l2n: no internal top cell")
	}
	cm := layout.NewCellMapping()
	if target.CellCount() == 1 {
		cm.CreateSingleMapping(target, targetCell, l.dss.Layout(), top)
	} else {
		cm.CreateFromGeometry(target, targetCell, l.dss.Layout(), top)
	}
	return cm, nil
}
