package region

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
)

// ErrSourceMismatch is returned when a layer is requested from a hierarchy
// other than the one the store mirrors.
var ErrSourceMismatch = errors.New("region: iterator does not match the store's source hierarchy")

// DefaultTextPropertyName is the property that carries label strings on
// shapes converted from texts.
const DefaultTextPropertyName = "LABEL"

// DeepShapeStore owns an internal layout that mirrors the cell hierarchy of
// a source layout. Each deep layer is a layer of that internal layout.
type DeepShapeStore struct {
	layout *layout.Layout
	top    layout.CellIndex
	hasTop bool

	source    *layout.Layout
	sourceTop layout.CellIndex
	// source cell -> internal cell
	cellMap map[layout.CellIndex]layout.CellIndex

	refs map[int]int

	threads         int
	areaRatio       float64
	maxVertexCount  int
	textEnlargement int64
	textPropName    string
}

// NewDeepShapeStore creates a store whose hierarchy is built from the first
// iterator passed to CreateLayer.
func NewDeepShapeStore() *DeepShapeStore {
	return &DeepShapeStore{
		layout:          layout.New(),
		cellMap:         make(map[layout.CellIndex]layout.CellIndex),
		refs:            make(map[int]int),
		threads:         1,
		areaRatio:       3.0,
		textEnlargement: 1,
		textPropName:    DefaultTextPropertyName,
	}
}

// NewStandaloneStore creates a store without a source layout. Its internal
// layout starts with a single top cell.
func NewStandaloneStore(topName string) *DeepShapeStore {
	s := NewDeepShapeStore()
	s.top = s.layout.AddCell(topName).Index()
	s.hasTop = true
	return s
}

// Layout returns the internal layout.
func (s *DeepShapeStore) Layout() *layout.Layout { return s.layout }

// TopCell returns the internal top cell and whether it exists yet.
func (s *DeepShapeStore) TopCell() (layout.CellIndex, bool) { return s.top, s.hasTop }

// InternalCell maps a source cell to its internal counterpart.
func (s *DeepShapeStore) InternalCell(src layout.CellIndex) (layout.CellIndex, bool) {
	ci, ok := s.cellMap[src]
	return ci, ok
}

// Source returns the source layout and top cell the store mirrors. The
// layout is nil for standalone stores and before the first CreateLayer.
func (s *DeepShapeStore) Source() (*layout.Layout, layout.CellIndex) {
	return s.source, s.sourceTop
}

// CellMappingToOriginal maps the internal cells back to the source cells
// they were mirrored from.
func (s *DeepShapeStore) CellMappingToOriginal() *layout.CellMapping {
	cm := layout.NewCellMapping()
	for src, internal := range s.cellMap {
		cm.Map(internal, src)
	}
	return cm
}

// Threads returns the worker count for hierarchical operations.
func (s *DeepShapeStore) Threads() int { return s.threads }

// SetThreads sets the worker count.
func (s *DeepShapeStore) SetThreads(n int) { s.threads = max(n, 1) }

// AreaRatio returns the bounding-box to area ratio at which a polygon
// splitting engine should break up shapes. The store keeps the value for
// such an engine and does not split polygons itself.
func (s *DeepShapeStore) AreaRatio() float64 { return s.areaRatio }

// SetAreaRatio sets the area ratio.
func (s *DeepShapeStore) SetAreaRatio(r float64) { s.areaRatio = r }

// MaxVertexCount returns the vertex count at which a polygon splitting
// engine should break up shapes. Zero means no limit. Like AreaRatio it is
// held for that engine and not applied by the store.
func (s *DeepShapeStore) MaxVertexCount() int { return s.maxVertexCount }

// SetMaxVertexCount sets the vertex limit.
func (s *DeepShapeStore) SetMaxVertexCount(n int) { s.maxVertexCount = n }

// SetTextEnlargement sets how far label boxes extend around text anchors.
func (s *DeepShapeStore) SetTextEnlargement(d int64) { s.textEnlargement = d }

// SetTextPropertyName sets the property name used for label strings.
func (s *DeepShapeStore) SetTextPropertyName(name string) { s.textPropName = name }

// TextPropertyName returns the property name used for label strings.
func (s *DeepShapeStore) TextPropertyName() string { return s.textPropName }

func (s *DeepShapeStore) mirror(src *layout.Layout, top layout.CellIndex) {
	s.source = src
	s.sourceTop = top
	s.layout.SetDBU(src.DBU())

	called := src.CalledCells(top)
	for _, ci := range src.BottomUp() {
		if !called[ci] {
			continue
		}
		c := s.layout.AddCell(src.Cell(ci).Name())
		s.cellMap[ci] = c.Index()
	}
	for sci, ici := range s.cellMap {
		ic := s.layout.Cell(ici)
		for _, inst := range src.Cell(sci).Instances() {
			ic.InsertInstance(layout.Instance{Cell: s.cellMap[inst.Cell], Trans: inst.Trans})
		}
	}
	s.top = s.cellMap[top]
	s.hasTop = true
}

// CreateLayer copies one layer of the source hierarchy into a new deep
// layer. Texts become label boxes carrying the text string as a property.
func (s *DeepShapeStore) CreateLayer(it layout.RecursiveShapeIterator) (*DeepLayer, error) {
	if s.source == nil && !s.hasTop {
		s.mirror(it.Layout, it.Top)
	} else if s.source != it.Layout || s.sourceTop != it.Top {
		return nil, ErrSourceMismatch
	}

	kinds := it.Kinds
	if kinds == 0 {
		kinds = layout.ShapeAll
	}
	layer := s.layout.InsertLayer(it.Layout.LayerProperties(it.Layer))
	props := s.layout.Properties()
	textProp := props.NameID(s.textPropName)

	for sci, ici := range s.cellMap {
		dst := s.layout.Cell(ici)
		for _, sh := range it.Layout.Cell(sci).Shapes(it.Layer) {
			if sh.Kind&kinds == 0 {
				continue
			}
			if sh.IsText() {
				b := geom.NewBox(sh.Text.Pos, sh.Text.Pos).Enlarged(s.textEnlargement)
				dst.Insert(layer, layout.BoxShape(b, props.Single(textProp, sh.Text.String)))
				continue
			}
			dst.Insert(layer, layout.PolygonShape(sh.Polygon, 0))
		}
	}

	return &DeepLayer{store: s, layer: layer}, nil
}

// NewLayer creates an empty deep layer in the internal layout.
func (s *DeepShapeStore) NewLayer(lp layout.LayerProperties) *DeepLayer {
	return &DeepLayer{store: s, layer: s.layout.InsertLayer(lp)}
}

// LayerRefs returns the reference count of an internal layer.
func (s *DeepShapeStore) LayerRefs(layer int) int { return s.refs[layer] }

// DeepLayer is a reference-counted handle on one internal layer.
type DeepLayer struct {
	store *DeepShapeStore
	layer int
}

// Store returns the owning store.
func (dl *DeepLayer) Store() *DeepShapeStore { return dl.store }

// Layer returns the internal layer index.
func (dl *DeepLayer) Layer() int { return dl.layer }

// Retain adds a reference.
func (dl *DeepLayer) Retain() { dl.store.refs[dl.layer]++ }

// Release drops a reference. The layer's shapes are cleared when the last
// reference goes away.
func (dl *DeepLayer) Release() {
	st := dl.store
	if st.refs[dl.layer] <= 0 {
		return
	}
	st.refs[dl.layer]--
	if st.refs[dl.layer] == 0 {
		delete(st.refs, dl.layer)
		st.layout.ClearLayer(dl.layer)
	}
}

func (dl *DeepLayer) String() string {
	return fmt.Sprintf("deep layer %d (%s)", dl.layer, dl.store.layout.LayerProperties(dl.layer))
}
