package extract

import (
	"slices"
	"sort"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
)

// contentHash hashes a key for bucketing. Entries in a bucket are compared
// exactly, so a failing hash only costs speed.
func contentHash(v any) uint64 {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return h
}

func sortedPolygons(ps []geom.Polygon) []geom.Polygon {
	out := append([]geom.Polygon(nil), ps...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func polygonsEqual(a, b []geom.Polygon) bool {
	return slices.EqualFunc(a, b, geom.Polygon.Equal)
}

// geometryKey is the translation-normalized geometry of one root cluster,
// one sorted polygon list per recognizer layer.
type geometryKey [][]geom.Polygon

func (k geometryKey) equal(o geometryKey) bool {
	return slices.EqualFunc(k, o, polygonsEqual)
}

type geometryEntry struct {
	key     geometryKey
	disp    geom.Vector
	devices []*netlist.Device
}

type geometryCache struct {
	buckets map[uint64][]*geometryEntry
}

func newGeometryCache() *geometryCache {
	return &geometryCache{buckets: make(map[uint64][]*geometryEntry)}
}

func (c *geometryCache) lookup(k geometryKey) (*geometryEntry, uint64) {
	h := contentHash(k)
	for _, e := range c.buckets[h] {
		if e.key.equal(k) {
			return e, h
		}
	}
	return nil, h
}

func (c *geometryCache) insert(h uint64, e *geometryEntry) {
	c.buckets[h] = append(c.buckets[h], e)
}

// LayerGeometry holds the shapes of one terminal on one layer.
type LayerGeometry struct {
	Layer    int
	Polygons []geom.Polygon
}

// TerminalGeometry holds the shapes of one terminal.
type TerminalGeometry struct {
	Terminal int
	Layers   []LayerGeometry
}

// DeviceCellKey identifies a device abstract: the displacement-normalized
// terminal shapes and every parameter value. Devices with equal keys share
// one abstract and one abstract cell.
type DeviceCellKey struct {
	Terminals  []TerminalGeometry
	Parameters []float64
}

// terminalShapes maps terminal id to layer to polygons.
type terminalShapes map[int]map[int][]geom.Polygon

func newDeviceCellKey(geo terminalShapes, disp geom.Vector, params []float64) DeviceCellKey {
	k := DeviceCellKey{Parameters: params}
	tids := make([]int, 0, len(geo))
	for tid := range geo {
		tids = append(tids, tid)
	}
	sort.Ints(tids)
	for _, tid := range tids {
		tg := TerminalGeometry{Terminal: tid}
		layers := make([]int, 0, len(geo[tid]))
		for l := range geo[tid] {
			layers = append(layers, l)
		}
		sort.Ints(layers)
		for _, l := range layers {
			moved := make([]geom.Polygon, 0, len(geo[tid][l]))
			for _, p := range geo[tid][l] {
				moved = append(moved, p.Moved(disp.Neg()))
			}
			tg.Layers = append(tg.Layers, LayerGeometry{Layer: l, Polygons: sortedPolygons(moved)})
		}
		k.Terminals = append(k.Terminals, tg)
	}
	return k
}

// Equal reports whether two keys describe the same footprint.
func (k DeviceCellKey) Equal(o DeviceCellKey) bool {
	if !slices.Equal(k.Parameters, o.Parameters) {
		return false
	}
	return slices.EqualFunc(k.Terminals, o.Terminals, func(a, b TerminalGeometry) bool {
		return a.Terminal == b.Terminal && slices.EqualFunc(a.Layers, b.Layers, func(x, y LayerGeometry) bool {
			return x.Layer == y.Layer && polygonsEqual(x.Polygons, y.Polygons)
		})
	})
}

type deviceCellEntry struct {
	key      DeviceCellKey
	abstract *netlist.DeviceAbstract
	cell     layout.CellIndex
}

type deviceCellCache struct {
	buckets map[uint64][]*deviceCellEntry
}

func newDeviceCellCache() *deviceCellCache {
	return &deviceCellCache{buckets: make(map[uint64][]*deviceCellEntry)}
}

func (c *deviceCellCache) lookup(k DeviceCellKey) (*deviceCellEntry, uint64) {
	h := contentHash(k)
	for _, e := range c.buckets[h] {
		if e.key.Equal(k) {
			return e, h
		}
	}
	return nil, h
}

func (c *deviceCellCache) insert(h uint64, e *deviceCellEntry) {
	c.buckets[h] = append(c.buckets[h], e)
}

func (c *deviceCellCache) len() int {
	n := 0
	for _, b := range c.buckets {
		n += len(b)
	}
	return n
}
