package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// LayerProperties describes a layer by GDS layer/datatype and/or name.
type LayerProperties struct {
	Layer    int
	Datatype int
	Name     string
	// Null is set when no layer/datatype numbers are given.
	Null bool
}

// NamedLayer returns layer properties carrying only a name.
func NamedLayer(name string) LayerProperties {
	return LayerProperties{Name: name, Null: true}
}

// IsNull reports whether the properties are entirely unspecified.
func (lp LayerProperties) IsNull() bool {
	return lp.Null && lp.Name == ""
}

func (lp LayerProperties) String() string {
	if lp.Null {
		return lp.Name
	}
	ld := fmt.Sprintf("%d/%d", lp.Layer, lp.Datatype)
	if lp.Name == "" {
		return ld
	}
	return lp.Name + " (" + ld + ")"
}

// ParseLayerProperties reads the forms "1/0", "1", "NAME (1/0)" and "NAME".
func ParseLayerProperties(s string) (LayerProperties, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LayerProperties{Null: true}, nil
	}
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return LayerProperties{}, fmt.Errorf("layout: invalid layer specification %q", s)
		}
		lp, err := parseLayerDatatype(strings.TrimSpace(s[open+1 : len(s)-1]))
		if err != nil {
			return LayerProperties{}, err
		}
		lp.Name = strings.TrimSpace(s[:open])
		return lp, nil
	}
	if lp, err := parseLayerDatatype(s); err == nil {
		return lp, nil
	}
	return NamedLayer(s), nil
}

func parseLayerDatatype(s string) (LayerProperties, error) {
	l, d, found := strings.Cut(s, "/")
	layer, err := strconv.Atoi(strings.TrimSpace(l))
	if err != nil {
		return LayerProperties{}, fmt.Errorf("layout: invalid layer number in %q: %w", s, err)
	}
	lp := LayerProperties{Layer: layer}
	if found {
		dt, err := strconv.Atoi(strings.TrimSpace(d))
		if err != nil {
			return LayerProperties{}, fmt.Errorf("layout: invalid datatype in %q: %w", s, err)
		}
		lp.Datatype = dt
	}
	return lp, nil
}

// layerTable provides lookup of layers by index or by properties.
type layerTable struct {
	byIndex []LayerProperties
	byName  map[string]int
	byLD    map[[2]int]int
}

func newLayerTable() layerTable {
	return layerTable{
		byName: make(map[string]int),
		byLD:   make(map[[2]int]int),
	}
}

func (lt *layerTable) insert(lp LayerProperties) int {
	idx := len(lt.byIndex)
	lt.byIndex = append(lt.byIndex, lp)
	if lp.Name != "" {
		if _, ok := lt.byName[lp.Name]; !ok {
			lt.byName[lp.Name] = idx
		}
	}
	if !lp.Null {
		k := [2]int{lp.Layer, lp.Datatype}
		if _, ok := lt.byLD[k]; !ok {
			lt.byLD[k] = idx
		}
	}
	return idx
}

func (lt *layerTable) find(lp LayerProperties) (int, bool) {
	if !lp.Null {
		idx, ok := lt.byLD[[2]int{lp.Layer, lp.Datatype}]
		return idx, ok
	}
	if lp.Name != "" {
		idx, ok := lt.byName[lp.Name]
		return idx, ok
	}
	return 0, false
}
