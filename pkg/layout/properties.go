package layout

import (
	"fmt"
	"sort"
	"strings"
)

// PropID identifies a property set in a PropertiesRepository. Zero means
// "no properties".
type PropID int

// Property is a single name/value pair. Values are strings or ints.
type Property struct {
	Name  int
	Value any
}

// PropertySet is a set of properties sorted by name id.
type PropertySet []Property

// PropertiesRepository interns property names and property sets.
type PropertiesRepository struct {
	names   []string
	nameIDs map[string]int

	sets   []PropertySet
	setIDs map[string]PropID
}

// NewPropertiesRepository creates an empty repository.
func NewPropertiesRepository() *PropertiesRepository {
	return &PropertiesRepository{
		nameIDs: make(map[string]int),
		setIDs:  make(map[string]PropID),
	}
}

// NameID returns the id for a property name, registering it if needed.
func (r *PropertiesRepository) NameID(name string) int {
	if id, ok := r.nameIDs[name]; ok {
		return id
	}
	id := len(r.names)
	r.names = append(r.names, name)
	r.nameIDs[name] = id
	return id
}

// LookupName returns the id for a property name without registering it.
func (r *PropertiesRepository) LookupName(name string) (int, bool) {
	id, ok := r.nameIDs[name]
	return id, ok
}

// Name returns the property name for an id.
func (r *PropertiesRepository) Name(id int) string {
	if id < 0 || id >= len(r.names) {
		return ""
	}
	return r.names[id]
}

func (ps PropertySet) key() string {
	var sb strings.Builder
	for _, p := range ps {
		fmt.Fprintf(&sb, "%d=%T:%v;", p.Name, p.Value, p.Value)
	}
	return sb.String()
}

// ID interns a property set. The empty set maps to 0.
func (r *PropertiesRepository) ID(ps PropertySet) PropID {
	if len(ps) == 0 {
		return 0
	}
	sorted := append(PropertySet(nil), ps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	k := sorted.key()
	if id, ok := r.setIDs[k]; ok {
		return id
	}
	r.sets = append(r.sets, sorted)
	id := PropID(len(r.sets))
	r.setIDs[k] = id
	return id
}

// Single is a shortcut for interning a set with one property.
func (r *PropertiesRepository) Single(name int, value any) PropID {
	return r.ID(PropertySet{{Name: name, Value: value}})
}

// Set returns the property set for an id.
func (r *PropertiesRepository) Set(id PropID) PropertySet {
	if id <= 0 || int(id) > len(r.sets) {
		return nil
	}
	return r.sets[id-1]
}

// Value looks up one property of a set.
func (r *PropertiesRepository) Value(id PropID, name int) (any, bool) {
	for _, p := range r.Set(id) {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// IntValue looks up an integer property.
func (r *PropertiesRepository) IntValue(id PropID, name int) (int, bool) {
	v, ok := r.Value(id, name)
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// StringValue looks up a string property.
func (r *PropertiesRepository) StringValue(id PropID, name int) (string, bool) {
	v, ok := r.Value(id, name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
