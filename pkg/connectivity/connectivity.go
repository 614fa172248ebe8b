// Package connectivity describes which layers conduct into which: intra-layer
// connections, inter-layer connections and connections of a layer to a named
// global net. The relation is symmetric. Transitive closure is left to the
// clustering engine.
package connectivity

import "sort"

// GlobalID identifies a global net. Ids are dense, starting at 0, in
// registration order.
type GlobalID int

// Connectivity is the layer connection relation. The zero value is not
// usable; call New.
type Connectivity struct {
	edges   map[int]map[int]bool
	globals map[int]map[GlobalID]bool

	globalNames []string
	globalIDs   map[string]GlobalID
}

// New creates an empty connectivity.
func New() *Connectivity {
	return &Connectivity{
		edges:     make(map[int]map[int]bool),
		globals:   make(map[int]map[GlobalID]bool),
		globalIDs: make(map[string]GlobalID),
	}
}

func (c *Connectivity) addEdge(a, b int) {
	if c.edges[a] == nil {
		c.edges[a] = make(map[int]bool)
	}
	c.edges[a][b] = true
}

// Connect makes shapes on a layer connect to each other.
func (c *Connectivity) Connect(layer int) {
	c.addEdge(layer, layer)
}

// ConnectLayers makes shapes on a connect to shapes on b and vice versa.
func (c *Connectivity) ConnectLayers(a, b int) {
	c.addEdge(a, b)
	c.addEdge(b, a)
}

// ConnectGlobal connects a layer to the global net with the given name and
// returns the global net id.
func (c *Connectivity) ConnectGlobal(layer int, name string) GlobalID {
	id := c.GlobalNetID(name)
	if c.globals[layer] == nil {
		c.globals[layer] = make(map[GlobalID]bool)
	}
	c.globals[layer][id] = true
	if c.edges[layer] == nil {
		c.edges[layer] = make(map[int]bool)
	}
	return id
}

// GlobalNetID returns the id for a global net name, registering it if needed.
func (c *Connectivity) GlobalNetID(name string) GlobalID {
	if id, ok := c.globalIDs[name]; ok {
		return id
	}
	id := GlobalID(len(c.globalNames))
	c.globalNames = append(c.globalNames, name)
	c.globalIDs[name] = id
	return id
}

// LookupGlobalNet returns the id of a registered global net.
func (c *Connectivity) LookupGlobalNet(name string) (GlobalID, bool) {
	id, ok := c.globalIDs[name]
	return id, ok
}

// GlobalNetName returns the name of a global net.
func (c *Connectivity) GlobalNetName(id GlobalID) string {
	if id < 0 || int(id) >= len(c.globalNames) {
		return ""
	}
	return c.globalNames[id]
}

// GlobalNetCount returns the number of registered global nets.
func (c *Connectivity) GlobalNetCount() int { return len(c.globalNames) }

// Layers returns every layer that takes part in a connection, sorted.
func (c *Connectivity) Layers() []int {
	seen := make(map[int]bool)
	for a, bs := range c.edges {
		seen[a] = true
		for b := range bs {
			seen[b] = true
		}
	}
	for l := range c.globals {
		seen[l] = true
	}
	return sortedKeys(seen)
}

// ConnectedLayers returns the layers a layer connects to, sorted.
func (c *Connectivity) ConnectedLayers(layer int) []int {
	return sortedKeys(c.edges[layer])
}

// Interacts reports whether shapes on a and b connect.
func (c *Connectivity) Interacts(a, b int) bool {
	return c.edges[a][b]
}

// GlobalNets returns the global nets a layer connects to, sorted.
func (c *Connectivity) GlobalNets(layer int) []GlobalID {
	ids := make([]GlobalID, 0, len(c.globals[layer]))
	for id := range c.globals[layer] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
