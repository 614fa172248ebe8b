package connectivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectSymmetric(t *testing.T) {
	c := New()
	c.Connect(1)
	c.ConnectLayers(1, 2)
	c.ConnectLayers(2, 3)

	tests := []struct {
		a, b int
		want bool
	}{
		{1, 1, true},
		{1, 2, true},
		{2, 1, true},
		{3, 2, true},
		{2, 2, false},
		{1, 3, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Interacts(tt.a, tt.b), "%d-%d", tt.a, tt.b)
	}

	assert.Equal(t, []int{1, 2, 3}, c.Layers())
	assert.Equal(t, []int{1, 2}, c.ConnectedLayers(1))
	assert.Equal(t, []int{1, 3}, c.ConnectedLayers(2))
	assert.Empty(t, c.ConnectedLayers(7))
}

func TestGlobalNets(t *testing.T) {
	c := New()
	vss := c.ConnectGlobal(5, "VSS")
	vdd := c.ConnectGlobal(6, "VDD")
	again := c.ConnectGlobal(7, "VSS")

	assert.Equal(t, GlobalID(0), vss)
	assert.Equal(t, GlobalID(1), vdd)
	assert.Equal(t, vss, again)
	assert.Equal(t, 2, c.GlobalNetCount())
	assert.Equal(t, "VDD", c.GlobalNetName(vdd))
	assert.Equal(t, "", c.GlobalNetName(9))

	id, ok := c.LookupGlobalNet("VSS")
	assert.True(t, ok)
	assert.Equal(t, vss, id)
	_, ok = c.LookupGlobalNet("GND")
	assert.False(t, ok)

	assert.Equal(t, []GlobalID{vss}, c.GlobalNets(5))
	assert.Equal(t, []int{5, 6, 7}, c.Layers())
	assert.False(t, c.Interacts(5, 5))
}
