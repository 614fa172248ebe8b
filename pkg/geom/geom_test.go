package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxBasics(t *testing.T) {
	b := NewBox(Point{10, 20}, Point{0, 0})
	assert.Equal(t, Box{0, 0, 10, 20}, b)
	assert.Equal(t, int64(10), b.Width())
	assert.Equal(t, int64(20), b.Height())
	assert.Equal(t, Point{5, 10}, b.Center())
	assert.Equal(t, "(0,0;10,20)", b.String())

	assert.True(t, EmptyBox().IsEmpty())
	assert.Equal(t, "()", EmptyBox().String())
	assert.Equal(t, b, EmptyBox().Add(b))
	assert.Equal(t, Point{-1, -1}, Box{-2, -2, -1, -1}.Center())
}

func TestBoxTouches(t *testing.T) {
	a := Box{0, 0, 10, 10}
	tests := []struct {
		name string
		b    Box
		want bool
	}{
		{"overlap", Box{5, 5, 15, 15}, true},
		{"edge", Box{10, 0, 20, 10}, true},
		{"corner", Box{10, 10, 20, 20}, true},
		{"apart", Box{11, 0, 20, 10}, false},
		{"empty", EmptyBox(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Touches(tt.b))
			assert.Equal(t, tt.want, tt.b.Touches(a))
		})
	}
}

func TestBoxTransformed(t *testing.T) {
	b := Box{0, 0, 10, 20}
	r90 := NewTrans(1, 90, false, DVector{100, 0})
	assert.Equal(t, Box{80, 0, 100, 10}, b.Transformed(r90))
	assert.True(t, EmptyBox().Transformed(r90).IsEmpty())
	assert.True(t, WorldBox().Transformed(r90).IsWorld())
}

func TestTransApply(t *testing.T) {
	tests := []struct {
		name string
		tr   Trans
		in   Point
		want Point
	}{
		{"unity", Unity(), Point{3, 4}, Point{3, 4}},
		{"zero value", Trans{}, Point{3, 4}, Point{3, 4}},
		{"disp", NewDisp(Vector{10, -5}), Point{3, 4}, Point{13, -1}},
		{"r90", NewTrans(1, 90, false, DVector{}), Point{3, 4}, Point{-4, 3}},
		{"r180", NewTrans(1, 180, false, DVector{}), Point{3, 4}, Point{-3, -4}},
		{"m0", NewTrans(1, 0, true, DVector{}), Point{3, 4}, Point{3, -4}},
		{"m90", NewTrans(1, 90, true, DVector{}), Point{3, 4}, Point{4, 3}},
		{"mag", NewTrans(2, 0, false, DVector{1, 1}), Point{3, 4}, Point{7, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tr.Apply(tt.in))
		})
	}
}

func TestTransConcatInverse(t *testing.T) {
	trs := []Trans{
		Unity(),
		NewDisp(Vector{10, 20}),
		NewTrans(1, 90, false, DVector{5, 7}),
		NewTrans(1, 270, true, DVector{-3, 11}),
		NewTrans(2, 180, true, DVector{100, 0}),
		NewTrans(0.5, 45, false, DVector{1.5, -2}),
	}
	pts := []DPoint{{0, 0}, {1, 2}, {-7, 13}}

	for i, a := range trs {
		for j, b := range trs {
			ab := a.Concat(b)
			for _, p := range pts {
				want := a.ApplyD(b.ApplyD(p))
				got := ab.ApplyD(p)
				assert.InDelta(t, want.X, got.X, 1e-9, "concat %d*%d", i, j)
				assert.InDelta(t, want.Y, got.Y, 1e-9, "concat %d*%d", i, j)
			}
		}
		assert.True(t, a.Concat(a.Inverted()).IsUnity(), "inverse %d: %v", i, a.Concat(a.Inverted()))
		assert.True(t, a.Inverted().Concat(a).IsUnity(), "inverse %d", i)
	}
}

func TestTransEqual(t *testing.T) {
	a := NewTrans(1, 90, false, DVector{1, 2})
	assert.True(t, a.Equal(NewTrans(1, 450, false, DVector{1, 2 + 1e-12})))
	assert.False(t, a.Equal(NewTrans(1, 90, true, DVector{1, 2})))
	assert.False(t, a.Equal(NewTrans(1, 90, false, DVector{1, 2.001})))
	assert.True(t, NewTrans(1, 359.99999999999, false, DVector{}).Equal(Unity()))
}

func TestTransScaled(t *testing.T) {
	tr := NewTrans(1, 90, false, DVector{1000, 2000})
	u := tr.Scaled(0.001)
	assert.InDelta(t, 1.0, u.Disp.X, 1e-12)
	assert.InDelta(t, 2.0, u.Disp.Y, 1e-12)
	assert.InDelta(t, 90.0, u.Angle, 1e-12)
	assert.False(t, u.IsMag())
	assert.Equal(t, "r90 1,2", u.String())
}

func TestPolygonNormalize(t *testing.T) {
	box := NewBoxPolygon(Box{0, 0, 10, 20})
	require.Len(t, box.Hull, 4)

	// counter-clockwise with a collinear point and a duplicate
	p := NewPolygon([]Point{{10, 0}, {10, 10}, {10, 20}, {10, 20}, {0, 20}, {0, 0}})
	assert.True(t, p.Equal(box), "%v vs %v", p, box)
	assert.True(t, p.IsBox())
	assert.Equal(t, "(0,0;0,20;10,20;10,0)", p.String())

	assert.True(t, NewPolygon([]Point{{0, 0}, {5, 5}, {10, 10}}).IsEmpty())
}

func TestPolygonMetrics(t *testing.T) {
	l := NewPolygon([]Point{{0, 0}, {0, 20}, {10, 20}, {10, 10}, {20, 10}, {20, 0}})
	assert.Equal(t, 300.0, l.Area())
	assert.Equal(t, 80.0, l.Perimeter())
	assert.False(t, l.IsBox())
	assert.Equal(t, Box{0, 0, 20, 20}, l.BBox())
}

func TestPolygonContainsAndInteracts(t *testing.T) {
	l := NewPolygon([]Point{{0, 0}, {0, 20}, {10, 20}, {10, 10}, {20, 10}, {20, 0}})
	assert.True(t, l.ContainsPoint(Point{5, 5}))
	assert.True(t, l.ContainsPoint(Point{15, 10}))
	assert.True(t, l.ContainsPoint(Point{0, 7}))
	assert.False(t, l.ContainsPoint(Point{15, 15}))

	tests := []struct {
		name string
		q    Polygon
		want bool
	}{
		{"inside", NewBoxPolygon(Box{2, 2, 3, 3}), true},
		{"surrounds", NewBoxPolygon(Box{-5, -5, 50, 50}), true},
		{"edge touch", NewBoxPolygon(Box{20, 0, 30, 5}), true},
		{"in notch", NewBoxPolygon(Box{12, 12, 18, 18}), false},
		{"notch corner", NewBoxPolygon(Box{10, 10, 18, 18}), true},
		{"apart", NewBoxPolygon(Box{21, 0, 30, 5}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Interacts(tt.q))
			assert.Equal(t, tt.want, tt.q.Interacts(l))
		})
	}
}

func TestPolygonTransformed(t *testing.T) {
	p := NewBoxPolygon(Box{0, 0, 10, 20})
	m := p.Transformed(NewTrans(1, 0, true, DVector{}))
	assert.True(t, m.Equal(NewBoxPolygon(Box{0, -20, 10, 0})))
	assert.True(t, p.Moved(Vector{5, 5}).Equal(NewBoxPolygon(Box{5, 5, 15, 25})))
}

func TestSharedEdgeLength(t *testing.T) {
	gate := NewBoxPolygon(Box{0, 0, 10, 40})
	left := NewBoxPolygon(Box{-20, 0, 0, 40})
	right := NewBoxPolygon(Box{10, 10, 30, 30})
	assert.Equal(t, 40.0, SharedEdgeLength(gate, left))
	assert.Equal(t, 20.0, SharedEdgeLength(gate, right))
	assert.Equal(t, 0.0, SharedEdgeLength(left, right))
}
