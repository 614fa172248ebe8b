package l2n

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
)

func TestQuoteIfNeeded(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"VDD", "VDD"},
		{"$1", "$1"},
		{"a b", `"a b"`},
		{"", `""`},
		{`say "hi"`, `"say \"hi\""`},
		{"x(1)", `"x(1)"`},
		{"#3", `"#3"`},
		{"M1 (1/0)", `"M1 (1/0)"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteIfNeeded(tt.in))

			tok, err := newTokenizer(strings.NewReader(quoteIfNeeded(tt.in)), "q")
			require.NoError(t, err)
			got, err := tok.readWordOrQuoted()
			require.NoError(t, err)
			assert.Equal(t, tt.in, got)
			assert.True(t, tok.atEnd())
		})
	}
}

func TestTokenizer(t *testing.T) {
	src := "# comment\nnet(1 'a b'\n  R(M1 * -5 10 20))\n"
	tok, err := newTokenizer(strings.NewReader(src), "t")
	require.NoError(t, err)

	assert.True(t, tok.testKey(kwNet))
	br := tok.openBrace()
	assert.True(t, br.has)
	n, err := tok.readInt()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	name, err := tok.readWordOrQuoted()
	require.NoError(t, err)
	assert.Equal(t, "a b", name)

	assert.Equal(t, 3, tok.line())
	assert.True(t, br.more())
	assert.True(t, tok.testKey(kwRect))
	assert.True(t, tok.test("("))
	layer, err := tok.readWord()
	require.NoError(t, err)
	assert.Equal(t, "M1", layer)
	assert.True(t, tok.test("*"))
	c, err := tok.readCoord()
	require.NoError(t, err)
	assert.Equal(t, int64(-5), c)
	_, err = tok.readDouble()
	require.NoError(t, err)
	_, err = tok.readCoord()
	require.NoError(t, err)
	require.NoError(t, tok.expect(")"))
	assert.False(t, br.more())
	require.NoError(t, br.done())
	assert.True(t, tok.atEnd())

	_, err = tok.readWord()
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
		line int
	}{
		{
			name: "unknown top level keyword",
			src:  "bogus(1)\n",
			msg:  "Invalid keyword",
			line: 1,
		},
		{
			name: "unknown keyword in circuit",
			src:  "circuit(TOP\n net(1)\n foo(1)\n)\n",
			msg:  "Invalid keyword inside circuit definition (net, pin, device or circuit expected)",
			line: 3,
		},
		{
			name: "class defined twice",
			src:  "class(X MOS3)\nclass(X MOS3)\n",
			msg:  "Device class must be defined before being used in device",
			line: 2,
		},
		{
			name: "unknown template",
			src:  "class(X NOPE)\n",
			msg:  "Invalid device class template: NOPE",
			line: 1,
		},
		{
			name: "pin on unknown net",
			src:  "circuit(TOP\n pin(A 3)\n)\n",
			msg:  "Not a valid net ID: 3",
			line: 2,
		},
		{
			name: "unknown device abstract",
			src:  "circuit(TOP\n device(D1 NOPE)\n)\n",
			msg:  "Not a valid device abstract name: NOPE",
			line: 2,
		},
		{
			name: "unknown subcircuit reference",
			src:  "circuit(TOP\n circuit($1 NOPE)\n)\n",
			msg:  "Not a valid device circuit name: NOPE",
			line: 2,
		},
		{
			name: "placement after pins",
			src:  "circuit(A\n net(1)\n pin(X 1)\n)\ncircuit(B\n net(1)\n circuit($1 A pin(X 1) location(0 0))\n)\n",
			msg:  "location key must come before pin key in subcircuit definition",
			line: 7,
		},
		{
			name: "unknown subcircuit pin",
			src:  "circuit(A)\ncircuit(B\n net(1)\n circuit($1 A pin(Y 1))\n)\n",
			msg:  "Not a valid pin name: Y for circuit: A",
			line: 4,
		},
		{
			name: "unknown keyword in device abstract",
			src:  "device(DA RX\n foo(1)\n)\n",
			msg:  "Invalid keyword inside device abstract definition (terminal expected)",
			line: 2,
		},
		{
			name: "unknown geometry",
			src:  "circuit(TOP\n net(1 foo(1))\n)\n",
			msg:  "Invalid keyword inside net or terminal definition (polygon or rect expected)",
			line: 2,
		},
		{
			name: "unknown keyword in device",
			src:  "device(DA RX terminal(A))\ncircuit(TOP\n device(D1 DA\n  foo(1))\n)\n",
			msg:  "Invalid keyword inside device definition (location, param or terminal expected)",
			line: 4,
		},
		{
			name: "unknown terminal",
			src:  "class(M MOS3)\ndevice(DA M terminal(S))\ncircuit(TOP net(1) device(D1 DA terminal(X 1)))\n",
			msg:  "Not a valid terminal name: X for device class: M",
			line: 3,
		},
		{
			name: "terminal of a fixed class",
			src:  "class(M MOS3)\ndevice(DA M\n terminal(Q))\n",
			msg:  "Not a valid terminal name: Q for device class: M",
			line: 3,
		},
		{
			name: "missing closing brace",
			src:  "circuit(TOP\n net(1)\n",
			msg:  "Expected ')'",
			line: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Read(strings.NewReader(tt.src), "test.l2n", netlist.New())
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.msg, pe.Msg)
			assert.Equal(t, tt.line, pe.Line)
			assert.Equal(t, "test.l2n", pe.Path)
			assert.Contains(t, err.Error(), " in line: ")
		})
	}
}

func TestReadGenericDeviceClass(t *testing.T) {
	src := `
device(DA RX
  terminal(A)
  terminal(B)
)
circuit(TOP
  net(1 name(IN))
  net(2)
  pin(IN 1)
  device(R1 DA
    location(10 20)
    param(R 100)
    terminal(A 1)
    terminal(B 2)
  )
)
`
	nl := netlist.New()
	require.NoError(t, Read(strings.NewReader(src), "generic", nl))

	dc := nl.DeviceClassByName("RX")
	require.NotNil(t, dc)
	assert.Empty(t, dc.TemplateName())
	require.Len(t, dc.Terminals(), 2)

	top := nl.CircuitByName("TOP")
	require.NotNil(t, top)
	d := top.DeviceByName("R1")
	require.NotNil(t, d)
	assert.Equal(t, 100.0, d.ParameterByName("R"))
	assert.Equal(t, geom.DPoint{X: 10, Y: 20}, d.Position())
	assert.Same(t, top.NetByName("IN"), d.NetForTerminal(0))
	assert.Same(t, top.NetForPin(0), d.NetForTerminal(0))
	assert.NotNil(t, d.NetForTerminal(1))
}

func TestWriteRequiresExtraction(t *testing.T) {
	f := newHierFixture()
	l, _, _ := f.newL2N(t)
	assert.ErrorIs(t, Write(&bytes.Buffer{}, l, false), ErrNotExtracted)
}

func TestRoundTripHierarchy(t *testing.T) {
	for _, short := range []bool{false, true} {
		name := "long"
		if short {
			name = "short"
		}
		t.Run(name, func(t *testing.T) {
			f := newHierFixture()
			src, _, _ := f.extract(t)

			var buf bytes.Buffer
			require.NoError(t, Write(&buf, src, short))
			text := buf.String()
			assert.True(t, strings.HasPrefix(text, formatHeader+"\n"))
			if short {
				assert.Contains(t, text, "X(SUB")
				assert.NotContains(t, text, "circuit(")
			} else {
				assert.Contains(t, text, "circuit(SUB")
				assert.Contains(t, text, "layer(M1 \"M1 (1/0)\")")
			}

			l, err := NewStandalone()
			require.NoError(t, err)
			defer l.Close()
			require.NoError(t, ReadInto(strings.NewReader(text), "rt.l2n", l))
			assert.True(t, l.IsExtracted())
			assert.InDelta(t, 0.001, l.InternalLayout().DBU(), 1e-15)

			nl := l.Netlist()
			sub := nl.CircuitByName("SUB")
			require.NotNil(t, sub)
			require.Len(t, sub.Pins(), 1)
			assert.Equal(t, "A", sub.Pins()[0].Name())
			assert.Equal(t, "A", sub.NetForPin(0).Name())

			top := nl.CircuitByName("TOP")
			require.NotNil(t, top)
			require.Len(t, top.Nets(), 2)
			require.Len(t, top.SubCircuits(), 2)
			right := top.SubCircuits()[1].NetForPin(0)
			require.NotNil(t, right)
			assert.InDelta(t, 0.1, top.SubCircuits()[1].Trans().Disp.X, 1e-12)

			m1, ok := l.LayerByName("M1")
			require.True(t, ok)
			got, err := l.ProbeNetDBU(m1, geom.Point{X: 103, Y: 5})
			require.NoError(t, err)
			assert.Same(t, right, got)

			shapes, err := l.ShapesOfNet(right, m1, true)
			require.NoError(t, err)
			assert.Equal(t, 2, shapes.Count())

			// the same text, read without layout
			plain := netlist.New()
			require.NoError(t, Read(strings.NewReader(text), "rt.l2n", plain))
			require.NotNil(t, plain.CircuitByName("TOP"))
			assert.Len(t, plain.CircuitByName("TOP").SubCircuits(), 2)

			assert.ErrorIs(t, ReadInto(strings.NewReader(text), "rt.l2n", l), ErrAlreadyExtracted)
		})
	}
}

func TestRoundTripDevices(t *testing.T) {
	src := extractMOS(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, src, false))
	text := buf.String()
	assert.Contains(t, text, "class(NMOS MOS3)")

	l, err := NewStandalone()
	require.NoError(t, err)
	defer l.Close()
	require.NoError(t, ReadInto(strings.NewReader(text), "mos.l2n", l))

	nl := l.Netlist()
	dc := nl.DeviceClassByName("NMOS")
	require.NotNil(t, dc)
	assert.Equal(t, "MOS3", dc.TemplateName())
	require.Len(t, nl.DeviceAbstracts(), 1)
	da := nl.DeviceAbstracts()[0]
	for _, td := range dc.Terminals() {
		assert.NotZero(t, da.ClusterIDForTerminal(td.ID), "terminal %s", td.Name)
	}

	top := nl.CircuitByName("TOP")
	require.NotNil(t, top)
	require.Len(t, top.Devices(), 1)
	d := top.Devices()[0]
	assert.Same(t, da, d.Abstract())
	assert.InDelta(t, 0.02, d.ParameterByName("W"), 1e-9)
	assert.InDelta(t, 0.005, d.ParameterByName("L"), 1e-9)
	assert.InDelta(t, 0.012, d.Position().X, 1e-9)

	seen := make(map[*netlist.Net]bool)
	for _, td := range dc.Terminals() {
		n := d.NetForTerminal(td.ID)
		require.NotNil(t, n, "terminal %s", td.Name)
		assert.False(t, seen[n])
		seen[n] = true
	}

	// writing the read-in result again gives the same text
	var again bytes.Buffer
	require.NoError(t, Write(&again, l, false))
	assert.Equal(t, text, again.String())

	// the netlist alone keeps class, parameters and terminal nets
	plain := netlist.New()
	require.NoError(t, Read(strings.NewReader(text), "mos.l2n", plain))
	pdc := plain.DeviceClassByName("NMOS")
	require.NotNil(t, pdc)
	assert.Equal(t, "MOS3", pdc.TemplateName())
	ptop := plain.CircuitByName("TOP")
	require.NotNil(t, ptop)
	require.Len(t, ptop.Devices(), 1)
	pd := ptop.Devices()[0]
	assert.Same(t, pdc, pd.Class())
	for _, pdef := range dc.Parameters() {
		assert.InDelta(t, d.ParameterByName(pdef.Name), pd.ParameterByName(pdef.Name), 1e-12, "parameter %s", pdef.Name)
	}
	for _, td := range dc.Terminals() {
		n := pd.NetForTerminal(td.ID)
		require.NotNil(t, n, "terminal %s", td.Name)
		assert.Equal(t, d.NetForTerminal(td.ID).ID(), n.ID(), "terminal %s", td.Name)
	}
}

func TestReadUnboundSubcircuitPin(t *testing.T) {
	src := `
top(B)
unit(0.001)
layer(M1)
circuit(A
  net(1 name(Y) rect(M1 0 0 10 10))
  pin(Y 1)
  pin(X)
)
circuit(B
  net(1 rect(M1 0 0 5 5))
  net(2 rect(M1 20 0 25 5))
  circuit(I1 A
    location(0 0)
    pin(Y 1)
    pin(X 2)
  )
)
`
	l, err := NewStandalone()
	require.NoError(t, err)
	defer l.Close()
	require.NoError(t, ReadInto(strings.NewReader(src), "unbound.l2n", l))

	nl := l.Netlist()
	a := nl.CircuitByName("A")
	b := nl.CircuitByName("B")
	require.NotNil(t, a)
	require.NotNil(t, b)
	pinX := a.PinByName("X")
	pinY := a.PinByName("Y")
	require.NotNil(t, pinX)
	require.NotNil(t, pinY)
	assert.Nil(t, a.NetForPin(pinX.ID()))

	require.Len(t, b.SubCircuits(), 1)
	sc := b.SubCircuits()[0]
	bound := sc.NetForPin(pinY.ID())
	unbound := sc.NetForPin(pinX.ID())
	require.NotNil(t, bound)
	require.NotNil(t, unbound)
	assert.NotSame(t, bound, unbound)

	hc, err := l.NetClusters()
	require.NoError(t, err)
	ci, ok := b.CellIndex()
	require.True(t, ok)
	cc := hc.ClustersPerCell(ci)
	assert.Len(t, cc.Connections(bound.ClusterID()), 1)
	assert.Empty(t, cc.Connections(unbound.ClusterID()))

	plain := netlist.New()
	require.NoError(t, Read(strings.NewReader(src), "unbound.l2n", plain))
	psc := plain.CircuitByName("B").SubCircuits()[0]
	assert.NotNil(t, psc.NetForPin(pinX.ID()))
}

func TestWriteNetlistOmitsLayout(t *testing.T) {
	f := newHierFixture()
	src, _, _ := f.extract(t)

	var buf bytes.Buffer
	require.NoError(t, WriteNetlist(&buf, src.Netlist(), false))
	text := buf.String()
	assert.NotContains(t, text, "layer(")
	assert.NotContains(t, text, "rect(")
	assert.NotContains(t, text, "location(")

	nl := netlist.New()
	require.NoError(t, Read(strings.NewReader(text), "plain", nl))
	top := nl.CircuitByName("TOP")
	require.NotNil(t, top)
	require.Len(t, top.SubCircuits(), 2)
	assert.NotSame(t, top.SubCircuits()[0].NetForPin(0), top.SubCircuits()[1].NetForPin(0))
}

func TestWriteNetlistNeedsAbstracts(t *testing.T) {
	nl := netlist.New()
	dc, _ := netlist.NewDeviceClassFromTemplate("RES", "R")
	require.NoError(t, nl.AddDeviceClass(dc))
	c := netlist.NewCircuit("TOP")
	nl.AddCircuit(c)
	c.AddDevice(netlist.NewDevice(dc, "R1"))

	err := WriteNetlist(&bytes.Buffer{}, nl, false)
	require.Error(t, err)
	var pe *ParseError
	assert.False(t, errors.As(err, &pe))
}
