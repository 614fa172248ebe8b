package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/l2n"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/layout"
)

// writeDatabase extracts a TOP cell with two labelled SUB instances and
// stores the result in dir.
func writeDatabase(t *testing.T, dir string) string {
	t.Helper()
	ly := layout.New()
	m1 := ly.InsertLayer(layout.LayerProperties{Layer: 1, Name: "M1"})
	lbl := ly.InsertLayer(layout.LayerProperties{Layer: 2, Name: "LBL"})
	sub := ly.AddCell("SUB")
	sub.InsertBox(m1, geom.Box{Left: 0, Bottom: 0, Right: 10, Top: 10})
	sub.InsertText(lbl, "A", geom.Point{X: 5, Y: 5})
	top := ly.AddCell("TOP")
	for _, x := range []int64{0, 100} {
		top.InsertInstance(layout.Instance{Cell: sub.Index(), Trans: geom.NewDisp(geom.Vector{X: x})})
		top.InsertBox(m1, geom.Box{Left: x + 8, Bottom: 0, Right: x + 30, Top: 10})
	}

	l, err := l2n.New(layout.NewRecursiveShapeIterator(ly, top.Index(), m1))
	require.NoError(t, err)
	defer l.Close()
	rm1, err := l.MakePolygonLayer(m1, "M1")
	require.NoError(t, err)
	rlbl, err := l.MakeTextLayer(lbl, "LBL")
	require.NoError(t, err)
	require.NoError(t, l.Connect(rm1))
	require.NoError(t, l.ConnectLayers(rm1, rlbl))
	require.NoError(t, l.ExtractNetlist(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, l2n.Write(&buf, l, false))
	path := filepath.Join(dir, "chip.l2n")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	verbose, configPath, outputJSON = false, "", false
	probeLayer, probeX, probeY = "", 0, 0
	shapesCircuit, shapesNet, shapesLayer, shapesRecursive = "", "", "", false
	convertShort, convertNetlistOnly = false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	path := writeDatabase(t, t.TempDir())

	out, err := run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Top cell: TOP")
	assert.Contains(t, out, "Circuits: 2")

	out, err = run(t, "info", "--json", path)
	require.NoError(t, err)
	var info DatabaseInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "TOP", info.Top)
	assert.ElementsMatch(t, []string{"M1", "LBL"}, info.Layers)
	require.Len(t, info.Circuits, 2)
	assert.Equal(t, "SUB", info.Circuits[0].Name)
	assert.Equal(t, []string{"A"}, info.Circuits[0].Pins)
	assert.Equal(t, 2, info.Circuits[1].SubCircuits)
}

func TestProbe(t *testing.T) {
	path := writeDatabase(t, t.TempDir())

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr error
	}{
		{"hit", []string{"probe", path, "--layer", "M1", "--x", "0.103", "--y", "0.005"}, "Circuit: TOP", nil},
		{"miss", []string{"probe", path, "--layer", "M1", "--x", "0.05", "--y", "0.05"}, "No net", nil},
		{"unknown layer", []string{"probe", path, "--layer", "M9"}, "", l2n.ErrUnknownLayer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestShapes(t *testing.T) {
	path := writeDatabase(t, t.TempDir())

	out, err := run(t, "shapes", path, "--circuit", "SUB", "--net", "A", "--layer", "M1")
	require.NoError(t, err)
	assert.Contains(t, out, "SUB.A on M1: 1 shape(s)")
	assert.Contains(t, out, "(0,0;0,10;10,10;10,0)")

	out, err = run(t, "shapes", path, "--circuit", "TOP", "--net", "$1", "--layer", "M1", "--recursive")
	require.NoError(t, err)
	assert.Contains(t, out, "TOP.$1 on M1: 2 shape(s)")

	_, err = run(t, "shapes", path, "--circuit", "NOPE", "--net", "A", "--layer", "M1")
	assert.ErrorContains(t, err, "no such circuit")
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	path := writeDatabase(t, dir)

	short := filepath.Join(dir, "short.l2n")
	_, err := run(t, "convert", path, short, "--short")
	require.NoError(t, err)
	out, err := run(t, "info", short)
	require.NoError(t, err)
	assert.Contains(t, out, "Circuits: 2")

	plain := filepath.Join(dir, "plain.l2n")
	_, err = run(t, "convert", path, plain, "--netlist-only")
	require.NoError(t, err)
	data, err := os.ReadFile(plain)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "rect(")
	assert.Contains(t, string(data), "circuit(SUB")

	_, err = run(t, "info", filepath.Join(dir, "missing.l2n"))
	assert.ErrorContains(t, err, "error opening database")
}
