package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/l2n"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/region"
)

var (
	probeLayer string
	probeX     float64
	probeY     float64
)

var probeCmd = &cobra.Command{
	Use:   "probe <database>",
	Short: "Find the net at a point",
	Long: `Look up the net whose geometry on a layer covers a point given in
micrometers. The net is reported in the topmost circuit it reaches
through pins.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringVarP(&probeLayer, "layer", "l", "", "layer name (required)")
	probeCmd.Flags().Float64Var(&probeX, "x", 0, "x coordinate in micrometers")
	probeCmd.Flags().Float64Var(&probeY, "y", 0, "y coordinate in micrometers")
	probeCmd.MarkFlagRequired("layer")
}

func runProbe(cmd *cobra.Command, args []string) error {
	l, err := openDatabase(args[0])
	if err != nil {
		return err
	}
	defer l.Close()

	r, err := layerByName(l, probeLayer)
	if err != nil {
		return err
	}

	net, err := l.ProbeNet(r, geom.DPoint{X: probeX, Y: probeY})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if net == nil {
		fmt.Fprintf(out, "No net at %g,%g on %s\n", probeX, probeY, probeLayer)
		return nil
	}
	fmt.Fprintf(out, "Circuit: %s\n", net.Circuit().Name())
	fmt.Fprintf(out, "Net: %s\n", net.ExpandedName())
	if verbose {
		fmt.Fprintf(out, "Terminals: %d\n", len(net.Terminals()))
		fmt.Fprintf(out, "Subcircuit pins: %d\n", len(net.SubcircuitPins()))
	}
	return nil
}

func layerByName(l *l2n.LayoutToNetlist, name string) (*region.Region, error) {
	r, ok := l.LayerByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", l2n.ErrUnknownLayer, name)
	}
	return r, nil
}
