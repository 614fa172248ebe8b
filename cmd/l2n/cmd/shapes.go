package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
)

var (
	shapesCircuit   string
	shapesNet       string
	shapesLayer     string
	shapesRecursive bool
)

var shapesCmd = &cobra.Command{
	Use:   "shapes <database>",
	Short: "List the geometry of a net",
	Long: `Print the polygons of a net on one layer in database units. Nets are
named as in the database; anonymous nets are addressed as $<id>.
With --recursive the shapes of subcircuit nets joined to it are included.`,
	Args: cobra.ExactArgs(1),
	RunE: runShapes,
}

func init() {
	rootCmd.AddCommand(shapesCmd)
	shapesCmd.Flags().StringVar(&shapesCircuit, "circuit", "", "circuit name (required)")
	shapesCmd.Flags().StringVar(&shapesNet, "net", "", "net name (required)")
	shapesCmd.Flags().StringVarP(&shapesLayer, "layer", "l", "", "layer name (required)")
	shapesCmd.Flags().BoolVarP(&shapesRecursive, "recursive", "r", false, "include subcircuit geometry")
	shapesCmd.MarkFlagRequired("circuit")
	shapesCmd.MarkFlagRequired("net")
	shapesCmd.MarkFlagRequired("layer")
}

func runShapes(cmd *cobra.Command, args []string) error {
	l, err := openDatabase(args[0])
	if err != nil {
		return err
	}
	defer l.Close()

	c := l.Netlist().CircuitByName(shapesCircuit)
	if c == nil {
		return fmt.Errorf("no such circuit: %s", shapesCircuit)
	}
	net := findNet(c, shapesNet)
	if net == nil {
		return fmt.Errorf("no such net in %s: %s", c.Name(), shapesNet)
	}
	r, err := layerByName(l, shapesLayer)
	if err != nil {
		return err
	}

	shapes, err := l.ShapesOfNet(net, r, shapesRecursive)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	polys := shapes.Sorted()
	fmt.Fprintf(out, "%s.%s on %s: %d shape(s)\n", c.Name(), net.ExpandedName(), shapesLayer, len(polys))
	for _, p := range polys {
		fmt.Fprintf(out, "  %s\n", p)
	}
	return nil
}

func findNet(c *netlist.Circuit, name string) *netlist.Net {
	if n := c.NetByName(name); n != nil {
		return n
	}
	if id, ok := strings.CutPrefix(name, "$"); ok {
		if i, err := strconv.Atoi(id); err == nil {
			return c.NetByID(i)
		}
	}
	return nil
}
