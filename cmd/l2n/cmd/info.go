package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/l2n"
)

var (
	outputJSON bool
)

// DatabaseInfo is the structured summary printed by info --json
type DatabaseInfo struct {
	Top           string        `json:"top"`
	DBU           float64       `json:"dbu"`
	Layers        []string      `json:"layers"`
	DeviceClasses []string      `json:"device_classes,omitempty"`
	Circuits      []CircuitInfo `json:"circuits"`
}

// CircuitInfo summarizes one circuit
type CircuitInfo struct {
	Name        string   `json:"name"`
	Pins        []string `json:"pins,omitempty"`
	Nets        int      `json:"nets"`
	Devices     int      `json:"devices"`
	SubCircuits int      `json:"subcircuits"`
}

var infoCmd = &cobra.Command{
	Use:   "info <database>",
	Short: "Show database summary",
	Long: `Display the layers, device classes and circuits of a stored
layout-to-netlist database. Circuits are listed bottom-up.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
}

func runInfo(cmd *cobra.Command, args []string) error {
	l, err := openDatabase(args[0])
	if err != nil {
		return err
	}
	defer l.Close()

	info := collectInfo(l)
	out := cmd.OutOrStdout()

	if outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(out, "Database: %s\n", args[0])
	fmt.Fprintf(out, "Top cell: %s\n", info.Top)
	fmt.Fprintf(out, "Database unit: %g um\n", info.DBU)
	fmt.Fprintf(out, "Layers: %d\n", len(info.Layers))
	for _, name := range info.Layers {
		fmt.Fprintf(out, "  %s\n", name)
	}
	if len(info.DeviceClasses) > 0 {
		fmt.Fprintf(out, "Device classes: %d\n", len(info.DeviceClasses))
		for _, name := range info.DeviceClasses {
			fmt.Fprintf(out, "  %s\n", name)
		}
	}
	fmt.Fprintf(out, "Circuits: %d\n", len(info.Circuits))
	for _, c := range info.Circuits {
		fmt.Fprintf(out, "  %-20s nets=%d devices=%d subcircuits=%d pins=%d\n",
			c.Name, c.Nets, c.Devices, c.SubCircuits, len(c.Pins))
		if verbose && len(c.Pins) > 0 {
			fmt.Fprintf(out, "    pins: %v\n", c.Pins)
		}
	}
	return nil
}

func collectInfo(l *l2n.LayoutToNetlist) DatabaseInfo {
	ly := l.InternalLayout()
	info := DatabaseInfo{DBU: ly.DBU()}
	if top, ok := l.InternalTopCell(); ok {
		info.Top = ly.Cell(top).Name()
	}

	for _, name := range l.LayerNames() {
		info.Layers = append(info.Layers, name)
	}
	sort.Strings(info.Layers)

	nl := l.Netlist()
	if nl == nil {
		return info
	}
	for _, dc := range nl.DeviceClasses() {
		info.DeviceClasses = append(info.DeviceClasses, dc.Name())
	}
	for _, c := range nl.BottomUp() {
		ci := CircuitInfo{
			Name:        c.Name(),
			Nets:        len(c.Nets()),
			Devices:     len(c.Devices()),
			SubCircuits: len(c.SubCircuits()),
		}
		for _, p := range c.Pins() {
			ci.Pins = append(ci.Pins, p.ExpandedName())
		}
		info.Circuits = append(info.Circuits, ci)
	}
	return info
}
