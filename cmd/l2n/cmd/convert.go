package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/l2n"
	"github.com/OpenTraceLab/OpenTraceLVS/pkg/netlist"
)

var (
	convertShort       bool
	convertNetlistOnly bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Rewrite a database",
	Long: `Read a database and write it again, in the long or short keyword form.
With --netlist-only the geometry, placements and connectivity are dropped.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().BoolVarP(&convertShort, "short", "s", false, "write one-letter keywords")
	convertCmd.Flags().BoolVar(&convertNetlistOnly, "netlist-only", false, "write the netlist without layout")
}

func runConvert(cmd *cobra.Command, args []string) error {
	in, outPath := args[0], args[1]

	var write func(f *os.File) error
	if convertNetlistOnly {
		f, err := os.Open(in)
		if err != nil {
			return fmt.Errorf("error opening database: %w", err)
		}
		nl := netlist.New()
		err = l2n.Read(f, in, nl)
		f.Close()
		if err != nil {
			return fmt.Errorf("error reading database: %w", err)
		}
		write = func(f *os.File) error { return l2n.WriteNetlist(f, nl, convertShort) }
	} else {
		l, err := openDatabase(in)
		if err != nil {
			return err
		}
		defer l.Close()
		write = func(f *os.File) error { return l2n.Write(f, l, convertShort) }
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("error creating output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", outPath, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
	}
	return nil
}
