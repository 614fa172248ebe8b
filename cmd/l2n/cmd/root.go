package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/l2n"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "l2n",
	Short: "Layout-to-netlist database tool",
	Long: `l2n inspects and converts stored layout-to-netlist extraction results.

A database holds the connectivity, device abstracts and the hierarchical
netlist together with the geometry of every net.

Examples:
  l2n info chip.l2n                                  # Summarize circuits and layers
  l2n probe chip.l2n --layer M1 --x 1.5 --y 0.25     # Find the net at a point
  l2n shapes chip.l2n --circuit TOP --net VDD --layer M1 --recursive
  l2n convert chip.l2n chip_short.l2n --short        # Rewrite in the short format`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "engine configuration file (YAML)")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*l2n.Config, error) {
	if configPath == "" {
		return l2n.DefaultConfig(), nil
	}
	return l2n.LoadConfig(configPath)
}

// openDatabase reads a stored extraction into a standalone extractor.
func openDatabase(path string) (*l2n.LayoutToNetlist, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	l, err := l2n.NewStandalone(l2n.WithConfig(*cfg), l2n.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	defer f.Close()

	if err := l2n.ReadInto(f, path, l); err != nil {
		l.Close()
		return nil, fmt.Errorf("error reading database: %w", err)
	}
	logger.Debug("database loaded", "path", path, "circuits", len(l.Netlist().Circuits()))
	return l, nil
}
