package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "schsync",
	Short: "schsync - bidirectional circuit/schematic synchronization",
	Long: `schsync keeps a circuit description and a KiCad schematic in step:
  - generate: create or update .kicad_sch files from a circuit, preserving
    manual edits (positions, user components) across runs
  - import: rebuild a circuit description from existing schematic files

Examples:
  schsync generate board.circ board.kicad_sch
  schsync generate netlist.json board.kicad_sch --placement hierarchical
  schsync import board.kicad_sch --format json
  schsync info board.kicad_sch R1`,
	Version: "0.2.0",
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
}

// newLogger builds the logger the sync engine reports through. Quiet runs
// log nothing; --verbose gets the development console encoder.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
