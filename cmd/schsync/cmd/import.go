package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/schsync/pkg/circuit/dsl"
	"github.com/OpenTraceLab/schsync/pkg/sync"
)

var (
	importFormat string
	importOutput string
)

var importCmd = &cobra.Command{
	Use:   "import <schematic_file>",
	Short: "Extract a circuit description from a schematic",
	Long: `Rebuild a circuit description from a KiCad schematic project,
following hierarchical sheets. The schematic files are never modified.

Output goes to stdout unless --output names a file.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "dsl",
		"output format: dsl or json")
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "",
		"write to file instead of stdout")
}

func runImport(cmd *cobra.Command, args []string) error {
	engine := sync.New(newLogger(), nil)
	g, err := engine.Import(args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if importOutput != "" {
		f, err := os.Create(importOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch importFormat {
	case "dsl":
		return dsl.Write(out, g)
	case "json":
		return g.EncodeJSON(out)
	default:
		return fmt.Errorf("unknown format %q", importFormat)
	}
}
