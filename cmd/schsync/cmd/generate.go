package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/schsync/pkg/circuit"
	"github.com/OpenTraceLab/schsync/pkg/circuit/dsl"
	"github.com/OpenTraceLab/schsync/pkg/symbols"
	"github.com/OpenTraceLab/schsync/pkg/sync"
)

var (
	genNoPreserve bool
	genOrdinal    bool
	genPlacement  string
	genSymbolDirs []string
)

var generateCmd = &cobra.Command{
	Use:   "generate <circuit_file> <schematic_file>",
	Short: "Generate or update a schematic from a circuit description",
	Long: `Synchronize a circuit description into a KiCad schematic file.

The circuit file is either the .circ DSL or a .json graph dump. A missing
schematic file is created; an existing one is updated in place, keeping
component positions and any parts the user added by hand. Components that
left the circuit are marked rather than deleted unless --no-preserve is
given.`,
	Args: cobra.ExactArgs(2),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVar(&genNoPreserve, "no-preserve", false,
		"delete components missing from the circuit instead of marking them")
	generateCmd.Flags().BoolVar(&genOrdinal, "ordinal-tiebreak", false,
		"pair ambiguous rename candidates by order instead of failing")
	generateCmd.Flags().StringVar(&genPlacement, "placement", "simple",
		"placement strategy: simple or hierarchical")
	generateCmd.Flags().StringSliceVar(&genSymbolDirs, "symbol-dir", nil,
		"directory with .kicad_sym libraries (repeatable)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(args[0])
	if err != nil {
		return fmt.Errorf("error reading circuit: %w", err)
	}

	policy := sync.DefaultPolicy()
	policy.PreserveUserComponents = !genNoPreserve
	policy.OrdinalTiebreak = genOrdinal
	switch genPlacement {
	case "simple":
		policy.Placement = sync.StrategySimple
	case "hierarchical":
		policy.Placement = sync.StrategyHierarchical
	default:
		return fmt.Errorf("unknown placement strategy %q", genPlacement)
	}

	var resolver symbols.Resolver
	if len(genSymbolDirs) > 0 {
		resolver = symbols.NewLibraryResolver(genSymbolDirs...)
	}

	engine := sync.New(newLogger(), resolver)
	written, err := engine.Generate(g, args[1], policy)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", written)
	return nil
}

// loadGraph reads a circuit graph from a .circ DSL file or a .json dump,
// chosen by extension.
func loadGraph(path string) (*circuit.Graph, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return circuit.DecodeJSON(f)
	}

	parser, err := dsl.NewParser()
	if err != nil {
		return nil, err
	}
	return parser.ParseFile(path)
}
