package cmd

import (
	"fmt"
	"os"

	"github.com/chewxy/sexp"
	"github.com/spf13/cobra"
)

var sexpCmd = &cobra.Command{
	Use:   "sexp <file>",
	Short: "Dump the s-expression structure of a file",
	Long: `Parse any s-expression file with a generic reader and print the
top-level structure. Useful for inspecting schematic files that the
document layer refuses to load.`,
	Args: cobra.ExactArgs(1),
	RunE: runSexp,
}

func init() {
	rootCmd.AddCommand(sexpCmd)
}

func runSexp(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	fmt.Printf("File size: %d bytes\n", info.Size())

	sexps, err := sexp.Parse(file)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}
	fmt.Printf("Parsed %d top-level s-expressions\n", len(sexps))

	for i, s := range sexps {
		if s == nil {
			continue
		}
		if s.IsLeaf() {
			fmt.Printf("  #%d: leaf\n", i)
		} else {
			fmt.Printf("  #%d: list, %d leaves\n", i, s.LeafCount())
		}
	}
	return nil
}
