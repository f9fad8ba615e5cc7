package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/schsync/pkg/schematic"
)

var infoCmd = &cobra.Command{
	Use:   "info <schematic_file> [component]",
	Short: "Show schematic information",
	Long: `Display information about a KiCad schematic file.

Without component argument: shows schematic summary
With component argument: shows details for that specific component`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	doc, err := schematic.ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("error parsing schematic: %w", err)
	}

	if len(args) >= 2 {
		return showComponentDetails(doc, args[1])
	}
	showSummary(doc, args[0])
	return nil
}

func showSummary(doc *schematic.Document, filename string) {
	fmt.Printf("Schematic: %s\n", filename)
	fmt.Printf("Version: %d\n", doc.Version())
	fmt.Printf("Generator: %s\n", doc.Generator())
	fmt.Printf("Paper: %s\n", doc.Paper())
	fmt.Println()

	components := doc.Components()
	labels := doc.ElementsOfKind(schematic.KindLabel)
	sheets := doc.Sheets()

	fmt.Println("Statistics:")
	fmt.Printf("  Components: %d\n", len(components))
	fmt.Printf("  Labels: %d\n", len(labels))
	fmt.Printf("  Sheets: %d\n", len(sheets))
	fmt.Println()

	if len(components) > 0 {
		fmt.Println("Components:")

		// Group by reference prefix
		byPrefix := make(map[string][]string)
		seen := make(map[string]bool)
		for _, e := range components {
			ref := e.Reference()
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			byPrefix[refPrefix(ref)] = append(byPrefix[refPrefix(ref)], ref)
		}

		var prefixes []string
		for p := range byPrefix {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)

		for _, prefix := range prefixes {
			refs := byPrefix[prefix]
			sort.Strings(refs)
			fmt.Printf("  %s: %s\n", prefix, strings.Join(refs, ", "))
		}
		fmt.Println()
	}

	if len(labels) > 0 {
		names := make(map[string]bool)
		for _, l := range labels {
			if t := l.Text(); t != "" {
				names[t] = true
			}
		}
		var sorted []string
		for n := range names {
			sorted = append(sorted, n)
		}
		sort.Strings(sorted)

		fmt.Println("Net Labels:")
		for _, n := range sorted {
			fmt.Printf("  %s\n", n)
		}
		fmt.Println()
	}

	if len(sheets) > 0 {
		fmt.Println("Hierarchical Sheets:")
		for _, sheet := range sheets {
			fmt.Printf("  %s (%s)\n", sheet.SheetName(), sheet.SheetFile())
		}
	}
}

func showComponentDetails(doc *schematic.Document, ref string) error {
	primary, units := doc.ComponentByReference(ref)
	if primary == nil {
		return fmt.Errorf("component %q not found", ref)
	}

	fmt.Printf("Component: %s\n", ref)
	fmt.Printf("Library: %s\n", primary.LibID())
	fmt.Printf("Units: %d\n", len(units))
	pos := primary.Position()
	fmt.Printf("Position: (%.2f, %.2f) rotation %g\n", pos.X, pos.Y, float64(pos.Angle))
	fmt.Printf("UUID: %s\n", primary.UUID())
	fmt.Println()

	fmt.Println("Properties:")
	for _, key := range primary.PropertyKeys() {
		value, _ := primary.Property(key)
		fmt.Printf("  %s: %s\n", key, value)
	}
	return nil
}

func refPrefix(ref string) string {
	for i, r := range ref {
		if r >= '0' && r <= '9' {
			return ref[:i]
		}
	}
	return ref
}
