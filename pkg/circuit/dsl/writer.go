package dsl

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/schsync/pkg/circuit"
)

// Write renders a circuit graph back into the description format, with
// deterministic ordering so the output is diff-friendly.
func Write(w io.Writer, g *circuit.Graph) error {
	if g.Root == nil {
		return fmt.Errorf("graph has no root")
	}
	var b strings.Builder
	writeCircuit(&b, g.Root, nil, 0)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeCircuit(b *strings.Builder, c *circuit.Circuit, binds map[string]string, depth int) {
	indent := strings.Repeat("  ", depth)

	if depth == 0 {
		fmt.Fprintf(b, "circuit %s {\n", strconv.Quote(c.Name))
	} else {
		fmt.Fprintf(b, "%ssheet %s {\n", indent, c.Name)
	}

	inner := indent + "  "
	for _, child := range sortedStrings(mapKeys(binds)) {
		fmt.Fprintf(b, "%sbind %s = %s\n", inner, child, binds[child])
	}

	for _, ref := range c.ComponentRefs() {
		writeComponent(b, inner, c.Components[ref])
	}
	for _, name := range c.NetNames() {
		net := c.Nets[name]
		fmt.Fprintf(b, "%snet %s", inner, netToken(name))
		for _, pin := range net.Pins {
			fmt.Fprintf(b, " %s.%s", pin.Component, pin.Pin)
		}
		b.WriteByte('\n')
	}
	for _, child := range c.Children {
		writeCircuit(b, child.Circuit, child.Binds, depth+1)
	}

	fmt.Fprintf(b, "%s}\n", indent)
}

func writeComponent(b *strings.Builder, indent string, comp *circuit.Component) {
	fmt.Fprintf(b, "%spart %s %s", indent, comp.Ref, strconv.Quote(comp.SymbolID))
	if comp.Value != "" {
		fmt.Fprintf(b, " value %s", strconv.Quote(comp.Value))
	}
	if comp.Footprint != "" {
		fmt.Fprintf(b, " footprint %s", strconv.Quote(comp.Footprint))
	}
	if comp.Placement != nil {
		if comp.Placement.Rotation != 0 {
			fmt.Fprintf(b, " at (%s, %s, %s)",
				num(comp.Placement.X), num(comp.Placement.Y), num(comp.Placement.Rotation))
		} else {
			fmt.Fprintf(b, " at (%s, %s)", num(comp.Placement.X), num(comp.Placement.Y))
		}
	}
	for _, key := range sortedStrings(mapKeys(comp.Properties)) {
		fmt.Fprintf(b, " prop %s %s", strconv.Quote(key), propToken(comp.Properties[key]))
	}
	b.WriteByte('\n')
}

func propToken(v circuit.Value) string {
	switch v.Kind() {
	case circuit.BoolValue:
		b, _ := v.AsBool()
		if b {
			return "true"
		}
		return "false"
	case circuit.NumberValue:
		n, _ := v.AsNumber()
		return num(n)
	default:
		return strconv.Quote(v.Encode())
	}
}

// netToken quotes a net name only when it is not a bare identifier.
func netToken(name string) string {
	for i, r := range name {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isIdent := isAlpha || r == '+' || r == '~' || r == '-' || (r >= '0' && r <= '9')
		if i == 0 && !isAlpha {
			return strconv.Quote(name)
		}
		if !isIdent {
			return strconv.Quote(name)
		}
	}
	if name == "" {
		return strconv.Quote(name)
	}
	return name
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func mapKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}
