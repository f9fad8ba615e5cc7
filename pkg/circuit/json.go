package circuit

import (
	"encoding/json"
	"fmt"
	"io"
)

// DecodeJSON reads a circuit graph from its JSON wire form, the format
// outer drivers use to hand graphs to the engine.
func DecodeJSON(r io.Reader) (*Graph, error) {
	var g Graph
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode circuit graph: %w", err)
	}
	if g.Root == nil {
		return nil, fmt.Errorf("circuit graph has no root")
	}
	normalize(g.Root)
	return &g, nil
}

// EncodeJSON writes the graph in its JSON wire form.
func (g *Graph) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("failed to encode circuit graph: %w", err)
	}
	return nil
}

// normalize fills in redundant fields the wire form allows to be omitted:
// component Ref from the map key, net Name from the map key, child Parent
// links.
func normalize(c *Circuit) {
	for ref, comp := range c.Components {
		if comp.Ref == "" {
			comp.Ref = ref
		}
	}
	for name, net := range c.Nets {
		if net.Name == "" {
			net.Name = name
		}
	}
	for _, child := range c.Children {
		if child.Circuit != nil {
			child.Circuit.Parent = c.Name
			normalize(child.Circuit)
		}
	}
}
