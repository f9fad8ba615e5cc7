package dsl

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"

	"github.com/OpenTraceLab/schsync/pkg/circuit"
)

// Parser parses circuit description files.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser creates a new circuit description parser.
func NewParser() (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(CircLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.Unquote("String"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	return &Parser{parser: parser}, nil
}

// Parse parses a circuit description from a reader and builds the graph.
func (p *Parser) Parse(r io.Reader) (*circuit.Graph, error) {
	file, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return buildGraph(file)
}

// ParseString parses a circuit description from a string.
func (p *Parser) ParseString(input string) (*circuit.Graph, error) {
	file, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return buildGraph(file)
}

// ParseFile parses a circuit description from a file path.
func (p *Parser) ParseFile(filename string) (*circuit.Graph, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return p.Parse(file)
}

// buildGraph converts the parse tree into a circuit graph, enforcing the
// graph invariants (unique references, single net per pin) as it goes.
func buildGraph(file *File) (*circuit.Graph, error) {
	root, err := buildCircuit(file.Root.Name, file.Root.Items)
	if err != nil {
		return nil, err
	}
	return &circuit.Graph{Root: root}, nil
}

func buildCircuit(name string, items []*Item) (*circuit.Circuit, error) {
	c := circuit.NewCircuit(name)

	for _, item := range items {
		switch {
		case item.Part != nil:
			comp, err := buildComponent(item.Part)
			if err != nil {
				return nil, err
			}
			if err := c.AddComponent(comp); err != nil {
				return nil, err
			}

		case item.Net != nil:
			pins := make([]circuit.PinRef, 0, len(item.Net.Pins))
			for _, pin := range item.Net.Pins {
				pins = append(pins, circuit.PinRef{Component: pin.Component, Pin: pin.Pin})
			}
			if err := c.Connect(item.Net.Name, pins...); err != nil {
				return nil, err
			}

		case item.Sheet != nil:
			child, binds, err := buildSheet(item.Sheet)
			if err != nil {
				return nil, err
			}
			c.AddChild(&circuit.SubcircuitInstance{
				Name:    item.Sheet.Name,
				Circuit: child,
				Binds:   binds,
			})

		case item.Bind != nil:
			return nil, fmt.Errorf("circuit %q: bind is only valid inside a sheet block", name)
		}
	}

	return c, nil
}

func buildSheet(decl *SheetDecl) (*circuit.Circuit, map[string]string, error) {
	var inner []*Item
	binds := make(map[string]string)
	for _, item := range decl.Items {
		if item.Bind != nil {
			binds[item.Bind.Child] = item.Bind.Parent
			continue
		}
		inner = append(inner, item)
	}

	child, err := buildCircuit(decl.Name, inner)
	if err != nil {
		return nil, nil, err
	}
	if len(binds) == 0 {
		binds = nil
	}
	return child, binds, nil
}

func buildComponent(decl *PartDecl) (*circuit.Component, error) {
	comp := &circuit.Component{
		Ref:      decl.Ref,
		SymbolID: decl.Symbol,
	}

	for _, attr := range decl.Attrs {
		switch {
		case attr.Value != nil:
			comp.Value = *attr.Value
		case attr.Footprint != nil:
			comp.Footprint = *attr.Footprint
		case attr.At != nil:
			placement := &circuit.Placement{X: attr.At.X, Y: attr.At.Y}
			if attr.At.Rotation != nil {
				placement.Rotation = *attr.At.Rotation
			}
			comp.Placement = placement
		case attr.Prop != nil:
			if comp.Properties == nil {
				comp.Properties = make(map[string]circuit.Value)
			}
			comp.Properties[attr.Prop.Key] = propValue(attr.Prop)
		}
	}

	return comp, nil
}

func propValue(p *PropDecl) circuit.Value {
	switch {
	case p.SVal != nil:
		return circuit.String(*p.SVal)
	case p.NVal != nil:
		return circuit.Number(*p.NVal)
	case p.BTrue:
		return circuit.Bool(true)
	case p.BFalse:
		return circuit.Bool(false)
	default:
		return circuit.Null()
	}
}
