package schematic

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenTraceLab/schsync/pkg/sexpr"
)

// ParseFile reads and parses a KiCad schematic file.
func ParseFile(filename string) (*Document, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads and parses a KiCad schematic from an io.Reader. Unknown
// top-level nodes are retained verbatim and re-serialized unchanged.
func Parse(r io.Reader) (*Document, error) {
	return parse(r, false)
}

// ParseStrict parses like Parse but fails on unknown top-level element
// keywords instead of retaining them.
func ParseStrict(r io.Reader) (*Document, error) {
	return parse(r, true)
}

func parse(r io.Reader, strict bool) (*Document, error) {
	nodes, err := sexpr.Parse(r)
	if err != nil {
		return nil, &MalformedError{Reason: "invalid s-expression structure", Err: err}
	}
	if len(nodes) == 0 {
		return nil, &MalformedError{Reason: "empty file or no valid s-expressions found"}
	}

	root, ok := nodes[0].(*sexpr.List)
	if !ok || root.Name() != "kicad_sch" {
		return nil, &MalformedError{Reason: "not a KiCad schematic file: expected (kicad_sch ...)"}
	}

	doc := &Document{
		header:  make(map[string]*sexpr.List),
		trailer: make(map[string]*sexpr.List),
	}

	for _, item := range root.Items[1:] {
		sub, ok := item.(*sexpr.List)
		if !ok {
			if strict {
				return nil, &MalformedError{Reason: fmt.Sprintf("unexpected bare atom %q at top level", item.String())}
			}
			doc.extras = append(doc.extras, item)
			continue
		}

		name := sub.Name()
		if isHeaderKey(name) {
			doc.header[name] = sub
			continue
		}
		if isTrailerKey(name) {
			doc.trailer[name] = sub
			continue
		}
		if kind := classify(sub); kind != KindUnknown {
			doc.Elements = append(doc.Elements, &Element{Kind: kind, Node: sub})
			continue
		}
		if strict {
			return nil, &MalformedError{Reason: fmt.Sprintf("unknown element kind %q", name)}
		}
		doc.extras = append(doc.extras, sub)
	}

	versionNode, ok := doc.header["version"]
	if !ok {
		return nil, &MalformedError{Reason: "missing required 'version' field"}
	}
	ver, err := sexpr.IntAt(versionNode, 1)
	if err != nil {
		return nil, &MalformedError{Reason: "failed to parse version", Err: err}
	}
	if ver < MinSupportedVersion {
		return nil, &MalformedError{
			Reason: fmt.Sprintf("unsupported KiCad version: %d (minimum required: %d / KiCad 6.0)", ver, MinSupportedVersion),
		}
	}

	return doc, nil
}

func isHeaderKey(name string) bool {
	for _, k := range headerOrder {
		if k == name {
			return true
		}
	}
	return false
}

func isTrailerKey(name string) bool {
	for _, k := range trailerOrder {
		if k == name {
			return true
		}
	}
	return false
}
