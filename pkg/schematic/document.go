package schematic

import (
	"fmt"

	"github.com/OpenTraceLab/schsync/pkg/sexpr"
)

// Current file format version written for new documents.
const (
	FormatVersion = 20230121
	GeneratorName = "schsync"
	GeneratorVer  = "0.9.0"
)

// Minimum supported KiCad version for schematics (6.0 = 20211014)
const MinSupportedVersion = 20211014

// headerOrder fixes the emission order of known header nodes.
var headerOrder = []string{
	"version", "generator", "generator_version", "uuid", "paper", "title_block", "lib_symbols",
}

// trailerOrder fixes the emission order of known trailer nodes.
var trailerOrder = []string{"sheet_instances", "symbol_instances"}

// MalformedError reports a structurally invalid schematic document. A
// caller must treat it as fatal for the file: regeneration never overwrites
// a document it could not parse.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed schematic: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed schematic: %s", e.Reason)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Document is the in-memory model of one schematic sheet file. Elements keep
// their backing S-expression nodes; the document only reorders and swaps
// whole element nodes, so untouched elements re-serialize byte-identically.
type Document struct {
	Elements []*Element

	header  map[string]*sexpr.List
	trailer map[string]*sexpr.List
	extras  []sexpr.Node // unknown top-level nodes kept verbatim (lenient mode)

	byUUID map[UUID]*Element
}

// NewDocument creates an empty schematic document with a fresh identity.
func NewDocument() *Document {
	d := &Document{
		header:  make(map[string]*sexpr.List),
		trailer: make(map[string]*sexpr.List),
	}
	d.header["version"] = sexpr.NewList("version", sexpr.Int(FormatVersion))
	d.header["generator"] = sexpr.NewList("generator", sexpr.Str(GeneratorName))
	d.header["generator_version"] = sexpr.NewList("generator_version", sexpr.Str(GeneratorVer))
	d.header["uuid"] = sexpr.NewList("uuid", sexpr.Str(string(NewUUID())))
	d.header["paper"] = sexpr.NewList("paper", sexpr.Str("A4"))
	return d
}

// Version returns the file format version.
func (d *Document) Version() int {
	if v, ok := d.header["version"]; ok {
		n, _ := sexpr.IntAt(v, 1)
		return n
	}
	return 0
}

// Generator returns the generator name recorded in the file.
func (d *Document) Generator() string {
	if v, ok := d.header["generator"]; ok {
		s, _ := sexpr.StringAt(v, 1)
		return s
	}
	return ""
}

// UUID returns the document's own stable file identity.
func (d *Document) UUID() UUID {
	if v, ok := d.header["uuid"]; ok {
		s, _ := sexpr.StringAt(v, 1)
		return UUID(s)
	}
	return ""
}

// Paper returns the paper size.
func (d *Document) Paper() string {
	if v, ok := d.header["paper"]; ok {
		s, _ := sexpr.StringAt(v, 1)
		return s
	}
	return ""
}

// Add appends an element to the document. Elements without a stable
// identity get one assigned here; an identity is never reused.
func (d *Document) Add(e *Element) {
	if e.UUID() == "" {
		e.SetUUID(NewUUID())
	}
	d.Elements = append(d.Elements, e)
	d.byUUID = nil
}

// Remove deletes an element from the document. Returns true if found.
func (d *Document) Remove(e *Element) bool {
	for i, el := range d.Elements {
		if el == e {
			d.Elements = append(d.Elements[:i], d.Elements[i+1:]...)
			d.byUUID = nil
			return true
		}
	}
	return false
}

// ByUUID returns the element with the given stable identity.
// Lookup is indexed; the index is rebuilt after Add/Remove.
func (d *Document) ByUUID(id UUID) (*Element, bool) {
	if d.byUUID == nil {
		d.byUUID = make(map[UUID]*Element, len(d.Elements))
		for _, e := range d.Elements {
			d.byUUID[e.UUID()] = e
		}
	}
	e, ok := d.byUUID[id]
	return e, ok
}

// ComponentByReference returns the symbol element with the given reference
// and the lowest unit index, plus all unit instances sharing the reference.
func (d *Document) ComponentByReference(ref string) (*Element, []*Element) {
	var primary *Element
	var units []*Element
	for _, e := range d.Elements {
		if e.Kind != KindSymbol || e.Reference() != ref {
			continue
		}
		units = append(units, e)
		if primary == nil || e.Unit() < primary.Unit() {
			primary = e
		}
	}
	return primary, units
}

// Components returns all component instances (excluding power symbols),
// in document order.
func (d *Document) Components() []*Element {
	var out []*Element
	for _, e := range d.Elements {
		if e.Kind == KindSymbol {
			out = append(out, e)
		}
	}
	return out
}

// ElementsOfKind returns all elements of one kind, in document order.
func (d *Document) ElementsOfKind(kind ElementKind) []*Element {
	var out []*Element
	for _, e := range d.Elements {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Sheets returns all hierarchical sheet elements.
func (d *Document) Sheets() []*Element {
	return d.ElementsOfKind(KindSheet)
}

// BoundingBoxes returns the estimated occupied boxes of all placed
// elements, for collision avoidance during placement.
func (d *Document) BoundingBoxes() []BoundingBox {
	var boxes []BoundingBox
	for _, e := range d.Elements {
		box := e.EstimateBounds()
		if !box.IsEmpty() {
			boxes = append(boxes, box)
		}
	}
	return boxes
}
