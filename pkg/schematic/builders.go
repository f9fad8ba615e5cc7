package schematic

import (
	"strings"

	"github.com/OpenTraceLab/schsync/pkg/sexpr"
)

// Element builders produce the canonical node skeletons for freshly
// generated elements. Geometry defaults to the origin; the placement
// allocator fills in real positions before serialization.

// NewSymbol creates a component instance element.
func NewSymbol(libID string) *Element {
	node := sexpr.NewList("symbol",
		sexpr.NewList("lib_id", sexpr.Str(libID)),
		sexpr.NewList("at", sexpr.Num(0), sexpr.Num(0), sexpr.Num(0)),
		sexpr.NewList("unit", sexpr.Int(1)),
		sexpr.NewList("in_bom", sexpr.Sym("yes")),
		sexpr.NewList("on_board", sexpr.Sym("yes")),
		sexpr.NewList("uuid", sexpr.Str(string(NewUUID()))),
	)
	kind := KindSymbol
	if strings.HasPrefix(libID, PowerLibPrefix) {
		kind = KindPowerSymbol
	}
	return &Element{Kind: kind, Node: node}
}

// NewLabel creates a local net label element.
func NewLabel(text string) *Element {
	node := sexpr.NewList("label",
		sexpr.Str(text),
		sexpr.NewList("at", sexpr.Num(0), sexpr.Num(0), sexpr.Num(0)),
		sexpr.NewList("effects",
			sexpr.NewList("font", sexpr.NewList("size", sexpr.Num(1.27), sexpr.Num(1.27))),
			sexpr.NewList("justify", sexpr.Sym("left"), sexpr.Sym("bottom")),
		),
		sexpr.NewList("uuid", sexpr.Str(string(NewUUID()))),
	)
	return &Element{Kind: KindLabel, Node: node}
}

// NewGlobalLabel creates a global net label element, visible across sheets.
func NewGlobalLabel(text string) *Element {
	node := sexpr.NewList("global_label",
		sexpr.Str(text),
		sexpr.NewList("shape", sexpr.Sym("passive")),
		sexpr.NewList("at", sexpr.Num(0), sexpr.Num(0), sexpr.Num(0)),
		sexpr.NewList("effects",
			sexpr.NewList("font", sexpr.NewList("size", sexpr.Num(1.27), sexpr.Num(1.27))),
			sexpr.NewList("justify", sexpr.Sym("left")),
		),
		sexpr.NewList("uuid", sexpr.Str(string(NewUUID()))),
	)
	return &Element{Kind: KindGlobalLabel, Node: node}
}

// NewSheet creates a hierarchical sheet element referencing a child file.
func NewSheet(name, file string) *Element {
	node := sexpr.NewList("sheet",
		sexpr.NewList("at", sexpr.Num(0), sexpr.Num(0), sexpr.Num(0)),
		sexpr.NewList("size", sexpr.Num(40), sexpr.Num(30)),
		sexpr.NewList("stroke",
			sexpr.NewList("width", sexpr.Num(0.1524)),
			sexpr.NewList("type", sexpr.Sym("solid")),
		),
		sexpr.NewList("fill",
			sexpr.NewList("color", sexpr.Num(0), sexpr.Num(0), sexpr.Num(0), sexpr.Num(0)),
		),
		sexpr.NewList("uuid", sexpr.Str(string(NewUUID()))),
	)
	e := &Element{Kind: KindSheet, Node: node}
	e.SetProperty(PropSheetName, name)
	e.SetProperty(PropSheetFile, file)
	return e
}

// NewText creates a free-text element.
func NewText(text string) *Element {
	node := sexpr.NewList("text",
		sexpr.Str(text),
		sexpr.NewList("at", sexpr.Num(0), sexpr.Num(0), sexpr.Num(0)),
		sexpr.NewList("effects",
			sexpr.NewList("font", sexpr.NewList("size", sexpr.Num(1.27), sexpr.Num(1.27))),
		),
		sexpr.NewList("uuid", sexpr.Str(string(NewUUID()))),
	)
	return &Element{Kind: KindText, Node: node}
}

// NewWire creates a wire segment between two points.
func NewWire(a, b Position) *Element {
	node := sexpr.NewList("wire",
		sexpr.NewList("pts",
			sexpr.NewList("xy", sexpr.Num(a.X), sexpr.Num(a.Y)),
			sexpr.NewList("xy", sexpr.Num(b.X), sexpr.Num(b.Y)),
		),
		sexpr.NewList("stroke",
			sexpr.NewList("width", sexpr.Num(0)),
			sexpr.NewList("type", sexpr.Sym("default")),
		),
		sexpr.NewList("uuid", sexpr.Str(string(NewUUID()))),
	)
	return &Element{Kind: KindWire, Node: node}
}

// NewJunction creates a wire junction marker.
func NewJunction(pos Position) *Element {
	node := sexpr.NewList("junction",
		sexpr.NewList("at", sexpr.Num(pos.X), sexpr.Num(pos.Y)),
		sexpr.NewList("diameter", sexpr.Num(0)),
		sexpr.NewList("color", sexpr.Num(0), sexpr.Num(0), sexpr.Num(0), sexpr.Num(0)),
		sexpr.NewList("uuid", sexpr.Str(string(NewUUID()))),
	)
	return &Element{Kind: KindJunction, Node: node}
}

// PinRef associates a pin number with its connection identity inside a
// symbol instance node.
type PinRef struct {
	Number string
	UUID   UUID
}

// PinRefs returns the pin reference entries of a symbol element.
func (e *Element) PinRefs() []PinRef {
	var refs []PinRef
	for _, pn := range sexpr.FindAll(e.Node, "pin") {
		ref := PinRef{}
		ref.Number, _ = sexpr.StringAt(pn, 1)
		ref.UUID = UUID(sexpr.ChildString(pn, "uuid", ""))
		refs = append(refs, ref)
	}
	return refs
}

// AddPinRef appends a pin reference entry to a symbol element.
func (e *Element) AddPinRef(number string) PinRef {
	ref := PinRef{Number: number, UUID: NewUUID()}
	e.Node.Append(sexpr.NewList("pin",
		sexpr.Str(number),
		sexpr.NewList("uuid", sexpr.Str(string(ref.UUID))),
	))
	return ref
}

// ClearPinRefs removes all pin reference entries from a symbol element.
func (e *Element) ClearPinRefs() {
	for e.Node.Remove("pin") {
	}
}

// WirePoints returns the point list of a wire, bus, or polyline element.
func (e *Element) WirePoints() []Position {
	var points []Position
	pts, ok := sexpr.Find(e.Node, "pts")
	if !ok {
		return points
	}
	for _, xy := range sexpr.FindAll(pts, "xy") {
		x, errX := sexpr.FloatAt(xy, 1)
		y, errY := sexpr.FloatAt(xy, 2)
		if errX == nil && errY == nil {
			points = append(points, Position{X: x, Y: y})
		}
	}
	return points
}
