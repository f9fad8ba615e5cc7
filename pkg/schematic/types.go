// Package schematic provides the mutable document model for KiCad schematic
// files (.kicad_sch). Every element wraps its backing S-expression node, so a
// parse/mutate/serialize cycle only changes the regions a mutation touched.
package schematic

import (
	"strings"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/schsync/pkg/sexpr"
)

// UUID is the stable identity of a document element. It is assigned once
// and never reused; display names like "R1" are mutable and carry no
// identity.
type UUID string

// NewUUID returns a freshly generated element identity.
func NewUUID() UUID {
	return UUID(uuid.NewString())
}

// ElementKind classifies document elements.
type ElementKind int

const (
	KindUnknown ElementKind = iota
	KindSymbol
	KindPowerSymbol
	KindLabel
	KindGlobalLabel
	KindHierLabel
	KindWire
	KindBus
	KindBusEntry
	KindJunction
	KindNoConnect
	KindSheet
	KindText
	KindPolyline
	KindImage
)

func (k ElementKind) String() string {
	switch k {
	case KindSymbol:
		return "symbol"
	case KindPowerSymbol:
		return "power-symbol"
	case KindLabel:
		return "label"
	case KindGlobalLabel:
		return "global-label"
	case KindHierLabel:
		return "hierarchical-label"
	case KindWire:
		return "wire"
	case KindBus:
		return "bus"
	case KindBusEntry:
		return "bus-entry"
	case KindJunction:
		return "junction"
	case KindNoConnect:
		return "no-connect"
	case KindSheet:
		return "sheet"
	case KindText:
		return "text"
	case KindPolyline:
		return "polyline"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// elementKeywords maps file keywords to element kinds. Power symbols share
// the "symbol" keyword and are classified by their lib_id prefix.
var elementKeywords = map[string]ElementKind{
	"symbol":             KindSymbol,
	"label":              KindLabel,
	"global_label":       KindGlobalLabel,
	"hierarchical_label": KindHierLabel,
	"wire":               KindWire,
	"bus":                KindBus,
	"bus_entry":          KindBusEntry,
	"junction":           KindJunction,
	"no_connect":         KindNoConnect,
	"sheet":              KindSheet,
	"text":               KindText,
	"polyline":           KindPolyline,
	"image":              KindImage,
}

// Keyword returns the file keyword for an element kind.
func (k ElementKind) Keyword() string {
	switch k {
	case KindSymbol, KindPowerSymbol:
		return "symbol"
	case KindLabel:
		return "label"
	case KindGlobalLabel:
		return "global_label"
	case KindHierLabel:
		return "hierarchical_label"
	case KindWire:
		return "wire"
	case KindBus:
		return "bus"
	case KindBusEntry:
		return "bus_entry"
	case KindJunction:
		return "junction"
	case KindNoConnect:
		return "no_connect"
	case KindSheet:
		return "sheet"
	case KindText:
		return "text"
	case KindPolyline:
		return "polyline"
	case KindImage:
		return "image"
	default:
		return ""
	}
}

// PowerLibPrefix identifies symbols from the power library; they are
// presentational net sources, not components.
const PowerLibPrefix = "power:"

// Element is one typed node of the document. All reads and writes go
// through the backing S-expression node, which is the single source of
// truth for serialization.
type Element struct {
	Kind ElementKind
	Node *sexpr.List
}

// UUID returns the element's stable identity, or "" when absent.
func (e *Element) UUID() UUID {
	return UUID(sexpr.ChildString(e.Node, "uuid", ""))
}

// SetUUID sets the element's stable identity.
func (e *Element) SetUUID(id UUID) {
	sexpr.SetChildString(e.Node, "uuid", string(id))
}

// Position returns the element's position and rotation from its (at ...)
// node. Elements without geometry (e.g. wires) return the zero value.
func (e *Element) Position() PositionAngle {
	at, ok := sexpr.Find(e.Node, "at")
	if !ok {
		return PositionAngle{}
	}
	x, _ := sexpr.FloatAt(at, 1)
	y, _ := sexpr.FloatAt(at, 2)
	angle := 0.0
	if v, err := sexpr.FloatAt(at, 3); err == nil {
		angle = v
	}
	return PositionAngle{Position: Position{X: x, Y: y}, Angle: Angle(angle)}
}

// SetPosition sets the element's position and rotation.
func (e *Element) SetPosition(pos PositionAngle) {
	items := []sexpr.Node{sexpr.Sym("at"), sexpr.Num(pos.X), sexpr.Num(pos.Y), sexpr.Num(float64(pos.Angle))}
	if at, ok := sexpr.Find(e.Node, "at"); ok {
		at.Items = items
		return
	}
	e.Node.Append(&sexpr.List{Items: items})
}

// Property returns the value of a named property and whether it exists.
func (e *Element) Property(key string) (string, bool) {
	for _, prop := range sexpr.FindAll(e.Node, "property") {
		k, err := sexpr.StringAt(prop, 1)
		if err != nil || k != key {
			continue
		}
		v, err := sexpr.StringAt(prop, 2)
		if err != nil {
			return "", true
		}
		return v, true
	}
	return "", false
}

// PropertyKeys returns all property keys in document order.
func (e *Element) PropertyKeys() []string {
	var keys []string
	for _, prop := range sexpr.FindAll(e.Node, "property") {
		if k, err := sexpr.StringAt(prop, 1); err == nil {
			keys = append(keys, k)
		}
	}
	return keys
}

// SetProperty sets a property value, creating the property node if needed.
// Existing property nodes keep their geometry and effects; only the value
// atom changes.
func (e *Element) SetProperty(key, value string) {
	for _, prop := range sexpr.FindAll(e.Node, "property") {
		k, err := sexpr.StringAt(prop, 1)
		if err != nil || k != key {
			continue
		}
		if prop.Len() > 2 {
			prop.Items[2] = sexpr.Str(value)
		} else {
			prop.Append(sexpr.Str(value))
		}
		return
	}

	pos := e.Position()
	prop := sexpr.NewList("property", sexpr.Str(key), sexpr.Str(value),
		sexpr.NewList("at", sexpr.Num(pos.X), sexpr.Num(pos.Y), sexpr.Num(0)),
		sexpr.NewList("effects",
			sexpr.NewList("font", sexpr.NewList("size", sexpr.Num(1.27), sexpr.Num(1.27))),
			sexpr.Sym("hide"),
		),
	)
	e.Node.Append(prop)
}

// RemoveProperty deletes a named property node. Returns true if removed.
func (e *Element) RemoveProperty(key string) bool {
	for _, prop := range sexpr.FindAll(e.Node, "property") {
		if k, err := sexpr.StringAt(prop, 1); err == nil && k == key {
			return e.Node.RemoveNode(prop)
		}
	}
	return false
}

// Reference returns the component reference (the "Reference" property).
func (e *Element) Reference() string {
	v, _ := e.Property(PropReference)
	return v
}

// LibID returns the symbol library identifier of a symbol element.
func (e *Element) LibID() string {
	return sexpr.ChildString(e.Node, "lib_id", "")
}

// SetLibID sets the symbol library identifier.
func (e *Element) SetLibID(id string) {
	sexpr.SetChildString(e.Node, "lib_id", id)
}

// Unit returns the unit index of a multi-unit symbol instance (1-based).
func (e *Element) Unit() int {
	return sexpr.ChildInt(e.Node, "unit", 1)
}

// SetUnit sets the unit index.
func (e *Element) SetUnit(unit int) {
	if child, ok := sexpr.Find(e.Node, "unit"); ok {
		child.Items = []sexpr.Node{sexpr.Sym("unit"), sexpr.Int(unit)}
		return
	}
	e.Node.Append(sexpr.NewList("unit", sexpr.Int(unit)))
}

// Text returns the text of a label or text element.
func (e *Element) Text() string {
	v, err := sexpr.StringAt(e.Node, 1)
	if err != nil {
		return ""
	}
	return v
}

// SetText sets the text of a label or text element.
func (e *Element) SetText(text string) {
	if e.Node.Len() > 1 {
		e.Node.Items[1] = sexpr.Str(text)
	} else {
		e.Node.Append(sexpr.Str(text))
	}
}

// SheetName returns the display name of a sheet element.
func (e *Element) SheetName() string {
	v, _ := e.Property(PropSheetName)
	return v
}

// SheetFile returns the child file name of a sheet element.
func (e *Element) SheetFile() string {
	v, _ := e.Property(PropSheetFile)
	return v
}

// Well-known property keys.
const (
	PropReference = "Reference"
	PropValue     = "Value"
	PropFootprint = "Footprint"
	PropSheetName = "Sheetname"
	PropSheetFile = "Sheetfile"

	// PropAttach binds a generated net label to a component pin ("R1.1").
	// It is engine-owned metadata, hidden in the CAD tool.
	PropAttach = "Attach"

	// PropOrphan marks a component whose source was removed from the
	// circuit while the preservation policy keeps it in the file.
	PropOrphan = "Sync_Orphan"
)

func classify(node *sexpr.List) ElementKind {
	kind, ok := elementKeywords[node.Name()]
	if !ok {
		return KindUnknown
	}
	if kind == KindSymbol {
		if strings.HasPrefix(sexpr.ChildString(node, "lib_id", ""), PowerLibPrefix) {
			return KindPowerSymbol
		}
	}
	return kind
}

// IsComponent reports whether the element is a placed component instance
// (a symbol that is not a power source).
func (e *Element) IsComponent() bool {
	return e.Kind == KindSymbol
}
