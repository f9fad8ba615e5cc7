package sync

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/OpenTraceLab/schsync/pkg/circuit"
	"github.com/OpenTraceLab/schsync/pkg/schematic"
	"github.com/OpenTraceLab/schsync/pkg/symbols"
)

// PendingLabel is a freshly created net label waiting for a position next
// to its anchor component. Slot is the stacking index below the anchor,
// derived from the pin's place in the symbol definition so alphanumeric
// pin IDs ("A1", "B7") stack as reliably as numeric ones.
type PendingLabel struct {
	Element *schematic.Element
	Anchor  string
	Pin     string
	Slot    int
}

// Pending collects the elements one document gained during Apply that still
// need geometry. Elements with explicit graph positions are already placed.
type Pending struct {
	Grid   []*schematic.Element // symbols and bare labels needing grid cells
	Sheets []*schematic.Element // sheet frames, tiled by the hierarchical strategy
	Labels []PendingLabel       // anchored labels, positioned after their component
}

// ApplyResult maps each touched document to its pending placements.
type ApplyResult map[*schematic.Document]*Pending

// Apply executes the edit script against the project. Geometry of elements
// the script does not target is never touched; new elements are reported
// back for placement. Nothing is written to disk.
func Apply(script *Script, p *schematic.Project, resolver symbols.Resolver, policy Policy) (ApplyResult, error) {
	result := make(ApplyResult)
	err := applyScope(script, p.Root, p.Children, func(sheet *schematic.Element) *schematic.ChildSheet {
		return p.AddChild(sheet)
	}, resolver, policy, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func applyScope(script *Script, doc *schematic.Document, children map[schematic.UUID]*schematic.ChildSheet,
	addChild func(*schematic.Element) *schematic.ChildSheet, resolver symbols.Resolver, policy Policy, result ApplyResult) error {

	pending := result[doc]
	if pending == nil {
		pending = &Pending{}
		result[doc] = pending
	}

	// Renames applied later in the script must not hide labels from the
	// deletion phase, which still sees pre-rename references.
	revRename := make(map[string]string)
	for _, op := range script.Ops {
		if op.Kind == OpRenameComponent {
			revRename[op.NewRef] = op.Ref
		}
	}

	for _, op := range script.Ops {
		if err := applyOp(op, doc, children, addChild, resolver, policy, pending, revRename); err != nil {
			return fmt.Errorf("apply %s in scope %q: %w", op, script.Scope, err)
		}
	}

	for _, name := range sortedScriptNames(script.Children) {
		child := script.Children[name]
		cs := childByName(doc, children, name)
		if cs == nil {
			return fmt.Errorf("scope %q: no document for sheet %q", script.Scope, name)
		}
		err := applyScope(child, cs.Doc, cs.Children, cs.AddChild, resolver, policy, result)
		if err != nil {
			return err
		}
	}
	return nil
}

func applyOp(op Op, doc *schematic.Document, children map[schematic.UUID]*schematic.ChildSheet,
	addChild func(*schematic.Element) *schematic.ChildSheet, resolver symbols.Resolver, policy Policy,
	pending *Pending, revRename map[string]string) error {

	switch op.Kind {
	case OpRemoveComponent:
		_, units := doc.ComponentByReference(op.Ref)
		if policy.PreserveUserComponents {
			for _, unit := range units {
				unit.SetProperty(schematic.PropOrphan, "true")
			}
			return nil
		}
		for _, unit := range units {
			doc.Remove(unit)
		}
		removeAttachedLabels(doc, op.Ref)

	case OpRemoveSheet:
		sheet, ok := doc.ByUUID(op.UUID)
		if !ok {
			return nil
		}
		if policy.PreserveUserComponents {
			sheet.SetProperty(schematic.PropOrphan, "true")
			return nil
		}
		doc.Remove(sheet)
		delete(children, op.UUID) // the child file stays on disk

	case OpRemoveNet:
		for _, e := range bareLabels(doc, op.Net) {
			doc.Remove(e)
		}

	case OpDetachPin:
		if label := findAttachedLabel(doc, op.Pin.String(), revRename); label != nil {
			doc.Remove(label)
		}

	case OpAddComponent:
		addComponent(doc, op.Component, resolver, pending)

	case OpAddSheet:
		sheet := schematic.NewSheet(op.Sheet.Name, op.Sheet.Name+".kicad_sch")
		setBindProps(sheet, op.Sheet.Binds)
		doc.Add(sheet)
		cs := addChild(sheet)
		children[sheet.UUID()] = cs
		pending.Sheets = append(pending.Sheets, sheet)

	case OpAddNet:
		label := schematic.NewLabel(op.Net)
		doc.Add(label)
		pending.Grid = append(pending.Grid, label)

	case OpAttachPin:
		slot := labelSlot(doc, resolver, op.Pin)
		label := schematic.NewLabel(op.Net)
		label.SetProperty(schematic.PropAttach, op.Pin.String())
		doc.Add(label)
		pending.Labels = append(pending.Labels, PendingLabel{
			Element: label,
			Anchor:  op.Pin.Component,
			Pin:     op.Pin.Pin,
			Slot:    slot,
		})

	case OpRestoreComponent:
		_, units := doc.ComponentByReference(op.Ref)
		for _, unit := range units {
			unit.RemoveProperty(schematic.PropOrphan)
		}

	case OpRenameComponent:
		_, units := doc.ComponentByReference(op.Ref)
		for _, unit := range units {
			unit.SetProperty(schematic.PropReference, op.NewRef)
		}
		prefix := op.Ref + "."
		for _, e := range doc.Elements {
			if !isNetLabel(e) {
				continue
			}
			if attach, ok := e.Property(schematic.PropAttach); ok && strings.HasPrefix(attach, prefix) {
				e.SetProperty(schematic.PropAttach, op.NewRef+"."+attach[len(prefix):])
			}
		}

	case OpRenameNet:
		for _, e := range doc.Elements {
			if isNetLabel(e) && e.Text() == op.Net {
				e.SetText(op.NewNet)
			}
		}

	case OpReconnect:
		if label := findAttachedLabel(doc, op.Pin.String(), revRename); label != nil {
			label.SetText(op.NewNet)
		}

	case OpChangeSymbol:
		return changeSymbol(doc, op, resolver, pending)

	case OpSetValue:
		_, units := doc.ComponentByReference(op.Ref)
		for _, unit := range units {
			unit.SetProperty(schematic.PropValue, op.Value)
		}

	case OpSetFootprint:
		_, units := doc.ComponentByReference(op.Ref)
		for _, unit := range units {
			unit.SetProperty(schematic.PropFootprint, op.Value)
		}

	case OpSetProperty:
		_, units := doc.ComponentByReference(op.Ref)
		for _, unit := range units {
			unit.SetProperty(op.Key, op.Value)
		}

	case OpSetBinds:
		if sheet, ok := doc.ByUUID(op.UUID); ok {
			for _, key := range sheet.PropertyKeys() {
				if strings.HasPrefix(key, bindPropPrefix) {
					sheet.RemoveProperty(key)
				}
			}
			setBindProps(sheet, op.Binds)
		}

	default:
		return fmt.Errorf("unhandled op kind %v", op.Kind)
	}
	return nil
}

// addComponent creates one symbol element per unit. An explicit graph
// position lands on the primary unit; everything else goes to the grid.
func addComponent(doc *schematic.Document, comp *circuit.Component, resolver symbols.Resolver, pending *Pending) {
	unitCount := 1
	sym, err := resolver.Resolve(comp.SymbolID)
	if err == nil && sym.UnitCount > 1 {
		unitCount = sym.UnitCount
	}

	for unit := 1; unit <= unitCount; unit++ {
		e := schematic.NewSymbol(comp.SymbolID)
		e.SetUnit(unit)
		e.SetProperty(schematic.PropReference, comp.Ref)
		e.SetProperty(schematic.PropValue, comp.Value)
		e.SetProperty(schematic.PropFootprint, comp.Footprint)
		for _, key := range sortedPropKeys(comp.Properties) {
			e.SetProperty(key, comp.Properties[key].Encode())
		}
		if sym != nil {
			for _, pin := range sym.PinsOfUnit(unit) {
				e.AddPinRef(pin.ID)
			}
		}
		doc.Add(e)

		if unit == 1 && comp.Placement != nil {
			e.SetPosition(schematic.PositionAngle{
				Position: schematic.Position{X: comp.Placement.X, Y: comp.Placement.Y},
				Angle:    schematic.Angle(comp.Placement.Rotation),
			})
		} else {
			pending.Grid = append(pending.Grid, e)
		}
	}
}

// changeSymbol swaps a component's library symbol and reconciles its unit
// instances: missing units are created, excess units removed, and every
// unit's pin references rebuilt from the new definition.
func changeSymbol(doc *schematic.Document, op Op, resolver symbols.Resolver, pending *Pending) error {
	primary, units := doc.ComponentByReference(op.Ref)
	if primary == nil {
		return nil
	}
	for _, unit := range units {
		unit.SetLibID(op.Value)
	}

	sym, err := resolver.Resolve(op.Value)
	var unknown *symbols.UnknownSymbolError
	if err != nil {
		if errors.As(err, &unknown) {
			return nil // pin data unavailable, keep existing units
		}
		return err
	}

	want := sym.UnitCount
	if want < 1 {
		want = 1
	}
	have := make(map[int]*schematic.Element, len(units))
	for _, unit := range units {
		have[unit.Unit()] = unit
	}
	for idx, unit := range have {
		if idx > want {
			doc.Remove(unit)
		}
	}
	value, _ := primary.Property(schematic.PropValue)
	footprint, _ := primary.Property(schematic.PropFootprint)
	for idx := 1; idx <= want; idx++ {
		e, ok := have[idx]
		if !ok {
			e = schematic.NewSymbol(op.Value)
			e.SetUnit(idx)
			e.SetProperty(schematic.PropReference, op.Ref)
			e.SetProperty(schematic.PropValue, value)
			e.SetProperty(schematic.PropFootprint, footprint)
			doc.Add(e)
			pending.Grid = append(pending.Grid, e)
		}
		e.ClearPinRefs()
		for _, pin := range sym.PinsOfUnit(idx) {
			e.AddPinRef(pin.ID)
		}
	}
	return nil
}

// labelSlot picks the stacking index for a new attached label: the pin's
// position in the resolved symbol's pin list, or, when the symbol cannot
// be resolved, one slot below every label already bound to the component.
func labelSlot(doc *schematic.Document, resolver symbols.Resolver, pin circuit.PinRef) int {
	if primary, _ := doc.ComponentByReference(pin.Component); primary != nil {
		if sym, err := resolver.Resolve(primary.LibID()); err == nil {
			for i, p := range sym.Pins {
				if p.ID == pin.Pin {
					return i
				}
			}
		}
	}

	prefix := pin.Component + "."
	n := 0
	for _, e := range doc.Elements {
		if !isNetLabel(e) {
			continue
		}
		if attach, ok := e.Property(schematic.PropAttach); ok && strings.HasPrefix(attach, prefix) {
			n++
		}
	}
	return n
}

// findAttachedLabel locates the label bound to a pin. Deletion-phase ops
// run before renames, so the label may still carry the old reference.
func findAttachedLabel(doc *schematic.Document, pin string, revRename map[string]string) *schematic.Element {
	oldKey := ""
	if ref, id, ok := strings.Cut(pin, "."); ok {
		if oldRef, renamed := revRename[ref]; renamed {
			oldKey = oldRef + "." + id
		}
	}
	for _, e := range doc.Elements {
		if !isNetLabel(e) {
			continue
		}
		attach, ok := e.Property(schematic.PropAttach)
		if !ok {
			continue
		}
		if attach == pin || (oldKey != "" && attach == oldKey) {
			return e
		}
	}
	return nil
}

func removeAttachedLabels(doc *schematic.Document, ref string) {
	prefix := ref + "."
	var doomed []*schematic.Element
	for _, e := range doc.Elements {
		if !isNetLabel(e) {
			continue
		}
		if attach, ok := e.Property(schematic.PropAttach); ok && strings.HasPrefix(attach, prefix) {
			doomed = append(doomed, e)
		}
	}
	for _, e := range doomed {
		doc.Remove(e)
	}
}

func bareLabels(doc *schematic.Document, name string) []*schematic.Element {
	var out []*schematic.Element
	for _, e := range doc.Elements {
		if !isNetLabel(e) || e.Text() != name {
			continue
		}
		if attach, ok := e.Property(schematic.PropAttach); !ok || attach == "" {
			out = append(out, e)
		}
	}
	return out
}

func setBindProps(sheet *schematic.Element, binds map[string]string) {
	keys := make([]string, 0, len(binds))
	for k := range binds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sheet.SetProperty(bindPropPrefix+k, binds[k])
	}
}

func childByName(doc *schematic.Document, children map[schematic.UUID]*schematic.ChildSheet, name string) *schematic.ChildSheet {
	for _, sheet := range doc.Sheets() {
		if sheet.SheetName() != name {
			continue
		}
		if cs, ok := children[sheet.UUID()]; ok {
			return cs
		}
	}
	return nil
}

func sortedScriptNames(children map[string]*Script) []string {
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
