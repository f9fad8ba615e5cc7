package sync

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OpenTraceLab/schsync/pkg/circuit"
	"github.com/OpenTraceLab/schsync/pkg/schematic"
)

// OpKind enumerates edit script operations. The declaration order is the
// application order: deletions, then additions, then mutations, so a rename
// never collides with a freshly added element holding the old name.
type OpKind int

const (
	OpRemoveComponent OpKind = iota
	OpRemoveSheet
	OpRemoveNet
	OpDetachPin

	OpAddComponent
	OpAddSheet
	OpAddNet
	OpAttachPin

	OpRestoreComponent
	OpRenameComponent
	OpRenameNet
	OpReconnect
	OpChangeSymbol
	OpSetValue
	OpSetFootprint
	OpSetProperty
	OpSetBinds
)

func (k OpKind) String() string {
	switch k {
	case OpRemoveComponent:
		return "remove-component"
	case OpRemoveSheet:
		return "remove-sheet"
	case OpRemoveNet:
		return "remove-net"
	case OpDetachPin:
		return "detach-pin"
	case OpAddComponent:
		return "add-component"
	case OpAddSheet:
		return "add-sheet"
	case OpAddNet:
		return "add-net"
	case OpAttachPin:
		return "attach-pin"
	case OpRestoreComponent:
		return "restore-component"
	case OpRenameComponent:
		return "rename-component"
	case OpRenameNet:
		return "rename-net"
	case OpReconnect:
		return "reconnect"
	case OpChangeSymbol:
		return "change-symbol"
	case OpSetValue:
		return "set-value"
	case OpSetFootprint:
		return "set-footprint"
	case OpSetProperty:
		return "set-property"
	case OpSetBinds:
		return "set-binds"
	default:
		return "unknown"
	}
}

// Op is one edit script operation. Only the fields the kind needs are set;
// UUID targets a document element when one is already known.
type Op struct {
	Kind OpKind

	UUID   schematic.UUID
	Ref    string
	NewRef string
	Net    string
	NewNet string
	Pin    circuit.PinRef
	Key    string
	Value  string

	Component *circuit.Component
	Sheet     *circuit.SubcircuitInstance
	Binds     map[string]string
}

func (op Op) String() string {
	switch op.Kind {
	case OpRemoveComponent, OpRestoreComponent:
		return fmt.Sprintf("%s %s", op.Kind, op.Ref)
	case OpRenameComponent:
		return fmt.Sprintf("%s %s -> %s", op.Kind, op.Ref, op.NewRef)
	case OpRemoveNet, OpAddNet:
		return fmt.Sprintf("%s %s", op.Kind, op.Net)
	case OpRenameNet:
		return fmt.Sprintf("%s %s -> %s", op.Kind, op.Net, op.NewNet)
	case OpDetachPin, OpAttachPin:
		return fmt.Sprintf("%s %s from %s", op.Kind, op.Pin, op.Net)
	case OpReconnect:
		return fmt.Sprintf("%s %s %s -> %s", op.Kind, op.Pin, op.Net, op.NewNet)
	case OpAddComponent:
		return fmt.Sprintf("%s %s", op.Kind, op.Component.Ref)
	case OpSetProperty:
		return fmt.Sprintf("%s %s.%s", op.Kind, op.Ref, op.Key)
	case OpAddSheet, OpRemoveSheet:
		return fmt.Sprintf("%s %s", op.Kind, op.Ref)
	default:
		return fmt.Sprintf("%s %s", op.Kind, op.Ref)
	}
}

// Script is the edit script for one scope plus the scripts of its child
// sheets, keyed by instance name.
type Script struct {
	Scope    string
	Ops      []Op
	Children map[string]*Script
}

// Empty reports whether the script performs no work at any level.
func (s *Script) Empty() bool {
	return s.Len() == 0
}

// Len counts operations across all levels.
func (s *Script) Len() int {
	n := len(s.Ops)
	for _, child := range s.Children {
		n += child.Len()
	}
	return n
}

// Diff computes the edit script turning the project's documents into the
// graph's structure, preserving everything the graph does not describe.
func Diff(g *circuit.Graph, p *schematic.Project, policy Policy) (*Script, error) {
	return diffScope(g.Root, p.Root, p.Children, policy)
}

func diffScope(scope *circuit.Circuit, doc *schematic.Document, children map[schematic.UUID]*schematic.ChildSheet, policy Policy) (*Script, error) {
	res, err := ResolveComponents(scope, doc, policy)
	if err != nil {
		return nil, err
	}

	exclude := make(map[string]bool)
	for _, removed := range res.Removed {
		exclude[removed.Ref] = true
	}
	for _, ref := range res.Ignored {
		exclude[ref] = true
	}
	nets := ResolveNets(scope, doc, res.RenameMap, exclude)

	graphPins := make(map[string]string)
	for _, name := range scope.NetNames() {
		for _, pin := range scope.Nets[name].Pins {
			graphPins[pin.String()] = name
		}
	}
	// Final name each matched document net is headed for.
	netTarget := make(map[string]string)
	for _, pr := range nets.Pairs {
		if pr.DocName != "" {
			netTarget[pr.DocName] = pr.Net.Name
		}
	}

	script := &Script{Scope: scope.Name, Children: make(map[string]*Script)}
	add := func(op Op) { script.Ops = append(script.Ops, op) }

	// Deletions.
	for _, removed := range res.Removed {
		add(Op{Kind: OpRemoveComponent, UUID: removed.Primary.UUID(), Ref: removed.Ref})
	}
	for _, name := range nets.RemovedDoc {
		add(Op{Kind: OpRemoveNet, Net: name})
	}
	for _, pin := range sortedPinKeys(nets.DocPins) {
		if _, stillWired := graphPins[pin]; !stillWired {
			add(Op{Kind: OpDetachPin, Net: nets.DocPins[pin], Pin: parsePin(pin)})
		}
	}

	// Additions.
	for _, m := range res.Matches {
		if m.Primary == nil {
			add(Op{Kind: OpAddComponent, Component: m.Comp})
		}
	}
	for _, pr := range nets.Pairs {
		if pr.DocName == "" && len(pr.Net.Pins) == 0 {
			add(Op{Kind: OpAddNet, Net: pr.Net.Name})
		}
	}
	for _, pin := range sortedPinKeys(graphPins) {
		if _, present := nets.DocPins[pin]; !present {
			add(Op{Kind: OpAttachPin, Net: graphPins[pin], Pin: parsePin(pin)})
		}
	}

	// Mutations.
	for _, m := range res.Matches {
		if m.Orphaned {
			add(Op{Kind: OpRestoreComponent, UUID: m.Primary.UUID(), Ref: m.Comp.Ref})
		}
		if m.OldRef != "" {
			add(Op{Kind: OpRenameComponent, UUID: m.Primary.UUID(), Ref: m.OldRef, NewRef: m.Comp.Ref})
		}
	}
	for _, pr := range nets.Pairs {
		if pr.DocName != "" && pr.DocName != pr.Net.Name {
			add(Op{Kind: OpRenameNet, Net: pr.DocName, NewNet: pr.Net.Name})
		}
	}
	for _, pin := range sortedPinKeys(nets.DocPins) {
		want, stillWired := graphPins[pin]
		if !stillWired {
			continue
		}
		current := nets.DocPins[pin]
		if target, ok := netTarget[current]; ok {
			current = target
		}
		if current != want {
			add(Op{Kind: OpReconnect, Pin: parsePin(pin), Net: nets.DocPins[pin], NewNet: want})
		}
	}
	for _, m := range res.Matches {
		if m.Primary == nil {
			continue
		}
		script.Ops = append(script.Ops, attributeOps(m)...)
	}

	if err := diffSheets(scope, doc, children, policy, script); err != nil {
		return nil, err
	}
	return script, nil
}

// attributeOps emits the value, footprint, symbol, and property changes for
// one matched component. An empty footprint is a regular diff-able value.
func attributeOps(m ComponentMatch) []Op {
	var ops []Op
	ref := m.Comp.Ref

	if m.Primary.LibID() != m.Comp.SymbolID {
		ops = append(ops, Op{Kind: OpChangeSymbol, UUID: m.Primary.UUID(), Ref: ref, Value: m.Comp.SymbolID})
	}
	if v, _ := m.Primary.Property(schematic.PropValue); v != m.Comp.Value {
		ops = append(ops, Op{Kind: OpSetValue, UUID: m.Primary.UUID(), Ref: ref, Value: m.Comp.Value})
	}
	if fp, _ := m.Primary.Property(schematic.PropFootprint); fp != m.Comp.Footprint {
		ops = append(ops, Op{Kind: OpSetFootprint, UUID: m.Primary.UUID(), Ref: ref, Value: m.Comp.Footprint})
	}
	for _, key := range sortedPropKeys(m.Comp.Properties) {
		want := m.Comp.Properties[key].Encode()
		if got, ok := m.Primary.Property(key); !ok || got != want {
			ops = append(ops, Op{Kind: OpSetProperty, UUID: m.Primary.UUID(), Ref: ref, Key: key, Value: want})
		}
	}
	return ops
}

// diffSheets matches graph subcircuit instances against document sheet
// elements by instance name and recurses into paired child documents. A new
// sheet's child script is diffed against an empty document, which makes it
// applicable to the document the merge step creates.
func diffSheets(scope *circuit.Circuit, doc *schematic.Document, children map[schematic.UUID]*schematic.ChildSheet, policy Policy, script *Script) error {
	byName := make(map[string]*schematic.Element)
	var docOrder []string
	for _, sheet := range doc.Sheets() {
		if _, orphan := sheet.Property(schematic.PropOrphan); orphan {
			continue
		}
		name := sheet.SheetName()
		byName[name] = sheet
		docOrder = append(docOrder, name)
	}

	seen := make(map[string]bool)
	for _, inst := range scope.Children {
		if seen[inst.Name] {
			return &DuplicateReferenceError{Ref: inst.Name, Scope: scope.Name}
		}
		seen[inst.Name] = true

		sheet, ok := byName[inst.Name]
		if !ok {
			script.Ops = append(script.Ops, Op{Kind: OpAddSheet, Ref: inst.Name, Sheet: inst})
			child, err := diffScope(inst.Circuit, schematic.NewDocument(), nil, policy)
			if err != nil {
				return err
			}
			script.Children[inst.Name] = child
			continue
		}

		if !bindsEqual(sheetBinds(sheet), inst.Binds) {
			script.Ops = append(script.Ops, Op{Kind: OpSetBinds, UUID: sheet.UUID(), Ref: inst.Name, Binds: inst.Binds})
		}
		cs, ok := children[sheet.UUID()]
		if !ok {
			return fmt.Errorf("sheet %q has no loaded child document", inst.Name)
		}
		child, err := diffScope(inst.Circuit, cs.Doc, cs.Children, policy)
		if err != nil {
			return err
		}
		script.Children[inst.Name] = child
	}

	for _, name := range docOrder {
		if !seen[name] {
			script.Ops = append(script.Ops, Op{Kind: OpRemoveSheet, UUID: byName[name].UUID(), Ref: name})
		}
	}
	return nil
}

// bindPropPrefix stores a sheet's interface bindings as hidden properties
// ("Sync_Bind_VIN" = "VCC") so the reverse path can reconstruct them.
const bindPropPrefix = "Sync_Bind_"

func sheetBinds(sheet *schematic.Element) map[string]string {
	binds := make(map[string]string)
	for _, key := range sheet.PropertyKeys() {
		if strings.HasPrefix(key, bindPropPrefix) {
			v, _ := sheet.Property(key)
			binds[key[len(bindPropPrefix):]] = v
		}
	}
	return binds
}

func bindsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func parsePin(key string) circuit.PinRef {
	ref, id, _ := strings.Cut(key, ".")
	return circuit.PinRef{Component: ref, Pin: id}
}

func sortedPinKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedPropKeys(m map[string]circuit.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
