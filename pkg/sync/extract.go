package sync

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OpenTraceLab/schsync/pkg/circuit"
	"github.com/OpenTraceLab/schsync/pkg/schematic"
)

// netGroups discovers connectivity with a union-find over string keys:
// pins, label identities, label names, and wire anchor positions. Path
// compression keeps Find amortized near-constant.
type netGroups struct {
	parent map[string]string
	rank   map[string]int
}

func newNetGroups() *netGroups {
	return &netGroups{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

func (g *netGroups) add(key string) {
	if _, ok := g.parent[key]; !ok {
		g.parent[key] = key
		g.rank[key] = 0
	}
}

func (g *netGroups) find(key string) string {
	root := key
	for g.parent[root] != root {
		root = g.parent[root]
	}
	for key != root {
		key, g.parent[key] = g.parent[key], root
	}
	return root
}

func (g *netGroups) union(a, b string) {
	g.add(a)
	g.add(b)
	ra, rb := g.find(a), g.find(b)
	if ra == rb {
		return
	}
	switch {
	case g.rank[ra] < g.rank[rb]:
		g.parent[ra] = rb
	case g.rank[ra] > g.rank[rb]:
		g.parent[rb] = ra
	default:
		g.parent[rb] = ra
		g.rank[ra]++
	}
}

// keys returns every registered key in sorted order.
func (g *netGroups) keys() []string {
	out := make([]string, 0, len(g.parent))
	for key := range g.parent {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Extract rebuilds a circuit graph from the project's documents: component
// records from symbol instances, nets from label and wire connectivity, and
// the hierarchy from the sheet tree. Orphan-marked elements are skipped;
// they are preserved file content, not structural truth. Extracting and
// re-diffing against the same project yields an empty script.
func Extract(p *schematic.Project) (*circuit.Graph, error) {
	name := strings.TrimSuffix(filepath.Base(p.RootPath), filepath.Ext(p.RootPath))
	root, err := extractScope(name, p.Root, p.Children)
	if err != nil {
		return nil, err
	}
	return &circuit.Graph{Root: root}, nil
}

func extractScope(name string, doc *schematic.Document, children map[schematic.UUID]*schematic.ChildSheet) (*circuit.Circuit, error) {
	scope := circuit.NewCircuit(name)

	if err := extractComponents(scope, doc); err != nil {
		return nil, err
	}
	if err := extractNets(scope, doc); err != nil {
		return nil, err
	}

	for _, sheet := range doc.Sheets() {
		if _, orphan := sheet.Property(schematic.PropOrphan); orphan {
			continue
		}
		cs, ok := children[sheet.UUID()]
		if !ok {
			return nil, fmt.Errorf("sheet %q has no loaded document", sheet.SheetName())
		}
		childScope, err := extractScope(sheet.SheetName(), cs.Doc, cs.Children)
		if err != nil {
			return nil, err
		}
		scope.AddChild(&circuit.SubcircuitInstance{
			Name:    sheet.SheetName(),
			Circuit: childScope,
			Binds:   sheetBinds(sheet),
		})
	}
	return scope, nil
}

func extractComponents(scope *circuit.Circuit, doc *schematic.Document) error {
	primaries := make(map[string]*schematic.Element)
	var order []string
	for _, e := range doc.Components() {
		ref := e.Reference()
		cur, ok := primaries[ref]
		if !ok {
			order = append(order, ref)
		}
		if !ok || e.Unit() < cur.Unit() {
			primaries[ref] = e
		}
	}

	for _, ref := range order {
		primary := primaries[ref]
		if _, orphan := primary.Property(schematic.PropOrphan); orphan {
			continue
		}

		value, _ := primary.Property(schematic.PropValue)
		footprint, _ := primary.Property(schematic.PropFootprint)
		pos := primary.Position()
		comp := &circuit.Component{
			Ref:       ref,
			SymbolID:  primary.LibID(),
			Value:     value,
			Footprint: footprint,
			Placement: &circuit.Placement{X: pos.X, Y: pos.Y, Rotation: float64(pos.Angle)},
		}
		for _, key := range primary.PropertyKeys() {
			if enginePropertyKey(key) {
				continue
			}
			v, _ := primary.Property(key)
			if comp.Properties == nil {
				comp.Properties = make(map[string]circuit.Value)
			}
			comp.Properties[key] = circuit.String(v)
		}
		if err := scope.AddComponent(comp); err != nil {
			return err
		}
	}
	return nil
}

// extractNets groups connection points: labels sharing a name connect, a
// user-drawn label sitting on a wire joins its segment, and wire segments
// chain through shared endpoints. Pins come from generator-attached labels,
// which connect only through their attach key and net name; a named
// cluster without pins survives as a zero-connection net.
func extractNets(scope *circuit.Circuit, doc *schematic.Document) error {
	groups := newNetGroups()
	labelName := make(map[string]string) // label key -> net name
	labelPin := make(map[string]string)  // label key -> "REF.PIN"
	orphans := orphanRefs(doc)

	for _, e := range doc.Elements {
		switch {
		case isNetLabel(e):
			key := "lbl:" + string(e.UUID())
			groups.add(key)
			labelName[key] = e.Text()
			groups.union(key, "name:"+e.Text())
			if attach, ok := e.Property(schematic.PropAttach); ok && attach != "" {
				// Generator-attached labels carry exact connectivity in
				// the attach key; grouping them by position would fuse
				// unrelated nets whose labels happen to coincide.
				ref, _, _ := strings.Cut(attach, ".")
				if !orphans[ref] {
					labelPin[key] = attach
				}
			} else {
				groups.union(key, posKey(e.Position().Position))
			}

		case e.Kind == schematic.KindWire || e.Kind == schematic.KindBus:
			points := e.WirePoints()
			for i := 1; i < len(points); i++ {
				groups.union(posKey(points[i-1]), posKey(points[i]))
			}

		case e.Kind == schematic.KindJunction:
			groups.add(posKey(e.Position().Position))
		}
	}

	clusters := make(map[string]*netCluster)
	for _, key := range groups.keys() {
		root := groups.find(key)
		cluster := clusters[root]
		if cluster == nil {
			cluster = &netCluster{}
			clusters[root] = cluster
		}
		if name, ok := labelName[key]; ok {
			cluster.names = append(cluster.names, name)
		}
		if pin, ok := labelPin[key]; ok {
			cluster.pins = append(cluster.pins, pin)
		}
	}

	roots := make([]string, 0, len(clusters))
	for root := range clusters {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	for _, root := range roots {
		cluster := clusters[root]
		if len(cluster.names) == 0 {
			continue // unnamed graphics-only cluster
		}
		sort.Strings(cluster.names)
		name := cluster.names[0]

		sort.Strings(cluster.pins)
		pins := make([]circuit.PinRef, 0, len(cluster.pins))
		for _, pin := range dedup(cluster.pins) {
			pins = append(pins, parsePin(pin))
		}
		if err := scope.Connect(name, pins...); err != nil {
			return err
		}
	}
	return nil
}

type netCluster struct {
	names []string
	pins  []string
}

func orphanRefs(doc *schematic.Document) map[string]bool {
	refs := make(map[string]bool)
	for _, e := range doc.Components() {
		if _, orphan := e.Property(schematic.PropOrphan); orphan {
			refs[e.Reference()] = true
		}
	}
	return refs
}

// enginePropertyKey reports keys owned by the generator or the document
// model rather than the circuit author.
func enginePropertyKey(key string) bool {
	switch key {
	case schematic.PropReference, schematic.PropValue, schematic.PropFootprint,
		schematic.PropAttach, schematic.PropOrphan, schematic.PropSheetDocID,
		schematic.PropSheetName, schematic.PropSheetFile:
		return true
	}
	return strings.HasPrefix(key, bindPropPrefix)
}

func posKey(pos schematic.Position) string {
	return fmt.Sprintf("pos:%.3f,%.3f", pos.X, pos.Y)
}

func dedup(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || sorted[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
