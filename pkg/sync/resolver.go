package sync

import (
	"sort"
	"strings"

	"github.com/OpenTraceLab/schsync/pkg/circuit"
	"github.com/OpenTraceLab/schsync/pkg/schematic"
)

// ComponentMatch pairs one graph component with its document counterpart.
// Primary is nil for components that have no element yet.
type ComponentMatch struct {
	Comp    *circuit.Component
	Primary *schematic.Element
	Units   []*schematic.Element

	// OldRef is set when the match was made by structural fingerprint
	// under a different reference (a rename).
	OldRef string

	// Orphaned reports that the matched element carries the orphan mark
	// from an earlier removal and is being restored.
	Orphaned bool
}

// RemovedComponent is a document component group with no graph source.
type RemovedComponent struct {
	Ref     string
	Primary *schematic.Element
	Units   []*schematic.Element
}

// Resolution is the identity mapping for one scope: every graph component
// paired or declared new, every unsourced document component listed for
// removal, and the reference rename map the net resolver translates
// document pins through.
type Resolution struct {
	Matches   []ComponentMatch
	Removed   []RemovedComponent
	RenameMap map[string]string // document reference -> graph reference

	// Ignored lists orphan-marked references with no graph source. Their
	// elements and labels stay untouched.
	Ignored []string
}

// docGroup collects the unit instances sharing one reference.
type docGroup struct {
	ref     string
	primary *schematic.Element
	units   []*schematic.Element
	orphan  bool
}

// ResolveComponents matches the scope's components against the document.
// Matching is exact reference first, then structural fingerprint for
// renames. Several rename candidates sharing one fingerprint fail with
// AmbiguousIdentityError unless the policy opts into ordinal pairing.
func ResolveComponents(scope *circuit.Circuit, doc *schematic.Document, policy Policy) (*Resolution, error) {
	groups, order, err := collectGroups(scope.Name, doc)
	if err != nil {
		return nil, err
	}
	pinNets := docPinNets(doc, nil)

	res := &Resolution{RenameMap: make(map[string]string)}
	var pending []*circuit.Component

	for _, ref := range scope.ComponentRefs() {
		comp := scope.Components[ref]
		group, ok := groups[ref]
		if !ok {
			pending = append(pending, comp)
			continue
		}
		res.Matches = append(res.Matches, ComponentMatch{
			Comp:     comp,
			Primary:  group.primary,
			Units:    group.units,
			Orphaned: group.orphan,
		})
		delete(groups, ref)
	}

	// Fingerprint pass over the leftovers. Orphan-marked groups never
	// participate: a removed component only comes back by exact reference.
	byFP := make(map[string][]*docGroup)
	var fpOrder []string
	for _, ref := range order {
		group, ok := groups[ref]
		if !ok || group.orphan {
			continue
		}
		fp := docFingerprint(group, pinNets)
		if _, seen := byFP[fp]; !seen {
			fpOrder = append(fpOrder, fp)
		}
		byFP[fp] = append(byFP[fp], group)
	}

	graphByFP := make(map[string][]*circuit.Component)
	for _, comp := range pending {
		graphByFP[graphFingerprint(comp, scope)] = append(graphByFP[graphFingerprint(comp, scope)], comp)
	}

	matchedDoc := make(map[string]bool)
	matchedGraph := make(map[string]bool)
	for _, fp := range fpOrder {
		docSide := byFP[fp]
		graphSide := graphByFP[fp]
		if len(graphSide) == 0 {
			continue
		}
		if len(graphSide) > 1 || len(docSide) > 1 {
			if !policy.OrdinalTiebreak {
				err := &AmbiguousIdentityError{Scope: scope.Name}
				for _, comp := range graphSide {
					err.Refs = append(err.Refs, comp.Ref)
				}
				for _, group := range docSide {
					err.Candidates = append(err.Candidates, group.primary.UUID())
				}
				return nil, err
			}
		}
		n := len(graphSide)
		if len(docSide) < n {
			n = len(docSide)
		}
		for i := 0; i < n; i++ {
			comp, group := graphSide[i], docSide[i]
			res.Matches = append(res.Matches, ComponentMatch{
				Comp:    comp,
				Primary: group.primary,
				Units:   group.units,
				OldRef:  group.ref,
			})
			res.RenameMap[group.ref] = comp.Ref
			matchedDoc[group.ref] = true
			matchedGraph[comp.Ref] = true
		}
	}

	for _, comp := range pending {
		if !matchedGraph[comp.Ref] {
			res.Matches = append(res.Matches, ComponentMatch{Comp: comp})
		}
	}
	for _, ref := range order {
		group, ok := groups[ref]
		if !ok || matchedDoc[ref] {
			continue
		}
		if group.orphan {
			res.Ignored = append(res.Ignored, group.ref)
			continue
		}
		res.Removed = append(res.Removed, RemovedComponent{
			Ref:     group.ref,
			Primary: group.primary,
			Units:   group.units,
		})
	}

	return res, nil
}

// collectGroups indexes the document's components by reference. Two
// elements claiming the same reference and unit index is a duplicate.
func collectGroups(scope string, doc *schematic.Document) (map[string]*docGroup, []string, error) {
	groups := make(map[string]*docGroup)
	var order []string
	for _, e := range doc.Components() {
		ref := e.Reference()
		group, ok := groups[ref]
		if !ok {
			group = &docGroup{ref: ref}
			groups[ref] = group
			order = append(order, ref)
		}
		for _, unit := range group.units {
			if unit.Unit() == e.Unit() {
				return nil, nil, &DuplicateReferenceError{Ref: ref, Scope: scope}
			}
		}
		group.units = append(group.units, e)
		if group.primary == nil || e.Unit() < group.primary.Unit() {
			group.primary = e
		}
	}
	for _, group := range groups {
		_, group.orphan = group.primary.Property(schematic.PropOrphan)
	}
	return groups, order, nil
}

// docPinNets maps every attached pin ("R1.1") to the net name of its label.
// References are translated through renames when a rename map is given.
func docPinNets(doc *schematic.Document, renameMap map[string]string) map[string]string {
	pins := make(map[string]string)
	for _, e := range doc.Elements {
		if !isNetLabel(e) {
			continue
		}
		attach, ok := e.Property(schematic.PropAttach)
		if !ok || attach == "" {
			continue
		}
		pins[translatePin(attach, renameMap)] = e.Text()
	}
	return pins
}

func isNetLabel(e *schematic.Element) bool {
	switch e.Kind {
	case schematic.KindLabel, schematic.KindGlobalLabel, schematic.KindHierLabel:
		return true
	}
	return false
}

// translatePin rewrites the reference half of a "REF.PIN" key through the
// rename map.
func translatePin(pin string, renameMap map[string]string) string {
	if len(renameMap) == 0 {
		return pin
	}
	ref, id, ok := strings.Cut(pin, ".")
	if !ok {
		return pin
	}
	if newRef, renamed := renameMap[ref]; renamed {
		return newRef + "." + id
	}
	return pin
}

// graphFingerprint builds the structural identity of a graph component:
// symbol, footprint, and the sorted pin-to-net signature.
func graphFingerprint(comp *circuit.Component, scope *circuit.Circuit) string {
	var segs []string
	for _, name := range scope.NetNames() {
		for _, pin := range scope.Nets[name].Pins {
			if pin.Component == comp.Ref {
				segs = append(segs, pin.Pin+"="+name)
			}
		}
	}
	sort.Strings(segs)
	return comp.SymbolID + "\x1f" + comp.Footprint + "\x1f" + strings.Join(segs, ",")
}

// docFingerprint builds the same signature for a document component group.
func docFingerprint(group *docGroup, pinNets map[string]string) string {
	prefix := group.ref + "."
	var segs []string
	for pin, net := range pinNets {
		if strings.HasPrefix(pin, prefix) {
			segs = append(segs, pin[len(prefix):]+"="+net)
		}
	}
	sort.Strings(segs)
	footprint, _ := group.primary.Property(schematic.PropFootprint)
	return group.primary.LibID() + "\x1f" + footprint + "\x1f" + strings.Join(segs, ",")
}

// netPair binds one graph net to a document net name. DocName is empty for
// new nets.
type netPair struct {
	Net     *circuit.Net
	DocName string
}

// NetResolution is the identity mapping for a scope's nets. Net identity is
// the connected pin-set, so an unchanged pin-set under a new name is a
// rename, and partial overlaps resolve to pin-level attach/detach against
// the best-overlapping document net.
type NetResolution struct {
	Pairs      []netPair
	RemovedDoc []string

	// DocPins maps each live document pin to its current net name, with
	// references already translated through component renames. Pins of
	// removed or orphaned components are excluded.
	DocPins map[string]string
}

// ResolveNets matches the scope's nets against the document's label-derived
// nets. excludeRefs lists references whose pins must not participate
// (orphans and removals handled at the component level).
func ResolveNets(scope *circuit.Circuit, doc *schematic.Document, renameMap map[string]string, excludeRefs map[string]bool) *NetResolution {
	allPins := docPinNets(doc, renameMap)

	docPins := make(map[string]string)
	docNets := make(map[string][]string)
	for pin, net := range allPins {
		ref, _, _ := strings.Cut(pin, ".")
		if excludeRefs[ref] {
			continue
		}
		docPins[pin] = net
		docNets[net] = append(docNets[net], pin)
	}
	// Bare labels keep a zero-pin net alive.
	for _, e := range doc.Elements {
		if !isNetLabel(e) {
			continue
		}
		if attach, ok := e.Property(schematic.PropAttach); ok && attach != "" {
			continue
		}
		name := e.Text()
		if _, ok := docNets[name]; !ok {
			docNets[name] = nil
		}
	}
	for _, pins := range docNets {
		sort.Strings(pins)
	}

	res := &NetResolution{DocPins: docPins}
	docTaken := make(map[string]bool)
	graphTaken := make(map[string]bool)

	graphPins := func(net *circuit.Net) []string {
		pins := make([]string, 0, len(net.Pins))
		for _, pin := range net.Pins {
			pins = append(pins, pin.String())
		}
		sort.Strings(pins)
		return pins
	}
	pair := func(net *circuit.Net, docName string) {
		res.Pairs = append(res.Pairs, netPair{Net: net, DocName: docName})
		graphTaken[net.Name] = true
		if docName != "" {
			docTaken[docName] = true
		}
	}

	names := scope.NetNames()

	// Same name, same pin-set.
	for _, name := range names {
		net := scope.Nets[name]
		if pins, ok := docNets[name]; ok && setKey(pins) == setKey(graphPins(net)) {
			pair(net, name)
		}
	}

	// Same non-empty pin-set under a different name: a rename.
	bySet := make(map[string][]string)
	for docName, pins := range docNets {
		if docTaken[docName] || len(pins) == 0 {
			continue
		}
		bySet[setKey(pins)] = append(bySet[setKey(pins)], docName)
	}
	for _, candidates := range bySet {
		sort.Strings(candidates)
	}
	for _, name := range names {
		net := scope.Nets[name]
		if graphTaken[name] || len(net.Pins) == 0 {
			continue
		}
		key := setKey(graphPins(net))
		for _, docName := range bySet[key] {
			if !docTaken[docName] {
				pair(net, docName)
				break
			}
		}
	}

	// Same name, pin-set changed.
	for _, name := range names {
		net := scope.Nets[name]
		if graphTaken[name] || docTaken[name] {
			continue
		}
		if _, ok := docNets[name]; ok {
			pair(net, name)
		}
	}

	// Best remaining overlap: largest pin intersection, ties by name.
	var remainingDoc []string
	for docName := range docNets {
		if !docTaken[docName] {
			remainingDoc = append(remainingDoc, docName)
		}
	}
	sort.Strings(remainingDoc)
	for _, name := range names {
		net := scope.Nets[name]
		if graphTaken[name] {
			continue
		}
		want := graphPins(net)
		best, bestOverlap := "", 0
		for _, docName := range remainingDoc {
			if docTaken[docName] {
				continue
			}
			if n := overlap(want, docNets[docName]); n > bestOverlap {
				best, bestOverlap = docName, n
			}
		}
		pair(net, best)
	}

	for _, docName := range sortedNetNames(docNets) {
		if !docTaken[docName] {
			res.RemovedDoc = append(res.RemovedDoc, docName)
		}
	}
	return res
}

func setKey(sorted []string) string {
	return strings.Join(sorted, "\x1f")
}

func overlap(a, b []string) int {
	in := make(map[string]bool, len(a))
	for _, s := range a {
		in[s] = true
	}
	n := 0
	for _, s := range b {
		if in[s] {
			n++
		}
	}
	return n
}

func sortedNetNames(nets map[string][]string) []string {
	names := make([]string, 0, len(nets))
	for name := range nets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
