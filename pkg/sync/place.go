package sync

import (
	"fmt"

	"github.com/OpenTraceLab/schsync/pkg/schematic"
)

// Allocation defaults, in millimeters. The pitch leaves a full clearance
// band between adjacent symbol envelopes.
const (
	defaultOriginX   = 50.8
	defaultOriginY   = 50.8
	defaultPitch     = 25.4
	defaultColumns   = 8
	defaultClearance = 2.54
	defaultMaxCells  = 4096

	labelOffsetX = 10.16
	labelPitchY  = 2.54
)

// Allocator assigns grid positions to new elements without overlapping any
// existing geometry. The search is bounded; exhausting it is a
// CollisionError, never a silent overlap.
type Allocator struct {
	Origin    schematic.Position
	Pitch     float64
	Columns   int
	Clearance float64
	MaxCells  int
}

// NewAllocator returns an allocator with the default grid.
func NewAllocator() *Allocator {
	return &Allocator{
		Origin:    schematic.Position{X: defaultOriginX, Y: defaultOriginY},
		Pitch:     defaultPitch,
		Columns:   defaultColumns,
		Clearance: defaultClearance,
		MaxCells:  defaultMaxCells,
	}
}

// Place positions each element at the first free grid cell, left to right,
// top to bottom. Elements already in the document (including ones placed
// by earlier calls) count as occupied.
func (a *Allocator) Place(doc *schematic.Document, elems []*schematic.Element) error {
	occupied := a.occupiedBoxes(doc, elems)
	cell := 0
	for _, e := range elems {
		placed := false
		for ; cell < a.MaxCells; cell++ {
			pos := a.cellPosition(cell)
			box := boundsAt(e, pos).Inflate(a.Clearance)
			if intersectsAny(box, occupied) {
				continue
			}
			e.SetPosition(schematic.PositionAngle{Position: pos})
			occupied = append(occupied, boundsAt(e, pos))
			placed = true
			cell++
			break
		}
		if !placed {
			return &CollisionError{Element: describe(e), Cells: a.MaxCells}
		}
	}
	return nil
}

// PlaceSheets tiles sheet frames in a row below all existing geometry,
// used by the hierarchical strategy so sheet outlines never interleave
// with component rows.
func (a *Allocator) PlaceSheets(doc *schematic.Document, sheets []*schematic.Element) error {
	if len(sheets) == 0 {
		return nil
	}
	occupied := a.occupiedBoxes(doc, sheets)

	bottom := a.Origin.Y
	for _, box := range occupied {
		if box.Max.Y > bottom {
			bottom = box.Max.Y
		}
	}
	y := bottom + a.Pitch

	x := a.Origin.X
	for _, sheet := range sheets {
		placed := false
		for step := 0; step < a.MaxCells; step++ {
			pos := schematic.Position{X: x, Y: y}
			box := boundsAt(sheet, pos).Inflate(a.Clearance)
			if intersectsAny(box, occupied) {
				x += a.Pitch
				continue
			}
			sheet.SetPosition(schematic.PositionAngle{Position: pos})
			raw := boundsAt(sheet, pos)
			occupied = append(occupied, raw)
			x = raw.Max.X + a.Clearance*2
			placed = true
			break
		}
		if !placed {
			return &CollisionError{Element: describe(sheet), Cells: a.MaxCells}
		}
	}
	return nil
}

// PlaceLabels positions anchored labels next to their component's primary
// unit, stacked by the slot the merge step assigned. Anchors missing from
// the document leave the label at the origin of its grid fallback.
func (a *Allocator) PlaceLabels(doc *schematic.Document, labels []PendingLabel) {
	for _, pl := range labels {
		primary, _ := doc.ComponentByReference(pl.Anchor)
		if primary == nil {
			continue
		}
		anchor := primary.Position()
		pl.Element.SetPosition(schematic.PositionAngle{Position: schematic.Position{
			X: anchor.X + labelOffsetX,
			Y: anchor.Y + float64(pl.Slot)*labelPitchY,
		}})
	}
}

func (a *Allocator) cellPosition(cell int) schematic.Position {
	col := cell % a.Columns
	row := cell / a.Columns
	return schematic.Position{
		X: a.Origin.X + float64(col)*a.Pitch,
		Y: a.Origin.Y + float64(row)*a.Pitch,
	}
}

// occupiedBoxes collects the bounds of every placed element except the ones
// about to be positioned (their provisional origin geometry would poison
// the first grid cells).
func (a *Allocator) occupiedBoxes(doc *schematic.Document, moving []*schematic.Element) []schematic.BoundingBox {
	skip := make(map[*schematic.Element]bool, len(moving))
	for _, e := range moving {
		skip[e] = true
	}
	var boxes []schematic.BoundingBox
	for _, e := range doc.Elements {
		if skip[e] {
			continue
		}
		if box := e.EstimateBounds(); !box.IsEmpty() {
			boxes = append(boxes, box)
		}
	}
	return boxes
}

// boundsAt returns the element's estimated box translated to pos.
func boundsAt(e *schematic.Element, pos schematic.Position) schematic.BoundingBox {
	box := e.EstimateBounds()
	cur := e.Position()
	dx, dy := pos.X-cur.X, pos.Y-cur.Y
	return schematic.BoundingBox{
		Min: schematic.Position{X: box.Min.X + dx, Y: box.Min.Y + dy},
		Max: schematic.Position{X: box.Max.X + dx, Y: box.Max.Y + dy},
	}
}

func intersectsAny(box schematic.BoundingBox, others []schematic.BoundingBox) bool {
	for _, other := range others {
		if box.Intersects(other) {
			return true
		}
	}
	return false
}

func describe(e *schematic.Element) string {
	if ref := e.Reference(); ref != "" {
		return fmt.Sprintf("%s %s", e.Kind, ref)
	}
	if text := e.Text(); text != "" {
		return fmt.Sprintf("%s %q", e.Kind, text)
	}
	return e.Kind.String()
}
