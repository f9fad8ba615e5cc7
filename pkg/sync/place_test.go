package sync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/OpenTraceLab/schsync/pkg/schematic"
)

func TestPlaceNeverOverlaps(t *testing.T) {
	doc := schematic.NewDocument()
	var placed []*schematic.Element
	for i := 0; i < 12; i++ {
		e := schematic.NewSymbol("Device:R")
		e.SetProperty(schematic.PropReference, fmt.Sprintf("R%d", i+1))
		doc.Add(e)
		placed = append(placed, e)
	}

	alloc := NewAllocator()
	if err := alloc.Place(doc, placed); err != nil {
		t.Fatalf("place: %v", err)
	}

	for i := range placed {
		a := placed[i].EstimateBounds()
		for j := i + 1; j < len(placed); j++ {
			b := placed[j].EstimateBounds()
			if a.Intersects(b) {
				t.Errorf("%s overlaps %s: %+v vs %+v",
					placed[i].Reference(), placed[j].Reference(), a, b)
			}
		}
	}
}

func TestPlaceAvoidsExistingElements(t *testing.T) {
	doc := schematic.NewDocument()
	existing := schematic.NewSymbol("Device:R")
	existing.SetProperty(schematic.PropReference, "R1")
	existing.SetPosition(schematic.PositionAngle{
		Position: schematic.Position{X: 50.8, Y: 50.8},
	})
	doc.Add(existing)

	fresh := schematic.NewSymbol("Device:C")
	fresh.SetProperty(schematic.PropReference, "C1")
	doc.Add(fresh)

	alloc := NewAllocator()
	if err := alloc.Place(doc, []*schematic.Element{fresh}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if fresh.EstimateBounds().Intersects(existing.EstimateBounds()) {
		t.Errorf("new element placed on top of existing one at %+v", fresh.Position())
	}
}

func TestPlaceReportsExhaustion(t *testing.T) {
	doc := schematic.NewDocument()
	blocker := schematic.NewSymbol("Device:R")
	blocker.SetPosition(schematic.PositionAngle{
		Position: schematic.Position{X: 50.8, Y: 50.8},
	})
	doc.Add(blocker)

	fresh := schematic.NewSymbol("Device:C")
	doc.Add(fresh)

	alloc := NewAllocator()
	alloc.MaxCells = 1
	err := alloc.Place(doc, []*schematic.Element{fresh})
	var collision *CollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected CollisionError, got %v", err)
	}
	if collision.Cells != 1 {
		t.Errorf("Cells = %d, want 1", collision.Cells)
	}
}

func TestPlaceSheetsBelowContent(t *testing.T) {
	doc := schematic.NewDocument()
	sym := schematic.NewSymbol("Device:R")
	sym.SetPosition(schematic.PositionAngle{
		Position: schematic.Position{X: 50.8, Y: 50.8},
	})
	doc.Add(sym)

	sheet := schematic.NewSheet("psu", "psu.kicad_sch")
	doc.Add(sheet)

	alloc := NewAllocator()
	if err := alloc.PlaceSheets(doc, []*schematic.Element{sheet}); err != nil {
		t.Fatalf("place sheets: %v", err)
	}
	if got, want := sheet.Position().Y, sym.EstimateBounds().Max.Y; got <= want {
		t.Errorf("sheet at y=%v, want below existing content (%v)", got, want)
	}
	if sheet.EstimateBounds().Intersects(sym.EstimateBounds()) {
		t.Error("sheet frame overlaps existing symbol")
	}
}

func TestPlaceLabelsAnchorNearPins(t *testing.T) {
	doc := schematic.NewDocument()
	sym := schematic.NewSymbol("Device:R")
	sym.SetProperty(schematic.PropReference, "R1")
	sym.SetPosition(schematic.PositionAngle{
		Position: schematic.Position{X: 101.6, Y: 50.8},
	})
	doc.Add(sym)

	l1 := schematic.NewLabel("VCC")
	l1.SetProperty(schematic.PropAttach, "R1.1")
	doc.Add(l1)
	l2 := schematic.NewLabel("GND")
	l2.SetProperty(schematic.PropAttach, "R1.2")
	doc.Add(l2)

	alloc := NewAllocator()
	alloc.PlaceLabels(doc, []PendingLabel{
		{Element: l1, Anchor: "R1", Pin: "1", Slot: 0},
		{Element: l2, Anchor: "R1", Pin: "2", Slot: 1},
	})

	p1, p2 := l1.Position(), l2.Position()
	if p1.X != 101.6+labelOffsetX || p1.Y != 50.8 {
		t.Errorf("pin 1 label at (%v, %v)", p1.X, p1.Y)
	}
	if p2.Y != 50.8+labelPitchY {
		t.Errorf("pin 2 label not offset below pin 1: y=%v", p2.Y)
	}
}
