package schematic

import "github.com/OpenTraceLab/schsync/pkg/sexpr"

// Estimated element extents in mm, used for collision avoidance. Symbol
// bodies vary by library part; a fixed envelope around the anchor is enough
// to keep newly placed elements from stacking.
const (
	symbolHalfWidth  = 7.62
	symbolHalfHeight = 7.62
	labelHalfExtent  = 2.54
	pointHalfExtent  = 0.635
)

// EstimateBounds returns the element's estimated occupied box. Elements
// without geometry return an empty box.
func (e *Element) EstimateBounds() BoundingBox {
	switch e.Kind {
	case KindSymbol, KindPowerSymbol:
		pos := e.Position()
		return BoundingBox{
			Min: Position{X: pos.X - symbolHalfWidth, Y: pos.Y - symbolHalfHeight},
			Max: Position{X: pos.X + symbolHalfWidth, Y: pos.Y + symbolHalfHeight},
		}

	case KindLabel, KindGlobalLabel, KindHierLabel, KindText:
		pos := e.Position()
		return BoundingBox{
			Min: Position{X: pos.X - labelHalfExtent, Y: pos.Y - labelHalfExtent},
			Max: Position{X: pos.X + labelHalfExtent, Y: pos.Y + labelHalfExtent},
		}

	case KindWire, KindBus, KindPolyline:
		box := NewBoundingBox()
		for _, pt := range e.WirePoints() {
			box.Expand(pt)
		}
		return box

	case KindJunction, KindNoConnect, KindBusEntry:
		pos := e.Position()
		return BoundingBox{
			Min: Position{X: pos.X - pointHalfExtent, Y: pos.Y - pointHalfExtent},
			Max: Position{X: pos.X + pointHalfExtent, Y: pos.Y + pointHalfExtent},
		}

	case KindSheet:
		pos := e.Position()
		w := sexpr.ChildFloat(e.Node, "size", 0)
		h := 0.0
		if size, ok := sexpr.Find(e.Node, "size"); ok {
			h, _ = sexpr.FloatAt(size, 2)
		}
		return BoundingBox{
			Min: Position{X: pos.X, Y: pos.Y},
			Max: Position{X: pos.X + w, Y: pos.Y + h},
		}
	}

	return NewBoundingBox()
}
