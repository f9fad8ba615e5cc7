// Package symbols resolves symbol library identifiers to pin definitions.
// The sync engine consumes this as a capability and degrades gracefully
// when a symbol cannot be resolved: library completeness is not the
// engine's authority.
package symbols

import "fmt"

// Pin is one pin of a library symbol.
type Pin struct {
	ID   string // pin number as printed on the symbol ("1", "A7")
	Name string // pin name ("VCC", "GND", "~RESET")
	Unit int    // owning unit for multi-unit symbols, 1-based; 0 = all units
}

// Symbol is the resolved definition of a library part.
type Symbol struct {
	ID        string // library identifier ("Device:R")
	Pins      []Pin  // ordered as defined in the library
	UnitCount int    // number of placeable units, at least 1
}

// IsMultiUnit reports whether the symbol occupies several placed units.
func (s *Symbol) IsMultiUnit() bool {
	return s.UnitCount > 1
}

// PinByID returns the pin with the given id.
func (s *Symbol) PinByID(id string) (Pin, bool) {
	for _, p := range s.Pins {
		if p.ID == id {
			return p, true
		}
	}
	return Pin{}, false
}

// PinsOfUnit returns the pins belonging to one unit (including pins shared
// by all units).
func (s *Symbol) PinsOfUnit(unit int) []Pin {
	var pins []Pin
	for _, p := range s.Pins {
		if p.Unit == 0 || p.Unit == unit {
			pins = append(pins, p)
		}
	}
	return pins
}

// UnknownSymbolError reports a symbol id that no library provides.
type UnknownSymbolError struct {
	ID string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q", e.ID)
}

// Resolver resolves symbol identifiers to their definitions.
type Resolver interface {
	// Resolve returns the symbol definition, or an UnknownSymbolError.
	Resolve(symbolID string) (*Symbol, error)
}

// StaticResolver resolves from an in-memory table. Used by drivers that
// supply their own pin data and by tests.
type StaticResolver map[string]*Symbol

// Resolve implements Resolver.
func (r StaticResolver) Resolve(symbolID string) (*Symbol, error) {
	sym, ok := r[symbolID]
	if !ok {
		return nil, &UnknownSymbolError{ID: symbolID}
	}
	return sym, nil
}

// TwoPin is a convenience definition for simple passives.
func TwoPin(id string) *Symbol {
	return &Symbol{
		ID:        id,
		Pins:      []Pin{{ID: "1", Name: "~"}, {ID: "2", Name: "~"}},
		UnitCount: 1,
	}
}
