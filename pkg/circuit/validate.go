package circuit

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/schsync/pkg/symbols"
)

// Validate checks the graph invariants:
//   - every net pin references a component that exists in its scope
//   - a pin belongs to at most one net
//   - referenced pins exist on the component's symbol, when the symbol
//     resolves; unresolvable symbols are skipped, not failed, since
//     library completeness is outside the graph's authority
func (g *Graph) Validate(resolver symbols.Resolver) error {
	if g.Root == nil {
		return fmt.Errorf("graph has no root circuit")
	}

	var errs []error
	g.Root.Walk(func(c *Circuit) {
		if err := c.validate(resolver); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

func (c *Circuit) validate(resolver symbols.Resolver) error {
	seen := make(map[PinRef]string, len(c.Nets))

	for _, netName := range c.NetNames() {
		net := c.Nets[netName]
		for _, pin := range net.Pins {
			comp, ok := c.Components[pin.Component]
			if !ok {
				return fmt.Errorf("circuit %q: net %q references unknown component %q",
					c.Name, netName, pin.Component)
			}
			if prev, dup := seen[pin]; dup {
				return fmt.Errorf("circuit %q: pin %s connected to both %q and %q",
					c.Name, pin, prev, netName)
			}
			seen[pin] = netName

			if resolver == nil {
				continue
			}
			sym, err := resolver.Resolve(comp.SymbolID)
			if err != nil {
				var unknown *symbols.UnknownSymbolError
				if errors.As(err, &unknown) {
					continue
				}
				return fmt.Errorf("circuit %q: resolving %q: %w", c.Name, comp.SymbolID, err)
			}
			if _, ok := sym.PinByID(pin.Pin); !ok {
				return fmt.Errorf("circuit %q: component %q has no pin %q on symbol %q",
					c.Name, pin.Component, pin.Pin, comp.SymbolID)
			}
		}
	}
	return nil
}
