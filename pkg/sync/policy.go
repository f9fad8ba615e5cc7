package sync

// Strategy selects how the placement allocator positions new elements.
type Strategy string

const (
	// StrategySimple fills a fixed-pitch grid left to right, top to bottom.
	StrategySimple Strategy = "simple"
	// StrategyHierarchical lays out each sheet's elements with the simple
	// grid and tiles hierarchical sheet frames below existing content.
	StrategyHierarchical Strategy = "hierarchical"
)

// Policy controls how a generation run treats material that exists only in
// the schematic files.
type Policy struct {
	// PreserveUserComponents converts a component removal into an orphan
	// mark instead of deleting the element and its labels.
	PreserveUserComponents bool

	// OrdinalTiebreak pairs ambiguous rename candidates by stable order
	// (graph references sorted, document elements in file order) instead
	// of failing with AmbiguousIdentityError.
	OrdinalTiebreak bool

	// Placement selects the allocation strategy for new elements.
	Placement Strategy

	// GeneratePCB requests the downstream board generation step after a
	// successful schematic write. The engine only records the request.
	GeneratePCB bool
}

// DefaultPolicy preserves user components and places with the simple grid.
func DefaultPolicy() Policy {
	return Policy{
		PreserveUserComponents: true,
		Placement:              StrategySimple,
	}
}
