// Package circuit defines the normalized circuit graph produced by the
// authoring layer: components, nets, and the subcircuit hierarchy. The graph
// is the structural truth a generation run synchronizes into a schematic
// document.
package circuit

import "fmt"

// Placement is an explicit, author-supplied position for a component.
// Components without one are positioned by the allocator.
type Placement struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation,omitempty"`
}

// Component is one part in a circuit scope, keyed by its reference.
type Component struct {
	Ref        string           `json:"ref"`
	SymbolID   string           `json:"symbol"`
	Value      string           `json:"value,omitempty"`
	Footprint  string           `json:"footprint,omitempty"`
	Placement  *Placement       `json:"placement,omitempty"`
	Properties map[string]Value `json:"properties,omitempty"`
}

// PinRef identifies one component pin.
type PinRef struct {
	Component string `json:"component"`
	Pin       string `json:"pin"`
}

func (p PinRef) String() string {
	return p.Component + "." + p.Pin
}

// Net is a named set of electrically connected pins. Order is the
// authoring order; identity for synchronization purposes is the pin-set,
// not the name.
type Net struct {
	Name string   `json:"name"`
	Pins []PinRef `json:"pins"`
}

// Circuit is one scope of the hierarchy: its local components and nets,
// plus child subcircuit instances. Parent is the enclosing scope's name
// (an index-based back-reference, "" for the root) so the tree carries no
// ownership cycles.
type Circuit struct {
	Name       string               `json:"name"`
	Parent     string               `json:"parent,omitempty"`
	Components map[string]*Component `json:"components,omitempty"`
	Nets       map[string]*Net      `json:"nets,omitempty"`
	Children   []*SubcircuitInstance `json:"children,omitempty"`
}

// SubcircuitInstance is a placed instance of a child scope. Binds maps the
// child's interface net names to nets in this scope.
type SubcircuitInstance struct {
	Name    string            `json:"name"`
	Circuit *Circuit          `json:"circuit"`
	Binds   map[string]string `json:"binds,omitempty"`
}

// Graph is the root of a circuit hierarchy, immutable per generation call.
type Graph struct {
	Root *Circuit `json:"root"`
}

// NewCircuit creates an empty circuit scope.
func NewCircuit(name string) *Circuit {
	return &Circuit{
		Name:       name,
		Components: make(map[string]*Component),
		Nets:       make(map[string]*Net),
	}
}

// AddComponent registers a component in this scope. Adding a reference
// that already exists is an authoring error.
func (c *Circuit) AddComponent(comp *Component) error {
	if comp.Ref == "" {
		return fmt.Errorf("component has empty reference")
	}
	if _, exists := c.Components[comp.Ref]; exists {
		return fmt.Errorf("duplicate reference %q in circuit %q", comp.Ref, c.Name)
	}
	if c.Components == nil {
		c.Components = make(map[string]*Component)
	}
	c.Components[comp.Ref] = comp
	return nil
}

// Connect attaches pins to the named net, creating the net if needed.
// A pin already attached to a different net is an authoring error: a pin
// belongs to at most one net.
func (c *Circuit) Connect(netName string, pins ...PinRef) error {
	if c.Nets == nil {
		c.Nets = make(map[string]*Net)
	}
	net := c.Nets[netName]
	if net == nil {
		net = &Net{Name: netName}
		c.Nets[netName] = net
	}
	for _, pin := range pins {
		if owner := c.netOf(pin); owner != nil && owner != net {
			return fmt.Errorf("pin %s already connected to net %q", pin, owner.Name)
		}
		if owner := c.netOf(pin); owner == net {
			continue
		}
		net.Pins = append(net.Pins, pin)
	}
	return nil
}

// AddChild registers a subcircuit instance. The child's Parent back
// reference is set to this scope's name.
func (c *Circuit) AddChild(inst *SubcircuitInstance) {
	inst.Circuit.Parent = c.Name
	c.Children = append(c.Children, inst)
}

func (c *Circuit) netOf(pin PinRef) *Net {
	for _, net := range c.Nets {
		for _, p := range net.Pins {
			if p == pin {
				return net
			}
		}
	}
	return nil
}

// ComponentRefs returns component references in deterministic order.
func (c *Circuit) ComponentRefs() []string {
	return sortedKeys(c.Components)
}

// NetNames returns net names in deterministic order.
func (c *Circuit) NetNames() []string {
	return sortedKeys(c.Nets)
}

// Walk visits this circuit and all descendant scopes depth-first.
func (c *Circuit) Walk(visit func(*Circuit)) {
	visit(c)
	for _, child := range c.Children {
		child.Circuit.Walk(visit)
	}
}
