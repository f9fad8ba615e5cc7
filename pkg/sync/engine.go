package sync

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/OpenTraceLab/schsync/pkg/circuit"
	"github.com/OpenTraceLab/schsync/pkg/schematic"
	"github.com/OpenTraceLab/schsync/pkg/symbols"
)

// Engine runs the synchronization entry points. One invocation owns its
// project exclusively; nothing reaches the disk before the final atomic
// writes.
type Engine struct {
	log      *zap.Logger
	resolver symbols.Resolver
}

// New creates an engine. A nil logger disables logging; a nil resolver
// degrades every symbol to an empty pin list.
func New(logger *zap.Logger, resolver symbols.Resolver) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = symbols.StaticResolver{}
	}
	return &Engine{log: logger, resolver: resolver}
}

// Generate synchronizes the graph into the schematic project at path,
// creating it when absent. An existing file that does not parse aborts the
// run untouched. Returns the written root path.
func (e *Engine) Generate(g *circuit.Graph, path string, policy Policy) (string, error) {
	if err := ValidateGraph(g); err != nil {
		return "", err
	}
	if err := g.Validate(e.resolver); err != nil {
		return "", fmt.Errorf("invalid circuit graph: %w", err)
	}
	if policy.Placement == "" {
		policy.Placement = StrategySimple
	}

	project, fresh, err := loadOrCreate(path)
	if err != nil {
		return "", err
	}
	e.log.Debug("project loaded",
		zap.String("path", path),
		zap.Bool("fresh", fresh),
		zap.Int("elements", len(project.Root.Elements)))

	script, err := Diff(g, project, policy)
	if err != nil {
		return "", err
	}
	e.log.Info("edit script computed",
		zap.String("scope", script.Scope),
		zap.Int("ops", script.Len()))
	if script.Empty() {
		if fresh {
			if err := project.Save(); err != nil {
				return "", err
			}
		}
		return path, nil
	}

	pending, err := Apply(script, project, e.resolver, policy)
	if err != nil {
		return "", err
	}
	if err := e.place(pending, policy); err != nil {
		return "", err
	}

	if err := project.Save(); err != nil {
		return "", fmt.Errorf("writing project: %w", err)
	}
	e.log.Info("project written", zap.String("path", path))

	if policy.GeneratePCB {
		e.log.Info("pcb generation requested, deferred to the board pipeline")
	}
	return path, nil
}

// Import rebuilds a circuit graph from the schematic project at path. The
// files are never modified.
func (e *Engine) Import(path string) (*circuit.Graph, error) {
	project, err := schematic.LoadProject(path)
	if err != nil {
		return nil, err
	}
	g, err := Extract(project)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}
	e.log.Info("imported project",
		zap.String("path", path),
		zap.Int("components", len(g.Root.Components)),
		zap.Int("nets", len(g.Root.Nets)))
	return g, nil
}

func (e *Engine) place(pending ApplyResult, policy Policy) error {
	for doc, p := range pending {
		alloc := NewAllocator()

		grid := p.Grid
		if policy.Placement == StrategyHierarchical {
			if err := alloc.PlaceSheets(doc, p.Sheets); err != nil {
				return err
			}
		} else {
			grid = append(grid, p.Sheets...)
		}
		if err := alloc.Place(doc, grid); err != nil {
			return err
		}
		alloc.PlaceLabels(doc, p.Labels)
	}
	return nil
}

func loadOrCreate(path string) (*schematic.Project, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return schematic.NewProject(path), true, nil
		}
		return nil, false, err
	}
	project, err := schematic.LoadProject(path)
	if err != nil {
		return nil, false, err
	}
	return project, false, nil
}

// ValidateGraph checks the structural invariants a malformed driver input
// could violate: component records must carry their map key as Ref, and no
// reference may appear twice in one scope.
func ValidateGraph(g *circuit.Graph) error {
	if g == nil || g.Root == nil {
		return fmt.Errorf("nil circuit graph")
	}
	var verr error
	g.Root.Walk(func(c *circuit.Circuit) {
		if verr != nil {
			return
		}
		seen := make(map[string]bool)
		for key, comp := range c.Components {
			if comp.Ref == "" {
				comp.Ref = key
			}
			if comp.Ref != key || seen[comp.Ref] {
				verr = &DuplicateReferenceError{Ref: comp.Ref, Scope: c.Name}
				return
			}
			seen[comp.Ref] = true
		}
	})
	return verr
}
