package symbols

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/schsync/pkg/sexpr"
)

// LibraryResolver resolves symbols from .kicad_sym library files found in
// one or more directories. A symbol id "Device:R" maps to the symbol "R"
// in "Device.kicad_sym". Parsed libraries are cached per library name.
type LibraryResolver struct {
	dirs  []string
	cache map[string]map[string]*Symbol // lib name -> symbol name -> def
}

// NewLibraryResolver creates a resolver searching the given directories in
// order.
func NewLibraryResolver(dirs ...string) *LibraryResolver {
	return &LibraryResolver{
		dirs:  dirs,
		cache: make(map[string]map[string]*Symbol),
	}
}

// Resolve implements Resolver.
func (r *LibraryResolver) Resolve(symbolID string) (*Symbol, error) {
	lib, name, ok := strings.Cut(symbolID, ":")
	if !ok {
		return nil, &UnknownSymbolError{ID: symbolID}
	}

	table, err := r.library(lib)
	if err != nil {
		return nil, err
	}
	sym, ok := table[name]
	if !ok {
		return nil, &UnknownSymbolError{ID: symbolID}
	}
	return sym, nil
}

func (r *LibraryResolver) library(lib string) (map[string]*Symbol, error) {
	if table, ok := r.cache[lib]; ok {
		return table, nil
	}

	for _, dir := range r.dirs {
		path := filepath.Join(dir, lib+".kicad_sym")
		file, err := os.Open(path)
		if err != nil {
			continue
		}
		table, err := parseLibrary(lib, file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse library %s: %w", path, err)
		}
		r.cache[lib] = table
		return table, nil
	}

	return nil, &UnknownSymbolError{ID: lib + ":"}
}

// parseLibrary reads a (kicad_symbol_lib ...) file into a symbol table.
func parseLibrary(lib string, f *os.File) (map[string]*Symbol, error) {
	nodes, err := sexpr.Parse(f)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("empty library file")
	}
	root, ok := nodes[0].(*sexpr.List)
	if !ok || root.Name() != "kicad_symbol_lib" {
		return nil, fmt.Errorf("not a symbol library: expected (kicad_symbol_lib ...)")
	}

	table := make(map[string]*Symbol)
	for _, symNode := range sexpr.FindAll(root, "symbol") {
		sym := parseLibSymbol(lib, symNode)
		if sym != nil {
			table[strings.TrimPrefix(sym.ID, lib+":")] = sym
		}
	}
	return table, nil
}

// parseLibSymbol reads one top-level symbol definition, collecting pins from
// its nested unit symbols.
func parseLibSymbol(lib string, node *sexpr.List) *Symbol {
	name, err := sexpr.StringAt(node, 1)
	if err != nil {
		return nil
	}

	sym := &Symbol{ID: lib + ":" + name, UnitCount: 1}

	for _, unitNode := range sexpr.FindAll(node, "symbol") {
		unitName, err := sexpr.StringAt(unitNode, 1)
		if err != nil {
			continue
		}
		unit := unitIndex(name, unitName)
		if unit > sym.UnitCount {
			sym.UnitCount = unit
		}
		for _, pinNode := range sexpr.FindAll(unitNode, "pin") {
			pin := Pin{Unit: unit}
			if numNode, ok := sexpr.Find(pinNode, "number"); ok {
				pin.ID, _ = sexpr.StringAt(numNode, 1)
			}
			if nameNode, ok := sexpr.Find(pinNode, "name"); ok {
				pin.Name, _ = sexpr.StringAt(nameNode, 1)
			}
			if pin.ID != "" {
				sym.Pins = append(sym.Pins, pin)
			}
		}
	}

	return sym
}

// unitIndex extracts the unit number from a nested symbol name of the form
// "NAME_<unit>_<style>". Unit 0 holds pins common to all units.
func unitIndex(base, unitName string) int {
	rest := strings.TrimPrefix(unitName, base+"_")
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) == 0 {
		return 0
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	return n
}
