package sexpr

import (
	"fmt"
	"strconv"
)

// S-expression navigation helpers

// Find searches a list for the first child list with the given head symbol.
// Example: Find(node, "at") finds (at 100 50) among node's children.
func Find(l *List, key string) (*List, bool) {
	if l == nil {
		return nil, false
	}
	for _, item := range l.Items {
		if sub, ok := item.(*List); ok && sub.Name() == key {
			return sub, true
		}
	}
	return nil, false
}

// FindAll finds all child lists with the given head symbol.
func FindAll(l *List, key string) []*List {
	var results []*List
	if l == nil {
		return results
	}
	for _, item := range l.Items {
		if sub, ok := item.(*List); ok && sub.Name() == key {
			results = append(results, sub)
		}
	}
	return results
}

// HasFlag checks whether a list contains the given bare symbol.
// Example: HasFlag((pin ... hide), "hide") is true.
func HasFlag(l *List, flag string) bool {
	if l == nil {
		return false
	}
	for _, item := range l.Items {
		if sym, ok := item.(Sym); ok && string(sym) == flag {
			return true
		}
	}
	return false
}

// Typed value extraction helpers

// StringAt extracts the atom value at the given index in a list.
// Index 0 is the head symbol, 1 the first argument, etc. Both bare symbols
// and quoted strings are accepted; the unescaped value is returned.
func StringAt(l *List, index int) (string, error) {
	if l == nil {
		return "", fmt.Errorf("expected list, got nil")
	}
	if index < 0 || index >= len(l.Items) {
		return "", fmt.Errorf("index %d out of bounds (length %d)", index, len(l.Items))
	}
	switch v := l.Items[index].(type) {
	case Sym:
		return string(v), nil
	case Str:
		return string(v), nil
	default:
		return "", fmt.Errorf("expected atom at index %d, got list", index)
	}
}

// FloatAt extracts a float64 value at the given index.
func FloatAt(l *List, index int) (float64, error) {
	str, err := StringAt(l, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse float %q: %w", str, err)
	}
	return val, nil
}

// IntAt extracts an int value at the given index.
func IntAt(l *List, index int) (int, error) {
	str, err := StringAt(l, index)
	if err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse int %q: %w", str, err)
	}
	return val, nil
}

// ChildString returns the first argument of the named child list, or the
// fallback when the child is absent or malformed.
// Example: ChildString(node, "lib_id", "") reads (lib_id "Device:R").
func ChildString(l *List, key, fallback string) string {
	child, ok := Find(l, key)
	if !ok {
		return fallback
	}
	val, err := StringAt(child, 1)
	if err != nil {
		return fallback
	}
	return val
}

// ChildFloat returns the first argument of the named child list as a float.
func ChildFloat(l *List, key string, fallback float64) float64 {
	child, ok := Find(l, key)
	if !ok {
		return fallback
	}
	val, err := FloatAt(child, 1)
	if err != nil {
		return fallback
	}
	return val
}

// ChildInt returns the first argument of the named child list as an int.
func ChildInt(l *List, key string, fallback int) int {
	child, ok := Find(l, key)
	if !ok {
		return fallback
	}
	val, err := IntAt(child, 1)
	if err != nil {
		return fallback
	}
	return val
}

// SetChildString replaces the named child list with (key "value"), creating
// it if absent. The child keeps its position in the parent when it exists.
func SetChildString(l *List, key, value string) {
	if child, ok := Find(l, key); ok {
		child.Items = []Node{Sym(key), Str(value)}
		return
	}
	l.Append(NewList(key, Str(value)))
}

// Equal reports deep structural equality of two nodes, including the
// quoted-vs-bare distinction of atoms.
func Equal(a, b Node) bool {
	switch av := a.(type) {
	case Sym:
		bv, ok := b.(Sym)
		return ok && av == bv
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy of a node.
func Clone(n Node) Node {
	switch v := n.(type) {
	case *List:
		items := make([]Node, len(v.Items))
		for i, item := range v.Items {
			items[i] = Clone(item)
		}
		return &List{Items: items}
	default:
		// atoms are immutable values
		return n
	}
}
