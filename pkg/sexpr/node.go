// Package sexpr provides a mutable S-expression document tree for KiCad-style
// files. Unlike read-only sexp libraries, nodes parsed by this package retain
// whether each atom was quoted, so a parse/mutate/serialize cycle preserves
// string-vs-symbol distinctions exactly.
package sexpr

import (
	"io"
	"strconv"
	"strings"
)

// Node represents an S-expression node.
// It is either a leaf atom (Sym, Str) or a *List.
type Node interface {
	// IsLeaf returns true if this is an atom (not a list)
	IsLeaf() bool

	// String returns the canonical single-line representation
	String() string
}

// Sym represents a bare (unquoted) atom: identifiers, keywords, numbers.
type Sym string

func (s Sym) IsLeaf() bool   { return true }
func (s Sym) String() string { return string(s) }

// Str represents a quoted string atom. It holds the unescaped value;
// quoting and escaping are applied by the writer.
type Str string

func (s Str) IsLeaf() bool   { return true }
func (s Str) String() string { return Quote(string(s)) }

// List represents a parenthesized list of nodes.
type List struct {
	Items []Node
}

func (l *List) IsLeaf() bool { return false }

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, item := range l.Items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(item.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Len returns the number of items in the list.
func (l *List) Len() int {
	return len(l.Items)
}

// Get returns the item at the given index, or nil when out of range.
func (l *List) Get(index int) Node {
	if index < 0 || index >= len(l.Items) {
		return nil
	}
	return l.Items[index]
}

// Name returns the head symbol of the list (the node type), or "".
func (l *List) Name() string {
	if len(l.Items) == 0 {
		return ""
	}
	if sym, ok := l.Items[0].(Sym); ok {
		return string(sym)
	}
	return ""
}

// Append adds nodes to the end of the list.
func (l *List) Append(nodes ...Node) {
	l.Items = append(l.Items, nodes...)
}

// Remove deletes the first child list with the given head symbol.
// Returns true if a child was removed.
func (l *List) Remove(key string) bool {
	for i, item := range l.Items {
		if sub, ok := item.(*List); ok && sub.Name() == key {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveNode deletes the given child node by identity.
// Returns true if the node was found and removed.
func (l *List) RemoveNode(n Node) bool {
	for i, item := range l.Items {
		if item == n {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return true
		}
	}
	return false
}

// NewList builds a list with the given head symbol and items.
// Example: NewList("at", Sym("100"), Sym("50")) -> (at 100 50)
func NewList(name string, items ...Node) *List {
	l := &List{Items: make([]Node, 0, len(items)+1)}
	l.Items = append(l.Items, Sym(name))
	l.Items = append(l.Items, items...)
	return l
}

// Num formats a float as a bare numeric atom using the minimal
// representation, so re-serialization is byte-stable.
func Num(v float64) Sym {
	return Sym(strconv.FormatFloat(v, 'f', -1, 64))
}

// Int formats an integer as a bare numeric atom.
func Int(v int) Sym {
	return Sym(strconv.Itoa(v))
}

// Parse parses all top-level S-expressions from an io.Reader.
func Parse(r io.Reader) ([]Node, error) {
	parser := NewParser(r)
	return parser.ParseAll()
}

// ParseString parses S-expressions from a string.
func ParseString(s string) ([]Node, error) {
	return Parse(strings.NewReader(s))
}
