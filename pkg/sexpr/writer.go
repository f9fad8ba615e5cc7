package sexpr

import (
	"io"
	"strings"
)

// Canonical formatting rules, applied uniformly so that serializing the same
// tree twice yields byte-identical text:
//   - a list with only leaf items renders on a single line
//   - otherwise the head symbol and any leaf arguments before the first
//     sub-list stay on the opening line, and every remaining item gets its
//     own line, indented two spaces; the closing paren gets its own line
//   - strings are always quoted through Quote, symbols written bare

const indentStep = "  "

// Write serializes nodes to w in canonical form, one top-level node per
// block, followed by a trailing newline.
func Write(w io.Writer, nodes ...Node) error {
	var b strings.Builder
	for _, n := range nodes {
		writeNode(&b, n, 0)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Format returns the canonical text of a single node (with trailing newline).
func Format(n Node) string {
	var b strings.Builder
	writeNode(&b, n, 0)
	b.WriteByte('\n')
	return b.String()
}

func writeNode(b *strings.Builder, n Node, depth int) {
	list, ok := n.(*List)
	if !ok {
		b.WriteString(n.String())
		return
	}

	if !hasListChild(list) {
		b.WriteString(list.String())
		return
	}

	b.WriteByte('(')
	split := leafPrefixLen(list)
	for i := 0; i < split; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(list.Items[i].String())
	}
	for _, item := range list.Items[split:] {
		b.WriteByte('\n')
		for i := 0; i <= depth; i++ {
			b.WriteString(indentStep)
		}
		writeNode(b, item, depth+1)
	}
	b.WriteByte('\n')
	for i := 0; i < depth; i++ {
		b.WriteString(indentStep)
	}
	b.WriteByte(')')
}

func hasListChild(l *List) bool {
	for _, item := range l.Items {
		if !item.IsLeaf() {
			return true
		}
	}
	return false
}

// leafPrefixLen returns the number of leading leaf items before the first
// sub-list.
func leafPrefixLen(l *List) int {
	for i, item := range l.Items {
		if !item.IsLeaf() {
			return i
		}
	}
	return len(l.Items)
}
