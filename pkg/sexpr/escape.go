package sexpr

import "strings"

// Quote and the lexer's string decoding form the single escape/unescape pair
// for the whole module. Property values with embedded quotes, newlines, or
// arbitrary unicode must round-trip through exactly this code; nothing else
// is allowed to escape strings ad hoc.

// Quote returns the quoted, escaped form of a string value.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// unescapeRune decodes the character following a backslash.
// Unknown escapes pass the character through unchanged.
func unescapeRune(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		// covers \\ and \" as well
		return r
	}
}
