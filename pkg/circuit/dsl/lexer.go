// Package dsl parses the declarative circuit description format (.circ)
// into a circuit graph. The format is the text front door to the forward
// synchronization path.
package dsl

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// CircLexer defines the lexical structure of circuit description files.
var CircLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments - line comments with # or //
	{Name: "Comment", Pattern: `(#|//)[^\n]*`},

	// Whitespace
	{Name: "Whitespace", Pattern: `\s+`},

	// Keywords
	{Name: "KwCircuit", Pattern: `\bcircuit\b`},
	{Name: "KwPart", Pattern: `\bpart\b`},
	{Name: "KwNet", Pattern: `\bnet\b`},
	{Name: "KwSheet", Pattern: `\bsheet\b`},
	{Name: "KwBind", Pattern: `\bbind\b`},
	{Name: "KwValue", Pattern: `\bvalue\b`},
	{Name: "KwFootprint", Pattern: `\bfootprint\b`},
	{Name: "KwAt", Pattern: `\bat\b`},
	{Name: "KwProp", Pattern: `\bprop\b`},
	{Name: "KwTrue", Pattern: `\btrue\b`},
	{Name: "KwFalse", Pattern: `\bfalse\b`},

	// Literals
	{Name: "Number", Pattern: `-?[0-9]+(\.[0-9]+)?`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_+~-]*`},

	// Punctuation
	{Name: "Dot", Pattern: `\.`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Eq", Pattern: `=`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
})
