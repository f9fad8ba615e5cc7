package sexpr

import (
	"bufio"
	"fmt"
	"io"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenLeftParen
	TokenRightParen
	TokenSymbol
	TokenString
)

// Token represents a lexical token. Line and Col are the 1-based position
// of the token's first rune, carried through to parse errors.
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

// Pos formats the token's position for error messages.
func (t Token) Pos() string {
	return fmt.Sprintf("line %d:%d", t.Line, t.Col)
}

// Lexer tokenizes S-expressions from an io.Reader, tracking line and
// column so structural errors can point at the offending input.
type Lexer struct {
	reader *bufio.Reader
	peeked *rune

	// Position of the next unconsumed rune.
	line int
	col  int
}

// NewLexer creates a new lexer
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{
		reader: bufio.NewReader(r),
		line:   1,
		col:    1,
	}
}

// NextToken reads the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	// Skip whitespace and comments
	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				return l.token(TokenEOF, ""), nil
			}
			return Token{}, err
		}

		if unicode.IsSpace(ch) {
			l.read()
			continue
		}

		// Comments run from # to end of line
		if ch == '#' {
			for {
				c, err := l.read()
				if err != nil || c == '\n' {
					break
				}
			}
			continue
		}

		break
	}

	ch, err := l.peek()
	if err != nil {
		if err == io.EOF {
			return l.token(TokenEOF, ""), nil
		}
		return Token{}, err
	}

	switch ch {
	case '(':
		tok := l.token(TokenLeftParen, "(")
		l.read()
		return tok, nil

	case ')':
		tok := l.token(TokenRightParen, ")")
		l.read()
		return tok, nil

	case '"':
		return l.readString()

	default:
		return l.readSymbol()
	}
}

// token stamps a token with the current position.
func (l *Lexer) token(typ TokenType, value string) Token {
	return Token{Type: typ, Value: value, Line: l.line, Col: l.col}
}

// peek looks at the next rune without consuming it
func (l *Lexer) peek() (rune, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}

	ch, _, err := l.reader.ReadRune()
	if err != nil {
		return 0, err
	}

	l.peeked = &ch
	return ch, nil
}

// read consumes and returns the next rune, advancing the position.
func (l *Lexer) read() (rune, error) {
	var ch rune
	if l.peeked != nil {
		ch = *l.peeked
		l.peeked = nil
	} else {
		var err error
		ch, _, err = l.reader.ReadRune()
		if err != nil {
			return ch, err
		}
	}

	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch, nil
}

// readString reads a quoted string, decoding escapes with the same
// escape table the writer uses (see escape.go).
func (l *Lexer) readString() (Token, error) {
	start := l.token(TokenString, "")

	// Consume opening quote
	l.read()

	var result []rune
	for {
		ch, err := l.read()
		if err != nil {
			if err == io.EOF {
				return Token{}, fmt.Errorf("%s: unterminated string", start.Pos())
			}
			return Token{}, err
		}

		if ch == '"' {
			break
		}

		if ch == '\\' {
			next, err := l.read()
			if err != nil {
				return Token{}, fmt.Errorf("%s: unexpected EOF after backslash", start.Pos())
			}
			result = append(result, unescapeRune(next))
			continue
		}

		result = append(result, ch)
	}

	start.Value = string(result)
	return start, nil
}

// readSymbol reads an unquoted symbol (identifier, number, etc.)
func (l *Lexer) readSymbol() (Token, error) {
	start := l.token(TokenSymbol, "")
	var result []rune

	for {
		ch, err := l.peek()
		if err != nil {
			if err == io.EOF {
				break
			}
			return Token{}, err
		}

		// Stop at delimiters
		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			break
		}

		l.read()
		result = append(result, ch)
	}

	if len(result) == 0 {
		return Token{}, fmt.Errorf("%s: empty symbol", start.Pos())
	}

	start.Value = string(result)
	return start, nil
}
