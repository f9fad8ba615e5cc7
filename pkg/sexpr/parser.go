package sexpr

import (
	"fmt"
	"io"
)

// Parser parses S-expressions from a lexer
type Parser struct {
	lexer   *Lexer
	current Token
}

// NewParser creates a new parser from an io.Reader
func NewParser(r io.Reader) *Parser {
	return &Parser{
		lexer: NewLexer(r),
	}
}

// ParseAll parses all top-level S-expressions from the input
func (p *Parser) ParseAll() ([]Node, error) {
	var result []Node

	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	p.current = tok

	for p.current.Type != TokenEOF {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		result = append(result, expr)

		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.current = tok
	}

	return result, nil
}

// parseExpr parses a single S-expression
func (p *Parser) parseExpr() (Node, error) {
	switch p.current.Type {
	case TokenLeftParen:
		return p.parseList()

	case TokenSymbol:
		return Sym(p.current.Value), nil

	case TokenString:
		return Str(p.current.Value), nil

	case TokenRightParen:
		return nil, fmt.Errorf("%s: unexpected ')'", p.current.Pos())

	case TokenEOF:
		return nil, fmt.Errorf("%s: unexpected EOF", p.current.Pos())

	default:
		return nil, fmt.Errorf("%s: unexpected token type %v", p.current.Pos(), p.current.Type)
	}
}

// parseList parses a list: ( ... )
func (p *Parser) parseList() (Node, error) {
	if p.current.Type != TokenLeftParen {
		return nil, fmt.Errorf("%s: expected '(', got %v", p.current.Pos(), p.current.Type)
	}
	open := p.current

	var elements []Node

	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		p.current = tok

		if p.current.Type == TokenRightParen {
			break
		}

		if p.current.Type == TokenEOF {
			return nil, fmt.Errorf("unclosed list opened at %s", open.Pos())
		}

		elem, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elements = append(elements, elem)
	}

	return &List{Items: elements}, nil
}
