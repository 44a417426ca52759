// Package syntax reads terms written in the form produced by term.Store.Render.
//
//	term := INTEGER
//	      | '(' LAMBDA term+ ')'
//	      | '(' term term+ ')'
//
// LAMBDA is a backslash or 'λ'. A run of terms inside parentheses applies
// left to right, so (a b c) is ((a b) c) and (\ a b) is (\ (a b)).
// A '#' starts a comment that runs to the end of the line.
package syntax

import (
	"fmt"
	"strconv"

	"github.com/chazu/redex/term"
)

// Error is a parse error at a source position.
type Error struct {
	Pos Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// Parser is a recursive descent parser that builds terms directly in a Store.
type Parser struct {
	lexer    *Lexer
	store    *term.Store
	curToken Token
	err      *Error
	depth    int // open groups
}

// NewParser creates a parser over input that allocates into s.
func NewParser(s *term.Store, input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		store: s,
	}
	p.nextToken()
	return p
}

// Parse parses a single term from src. On error nothing stays allocated in s.
func Parse(s *term.Store, src string) (term.Ref, error) {
	p := NewParser(s, src)
	r, ok := p.ParseTerm()
	if !ok {
		return term.Ref{}, p.Err()
	}
	if !p.curTokenIs(TokenEOF) {
		s.Destroy(r)
		p.errorf("unexpected %s after term", p.curToken)
		return term.Ref{}, p.Err()
	}
	return r, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// errorf records the first parse error; later ones are follow-on noise.
func (p *Parser) errorf(format string, args ...interface{}) {
	p.errorAt(p.curToken.Pos, format, args...)
}

func (p *Parser) errorAt(pos Position, format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	p.err = &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Err returns the parse error, if any.
func (p *Parser) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

// ParseTerm parses one term. The returned Ref is owned by the caller and is
// only valid when ok is true.
func (p *Parser) ParseTerm() (term.Ref, bool) {
	r, _, ok := p.parseTerm()
	return r, ok
}

// parseTerm also returns the height of the parsed tree, counting a variable
// as 1. Trees taller than term.MaxDepth are rejected.
func (p *Parser) parseTerm() (term.Ref, int, bool) {
	switch p.curToken.Type {
	case TokenInteger:
		return p.parseVariable()
	case TokenLParen:
		return p.parseGroup()
	case TokenEOF:
		p.errorf("unexpected end of input")
	case TokenError:
		p.errorf("%s", p.curToken.Literal)
	default:
		p.errorf("unexpected %s", p.curToken)
	}
	return term.Ref{}, 0, false
}

func (p *Parser) parseVariable() (term.Ref, int, bool) {
	idx, err := strconv.ParseUint(p.curToken.Literal, 10, 32)
	if err != nil {
		p.errorf("index %s out of range", p.curToken.Literal)
		return term.Ref{}, 0, false
	}
	p.nextToken()
	return p.store.Construct(term.Var(uint32(idx))), 1, true
}

// parseGroup parses an abstraction or an application, starting at '('.
func (p *Parser) parseGroup() (term.Ref, int, bool) {
	if p.depth >= term.MaxDepth {
		p.errorf("terms nest deeper than %d", term.MaxDepth)
		return term.Ref{}, 0, false
	}
	p.depth++
	defer func() { p.depth-- }()

	open := p.curToken.Pos
	p.nextToken() // consume '('

	if p.curTokenIs(TokenLambda) {
		p.nextToken()
		body, h, n, ok := p.parseSequence()
		if !ok {
			return term.Ref{}, 0, false
		}
		if n == 0 {
			p.errorf("abstraction has no body")
			return term.Ref{}, 0, false
		}
		if h >= term.MaxDepth {
			p.store.Destroy(body)
			p.errorAt(open, "terms nest deeper than %d", term.MaxDepth)
			return term.Ref{}, 0, false
		}
		if !p.closeGroup(body) {
			return term.Ref{}, 0, false
		}
		return p.store.Construct(term.Abs(body)), h + 1, true
	}

	r, h, n, ok := p.parseSequence()
	if !ok {
		return term.Ref{}, 0, false
	}
	if n < 2 {
		if n == 1 {
			p.store.Destroy(r)
		}
		p.errorf("application needs a function and an argument")
		return term.Ref{}, 0, false
	}
	if !p.closeGroup(r) {
		return term.Ref{}, 0, false
	}
	return r, h, true
}

// parseSequence parses terms up to ')' or end of input and folds them into
// left-nested applications. It returns the folded tree's height and the
// number of terms read.
func (p *Parser) parseSequence() (term.Ref, int, int, bool) {
	var acc term.Ref
	height, n := 0, 0
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
		start := p.curToken.Pos
		next, h, ok := p.parseTerm()
		if !ok {
			if n > 0 {
				p.store.Destroy(acc)
			}
			return term.Ref{}, 0, 0, false
		}
		if n == 0 {
			acc, height = next, h
		} else {
			height = 1 + max(height, h)
			acc = p.store.Construct(term.App(acc, next))
			if height > term.MaxDepth {
				p.store.Destroy(acc)
				p.errorAt(start, "terms nest deeper than %d", term.MaxDepth)
				return term.Ref{}, 0, 0, false
			}
		}
		n++
	}
	return acc, height, n, true
}

// closeGroup consumes ')' or destroys pending and records an error.
func (p *Parser) closeGroup(pending term.Ref) bool {
	if p.curTokenIs(TokenRParen) {
		p.nextToken()
		return true
	}
	p.store.Destroy(pending)
	p.errorf("expected ), got %s", p.curToken)
	return false
}
