package parser

import (
	"fmt"

	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/token"
)

// parseTypeExpr parses a full type: a function type is the lowest
// precedence, built from `->`-separated type applications (spec §6). Every
// type before the last `->` is an input and the last is the output, so
// `A -> B -> C` is one two-input function rather than a nested one.
func (p *Parser) parseTypeExpr() (ast.TypeExpr, error) {
	start := p.cur()
	first, err := p.parseTypeApplication()
	if err != nil {
		return nil, err
	}
	if !p.at(token.Arrow) {
		return first, nil
	}
	inputs := []ast.TypeExpr{first}
	for p.at(token.Arrow) {
		p.advance()
		next, err := p.parseTypeApplication()
		if err != nil {
			return nil, err
		}
		if p.at(token.Arrow) {
			inputs = append(inputs, next)
			continue
		}
		return &ast.FunctionType{Range: rangeOf(start, p.prev()), Inputs: inputs, Output: next}, nil
	}
	return nil, fmt.Errorf("%s:%d:%d: malformed function type", p.path, p.cur().Line, p.cur().Col)
}

// parseTypeApplication parses a possibly-parameterized named type
// (`Map K V`) or a single atom.
func (p *Parser) parseTypeApplication() (ast.TypeExpr, error) {
	start := p.cur()
	if !p.at(token.Ident) {
		return p.parseTypeAtom()
	}
	nameTok := p.advance()
	var params []ast.TypeExpr
	for p.isTypeStart() {
		atom, err := p.parseTypeAtom()
		if err != nil {
			return nil, err
		}
		params = append(params, atom)
	}
	if len(params) == 0 {
		if isUpper(nameTok.Lexeme) {
			return &ast.NamedType{Range: rangeOf(start, nameTok), Name: nameTok.Lexeme}, nil
		}
		return &ast.ParameterType{Range: rangeOf(start, nameTok), Name: nameTok.Lexeme}, nil
	}
	return &ast.ParameterizedType{Range: rangeOf(start, p.prev()), Name: nameTok.Lexeme, Params: params}, nil
}

func isUpper(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c >= 'A' && c <= 'Z'
}

// isTypeStart reports whether the current token can begin a type atom.
func (p *Parser) isTypeStart() bool {
	switch p.cur().Kind {
	case token.Ident, token.Underscore, token.LParen, token.KwDo:
		return true
	}
	return false
}

func (p *Parser) parseTypeAtom() (ast.TypeExpr, error) {
	start := p.cur()
	switch {
	case p.at(token.Underscore):
		p.advance()
		return &ast.PlaceholderType{Range: rangeOf(start, start)}, nil

	case p.at(token.KwDo):
		p.advance()
		result, err := p.parseTypeApplication()
		if err != nil {
			return nil, err
		}
		return &ast.BlockType{Range: rangeOf(start, p.prev()), Result: result}, nil

	case p.at(token.LParen):
		p.advance()
		if p.at(token.RParen) {
			end := p.advance()
			return &ast.UnitType{Range: rangeOf(start, end)}, nil
		}
		first, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if p.at(token.Semicolon) {
			elems := []ast.TypeExpr{first}
			for p.at(token.Semicolon) {
				p.advance()
				e, err := p.parseTypeExpr()
				if err != nil {
					return nil, err
				}
				elems = append(elems, e)
			}
			end, err := p.expect(token.RParen)
			if err != nil {
				return nil, err
			}
			return &ast.TupleType{Range: rangeOf(start, end), Elements: elems}, nil
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return first, nil

	case p.at(token.Ident):
		nameTok := p.advance()
		if isUpper(nameTok.Lexeme) {
			return &ast.NamedType{Range: rangeOf(start, nameTok), Name: nameTok.Lexeme}, nil
		}
		return &ast.ParameterType{Range: rangeOf(start, nameTok), Name: nameTok.Lexeme}, nil
	}
	return nil, fmt.Errorf("%s:%d:%d: unexpected token %q in type", p.path, p.cur().Line, p.cur().Col, p.cur().Lexeme)
}
