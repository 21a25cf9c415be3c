package parser

import (
	"fmt"

	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/token"
)

// parsePattern parses a full pattern: one or more '|'-separated
// alternatives, each optionally annotated with `:: Type` (spec §6).
func (p *Parser) parsePattern() (ast.Pattern, error) {
	start := p.cur()
	first, err := p.parsePatternAtom()
	if err != nil {
		return nil, err
	}
	if !p.at(token.Pipe) {
		return first, nil
	}
	alts := []ast.Pattern{first}
	for p.at(token.Pipe) {
		p.advance()
		alt, err := p.parsePatternAtom()
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}
	return &ast.OrPattern{Range: rangeOf(start, p.prev()), Alternatives: alts}, nil
}

func (p *Parser) parsePatternAtom() (ast.Pattern, error) {
	pat, err := p.parsePatternPrimary()
	if err != nil {
		return nil, err
	}
	if p.at(token.ColonColon) {
		p.advance()
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		return &ast.AnnotatePattern{Range: rangeOf(tokenAt(pat), p.prev()), Pattern: pat, Type: typ}, nil
	}
	return pat, nil
}

func (p *Parser) parsePatternPrimary() (ast.Pattern, error) {
	start := p.cur()
	switch {
	case p.at(token.Underscore):
		p.advance()
		return &ast.WildcardPattern{Range: rangeOf(start, start)}, nil

	case p.at(token.Number):
		t := p.advance()
		return &ast.NumberPattern{Range: rangeOf(start, t), Text: t.Lexeme}, nil

	case p.at(token.Text):
		t := p.advance()
		return &ast.TextPattern{Range: rangeOf(start, t), Value: t.Lexeme}, nil

	case p.at(token.Operator) && p.cur().Lexeme == "!":
		p.advance()
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		target := &ast.Variable{Range: ast.Range{Start: nameTok.Start, End: nameTok.End}, Name: nameTok.Lexeme}
		val, err := p.parsePatternAtom()
		if err != nil {
			return nil, err
		}
		return &ast.SetPattern{Range: rangeOf(start, p.prev()), Target: target, Value: val}, nil

	case p.at(token.LParen):
		return p.parseTuplePattern()

	case p.at(token.LBrace):
		return p.parseDestructurePattern("")

	case p.at(token.Ident):
		return p.parseIdentPattern()
	}
	return nil, fmt.Errorf("%s:%d:%d: unexpected token %q in pattern", p.path, p.cur().Line, p.cur().Col, p.cur().Lexeme)
}

func (p *Parser) parseIdentPattern() (ast.Pattern, error) {
	nameTok := p.advance()
	switch {
	case p.at(token.LParen):
		p.advance()
		var elems []ast.Pattern
		for !p.at(token.RParen) {
			e, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.at(token.Comma) {
				p.advance()
				continue
			}
			break
		}
		end, err := p.expect(token.RParen)
		if err != nil {
			return nil, err
		}
		return &ast.VariantPattern{Range: rangeOf(nameTok, end), Name: nameTok.Lexeme, Elements: elems}, nil

	case p.at(token.LBrace):
		return p.parseDestructurePattern(nameTok.Lexeme)
	}
	return &ast.VariablePattern{Range: rangeOf(nameTok, nameTok), Name: nameTok.Lexeme}, nil
}

func (p *Parser) parseDestructurePattern(typeName string) (ast.Pattern, error) {
	start := p.advance() // '{'
	var fields []ast.DestructureField
	for !p.at(token.RBrace) {
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		fieldPat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.DestructureField{Name: nameTok.Lexeme, Pattern: fieldPat})
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.DestructurePattern{Range: rangeOf(start, end), TypeName: typeName, Fields: fields}, nil
}

func (p *Parser) parseTuplePattern() (ast.Pattern, error) {
	start := p.advance() // '('
	if p.at(token.RParen) {
		end := p.advance()
		return &ast.UnitPattern{Range: rangeOf(start, end)}, nil
	}
	first, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if !p.at(token.Comma) {
		end, err := p.expect(token.RParen)
		if err != nil {
			return nil, err
		}
		_ = end
		return first, nil
	}
	elems := []ast.Pattern{first}
	for p.at(token.Comma) {
		p.advance()
		e, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	end, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	return &ast.TuplePattern{Range: rangeOf(start, end), Elements: elems}, nil
}
