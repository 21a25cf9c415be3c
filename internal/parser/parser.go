// Package parser builds internal/ast trees from a token stream (spec §6
// "Parser contract"). Statements, at both file scope and inside a block,
// are separated by `;`; this is a deliberate simplification over a
// layout-sensitive grammar, documented rather than hidden.
package parser

import (
	"fmt"

	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/token"
)

type Parser struct {
	toks []token.Token // comments already filtered out
	pos  int
	path string
}

// Parse parses an already-lexed token stream into a source file. Comment
// tokens are dropped before parsing, so no doc comments are attached to
// declarations.
func Parse(path string, toks []token.Token) (*ast.SourceFile, error) {
	p := &Parser{path: path}
	for _, t := range toks {
		if t.Kind != token.Comment {
			p.toks = append(p.toks, t)
		}
	}
	var stmts []ast.Statement
	for !p.at(token.EOF) {
		if p.at(token.Semicolon) {
			p.advance()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return &ast.SourceFile{Path: path, Statements: stmts}, nil
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) peekAt(offset int, k token.Kind) bool {
	i := p.pos + offset
	if i >= len(p.toks) {
		return k == token.EOF
	}
	return p.toks[i].Kind == k
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, fmt.Errorf("%s:%d:%d: expected token kind %d, found %q", p.path, p.cur().Line, p.cur().Col, k, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func rangeOf(start, end token.Token) ast.Range { return ast.Range{Start: start.Start, End: end.End} }

// parseStatement dispatches by leading token, with a bounded lookahead to
// distinguish a constant declaration (`Name :: ...`) and an assignment
// (`pattern :- ...`) from a bare expression statement.
func (p *Parser) parseStatement() (ast.Statement, error) {
	start := p.cur()

	after := p.pos
	for after < len(p.toks) && p.toks[after].Kind == token.LBracket {
		depth := 1
		after++
		for after < len(p.toks) && depth > 0 {
			switch p.toks[after].Kind {
			case token.RBracket:
				depth--
			}
			after++
		}
	}
	lead := token.EOF
	if after < len(p.toks) {
		lead = p.toks[after].Kind
	}

	switch {
	case lead == token.KwType:
		return p.parseTypeDeclaration()
	case lead == token.KwTrait:
		return p.parseTraitDeclaration()
	case lead == token.KwInstance:
		return p.parseInstanceDeclaration()
	case lead == token.Ident && after+1 < len(p.toks) && p.toks[after+1].Kind == token.ColonColon:
		return p.parseConstantDeclaration()
	}

	// Try `pattern :- expr`; a failed pattern parse falls back to a bare
	// expression statement.
	if stmt, ok, err := p.tryParseAssignment(); ok {
		return stmt, err
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Range: rangeOf(start, p.prev()), Expr: expr}, nil
}

func (p *Parser) prev() token.Token {
	if p.pos == 0 {
		return p.toks[0]
	}
	return p.toks[p.pos-1]
}

func (p *Parser) tryParseAssignment() (ast.Statement, bool, error) {
	mark := p.pos
	start := p.cur()
	pat, err := p.parsePattern()
	if err != nil {
		p.pos = mark
		return nil, false, nil
	}
	if !p.at(token.ColonDash) {
		p.pos = mark
		return nil, false, nil
	}
	p.advance()
	val, err := p.parseExpr()
	if err != nil {
		return nil, true, err
	}
	return &ast.Assignment{Range: rangeOf(start, p.prev()), Target: pat, Value: val}, true, nil
}

func (p *Parser) parseDocAndAttributes() ([]string, []ast.Attribute) {
	var attrs []ast.Attribute
	for p.at(token.LBracket) {
		start := p.advance() // '['
		nameTok, _ := p.expect(token.Ident)
		value := ""
		if p.at(token.Colon) {
			p.advance()
			if p.at(token.Text) {
				value = p.advance().Lexeme
			} else if p.at(token.Ident) {
				value = p.advance().Lexeme
			}
		}
		end, _ := p.expect(token.RBracket)
		attrs = append(attrs, ast.Attribute{Range: rangeOf(start, end), Name: nameTok.Lexeme, Value: value})
	}
	return nil, attrs
}

func (p *Parser) parseWhereClauses() ([]ast.ConstraintClause, error) {
	if !p.at(token.KwWhere) {
		return nil, nil
	}
	p.advance()
	var clauses []ast.ConstraintClause
	for {
		start := p.cur()
		paramTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if !p.at(token.Colon) {
			return nil, fmt.Errorf("%s:%d:%d: expected ':' in where clause", p.path, p.cur().Line, p.cur().Col)
		}
		p.advance()
		traitTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		var args []ast.TypeExpr
		for p.isTypeStart() {
			t, err := p.parseTypeAtom()
			if err != nil {
				return nil, err
			}
			args = append(args, t)
		}
		clauses = append(clauses, &ast.BoundClause{
			Range:     rangeOf(start, p.prev()),
			ParamName: paramTok.Lexeme,
			TraitName: traitTok.Lexeme,
			Args:      args,
		})
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	return clauses, nil
}

func (p *Parser) parseConstantDeclaration() (ast.Statement, error) {
	_, attrs := p.parseDocAndAttributes()
	start := p.cur()
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ColonColon); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	where, err := p.parseWhereClauses()
	if err != nil {
		return nil, err
	}
	var body ast.Expr
	if p.at(token.ColonDash) {
		p.advance()
		body, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return &ast.ConstantDeclaration{
		Range:      rangeOf(start, p.prev()),
		Attributes: attrs,
		Name:       nameTok.Lexeme,
		NameRange:  ast.Range{Start: nameTok.Start, End: nameTok.End},
		Type:       typ,
		Where:      where,
		Body:       body,
	}, nil
}

func (p *Parser) parseTypeParamDecls() []ast.TypeParamDecl {
	var params []ast.TypeParamDecl
	for p.at(token.Ident) {
		t := p.advance()
		params = append(params, ast.TypeParamDecl{Range: ast.Range{Start: t.Start, End: t.End}, Name: t.Lexeme})
	}
	return params
}

func (p *Parser) parseTypeDeclaration() (ast.Statement, error) {
	_, attrs := p.parseDocAndAttributes()
	start := p.advance() // 'type'
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	params := p.parseTypeParamDecls()
	var body ast.TypeExpr
	if p.at(token.ColonDash) {
		p.advance()
		body, err = p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
	}
	return &ast.TypeDeclaration{
		Range:      rangeOf(start, p.prev()),
		Attributes: attrs,
		Name:       nameTok.Lexeme,
		NameRange:  ast.Range{Start: nameTok.Start, End: nameTok.End},
		Params:     params,
		Body:       body,
	}, nil
}

func (p *Parser) parseTraitDeclaration() (ast.Statement, error) {
	_, attrs := p.parseDocAndAttributes()
	start := p.advance() // 'trait'
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	params := p.parseTypeParamDecls()
	if _, err := p.expect(token.ColonColon); err != nil {
		return nil, err
	}
	sig, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	where, err := p.parseWhereClauses()
	if err != nil {
		return nil, err
	}
	return &ast.TraitDeclaration{
		Range:      rangeOf(start, p.prev()),
		Attributes: attrs,
		Name:       nameTok.Lexeme,
		NameRange:  ast.Range{Start: nameTok.Start, End: nameTok.End},
		Params:     params,
		Signature:  sig,
		Where:      where,
	}, nil
}

func (p *Parser) parseInstanceDeclaration() (ast.Statement, error) {
	_, attrs := p.parseDocAndAttributes()
	start := p.advance() // 'instance'
	traitTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	var params []ast.TypeExpr
	for p.isTypeStart() {
		t, err := p.parseTypeAtom()
		if err != nil {
			return nil, err
		}
		params = append(params, t)
	}
	where, err := p.parseWhereClauses()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ColonDash); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.InstanceDeclaration{
		Range:      rangeOf(start, p.prev()),
		Attributes: attrs,
		TraitName:  traitTok.Lexeme,
		TraitRange: ast.Range{Start: traitTok.Start, End: traitTok.End},
		Params:     params,
		Where:      where,
		Value:      value,
	}, nil
}
