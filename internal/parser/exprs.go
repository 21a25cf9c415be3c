package parser

import (
	"fmt"
	"strings"

	"github.com/funvibe/semant/internal/ast"
	"github.com/funvibe/semant/internal/lexer"
	"github.com/funvibe/semant/internal/token"
)

func tokenizeSub(src string) []token.Token { return lexer.Tokenize(src) }

// ---- Expressions -----------------------------------------------------------

var binaryOperators = map[string]bool{
	"to": true, "by": true, "^": true, "*": true, "/": true, "%": true,
	"+": true, "-": true, "<": true, "<=": true, ">": true, ">=": true,
	"=": true, "/=": true, "and": true, "or": true, ".": true,
}

func (p *Parser) isBinaryOperatorToken() (string, bool) {
	t := p.cur()
	switch t.Kind {
	case token.Operator:
		if binaryOperators[t.Lexeme] {
			return t.Lexeme, true
		}
	case token.Dot:
		return ".", true
	case token.Ident:
		if t.Lexeme == "and" || t.Lexeme == "or" || t.Lexeme == "to" || t.Lexeme == "by" {
			return t.Lexeme, true
		}
	}
	return "", false
}

// parseExpr parses a full expression: a left-associative chain of binary
// operators over application-level terms (spec §6 "a single precedence
// tier over application", a deliberate grammar simplification).
func (p *Parser) parseExpr() (ast.Expr, error) {
	if fn, ok, err := p.tryParseFunctionExpr(); ok {
		return fn, err
	}
	left, err := p.parseApplication()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.isBinaryOperatorToken()
		if !ok {
			break
		}
		p.advance()
		right, err := p.parseApplication()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Range: rangeOf(tokenAt(left), p.prev()), Operator: op, Left: left, Right: right}
	}
	if p.at(token.KwAs) {
		p.advance()
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.AsExpr{Range: rangeOf(tokenAt(left), p.prev()), Value: left, Type: typ}
	}
	if p.at(token.KwIs) {
		p.advance()
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		left = &ast.IsExpr{Range: rangeOf(tokenAt(left), p.prev()), Value: left, Pattern: pat}
	}
	if p.at(token.ColonColon) {
		p.advance()
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.AnnotateExpr{Range: rangeOf(tokenAt(left), p.prev()), Value: left, Type: typ}
	}
	return left, nil
}

// tokenAt fabricates a zero-width token standing at e's range start, so a
// postfix construct can compute rangeOf(tokenAt(e), p.prev()) without the
// parser having threaded the original start token through every return.
func tokenAt(e interface{ Range() ast.Range }) token.Token {
	r := e.Range()
	return token.Token{Start: r.Start, End: r.Start}
}

// tryParseFunctionExpr attempts `pattern1 pattern2 ... -> body`, backtracking
// to a normal expression parse if no Arrow follows a pattern sequence (spec
// §4.2 "Function expressions"). This is how `f x` (a call) is told apart
// from `x -> body` (a function literal): both start with the same token
// shapes, so the distinction is made by whether an Arrow eventually follows.
func (p *Parser) tryParseFunctionExpr() (ast.Expr, bool, error) {
	mark := p.pos
	start := p.cur()
	var inputs []ast.Pattern
	for p.isPrimaryStart() {
		pat, err := p.parsePattern()
		if err != nil {
			p.pos = mark
			return nil, false, nil
		}
		inputs = append(inputs, pat)
		if p.at(token.Arrow) {
			break
		}
	}
	if len(inputs) == 0 || !p.at(token.Arrow) {
		p.pos = mark
		return nil, false, nil
	}
	p.advance() // '->'
	body, err := p.parseExpr()
	if err != nil {
		return nil, true, err
	}
	return &ast.FunctionExpr{Range: rangeOf(start, p.prev()), Inputs: inputs, Body: body}, true, nil
}

// parseApplication parses a curried call: a primary followed by zero or
// more primaries as arguments (spec §4.2 "Function call").
func (p *Parser) parseApplication() (ast.Expr, error) {
	fn, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	var args []ast.Expr
	for p.isPrimaryStart() {
		arg, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if len(args) == 0 {
		return fn, nil
	}
	return &ast.CallExpr{Range: rangeOf(tokenAt(fn), p.prev()), Function: fn, Args: args}, nil
}

func (p *Parser) isPrimaryStart() bool {
	switch p.cur().Kind {
	case token.Ident, token.Number, token.Text, token.FormattedText, token.Underscore,
		token.LParen, token.LBracket, token.KwWhen, token.KwDo, token.KwIntrinsic:
		return true
	}
	return false
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	start := p.cur()
	switch {
	case p.at(token.Underscore):
		p.advance()
		return &ast.Placeholder{Range: rangeOf(start, start)}, nil

	case p.at(token.Number):
		t := p.advance()
		return &ast.NumberLiteral{Range: rangeOf(start, t), Text: t.Lexeme}, nil

	case p.at(token.Text):
		t := p.advance()
		return &ast.TextLiteral{Range: rangeOf(start, t), Value: t.Lexeme}, nil

	case p.at(token.FormattedText):
		t := p.advance()
		return p.parseFormattedText(start, t)

	case p.at(token.KwDo):
		p.advance()
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.DoExpr{Range: rangeOf(start, p.prev()), Body: body}, nil

	case p.at(token.KwIntrinsic):
		p.advance()
		nameTok, err := p.expect(token.Text)
		if err != nil {
			return nil, err
		}
		var args []ast.Expr
		for p.isPrimaryStart() {
			a, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return &ast.IntrinsicExpr{Range: rangeOf(start, p.prev()), Name: nameTok.Lexeme, Args: args}, nil

	case p.at(token.KwWhen):
		return p.parseWhenExpr()

	case p.at(token.LBracket):
		return p.parseCollectionExpr()

	case p.at(token.LParen):
		return p.parseParenExpr()

	case p.at(token.Ident):
		return p.parseIdentOrStructure()

	case p.at(token.LBrace):
		return p.parseBlockExpr()
	}
	return nil, fmt.Errorf("%s:%d:%d: unexpected token %q", p.path, p.cur().Line, p.cur().Col, p.cur().Lexeme)
}

func (p *Parser) parseIdentOrStructure() (ast.Expr, error) {
	start := p.advance()
	if p.at(token.LBrace) && p.peekAt(1, token.Ident) && p.peekAt(2, token.Colon) {
		return p.parseStructureBody(start)
	}
	return &ast.Variable{Range: rangeOf(start, start), Name: start.Lexeme}, nil
}

func (p *Parser) parseStructureBody(nameTok token.Token) (ast.Expr, error) {
	p.advance() // '{'
	var fields []ast.StructureField
	for !p.at(token.RBrace) {
		fieldName, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		fields = append(fields, ast.StructureField{Name: fieldName.Lexeme, Value: val})
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
	return &ast.StructureExpr{Range: rangeOf(nameTok, end), TypeName: nameTok.Lexeme, Fields: fields}, nil
}

func (p *Parser) parseCollectionExpr() (ast.Expr, error) {
	start := p.advance() // '['
	var elems []ast.Expr
	for !p.at(token.RBracket) {
		e, err := p.parseExpr()
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
	end, err := p.expect(token.RBracket)
	if err != nil {
		return nil, err
	}
	return &ast.CollectionExpr{Range: rangeOf(start, end), Elements: elems}, nil
}

func (p *Parser) parseParenExpr() (ast.Expr, error) {
	start := p.advance() // '('
	if p.at(token.RParen) {
		end := p.advance()
		return &ast.UnitExpr{Range: rangeOf(start, end)}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(token.Semicolon) {
		elems := []ast.Expr{first}
		for p.at(token.Semicolon) {
			p.advance()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		end, err := p.expect(token.RParen)
		if err != nil {
			return nil, err
		}
		return &ast.TupleExpr{Range: rangeOf(start, end), Elements: elems}, nil
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return first, nil
}

func (p *Parser) parseBlockExpr() (ast.Expr, error) {
	start := p.advance() // '{'
	var stmts []ast.Statement
	for !p.at(token.RBrace) {
		if p.at(token.Semicolon) {
			p.advance()
			continue
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.BlockExpr{Range: rangeOf(start, end), Statements: stmts}, nil
}

func (p *Parser) parseWhenExpr() (ast.Expr, error) {
	start := p.advance() // 'when'
	subject, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var arms []ast.WhenArm
	for !p.at(token.RBrace) {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		var guard ast.Expr
		if p.at(token.KwWhere) {
			p.advance()
			guard, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(token.Arrow); err != nil {
			return nil, err
		}
		body, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		arms = append(arms, ast.WhenArm{Pattern: pat, Guard: guard, Body: body})
		if p.at(token.Semicolon) {
			p.advance()
		}
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.WhenExpr{Range: rangeOf(start, end), Subject: subject, Arms: arms}, nil
}

// parseFormattedText splits a raw `'...{expr}...'` lexeme into literal runs
// and interpolated sub-expressions, re-lexing each `{...}` segment.
func (p *Parser) parseFormattedText(start, raw token.Token) (ast.Expr, error) {
	inner := raw.Lexeme
	inner = strings.TrimPrefix(inner, "'")
	inner = strings.TrimSuffix(inner, "'")

	var texts []string
	var exprs []ast.Expr
	var sb strings.Builder
	i := 0
	for i < len(inner) {
		if inner[i] == '{' {
			depth := 1
			j := i + 1
			for j < len(inner) && depth > 0 {
				switch inner[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				j++
			}
			texts = append(texts, sb.String())
			sb.Reset()
			exprTokens := tokenizeSub(inner[i+1 : j-1])
			sub := &Parser{path: p.path}
			for _, t := range exprTokens {
				if t.Kind != token.Comment {
					sub.toks = append(sub.toks, t)
				}
			}
			e, err := sub.parseExpr()
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
			i = j
			continue
		}
		sb.WriteByte(inner[i])
		i++
	}
	texts = append(texts, sb.String())
	return &ast.FormattedTextExpr{Range: rangeOf(start, raw), Texts: texts, Exprs: exprs}, nil
}
