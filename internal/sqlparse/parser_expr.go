package sqlparse

import (
	"fmt"
	"strings"
)

// parseExpression parses an expression at the lowest precedence level.
func (p *Parser) parseExpression() Expr {
	return p.parseExprPrec(PrecedenceNone)
}

// parseExprPrec is the Pratt parser loop: it parses a prefix expression and
// then folds infix operators of higher precedence than minPrec.
func (p *Parser) parseExprPrec(minPrec int) Expr {
	left := p.parseUnaryExpr()

	for !p.failed() {
		switch {
		case p.check(TOKEN_DCOLON):
			p.nextToken()
			left = &CastExpr{Expr: left, Type: p.parseTypeName()}

		case (p.check(TOKEN_STAR) || p.check(TOKEN_SLASH) || p.check(TOKEN_MOD)) && PrecedenceMultiply > minPrec:
			op := p.token.Type
			p.nextToken()
			left = &BinaryExpr{Left: left, Op: op, Right: p.parseExprPrec(PrecedenceMultiply)}

		case (p.check(TOKEN_PLUS) || p.check(TOKEN_MINUS) || p.check(TOKEN_DPIPE)) && PrecedenceAddition > minPrec:
			op := p.token.Type
			p.nextToken()
			left = &BinaryExpr{Left: left, Op: op, Right: p.parseExprPrec(PrecedenceAddition)}

		case p.isComparisonOp() && PrecedenceComparison > minPrec:
			op := p.token.Type
			p.nextToken()
			left = &BinaryExpr{Left: left, Op: op, Right: p.parseExprPrec(PrecedenceComparison)}

		case (p.check(TOKEN_LIKE) || p.check(TOKEN_ILIKE)) && PrecedenceComparison > minPrec:
			op := p.token.Type
			p.nextToken()
			left = &BinaryExpr{Left: left, Op: op, Right: p.parseExprPrec(PrecedenceComparison)}

		case p.check(TOKEN_IN) && PrecedenceComparison > minPrec:
			left = p.parseInExpr(left, false)

		case p.check(TOKEN_BETWEEN) && PrecedenceComparison > minPrec:
			left = p.parseBetweenExpr(left, false)

		case p.check(TOKEN_NOT) && PrecedenceComparison > minPrec && p.isNegatablePeek():
			p.nextToken()
			switch p.token.Type {
			case TOKEN_LIKE, TOKEN_ILIKE:
				op := p.token.Type
				p.nextToken()
				left = &BinaryExpr{Left: left, Op: op, Not: true, Right: p.parseExprPrec(PrecedenceComparison)}
			case TOKEN_IN:
				left = p.parseInExpr(left, true)
			case TOKEN_BETWEEN:
				left = p.parseBetweenExpr(left, true)
			}

		case p.check(TOKEN_IS) && PrecedenceComparison > minPrec:
			p.nextToken()
			not := p.match(TOKEN_NOT)
			p.expect(TOKEN_NULL)
			left = &IsNullExpr{Expr: left, Not: not}

		case p.check(TOKEN_AND) && PrecedenceAnd > minPrec:
			p.nextToken()
			left = &BinaryExpr{Left: left, Op: TOKEN_AND, Right: p.parseExprPrec(PrecedenceAnd)}

		case p.check(TOKEN_OR) && PrecedenceOr > minPrec:
			p.nextToken()
			left = &BinaryExpr{Left: left, Op: TOKEN_OR, Right: p.parseExprPrec(PrecedenceOr)}

		default:
			return left
		}
	}
	return left
}

// isComparisonOp reports whether the current token is a comparison operator.
func (p *Parser) isComparisonOp() bool {
	switch p.token.Type {
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
		return true
	}
	return false
}

// isNegatablePeek reports whether NOT here negates an infix form
// (NOT LIKE, NOT ILIKE, NOT IN, NOT BETWEEN) rather than acting as a
// prefix on the next expression.
func (p *Parser) isNegatablePeek() bool {
	switch p.peek.Type {
	case TOKEN_LIKE, TOKEN_ILIKE, TOKEN_IN, TOKEN_BETWEEN:
		return true
	}
	return false
}

// parseInExpr parses IN (list) or IN (subquery) after the left operand.
func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	p.expect(TOKEN_IN)
	expr := &InExpr{Expr: left, Not: not}

	p.expect(TOKEN_LPAREN)
	if p.check(TOKEN_SELECT) || p.check(TOKEN_WITH) {
		expr.Subquery = p.parseSelectStatement()
	} else {
		for {
			expr.List = append(expr.List, p.parseExpression())
			if p.failed() || !p.match(TOKEN_COMMA) {
				break
			}
		}
	}
	p.expect(TOKEN_RPAREN)
	return expr
}

// parseBetweenExpr parses BETWEEN low AND high after the left operand.
// The bounds bind tighter than AND, so they parse at comparison precedence.
func (p *Parser) parseBetweenExpr(left Expr, not bool) Expr {
	p.expect(TOKEN_BETWEEN)
	expr := &BetweenExpr{Expr: left, Not: not}
	expr.Low = p.parseExprPrec(PrecedenceComparison)
	p.expect(TOKEN_AND)
	expr.High = p.parseExprPrec(PrecedenceComparison)
	return expr
}

// parseUnaryExpr parses prefix NOT, -, + or falls through to a primary.
func (p *Parser) parseUnaryExpr() Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		p.nextToken()
		return &UnaryExpr{Op: TOKEN_NOT, Expr: p.parseExprPrec(PrecedenceNot)}
	case TOKEN_MINUS, TOKEN_PLUS:
		op := p.token.Type
		p.nextToken()
		return &UnaryExpr{Op: op, Expr: p.parseExprPrec(PrecedenceUnary)}
	}
	return p.parsePrimary()
}

// parsePrimary parses literals, column references, function calls, CASE,
// CAST, EXISTS, parenthesized expressions and scalar subqueries.
func (p *Parser) parsePrimary() Expr {
	switch p.token.Type {
	case TOKEN_NUMBER:
		lit := &Literal{Type: LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit
	case TOKEN_STRING:
		lit := &Literal{Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit
	case TOKEN_TRUE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "true"}
	case TOKEN_FALSE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "false"}
	case TOKEN_NULL:
		p.nextToken()
		return &Literal{Type: LiteralNull}
	case TOKEN_CASE:
		return p.parseCaseExpr()
	case TOKEN_CAST:
		return p.parseCastExpr()
	case TOKEN_EXISTS:
		p.nextToken()
		p.expect(TOKEN_LPAREN)
		sub := p.parseSelectStatement()
		p.expect(TOKEN_RPAREN)
		return &ExistsExpr{Subquery: sub}
	case TOKEN_LPAREN:
		p.nextToken()
		if p.check(TOKEN_SELECT) || p.check(TOKEN_WITH) {
			sub := p.parseSelectStatement()
			p.expect(TOKEN_RPAREN)
			return &SubqueryExpr{Select: sub}
		}
		inner := p.parseExpression()
		p.expect(TOKEN_RPAREN)
		return &ParenExpr{Expr: inner}
	case TOKEN_IDENT:
		if p.checkPeek(TOKEN_LPAREN) {
			return p.parseFuncCall()
		}
		return p.parseColumnRef()
	}

	p.addError(fmt.Sprintf("unexpected token %s in expression", p.token.Type))
	p.nextToken()
	return &Literal{Type: LiteralNull}
}

// parseColumnRef parses ident or qualified ident chains. All but the last
// part become the table qualifier.
func (p *Parser) parseColumnRef() Expr {
	parts := []string{p.token.Literal}
	p.nextToken()
	for p.match(TOKEN_DOT) {
		parts = append(parts, p.expectIdent())
	}
	ref := &ColumnRef{Column: parts[len(parts)-1]}
	if len(parts) > 1 {
		ref.Table = strings.Join(parts[:len(parts)-1], ".")
	}
	return ref
}

// parseFuncCall parses name(args), name(*), name(DISTINCT args).
func (p *Parser) parseFuncCall() Expr {
	call := &FuncCall{Name: strings.ToLower(p.token.Literal)}
	p.nextToken()
	p.expect(TOKEN_LPAREN)

	if p.match(TOKEN_RPAREN) {
		return call
	}
	if p.check(TOKEN_STAR) {
		call.Star = true
		p.nextToken()
		p.expect(TOKEN_RPAREN)
		return call
	}

	call.Distinct = p.match(TOKEN_DISTINCT)
	for {
		call.Args = append(call.Args, p.parseExpression())
		if p.failed() || !p.match(TOKEN_COMMA) {
			break
		}
	}
	p.expect(TOKEN_RPAREN)
	return call
}

// parseCaseExpr parses both simple and searched CASE expressions.
func (p *Parser) parseCaseExpr() Expr {
	p.expect(TOKEN_CASE)
	expr := &CaseExpr{}

	if !p.check(TOKEN_WHEN) {
		expr.Operand = p.parseExpression()
	}
	for p.match(TOKEN_WHEN) {
		when := CaseWhen{When: p.parseExpression()}
		p.expect(TOKEN_THEN)
		when.Then = p.parseExpression()
		expr.Whens = append(expr.Whens, when)
		if p.failed() {
			break
		}
	}
	if p.match(TOKEN_ELSE) {
		expr.Else = p.parseExpression()
	}
	p.expect(TOKEN_END)
	return expr
}

// parseCastExpr parses CAST(expr AS type).
func (p *Parser) parseCastExpr() Expr {
	p.expect(TOKEN_CAST)
	p.expect(TOKEN_LPAREN)
	expr := &CastExpr{Expr: p.parseExpression()}
	p.expect(TOKEN_AS)
	expr.Type = p.parseTypeName()
	p.expect(TOKEN_RPAREN)
	return expr
}

// parseTypeName parses a type name with optional precision arguments,
// e.g. varchar, decimal(10,2).
func (p *Parser) parseTypeName() string {
	name := p.expectIdent()
	if p.match(TOKEN_LPAREN) {
		var args []string
		for {
			if p.check(TOKEN_NUMBER) {
				args = append(args, p.token.Literal)
				p.nextToken()
			} else {
				p.addError(fmt.Sprintf("unexpected token %s in type arguments", p.token.Type))
				break
			}
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
		p.expect(TOKEN_RPAREN)
		name = name + "(" + strings.Join(args, ", ") + ")"
	}
	return name
}
