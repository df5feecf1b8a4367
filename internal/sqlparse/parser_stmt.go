package sqlparse

// parseSelectStatement parses a full SELECT statement with optional WITH clause.
func (p *Parser) parseSelectStatement() *SelectStmt {
	stmt := &SelectStmt{}

	if p.check(TOKEN_WITH) {
		stmt.With = p.parseWithClause()
	}

	stmt.Body = p.parseSelectBody()
	return stmt
}

// parseWithClause parses WITH [RECURSIVE] name AS (select) [, ...].
func (p *Parser) parseWithClause() *WithClause {
	p.expect(TOKEN_WITH)
	clause := &WithClause{}
	clause.Recursive = p.match(TOKEN_RECURSIVE)

	for {
		cte := &CTE{}
		cte.Name = p.expectIdent()
		p.expect(TOKEN_AS)
		p.expect(TOKEN_LPAREN)
		cte.Select = p.parseSelectStatement()
		p.expect(TOKEN_RPAREN)
		clause.CTEs = append(clause.CTEs, cte)

		if p.failed() || !p.match(TOKEN_COMMA) {
			break
		}
	}
	return clause
}

// parseSelectBody parses a SELECT core with optional chained set operations.
func (p *Parser) parseSelectBody() *SelectBody {
	body := &SelectBody{Left: p.parseSelectCore()}

	switch p.token.Type {
	case TOKEN_UNION:
		p.nextToken()
		if p.match(TOKEN_ALL) {
			body.Op = SetOpUnionAll
		} else {
			body.Op = SetOpUnion
			p.match(TOKEN_DISTINCT)
		}
		body.Right = p.parseSelectBody()
	case TOKEN_INTERSECT:
		p.nextToken()
		body.Op = SetOpIntersect
		body.Right = p.parseSelectBody()
	case TOKEN_EXCEPT:
		p.nextToken()
		body.Op = SetOpExcept
		body.Right = p.parseSelectBody()
	}
	return body
}

// parseSelectCore parses SELECT [DISTINCT] columns [FROM ...] [WHERE ...]
// [GROUP BY ...] [HAVING ...] [ORDER BY ...] [LIMIT n] [OFFSET n].
func (p *Parser) parseSelectCore() *SelectCore {
	core := &SelectCore{}
	p.expect(TOKEN_SELECT)

	if p.match(TOKEN_DISTINCT) {
		core.Distinct = true
	} else {
		p.match(TOKEN_ALL)
	}

	core.Columns = p.parseSelectList()

	if p.match(TOKEN_FROM) {
		core.From = p.parseFromClause()
	}
	if p.match(TOKEN_WHERE) {
		core.Where = p.parseExpression()
	}
	if p.check(TOKEN_GROUP) {
		p.nextToken()
		p.expect(TOKEN_BY)
		for {
			core.GroupBy = append(core.GroupBy, p.parseExpression())
			if p.failed() || !p.match(TOKEN_COMMA) {
				break
			}
		}
	}
	if p.match(TOKEN_HAVING) {
		core.Having = p.parseExpression()
	}
	if p.check(TOKEN_ORDER) {
		p.nextToken()
		p.expect(TOKEN_BY)
		for {
			item := OrderByItem{Expr: p.parseExpression()}
			if p.match(TOKEN_DESC) {
				item.Desc = true
			} else {
				p.match(TOKEN_ASC)
			}
			core.OrderBy = append(core.OrderBy, item)
			if p.failed() || !p.match(TOKEN_COMMA) {
				break
			}
		}
	}
	if p.match(TOKEN_LIMIT) {
		core.Limit = p.parseExpression()
	}
	if p.match(TOKEN_OFFSET) {
		core.Offset = p.parseExpression()
	}

	return core
}

// parseSelectList parses the comma-separated projection list.
func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem
	for {
		items = append(items, p.parseSelectItem())
		if p.failed() || !p.match(TOKEN_COMMA) {
			break
		}
	}
	return items
}

// parseSelectItem parses one projection item: *, t.*, or expr [AS] alias.
func (p *Parser) parseSelectItem() SelectItem {
	if p.match(TOKEN_STAR) {
		return SelectItem{Star: true}
	}
	// t.* needs two tokens of lookahead to distinguish from t.col
	if p.check(TOKEN_IDENT) && p.checkPeek(TOKEN_DOT) && p.checkPeek2(TOKEN_STAR) {
		table := p.token.Literal
		p.nextToken()
		p.nextToken()
		p.nextToken()
		return SelectItem{TableStar: table}
	}

	item := SelectItem{Expr: p.parseExpression()}
	if p.match(TOKEN_AS) {
		item.Alias = p.expectIdent()
	} else if p.check(TOKEN_IDENT) {
		item.Alias = p.token.Literal
		p.nextToken()
	}
	return item
}

// parseFromClause parses the first table source and any trailing joins.
func (p *Parser) parseFromClause() *FromClause {
	from := &FromClause{Source: p.parseTableRef()}

	for !p.failed() {
		join := p.parseJoin()
		if join == nil {
			break
		}
		from.Joins = append(from.Joins, join)
	}
	return from
}

// parseJoin parses one join clause, or returns nil if the current token does
// not begin one.
func (p *Parser) parseJoin() *Join {
	join := &Join{}

	switch p.token.Type {
	case TOKEN_COMMA:
		p.nextToken()
		join.Type = JoinComma
		join.Right = p.parseTableRef()
		return join
	case TOKEN_JOIN:
		p.nextToken()
		join.Type = JoinInner
	case TOKEN_INNER:
		p.nextToken()
		p.expect(TOKEN_JOIN)
		join.Type = JoinInner
	case TOKEN_LEFT:
		p.nextToken()
		p.match(TOKEN_OUTER)
		p.expect(TOKEN_JOIN)
		join.Type = JoinLeft
	case TOKEN_RIGHT:
		p.nextToken()
		p.match(TOKEN_OUTER)
		p.expect(TOKEN_JOIN)
		join.Type = JoinRight
	case TOKEN_FULL:
		p.nextToken()
		p.match(TOKEN_OUTER)
		p.expect(TOKEN_JOIN)
		join.Type = JoinFull
	case TOKEN_CROSS:
		p.nextToken()
		p.expect(TOKEN_JOIN)
		join.Type = JoinCross
		join.Right = p.parseTableRef()
		return join
	default:
		return nil
	}

	join.Right = p.parseTableRef()

	if p.match(TOKEN_ON) {
		join.Condition = p.parseExpression()
	} else if p.match(TOKEN_USING) {
		p.expect(TOKEN_LPAREN)
		for {
			join.Using = append(join.Using, p.expectIdent())
			if p.failed() || !p.match(TOKEN_COMMA) {
				break
			}
		}
		p.expect(TOKEN_RPAREN)
	}
	return join
}

// parseTableRef parses a dotted table name or a parenthesized subquery,
// each with an optional alias.
func (p *Parser) parseTableRef() TableRef {
	if p.check(TOKEN_LPAREN) {
		p.nextToken()
		ref := &SubqueryRef{Select: p.parseSelectStatement()}
		p.expect(TOKEN_RPAREN)
		ref.Alias = p.parseOptionalAlias()
		return ref
	}

	name := &TableName{}
	name.Parts = append(name.Parts, p.expectIdent())
	for p.match(TOKEN_DOT) {
		name.Parts = append(name.Parts, p.expectIdent())
	}
	name.Alias = p.parseOptionalAlias()
	return name
}

// parseOptionalAlias consumes [AS] alias if present.
func (p *Parser) parseOptionalAlias() string {
	if p.match(TOKEN_AS) {
		return p.expectIdent()
	}
	if p.check(TOKEN_IDENT) {
		alias := p.token.Literal
		p.nextToken()
		return alias
	}
	return ""
}
