package sqlparse

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMultiStatement is returned when the input contains more than one
// statement, whether separated by semicolons or simply concatenated.
var ErrMultiStatement = errors.New("multiple statements in input")

// Parser parses SQL into an AST.
type Parser struct {
	lexer  *Lexer
	input  string // original input for raw extraction
	token  Token  // current token
	peek   Token  // lookahead token
	peek2  Token  // second lookahead token
	errors []error
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{
		lexer: NewLexer(sql),
		input: sql,
	}
	// Initialize three-token lookahead
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the SQL and returns the top-level statement.
// Returns ErrMultiStatement if more than one statement is present.
func Parse(sql string) (Stmt, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, fmt.Errorf("empty SQL")
	}

	p := NewParser(sql)
	stmt := p.parseTopLevel()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}

	// One optional trailing semicolon is tolerated; anything after it, or a
	// second statement-start keyword, is multi-statement input.
	sawSemicolon := p.match(TOKEN_SEMICOLON)
	if p.token.Type != TOKEN_EOF {
		if sawSemicolon || isStatementStart(p.token.Type) {
			return nil, ErrMultiStatement
		}
		return nil, fmt.Errorf("parse error: unexpected token %s after statement", p.token.Type)
	}

	return stmt, nil
}

// parseTopLevel dispatches on the first token. SELECT statements are parsed in
// full; everything else is classified for rejection.
func (p *Parser) parseTopLevel() Stmt {
	switch p.token.Type {
	case TOKEN_SELECT, TOKEN_WITH:
		return p.parseSelectStatement()
	default:
		if kind, ok := statementKinds[p.token.Type]; ok {
			return p.parseOther(kind)
		}
		p.addError(fmt.Sprintf("unexpected token at start of statement: %s", p.token.Type))
		return nil
	}
}

// statementKinds maps leading tokens of non-SELECT statements to their kind label.
var statementKinds = map[TokenType]string{
	TOKEN_INSERT:   "INSERT",
	TOKEN_UPDATE:   "UPDATE",
	TOKEN_DELETE:   "DELETE",
	TOKEN_MERGE:    "MERGE",
	TOKEN_CREATE:   "CREATE",
	TOKEN_DROP:     "DROP",
	TOKEN_ALTER:    "ALTER",
	TOKEN_TRUNCATE: "TRUNCATE",
	TOKEN_GRANT:    "GRANT",
	TOKEN_REVOKE:   "REVOKE",
	TOKEN_COPY:     "COPY",
	TOKEN_CALL:     "CALL",
	TOKEN_PRAGMA:   "PRAGMA",
	TOKEN_ATTACH:   "ATTACH",
	TOKEN_DETACH:   "DETACH",
	TOKEN_SET:      "SET",
	TOKEN_INSTALL:  "INSTALL",
	TOKEN_LOAD:     "LOAD",
	TOKEN_EXPLAIN:  "EXPLAIN",
	TOKEN_DESCRIBE: "DESCRIBE",
	TOKEN_SHOW:     "SHOW",
	TOKEN_VACUUM:   "VACUUM",
	TOKEN_BEGIN:    "BEGIN",
	TOKEN_COMMIT:   "COMMIT",
	TOKEN_ROLLBACK: "ROLLBACK",
	TOKEN_EXECUTE:  "EXECUTE",
	TOKEN_PREPARE:  "PREPARE",
	TOKEN_USE:      "USE",
	TOKEN_EXPORT:   "EXPORT",
	TOKEN_IMPORT:   "IMPORT",
	TOKEN_VALUES:   "VALUES",
}

// EmbeddedStatementKind scans the raw input for a keyword that begins a
// non-SELECT statement, regardless of where it appears. It classifies parse
// failures where DDL or DML text is nested inside SELECT-shaped input, e.g.
// SELECT * FROM (DROP TABLE x). Quoted identifiers and string literals never
// match.
func EmbeddedStatementKind(sql string) (string, bool) {
	lx := NewLexer(sql)
	for tok := lx.NextToken(); tok.Type != TOKEN_EOF; tok = lx.NextToken() {
		if kind, ok := statementKinds[tok.Type]; ok {
			return kind, true
		}
	}
	return "", false
}

// isStatementStart reports whether the token can begin a statement.
func isStatementStart(t TokenType) bool {
	if t == TOKEN_SELECT || t == TOKEN_WITH {
		return true
	}
	_, ok := statementKinds[t]
	return ok
}

// parseOther consumes a non-SELECT statement without deep parsing.
func (p *Parser) parseOther(kind string) Stmt {
	stmt := &OtherStmt{Kind: kind, Raw: p.input}
	for p.token.Type != TOKEN_EOF && p.token.Type != TOKEN_SEMICOLON {
		p.nextToken()
	}
	return stmt
}

// === Token helpers ===

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t TokenType) bool {
	return p.peek2.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("unexpected token %s, expected %s", p.token.Type, t))
	return false
}

// expectIdent consumes and returns an identifier, or adds an error.
func (p *Parser) expectIdent() string {
	if p.check(TOKEN_IDENT) {
		lit := p.token.Literal
		p.nextToken()
		return lit
	}
	p.addError(fmt.Sprintf("unexpected token %s, expected identifier", p.token.Type))
	return ""
}

// addError adds a parse error.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Errorf("parse error: %s", msg))
}

// failed reports whether parsing has already produced an error.
func (p *Parser) failed() bool {
	return len(p.errors) > 0
}
