package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vegasq/colframe/frame"
)

// Parser parses token streams into statements and expressions
type Parser struct {
	tokens []Token
	pos    int
	limits Limits
	depth  int
}

// NewParser creates a parser bounded by DefaultLimits
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens: tokens,
		pos:    0,
		limits: DefaultLimits,
	}
}

// enter opens one level of expression nesting; pair it with leave.
func (p *Parser) enter() error {
	p.depth++
	return checkLimit("expression depth", p.depth, p.limits.Depth)
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) checkName(name string) error {
	return checkLimit("name length", len(name), p.limits.NameBytes)
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if tok.Type == TokenError {
		msg = tok.Value
		if len(tok.Value) == 1 {
			msg = fmt.Sprintf("%s %q", tok.Type, tok.Value)
		}
	}
	return fmt.Errorf("%w at position %d: %s", ErrSyntax, tok.Pos, msg)
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) (Token, error) {
	tok := p.current()
	if tok.Type != tokType {
		return tok, p.errorf(tok, "expected %s, got %s", tokType, describe(tok))
	}
	p.advance()
	return tok, nil
}

// isWord reports whether the current token is the bare identifier word
func (p *Parser) isWord(word string) bool {
	tok := p.current()
	return tok.Type == TokenIdent && strings.EqualFold(tok.Value, word)
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return tok.Type.String()
	case TokenString:
		return fmt.Sprintf("string %q", tok.Value)
	}
	return fmt.Sprintf("%q", tok.Value)
}

// Parse parses a query statement under DefaultLimits
func Parse(input string) (*Statement, error) {
	return DefaultLimits.Parse(input)
}

// ParseExpr parses a single expression such as "a + 1 > b AND c IS NOT NULL"
// under DefaultLimits
func ParseExpr(input string) (*frame.Expr, error) {
	return DefaultLimits.ParseExpr(input)
}

// parseStatement parses the clauses of a SELECT in order
func (p *Parser) parseStatement() (*Statement, error) {
	if _, err := p.expect(TokenSelect); err != nil {
		return nil, fmt.Errorf("query must start with SELECT: %w", err)
	}
	stmt := &Statement{Limit: -1}

	if p.current().Type == TokenDistinct {
		stmt.Distinct = true
		p.advance()
	}

	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		stmt.Items = append(stmt.Items, item)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}

	if p.current().Type == TokenFrom {
		p.advance()
		tok := p.current()
		if tok.Type != TokenIdent && tok.Type != TokenString {
			return nil, p.errorf(tok, "expected source after FROM, got %s", describe(tok))
		}
		if err := checkLimit("source path length", len(tok.Value), p.limits.SourceBytes); err != nil {
			return nil, err
		}
		stmt.From = tok.Value
		p.advance()
	}

	if p.current().Type == TokenWhere {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		stmt.Where = expr
	}

	if p.current().Type == TokenGroup {
		p.advance()
		if _, err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		keys, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = keys
	}

	if p.current().Type == TokenHaving {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		stmt.Having = expr
	}

	if p.current().Type == TokenOrder {
		p.advance()
		if _, err := p.expect(TokenBy); err != nil {
			return nil, err
		}
		if err := p.parseOrderBy(stmt); err != nil {
			return nil, err
		}
	}

	if p.current().Type == TokenLimit {
		p.advance()
		n, err := p.parseCount()
		if err != nil {
			return nil, err
		}
		stmt.Limit = n
	}
	if p.current().Type == TokenOffset {
		p.advance()
		n, err := p.parseCount()
		if err != nil {
			return nil, err
		}
		stmt.Offset = n
	}

	if _, err := p.expect(TokenEOF); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseSelectItem parses "*", count(*) or an expression with an optional
// alias ("expr AS name" or "expr name").
func (p *Parser) parseSelectItem() (SelectItem, error) {
	var item SelectItem
	switch {
	case p.current().Type == TokenStar:
		p.advance()
		return SelectItem{Expr: frame.All()}, nil
	case p.isWord("count") && p.peek().Type == TokenLeftParen &&
		p.pos+2 < len(p.tokens) && p.tokens[p.pos+2].Type == TokenStar:
		p.pos += 3
		if _, err := p.expect(TokenRightParen); err != nil {
			return item, err
		}
		item.CountStar = true
	default:
		expr, err := p.parseOr()
		if err != nil {
			return item, err
		}
		item.Expr = expr
	}

	switch tok := p.current(); tok.Type {
	case TokenAs:
		p.advance()
		name := p.current()
		if name.Type != TokenIdent && name.Type != TokenString {
			return item, p.errorf(name, "expected alias after AS, got %s", describe(name))
		}
		item.Alias = name.Value
		p.advance()
	case TokenIdent:
		item.Alias = tok.Value
		p.advance()
	}
	if err := p.checkName(item.Alias); err != nil {
		return item, err
	}
	return item, nil
}

func (p *Parser) parseExprList() ([]*frame.Expr, error) {
	var out []*frame.Expr
	for {
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
		if p.current().Type != TokenComma {
			return out, nil
		}
		p.advance()
	}
}

// parseOrderBy parses "expr [ASC|DESC], ... [NULLS FIRST|LAST]"
func (p *Parser) parseOrderBy(stmt *Statement) error {
	for {
		expr, err := p.parseOr()
		if err != nil {
			return err
		}
		item := OrderItem{Expr: expr}
		switch p.current().Type {
		case TokenAsc:
			p.advance()
		case TokenDesc:
			item.Descending = true
			p.advance()
		}
		stmt.OrderBy = append(stmt.OrderBy, item)
		if p.current().Type != TokenComma {
			break
		}
		p.advance()
	}

	if !p.isWord("nulls") {
		return nil
	}
	p.advance()
	switch {
	case p.isWord("first"):
		stmt.NullsLast = false
	case p.isWord("last"):
		stmt.NullsLast = true
	default:
		return p.errorf(p.current(), "expected FIRST or LAST after NULLS, got %s", describe(p.current()))
	}
	p.advance()
	return nil
}

// parseCount parses a non-negative integer literal
func (p *Parser) parseCount() (int, error) {
	tok, err := p.expect(TokenNumber)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok.Value)
	if err != nil || n < 0 {
		return 0, p.errorf(tok, "expected a non-negative integer, got %q", tok.Value)
	}
	return n, nil
}

// parseOr parses OR expressions (lowest precedence)
func (p *Parser) parseOr() (*frame.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = left.Or(right)
	}

	return left, nil
}

// parseXor parses XOR expressions
func (p *Parser) parseXor() (*frame.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenXor {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = left.Xor(right)
	}

	return left, nil
}

// parseAnd parses AND expressions (higher precedence than OR)
func (p *Parser) parseAnd() (*frame.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = left.And(right)
	}

	return left, nil
}

func (p *Parser) parseNot() (*frame.Expr, error) {
	if p.current().Type == TokenNot {
		p.advance()
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return inner.Not(), nil
	}
	return p.parseComparison()
}

var comparisons = map[TokenType]func(l *frame.Expr, r interface{}) *frame.Expr{
	TokenEqual:        (*frame.Expr).Eq,
	TokenNotEqual:     (*frame.Expr).Ne,
	TokenLess:         (*frame.Expr).Lt,
	TokenLessEqual:    (*frame.Expr).Le,
	TokenGreater:      (*frame.Expr).Gt,
	TokenGreaterEqual: (*frame.Expr).Ge,
}

// parseComparison parses comparisons, IS [NOT] NULL and [NOT] BETWEEN
func (p *Parser) parseComparison() (*frame.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	if build, ok := comparisons[tok.Type]; ok {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return build(left, right), nil
	}

	switch tok.Type {
	case TokenIs:
		p.advance()
		negate := false
		if p.current().Type == TokenNot {
			negate = true
			p.advance()
		}
		if _, err := p.expect(TokenNull); err != nil {
			return nil, err
		}
		if negate {
			return left.IsNotNull(), nil
		}
		return left.IsNull(), nil
	case TokenNot:
		if p.peek().Type != TokenBetween {
			return left, nil
		}
		p.advance()
		between, err := p.parseBetween(left)
		if err != nil {
			return nil, err
		}
		return between.Not(), nil
	case TokenBetween:
		return p.parseBetween(left)
	}
	return left, nil
}

// parseBetween parses "BETWEEN lower AND upper", inclusive on both ends
func (p *Parser) parseBetween(left *frame.Expr) (*frame.Expr, error) {
	if _, err := p.expect(TokenBetween); err != nil {
		return nil, err
	}
	lower, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenAnd); err != nil {
		return nil, err
	}
	upper, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return left.IsBetween(lower, upper, "both"), nil
}

func (p *Parser) parseAdditive() (*frame.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current().Type {
		case TokenPlus:
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = left.Add(right)
		case TokenMinus:
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = left.Sub(right)
		default:
			return left, nil
		}
	}
}

var multiplicative = map[TokenType]func(l *frame.Expr, r interface{}) *frame.Expr{
	TokenStar:     (*frame.Expr).Mul,
	TokenSlash:    (*frame.Expr).Div,
	TokenFloorDiv: (*frame.Expr).FloorDiv,
	TokenPercent:  (*frame.Expr).Mod,
}

func (p *Parser) parseMultiplicative() (*frame.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		build, ok := multiplicative[p.current().Type]
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = build(left, right)
	}
}

// parseUnary parses prefix signs. Power binds tighter, so -2^2 is -(2^2).
func (p *Parser) parseUnary() (*frame.Expr, error) {
	switch p.current().Type {
	case TokenMinus:
		p.advance()
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return inner.Neg(), nil
	case TokenPlus:
		p.advance()
		return p.parseUnary()
	}
	return p.parsePower()
}

// parsePower parses right-associative "^"
func (p *Parser) parsePower() (*frame.Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenCaret {
		return base, nil
	}
	p.advance()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return base.Pow(exp), nil
}

func (p *Parser) parsePrimary() (*frame.Expr, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		v, err := parseNumber(tok.Value)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %q", tok.Value)
		}
		return frame.Lit(v), nil
	case TokenString:
		p.advance()
		return frame.Lit(tok.Value), nil
	case TokenBool:
		p.advance()
		return frame.Lit(strings.EqualFold(tok.Value, "true")), nil
	case TokenNull:
		p.advance()
		return frame.Lit(nil), nil
	case TokenStar:
		p.advance()
		return frame.All(), nil
	case TokenLeftParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
		return inner, nil
	case TokenIdent:
		if p.peek().Type == TokenLeftParen {
			return p.parseFunction()
		}
		if err := p.checkName(tok.Value); err != nil {
			return nil, err
		}
		p.advance()
		return frame.Col(tok.Value), nil
	}
	return nil, p.errorf(tok, "unexpected %s", describe(tok))
}

// parseNumber returns int64 for integral literals and float64 otherwise
func parseNumber(s string) (interface{}, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	return strconv.ParseFloat(s, 64)
}
