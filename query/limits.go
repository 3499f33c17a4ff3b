package query

import (
	"errors"
	"fmt"

	"github.com/vegasq/colframe/frame"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("syntax error")

// ErrLimit is wrapped by every *LimitError.
var ErrLimit = errors.New("query limit exceeded")

// Limits bound the queries a parser accepts. Zero disables a bound.
type Limits struct {
	// QueryBytes caps the raw query text
	QueryBytes int
	// Tokens caps the lexed token count, EOF included
	Tokens int
	// Depth caps expression nesting: parentheses, OR chains, NOT and unary minus
	Depth int
	// NameBytes caps column names and aliases
	NameBytes int
	// SourceBytes caps the FROM path or glob
	SourceBytes int
}

// DefaultLimits are applied by Parse and ParseExpr.
var DefaultLimits = Limits{
	QueryBytes:  256 << 10,
	Tokens:      8192,
	Depth:       128,
	NameBytes:   255,
	SourceBytes: 4096,
}

// LimitError reports which bound a query crossed.
type LimitError struct {
	Limit string
	Got   int
	Max   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %s is %d, max %d", ErrLimit, e.Limit, e.Got, e.Max)
}

func (e *LimitError) Unwrap() error { return ErrLimit }

func checkLimit(limit string, got, max int) error {
	if max > 0 && got > max {
		return &LimitError{Limit: limit, Got: got, Max: max}
	}
	return nil
}

// Parse parses a statement under l.
func (l Limits) Parse(input string) (*Statement, error) {
	tokens, err := l.tokenize(input)
	if err != nil {
		return nil, err
	}
	return l.parser(tokens).parseStatement()
}

// ParseExpr parses a single expression under l.
func (l Limits) ParseExpr(input string) (*frame.Expr, error) {
	tokens, err := l.tokenize(input)
	if err != nil {
		return nil, err
	}
	p := l.parser(tokens)
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenEOF); err != nil {
		return nil, err
	}
	return expr, nil
}

func (l Limits) tokenize(input string) ([]Token, error) {
	if err := checkLimit("query length in bytes", len(input), l.QueryBytes); err != nil {
		return nil, err
	}
	tokens := Tokenize(input)
	if err := checkLimit("token count", len(tokens), l.Tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (l Limits) parser(tokens []Token) *Parser {
	p := NewParser(tokens)
	p.limits = l
	return p
}
