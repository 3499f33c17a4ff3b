package query

import (
	"github.com/vegasq/colframe/frame"
)

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenSelect TokenType = iota
	TokenDistinct
	TokenFrom
	TokenWhere
	TokenGroup
	TokenBy
	TokenHaving
	TokenOrder
	TokenAsc
	TokenDesc
	TokenLimit
	TokenOffset
	TokenAs
	TokenAnd
	TokenOr
	TokenXor
	TokenNot
	TokenIs
	TokenNull
	TokenBetween

	// Operators
	TokenEqual        // = or ==
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenFloorDiv     // //
	TokenPercent      // %
	TokenCaret        // ^

	// Punctuation
	TokenComma
	TokenLeftParen
	TokenRightParen

	// Literals
	TokenString
	TokenNumber
	TokenIdent
	TokenBool

	// Special
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenSelect: "SELECT", TokenDistinct: "DISTINCT", TokenFrom: "FROM", TokenWhere: "WHERE",
	TokenGroup: "GROUP", TokenBy: "BY", TokenHaving: "HAVING", TokenOrder: "ORDER",
	TokenAsc: "ASC", TokenDesc: "DESC", TokenLimit: "LIMIT", TokenOffset: "OFFSET",
	TokenAs: "AS", TokenAnd: "AND", TokenOr: "OR", TokenXor: "XOR", TokenNot: "NOT",
	TokenIs: "IS", TokenNull: "NULL", TokenBetween: "BETWEEN",
	TokenEqual: "=", TokenNotEqual: "!=", TokenLess: "<", TokenGreater: ">",
	TokenLessEqual: "<=", TokenGreaterEqual: ">=", TokenPlus: "+", TokenMinus: "-",
	TokenStar: "*", TokenSlash: "/", TokenFloorDiv: "//", TokenPercent: "%", TokenCaret: "^",
	TokenComma: ",", TokenLeftParen: "(", TokenRightParen: ")",
	TokenString: "string", TokenNumber: "number", TokenIdent: "identifier", TokenBool: "boolean",
	TokenEOF: "end of input", TokenError: "invalid character",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown"
}

// Token represents a lexical token. Pos is the byte offset in the input.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// SelectItem is one entry of the select list
type SelectItem struct {
	Expr *frame.Expr
	// CountStar marks count(*), resolved against the input schema
	CountStar bool
	Alias     string
}

// OrderItem is one ORDER BY key
type OrderItem struct {
	Expr       *frame.Expr
	Descending bool
}

// Statement is a parsed query:
//
//	SELECT [DISTINCT] items [FROM source] [WHERE expr] [GROUP BY exprs]
//	[HAVING expr] [ORDER BY expr [ASC|DESC], ...] [NULLS FIRST|LAST]
//	[LIMIT n] [OFFSET m]
type Statement struct {
	Items     []SelectItem
	Distinct  bool
	From      string
	Where     *frame.Expr
	GroupBy   []*frame.Expr
	Having    *frame.Expr
	OrderBy   []OrderItem
	NullsLast bool
	// Limit is -1 when absent
	Limit  int
	Offset int
}

// IsStar reports whether the select list is a bare "*"
func (s *Statement) IsStar() bool {
	return len(s.Items) == 1 && s.Items[0].Expr != nil && s.Items[0].Expr.String() == frame.All().String()
}
