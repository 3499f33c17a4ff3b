package query

import (
	"strings"
	"unicode"
)

// Lexer tokenizes query strings
type Lexer struct {
	input string
	pos   int
	ch    rune
	// last is the type of the previously returned token; after FROM the
	// lexer reads an unquoted file path as one identifier.
	last TokenType
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, last: TokenError}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = rune(l.input[l.pos])
	}
	l.pos++
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return rune(l.input[l.pos])
}

// offset is the byte offset of the current character
func (l *Lexer) offset() int {
	return l.pos - 1
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a quoted string. ok is false when the closing quote is
// missing.
func (l *Lexer) readString(quote rune) (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case '\\':
				result.WriteRune('\\')
			case quote:
				result.WriteRune(quote)
			case 0:
				return result.String(), false
			default:
				result.WriteByte(byte(l.ch))
			}
		} else {
			result.WriteByte(byte(l.ch))
		}
		l.readChar()
	}

	if l.ch != quote {
		return result.String(), false
	}
	l.readChar() // skip closing quote
	return result.String(), true
}

// readNumber reads an unsigned decimal number with optional fraction and
// exponent. Signs are unary operators.
func (l *Lexer) readNumber() string {
	start := l.offset()
	for unicode.IsDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		l.readChar()
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for unicode.IsDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.offset()]
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	start := l.offset()
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.offset()]
}

// readPath reads everything up to the next whitespace
func (l *Lexer) readPath() string {
	start := l.offset()
	for l.ch != 0 && !unicode.IsSpace(l.ch) {
		l.readChar()
	}
	return l.input[start:l.offset()]
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	tok := l.next()
	l.last = tok.Type
	return tok
}

func (l *Lexer) next() Token {
	l.skipWhitespace()
	pos := l.offset()

	single := func(t TokenType) Token {
		tok := Token{Type: t, Value: string(l.ch), Pos: pos}
		l.readChar()
		return tok
	}
	double := func(t TokenType) Token {
		tok := Token{Type: t, Value: string(l.ch) + string(l.peekChar()), Pos: pos}
		l.readChar()
		l.readChar()
		return tok
	}

	if l.last == TokenFrom && l.ch != 0 && l.ch != '\'' && l.ch != '"' && l.ch != '`' {
		return Token{Type: TokenIdent, Value: l.readPath(), Pos: pos}
	}

	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Value: "", Pos: len(l.input)}
	case '=':
		if l.peekChar() == '=' {
			return double(TokenEqual)
		}
		return single(TokenEqual)
	case '!':
		if l.peekChar() == '=' {
			return double(TokenNotEqual)
		}
		return single(TokenError)
	case '<':
		switch l.peekChar() {
		case '=':
			return double(TokenLessEqual)
		case '>':
			return double(TokenNotEqual)
		}
		return single(TokenLess)
	case '>':
		if l.peekChar() == '=' {
			return double(TokenGreaterEqual)
		}
		return single(TokenGreater)
	case '+':
		return single(TokenPlus)
	case '-':
		return single(TokenMinus)
	case '*':
		return single(TokenStar)
	case '/':
		if l.peekChar() == '/' {
			return double(TokenFloorDiv)
		}
		return single(TokenSlash)
	case '%':
		return single(TokenPercent)
	case '^':
		return single(TokenCaret)
	case ',':
		return single(TokenComma)
	case '(':
		return single(TokenLeftParen)
	case ')':
		return single(TokenRightParen)
	case '\'', '"':
		value, ok := l.readString(l.ch)
		if !ok {
			return Token{Type: TokenError, Value: "unterminated string", Pos: pos}
		}
		return Token{Type: TokenString, Value: value, Pos: pos}
	case '`':
		value, ok := l.readString('`')
		if !ok {
			return Token{Type: TokenError, Value: "unterminated identifier", Pos: pos}
		}
		return Token{Type: TokenIdent, Value: value, Pos: pos}
	}

	switch {
	case unicode.IsDigit(l.ch) || (l.ch == '.' && unicode.IsDigit(l.peekChar())):
		return Token{Type: TokenNumber, Value: l.readNumber(), Pos: pos}
	case unicode.IsLetter(l.ch) || l.ch == '_':
		value := l.readIdentifier()
		return Token{Type: identifierType(value), Value: value, Pos: pos}
	}
	return single(TokenError)
}

var keywords = map[string]TokenType{
	"SELECT":   TokenSelect,
	"DISTINCT": TokenDistinct,
	"FROM":     TokenFrom,
	"WHERE":    TokenWhere,
	"GROUP":    TokenGroup,
	"BY":       TokenBy,
	"HAVING":   TokenHaving,
	"ORDER":    TokenOrder,
	"ASC":      TokenAsc,
	"DESC":     TokenDesc,
	"LIMIT":    TokenLimit,
	"OFFSET":   TokenOffset,
	"AS":       TokenAs,
	"AND":      TokenAnd,
	"OR":       TokenOr,
	"XOR":      TokenXor,
	"NOT":      TokenNot,
	"IS":       TokenIs,
	"NULL":     TokenNull,
	"BETWEEN":  TokenBetween,
	"TRUE":     TokenBool,
	"FALSE":    TokenBool,
}

// identifierType determines if an identifier is a keyword. Keywords are
// case-insensitive.
func identifierType(ident string) TokenType {
	if tokType, ok := keywords[strings.ToUpper(ident)]; ok {
		return tokType
	}
	return TokenIdent
}

// Tokenize returns all tokens from the input, ending with EOF or the first
// error token.
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
