package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/vegasq/colframe/frame"
)

// unaryFuncs are functions of exactly one expression argument
var unaryFuncs = map[string]func(*frame.Expr) *frame.Expr{
	"sum":         (*frame.Expr).Sum,
	"mean":        (*frame.Expr).Mean,
	"avg":         (*frame.Expr).Mean,
	"median":      (*frame.Expr).Median,
	"min":         (*frame.Expr).Min,
	"max":         (*frame.Expr).Max,
	"count":       (*frame.Expr).Count,
	"n_unique":    (*frame.Expr).NUnique,
	"first":       (*frame.Expr).First,
	"last":        (*frame.Expr).Last,
	"len":         (*frame.Expr).Len,
	"product":     (*frame.Expr).Product,
	"null_count":  (*frame.Expr).NullCount,
	"nan_min":     (*frame.Expr).NanMin,
	"nan_max":     (*frame.Expr).NanMax,
	"any":         (*frame.Expr).Any,
	"all":         (*frame.Expr).All,
	"has_nulls":   (*frame.Expr).HasNulls,
	"is_null":     (*frame.Expr).IsNull,
	"is_not_null": (*frame.Expr).IsNotNull,
	"is_nan":      (*frame.Expr).IsNaN,
	"is_not_nan":  (*frame.Expr).IsNotNaN,
	"neg":         (*frame.Expr).Neg,
}

// binaryFuncs take an expression and a second expression argument
var binaryFuncs = map[string]func(*frame.Expr, interface{}) *frame.Expr{
	"fill_null": (*frame.Expr).FillNull,
	"coalesce":  (*frame.Expr).FillNull,
	"fill_nan":  (*frame.Expr).FillNan,
	"pow":       (*frame.Expr).Pow,
	"mod":       (*frame.Expr).Mod,
}

// FunctionNames lists every function the parser accepts, sorted
func FunctionNames() []string {
	names := []string{"cast", "strict_cast", "std", "stddev", "var", "variance", "quantile"}
	for n := range unaryFuncs {
		names = append(names, n)
	}
	for n := range binaryFuncs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// parseFunction parses name(args). Function names are case-insensitive.
func (p *Parser) parseFunction() (*frame.Expr, error) {
	nameTok := p.current()
	name := strings.ToLower(nameTok.Value)
	p.advance() // name
	p.advance() // (

	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if name == "count" && p.current().Type == TokenStar {
		return nil, p.errorf(nameTok, "count(*) must be a select item of its own")
	}

	arg, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	var out *frame.Expr
	switch {
	case name == "cast" || name == "strict_cast":
		out, err = p.parseCastTarget(arg, name == "strict_cast")
	case name == "std" || name == "stddev" || name == "var" || name == "variance":
		ddof := 1
		if p.current().Type == TokenComma {
			p.advance()
			var v float64
			if v, err = p.parseNumberArg(); err == nil {
				if v != float64(int(v)) || v < 0 {
					return nil, p.errorf(nameTok, "%s ddof must be a non-negative integer", name)
				}
				ddof = int(v)
			}
		}
		if strings.HasPrefix(name, "std") {
			out = arg.Std(ddof)
		} else {
			out = arg.Var(ddof)
		}
	case name == "quantile":
		if _, err = p.expect(TokenComma); err == nil {
			var q float64
			if q, err = p.parseNumberArg(); err == nil {
				out = arg.Quantile(q)
			}
		}
	default:
		if fn, ok := unaryFuncs[name]; ok {
			out = fn(arg)
			break
		}
		fn, ok := binaryFuncs[name]
		if !ok {
			return nil, p.errorf(nameTok, "unknown function %q", nameTok.Value)
		}
		if _, err = p.expect(TokenComma); err != nil {
			return nil, err
		}
		var second *frame.Expr
		if second, err = p.parseOr(); err == nil {
			out = fn(arg, second)
		}
	}
	if err != nil {
		return nil, err
	}

	if p.current().Type == TokenComma {
		return nil, p.errorf(p.current(), "too many arguments to %s", name)
	}
	if _, err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}
	return out, nil
}

// parseCastTarget parses "AS dtype" inside cast(...)
func (p *Parser) parseCastTarget(arg *frame.Expr, strict bool) (*frame.Expr, error) {
	if _, err := p.expect(TokenAs); err != nil {
		return nil, err
	}
	tok := p.current()
	if tok.Type != TokenIdent && tok.Type != TokenString {
		return nil, p.errorf(tok, "expected dtype, got %s", describe(tok))
	}
	dtype, err := frame.ParseDType(tok.Value)
	if err != nil {
		return nil, p.errorf(tok, "unknown dtype %q", tok.Value)
	}
	p.advance()
	if strict {
		return arg.StrictCast(dtype), nil
	}
	return arg.Cast(dtype), nil
}

// parseNumberArg parses a numeric literal argument with an optional sign
func (p *Parser) parseNumberArg() (float64, error) {
	sign := 1.0
	if p.current().Type == TokenMinus {
		sign = -1
		p.advance()
	}
	tok, err := p.expect(TokenNumber)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		return 0, p.errorf(tok, "invalid number %q", tok.Value)
	}
	return sign * v, nil
}
