// Package parser turns textual and JSON proto-expressions into
// algebra values. The textual grammar covers sums, products, integer
// powers and head application (`Destroy(hs=1) * Create(hs=1)`); every
// head registered with the expression registry is reachable.
package parser

import (
	"fmt"
	"math/big"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/operator"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
	"github.com/qalgebra/qalgebra/state"
	"github.com/qalgebra/qalgebra/superop"
)

// Parser parses expression strings into algebra values.
type Parser struct {
	exprParser *participle.Parser[Expression]
}

// Expression is a sum of terms with an optional leading sign.
type Expression struct {
	Neg   bool      `parser:"@'-'?"`
	First *TermNode `parser:"@@"`
	Rest  []*SumOp  `parser:"@@*"`
}

type SumOp struct {
	Op   string    `parser:"@('+' | '-')"`
	Term *TermNode `parser:"@@"`
}

// TermNode is a product of factors.
type TermNode struct {
	First *Factor  `parser:"@@"`
	Rest  []*MulOp `parser:"@@*"`
}

type MulOp struct {
	Factor *Factor `parser:"'*' @@"`
}

// Factor is a base with an optional integer power.
type Factor struct {
	Base *Base `parser:"@@"`
	Pow  *int  `parser:"('^' @Int)?"`
}

// Base is a head application, a number, a bare symbol or a
// parenthesized sub-expression.
type Base struct {
	Call   *Call       `parser:"@@"`
	Number *Number     `parser:"| @@"`
	Name   *string     `parser:"| @Ident"`
	Paren  *Expression `parser:"| '(' @@ ')'"`
}

// Call applies a registered head to positional and keyword arguments.
type Call struct {
	Head string `parser:"@Ident"`
	Args []*Arg `parser:"'(' (@@ (',' @@)*)? ')'"`
}

type Arg struct {
	Key string `parser:"(@Ident '=')?"`
	Val *Value `parser:"@@"`
}

type Value struct {
	Number *Number `parser:"@@"`
	Name   *string `parser:"| @Ident"`
}

// Number is an integer or a ratio of integers.
type Number struct {
	Num int  `parser:"@Int"`
	Den *int `parser:"('/' @Int)?"`
}

// symbolHeads take their first positional argument as a name, not a
// scalar.
var symbolHeads = map[string]bool{
	operator.HeadSymbol: true,
	state.HeadSymbol:    true,
	superop.HeadSymbol:  true,
}

// forceRegistrations touches every algebra so its head registrations
// run before the registry is consulted.
func forceRegistrations() {
	operator.Algebra()
	state.Algebra()
	superop.Algebra()
}

// New builds the expression parser. Constructing it forces every
// algebra's head registrations.
func New() (*Parser, error) {
	forceRegistrations()

	lex := lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Int", Pattern: `[0-9]+`},
		{Name: "Punct", Pattern: `[-+*^/(),=]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	exprParser, err := participle.Build[Expression](
		participle.Lexer(lex),
		participle.UseLookahead(2),
		participle.Elide("Whitespace"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build expression parser: %w", err)
	}

	return &Parser{exprParser: exprParser}, nil
}

// Parse parses input into an algebra value: a scalar when no algebra
// member occurs, otherwise a quantum expression.
func (p *Parser) Parse(input string) (any, error) {
	tree, err := p.exprParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression: %w", err)
	}
	return p.evalExpression(tree)
}

func (p *Parser) evalExpression(e *Expression) (any, error) {
	first, err := p.evalTerm(e.First)
	if err != nil {
		return nil, err
	}
	if e.Neg {
		first, err = negate(first)
		if err != nil {
			return nil, err
		}
	}
	terms := []any{first}
	for _, op := range e.Rest {
		t, err := p.evalTerm(op.Term)
		if err != nil {
			return nil, err
		}
		if op.Op == "-" {
			t, err = negate(t)
			if err != nil {
				return nil, err
			}
		}
		terms = append(terms, t)
	}
	return addAny(terms)
}

func (p *Parser) evalTerm(t *TermNode) (any, error) {
	first, err := p.evalFactor(t.First)
	if err != nil {
		return nil, err
	}
	factors := []any{first}
	for _, op := range t.Rest {
		f, err := p.evalFactor(op.Factor)
		if err != nil {
			return nil, err
		}
		factors = append(factors, f)
	}
	return mulAny(factors)
}

func (p *Parser) evalFactor(f *Factor) (any, error) {
	base, err := p.evalBase(f.Base)
	if err != nil {
		return nil, err
	}
	if f.Pow == nil {
		return base, nil
	}
	if q, ok := base.(quantum.Expr); ok {
		return quantum.Pow(q, *f.Pow)
	}
	s, ok := quantum.AsScalar(base)
	if !ok {
		return nil, fmt.Errorf("%w: power of %T", quantum.ErrUnsupported, base)
	}
	return scalar.PowRat(s, big.NewRat(int64(*f.Pow), 1)), nil
}

func (p *Parser) evalBase(b *Base) (any, error) {
	switch {
	case b.Call != nil:
		return p.evalCall(b.Call)
	case b.Number != nil:
		return b.Number.scalar(), nil
	case b.Name != nil:
		if *b.Name == "i" {
			return scalar.ImagUnit, nil
		}
		return scalar.Sym(*b.Name), nil
	case b.Paren != nil:
		return p.evalExpression(b.Paren)
	}
	return nil, fmt.Errorf("%w: empty factor", quantum.ErrUnsupported)
}

func (p *Parser) evalCall(c *Call) (any, error) {
	var ops []any
	var kw []expr.KV
	for i, arg := range c.Args {
		val := arg.Val.value()
		if arg.Key != "" {
			kw = append(kw, expr.KV{Key: arg.Key, Val: val})
			continue
		}
		if len(kw) > 0 {
			return nil, fmt.Errorf("%w: positional argument after keyword argument in %s",
				quantum.ErrUnsupported, c.Head)
		}
		if name, ok := val.(string); ok && !(i == 0 && symbolHeads[c.Head]) {
			if name == "i" {
				val = scalar.ImagUnit
			} else {
				val = scalar.Sym(name)
			}
		}
		ops = append(ops, val)
	}
	return expr.CreateByHead(c.Head, ops, kw)
}

func (n *Number) scalar() scalar.Scalar {
	if n.Den != nil {
		return scalar.Rat(int64(n.Num), int64(*n.Den))
	}
	return scalar.Int(int64(n.Num))
}

// value yields the raw argument: numbers as scalars, identifiers as
// strings. evalCall turns non-leading identifiers into scalar
// symbols.
func (v *Value) value() any {
	if v.Number != nil {
		if v.Number.Den == nil {
			return v.Number.Num
		}
		return v.Number.scalar()
	}
	return *v.Name
}

func negate(v any) (any, error) {
	if q, ok := v.(quantum.Expr); ok {
		return quantum.Neg(q)
	}
	s, ok := quantum.AsScalar(v)
	if !ok {
		return nil, fmt.Errorf("%w: negate %T", quantum.ErrUnsupported, v)
	}
	return scalar.Neg(s), nil
}

// addAny sums mixed scalar and algebra operands; a pure-scalar sum
// stays scalar.
func addAny(terms []any) (any, error) {
	if ss, ok := allScalars(terms); ok {
		return scalar.Add(ss...), nil
	}
	return quantum.Add(terms...)
}

func mulAny(factors []any) (any, error) {
	if ss, ok := allScalars(factors); ok {
		return scalar.Mul(ss...), nil
	}
	return quantum.Mul(factors...)
}

func allScalars(vs []any) ([]scalar.Scalar, bool) {
	out := make([]scalar.Scalar, 0, len(vs))
	for _, v := range vs {
		s, ok := quantum.AsScalar(v)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
