// Package scalar implements the exact symbolic coefficients that
// quantum expressions are scaled by: complex rational numbers, named
// symbols, and sums, products and rational powers of those.
//
// All constructors normalize: numbers are folded, like terms are
// collected, factors are sorted by a canonical key. Two scalars are
// equal iff their keys are equal, so the zero value of a computation
// always compares equal to Zero.
//
// Symbols are treated as real: conjugation distributes over sums and
// products and leaves symbols fixed.
package scalar

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"
)

// ErrCannotExpand is returned by SeriesCoeffs for scalars that are not
// polynomial in the expansion parameter.
var ErrCannotExpand = errors.New("scalar: cannot expand as power series")

// Scalar is a symbolic scalar coefficient.
type Scalar interface {
	// Key is the canonical identity of the scalar. Two scalars are
	// equal iff their keys are equal.
	Key() string
	String() string

	scalarNode()
}

// SimplifyFunc rewrites a scalar coefficient. It is the hook passed to
// the SimplifyScalar methods of the quantum algebras.
type SimplifyFunc func(Scalar) Scalar

// Identity is the default SimplifyFunc. Construction already
// normalizes, so there is nothing left to do.
func Identity(s Scalar) Scalar { return s }

var (
	ratZero = big.NewRat(0, 1)
	ratOne  = big.NewRat(1, 1)
	ratHalf = big.NewRat(1, 2)
)

// Number is an exact complex rational number.
type Number struct {
	re, im *big.Rat
}

func (n Number) scalarNode() {}

// Int returns the scalar for an integer value.
func Int(v int64) Scalar { return Number{re: big.NewRat(v, 1), im: ratZero} }

// Rat returns the scalar p/q.
func Rat(p, q int64) Scalar { return Number{re: big.NewRat(p, q), im: ratZero} }

// Complex returns the scalar re + im*i from exact rational parts.
func Complex(re, im *big.Rat) Scalar {
	return Number{re: new(big.Rat).Set(re), im: new(big.Rat).Set(im)}
}

// Zero and One are the canonical scalar constants. ImagUnit is i.
var (
	Zero     = Int(0)
	One      = Int(1)
	MinusOne = Int(-1)
	ImagUnit = Number{re: ratZero, im: ratOne}
)

func (n Number) Key() string {
	if n.im.Sign() == 0 {
		return n.re.RatString()
	}
	if n.re.Sign() == 0 {
		if n.im.Cmp(ratOne) == 0 {
			return "I"
		}
		return n.im.RatString() + "*I"
	}
	return "(" + n.re.RatString() + "+" + n.im.RatString() + "*I)"
}

func (n Number) String() string { return n.Key() }

// IsZero reports whether the number is exactly zero.
func (n Number) IsZero() bool { return n.re.Sign() == 0 && n.im.Sign() == 0 }

// IsOne reports whether the number is exactly one.
func (n Number) IsOne() bool { return n.re.Cmp(ratOne) == 0 && n.im.Sign() == 0 }

// Magnitude returns |n| as a float, for order keys.
func (n Number) Magnitude() float64 {
	re, _ := n.re.Float64()
	im, _ := n.im.Float64()
	return math.Hypot(re, im)
}

// Re returns the real part of the number.
func (n Number) Re() *big.Rat { return new(big.Rat).Set(n.re) }

func (n Number) add(m Number) Number {
	return Number{
		re: new(big.Rat).Add(n.re, m.re),
		im: new(big.Rat).Add(n.im, m.im),
	}
}

func (n Number) mul(m Number) Number {
	// (a+bi)(c+di) = (ac-bd) + (ad+bc)i
	ac := new(big.Rat).Mul(n.re, m.re)
	bd := new(big.Rat).Mul(n.im, m.im)
	ad := new(big.Rat).Mul(n.re, m.im)
	bc := new(big.Rat).Mul(n.im, m.re)
	return Number{re: ac.Sub(ac, bd), im: ad.Add(ad, bc)}
}

func (n Number) conj() Number {
	return Number{re: n.re, im: new(big.Rat).Neg(n.im)}
}

func (n Number) inverse() (Number, error) {
	if n.IsZero() {
		return Number{}, fmt.Errorf("scalar: division by zero")
	}
	// 1/(a+bi) = (a-bi)/(a²+b²)
	den := new(big.Rat).Mul(n.re, n.re)
	den.Add(den, new(big.Rat).Mul(n.im, n.im))
	inv := new(big.Rat).Inv(den)
	return Number{
		re: new(big.Rat).Mul(n.re, inv),
		im: new(big.Rat).Neg(new(big.Rat).Mul(n.im, inv)),
	}, nil
}

// Symbol is a named scalar symbol. Primes distinguish renamed bound
// indices: renaming i yields i', then i'' and so on.
type Symbol struct {
	Name   string
	Primes int
}

func (s Symbol) scalarNode() {}

// Sym returns the scalar symbol with the given name.
func Sym(name string) Symbol { return Symbol{Name: name} }

// Prime returns the symbol with one more prime mark.
func (s Symbol) Prime() Symbol { return Symbol{Name: s.Name, Primes: s.Primes + 1} }

func (s Symbol) Key() string {
	return s.Name + strings.Repeat("'", s.Primes)
}

func (s Symbol) String() string { return s.Key() }

// sum is a normalized sum of at least two terms.
type sum struct {
	terms []Scalar
	key   string
}

func (s sum) scalarNode()    {}
func (s sum) Key() string    { return s.key }
func (s sum) String() string { return s.key }

// product is a normalized product of at least two factors. If a
// numeric coefficient is present it is the first factor.
type product struct {
	factors []Scalar
	key     string
}

func (p product) scalarNode()    {}
func (p product) Key() string    { return p.key }
func (p product) String() string { return p.key }

// power is base^exp with a rational, non-trivial exponent.
type power struct {
	base Scalar
	exp  *big.Rat
	key  string
}

func (p power) scalarNode()    {}
func (p power) Key() string    { return p.key }
func (p power) String() string { return p.key }

func newSum(terms []Scalar) Scalar {
	switch len(terms) {
	case 0:
		return Zero
	case 1:
		return terms[0]
	}
	keys := make([]string, len(terms))
	for i, t := range terms {
		keys[i] = t.Key()
	}
	return sum{terms: terms, key: "Add(" + strings.Join(keys, ",") + ")"}
}

func newProduct(factors []Scalar) Scalar {
	switch len(factors) {
	case 0:
		return One
	case 1:
		return factors[0]
	}
	keys := make([]string, len(factors))
	for i, f := range factors {
		keys[i] = f.Key()
	}
	return product{factors: factors, key: "Mul(" + strings.Join(keys, ",") + ")"}
}

func newPower(base Scalar, exp *big.Rat) Scalar {
	return power{
		base: base,
		exp:  exp,
		key:  "Pow(" + base.Key() + "," + exp.RatString() + ")",
	}
}

// Equal reports whether two scalars are equal.
func Equal(a, b Scalar) bool { return a.Key() == b.Key() }

// IsZero reports whether s is the scalar zero.
func IsZero(s Scalar) bool {
	n, ok := s.(Number)
	return ok && n.IsZero()
}

// IsOne reports whether s is the scalar one.
func IsOne(s Scalar) bool {
	n, ok := s.(Number)
	return ok && n.IsOne()
}

// Magnitude returns |s| for numeric scalars and +Inf otherwise, so
// that non-numeric coefficients sort last in order keys.
func Magnitude(s Scalar) float64 {
	if n, ok := s.(Number); ok {
		return n.Magnitude()
	}
	return math.Inf(1)
}

// coeffRest splits a term into its numeric coefficient and the
// remaining symbolic part, for like-term collection.
func coeffRest(s Scalar) (Number, Scalar) {
	switch v := s.(type) {
	case Number:
		return v, One
	case product:
		if n, ok := v.factors[0].(Number); ok {
			return n, newProduct(append([]Scalar(nil), v.factors[1:]...))
		}
	}
	return One.(Number), s
}

// Add returns the normalized sum of the given scalars.
func Add(xs ...Scalar) Scalar {
	total := Zero.(Number)
	coeffs := map[string]Number{}
	rests := map[string]Scalar{}
	var order []string
	var visit func(s Scalar)
	visit = func(s Scalar) {
		if su, ok := s.(sum); ok {
			for _, t := range su.terms {
				visit(t)
			}
			return
		}
		c, rest := coeffRest(s)
		if IsOne(rest) {
			total = total.add(c)
			return
		}
		k := rest.Key()
		if prev, ok := coeffs[k]; ok {
			coeffs[k] = prev.add(c)
		} else {
			coeffs[k] = c
			rests[k] = rest
			order = append(order, k)
		}
	}
	for _, x := range xs {
		visit(x)
	}
	sort.Strings(order)
	var terms []Scalar
	if !total.IsZero() {
		terms = append(terms, total)
	}
	for _, k := range order {
		c := coeffs[k]
		if c.IsZero() {
			continue
		}
		terms = append(terms, Mul(c, rests[k]))
	}
	return newSum(terms)
}

// baseExp splits a factor into base and exponent for power collection.
func baseExp(s Scalar) (Scalar, *big.Rat) {
	if p, ok := s.(power); ok {
		return p.base, p.exp
	}
	return s, ratOne
}

// Mul returns the normalized product of the given scalars.
func Mul(xs ...Scalar) Scalar {
	coeff := One.(Number)
	exps := map[string]*big.Rat{}
	bases := map[string]Scalar{}
	var order []string
	var visit func(s Scalar)
	visit = func(s Scalar) {
		if p, ok := s.(product); ok {
			for _, f := range p.factors {
				visit(f)
			}
			return
		}
		if n, ok := s.(Number); ok {
			coeff = coeff.mul(n)
			return
		}
		base, exp := baseExp(s)
		k := base.Key()
		if prev, ok := exps[k]; ok {
			exps[k] = new(big.Rat).Add(prev, exp)
		} else {
			exps[k] = new(big.Rat).Set(exp)
			bases[k] = base
			order = append(order, k)
		}
	}
	for _, x := range xs {
		visit(x)
	}
	if coeff.IsZero() {
		return Zero
	}
	sort.Strings(order)
	var factors []Scalar
	for _, k := range order {
		f := PowRat(bases[k], exps[k])
		if IsOne(f) {
			continue
		}
		if n, ok := f.(Number); ok {
			coeff = coeff.mul(n)
			continue
		}
		factors = append(factors, f)
	}
	if coeff.IsZero() {
		return Zero
	}
	if len(factors) == 0 {
		return coeff
	}
	if !coeff.IsOne() {
		factors = append([]Scalar{coeff}, factors...)
	}
	return newProduct(factors)
}

// Neg returns -s.
func Neg(s Scalar) Scalar { return Mul(MinusOne, s) }

// Sub returns a - b.
func Sub(a, b Scalar) Scalar { return Add(a, Neg(b)) }

// Div returns a / b. Division by the number zero is an error.
func Div(a, b Scalar) (Scalar, error) {
	if IsZero(b) {
		return nil, fmt.Errorf("scalar: division by zero")
	}
	return Mul(a, PowRat(b, new(big.Rat).Neg(ratOne))), nil
}

// Pow returns s^n for an integer exponent.
func Pow(s Scalar, n int64) Scalar { return PowRat(s, big.NewRat(n, 1)) }

// Sqrt returns the square root of s, evaluated exactly for perfect
// rational squares and kept symbolic otherwise.
func Sqrt(s Scalar) Scalar { return PowRat(s, ratHalf) }

// PowRat returns s^exp for a rational exponent.
func PowRat(s Scalar, exp *big.Rat) Scalar {
	if exp.Sign() == 0 {
		return One
	}
	if exp.Cmp(ratOne) == 0 {
		return s
	}
	switch v := s.(type) {
	case Number:
		if r, ok := numPow(v, exp); ok {
			return r
		}
	case power:
		return PowRat(v.base, new(big.Rat).Mul(v.exp, exp))
	case product:
		factors := make([]Scalar, len(v.factors))
		for i, f := range v.factors {
			factors[i] = PowRat(f, exp)
		}
		return Mul(factors...)
	}
	if IsZero(s) {
		return Zero
	}
	if IsOne(s) {
		return One
	}
	return newPower(s, new(big.Rat).Set(exp))
}

// numPow evaluates a number power exactly where possible: integer
// exponents always, rational exponents when the radicand is a perfect
// power (e.g. sqrt(4) or sqrt(9/4)).
func numPow(n Number, exp *big.Rat) (Scalar, bool) {
	if exp.IsInt() {
		k := exp.Num().Int64()
		res := One.(Number)
		base := n
		if k < 0 {
			inv, err := n.inverse()
			if err != nil {
				return nil, false
			}
			base = inv
			k = -k
		}
		for i := int64(0); i < k; i++ {
			res = res.mul(base)
		}
		return res, true
	}
	// Rational exponent p/q: only real non-negative radicands with an
	// exact q-th root are evaluated.
	if n.im.Sign() != 0 || n.re.Sign() < 0 {
		return nil, false
	}
	if n.re.Sign() == 0 {
		return Zero, true
	}
	q := exp.Denom().Int64()
	rootNum, okN := exactRoot(n.re.Num(), q)
	rootDen, okD := exactRoot(n.re.Denom(), q)
	if !okN || !okD {
		return nil, false
	}
	root := new(big.Rat).SetFrac(rootNum, rootDen)
	p := new(big.Rat).SetInt64(exp.Num().Int64())
	return numPow(Number{re: root, im: ratZero}, p)
}

func exactRoot(v *big.Int, q int64) (*big.Int, bool) {
	if v.Sign() < 0 || q < 2 {
		return nil, false
	}
	r := new(big.Int)
	// big.Int has Sqrt; general q-th roots via binary search.
	if q == 2 {
		r.Sqrt(v)
	} else {
		lo, hi := big.NewInt(0), new(big.Int).Set(v)
		one := big.NewInt(1)
		for lo.Cmp(hi) < 0 {
			mid := new(big.Int).Add(lo, hi)
			mid.Add(mid, one).Rsh(mid, 1)
			p := new(big.Int).Exp(mid, big.NewInt(q), nil)
			if p.Cmp(v) > 0 {
				hi.Sub(mid, one)
			} else {
				lo.Set(mid)
			}
		}
		r.Set(lo)
	}
	check := new(big.Int).Exp(r, big.NewInt(q), nil)
	if check.Cmp(v) != 0 {
		return nil, false
	}
	return r, true
}

// Conjugate returns the complex conjugate. Symbols are assumed real.
func Conjugate(s Scalar) Scalar {
	switch v := s.(type) {
	case Number:
		return v.conj()
	case Symbol:
		return v
	case sum:
		terms := make([]Scalar, len(v.terms))
		for i, t := range v.terms {
			terms[i] = Conjugate(t)
		}
		return Add(terms...)
	case product:
		factors := make([]Scalar, len(v.factors))
		for i, f := range v.factors {
			factors[i] = Conjugate(f)
		}
		return Mul(factors...)
	case power:
		return PowRat(Conjugate(v.base), v.exp)
	case Func:
		return conjugateFunc(v)
	}
	return s
}

// FreeSymbols returns the set of symbol keys occurring in s.
func FreeSymbols(s Scalar) map[string]struct{} {
	out := map[string]struct{}{}
	collectSymbols(s, out)
	return out
}

func collectSymbols(s Scalar, out map[string]struct{}) {
	switch v := s.(type) {
	case Symbol:
		out[v.Key()] = struct{}{}
	case sum:
		for _, t := range v.terms {
			collectSymbols(t, out)
		}
	case product:
		for _, f := range v.factors {
			collectSymbols(f, out)
		}
	case power:
		collectSymbols(v.base, out)
	case Func:
		for _, a := range v.Args {
			collectSymbols(a, out)
		}
	}
}

// ContainsSymbol reports whether sym occurs in s.
func ContainsSymbol(s Scalar, sym Symbol) bool {
	_, ok := FreeSymbols(s)[sym.Key()]
	return ok
}

// Subst replaces symbols by scalars, keyed by Symbol.Key.
func Subst(s Scalar, m map[string]Scalar) Scalar {
	if len(m) == 0 {
		return s
	}
	switch v := s.(type) {
	case Symbol:
		if r, ok := m[v.Key()]; ok {
			return r
		}
		return v
	case sum:
		terms := make([]Scalar, len(v.terms))
		for i, t := range v.terms {
			terms[i] = Subst(t, m)
		}
		return Add(terms...)
	case product:
		factors := make([]Scalar, len(v.factors))
		for i, f := range v.factors {
			factors[i] = Subst(f, m)
		}
		return Mul(factors...)
	case power:
		return PowRat(Subst(v.base, m), v.exp)
	case Func:
		return substFunc(v, m)
	}
	return s
}

// Diff returns the derivative of s with respect to sym.
func Diff(s Scalar, sym Symbol) Scalar {
	switch v := s.(type) {
	case Number:
		return Zero
	case Symbol:
		if v.Key() == sym.Key() {
			return One
		}
		return Zero
	case sum:
		terms := make([]Scalar, len(v.terms))
		for i, t := range v.terms {
			terms[i] = Diff(t, sym)
		}
		return Add(terms...)
	case product:
		// Product rule over all factors.
		var terms []Scalar
		for i := range v.factors {
			factors := make([]Scalar, len(v.factors))
			copy(factors, v.factors)
			factors[i] = Diff(v.factors[i], sym)
			terms = append(terms, Mul(factors...))
		}
		return Add(terms...)
	case power:
		// d(u^e) = e * u^(e-1) * du
		du := Diff(v.base, sym)
		if IsZero(du) {
			return Zero
		}
		em1 := new(big.Rat).Sub(v.exp, ratOne)
		e := Number{re: new(big.Rat).Set(v.exp), im: ratZero}
		return Mul(e, PowRat(v.base, em1), du)
	case Func:
		return diffFunc(v, sym)
	}
	return Zero
}

// SeriesCoeffs expands s as a truncated power series in param about
// the given point, returning the order+1 coefficients. Only scalars
// polynomial in param can be expanded; anything else returns
// ErrCannotExpand.
func SeriesCoeffs(s Scalar, param Symbol, about Scalar, order int) ([]Scalar, error) {
	if order < 0 {
		return nil, fmt.Errorf("scalar: series order %d must be >= 0", order)
	}
	constCoeffs := func(v Scalar) []Scalar {
		out := make([]Scalar, order+1)
		out[0] = v
		for i := 1; i <= order; i++ {
			out[i] = Zero
		}
		return out
	}
	if !ContainsSymbol(s, param) {
		return constCoeffs(s), nil
	}
	switch v := s.(type) {
	case Symbol:
		// param = about + (param - about): coefficients (about, 1).
		out := constCoeffs(about)
		if order >= 1 {
			out[1] = One
		} else {
			return nil, fmt.Errorf(
				"%w: %s at order 0", ErrCannotExpand, s.Key())
		}
		return out, nil
	case sum:
		out := constCoeffs(Zero)
		for _, t := range v.terms {
			tc, err := SeriesCoeffs(t, param, about, order)
			if err != nil {
				return nil, err
			}
			for i := range out {
				out[i] = Add(out[i], tc[i])
			}
		}
		return out, nil
	case product:
		out := constCoeffs(One)
		for _, f := range v.factors {
			fc, err := SeriesCoeffs(f, param, about, order)
			if err != nil {
				return nil, err
			}
			out = convolve(out, fc, order)
		}
		return out, nil
	case power:
		if !v.exp.IsInt() || v.exp.Sign() < 0 {
			return nil, fmt.Errorf("%w: %s", ErrCannotExpand, s.Key())
		}
		bc, err := SeriesCoeffs(v.base, param, about, order)
		if err != nil {
			return nil, err
		}
		out := constCoeffs(One)
		for i := int64(0); i < v.exp.Num().Int64(); i++ {
			out = convolve(out, bc, order)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCannotExpand, s.Key())
}

func convolve(a, b []Scalar, order int) []Scalar {
	out := make([]Scalar, order+1)
	for n := 0; n <= order; n++ {
		terms := make([]Scalar, 0, n+1)
		for k := 0; k <= n; k++ {
			terms = append(terms, Mul(a[k], b[n-k]))
		}
		out[n] = Add(terms...)
	}
	return out
}
