package scalar

import (
	"math/big"
	"strings"
)

// Func is an opaque symbolic function application such as exp(x) or
// factorial(n). Arguments participate in substitution, conjugation and
// free-symbol collection; a few named functions evaluate exactly on
// numeric arguments.
type Func struct {
	Name string
	Args []Scalar
	key  string
}

func (f Func) scalarNode()    {}
func (f Func) Key() string    { return f.key }
func (f Func) String() string { return f.key }

// Apply returns the application of the named function, evaluating the
// cases that have an exact value: exp(0), factorial of a non-negative
// integer, conjugate of a number.
func Apply(name string, args ...Scalar) Scalar {
	switch name {
	case "exp":
		if len(args) == 1 && IsZero(args[0]) {
			return One
		}
	case "factorial":
		if len(args) == 1 {
			if n, ok := args[0].(Number); ok && n.im.Sign() == 0 &&
				n.re.IsInt() && n.re.Sign() >= 0 {
				v := new(big.Int).MulRange(1, n.re.Num().Int64())
				return Number{re: new(big.Rat).SetInt(v), im: ratZero}
			}
		}
	case "conjugate":
		if len(args) == 1 {
			if n, ok := args[0].(Number); ok {
				return n.conj()
			}
		}
	case "pow":
		// Symbolic exponent; evaluates once the exponent becomes a
		// real number, e.g. after index substitution.
		if len(args) == 2 {
			if n, ok := args[1].(Number); ok && n.im.Sign() == 0 {
				return PowRat(args[0], n.re)
			}
		}
	}
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = a.Key()
	}
	return Func{
		Name: name,
		Args: args,
		key:  name + "(" + strings.Join(keys, ",") + ")",
	}
}

// Exp returns e^s.
func Exp(s Scalar) Scalar { return Apply("exp", s) }

// Factorial returns s!, evaluated for non-negative integers.
func Factorial(s Scalar) Scalar { return Apply("factorial", s) }

func conjugateFunc(f Func) Scalar {
	args := make([]Scalar, len(f.Args))
	for i, a := range f.Args {
		args[i] = Conjugate(a)
	}
	switch f.Name {
	case "exp", "factorial":
		return Apply(f.Name, args...)
	case "conjugate":
		if len(args) == 1 {
			return args[0]
		}
	}
	return Apply("conjugate", Apply(f.Name, args...))
}

func substFunc(f Func, m map[string]Scalar) Scalar {
	args := make([]Scalar, len(f.Args))
	for i, a := range f.Args {
		args[i] = Subst(a, m)
	}
	return Apply(f.Name, args...)
}

func diffFunc(f Func, sym Symbol) Scalar {
	if len(f.Args) == 1 && f.Name == "exp" {
		// d exp(u) = exp(u) du
		return Mul(f, Diff(f.Args[0], sym))
	}
	for _, a := range f.Args {
		if ContainsSymbol(a, sym) {
			// No rule for this function, keep the derivative opaque.
			return Apply("derivative", f, sym)
		}
	}
	return Zero
}
