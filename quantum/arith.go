package quantum

import (
	"fmt"
	"sync"

	"github.com/qalgebra/qalgebra/scalar"
)

// Generic arithmetic. Each function dispatches through the operands'
// capability tables, so one implementation serves every registered
// algebra. Scalars mix in as coefficients (sums lift them onto the
// algebra's identity).

// Add sums operands. All quantum operands must share one algebra;
// plain scalars are lifted to scalar multiples of the identity. A
// sum of scalars only stays a scalar. At most one indexed sum may
// appear: merging two indexed sums into one is not generally valid,
// so it fails with ErrUnsupported instead of guessing.
func Add(ops ...any) (any, error) {
	a, err := commonAlgebra(ops)
	if err != nil {
		return nil, err
	}
	if a == nil {
		ss := make([]scalar.Scalar, 0, len(ops))
		for _, op := range ops {
			s, _ := AsScalar(op)
			ss = append(ss, s)
		}
		return scalar.Add(ss...), nil
	}
	lifted := make([]any, 0, len(ops))
	sums := 0
	for _, op := range ops {
		if s, ok := AsScalar(op); ok {
			term, err := ScalarMul(a, s, a.One())
			if err != nil {
				return nil, err
			}
			lifted = append(lifted, term)
			continue
		}
		if q, ok := op.(Expr); ok && a.IndexedSum != nil && q.Head() == a.IndexedSum.HeadTag {
			sums++
		}
		lifted = append(lifted, op)
	}
	if sums > 1 {
		return nil, fmt.Errorf("%w: cannot add two indexed sums", ErrUnsupported)
	}
	return a.Plus.Create(lifted, nil)
}

// Sub is a + (-b).
func Sub(a, b any) (any, error) {
	nb, err := Neg(b)
	if err != nil {
		return nil, err
	}
	return Add(a, nb)
}

// Neg multiplies by -1.
func Neg(v any) (any, error) {
	return Mul(scalar.MinusOne, v)
}

// Mul multiplies operands left to right, dispatching each pair on
// scalar-ness, shared algebra, or a registered cross-algebra product.
func Mul(ops ...any) (any, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: empty product", ErrUnsupported)
	}
	acc := ops[0]
	for _, op := range ops[1:] {
		next, err := mulPair(acc, op)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

func mulPair(l, r any) (any, error) {
	ls, lScalar := AsScalar(l)
	rs, rScalar := AsScalar(r)
	switch {
	case lScalar && rScalar:
		return scalar.Mul(ls, rs), nil
	case lScalar:
		q, ok := r.(Expr)
		if !ok {
			return nil, fmt.Errorf("%w: cannot multiply scalar with %T", ErrUnsupported, r)
		}
		return ScalarMul(q.AlgebraRef(), ls, q)
	case rScalar:
		q, ok := l.(Expr)
		if !ok {
			return nil, fmt.Errorf("%w: cannot multiply %T with scalar", ErrUnsupported, l)
		}
		return ScalarMul(q.AlgebraRef(), rs, q)
	}
	lq, lok := l.(Expr)
	rq, rok := r.(Expr)
	if !lok || !rok {
		return nil, fmt.Errorf("%w: cannot multiply %T with %T", ErrUnsupported, l, r)
	}
	la, ra := lq.AlgebraRef(), rq.AlgebraRef()
	if la == ra {
		return mulSameAlgebra(la, lq, rq)
	}
	if fn := lookupCrossProduct(la.Name, ra.Name); fn != nil {
		return fn(lq, rq)
	}
	return nil, fmt.Errorf("%w: %s * %s", ErrMixedAlgebras, la.Name, ra.Name)
}

func mulSameAlgebra(a *Algebra, l, r Expr) (any, error) {
	if a.IndexedSum != nil {
		lSum := l.Head() == a.IndexedSum.HeadTag
		rSum := r.Head() == a.IndexedSum.HeadTag
		if lSum || rSum {
			return mulIndexedSums(a, l, r, lSum, rSum)
		}
	}
	if a.Times == nil {
		return nil, fmt.Errorf("%w: %s has no product", ErrUnsupported, a.Name)
	}
	return a.Times.Create([]any{l, r}, nil)
}

// ScalarMul scales an expression by a coefficient.
func ScalarMul(a *Algebra, s scalar.Scalar, e Expr) (any, error) {
	if a.ScalarTimes == nil {
		return nil, fmt.Errorf("%w: %s has no scalar multiplication", ErrUnsupported, a.Name)
	}
	return a.ScalarTimes.Create([]any{s, e}, nil)
}

// Div divides by a scalar.
func Div(v any, s scalar.Scalar) (any, error) {
	inv, err := scalar.Div(scalar.One, s)
	if err != nil {
		return nil, err
	}
	return Mul(inv, v)
}

// Pow raises an expression to a non-negative integer power.
func Pow(e Expr, n int) (any, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative power %d", ErrUnsupported, n)
	}
	if n == 0 {
		return e.AlgebraRef().One(), nil
	}
	acc := any(e)
	for i := 1; i < n; i++ {
		next, err := mulPair(acc, e)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

func commonAlgebra(ops []any) (*Algebra, error) {
	var a *Algebra
	for _, op := range ops {
		if IsScalar(op) {
			continue
		}
		q, ok := op.(Expr)
		if !ok {
			return nil, fmt.Errorf("%w: operand %T", ErrUnsupported, op)
		}
		switch {
		case a == nil:
			a = q.AlgebraRef()
		case a != q.AlgebraRef():
			return nil, fmt.Errorf("%w: %s + %s", ErrMixedAlgebras,
				a.Name, q.AlgebraRef().Name)
		}
	}
	return a, nil
}

// Cross-algebra products (operator acting on a ket, ket with bra) are
// registered by the owning algebra at init time.
type crossProductFunc func(l, r Expr) (any, error)

var (
	crossMu       sync.RWMutex
	crossProducts = map[[2]string]crossProductFunc{}
)

// RegisterCrossProduct installs the product of a left-algebra member
// with a right-algebra member.
func RegisterCrossProduct(left, right string, fn crossProductFunc) {
	crossMu.Lock()
	defer crossMu.Unlock()
	crossProducts[[2]string{left, right}] = fn
}

func lookupCrossProduct(left, right string) crossProductFunc {
	crossMu.RLock()
	defer crossMu.RUnlock()
	return crossProducts[[2]string{left, right}]
}
