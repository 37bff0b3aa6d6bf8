package operator

import (
	"fmt"
	"sync"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

// localOp is a concrete operator on one local Hilbert space,
// optionally parametrized (phase angle, displacement amplitude,
// squeezing parameter).
type localOp struct {
	head   string
	hs     *hilbert.LocalSpace
	params []scalar.Scalar
}

func (l *localOp) Head() string { return l.head }

func (l *localOp) Args() []any {
	out := make([]any, len(l.params))
	for i, p := range l.params {
		out[i] = p
	}
	return out
}

func (l *localOp) Kwargs() []expr.KV {
	return expr.Kw(expr.KV{Key: "hs", Val: l.hs})
}

func (l *localOp) Key() string {
	return expr.MakeKey(l.head, l.Args(), l.Kwargs())
}

func (l *localOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(0, l.head, 1, l.Args(), l.Kwargs())
}

func (l *localOp) Space() hilbert.Space             { return l.hs }
func (l *localOp) AlgebraRef() *quantum.Algebra     { return Algebra() }
func (l *localOp) LocalSpace() *hilbert.LocalSpace { return l.hs }

// Param is the single parameter of a parametrized local operator.
func (l *localOp) Param() scalar.Scalar {
	if len(l.params) == 0 {
		return scalar.Zero
	}
	return l.params[0]
}

func (l *localOp) Adjoint() (quantum.Expr, error) {
	switch l.head {
	case HeadDestroy:
		return Create(l.hs), nil
	case HeadCreate:
		return Destroy(l.hs), nil
	case HeadJz:
		return l, nil
	case HeadJplus:
		return Jminus(l.hs), nil
	case HeadJminus:
		return Jplus(l.hs), nil
	case HeadPhase:
		// Parameters are real-valued symbols or exact numbers, so
		// conjugation reduces to negation of the imaginary part.
		return Phase(scalar.Neg(scalar.Conjugate(l.Param())), l.hs)
	case HeadDisplace:
		return Displace(scalar.Neg(l.Param()), l.hs)
	case HeadSqueeze:
		return Squeeze(scalar.Neg(l.Param()), l.hs)
	}
	return nil, fmt.Errorf("%w: adjoint of %s", quantum.ErrUnsupported, l.head)
}

func internLocal(head string, hs *hilbert.LocalSpace, params ...scalar.Scalar) quantum.Expr {
	n := expr.Intern(&localOp{head: head, hs: hs, params: params})
	return n.(quantum.Expr)
}

// Destroy is the bosonic annihilation operator on hs.
func Destroy(hs *hilbert.LocalSpace) quantum.Expr { return internLocal(HeadDestroy, hs) }

// Create is the bosonic creation operator on hs.
func Create(hs *hilbert.LocalSpace) quantum.Expr { return internLocal(HeadCreate, hs) }

// Jz is the z angular momentum component on hs.
func Jz(hs *hilbert.LocalSpace) quantum.Expr { return internLocal(HeadJz, hs) }

// Jplus is the raising angular momentum operator on hs.
func Jplus(hs *hilbert.LocalSpace) quantum.Expr { return internLocal(HeadJplus, hs) }

// Jminus is the lowering angular momentum operator on hs.
func Jminus(hs *hilbert.LocalSpace) quantum.Expr { return internLocal(HeadJminus, hs) }

// Parametrized local operators go through op types so their
// zero-argument collapse is an ordinary, disableable rule.
var (
	localTypesOnce sync.Once
	phaseType      *expr.OpType
	displaceType   *expr.OpType
	squeezeType    *expr.OpType
)

func paramTypes() (phase, displace, squeeze *expr.OpType) {
	localTypesOnce.Do(func() {
		phaseType = paramOpType(HeadPhase, "phase-zero")
		displaceType = paramOpType(HeadDisplace, "displace-zero")
		squeezeType = paramOpType(HeadSqueeze, "squeeze-zero")
	})
	return phaseType, displaceType, squeezeType
}

func paramOpType(head, zeroRule string) *expr.OpType {
	t := &expr.OpType{HeadTag: head}
	t.Rules = expr.NewRuleTable(expr.Rule{
		Name: zeroRule,
		Pattern: expr.PatHead(
			expr.Wc("p", expr.OfClass(scalarClass), expr.Cond("is zero", func(v any) bool {
				s, ok := quantum.AsScalar(v)
				return ok && scalar.IsZero(s)
			})),
		),
		Replace: func(b expr.Bindings) (any, error) { return Identity(), nil },
	})
	t.Passes = []expr.Pass{expr.MatchReplace}
	t.Build = func(ops []any, kw []expr.KV) (any, error) {
		p, ok := quantum.AsScalar(ops[0])
		if !ok {
			return nil, fmt.Errorf("%w: %s parameter %T", quantum.ErrUnsupported, head, ops[0])
		}
		hs, err := spaceFromKw(kw)
		if err != nil {
			return nil, err
		}
		return internLocal(head, hs, p), nil
	}
	return t
}

func createParam(t *expr.OpType, p scalar.Scalar, hs *hilbert.LocalSpace) (quantum.Expr, error) {
	v, err := t.Create([]any{p}, expr.Kw(expr.KV{Key: "hs", Val: hs}))
	if err != nil {
		return nil, err
	}
	return quantum.LiftScalar(Algebra(), v)
}

// Phase is the phase rotation exp(i phi n) on hs; Phase(0) collapses
// to the identity.
func Phase(phi scalar.Scalar, hs *hilbert.LocalSpace) (quantum.Expr, error) {
	pt, _, _ := paramTypes()
	return createParam(pt, phi, hs)
}

// Displace is the displacement operator D(alpha) on hs.
func Displace(alpha scalar.Scalar, hs *hilbert.LocalSpace) (quantum.Expr, error) {
	_, dt, _ := paramTypes()
	return createParam(dt, alpha, hs)
}

// Squeeze is the squeezing operator S(eta) on hs.
func Squeeze(eta scalar.Scalar, hs *hilbert.LocalSpace) (quantum.Expr, error) {
	_, _, st := paramTypes()
	return createParam(st, eta, hs)
}

// SigmaOp is the transition operator |j><k| between two basis states
// of a local space. Indices are integers, basis labels, or bound
// index symbols.
type SigmaOp struct {
	j, k any
	hs   *hilbert.LocalSpace
}

// LocalSigma returns the interned transition operator |j><k| on hs.
// Labels are resolved to indices when the space has a basis.
func LocalSigma(j, k any, hs *hilbert.LocalSpace) (quantum.Expr, error) {
	j, err := resolveIndex(j, hs)
	if err != nil {
		return nil, err
	}
	k, err = resolveIndex(k, hs)
	if err != nil {
		return nil, err
	}
	n := expr.Intern(&SigmaOp{j: j, k: k, hs: hs})
	return n.(quantum.Expr), nil
}

// LocalProjector is the projector |j><j| on hs.
func LocalProjector(j any, hs *hilbert.LocalSpace) (quantum.Expr, error) {
	return LocalSigma(j, j, hs)
}

func resolveIndex(v any, hs *hilbert.LocalSpace) (any, error) {
	switch x := v.(type) {
	case int:
		if dim, err := hs.Dimension(); err == nil && (x < 0 || x >= dim) {
			return nil, fmt.Errorf("%w: index %d on %s", quantum.ErrUnsupported, x, hs.Key())
		}
		return x, nil
	case string:
		ind, err := hs.IndexOfLabel(x)
		if err != nil {
			// Spaces without a basis keep the symbolic label.
			return x, nil
		}
		return ind, nil
	case scalar.Symbol:
		return x, nil
	}
	return nil, fmt.Errorf("%w: sigma index %T", quantum.ErrUnsupported, v)
}

func (s *SigmaOp) Head() string { return HeadLocalSigma }
func (s *SigmaOp) Args() []any  { return []any{s.j, s.k} }
func (s *SigmaOp) Kwargs() []expr.KV {
	return expr.Kw(expr.KV{Key: "hs", Val: s.hs})
}
func (s *SigmaOp) Key() string {
	return expr.MakeKey(HeadLocalSigma, s.Args(), s.Kwargs())
}
func (s *SigmaOp) OrderKey() expr.KeyTuple {
	return expr.StandardOrderKey(0, HeadLocalSigma, 1, s.Args(), s.Kwargs())
}
func (s *SigmaOp) Space() hilbert.Space         { return s.hs }
func (s *SigmaOp) AlgebraRef() *quantum.Algebra { return Algebra() }

// Upper and Lower are the two transition indices.
func (s *SigmaOp) Upper() any { return s.j }
func (s *SigmaOp) Lower() any { return s.k }
func (s *SigmaOp) LocalSpace() *hilbert.LocalSpace { return s.hs }

// IsProjector reports whether both indices coincide.
func (s *SigmaOp) IsProjector() bool { return expr.Equal(s.j, s.k) }

func (s *SigmaOp) Adjoint() (quantum.Expr, error) {
	return LocalSigma(s.k, s.j, s.hs)
}

// SubstIndex substitutes bound index symbols in the transition
// indices.
func (s *SigmaOp) SubstIndex(m map[string]any) (any, error) {
	j, err := substSigmaIndex(s.j, m)
	if err != nil {
		return nil, err
	}
	k, err := substSigmaIndex(s.k, m)
	if err != nil {
		return nil, err
	}
	return LocalSigma(j, k, s.hs)
}

func substSigmaIndex(v any, m map[string]any) (any, error) {
	sym, ok := v.(scalar.Symbol)
	if !ok {
		return v, nil
	}
	repl, hit := m[sym.Key()]
	if !hit {
		return v, nil
	}
	return repl, nil
}

// Pauli-style helpers on two-level spaces.

func checkTwoLevel(hs *hilbert.LocalSpace) error {
	dim, err := hs.Dimension()
	if err != nil {
		return fmt.Errorf("%w: pauli operator needs a two-level space", err)
	}
	if dim != 2 {
		return fmt.Errorf("%w: pauli operator on %d-level space", quantum.ErrSpaceTooLarge, dim)
	}
	return nil
}

// X is the pauli x operator |0><1| + |1><0| on a two-level space.
func X(hs *hilbert.LocalSpace) (quantum.Expr, error) {
	if err := checkTwoLevel(hs); err != nil {
		return nil, err
	}
	up, err := LocalSigma(0, 1, hs)
	if err != nil {
		return nil, err
	}
	down, err := LocalSigma(1, 0, hs)
	if err != nil {
		return nil, err
	}
	return Add(up, down)
}

// Y is the pauli y operator i(|1><0| - |0><1|) on a two-level space.
func Y(hs *hilbert.LocalSpace) (quantum.Expr, error) {
	if err := checkTwoLevel(hs); err != nil {
		return nil, err
	}
	up, err := LocalSigma(0, 1, hs)
	if err != nil {
		return nil, err
	}
	down, err := LocalSigma(1, 0, hs)
	if err != nil {
		return nil, err
	}
	minusI := scalar.Neg(scalar.ImagUnit)
	left, err := Mul(minusI, up)
	if err != nil {
		return nil, err
	}
	right, err := Mul(scalar.ImagUnit, down)
	if err != nil {
		return nil, err
	}
	return Add(left, right)
}

// Z is the pauli z operator |0><0| - |1><1| on a two-level space.
func Z(hs *hilbert.LocalSpace) (quantum.Expr, error) {
	if err := checkTwoLevel(hs); err != nil {
		return nil, err
	}
	p0, err := LocalProjector(0, hs)
	if err != nil {
		return nil, err
	}
	p1, err := LocalProjector(1, hs)
	if err != nil {
		return nil, err
	}
	return Sub(p0, p1)
}

func spaceFromKw(kw []expr.KV) (*hilbert.LocalSpace, error) {
	raw, ok := expr.LookupKw(kw, "hs")
	if !ok {
		return nil, fmt.Errorf("%w: local operator without hs", quantum.ErrUnsupported)
	}
	switch x := raw.(type) {
	case *hilbert.LocalSpace:
		return x, nil
	case int:
		return hilbert.NewLocalInt(x), nil
	case string:
		return hilbert.NewLocal(x), nil
	}
	return nil, fmt.Errorf("%w: hs argument %T", quantum.ErrUnsupported, raw)
}
