package operator

import (
	"fmt"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

// registerHeads makes every operator type reachable from
// proto-expressions, so parsers and services can construct by head
// tag.
func registerHeads() {
	expr.RegisterCreate(HeadSymbol, func(ops []any, kw []expr.KV) (any, error) {
		if len(ops) != 1 {
			return nil, fmt.Errorf("%w: operator symbol needs a name", quantum.ErrUnsupported)
		}
		name, ok := ops[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: symbol name %T", quantum.ErrUnsupported, ops[0])
		}
		hs, err := anySpaceFromKw(kw)
		if err != nil {
			return nil, err
		}
		return NewSymbol(name, hs), nil
	})
	expr.RegisterCreate(HeadIdentity, func(ops []any, kw []expr.KV) (any, error) {
		return Identity(), nil
	})
	expr.RegisterCreate(HeadZero, func(ops []any, kw []expr.KV) (any, error) {
		return Zero(), nil
	})

	expr.RegisterCreate(HeadPlus, func(ops []any, kw []expr.KV) (any, error) {
		return Algebra().Plus.Create(ops, kw)
	})
	expr.RegisterCreate(HeadTimes, func(ops []any, kw []expr.KV) (any, error) {
		return Algebra().Times.Create(ops, kw)
	})
	expr.RegisterCreate(HeadScalarTimes, func(ops []any, kw []expr.KV) (any, error) {
		return Algebra().ScalarTimes.Create(ops, kw)
	})
	expr.RegisterCreate(HeadAdjoint, func(ops []any, kw []expr.KV) (any, error) {
		return Algebra().Adjoint.Create(ops, kw)
	})
	expr.RegisterCreate(HeadIndexedSum, func(ops []any, kw []expr.KV) (any, error) {
		return Algebra().IndexedSum.Create(ops, kw)
	})

	local := func(build func(hs *hilbert.LocalSpace) quantum.Expr) expr.CreateFunc {
		return func(ops []any, kw []expr.KV) (any, error) {
			hs, err := spaceFromKw(kw)
			if err != nil {
				return nil, err
			}
			return build(hs), nil
		}
	}
	expr.RegisterCreate(HeadDestroy, local(Destroy))
	expr.RegisterCreate(HeadCreate, local(Create))
	expr.RegisterCreate(HeadJz, local(Jz))
	expr.RegisterCreate(HeadJplus, local(Jplus))
	expr.RegisterCreate(HeadJminus, local(Jminus))

	param := func(build func(p scalar.Scalar, hs *hilbert.LocalSpace) (quantum.Expr, error)) expr.CreateFunc {
		return func(ops []any, kw []expr.KV) (any, error) {
			if len(ops) != 1 {
				return nil, fmt.Errorf("%w: parametrized operator needs one parameter",
					quantum.ErrUnsupported)
			}
			p, ok := quantum.AsScalar(ops[0])
			if !ok {
				return nil, fmt.Errorf("%w: parameter %T", quantum.ErrUnsupported, ops[0])
			}
			hs, err := spaceFromKw(kw)
			if err != nil {
				return nil, err
			}
			return build(p, hs)
		}
	}
	expr.RegisterCreate(HeadPhase, param(Phase))
	expr.RegisterCreate(HeadDisplace, param(Displace))
	expr.RegisterCreate(HeadSqueeze, param(Squeeze))

	expr.RegisterCreate(HeadLocalSigma, func(ops []any, kw []expr.KV) (any, error) {
		if len(ops) != 2 {
			return nil, fmt.Errorf("%w: sigma needs two indices", quantum.ErrUnsupported)
		}
		hs, err := spaceFromKw(kw)
		if err != nil {
			return nil, err
		}
		return LocalSigma(ops[0], ops[1], hs)
	})
	expr.RegisterCreate(HeadCommutator, func(ops []any, kw []expr.KV) (any, error) {
		return commutatorType().Create(ops, kw)
	})
	expr.RegisterCreate(HeadPlusMinusCC, func(ops []any, kw []expr.KV) (any, error) {
		return plusMinusCCType().Create(ops, kw)
	})
}

func anySpaceFromKw(kw []expr.KV) (hilbert.Space, error) {
	raw, ok := expr.LookupKw(kw, "hs")
	if !ok {
		return hilbert.TrivialSpace, nil
	}
	switch x := raw.(type) {
	case hilbert.Space:
		return x, nil
	case int:
		return hilbert.NewLocalInt(x), nil
	case string:
		return hilbert.NewLocal(x), nil
	}
	return nil, fmt.Errorf("%w: hs argument %T", quantum.ErrUnsupported, raw)
}
