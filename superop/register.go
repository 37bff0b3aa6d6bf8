package superop

import (
	"fmt"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
)

func registerHeads() {
	expr.RegisterCreate(HeadSymbol, func(ops []any, kw []expr.KV) (any, error) {
		if len(ops) != 1 {
			return nil, fmt.Errorf("%w: super-operator symbol needs a name", quantum.ErrUnsupported)
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

	side := func(head string) expr.CreateFunc {
		return func(ops []any, kw []expr.KV) (any, error) {
			return sideTypes()[head].Create(ops, kw)
		}
	}
	expr.RegisterCreate(HeadSPre, side(HeadSPre))
	expr.RegisterCreate(HeadSPost, side(HeadSPost))

	expr.RegisterCreate(HeadApply, func(ops []any, kw []expr.KV) (any, error) {
		return applyType().Create(ops, kw)
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
