package state

import (
	"fmt"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/hilbert"
	"github.com/qalgebra/qalgebra/quantum"
)

// registerHeads makes every state type reachable from
// proto-expressions, so parsers and services can construct by head
// tag.
func registerHeads() {
	expr.RegisterCreate(HeadSymbol, func(ops []any, kw []expr.KV) (any, error) {
		if len(ops) != 1 {
			return nil, fmt.Errorf("%w: ket symbol needs a name", quantum.ErrUnsupported)
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
	expr.RegisterCreate(HeadTrivialKet, func(ops []any, kw []expr.KV) (any, error) {
		return TrivialKet(), nil
	})
	expr.RegisterCreate(HeadZeroKet, func(ops []any, kw []expr.KV) (any, error) {
		return ZeroKet(), nil
	})
	expr.RegisterCreate(HeadBasisKet, func(ops []any, kw []expr.KV) (any, error) {
		if len(ops) != 1 {
			return nil, fmt.Errorf("%w: basis ket needs an index", quantum.ErrUnsupported)
		}
		hs, err := localSpaceFromKw(kw)
		if err != nil {
			return nil, err
		}
		return NewBasisKet(ops[0], hs)
	})
	expr.RegisterCreate(HeadCoherentStateKet, func(ops []any, kw []expr.KV) (any, error) {
		if len(ops) != 1 {
			return nil, fmt.Errorf("%w: coherent state needs an amplitude", quantum.ErrUnsupported)
		}
		alpha, ok := quantum.AsScalar(ops[0])
		if !ok {
			return nil, fmt.Errorf("%w: amplitude %T", quantum.ErrUnsupported, ops[0])
		}
		hs, err := localSpaceFromKw(kw)
		if err != nil {
			return nil, err
		}
		return NewCoherentStateKet(alpha, hs), nil
	})

	expr.RegisterCreate(HeadPlus, func(ops []any, kw []expr.KV) (any, error) {
		return Algebra().Plus.Create(ops, kw)
	})
	expr.RegisterCreate(HeadTensor, func(ops []any, kw []expr.KV) (any, error) {
		return Algebra().Times.Create(ops, kw)
	})
	expr.RegisterCreate(HeadScalarTimes, func(ops []any, kw []expr.KV) (any, error) {
		return Algebra().ScalarTimes.Create(ops, kw)
	})
	expr.RegisterCreate(HeadIndexedSum, func(ops []any, kw []expr.KV) (any, error) {
		return Algebra().IndexedSum.Create(ops, kw)
	})
	expr.RegisterCreate(HeadOperatorTimesKet, func(ops []any, kw []expr.KV) (any, error) {
		return actionType().Create(ops, kw)
	})
	expr.RegisterCreate(HeadBraKet, func(ops []any, kw []expr.KV) (any, error) {
		return braKetType().Create(ops, kw)
	})
	expr.RegisterCreate(HeadKetBra, func(ops []any, kw []expr.KV) (any, error) {
		return ketBraType().Create(ops, kw)
	})
	expr.RegisterCreate(HeadBra, func(ops []any, kw []expr.KV) (any, error) {
		if len(ops) != 1 {
			return nil, fmt.Errorf("%w: bra needs one ket", quantum.ErrUnsupported)
		}
		ket, ok := ops[0].(quantum.Expr)
		if !ok || !Algebra().IsMember(ket) {
			return nil, fmt.Errorf("%w: bra of %T", quantum.ErrUnsupported, ops[0])
		}
		return NewBra(ket), nil
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

func localSpaceFromKw(kw []expr.KV) (*hilbert.LocalSpace, error) {
	raw, ok := expr.LookupKw(kw, "hs")
	if !ok {
		return nil, fmt.Errorf("%w: local state without hs", quantum.ErrUnsupported)
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
