package expr

import (
	"math"
	"sort"
)

// KeyTuple is a recursively structured sort key. Elements are ints,
// floats, strings or nested KeyTuples; heterogeneous elements are
// ranked numbers < strings < tuples so any two keys compare.
type KeyTuple []any

// StandardOrderKey assembles the order key every node exposes:
// order-group index, name discriminator, scalar-prefactor magnitude,
// the recursively ordered argument keys, and the sorted keyword keys.
// Atoms use group 0, operations group 1, neutral elements group 2, so
// that atoms sort before compounds.
func StandardOrderKey(group int, name string, coeff float64, args []any, kw []KV) KeyTuple {
	argKeys := make(KeyTuple, len(args))
	for i, a := range args {
		argKeys[i] = orderElem(a)
	}
	sorted := sortedKw(kw)
	kwKeys := make(KeyTuple, len(sorted))
	for i, pair := range sorted {
		kwKeys[i] = KeyTuple{pair.Key, orderElem(pair.Val)}
	}
	return KeyTuple{group, name, coeff, argKeys, kwKeys}
}

// Orderable is anything that carries its own order key.
type Orderable interface {
	OrderKey() KeyTuple
}

func orderElem(v any) any {
	switch x := v.(type) {
	case Orderable:
		return x.OrderKey()
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	case string:
		return x
	default:
		return KeyOf(v)
	}
}

func rank(v any) int {
	switch v.(type) {
	case int, int64, float64:
		return 0
	case string:
		return 1
	case KeyTuple:
		return 2
	default:
		return 3
	}
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	}
	return math.NaN()
}

// KeyLess is the total order over key elements.
func KeyLess(a, b any) bool {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}
	switch ra {
	case 0:
		fa, fb := asFloat(a), asFloat(b)
		if fa != fb {
			return fa < fb
		}
		return false
	case 1:
		return a.(string) < b.(string)
	case 2:
		ta, tb := a.(KeyTuple), b.(KeyTuple)
		for i := 0; i < len(ta) && i < len(tb); i++ {
			if KeyLess(ta[i], tb[i]) {
				return true
			}
			if KeyLess(tb[i], ta[i]) {
				return false
			}
		}
		return len(ta) < len(tb)
	default:
		return KeyOf(a) < KeyOf(b)
	}
}

// OrderKeyOf returns the order key element for an arbitrary operand,
// so operations can sort mixed operand lists deterministically.
func OrderKeyOf(v any) any { return orderElem(v) }

// LessByOrderKey compares two operands by their order keys.
func LessByOrderKey(a, b any) bool {
	return KeyLess(orderElem(a), orderElem(b))
}

// SortStable sorts operands in place with the given comparator,
// preserving the relative order of incomparable elements. Stability is
// load-bearing: the disjunct-space comparator reports "not less" for
// operands sharing a space, which must keep their original order.
func SortStable(ops []any, less func(a, b any) bool) {
	sort.SliceStable(ops, func(i, j int) bool { return less(ops[i], ops[j]) })
}
