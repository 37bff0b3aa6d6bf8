package parser

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/qalgebra/qalgebra/expr"
	"github.com/qalgebra/qalgebra/quantum"
	"github.com/qalgebra/qalgebra/scalar"
)

// Proto is the JSON surface of a proto-expression: a head tag with
// positional and keyword arguments. Arguments are numbers, strings or
// nested proto-expressions.
type Proto struct {
	Head   string            `json:"head"`
	Args   []json.RawMessage `json:"args,omitempty"`
	Kwargs []ProtoKV         `json:"kwargs,omitempty"`
}

// ProtoKV keeps keyword arguments ordered; a JSON object would not.
type ProtoKV struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// ParseProto decodes a JSON proto-expression and constructs the value
// through the head registry.
func ParseProto(data []byte) (any, error) {
	forceRegistrations()

	var proto Proto
	if err := json.Unmarshal(data, &proto); err != nil {
		return nil, fmt.Errorf("failed to decode proto-expression: %w", err)
	}
	return buildProto(&proto)
}

func buildProto(p *Proto) (any, error) {
	if p.Head == "" {
		return nil, fmt.Errorf("%w: proto-expression without head", quantum.ErrUnsupported)
	}
	ops := make([]any, 0, len(p.Args))
	for i, raw := range p.Args {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, p.Head, err)
		}
		if name, ok := v.(string); ok && !(i == 0 && symbolHeads[p.Head]) {
			if name == "i" {
				v = scalar.ImagUnit
			} else {
				v = scalar.Sym(name)
			}
		}
		ops = append(ops, v)
	}
	var kw []expr.KV
	for _, pair := range p.Kwargs {
		v, err := decodeValue(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("keyword %s of %s: %w", pair.Key, p.Head, err)
		}
		kw = append(kw, expr.KV{Key: pair.Key, Val: v})
	}
	return expr.CreateByHead(p.Head, ops, kw)
}

func decodeValue(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		n := int(x)
		if float64(n) != x || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: non-integer literal %v", quantum.ErrUnsupported, x)
		}
		return n, nil
	case map[string]any:
		var nested Proto
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, err
		}
		return buildProto(&nested)
	}
	return nil, fmt.Errorf("%w: literal %T", quantum.ErrUnsupported, v)
}
