// Copyright 2026, Square, Inc.

package traversal

import (
	"encoding/json"
	"fmt"

	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
)

// Instruction is one source or step call.
type Instruction struct {
	Op   string        `json:"op"`
	Args []interface{} `json:"args,omitempty"`
}

// Bytecode is the serializable form of a traversal: the source calls that
// configure it and the step calls that build it. Child traversals are nested
// Bytecode args; predicates are graph.P args.
type Bytecode struct {
	Source []Instruction `json:"source,omitempty"`
	Steps  []Instruction `json:"steps"`
}

func (b *Bytecode) AddSource(op string, args ...interface{}) {
	b.Source = append(b.Source, Instruction{Op: op, Args: args})
}

func (b *Bytecode) AddStep(op string, args ...interface{}) {
	b.Steps = append(b.Steps, Instruction{Op: op, Args: args})
}

func (b *Bytecode) Clone() *Bytecode {
	if b == nil {
		return &Bytecode{}
	}
	return &Bytecode{
		Source: append([]Instruction(nil), b.Source...),
		Steps:  append([]Instruction(nil), b.Steps...),
	}
}

func (b *Bytecode) String() string {
	bytes, _ := json.Marshal(b)
	return string(bytes)
}

// Source and step ops.
const (
	OP_WITH_STRATEGIES    = "withStrategies"
	OP_WITHOUT_STRATEGIES = "withoutStrategies"

	OP_V                   = "V"
	OP_E                   = "E"
	OP_OUT                 = "out"
	OP_IN                  = "in"
	OP_BOTH                = "both"
	OP_OUT_E               = "outE"
	OP_IN_E                = "inE"
	OP_BOTH_E              = "bothE"
	OP_OUT_V               = "outV"
	OP_IN_V                = "inV"
	OP_BOTH_V              = "bothV"
	OP_OTHER_V             = "otherV"
	OP_HAS                 = "has"
	OP_HAS_LABEL           = "hasLabel"
	OP_HAS_ID              = "hasId"
	OP_IDENTITY            = "identity"
	OP_ID                  = "id"
	OP_LABEL               = "label"
	OP_VALUES              = "values"
	OP_IS                  = "is"
	OP_COUNT               = "count"
	OP_DEDUP               = "dedup"
	OP_FOLD                = "fold"
	OP_RANGE               = "range"
	OP_LOCAL               = "local"
	OP_NOT                 = "not"
	OP_FILTER              = "filter"
	OP_UNION               = "union"
	OP_LAMBDA              = "lambda"
	OP_PATH                = "path"
	OP_PROFILE             = "profile"
	OP_AS                  = "as"
	OP_CONNECTED_COMPONENT = "connectedComponent"
	OP_WITH                = "with"
)

// Translate rebuilds the traversal bc describes on src. Strategies named in
// source instructions are built with registry. Lambdas cannot be translated.
func Translate(src *Source, bc *Bytecode, registry StrategyRegistry) (*Traversal, error) {
	for _, in := range bc.Source {
		switch in.Op {
		case OP_WITH_STRATEGIES:
			name, err := argString(in, 0)
			if err != nil {
				return nil, err
			}
			var cfg map[string]interface{}
			if len(in.Args) > 1 {
				cfg, _ = in.Args[1].(map[string]interface{})
			}
			s, err := registry.Build(name, cfg)
			if err != nil {
				return nil, err
			}
			src = src.WithStrategies(s)
		case OP_WITHOUT_STRATEGIES:
			names, err := argStrings(in, 0)
			if err != nil {
				return nil, err
			}
			src = src.WithoutStrategies(names...)
		default:
			return nil, translateError(in, "unknown source instruction")
		}
	}
	t := src.traversal()
	if err := translateSteps(t, bc.Steps); err != nil {
		return nil, err
	}
	return t, t.Err()
}

func translateSteps(t *Traversal, steps []Instruction) error {
	for _, in := range steps {
		strs, _ := argStrings(in, 0)
		switch in.Op {
		case OP_V:
			t.V(strs...)
		case OP_E:
			t.E(strs...)
		case OP_OUT:
			t.Out(strs...)
		case OP_IN:
			t.In(strs...)
		case OP_BOTH:
			t.Both(strs...)
		case OP_OUT_E:
			t.OutE(strs...)
		case OP_IN_E:
			t.InE(strs...)
		case OP_BOTH_E:
			t.BothE(strs...)
		case OP_OUT_V:
			t.OutV()
		case OP_IN_V:
			t.InV()
		case OP_BOTH_V:
			t.BothV()
		case OP_OTHER_V:
			t.OtherV()
		case OP_HAS:
			key, err := argString(in, 0)
			if err != nil {
				return err
			}
			p, err := argP(in, 1)
			if err != nil {
				return err
			}
			t.Has(key, p)
		case OP_HAS_LABEL:
			t.HasLabel(strs...)
		case OP_HAS_ID:
			t.HasID(strs...)
		case OP_IDENTITY:
			t.Identity()
		case OP_ID:
			t.ID()
		case OP_LABEL:
			t.Label()
		case OP_VALUES:
			t.Values(strs...)
		case OP_IS:
			p, err := argP(in, 0)
			if err != nil {
				return err
			}
			t.Is(p)
		case OP_COUNT:
			t.Count()
		case OP_DEDUP:
			t.Dedup()
		case OP_FOLD:
			t.Fold()
		case OP_RANGE:
			lo, err := argInt(in, 0)
			if err != nil {
				return err
			}
			hi, err := argInt(in, 1)
			if err != nil {
				return err
			}
			t.Range(lo, hi)
		case OP_LOCAL, OP_NOT, OP_FILTER, OP_UNION:
			children := make([]*Traversal, len(in.Args))
			for i := range in.Args {
				child, err := argTraversal(in, i)
				if err != nil {
					return err
				}
				children[i] = child
			}
			if len(children) == 0 && in.Op != OP_UNION {
				return translateError(in, "missing child traversal")
			}
			switch in.Op {
			case OP_LOCAL:
				t.Local(children[0])
			case OP_NOT:
				t.Not(children[0])
			case OP_FILTER:
				t.Filter(children[0])
			default:
				t.Union(children...)
			}
		case OP_PATH:
			t.Path()
		case OP_PROFILE:
			t.Profile()
		case OP_AS:
			t.As(strs...)
		case OP_CONNECTED_COMPONENT:
			t.ConnectedComponent()
		case OP_WITH:
			key, err := argString(in, 0)
			if err != nil {
				return err
			}
			var v interface{}
			if len(in.Args) > 1 {
				v = in.Args[1]
				if child, err := argTraversal(in, 1); err == nil {
					v = child
				}
			}
			t.With(key, v)
		case OP_LAMBDA:
			return translateError(in, "lambdas cannot be translated")
		default:
			return translateError(in, "unknown step instruction")
		}
		if t.Err() != nil {
			return t.Err()
		}
	}
	return nil
}

func translateError(in Instruction, msg string) error {
	return serr.IllegalStateError{Cause: fmt.Errorf("%s: %s", msg, in.Op)}
}

func argString(in Instruction, i int) (string, error) {
	if i >= len(in.Args) {
		return "", translateError(in, fmt.Sprintf("missing argument %d", i))
	}
	switch v := in.Args[i].(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return fmt.Sprint(in.Args[i]), nil
}

// argStrings returns args [i:] as strings. A single []interface{} or
// []string arg is flattened.
func argStrings(in Instruction, i int) ([]string, error) {
	var out []string
	for ; i < len(in.Args); i++ {
		switch v := in.Args[i].(type) {
		case []string:
			out = append(out, v...)
		case []interface{}:
			for _, e := range v {
				out = append(out, fmt.Sprint(e))
			}
		default:
			s, err := argString(in, i)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func argInt(in Instruction, i int) (int64, error) {
	if i >= len(in.Args) {
		return 0, translateError(in, fmt.Sprintf("missing argument %d", i))
	}
	switch v := in.Args[i].(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	}
	return 0, translateError(in, fmt.Sprintf("argument %d is not a number", i))
}

func argP(in Instruction, i int) (graph.P, error) {
	if i >= len(in.Args) {
		return graph.P{}, translateError(in, fmt.Sprintf("missing argument %d", i))
	}
	switch v := in.Args[i].(type) {
	case graph.P:
		return v, nil
	case map[string]interface{}:
		op, _ := v["op"].(string)
		if op == "" {
			return graph.P{}, translateError(in, "predicate without op")
		}
		return graph.P{Op: op, Value: v["value"]}, nil
	}
	return graph.Eq(in.Args[i]), nil
}

func argTraversal(in Instruction, i int) (*Traversal, error) {
	if i >= len(in.Args) {
		return nil, translateError(in, fmt.Sprintf("missing argument %d", i))
	}
	var bc *Bytecode
	switch v := in.Args[i].(type) {
	case *Bytecode:
		bc = v
	case *Traversal:
		bc = v.bytecode
	case map[string]interface{}:
		// Decoded from JSON
		bytes, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		bc = &Bytecode{}
		if err := json.Unmarshal(bytes, bc); err != nil {
			return nil, translateError(in, err.Error())
		}
	default:
		return nil, translateError(in, fmt.Sprintf("argument %d is not a traversal", i))
	}
	child := Anon()
	if err := translateSteps(child, bc.Steps); err != nil {
		return nil, err
	}
	return child, nil
}
