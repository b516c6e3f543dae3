// Copyright 2026, Square, Inc.

package traversal

import (
	"fmt"

	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
)

// The builder methods append a step and record it in the bytecode. Once a
// builder call fails (the traversal is locked, say), every following call is
// a no-op and the error is returned by Err, ApplyStrategies and the terminal
// methods.

func (t *Traversal) add(s Step, op string, args ...interface{}) *Traversal {
	if t.err != nil {
		return t
	}
	if err := t.AddStep(s); err != nil {
		t.err = err
		return t
	}
	t.bytecode.AddStep(op, args...)
	return t
}

func stringArgs(ss []string) []interface{} {
	args := make([]interface{}, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

func childArgs(ts []*Traversal) []interface{} {
	args := make([]interface{}, len(ts))
	for i, c := range ts {
		args[i] = c.bytecode
	}
	return args
}

func (t *Traversal) V(ids ...string) *Traversal {
	return t.add(NewGraphStep(false, ids...), OP_V, stringArgs(ids)...)
}

func (t *Traversal) E(ids ...string) *Traversal {
	return t.add(NewGraphStep(true, ids...), OP_E, stringArgs(ids)...)
}

func (t *Traversal) Out(labels ...string) *Traversal {
	return t.add(NewVertexStep(graph.OUT, false, labels...), OP_OUT, stringArgs(labels)...)
}

func (t *Traversal) In(labels ...string) *Traversal {
	return t.add(NewVertexStep(graph.IN, false, labels...), OP_IN, stringArgs(labels)...)
}

func (t *Traversal) Both(labels ...string) *Traversal {
	return t.add(NewVertexStep(graph.BOTH, false, labels...), OP_BOTH, stringArgs(labels)...)
}

func (t *Traversal) OutE(labels ...string) *Traversal {
	return t.add(NewVertexStep(graph.OUT, true, labels...), OP_OUT_E, stringArgs(labels)...)
}

func (t *Traversal) InE(labels ...string) *Traversal {
	return t.add(NewVertexStep(graph.IN, true, labels...), OP_IN_E, stringArgs(labels)...)
}

func (t *Traversal) BothE(labels ...string) *Traversal {
	return t.add(NewVertexStep(graph.BOTH, true, labels...), OP_BOTH_E, stringArgs(labels)...)
}

func (t *Traversal) OutV() *Traversal {
	return t.add(NewEdgeVertexStep(graph.OUT), OP_OUT_V)
}

func (t *Traversal) InV() *Traversal {
	return t.add(NewEdgeVertexStep(graph.IN), OP_IN_V)
}

func (t *Traversal) BothV() *Traversal {
	return t.add(NewEdgeVertexStep(graph.BOTH), OP_BOTH_V)
}

func (t *Traversal) OtherV() *Traversal {
	return t.add(NewEdgeOtherVertexStep(), OP_OTHER_V)
}

// Has filters elements having a value for key that satisfies p. p is a
// graph.P, or a value to test for equality.
func (t *Traversal) Has(key string, p interface{}) *Traversal {
	pred, ok := p.(graph.P)
	if !ok {
		pred = graph.Eq(p)
	}
	return t.add(NewHasStep(graph.HasContainer{Key: key, Pred: pred}), OP_HAS, key, pred)
}

func (t *Traversal) HasLabel(labels ...string) *Traversal {
	return t.add(NewHasStep(graph.HasContainer{Key: graph.T_LABEL, Pred: within(labels)}), OP_HAS_LABEL, stringArgs(labels)...)
}

func (t *Traversal) HasID(ids ...string) *Traversal {
	return t.add(NewHasStep(graph.HasContainer{Key: graph.T_ID, Pred: within(ids)}), OP_HAS_ID, stringArgs(ids)...)
}

func within(ss []string) graph.P {
	if len(ss) == 1 {
		return graph.Eq(ss[0])
	}
	return graph.Within(stringArgs(ss)...)
}

func (t *Traversal) Identity() *Traversal {
	return t.add(NewIdentityStep(), OP_IDENTITY)
}

func (t *Traversal) ID() *Traversal {
	return t.add(NewIDStep(), OP_ID)
}

func (t *Traversal) Label() *Traversal {
	return t.add(NewLabelStep(), OP_LABEL)
}

func (t *Traversal) Values(keys ...string) *Traversal {
	return t.add(NewValuesStep(keys...), OP_VALUES, stringArgs(keys)...)
}

// Is filters values that satisfy p, a graph.P or a value to test for equality.
func (t *Traversal) Is(p interface{}) *Traversal {
	pred, ok := p.(graph.P)
	if !ok {
		pred = graph.Eq(p)
	}
	return t.add(NewIsStep(pred), OP_IS, pred)
}

func (t *Traversal) Count() *Traversal {
	return t.add(NewCountStep(), OP_COUNT)
}

func (t *Traversal) Dedup() *Traversal {
	return t.add(NewDedupStep(), OP_DEDUP)
}

func (t *Traversal) Fold() *Traversal {
	return t.add(NewFoldStep(), OP_FOLD)
}

func (t *Traversal) Limit(n int64) *Traversal {
	return t.Range(0, n)
}

// Range passes traversers [low, high). A negative high has no upper bound.
func (t *Traversal) Range(low, high int64) *Traversal {
	return t.add(NewLimitStep(low, high), OP_RANGE, low, high)
}

func (t *Traversal) Local(child *Traversal) *Traversal {
	return t.add(NewLocalStep(child), OP_LOCAL, child.bytecode)
}

func (t *Traversal) Not(child *Traversal) *Traversal {
	return t.add(NewNotStep(child), OP_NOT, child.bytecode)
}

func (t *Traversal) Filter(child *Traversal) *Traversal {
	return t.add(NewFilterStep(child), OP_FILTER, child.bytecode)
}

func (t *Traversal) Union(children ...*Traversal) *Traversal {
	return t.add(NewUnionStep(children...), OP_UNION, childArgs(children)...)
}

// Map applies fn to every value. Traversals with lambdas cannot be sent to a
// remote connection.
func (t *Traversal) Map(name string, fn func(v interface{}) interface{}) *Traversal {
	return t.add(NewLambdaStep(name, func(v interface{}) (interface{}, bool) {
		return fn(v), true
	}), OP_LAMBDA, name)
}

// FilterFunc passes the values for which fn returns true.
func (t *Traversal) FilterFunc(name string, fn func(v interface{}) bool) *Traversal {
	return t.add(NewLambdaStep(name, func(v interface{}) (interface{}, bool) {
		return v, fn(v)
	}), OP_LAMBDA, name)
}

func (t *Traversal) Path() *Traversal {
	return t.add(NewPathStep(), OP_PATH)
}

// Profile ends the traversal with a step that emits the per-step metrics.
func (t *Traversal) Profile() *Traversal {
	return t.add(NewProfileSideEffectStep(), OP_PROFILE)
}

// As labels the last step.
func (t *Traversal) As(labels ...string) *Traversal {
	if t.err != nil {
		return t
	}
	if t.locked {
		t.err = serr.ErrLocked
		return t
	}
	if len(t.steps) == 0 {
		t.err = serr.IllegalStateError{Cause: fmt.Errorf("as(%v) needs a step to label", labels)}
		return t
	}
	for _, l := range labels {
		t.EndStep().AddLabel(l)
	}
	t.bytecode.AddStep(OP_AS, stringArgs(labels)...)
	return t
}

// ConnectedComponent runs the connected components vertex program. It is
// configured with With(CC_EDGES, ...) and With(CC_PROPERTY, ...).
func (t *Traversal) ConnectedComponent() *Traversal {
	return t.add(NewConnectedComponentStep(), OP_CONNECTED_COMPONENT)
}

// With configures the last step. Only vertex program steps take options.
func (t *Traversal) With(key string, value interface{}) *Traversal {
	if t.err != nil {
		return t
	}
	if t.locked {
		t.err = serr.ErrLocked
		return t
	}
	s, ok := t.EndStep().(configurable)
	if !ok {
		t.err = serr.IllegalStateError{Cause: fmt.Errorf("with(%s) does not apply to %s", key, t.EndStep())}
		return t
	}
	if err := s.configure(key, value); err != nil {
		t.err = err
		return t
	}
	if child, ok := value.(*Traversal); ok {
		value = child.bytecode
	}
	t.bytecode.AddStep(OP_WITH, key, value)
	return t
}

// configurable steps take options with With.
type configurable interface {
	configure(key string, value interface{}) error
}
