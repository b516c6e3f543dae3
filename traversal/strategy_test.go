// Copyright 2026, Square, Inc.

package traversal_test

import (
	"errors"
	"testing"

	"github.com/go-test/deep"

	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/test"
	"github.com/square/vertigo/test/mock"
	"github.com/square/vertigo/traversal"
)

func names(ss []traversal.Strategy) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Name()
	}
	return out
}

func TestSortPrior(t *testing.T) {
	// B is added first, but A declares it applies prior to B.
	b := mock.NewStrategy("B", traversal.OPTIMIZATION)
	a := mock.NewStrategy("A", traversal.OPTIMIZATION)
	a.Prior = []string{"B"}

	sorted, err := traversal.Sort([]traversal.Strategy{b, a})
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(names(sorted), []string{"A", "B"}); diff != nil {
		t.Error(diff)
	}
}

func TestSortPost(t *testing.T) {
	a := mock.NewStrategy("A", traversal.OPTIMIZATION)
	b := mock.NewStrategy("B", traversal.OPTIMIZATION)
	a.Post = []string{"B"} // A applies after B

	sorted, err := traversal.Sort([]traversal.Strategy{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(names(sorted), []string{"B", "A"}); diff != nil {
		t.Error(diff)
	}
}

func TestSortPhasesAndTies(t *testing.T) {
	v := mock.NewStrategy("verify", traversal.VERIFICATION)
	f := mock.NewStrategy("finalize", traversal.FINALIZATION)
	o1 := mock.NewStrategy("o1", traversal.OPTIMIZATION)
	o2 := mock.NewStrategy("o2", traversal.OPTIMIZATION)
	o3 := mock.NewStrategy("o3", traversal.OPTIMIZATION)
	d := mock.NewStrategy("decorate", traversal.DECORATION)
	o3.Prior = []string{"o1"}
	// Cross-phase and unknown constraints are ignored.
	d.Post = []string{"verify", "nope"}

	ss := []traversal.Strategy{v, f, o1, o2, o3, d}
	expect := []string{"decorate", "o2", "o3", "o1", "finalize", "verify"}
	for i := 0; i < 3; i++ {
		sorted, err := traversal.Sort(ss)
		if err != nil {
			t.Fatal(err)
		}
		if diff := deep.Equal(names(sorted), expect); diff != nil {
			t.Errorf("run %d: %v", i, diff)
		}
	}
}

func TestSortCycle(t *testing.T) {
	a := mock.NewStrategy("A", traversal.OPTIMIZATION)
	b := mock.NewStrategy("B", traversal.OPTIMIZATION)
	c := mock.NewStrategy("C", traversal.OPTIMIZATION)
	a.Prior = []string{"B"}
	b.Prior = []string{"C"}
	c.Prior = []string{"A"}

	_, err := traversal.Sort([]traversal.Strategy{a, b, c})
	var cfgErr serr.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got error %v, expected a ConfigurationError", err)
	}
	if serr.Kind(err) != serr.KIND_CONFIGURATION {
		t.Errorf("kind %s, expected %s", serr.Kind(err), serr.KIND_CONFIGURATION)
	}
}

func TestStrategiesAddReplaces(t *testing.T) {
	a1 := mock.NewStrategy("A", traversal.DECORATION)
	b := mock.NewStrategy("B", traversal.DECORATION)
	a2 := mock.NewStrategy("A", traversal.DECORATION)

	ss := traversal.NewStrategies(a1, b).Add(a2)
	if diff := deep.Equal(names(ss.List()), []string{"B", "A"}); diff != nil {
		t.Error(diff)
	}
	got, ok := ss.Get("A")
	if !ok || got != a2 {
		t.Errorf("Get(A) = %v, expected the replacement", got)
	}
	ss.Remove("B", "C")
	if diff := deep.Equal(names(ss.List()), []string{"A"}); diff != nil {
		t.Error(diff)
	}
}

func TestApplyStrategiesOnceAndLock(t *testing.T) {
	s := mock.NewStrategy("S", traversal.OPTIMIZATION)
	g := traversal.NewSource(test.ModernGraph(), s)
	tr := g.V().Not(traversal.Anon().Out("knows"))

	if err := tr.ApplyStrategies(); err != nil {
		t.Fatal(err)
	}
	// Root first, then the not() child.
	if len(s.Applied) != 2 || s.Applied[0] != tr || s.Applied[1].IsRoot() {
		t.Errorf("applied to %v, expected the root then the child", s.Applied)
	}
	if !tr.IsLocked() {
		t.Error("traversal not locked")
	}

	// Again: nothing happens.
	if err := tr.ApplyStrategies(); err != nil {
		t.Fatal(err)
	}
	if len(s.Applied) != 2 {
		t.Errorf("applied %d times, expected 2", len(s.Applied))
	}

	if err := tr.AddStep(traversal.NewCountStep()); err != serr.ErrLocked {
		t.Errorf("AddStep: got %v, expected ErrLocked", err)
	}
	if err := tr.RemoveStep(tr.EndStep()); err != serr.ErrLocked {
		t.Errorf("RemoveStep: got %v, expected ErrLocked", err)
	}
	child := tr.Steps()[1].(*traversal.NotStep).Child
	if err := child.AddStep(traversal.NewCountStep()); err != serr.ErrLocked {
		t.Errorf("child AddStep: got %v, expected ErrLocked", err)
	}
	if tr.Count().Err() != serr.ErrLocked {
		t.Error("builder on a locked traversal did not fail")
	}
}

func TestVerificationFailureLeavesUnlocked(t *testing.T) {
	v := mock.NewStrategy("V", traversal.VERIFICATION)
	v.ApplyFunc = func(tr *traversal.Traversal) error {
		return serr.VerificationError{Strategy: "V", Message: "no", Traversal: tr.String()}
	}
	tr := traversal.NewSource(test.ModernGraph(), v).V()

	err := tr.ApplyStrategies()
	if serr.Kind(err) != serr.KIND_VERIFICATION {
		t.Fatalf("got %v, expected a verification error", err)
	}
	if tr.IsLocked() {
		t.Error("traversal locked after a verification failure")
	}
}

func TestClone(t *testing.T) {
	tr := traversal.NewSource(test.ModernGraph()).V().As("a").Union(
		traversal.Anon().Out(),
		traversal.Anon().In(),
	)
	if err := tr.ApplyStrategies(); err != nil {
		t.Fatal(err)
	}
	c := tr.Clone()
	if c.IsLocked() {
		t.Error("clone is locked")
	}
	if c.String() != tr.String() {
		t.Errorf("clone %s, expected %s", c, tr)
	}
	for i, s := range c.Steps() {
		if s.ID() != tr.Steps()[i].ID() {
			t.Errorf("step %d: id %s, expected %s", i, s.ID(), tr.Steps()[i].ID())
		}
		if s == tr.Steps()[i] {
			t.Errorf("step %d is shared", i)
		}
	}
	// The clone can change; the original cannot.
	if err := c.AddStep(traversal.NewCountStep()); err != nil {
		t.Error(err)
	}
	if tr.Len() != 2 {
		t.Errorf("original has %d steps, expected 2", tr.Len())
	}
	union := c.Steps()[1].(*traversal.UnionStep)
	if union.Children[0].Parent() != union {
		t.Error("cloned child not adopted by the cloned step")
	}
}

func TestMutation(t *testing.T) {
	tr := traversal.Anon()
	if tr.StartStep() != traversal.Empty || tr.EndStep() != traversal.Empty {
		t.Error("empty traversal does not start and end with Empty")
	}
	a, b, c := traversal.NewIdentityStep(), traversal.NewCountStep(), traversal.NewFoldStep()
	tr.AddStep(a)
	tr.AddStep(c)
	if err := tr.InsertAfter(b, a); err != nil {
		t.Fatal(err)
	}
	if tr.Next(a) != b || tr.Prev(c) != b || tr.Prev(a) != traversal.Empty || tr.Next(c) != traversal.Empty {
		t.Errorf("neighbors wrong: %s", tr)
	}
	if err := tr.RemoveStep(b); err != nil {
		t.Fatal(err)
	}
	if b.Traversal() != nil {
		t.Error("removed step still belongs to the traversal")
	}
	if err := tr.RemoveStep(b); serr.Kind(err) != serr.KIND_ILLEGAL_STATE {
		t.Errorf("removing a missing step: got %v, expected an illegal state error", err)
	}
	dst := traversal.Anon()
	if err := tr.MoveSteps(0, 2, dst); err != nil {
		t.Fatal(err)
	}
	if tr.Len() != 0 || dst.Len() != 2 || a.Traversal() != dst {
		t.Errorf("moved: %s -> %s", tr, dst)
	}
}
