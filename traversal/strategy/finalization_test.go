// Copyright 2026, Square, Inc.

package strategy_test

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/square/vertigo/computer"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/traversal"
	"github.com/square/vertigo/traversal/strategy"
)

func metrics(t *testing.T, tr *traversal.Traversal) *traversal.Metrics {
	t.Helper()
	vals, err := tr.ToList(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 {
		t.Fatalf("got %d values, expected 1", len(vals))
	}
	m, ok := vals[0].(*traversal.Metrics)
	if !ok {
		t.Fatalf("got %T, expected *traversal.Metrics", vals[0])
	}
	return m
}

func TestProfile(t *testing.T) {
	tr := source(strategy.Profile()).V().Out().Profile()
	applied(t, tr)
	expect := []string{"GraphStep", "ProfileStep", "VertexStep", "ProfileStep", "ProfileSideEffectStep"}
	if diff := deep.Equal(kinds(tr), expect); diff != nil {
		t.Error(diff)
	}

	m := metrics(t, tr)
	if len(m.Steps) != 2 {
		t.Fatalf("got %d profiled steps, expected 2:\n%s", len(m.Steps), m)
	}
	got := []interface{}{m.Steps[0].Step, m.Steps[0].Count, m.Steps[1].Step, m.Steps[1].Count}
	if diff := deep.Equal(got, []interface{}{"GraphStep(vertex,[])", int64(6), "VertexStep(OUT,[],vertex)", int64(6)}); diff != nil {
		t.Error(diff)
	}

	// Without profile(): nothing to do.
	if s := applied(t, source(strategy.Profile()).V().Out()); s != "[GraphStep(vertex,[]), VertexStep(OUT,[],vertex)]" {
		t.Errorf("got %s", s)
	}
}

func TestProfileOnComputer(t *testing.T) {
	tr := olap(computer.Options{}).V().Out().Count().Profile()
	applied(t, tr)
	expect := []string{
		"TraversalVertexProgramStep",
		"ProfileStep",
		"ComputerResultStep",
		"ProfileStep",
		"ProfileSideEffectStep",
	}
	if diff := deep.Equal(kinds(tr), expect); diff != nil {
		t.Error(diff)
	}
	m := metrics(t, tr)
	if len(m.Steps) != 2 || m.Steps[1].Step != "ComputerResultStep" || m.Steps[1].Count != 1 {
		t.Errorf("got metrics\n%s", m)
	}
}

func TestReferenceElement(t *testing.T) {
	g := source(strategy.ReferenceElement())
	tr := g.V("1").OutE("knows").Fold()
	applied(t, tr)
	if tr.EndStep().Kind() != traversal.REFERENCE_ELEMENT_STEP {
		t.Fatalf("got %s, expected a ReferenceElementStep at the end", tr)
	}
	vals, err := tr.ToList(ctx())
	if err != nil {
		t.Fatal(err)
	}
	expect := []interface{}{[]interface{}{
		graph.Reference{ID: "7", Label: "knows", Type: "edge"},
		graph.Reference{ID: "8", Label: "knows", Type: "edge"},
	}}
	if diff := deep.Equal(vals, expect); diff != nil {
		t.Error(diff)
	}

	// Once only, and only at the root.
	tr = g.V().Local(__().Out())
	applied(t, tr)
	again := tr.Clone()
	applied(t, again)
	if again.String() != "[GraphStep(vertex,[]), LocalStep([VertexStep(OUT,[],vertex)]), ReferenceElementStep]" {
		t.Errorf("got %s", again)
	}
}
