// Copyright 2026, Square, Inc.

package strategy

import (
	"math"

	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/traversal"
)

// IdentityRemovalStrategy removes identity() steps. The labels of a removed step
// move to the step before it. A traversal that is a lone identity() keeps it.
type IdentityRemovalStrategy struct{ meta }

func IdentityRemoval() *IdentityRemovalStrategy {
	return &IdentityRemovalStrategy{meta{name: IDENTITY_REMOVAL, phase: traversal.OPTIMIZATION}}
}

func (s *IdentityRemovalStrategy) Apply(t *traversal.Traversal) error {
	for _, step := range traversal.StepsOf(t, traversal.IDENTITY_STEP) {
		if t.Len() == 1 {
			return nil
		}
		prev := t.Prev(step)
		if len(step.Labels()) > 0 {
			if prev == traversal.Empty {
				continue
			}
			for _, l := range step.Labels() {
				prev.AddLabel(l)
			}
		}
		if err := t.RemoveStep(step); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------

// IncidentToAdjacentStrategy replaces outE().inV() with out(), inE().outV() with
// in() and bothE().otherV() with both(), unless the edge is labeled or paths
// are tracked, since the edge would then be observable.
type IncidentToAdjacentStrategy struct{ meta }

func IncidentToAdjacent() *IncidentToAdjacentStrategy {
	return &IncidentToAdjacentStrategy{meta{name: INCIDENT_TO_ADJACENT, phase: traversal.OPTIMIZATION}}
}

func (s *IncidentToAdjacentStrategy) Apply(t *traversal.Traversal) error {
	// Only path() and lambdas can observe the edge; the path tracking that an
	// otherV() itself asks for does not block its own rewrite.
	root := t.Root()
	if traversal.HasKind(root, traversal.PATH_STEP, true) || traversal.HasKind(root, traversal.LAMBDA_STEP, true) {
		return nil
	}
	for i := 0; i+1 < t.Len(); i++ {
		vs, ok := t.Steps()[i].(*traversal.VertexStep)
		if !ok || !vs.ReturnsEdges || len(vs.Labels()) > 0 {
			continue
		}
		ev, ok := t.Steps()[i+1].(*traversal.EdgeVertexStep)
		if !ok || !adjacent(vs.Direction, ev) {
			continue
		}
		out := traversal.NewVertexStep(vs.Direction, false, vs.EdgeLabels...)
		for _, l := range ev.Labels() {
			out.AddLabel(l)
		}
		if err := t.RemoveStep(ev); err != nil {
			return err
		}
		if err := t.ReplaceStep(vs, out); err != nil {
			return err
		}
	}
	return nil
}

func adjacent(dir graph.Direction, ev *traversal.EdgeVertexStep) bool {
	switch dir {
	case graph.OUT:
		return !ev.Other && ev.Direction == graph.IN
	case graph.IN:
		return !ev.Other && ev.Direction == graph.OUT
	case graph.BOTH:
		return ev.Other
	}
	return false
}

// --------------------------------------------------------------------------

// AdjacentToIncidentStrategy replaces out() with outE() (and in(), both()
// likewise) where only the number of adjacent vertices, or their existence,
// matters: before count(), and at the end of a not() or filter() child.
// Edges are cheaper to produce than the vertices at their other end.
type AdjacentToIncidentStrategy struct{ meta }

func AdjacentToIncident() *AdjacentToIncidentStrategy {
	return &AdjacentToIncidentStrategy{meta{
		name:  ADJACENT_TO_INCIDENT,
		phase: traversal.OPTIMIZATION,
		post:  []string{IDENTITY_REMOVAL, INCIDENT_TO_ADJACENT},
	}}
}

func (s *AdjacentToIncidentStrategy) Apply(t *traversal.Traversal) error {
	for i, step := range t.Steps() {
		vs, ok := step.(*traversal.VertexStep)
		if !ok || vs.ReturnsEdges || len(vs.Labels()) > 0 {
			continue
		}
		next := t.Next(vs)
		if next.Kind() == traversal.COUNT_STEP || (i == t.Len()-1 && inFilter(t)) {
			out := traversal.NewVertexStep(vs.Direction, true, vs.EdgeLabels...)
			if err := t.ReplaceStep(vs, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// inFilter is true if t is the child of a not() or filter() step.
func inFilter(t *traversal.Traversal) bool {
	if t.IsRoot() {
		return false
	}
	k := t.Parent().Kind()
	return k == traversal.NOT_STEP || k == traversal.FILTER_STEP
}

// --------------------------------------------------------------------------

// CountStrategy stops counting once the outcome of a following is() is known:
// count().is(lt(3)) only needs to count to 3, so a limit(3) goes before the
// count(). Only the children of not() and filter() are rewritten, where the
// count itself is never emitted.
type CountStrategy struct{ meta }

func Count() *CountStrategy {
	return &CountStrategy{meta{
		name:  COUNT,
		phase: traversal.OPTIMIZATION,
		post:  []string{ADJACENT_TO_INCIDENT},
	}}
}

func (s *CountStrategy) Apply(t *traversal.Traversal) error {
	if !inFilter(t) {
		return nil
	}
	for _, step := range traversal.StepsOf(t, traversal.COUNT_STEP) {
		is, ok := t.Next(step).(*traversal.IsStep)
		if !ok {
			continue
		}
		high, ok := countLimit(is.Pred)
		if !ok {
			continue
		}
		if l, ok := t.Prev(step).(*traversal.LimitStep); ok && l.Low == 0 && l.High >= 0 && l.High <= high {
			continue
		}
		if err := t.InsertBefore(traversal.NewLimitStep(0, high), step); err != nil {
			return err
		}
	}
	return nil
}

// countLimit returns how many traversers must be counted to decide p on the
// count. ok is false for predicates that need the exact count.
func countLimit(p graph.P) (high int64, ok bool) {
	var values []interface{}
	switch p.Op {
	case graph.WITHIN:
		values, _ = p.Value.([]interface{})
	default:
		values = []interface{}{p.Value}
	}
	if len(values) == 0 {
		return 0, false
	}
	var max float64
	for _, v := range values {
		n, ok := graph.Number(v)
		if !ok || n < 0 || n != math.Trunc(n) {
			return 0, false
		}
		if n > max {
			max = n
		}
	}
	switch p.Op {
	case graph.LT, graph.GTE:
		return int64(max), true
	case graph.EQ, graph.NEQ, graph.LTE, graph.GT, graph.WITHIN:
		return int64(max) + 1, true
	}
	return 0, false
}

// --------------------------------------------------------------------------

// GraphStepStrategy folds the has() steps that directly follow a GraphStep into
// it, so the graph can answer them from an index.
type GraphStepStrategy struct{ meta }

func GraphStep() *GraphStepStrategy {
	return &GraphStepStrategy{meta{name: GRAPH_STEP, phase: traversal.OPTIMIZATION}}
}

func (s *GraphStepStrategy) Apply(t *traversal.Traversal) error {
	for _, step := range traversal.StepsOf(t, traversal.GRAPH_STEP) {
		gs := step.(*traversal.GraphStep)
		for {
			has, ok := t.Next(gs).(*traversal.HasStep)
			if !ok {
				break
			}
			for _, h := range has.Containers {
				gs.AddHasContainer(h)
			}
			for _, l := range has.Labels() {
				gs.AddLabel(l)
			}
			if err := t.RemoveStep(has); err != nil {
				return err
			}
		}
	}
	return nil
}
