// Copyright 2026, Square, Inc.

package traversal

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
)

// execution is the state shared by the steps of one run of a traversal. Steps
// keep no state of their own between calls to process, so the same locked
// traversal can run concurrently (as it does at every vertex in a vertex
// program).
type execution struct {
	ctx         context.Context
	trackPath   bool
	sideEffects *SideEffects
}

func newExecution(ctx context.Context, t *Traversal) *execution {
	return &execution{
		ctx:         ctx,
		trackPath:   t.Requirements()[REQUIRES_PATH],
		sideEffects: t.SideEffects(),
	}
}

func (ex *execution) traverser(v interface{}) *Traverser {
	return NewTraverser(v, ex.trackPath)
}

// run pushes in through the steps of t, one step at a time over the whole batch.
func (ex *execution) run(t *Traversal, in []*Traverser) ([]*Traverser, error) {
	cur := in
	var elapsed time.Duration
	for _, s := range t.steps {
		if err := ex.ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		out, err := s.process(ex, cur)
		if err != nil {
			return nil, err
		}
		if p, ok := s.(*ProfileStep); ok {
			p.record(ex, out, elapsed)
		} else {
			elapsed = time.Since(start)
		}
		if ex.trackPath && len(s.Labels()) > 0 && passesThrough(s) {
			for _, tr := range out {
				if tr.Path != nil {
					tr.Path = tr.Path.Label(s.Labels())
				}
			}
		}
		cur = out
	}
	return cur, nil
}

// passesThrough is true for steps that emit (some of) their input unchanged,
// so their labels name the current end of the path instead of a new object.
func passesThrough(s Step) bool {
	switch s.Kind() {
	case IDENTITY_STEP, PROFILE_STEP:
		return true
	}
	return Is(s, FILTER) && s.Kind() != LIMIT_STEP && s.Kind() != DEDUP_STEP
}

// --------------------------------------------------------------------------
// Terminal methods. They apply strategies (locking the traversal) on first use.

// Traversers runs t and returns the traversers it emits.
func (t *Traversal) Traversers(ctx context.Context) ([]*Traverser, error) {
	if err := t.ApplyStrategies(); err != nil {
		return nil, err
	}
	out, err := newExecution(ctx, t).run(t, nil)
	if err != nil {
		log.WithField("traversal", t.String()).Debugf("traversal failed: %s", err)
		return nil, executionError(err)
	}
	return out, nil
}

// ToList runs t and returns the values it emits, each repeated by its bulk.
func (t *Traversal) ToList(ctx context.Context) ([]interface{}, error) {
	trs, err := t.Traversers(ctx)
	if err != nil {
		return nil, err
	}
	var out []interface{}
	for _, tr := range trs {
		for i := int64(0); i < tr.Bulk; i++ {
			out = append(out, tr.Value)
		}
	}
	return out, nil
}

// Iterate runs t for its side effects.
func (t *Traversal) Iterate(ctx context.Context) error {
	_, err := t.Traversers(ctx)
	return err
}

// executionError keeps errors that already have a kind and wraps the rest.
func executionError(err error) error {
	var ise serr.IllegalStateError
	if serr.Kind(err) != serr.KIND_ILLEGAL_STATE || errors.As(err, &ise) {
		return err
	}
	return serr.NewExecutionError(err, "traversal failed")
}

func typeError(s Step, v interface{}, want string) error {
	return serr.NewExecutionError(nil, "%s expects a %s, got %v (%T)", s, want, v, v)
}

// --------------------------------------------------------------------------
// process, per step

func (s *EmptyStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	return in, nil
}

func (s *GraphStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	g := s.t.Graph()
	if g == nil {
		return nil, serr.NewExecutionError(nil, "%s: traversal is not bound to a graph", s)
	}
	if len(in) == 0 && s.t.StartStep() == s {
		in = []*Traverser{ex.traverser(nil)}
	}
	elements := s.elements(g)
	var out []*Traverser
	for _, tr := range in {
		for _, e := range elements {
			out = append(out, tr.Split(e, s.Labels()))
		}
	}
	return out, nil
}

// elements returns the elements of g the step starts at. Vertices are looked up
// by id, else through an index when an eq or within container is on an indexed
// key, else by scanning.
func (s *GraphStep) elements(g graph.Graph) []graph.Element {
	var out []graph.Element
	if s.ReturnsEdges {
		for _, e := range g.Edges(s.IDs...) {
			if graph.TestAll(e, s.Containers) {
				out = append(out, e)
			}
		}
		return out
	}
	var vs []graph.Vertex
	if len(s.IDs) > 0 {
		vs = g.Vertices(s.IDs...)
	} else if h, ok := s.indexed(g); ok {
		vs = lookup(g, h)
	} else {
		vs = g.Vertices()
	}
	for _, v := range vs {
		if graph.TestAll(v, s.Containers) {
			out = append(out, v)
		}
	}
	return out
}

// Accepts reports whether e is one of the elements the step starts at.
func (s *GraphStep) Accepts(e graph.Element) bool {
	if graph.IsEdge(e) != s.ReturnsEdges {
		return false
	}
	if len(s.IDs) > 0 {
		found := false
		for _, id := range s.IDs {
			if id == e.ID() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return graph.TestAll(e, s.Containers)
}

type indexer interface {
	Indexed(key string) bool
}

func (s *GraphStep) indexed(g graph.Graph) (graph.HasContainer, bool) {
	ix, ok := g.(indexer)
	if !ok {
		return graph.HasContainer{}, false
	}
	for _, h := range s.Containers {
		if h.Key != graph.T_ID && h.Key != graph.T_LABEL && h.Pred.IsEquality() && ix.Indexed(h.Key) {
			return h, true
		}
	}
	return graph.HasContainer{}, false
}

func lookup(g graph.Graph, h graph.HasContainer) []graph.Vertex {
	if h.Pred.Op != graph.WITHIN {
		return g.Lookup(h.Key, h.Pred.Value)
	}
	var out []graph.Vertex
	seen := map[string]bool{}
	vals, _ := h.Pred.Value.([]interface{})
	for _, val := range vals {
		for _, v := range g.Lookup(h.Key, val) {
			if !seen[v.ID()] {
				seen[v.ID()] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func (s *VertexStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, tr := range in {
		v, ok := tr.Value.(graph.Vertex)
		if !ok {
			return nil, typeError(s, tr.Value, "vertex")
		}
		if s.ReturnsEdges {
			for _, e := range v.Edges(s.Direction, s.EdgeLabels...) {
				out = append(out, tr.Split(e, s.Labels()))
			}
			continue
		}
		for _, n := range v.Vertices(s.Direction, s.EdgeLabels...) {
			out = append(out, tr.Split(n, s.Labels()))
		}
	}
	return out, nil
}

func (s *EdgeVertexStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, tr := range in {
		e, ok := tr.Value.(graph.Edge)
		if !ok {
			return nil, typeError(s, tr.Value, "edge")
		}
		switch {
		case s.Other:
			if tr.Path == nil || len(tr.Path.Objects) < 2 {
				return nil, serr.NewExecutionError(nil, "%s needs the vertex the edge was reached from", s)
			}
			prev, ok := tr.Path.Objects[len(tr.Path.Objects)-2].(graph.Element)
			if !ok {
				return nil, typeError(s, tr.Path.Objects[len(tr.Path.Objects)-2], "vertex before the edge")
			}
			out = append(out, tr.Split(graph.OtherVertex(e, prev.ID()), s.Labels()))
		case s.Direction == graph.BOTH:
			out = append(out, tr.Split(e.OutVertex(), s.Labels()), tr.Split(e.InVertex(), s.Labels()))
		default:
			out = append(out, tr.Split(graph.EdgeVertex(e, s.Direction), s.Labels()))
		}
	}
	return out, nil
}

func (s *HasStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, tr := range in {
		if e, ok := tr.Value.(graph.Element); ok && graph.TestAll(e, s.Containers) {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (s *IdentityStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	return in, nil
}

func (s *IDStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	out := make([]*Traverser, 0, len(in))
	for _, tr := range in {
		switch v := tr.Value.(type) {
		case graph.Element:
			out = append(out, tr.Split(v.ID(), s.Labels()))
		case graph.Reference:
			out = append(out, tr.Split(v.ID, s.Labels()))
		default:
			return nil, typeError(s, tr.Value, "element")
		}
	}
	return out, nil
}

func (s *LabelStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	out := make([]*Traverser, 0, len(in))
	for _, tr := range in {
		switch v := tr.Value.(type) {
		case graph.Element:
			out = append(out, tr.Split(v.Label(), s.Labels()))
		case graph.Reference:
			out = append(out, tr.Split(v.Label, s.Labels()))
		default:
			return nil, typeError(s, tr.Value, "element")
		}
	}
	return out, nil
}

func (s *ValuesStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, tr := range in {
		e, ok := tr.Value.(graph.Element)
		if !ok {
			return nil, typeError(s, tr.Value, "element")
		}
		keys := s.Keys
		if len(keys) == 0 {
			keys = e.Keys()
		}
		for _, k := range keys {
			for _, v := range e.Values(k) {
				out = append(out, tr.Split(v, s.Labels()))
			}
		}
	}
	return out, nil
}

func (s *IsStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, tr := range in {
		if s.Pred.Test(tr.Value) {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (s *CountStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var n int64
	for _, tr := range in {
		n += tr.Bulk
	}
	return []*Traverser{ex.traverser(nil).Split(n, s.Labels())}, nil
}

func (s *DedupStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	seen := map[string]bool{}
	for _, tr := range in {
		k := dedupKey(tr.Value)
		if seen[k] {
			continue
		}
		seen[k] = true
		n := tr.Copy()
		n.Bulk = 1
		out = append(out, n)
	}
	return out, nil
}

func dedupKey(v interface{}) string {
	switch x := v.(type) {
	case graph.Vertex:
		return "v:" + x.ID()
	case graph.Edge:
		return "e:" + x.ID()
	case graph.Reference:
		return x.Type + ":" + x.ID
	}
	if f, ok := graph.Number(v); ok {
		return fmt.Sprintf("n:%v", f)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func (s *FoldStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	list := []interface{}{}
	for _, tr := range in {
		for i := int64(0); i < tr.Bulk; i++ {
			list = append(list, tr.Value)
		}
	}
	return []*Traverser{ex.traverser(nil).Split(list, s.Labels())}, nil
}

func (s *LimitStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	var pos int64
	for _, tr := range in {
		lo, hi := pos, pos+tr.Bulk
		pos = hi
		if lo < s.Low {
			lo = s.Low
		}
		if s.High >= 0 && hi > s.High {
			hi = s.High
		}
		if hi > lo {
			n := tr.Copy()
			n.Bulk = hi - lo
			out = append(out, n)
		}
		if s.High >= 0 && pos >= s.High {
			break
		}
	}
	return out, nil
}

func (s *LocalStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, tr := range in {
		res, err := ex.run(s.Child, []*Traverser{tr.Copy()})
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

func (s *NotStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, tr := range in {
		res, err := ex.run(s.Child, []*Traverser{tr.Copy()})
		if err != nil {
			return nil, err
		}
		if len(res) == 0 {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (s *FilterStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, tr := range in {
		res, err := ex.run(s.Child, []*Traverser{tr.Copy()})
		if err != nil {
			return nil, err
		}
		if len(res) > 0 {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (s *UnionStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, c := range s.Children {
		copies := make([]*Traverser, len(in))
		for i, tr := range in {
			copies[i] = tr.Copy()
		}
		res, err := ex.run(c, copies)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

func (s *LambdaStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, tr := range in {
		if v, ok := s.Fn(tr.Value); ok {
			out = append(out, tr.Split(v, s.Labels()))
		}
	}
	return out, nil
}

func (s *PathStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	out := make([]*Traverser, 0, len(in))
	for _, tr := range in {
		if tr.Path == nil {
			return nil, serr.NewExecutionError(nil, "%s: traverser has no path", s)
		}
		out = append(out, tr.Split(tr.Path.Values(), s.Labels()))
	}
	return out, nil
}

func (s *ReferenceElementStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	out := make([]*Traverser, len(in))
	for i, tr := range in {
		n := tr.Copy()
		n.Value = detach(tr.Value)
		out[i] = n
	}
	return out, nil
}

// detach replaces elements, also inside lists, with references.
func detach(v interface{}) interface{} {
	switch x := v.(type) {
	case graph.Element:
		return graph.ReferenceOf(x)
	case []interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = detach(x[i])
		}
		return out
	}
	return v
}

func (s *ProfileStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	return in, nil
}

func (s *ProfileSideEffectStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	m := &Metrics{}
	if v, ok := ex.sideEffects.Get(METRICS); ok {
		m = v.(*Metrics)
	}
	return []*Traverser{ex.traverser(nil).Split(m, s.Labels())}, nil
}
