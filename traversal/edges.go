// Copyright 2026, Square, Inc.

package traversal

import (
	"context"

	"github.com/square/vertigo/computer"
	"github.com/square/vertigo/graph"
)

// EdgeFilter adapts an edge-emitting anonymous traversal, like
// union(outE(a), inE(b)), to a computer.EdgeTraversal.
type EdgeFilter struct {
	T *Traversal
}

var _ computer.EdgeTraversal = EdgeFilter{}

// EdgeTraversalOf returns the computer.EdgeTraversal for t: IncidentEdges when t
// is a single incident edge step, else an EdgeFilter.
func EdgeTraversalOf(t *Traversal) computer.EdgeTraversal {
	if t.Len() == 1 {
		if vs, ok := t.StartStep().(*VertexStep); ok && vs.ReturnsEdges && len(vs.Labels()) == 0 {
			return computer.IncidentEdges{Dir: vs.Direction, Labels: append([]string(nil), vs.EdgeLabels...)}
		}
	}
	return EdgeFilter{T: t}
}

// Edges runs the traversal from v and returns the edges it emits.
func (f EdgeFilter) Edges(v graph.Vertex) ([]graph.Edge, error) {
	ex := &execution{ctx: context.Background(), sideEffects: NewSideEffects()}
	out, err := ex.run(f.T, []*Traverser{ex.traverser(v)})
	if err != nil {
		return nil, err
	}
	var edges []graph.Edge
	for _, tr := range out {
		if e, ok := tr.Value.(graph.Edge); ok {
			edges = append(edges, e)
		}
	}
	return edges, nil
}

// Reverse flips the direction of every incident edge step.
func (f EdgeFilter) Reverse() computer.EdgeTraversal {
	r := f.T.Clone()
	r.Walk(func(s Step) {
		if vs, ok := s.(*VertexStep); ok {
			vs.Direction = vs.Direction.Opposite()
		}
	})
	return EdgeFilter{T: r}
}

// Direction is the common direction of the incident edge steps, BOTH if they
// differ.
func (f EdgeFilter) Direction() graph.Direction {
	dir := graph.BOTH
	first := true
	f.T.Walk(func(s Step) {
		vs, ok := s.(*VertexStep)
		if !ok || !vs.ReturnsEdges {
			return
		}
		if first {
			dir, first = vs.Direction, false
		} else if dir != vs.Direction {
			dir = graph.BOTH
		}
	})
	return dir
}

func (f EdgeFilter) String() string {
	return f.T.String()
}
