// Copyright 2026, Square, Inc.

package strategy

import (
	"sort"

	"github.com/square/vertigo/computer"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/traversal"
)

// MessagePassingReductionStrategy reduces the messages a traversal program
// sends. When the program only looks one hop away from the vertex it starts at,
// the steps up to the first barrier are wrapped into a local() that runs at the
// start vertex, so the barrier receives values instead of traversers sent to
// the adjacent vertices. in().count() becomes local(inE().id()).count().
type MessagePassingReductionStrategy struct{ meta }

func MessagePassingReduction() *MessagePassingReductionStrategy {
	return &MessagePassingReductionStrategy{meta{
		name:  MESSAGE_PASSING_REDUCTION,
		phase: traversal.OPTIMIZATION,
		post:  []string{IDENTITY_REMOVAL, INCIDENT_TO_ADJACENT, ADJACENT_TO_INCIDENT, COUNT, GRAPH_STEP},
	}}
}

func (s *MessagePassingReductionStrategy) Apply(t *traversal.Traversal) error {
	if !t.IsRoot() {
		return nil
	}
	var tvp *traversal.TraversalVertexProgramStep
	for _, step := range t.Steps() {
		if p, ok := step.(*traversal.TraversalVertexProgramStep); ok {
			tvp = p
			break
		}
	}
	if tvp == nil {
		return nil
	}
	c := tvp.Child

	// Bring the program to the shape it will have once its own strategies
	// run: the ones ordered before this one.
	sorted, err := t.Strategies().Sorted()
	if err != nil {
		return err
	}
	for _, prior := range sorted {
		if prior.Name() == s.Name() {
			break
		}
		if prior.Phase() != traversal.OPTIMIZATION {
			continue
		}
		if err := prior.Apply(c); err != nil {
			return err
		}
	}

	if !reducible(c) {
		return nil
	}

	barrier := -1
	for i, step := range c.Steps() {
		if traversal.Is(step, traversal.BARRIER) {
			barrier = i
			break
		}
	}
	if barrier >= 0 && insertElementID(c, barrier) {
		if err := c.InsertStep(barrier, traversal.NewIDStep()); err != nil {
			return err
		}
		barrier++
	}

	end := barrier
	if end < 0 {
		end = c.Len()
	}
	if endsWithElement(c, end-1) {
		return nil
	}
	from := 0
	if c.StartStep().Kind() == traversal.GRAPH_STEP {
		from = 1
	}
	if end-from < 2 {
		return nil
	}
	local := traversal.Anon()
	if err := c.MoveSteps(from, end, local); err != nil {
		return err
	}
	return c.InsertStep(from, traversal.NewLocalStep(local))
}

// reducible is true if c can be rewritten: it has an adjacency step, no
// local(), lambda or path, no child that receives the whole stream, does not
// start with a barrier and stays on the star graph of its start vertex.
func reducible(c *traversal.Traversal) bool {
	if c.Len() < 2 || traversal.Is(c.Steps()[1], traversal.BARRIER) {
		return false
	}
	if traversal.HasKind(c, traversal.LOCAL_STEP, true) || traversal.HasKind(c, traversal.LAMBDA_STEP, true) {
		return false
	}
	if c.Requirements()[traversal.REQUIRES_PATH] {
		return false
	}
	adjacency, global := false, false
	c.Walk(func(s traversal.Step) {
		switch s.Kind() {
		case traversal.VERTEX_STEP, traversal.EDGE_VERTEX_STEP:
			adjacency = true
		}
		if p, ok := s.(traversal.Parent); ok && len(p.GlobalChildren()) > 0 {
			global = true
		}
	})
	return adjacency && !global && isLocalStar(c)
}

// insertElementID is true if the barrier at i counts elements, so their ids can
// be counted instead: count(), or dedup().count().
func insertElementID(c *traversal.Traversal, i int) bool {
	if !endsWithElement(c, i-1) {
		return false
	}
	switch c.Steps()[i].Kind() {
	case traversal.COUNT_STEP:
		return true
	case traversal.DEDUP_STEP:
		return i+1 < c.Len() && c.Steps()[i+1].Kind() == traversal.COUNT_STEP
	}
	return false
}

// endsWithElement is true if the traverser leaving step i of c sits on an
// element other than the one the traversal started at: the kind of traverser
// that has to be sent to another vertex.
func endsWithElement(c *traversal.Traversal, i int) bool {
	for ; i >= 0; i-- {
		s := c.Steps()[i]
		switch x := s.(type) {
		case *traversal.VertexStep:
			// outE() stays at its start vertex; the edge is hosted there.
			return !x.ReturnsEdges || x.Direction != graph.OUT
		case *traversal.EdgeVertexStep:
			return true
		case *traversal.LocalStep:
			return endsWithElement(x.Child, x.Child.Len()-1)
		}
		if !(traversal.Is(s, traversal.FILTER) || traversal.Is(s, traversal.SIDE_EFFECT) ||
			traversal.Is(s, traversal.BARRIER) || s.Kind() == traversal.IDENTITY_STEP) {
			return false
		}
	}
	return false
}

// Positions of a traverser relative to its start element, for isLocalStar.
const (
	atStart    = iota // the start element, all of it readable
	atEdge            // an edge incident to the start vertex
	atAdjacent        // a vertex adjacent to the start vertex, id only
)

// isLocalStar is true if c only reads what is local to its start element: its
// properties, its incident edges and their properties, and the ids of its
// adjacent vertices.
func isLocalStar(c *traversal.Traversal) bool {
	pos := atStart
	for _, s := range c.Steps() {
		switch x := s.(type) {
		case *traversal.VertexStep:
			if pos != atStart {
				return false
			}
			if x.ReturnsEdges {
				pos = atEdge
			} else {
				pos = atAdjacent
			}
		case *traversal.EdgeVertexStep:
			if pos == atAdjacent {
				return false
			}
			pos = atAdjacent
		case *traversal.HasStep:
			if pos == atAdjacent && !onlyIDs(x.Containers) {
				return false
			}
		case *traversal.ValuesStep, *traversal.LabelStep, *traversal.PathStep:
			if pos == atAdjacent {
				return false
			}
		default:
			for _, child := range traversal.Children(s) {
				if pos == atAdjacent || !isLocalStar(child) {
					return false
				}
			}
		}
	}
	return true
}

func onlyIDs(hs []graph.HasContainer) bool {
	for _, h := range hs {
		if h.Key != graph.T_ID {
			return false
		}
	}
	return true
}

// --------------------------------------------------------------------------

// GraphFilterStrategy restricts the edges a traversal program loads to those
// its adjacency steps can walk. V().out("knows").count() only needs
// outE("knows"). It gives up (loads every edge) when the traversal runs more
// than one program, has a lambda, starts at edges, or walks edges in a way no
// single edge traversal covers.
type GraphFilterStrategy struct{ meta }

func GraphFilter() *GraphFilterStrategy {
	return &GraphFilterStrategy{meta{
		name:  GRAPH_FILTER,
		phase: traversal.OPTIMIZATION,
		post:  []string{MESSAGE_PASSING_REDUCTION},
	}}
}

func (s *GraphFilterStrategy) Apply(t *traversal.Traversal) error {
	if !t.IsRoot() {
		return nil
	}
	programs := programSteps(t)
	if len(programs) != 1 {
		return nil
	}
	tvp, ok := programs[0].(*traversal.TraversalVertexProgramStep)
	if !ok {
		return nil
	}
	opts := tvp.Computer()
	if !opts.Filter.IsEmpty() || opts.Persist == computer.PERSIST_EDGES {
		return nil
	}
	edges := EdgeFilterOf(tvp.Child)
	if edges == nil {
		return nil
	}
	opts.Filter = computer.GraphFilter{Edges: edges}
	tvp.SetComputer(opts)
	return nil
}

// EdgeFilterOf returns the smallest edge traversal covering the adjacency steps
// of c, or nil if every edge is needed.
func EdgeFilterOf(c *traversal.Traversal) computer.EdgeTraversal {
	if gs, ok := c.StartStep().(*traversal.GraphStep); ok && gs.ReturnsEdges {
		return nil
	}
	if traversal.HasKind(c, traversal.LAMBDA_STEP, true) {
		return nil
	}

	// "" stands for every label.
	labels := map[graph.Direction]map[string]bool{
		graph.OUT:  {},
		graph.IN:   {},
		graph.BOTH: {},
	}
	c.Walk(func(s traversal.Step) {
		vs, ok := s.(*traversal.VertexStep)
		if !ok {
			return
		}
		dir := vs.Direction
		// An in-edge is attached at its out vertex, which needs it as an out-edge.
		if dir == graph.IN && vs.ReturnsEdges {
			dir = graph.BOTH
		}
		if len(vs.EdgeLabels) == 0 {
			labels[dir][""] = true
		}
		for _, l := range vs.EdgeLabels {
			labels[dir][l] = true
		}
	})
	out, in, both := labels[graph.OUT], labels[graph.IN], labels[graph.BOTH]
	for l := range out {
		if in[l] {
			both[l] = true
		}
	}
	if both[""] {
		return nil
	}
	for l := range both {
		delete(out, l)
		delete(in, l)
	}

	if len(out) == 0 && len(in) == 0 && len(both) == 0 {
		return traversal.EdgeFilter{T: anon(traversal.NewVertexStep(graph.BOTH, true), traversal.NewLimitStep(0, 0))}
	}
	ins, outs, boths := labelList(in), labelList(out), labelList(both)
	switch {
	case len(out) == 0 && len(in) == 0:
		return computer.IncidentEdges{Dir: graph.BOTH, Labels: boths}
	case len(in) == 0 && len(both) == 0:
		return computer.IncidentEdges{Dir: graph.OUT, Labels: outs}
	case len(out) == 0 && len(both) == 0:
		return computer.IncidentEdges{Dir: graph.IN, Labels: ins}
	case len(both) == 0:
		return union(
			traversal.NewVertexStep(graph.IN, true, ins...),
			traversal.NewVertexStep(graph.OUT, true, outs...))
	case len(out) == 0 && len(ins) > 0:
		return union(
			traversal.NewVertexStep(graph.IN, true, ins...),
			traversal.NewVertexStep(graph.BOTH, true, boths...))
	case len(in) == 0 && len(outs) > 0:
		return union(
			traversal.NewVertexStep(graph.OUT, true, outs...),
			traversal.NewVertexStep(graph.BOTH, true, boths...))
	}
	return nil
}

// labelList returns the sorted labels of set, or nil (every label) if set has "".
func labelList(set map[string]bool) []string {
	if set[""] {
		return nil
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func anon(steps ...traversal.Step) *traversal.Traversal {
	t := traversal.Anon()
	for _, s := range steps {
		t.AddStep(s) // an anonymous traversal is never locked
	}
	return t
}

func union(a, b *traversal.VertexStep) computer.EdgeTraversal {
	return traversal.EdgeFilter{T: anon(traversal.NewUnionStep(anon(a), anon(b)))}
}
