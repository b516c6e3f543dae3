// Copyright 2026, Square, Inc.

package computer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/square/vertigo/graph"
)

// MessageScope says where a message goes. Scopes are compared by Key.
type MessageScope interface {
	Key() string
	String() string
}

// Global sends to an explicit set of vertices.
type Global struct {
	Vertices []string
}

func (s Global) Key() string    { return "global" }
func (s Global) String() string { return fmt.Sprintf("global%v", s.Vertices) }

// Local sends to the vertices adjacent to the sender through Incident. The
// receiver reverses Incident to find its senders and, if EdgeFunc is set,
// transforms each message with the edge it traveled along.
type Local struct {
	Incident EdgeTraversal
	EdgeFunc func(msg interface{}, e graph.Edge) interface{}
}

func (s Local) Key() string    { return "local:" + s.Incident.String() }
func (s Local) String() string { return s.Key() }

// EdgeTraversal emits the edges incident to a vertex. It is typically a single
// incident-edge step (IncidentEdges), but any edge-emitting sub-traversal that
// can be reversed works.
type EdgeTraversal interface {
	Edges(v graph.Vertex) ([]graph.Edge, error)

	// Reverse returns the same traversal walked from the other end.
	Reverse() EdgeTraversal

	// Direction is the direction of the final edge step.
	Direction() graph.Direction

	String() string
}

// IncidentEdges is outE(labels...), inE(labels...) or bothE(labels...).
type IncidentEdges struct {
	Dir    graph.Direction
	Labels []string
}

var _ EdgeTraversal = IncidentEdges{}

// BothE is the default incident traversal of local scopes.
func BothE(labels ...string) IncidentEdges {
	return IncidentEdges{Dir: graph.BOTH, Labels: labels}
}

func (ie IncidentEdges) Edges(v graph.Vertex) ([]graph.Edge, error) {
	return v.Edges(ie.Dir, ie.Labels...), nil
}

func (ie IncidentEdges) Reverse() EdgeTraversal {
	return IncidentEdges{Dir: ie.Dir.Opposite(), Labels: ie.Labels}
}

func (ie IncidentEdges) Direction() graph.Direction {
	return ie.Dir
}

func (ie IncidentEdges) String() string {
	return strings.ToLower(ie.Dir.String()) + "E(" + strings.Join(ie.Labels, ",") + ")"
}

var edgeTraversalRe = regexp.MustCompile(`^(out|in|both)E\(([^()]*)\)$`)

// ParseEdgeTraversal is the inverse of IncidentEdges.String.
func ParseEdgeTraversal(s string) (IncidentEdges, error) {
	m := edgeTraversalRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return IncidentEdges{}, fmt.Errorf("invalid edge traversal: %q", s)
	}
	dir, err := graph.ParseDirection(strings.ToUpper(m[1]))
	if err != nil {
		return IncidentEdges{}, err
	}
	ie := IncidentEdges{Dir: dir}
	for _, l := range strings.Split(m[2], ",") {
		if l = strings.TrimSpace(l); l != "" {
			ie.Labels = append(ie.Labels, l)
		}
	}
	return ie, nil
}

// MessageCombiner folds two messages for the same recipient into one. It must
// be associative and commutative.
type MessageCombiner interface {
	Combine(a, b interface{}) interface{}
}

// CombinerFunc adapts a function to MessageCombiner.
type CombinerFunc func(a, b interface{}) interface{}

func (f CombinerFunc) Combine(a, b interface{}) interface{} { return f(a, b) }
