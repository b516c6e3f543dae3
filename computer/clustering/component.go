// Copyright 2026, Square, Inc.

// Package clustering provides vertex programs that partition a graph.
package clustering

import (
	"sort"

	"github.com/square/vertigo/computer"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
)

const (
	// Name the program is registered under.
	NAME = "connectedComponent"

	EDGE_TRAVERSAL = "gremlin.connectedComponentVertexProgram.edgeTraversal"
	PROPERTY       = "gremlin.connectedComponentVertexProgram.property"

	// Default vertex property holding the component id.
	COMPONENT = "gremlin.connectedComponentVertexProgram.component"

	VOTE_TO_HALT = "gremlin.connectedComponentVertexProgram.voteToHalt"
)

// ConnectedComponent labels every vertex with the smallest vertex id (compared
// as strings) reachable from it through the edge traversal, bothE() by default.
// Each vertex starts in the component of the smallest id among itself and the
// vertices the traversal reaches it from, then adopts smaller ids received
// from its neighbors until no vertex changes in a superstep.
type ConnectedComponent struct {
	edges    computer.EdgeTraversal
	property string
	halted   []interface{}
	index    *haltedIndex // shared by clones
}

// haltedIndex holds the halted traversers by vertex id until the initial
// superstep has put them on their vertices.
type haltedIndex struct {
	byVertex map[string][]interface{}
}

var _ computer.VertexProgram = &ConnectedComponent{}

// New returns a program with the default configuration.
func New() *ConnectedComponent {
	return &ConnectedComponent{
		edges:    computer.BothE(),
		property: COMPONENT,
	}
}

// Factory is the computer.ProgramFactory for NAME.
func Factory() computer.VertexProgram {
	return New()
}

// Programs returns the programs of this package by name.
func Programs() computer.Programs {
	return computer.Programs{NAME: Factory}
}

func (p *ConnectedComponent) Name() string { return NAME }

// Property is the vertex property the component id is written to.
func (p *ConnectedComponent) Property() string { return p.property }

func (p *ConnectedComponent) LoadState(g graph.Graph, cfg computer.Configuration) error {
	p.edges = computer.BothE()
	if v, ok := cfg[EDGE_TRAVERSAL]; ok && v != nil {
		switch et := v.(type) {
		case computer.EdgeTraversal:
			p.edges = et
		case string:
			ie, err := computer.ParseEdgeTraversal(et)
			if err != nil {
				return serr.NewConfigurationError(EDGE_TRAVERSAL, "%s", err)
			}
			p.edges = ie
		default:
			return serr.NewConfigurationError(EDGE_TRAVERSAL, "not an edge traversal: %T", v)
		}
	}

	p.property = COMPONENT
	if v, ok := cfg[PROPERTY]; ok {
		s, isString := v.(string)
		if !isString || s == "" {
			return serr.NewConfigurationError(PROPERTY, "not a property key: %v", v)
		}
		p.property = s
	}

	p.halted, _ = cfg[computer.HALTED_TRAVERSERS].([]interface{})
	p.index = &haltedIndex{byVertex: computer.HaltedIndex(cfg)}
	return nil
}

func (p *ConnectedComponent) StoreState(cfg computer.Configuration) {
	cfg[computer.VERTEX_PROGRAM] = NAME
	if ie, ok := p.edges.(computer.IncidentEdges); ok {
		cfg[EDGE_TRAVERSAL] = ie.String()
	} else {
		cfg[EDGE_TRAVERSAL] = p.edges
	}
	cfg[PROPERTY] = p.property
	if len(p.halted) > 0 {
		cfg[computer.HALTED_TRAVERSERS] = p.halted
	}
}

func (p *ConnectedComponent) Setup(mem computer.Memory) {
	mem.Set(VOTE_TO_HALT, true)
}

func (p *ConnectedComponent) scope() computer.Local {
	return computer.Local{Incident: p.edges}
}

func (p *ConnectedComponent) Execute(v graph.Vertex, msgr computer.Messenger, mem computer.Memory) error {
	if mem.IsInitialIteration() {
		if p.index != nil {
			for _, t := range p.index.byVertex[v.ID()] {
				if err := v.SetProperty(graph.LIST, computer.HALTED_TRAVERSERS, t); err != nil {
					return err
				}
			}
		}

		component, err := p.seed(v)
		if err != nil {
			return err
		}
		if err := v.SetProperty(graph.SINGLE, p.property, component); err != nil {
			return err
		}
		// Isolated vertices stay in their own component.
		if len(v.Edges(graph.BOTH)) == 0 {
			return nil
		}
		if err := mem.Add(VOTE_TO_HALT, false); err != nil {
			return err
		}
		return msgr.SendMessage(p.scope(), component)
	}

	cur, _ := v.Value(p.property)
	component, _ := cur.(string)
	msgs, err := msgr.ReceiveMessages()
	if err != nil {
		return err
	}
	changed := false
	for _, m := range msgs {
		if c, ok := m.(string); ok && c < component {
			component = c
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := v.SetProperty(graph.SINGLE, p.property, component); err != nil {
		return err
	}
	if err := mem.Add(VOTE_TO_HALT, false); err != nil {
		return err
	}
	return msgr.SendMessage(p.scope(), component)
}

// seed returns the smallest id among v and the vertices whose messages reach v
// through the edge traversal.
func (p *ConnectedComponent) seed(v graph.Vertex) (string, error) {
	lowest := v.ID()
	edges, err := p.edges.Reverse().Edges(v)
	if err != nil {
		return "", err
	}
	dir := p.edges.Direction()
	for _, e := range edges {
		var sender graph.Vertex
		if dir == graph.BOTH {
			sender = graph.OtherVertex(e, v.ID())
		} else {
			sender = graph.EdgeVertex(e, dir)
		}
		if id := sender.ID(); id < lowest {
			lowest = id
		}
	}
	return lowest, nil
}

func (p *ConnectedComponent) Terminate(mem computer.Memory) bool {
	// Workers share the index: clearing it here releases it for all of them.
	if mem.IsInitialIteration() && p.index != nil {
		p.index.byVertex = nil
	}
	if computer.GetBool(mem, VOTE_TO_HALT) {
		return true
	}
	mem.Set(VOTE_TO_HALT, true)
	return false
}

func (p *ConnectedComponent) MessageScopes(mem computer.Memory) []computer.MessageScope {
	return []computer.MessageScope{p.scope()}
}

func (p *ConnectedComponent) VertexComputeKeys() []computer.VertexComputeKey {
	return []computer.VertexComputeKey{
		{Key: p.property},
		{Key: computer.HALTED_TRAVERSERS},
	}
}

func (p *ConnectedComponent) MemoryComputeKeys() []computer.MemoryComputeKey {
	return []computer.MemoryComputeKey{
		{Key: VOTE_TO_HALT, Operator: computer.AND, Transient: true},
	}
}

// Local messages queue under their sender, one per superstep: nothing to combine.
func (p *ConnectedComponent) Combiner() computer.MessageCombiner { return nil }

func (p *ConnectedComponent) PreferredResultGraph() computer.ResultGraph {
	return computer.RESULT_NEW
}

func (p *ConnectedComponent) PreferredPersist() computer.Persist {
	return computer.PERSIST_VERTEX_PROPERTIES
}

func (p *ConnectedComponent) Clone() computer.VertexProgram {
	cp := *p
	return &cp
}

// Groups returns the vertex ids of each component of g, keyed by component id.
// Vertices without the property are skipped. Ids are sorted.
func Groups(g graph.Graph, property string) map[string][]string {
	groups := map[string][]string{}
	for _, v := range g.Vertices() {
		c, ok := v.Value(property)
		if !ok {
			continue
		}
		s, _ := c.(string)
		groups[s] = append(groups[s], v.ID())
	}
	for _, ids := range groups {
		sort.Strings(ids)
	}
	return groups
}
