// Copyright 2026, Square, Inc.

package traversal

import (
	"github.com/square/vertigo/graph"
)

// Source spawns traversals bound to a graph and a strategy set. The With*
// methods return a new Source; a Source is never modified once built.
type Source struct {
	graph      graph.Graph
	strategies *Strategies
	remote     RemoteConnection
	bytecode   *Bytecode
}

// NewSource returns a source over g with the given strategies.
func NewSource(g graph.Graph, ss ...Strategy) *Source {
	return &Source{
		graph:      g,
		strategies: NewStrategies(ss...),
		bytecode:   &Bytecode{},
	}
}

func (src *Source) clone() *Source {
	return &Source{
		graph:      src.graph,
		strategies: src.strategies.Clone(),
		remote:     src.remote,
		bytecode:   src.bytecode.Clone(),
	}
}

func (src *Source) Graph() graph.Graph           { return src.graph }
func (src *Source) Strategies() *Strategies      { return src.strategies }
func (src *Source) Remote() RemoteConnection     { return src.remote }

// WithStrategies returns a source with ss added, replacing strategies of the
// same name.
func (src *Source) WithStrategies(ss ...Strategy) *Source {
	n := src.clone()
	n.strategies.Add(ss...)
	for _, s := range ss {
		if _, ok := s.(*RemoteStrategy); ok {
			continue
		}
		var cfg map[string]interface{}
		if c, ok := s.(Configurable); ok {
			cfg = c.Configuration()
		}
		n.bytecode.AddSource(OP_WITH_STRATEGIES, s.Name(), cfg)
	}
	return n
}

// WithoutStrategies returns a source without the named strategies.
func (src *Source) WithoutStrategies(names ...string) *Source {
	n := src.clone()
	n.strategies.Remove(names...)
	args := make([]interface{}, len(names))
	for i, name := range names {
		args[i] = name
	}
	n.bytecode.AddSource(OP_WITHOUT_STRATEGIES, args...)
	return n
}

// WithRemote returns a source whose traversals are submitted to conn instead of
// running in process.
func (src *Source) WithRemote(conn RemoteConnection) *Source {
	n := src.clone()
	n.remote = conn
	n.strategies.Add(NewRemoteStrategy(conn))
	return n
}

// traversal returns a new, empty root traversal spawned by src.
func (src *Source) traversal() *Traversal {
	t := New(src.graph)
	t.source = src
	t.strategies = src.strategies.Clone()
	t.bytecode.Source = append([]Instruction(nil), src.bytecode.Source...)
	return t
}

// V starts a traversal at the vertices with the given ids, or all vertices.
func (src *Source) V(ids ...string) *Traversal {
	return src.traversal().V(ids...)
}

// E starts a traversal at the edges with the given ids, or all edges.
func (src *Source) E(ids ...string) *Traversal {
	return src.traversal().E(ids...)
}

// Traversal returns an empty root traversal, for building traversals that do
// not start at the graph.
func (src *Source) Traversal() *Traversal {
	return src.traversal()
}
