// Copyright 2026, Square, Inc.

package computer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/square/vertigo/graph"
)

var errNoIncident = fmt.Errorf("local message scope has no incident traversal")

func errUnknownScope(s MessageScope) error {
	return fmt.Errorf("unknown message scope %T", s)
}

// GraphFilter restricts the edges a vertex program sees to those emitted by
// Edges at each vertex. A nil Edges filter keeps every edge.
type GraphFilter struct {
	Edges EdgeTraversal
}

func (f GraphFilter) IsEmpty() bool {
	return f.Edges == nil
}

func (f GraphFilter) String() string {
	if f.Edges == nil {
		return "graphFilter[]"
	}
	return "graphFilter[" + f.Edges.String() + "]"
}

// --------------------------------------------------------------------------

// computeVertex is the vertex a program executes against. Compute keys live in
// the view, not the graph, until the result graph is built; other properties
// are read through to the underlying vertex. Edges outside the filter are
// invisible.
type computeVertex struct {
	graph.Vertex
	keys  map[string]VertexComputeKey // shared, read-only
	legal map[string]struct{}         // nil = every edge
	mux   *sync.RWMutex
	props map[string][]interface{}
}

var _ graph.Vertex = &computeVertex{}

func newComputeVertex(v graph.Vertex, keys map[string]VertexComputeKey, filter GraphFilter) (*computeVertex, error) {
	cv := &computeVertex{
		Vertex: v,
		keys:   keys,
		mux:    &sync.RWMutex{},
		props:  map[string][]interface{}{},
	}
	// Values left by an earlier computation (persisted into this graph) seed the view.
	for k := range keys {
		if vals := v.Values(k); len(vals) > 0 {
			cv.props[k] = vals
		}
	}
	if !filter.IsEmpty() {
		es, err := filter.Edges.Edges(v)
		if err != nil {
			return nil, fmt.Errorf("filtering edges of vertex %s: %s", v.ID(), err)
		}
		cv.legal = make(map[string]struct{}, len(es))
		for _, e := range es {
			cv.legal[e.ID()] = struct{}{}
		}
	}
	return cv, nil
}

func (cv *computeVertex) Value(key string) (interface{}, bool) {
	if _, ok := cv.keys[key]; !ok {
		return cv.Vertex.Value(key)
	}
	cv.mux.RLock()
	defer cv.mux.RUnlock()
	vals := cv.props[key]
	if len(vals) == 0 {
		return nil, false
	}
	return vals[0], true
}

func (cv *computeVertex) Values(key string) []interface{} {
	if _, ok := cv.keys[key]; !ok {
		return cv.Vertex.Values(key)
	}
	cv.mux.RLock()
	defer cv.mux.RUnlock()
	vals := cv.props[key]
	cp := make([]interface{}, len(vals))
	copy(cp, vals)
	return cp
}

func (cv *computeVertex) Keys() []string {
	keys := cv.Vertex.Keys()
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	cv.mux.RLock()
	for k, vals := range cv.props {
		if len(vals) > 0 && !seen[k] {
			keys = append(keys, k)
		}
	}
	cv.mux.RUnlock()
	sort.Strings(keys)
	return keys
}

// SetProperty only accepts vertex compute keys.
func (cv *computeVertex) SetProperty(card graph.Cardinality, key string, value interface{}) error {
	if _, ok := cv.keys[key]; !ok {
		return fmt.Errorf("vertex %s: %s is not a vertex compute key", cv.ID(), key)
	}
	cv.mux.Lock()
	defer cv.mux.Unlock()
	if value == nil {
		delete(cv.props, key)
		return nil
	}
	switch card {
	case graph.SINGLE:
		cv.props[key] = []interface{}{value}
	case graph.SET:
		for _, v := range cv.props[key] {
			if graph.Equal(v, value) {
				return nil
			}
		}
		cv.props[key] = append(cv.props[key], value)
	default:
		cv.props[key] = append(cv.props[key], value)
	}
	return nil
}

func (cv *computeVertex) Edges(dir graph.Direction, labels ...string) []graph.Edge {
	es := cv.Vertex.Edges(dir, labels...)
	if cv.legal == nil {
		return es
	}
	out := es[:0:0]
	for _, e := range es {
		if _, ok := cv.legal[e.ID()]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (cv *computeVertex) Vertices(dir graph.Direction, labels ...string) []graph.Vertex {
	es := cv.Edges(dir, labels...)
	vs := make([]graph.Vertex, 0, len(es))
	for _, e := range es {
		vs = append(vs, graph.OtherVertex(e, cv.ID()))
	}
	return vs
}

func (cv *computeVertex) String() string { return "v[" + cv.ID() + "]" }

// persist writes the non-transient compute keys of cv to target. Keys without
// values are removed from target.
func (cv *computeVertex) persist(target graph.Vertex) error {
	cv.mux.RLock()
	defer cv.mux.RUnlock()
	keys := make([]string, 0, len(cv.keys))
	for k, vck := range cv.keys {
		if !vck.Transient {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := cv.props[k]
		if len(vals) == 0 {
			if err := target.SetProperty(graph.SINGLE, k, nil); err != nil {
				return err
			}
			continue
		}
		for i, val := range vals {
			card := graph.LIST
			if i == 0 {
				card = graph.SINGLE
			}
			if err := target.SetProperty(card, k, val); err != nil {
				return err
			}
		}
	}
	return nil
}
