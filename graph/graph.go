// Copyright 2026, Square, Inc.

// Package graph defines the property graph that traversals and vertex programs
// run against, and provides an in-memory implementation of it. Elements have
// stable string ids, typed multi-valued properties with a cardinality policy,
// and edges can be iterated by direction and label. The only index lookups
// issued are equality lookups (Graph.Lookup); everything else is a scan.
package graph

import (
	"fmt"
	"sort"
)

// Direction of an edge relative to a vertex.
type Direction int

const (
	OUT Direction = iota
	IN
	BOTH
)

var directionNames = map[Direction]string{
	OUT:  "OUT",
	IN:   "IN",
	BOTH: "BOTH",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Opposite returns IN for OUT, OUT for IN, and BOTH for BOTH.
func (d Direction) Opposite() Direction {
	switch d {
	case OUT:
		return IN
	case IN:
		return OUT
	}
	return BOTH
}

// ParseDirection is the inverse of Direction.String.
func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return OUT, fmt.Errorf("invalid direction: %s", s)
}

// Cardinality of a vertex property key.
type Cardinality int

const (
	SINGLE Cardinality = iota // set replaces all values
	LIST                      // set appends
	SET                       // set appends unless the value is present
)

// Tokens usable as HasContainer keys.
const (
	T_ID    = "~id"
	T_LABEL = "~label"
)

// Element is a vertex or an edge.
type Element interface {
	ID() string
	Label() string

	// Value returns the first value of the property, if any.
	Value(key string) (interface{}, bool)

	// Values returns all values of the property in insertion order.
	Values(key string) []interface{}

	// Keys returns the sorted property keys.
	Keys() []string
}

type Vertex interface {
	Element

	// Edges returns incident edges in the given direction, optionally
	// restricted to the given labels. BOTH yields OUT edges then IN edges.
	Edges(dir Direction, labels ...string) []Edge

	// Vertices returns the adjacent vertices reached through Edges(dir, labels...).
	Vertices(dir Direction, labels ...string) []Vertex

	// SetProperty adds value to key according to card. A nil value removes
	// every value of key.
	SetProperty(card Cardinality, key string, value interface{}) error
}

type Edge interface {
	Element
	OutVertex() Vertex
	InVertex() Vertex
}

// Graph is the storage collaborator.
type Graph interface {
	// Vertices returns the vertices with the given ids (unknown ids are
	// skipped), or all vertices in insertion order when no ids are given.
	Vertices(ids ...string) []Vertex

	// Edges is like Vertices, for edges.
	Edges(ids ...string) []Edge

	Vertex(id string) (Vertex, bool)
	Edge(id string) (Edge, bool)

	// Lookup returns the vertices having a property key equal to value. It
	// uses an index when one exists for key, else it scans all vertices.
	Lookup(key string, value interface{}) []Vertex

	AddVertex(id, label string, props map[string]interface{}) (Vertex, error)
	AddEdge(id, label, outId, inId string, props map[string]interface{}) (Edge, error)

	// Clone returns a deep copy of the graph: structure, properties and indexes.
	Clone() Graph
}

// EdgeVertex returns the OUT or IN vertex of e. BOTH is not valid here.
func EdgeVertex(e Edge, dir Direction) Vertex {
	if dir == IN {
		return e.InVertex()
	}
	return e.OutVertex()
}

// OtherVertex returns the vertex at the end of e that is not vertexId. For a
// self-loop it returns the in vertex.
func OtherVertex(e Edge, vertexId string) Vertex {
	if e.OutVertex().ID() == vertexId {
		return e.InVertex()
	}
	return e.OutVertex()
}

// IsVertex reports whether v is a Vertex.
func IsVertex(v interface{}) bool {
	_, ok := v.(Vertex)
	return ok
}

// IsEdge reports whether v is an Edge.
func IsEdge(v interface{}) bool {
	_, ok := v.(Edge)
	return ok
}

// SortedKeys returns the keys of a property map in sorted order.
func SortedKeys(m map[string][]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reference is a detached element: only its id, label and type remain. It is
// what traversal results are reduced to before they leave the process.
type Reference struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"` // "vertex" or "edge"
}

func (r Reference) String() string {
	if r.Type == "edge" {
		return fmt.Sprintf("e[%s]", r.ID)
	}
	return fmt.Sprintf("v[%s]", r.ID)
}

// ReferenceOf detaches e.
func ReferenceOf(e Element) Reference {
	t := "vertex"
	if _, ok := e.(Edge); ok {
		t = "edge"
	}
	return Reference{ID: e.ID(), Label: e.Label(), Type: t}
}

// Attach returns the element of g that r refers to.
func (r Reference) Attach(g Graph) (Element, bool) {
	if r.Type == "edge" {
		e, ok := g.Edge(r.ID)
		return e, ok
	}
	v, ok := g.Vertex(r.ID)
	return v, ok
}
