// Copyright 2026, Square, Inc.

package traversal

import (
	"fmt"

	"github.com/square/vertigo/graph"
)

// Traverser is a value flowing through a traversal, with the number of
// identical traversers it stands for (its bulk) and, when the traversal
// requires it, the path that led to it.
type Traverser struct {
	Value interface{} `json:"value"`
	Bulk  int64       `json:"bulk"`
	Path  *Path       `json:"path,omitempty"`

	// Step is the index of the next step to run, in a vertex program.
	Step int `json:"-"`
}

// Path is the sequence of objects a traverser visited and the step labels
// at each.
type Path struct {
	Objects []interface{} `json:"objects"`
	Labels  [][]string    `json:"labels"`
}

func NewTraverser(v interface{}, trackPath bool) *Traverser {
	t := &Traverser{Value: v, Bulk: 1}
	if trackPath {
		t.Path = &Path{}
	}
	return t
}

// Split returns a copy of t holding v; the path is extended with v.
func (t *Traverser) Split(v interface{}, labels []string) *Traverser {
	n := &Traverser{Value: v, Bulk: t.Bulk, Step: t.Step}
	if t.Path != nil {
		n.Path = t.Path.Extend(v, labels)
	}
	return n
}

// Copy returns a copy of t with the same value.
func (t *Traverser) Copy() *Traverser {
	n := *t
	if t.Path != nil {
		n.Path = &Path{
			Objects: append([]interface{}(nil), t.Path.Objects...),
			Labels:  append([][]string(nil), t.Path.Labels...),
		}
	}
	return &n
}

// ElementID returns the id of the element t is at, "" if t is not at an element.
func (t *Traverser) ElementID() string {
	switch v := t.Value.(type) {
	case graph.Element:
		return v.ID()
	case graph.Reference:
		return v.ID
	}
	return ""
}

// HostID returns the vertex a traverser is processed at in a vertex program:
// the vertex itself, or the out vertex of an edge. It is "" for non-elements.
func (t *Traverser) HostID() string {
	switch v := t.Value.(type) {
	case graph.Edge:
		return v.OutVertex().ID()
	case graph.Vertex:
		return v.ID()
	case graph.Reference:
		if v.Type == "vertex" {
			return v.ID
		}
	}
	return ""
}

func (t *Traverser) String() string {
	return fmt.Sprintf("%v", t.Value)
}

// Extend returns a new path with v appended.
func (p *Path) Extend(v interface{}, labels []string) *Path {
	n := &Path{
		Objects: make([]interface{}, len(p.Objects), len(p.Objects)+1),
		Labels:  make([][]string, len(p.Labels), len(p.Labels)+1),
	}
	copy(n.Objects, p.Objects)
	copy(n.Labels, p.Labels)
	n.Objects = append(n.Objects, v)
	n.Labels = append(n.Labels, labels)
	return n
}

// Values returns the objects of the path as a list.
func (p *Path) Values() []interface{} {
	return append([]interface{}(nil), p.Objects...)
}

// Label returns a copy of p with labels added to the last object.
func (p *Path) Label(labels []string) *Path {
	if len(p.Labels) == 0 {
		return p
	}
	n := &Path{
		Objects: p.Objects,
		Labels:  append([][]string(nil), p.Labels...),
	}
	last := len(n.Labels) - 1
	n.Labels[last] = append(append([]string(nil), n.Labels[last]...), labels...)
	return n
}
