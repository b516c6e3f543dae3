// Copyright 2026, Square, Inc.

package graph

import (
	"fmt"
	"strconv"
	"sync"
)

// Mem is an in-memory Graph. It is safe for concurrent use: any number of
// readers may iterate it while properties are being set.
type Mem struct {
	mux      *sync.RWMutex
	vertices map[string]*memVertex
	vorder   []string
	edges    map[string]*memEdge
	eorder   []string
	indexes  map[string]map[interface{}][]string // key -> normalized value -> vertex ids
	nextId   int64
}

var _ Graph = &Mem{}

// NewMem returns an empty graph with equality indexes on the given keys.
func NewMem(indexKeys ...string) *Mem {
	g := &Mem{
		mux:      &sync.RWMutex{},
		vertices: map[string]*memVertex{},
		edges:    map[string]*memEdge{},
		indexes:  map[string]map[interface{}][]string{},
	}
	for _, k := range indexKeys {
		g.indexes[k] = map[interface{}][]string{}
	}
	return g
}

// CreateIndex adds an equality index on key, indexing existing vertices.
func (g *Mem) CreateIndex(key string) {
	g.mux.Lock()
	defer g.mux.Unlock()
	if _, ok := g.indexes[key]; ok {
		return
	}
	idx := map[interface{}][]string{}
	for _, id := range g.vorder {
		v := g.vertices[id]
		for _, val := range v.Values(key) {
			if k, ok := indexKey(val); ok {
				idx[k] = append(idx[k], id)
			}
		}
	}
	g.indexes[key] = idx
}

// Indexed reports whether key has an equality index.
func (g *Mem) Indexed(key string) bool {
	g.mux.RLock()
	defer g.mux.RUnlock()
	_, ok := g.indexes[key]
	return ok
}

func (g *Mem) Vertices(ids ...string) []Vertex {
	g.mux.RLock()
	defer g.mux.RUnlock()
	if len(ids) == 0 {
		ids = g.vorder
	}
	vs := make([]Vertex, 0, len(ids))
	for _, id := range ids {
		if v, ok := g.vertices[id]; ok {
			vs = append(vs, v)
		}
	}
	return vs
}

func (g *Mem) Edges(ids ...string) []Edge {
	g.mux.RLock()
	defer g.mux.RUnlock()
	if len(ids) == 0 {
		ids = g.eorder
	}
	es := make([]Edge, 0, len(ids))
	for _, id := range ids {
		if e, ok := g.edges[id]; ok {
			es = append(es, e)
		}
	}
	return es
}

func (g *Mem) Vertex(id string) (Vertex, bool) {
	g.mux.RLock()
	defer g.mux.RUnlock()
	v, ok := g.vertices[id]
	if !ok {
		return nil, false
	}
	return v, true
}

func (g *Mem) Edge(id string) (Edge, bool) {
	g.mux.RLock()
	defer g.mux.RUnlock()
	e, ok := g.edges[id]
	if !ok {
		return nil, false
	}
	return e, true
}

func (g *Mem) Lookup(key string, value interface{}) []Vertex {
	g.mux.RLock()
	idx, indexed := g.indexes[key]
	if indexed {
		defer g.mux.RUnlock()
		k, ok := indexKey(value)
		if !ok {
			return nil
		}
		ids := idx[k]
		vs := make([]Vertex, 0, len(ids))
		for _, id := range ids {
			vs = append(vs, g.vertices[id])
		}
		return vs
	}
	g.mux.RUnlock()

	// No index: full scan.
	vs := []Vertex{}
	for _, v := range g.Vertices() {
		for _, val := range v.Values(key) {
			if Equal(val, value) {
				vs = append(vs, v)
				break
			}
		}
	}
	return vs
}

func (g *Mem) AddVertex(id, label string, props map[string]interface{}) (Vertex, error) {
	g.mux.Lock()
	if id == "" {
		id = g.genId()
	}
	if _, ok := g.vertices[id]; ok {
		g.mux.Unlock()
		return nil, fmt.Errorf("vertex %s already exists", id)
	}
	if label == "" {
		label = "vertex"
	}
	v := &memVertex{
		g:     g,
		id:    id,
		label: label,
		mux:   &sync.RWMutex{},
		props: map[string][]interface{}{},
	}
	g.vertices[id] = v
	g.vorder = append(g.vorder, id)
	g.mux.Unlock()

	for _, k := range sortedPropKeys(props) {
		if err := v.SetProperty(SINGLE, k, props[k]); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (g *Mem) AddEdge(id, label, outId, inId string, props map[string]interface{}) (Edge, error) {
	g.mux.Lock()
	defer g.mux.Unlock()
	if id == "" {
		id = g.genId()
	}
	if _, ok := g.edges[id]; ok {
		return nil, fmt.Errorf("edge %s already exists", id)
	}
	out, ok := g.vertices[outId]
	if !ok {
		return nil, fmt.Errorf("edge %s: out vertex %s not found", id, outId)
	}
	in, ok := g.vertices[inId]
	if !ok {
		return nil, fmt.Errorf("edge %s: in vertex %s not found", id, inId)
	}
	if label == "" {
		label = "edge"
	}
	e := &memEdge{
		id:    id,
		label: label,
		out:   out,
		in:    in,
		props: map[string][]interface{}{},
	}
	for k, val := range props {
		e.props[k] = []interface{}{val}
	}
	g.edges[id] = e
	g.eorder = append(g.eorder, id)
	out.out = append(out.out, e)
	in.in = append(in.in, e)
	return e, nil
}

func (g *Mem) Clone() Graph {
	g.mux.RLock()
	keys := make([]string, 0, len(g.indexes))
	for k := range g.indexes {
		keys = append(keys, k)
	}
	g.mux.RUnlock()

	c := NewMem(keys...)
	for _, v := range g.Vertices() {
		nv, _ := c.AddVertex(v.ID(), v.Label(), nil)
		for _, k := range v.Keys() {
			for _, val := range v.Values(k) {
				nv.SetProperty(LIST, k, val)
			}
		}
	}
	for _, e := range g.Edges() {
		props := map[string]interface{}{}
		for _, k := range e.Keys() {
			props[k], _ = e.Value(k)
		}
		c.AddEdge(e.ID(), e.Label(), e.OutVertex().ID(), e.InVertex().ID(), props)
	}
	c.nextId = g.nextId
	return c
}

// genId returns the next free numeric id. Caller must hold the write lock.
func (g *Mem) genId() string {
	for {
		g.nextId++
		id := strconv.FormatInt(g.nextId, 10)
		_, v := g.vertices[id]
		_, e := g.edges[id]
		if !v && !e {
			return id
		}
	}
}

// --------------------------------------------------------------------------

type memVertex struct {
	g     *Mem
	id    string
	label string
	mux   *sync.RWMutex
	props map[string][]interface{}
	out   []*memEdge // guarded by g.mux
	in    []*memEdge // guarded by g.mux
}

func (v *memVertex) ID() string    { return v.id }
func (v *memVertex) Label() string { return v.label }

func (v *memVertex) Value(key string) (interface{}, bool) {
	v.mux.RLock()
	defer v.mux.RUnlock()
	vals := v.props[key]
	if len(vals) == 0 {
		return nil, false
	}
	return vals[0], true
}

func (v *memVertex) Values(key string) []interface{} {
	v.mux.RLock()
	defer v.mux.RUnlock()
	vals := v.props[key]
	if len(vals) == 0 {
		return nil
	}
	cp := make([]interface{}, len(vals))
	copy(cp, vals)
	return cp
}

func (v *memVertex) Keys() []string {
	v.mux.RLock()
	defer v.mux.RUnlock()
	return SortedKeys(v.props)
}

func (v *memVertex) SetProperty(card Cardinality, key string, value interface{}) error {
	if key == "" || key == T_ID || key == T_LABEL {
		return fmt.Errorf("invalid property key %q", key)
	}

	v.g.mux.Lock()
	defer v.g.mux.Unlock()
	v.mux.Lock()
	defer v.mux.Unlock()

	idx, indexed := v.g.indexes[key]
	old := v.props[key]
	if value == nil {
		if indexed {
			for _, val := range old {
				removeFromIndex(idx, val, v.id)
			}
		}
		delete(v.props, key)
		return nil
	}
	switch card {
	case SINGLE:
		if indexed {
			for _, val := range old {
				removeFromIndex(idx, val, v.id)
			}
		}
		v.props[key] = []interface{}{value}
	case SET:
		for _, val := range old {
			if Equal(val, value) {
				return nil
			}
		}
		v.props[key] = append(old, value)
	default:
		v.props[key] = append(old, value)
	}
	if indexed {
		if k, ok := indexKey(value); ok {
			idx[k] = append(idx[k], v.id)
		}
	}
	return nil
}

func (v *memVertex) Edges(dir Direction, labels ...string) []Edge {
	v.g.mux.RLock()
	defer v.g.mux.RUnlock()
	es := []Edge{}
	if dir == OUT || dir == BOTH {
		for _, e := range v.out {
			if hasLabel(e.label, labels) {
				es = append(es, e)
			}
		}
	}
	if dir == IN || dir == BOTH {
		for _, e := range v.in {
			if hasLabel(e.label, labels) {
				es = append(es, e)
			}
		}
	}
	return es
}

func (v *memVertex) Vertices(dir Direction, labels ...string) []Vertex {
	es := v.Edges(dir, labels...)
	vs := make([]Vertex, 0, len(es))
	for _, e := range es {
		vs = append(vs, OtherVertex(e, v.id))
	}
	return vs
}

func (v *memVertex) String() string { return "v[" + v.id + "]" }

// --------------------------------------------------------------------------

type memEdge struct {
	id    string
	label string
	out   *memVertex
	in    *memVertex
	props map[string][]interface{} // immutable after AddEdge
}

func (e *memEdge) ID() string        { return e.id }
func (e *memEdge) Label() string     { return e.label }
func (e *memEdge) OutVertex() Vertex { return e.out }
func (e *memEdge) InVertex() Vertex  { return e.in }
func (e *memEdge) Keys() []string    { return SortedKeys(e.props) }

func (e *memEdge) Value(key string) (interface{}, bool) {
	vals := e.props[key]
	if len(vals) == 0 {
		return nil, false
	}
	return vals[0], true
}

func (e *memEdge) Values(key string) []interface{} {
	return e.props[key]
}

func (e *memEdge) String() string { return "e[" + e.id + "][" + e.out.id + "-" + e.label + "->" + e.in.id + "]" }

// --------------------------------------------------------------------------

func hasLabel(label string, labels []string) bool {
	if len(labels) == 0 {
		return true
	}
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func removeFromIndex(idx map[interface{}][]string, val interface{}, id string) {
	k, ok := indexKey(val)
	if !ok {
		return
	}
	ids := idx[k]
	for i, other := range ids {
		if other == id {
			idx[k] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(idx[k]) == 0 {
		delete(idx, k)
	}
}

func sortedPropKeys(props map[string]interface{}) []string {
	m := make(map[string][]interface{}, len(props))
	for k := range props {
		m[k] = nil
	}
	return SortedKeys(m)
}
