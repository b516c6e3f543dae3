// Copyright 2026, Square, Inc.

// Package traversal models a traversal as an ordered pipeline of steps, applies
// strategies to rewrite it, and executes it: step by step in process (OLTP), or
// as vertex programs on a graph computer (OLAP) for the parts a strategy has
// wrapped into vertex program steps.
package traversal

import (
	"strings"

	"github.com/orcaman/concurrent-map"

	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
)

// Requirement is something a traversal needs its traversers to track.
type Requirement string

const (
	REQUIRES_PATH Requirement = "path"
)

// Traversal is an ordered sequence of steps. Steps are held in a slice; a
// step's previous and next steps are its neighbors by index. Once locked (by
// ApplyStrategies), the sequence cannot be changed.
type Traversal struct {
	steps       []Step
	parent      Step
	graph       graph.Graph
	source      *Source
	strategies  *Strategies
	sideEffects *SideEffects
	bytecode    *Bytecode
	locked      bool
	err         error // first builder error
}

// New returns an empty traversal bound to g.
func New(g graph.Graph) *Traversal {
	return &Traversal{
		graph:       g,
		strategies:  NewStrategies(),
		sideEffects: NewSideEffects(),
		bytecode:    &Bytecode{},
	}
}

// Anon returns an empty anonymous traversal, for use as a child.
func Anon() *Traversal {
	return New(nil)
}

// Steps returns the steps in order. The slice must not be modified.
func (t *Traversal) Steps() []Step {
	return t.steps
}

func (t *Traversal) Len() int {
	return len(t.steps)
}

// StartStep returns the first step, or Empty.
func (t *Traversal) StartStep() Step {
	if len(t.steps) == 0 {
		return Empty
	}
	return t.steps[0]
}

// EndStep returns the last step, or Empty.
func (t *Traversal) EndStep() Step {
	if len(t.steps) == 0 {
		return Empty
	}
	return t.steps[len(t.steps)-1]
}

// Index returns the position of s, or -1.
func (t *Traversal) Index(s Step) int {
	for i, step := range t.steps {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the step after s, or Empty.
func (t *Traversal) Next(s Step) Step {
	i := t.Index(s)
	if i < 0 || i+1 >= len(t.steps) {
		return Empty
	}
	return t.steps[i+1]
}

// Prev returns the step before s, or Empty.
func (t *Traversal) Prev(s Step) Step {
	i := t.Index(s)
	if i <= 0 {
		return Empty
	}
	return t.steps[i-1]
}

func (t *Traversal) IsLocked() bool     { return t.locked }
func (t *Traversal) IsRoot() bool       { return t.parent == nil }
func (t *Traversal) Parent() Step       { return t.parent }
func (t *Traversal) Bytecode() *Bytecode { return t.bytecode }
func (t *Traversal) Source() *Source    { return t.source }

// Err returns the first error recorded while building the traversal.
func (t *Traversal) Err() error {
	return t.err
}

// Root returns the outermost traversal t is nested in.
func (t *Traversal) Root() *Traversal {
	root := t
	for root.parent != nil && root.parent.Traversal() != nil {
		root = root.parent.Traversal()
	}
	return root
}

// Graph returns the graph of the root traversal.
func (t *Traversal) Graph() graph.Graph {
	return t.Root().graph
}

// SetGraph binds the traversal to g.
func (t *Traversal) SetGraph(g graph.Graph) {
	t.graph = g
}

// Strategies returns the strategies of the root traversal.
func (t *Traversal) Strategies() *Strategies {
	return t.Root().strategies
}

// SetStrategies replaces the strategies of t.
func (t *Traversal) SetStrategies(s *Strategies) {
	t.strategies = s
}

// SideEffects returns the side effects of the root traversal.
func (t *Traversal) SideEffects() *SideEffects {
	return t.Root().sideEffects
}

// Requirements returns what traversers must track for t and its children.
func (t *Traversal) Requirements() map[Requirement]bool {
	req := map[Requirement]bool{}
	t.Walk(func(s Step) {
		if s.Kind() == PATH_STEP {
			req[REQUIRES_PATH] = true
		}
		if ev, ok := s.(*EdgeVertexStep); ok && ev.Other {
			req[REQUIRES_PATH] = true
		}
	})
	return req
}

// Walk calls fn for every step of t and, depth first, of its children.
func (t *Traversal) Walk(fn func(Step)) {
	for _, s := range t.steps {
		fn(s)
		if p, ok := s.(Parent); ok {
			for _, c := range p.LocalChildren() {
				c.Walk(fn)
			}
			for _, c := range p.GlobalChildren() {
				c.Walk(fn)
			}
		}
	}
}

// --------------------------------------------------------------------------
// Mutation. Every method fails with ErrLocked once t is locked.

// AddStep appends s.
func (t *Traversal) AddStep(s Step) error {
	return t.InsertStep(len(t.steps), s)
}

// InsertStep inserts s at index i.
func (t *Traversal) InsertStep(i int, s Step) error {
	if t.locked {
		return serr.ErrLocked
	}
	if i < 0 || i > len(t.steps) {
		return serr.IllegalStateError{Cause: indexError(i, len(t.steps))}
	}
	t.steps = append(t.steps, nil)
	copy(t.steps[i+1:], t.steps[i:])
	t.steps[i] = s
	s.core().setTraversal(t)
	return nil
}

// InsertBefore inserts s before at; at must belong to t.
func (t *Traversal) InsertBefore(s, at Step) error {
	i := t.Index(at)
	if i < 0 {
		return serr.IllegalStateError{Cause: notFoundError(at)}
	}
	return t.InsertStep(i, s)
}

// InsertAfter inserts s after at; at must belong to t.
func (t *Traversal) InsertAfter(s, at Step) error {
	i := t.Index(at)
	if i < 0 {
		return serr.IllegalStateError{Cause: notFoundError(at)}
	}
	return t.InsertStep(i+1, s)
}

// RemoveStep removes s.
func (t *Traversal) RemoveStep(s Step) error {
	if t.locked {
		return serr.ErrLocked
	}
	i := t.Index(s)
	if i < 0 {
		return serr.IllegalStateError{Cause: notFoundError(s)}
	}
	t.steps = append(t.steps[:i], t.steps[i+1:]...)
	s.core().setTraversal(nil)
	return nil
}

// ReplaceStep replaces old with s; labels are not carried over.
func (t *Traversal) ReplaceStep(old, s Step) error {
	if t.locked {
		return serr.ErrLocked
	}
	i := t.Index(old)
	if i < 0 {
		return serr.IllegalStateError{Cause: notFoundError(old)}
	}
	t.steps[i] = s
	s.core().setTraversal(t)
	old.core().setTraversal(nil)
	return nil
}

// MoveSteps removes steps [from, to) of t and appends them to dst, in order.
func (t *Traversal) MoveSteps(from, to int, dst *Traversal) error {
	if t.locked || dst.locked {
		return serr.ErrLocked
	}
	if from < 0 || to > len(t.steps) || from > to {
		return serr.IllegalStateError{Cause: indexError(to, len(t.steps))}
	}
	moved := append([]Step(nil), t.steps[from:to]...)
	t.steps = append(t.steps[:from], t.steps[to:]...)
	for _, s := range moved {
		dst.steps = append(dst.steps, s)
		s.core().setTraversal(dst)
	}
	return nil
}

// Lock forbids further mutation of t and its children.
func (t *Traversal) Lock() {
	t.Walk(func(s Step) {
		if p, ok := s.(Parent); ok {
			for _, c := range append(p.LocalChildren(), p.GlobalChildren()...) {
				c.locked = true
			}
		}
	})
	t.locked = true
}

// Clone returns an unlocked deep copy of t. Steps keep their ids; the clone
// shares the graph, source and strategies but not the side effects.
func (t *Traversal) Clone() *Traversal {
	c := &Traversal{
		parent:      t.parent,
		graph:       t.graph,
		source:      t.source,
		strategies:  t.strategies,
		sideEffects: NewSideEffects(),
		bytecode:    t.bytecode.Clone(),
		err:         t.err,
	}
	c.steps = make([]Step, len(t.steps))
	for i, s := range t.steps {
		cs := s.clone()
		cs.core().setTraversal(c)
		c.steps[i] = cs
	}
	return c
}

func (t *Traversal) String() string {
	s := make([]string, len(t.steps))
	for i, step := range t.steps {
		s[i] = step.String()
	}
	return "[" + strings.Join(s, ", ") + "]"
}

// --------------------------------------------------------------------------

// SideEffects is the concurrent key-value store shared by the steps of a
// traversal (profile metrics).
type SideEffects struct {
	m cmap.ConcurrentMap
}

func NewSideEffects() *SideEffects {
	return &SideEffects{m: cmap.New()}
}

func (s *SideEffects) Get(key string) (interface{}, bool) {
	return s.m.Get(key)
}

func (s *SideEffects) Set(key string, v interface{}) {
	s.m.Set(key, v)
}

// Update atomically replaces the value of key with fn(old). old is nil if unset.
func (s *SideEffects) Update(key string, fn func(old interface{}) interface{}) {
	s.m.Upsert(key, nil, func(exist bool, old, _ interface{}) interface{} {
		if !exist {
			old = nil
		}
		return fn(old)
	})
}

func (s *SideEffects) Keys() []string {
	return s.m.Keys()
}
