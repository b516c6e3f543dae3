// Copyright 2026, Square, Inc.

package traversal

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/square/vertigo/graph"
)

// Step is one stage of a traversal. The set of steps is closed: every step
// type is defined in this package and reports its Kind, and strategies work in
// terms of kinds and capabilities.
type Step interface {
	// ID is unique among live steps and kept by Clone.
	ID() string
	Kind() Kind

	Labels() []string
	AddLabel(label string)
	RemoveLabel(label string)
	ClearLabels()

	// Traversal returns the traversal the step belongs to, nil if none.
	Traversal() *Traversal

	String() string

	core() *base
	clone() Step
	process(ex *execution, in []*Traverser) ([]*Traverser, error)
}

// Parent is a step with child traversals. Local children run once per input
// traverser (local(), not(), filter()); global children receive the whole input
// stream (union(), vertex program steps).
type Parent interface {
	Step
	LocalChildren() []*Traversal
	GlobalChildren() []*Traversal
}

// HasContainerHolder is a step that filters on has() containers.
type HasContainerHolder interface {
	Step
	HasContainers() []graph.HasContainer
	AddHasContainer(h graph.HasContainer)
}

var stepSeq uint64

type base struct {
	id     string
	labels []string
	t      *Traversal
}

func newBase() base {
	return base{id: strconv.FormatUint(atomic.AddUint64(&stepSeq, 1), 10)}
}

func (b *base) ID() string             { return b.id }
func (b *base) Traversal() *Traversal  { return b.t }
func (b *base) core() *base            { return b }
func (b *base) setTraversal(t *Traversal) { b.t = t }

func (b *base) Labels() []string {
	if len(b.labels) == 0 {
		return nil
	}
	cp := make([]string, len(b.labels))
	copy(cp, b.labels)
	return cp
}

func (b *base) AddLabel(label string) {
	for _, l := range b.labels {
		if l == label {
			return
		}
	}
	b.labels = append(b.labels, label)
}

func (b *base) RemoveLabel(label string) {
	for i, l := range b.labels {
		if l == label {
			b.labels = append(b.labels[:i:i], b.labels[i+1:]...)
			return
		}
	}
}

func (b *base) ClearLabels() {
	b.labels = nil
}

func (b *base) copy() base {
	return base{id: b.id, labels: b.Labels()}
}

func (b *base) labelString() string {
	if len(b.labels) == 0 {
		return ""
	}
	return "@[" + strings.Join(b.labels, ", ") + "]"
}

func cloneChildren(parent Step, ts []*Traversal) []*Traversal {
	out := make([]*Traversal, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
		out[i].parent = parent
	}
	return out
}

func adopt(parent Step, ts ...*Traversal) {
	for _, t := range ts {
		t.parent = parent
	}
}

func childrenString(ts []*Traversal) string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = t.String()
	}
	return strings.Join(s, ", ")
}

func returnsString(edges bool) string {
	if edges {
		return "edge"
	}
	return "vertex"
}

// --------------------------------------------------------------------------

// EmptyStep is the start and end step of an empty traversal.
type EmptyStep struct {
	base
}

// Empty is the shared EmptyStep marker. It never belongs to a traversal.
var Empty Step = &EmptyStep{}

func (s *EmptyStep) Kind() Kind         { return EMPTY_STEP }
func (s *EmptyStep) AddLabel(string)    {}
func (s *EmptyStep) RemoveLabel(string) {}
func (s *EmptyStep) ClearLabels()       {}
func (s *EmptyStep) String() string     { return "EmptyStep" }
func (s *EmptyStep) clone() Step        { return s }

// GraphStep starts a traversal at vertices or edges, optionally restricted by
// id and by has() containers folded into it.
type GraphStep struct {
	base
	ReturnsEdges bool
	IDs          []string
	Containers   []graph.HasContainer
}

func NewGraphStep(returnsEdges bool, ids ...string) *GraphStep {
	return &GraphStep{base: newBase(), ReturnsEdges: returnsEdges, IDs: ids}
}

func (s *GraphStep) Kind() Kind                             { return GRAPH_STEP }
func (s *GraphStep) HasContainers() []graph.HasContainer    { return s.Containers }
func (s *GraphStep) AddHasContainer(h graph.HasContainer)   { s.Containers = append(s.Containers, h) }

func (s *GraphStep) String() string {
	str := fmt.Sprintf("GraphStep(%s,[%s])", returnsString(s.ReturnsEdges), strings.Join(s.IDs, ", "))
	if len(s.Containers) > 0 {
		str = fmt.Sprintf("GraphStep(%s,[%s],%s)", returnsString(s.ReturnsEdges), strings.Join(s.IDs, ", "), graph.HasContainersString(s.Containers))
	}
	return str + s.labelString()
}

func (s *GraphStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.IDs = append([]string(nil), s.IDs...)
	cp.Containers = append([]graph.HasContainer(nil), s.Containers...)
	return &cp
}

// VertexStep is out(), in(), both() and their E variants.
type VertexStep struct {
	base
	Direction    graph.Direction
	EdgeLabels   []string
	ReturnsEdges bool
}

func NewVertexStep(dir graph.Direction, returnsEdges bool, labels ...string) *VertexStep {
	return &VertexStep{base: newBase(), Direction: dir, ReturnsEdges: returnsEdges, EdgeLabels: labels}
}

func (s *VertexStep) Kind() Kind { return VERTEX_STEP }

func (s *VertexStep) String() string {
	return fmt.Sprintf("VertexStep(%s,[%s],%s)%s", s.Direction, strings.Join(s.EdgeLabels, ", "), returnsString(s.ReturnsEdges), s.labelString())
}

func (s *VertexStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.EdgeLabels = append([]string(nil), s.EdgeLabels...)
	return &cp
}

// EdgeVertexStep is inV(), outV() and bothV(), or otherV() when Other is set.
type EdgeVertexStep struct {
	base
	Direction graph.Direction
	Other     bool
}

func NewEdgeVertexStep(dir graph.Direction) *EdgeVertexStep {
	return &EdgeVertexStep{base: newBase(), Direction: dir}
}

func NewEdgeOtherVertexStep() *EdgeVertexStep {
	return &EdgeVertexStep{base: newBase(), Direction: graph.BOTH, Other: true}
}

func (s *EdgeVertexStep) Kind() Kind { return EDGE_VERTEX_STEP }

func (s *EdgeVertexStep) String() string {
	if s.Other {
		return "EdgeOtherVertexStep" + s.labelString()
	}
	return fmt.Sprintf("EdgeVertexStep(%s)%s", s.Direction, s.labelString())
}

func (s *EdgeVertexStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}

// HasStep filters elements on has() containers.
type HasStep struct {
	base
	Containers []graph.HasContainer
}

func NewHasStep(hs ...graph.HasContainer) *HasStep {
	return &HasStep{base: newBase(), Containers: hs}
}

func (s *HasStep) Kind() Kind                           { return HAS_STEP }
func (s *HasStep) HasContainers() []graph.HasContainer  { return s.Containers }
func (s *HasStep) AddHasContainer(h graph.HasContainer) { s.Containers = append(s.Containers, h) }

func (s *HasStep) String() string {
	return "HasStep(" + graph.HasContainersString(s.Containers) + ")" + s.labelString()
}

func (s *HasStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.Containers = append([]graph.HasContainer(nil), s.Containers...)
	return &cp
}

// simple is the shared shape of steps without arguments.
type simple struct {
	base
	kind Kind
}

func (s *simple) Kind() Kind     { return s.kind }
func (s *simple) String() string { return s.kind.String() + s.labelString() }

type IdentityStep struct{ simple }
type IDStep struct{ simple }
type LabelStep struct{ simple }
type CountStep struct{ simple }
type DedupStep struct{ simple }
type FoldStep struct{ simple }
type PathStep struct{ simple }
type ReferenceElementStep struct{ simple }

func NewIdentityStep() *IdentityStep {
	return &IdentityStep{simple{base: newBase(), kind: IDENTITY_STEP}}
}
func NewIDStep() *IDStep       { return &IDStep{simple{base: newBase(), kind: ID_STEP}} }
func NewLabelStep() *LabelStep { return &LabelStep{simple{base: newBase(), kind: LABEL_STEP}} }
func NewCountStep() *CountStep { return &CountStep{simple{base: newBase(), kind: COUNT_STEP}} }
func NewDedupStep() *DedupStep { return &DedupStep{simple{base: newBase(), kind: DEDUP_STEP}} }
func NewFoldStep() *FoldStep   { return &FoldStep{simple{base: newBase(), kind: FOLD_STEP}} }
func NewPathStep() *PathStep   { return &PathStep{simple{base: newBase(), kind: PATH_STEP}} }
func NewReferenceElementStep() *ReferenceElementStep {
	return &ReferenceElementStep{simple{base: newBase(), kind: REFERENCE_ELEMENT_STEP}}
}

func (s *IdentityStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}
func (s *IDStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}
func (s *LabelStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}
func (s *CountStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}
func (s *DedupStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}
func (s *FoldStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}
func (s *PathStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}
func (s *ReferenceElementStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}

// ValuesStep emits the values of the given property keys, or of all keys.
type ValuesStep struct {
	base
	Keys []string
}

func NewValuesStep(keys ...string) *ValuesStep {
	return &ValuesStep{base: newBase(), Keys: keys}
}

func (s *ValuesStep) Kind() Kind { return VALUES_STEP }

func (s *ValuesStep) String() string {
	return "PropertiesStep([" + strings.Join(s.Keys, ", ") + "],value)" + s.labelString()
}

func (s *ValuesStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.Keys = append([]string(nil), s.Keys...)
	return &cp
}

// IsStep filters values with a predicate.
type IsStep struct {
	base
	Pred graph.P
}

func NewIsStep(p graph.P) *IsStep {
	return &IsStep{base: newBase(), Pred: p}
}

func (s *IsStep) Kind() Kind     { return IS_STEP }
func (s *IsStep) String() string { return "IsStep(" + s.Pred.String() + ")" + s.labelString() }

func (s *IsStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}

// LimitStep passes traversers [Low, High). High < 0 means no upper bound.
type LimitStep struct {
	base
	Low  int64
	High int64
}

func NewLimitStep(low, high int64) *LimitStep {
	return &LimitStep{base: newBase(), Low: low, High: high}
}

func (s *LimitStep) Kind() Kind { return LIMIT_STEP }

func (s *LimitStep) String() string {
	return fmt.Sprintf("RangeGlobalStep(%d,%d)%s", s.Low, s.High, s.labelString())
}

func (s *LimitStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}

// LocalStep runs its child once per traverser.
type LocalStep struct {
	base
	Child *Traversal
}

func NewLocalStep(child *Traversal) *LocalStep {
	s := &LocalStep{base: newBase(), Child: child}
	adopt(s, child)
	return s
}

func (s *LocalStep) Kind() Kind                     { return LOCAL_STEP }
func (s *LocalStep) LocalChildren() []*Traversal    { return []*Traversal{s.Child} }
func (s *LocalStep) GlobalChildren() []*Traversal   { return nil }
func (s *LocalStep) String() string                 { return "LocalStep(" + s.Child.String() + ")" + s.labelString() }

func (s *LocalStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.Child = cloneChildren(&cp, []*Traversal{s.Child})[0]
	return &cp
}

// NotStep passes traversers for which the child emits nothing.
type NotStep struct {
	base
	Child *Traversal
}

func NewNotStep(child *Traversal) *NotStep {
	s := &NotStep{base: newBase(), Child: child}
	adopt(s, child)
	return s
}

func (s *NotStep) Kind() Kind                   { return NOT_STEP }
func (s *NotStep) LocalChildren() []*Traversal  { return []*Traversal{s.Child} }
func (s *NotStep) GlobalChildren() []*Traversal { return nil }
func (s *NotStep) String() string               { return "NotStep(" + s.Child.String() + ")" + s.labelString() }

func (s *NotStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.Child = cloneChildren(&cp, []*Traversal{s.Child})[0]
	return &cp
}

// FilterStep passes traversers for which the child emits something.
type FilterStep struct {
	base
	Child *Traversal
}

func NewFilterStep(child *Traversal) *FilterStep {
	s := &FilterStep{base: newBase(), Child: child}
	adopt(s, child)
	return s
}

func (s *FilterStep) Kind() Kind                   { return FILTER_STEP }
func (s *FilterStep) LocalChildren() []*Traversal  { return []*Traversal{s.Child} }
func (s *FilterStep) GlobalChildren() []*Traversal { return nil }
func (s *FilterStep) String() string {
	return "TraversalFilterStep(" + s.Child.String() + ")" + s.labelString()
}

func (s *FilterStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.Child = cloneChildren(&cp, []*Traversal{s.Child})[0]
	return &cp
}

// UnionStep emits the concatenated output of its children.
type UnionStep struct {
	base
	Children []*Traversal
}

func NewUnionStep(children ...*Traversal) *UnionStep {
	s := &UnionStep{base: newBase(), Children: children}
	adopt(s, children...)
	return s
}

func (s *UnionStep) Kind() Kind                   { return UNION_STEP }
func (s *UnionStep) LocalChildren() []*Traversal  { return nil }
func (s *UnionStep) GlobalChildren() []*Traversal { return s.Children }
func (s *UnionStep) String() string {
	return "UnionStep([" + childrenString(s.Children) + "])" + s.labelString()
}

func (s *UnionStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.Children = cloneChildren(&cp, s.Children)
	return &cp
}

// LambdaFunc maps a traverser's value. Returning false drops the traverser.
type LambdaFunc func(v interface{}) (interface{}, bool)

// LambdaStep applies opaque user code; strategies cannot see through it.
type LambdaStep struct {
	base
	Name string
	Fn   LambdaFunc
}

func NewLambdaStep(name string, fn LambdaFunc) *LambdaStep {
	return &LambdaStep{base: newBase(), Name: name, Fn: fn}
}

func (s *LambdaStep) Kind() Kind     { return LAMBDA_STEP }
func (s *LambdaStep) String() string { return "LambdaStep(" + s.Name + ")" + s.labelString() }

func (s *LambdaStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}

// ProfileStep records the traversers and time of the step before it.
type ProfileStep struct {
	base
	Target string // String() of the profiled step
}

func NewProfileStep(target Step) *ProfileStep {
	return &ProfileStep{base: newBase(), Target: target.String()}
}

func (s *ProfileStep) Kind() Kind     { return PROFILE_STEP }
func (s *ProfileStep) String() string { return "ProfileStep" + s.labelString() }

func (s *ProfileStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}

// ProfileSideEffectStep ends a profile() traversal: it emits the metrics.
type ProfileSideEffectStep struct {
	base
}

func NewProfileSideEffectStep() *ProfileSideEffectStep {
	return &ProfileSideEffectStep{base: newBase()}
}

func (s *ProfileSideEffectStep) Kind() Kind     { return PROFILE_SIDE_EFFECT_STEP }
func (s *ProfileSideEffectStep) String() string { return "ProfileSideEffectStep" + s.labelString() }

func (s *ProfileSideEffectStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}
