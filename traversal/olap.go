// Copyright 2026, Square, Inc.

package traversal

import (
	"fmt"
	"sort"

	"github.com/square/vertigo/computer"
	"github.com/square/vertigo/computer/clustering"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
)

// VertexProgramStep is a step that runs a vertex program on a graph computer.
// It takes the graph of the traversal, or the *computer.Result emitted by the
// vertex program step before it, and emits one traverser holding its own
// *computer.Result.
type VertexProgramStep interface {
	Step
	Computer() computer.Options
	SetComputer(opts computer.Options)

	// Program returns the loaded program to run over g. cfg holds the
	// computer configuration and the halted traversers of the previous program.
	Program(g graph.Graph, cfg computer.Configuration) (computer.VertexProgram, error)
}

type vpBase struct {
	base
	opts computer.Options
}

func (b *vpBase) Computer() computer.Options        { return b.opts }
func (b *vpBase) SetComputer(opts computer.Options) { b.opts = opts }

// isLastProgram is true when no vertex program step follows s.
func isLastProgram(s Step) bool {
	t := s.Traversal()
	for i := t.Index(s) + 1; i < t.Len(); i++ {
		if Is(t.steps[i], VERTEX_COMPUTING) {
			return false
		}
	}
	return true
}

// runProgram is the process of every vertex program step.
func runProgram(ex *execution, s VertexProgramStep, in []*Traverser) ([]*Traverser, error) {
	g := s.Traversal().Graph()
	var prev *computer.Result
	if len(in) > 0 {
		if r, ok := in[0].Value.(*computer.Result); ok {
			prev, g = r, r.Graph
		}
	}
	if g == nil {
		return nil, serr.NewExecutionError(nil, "%s: traversal is not bound to a graph", s)
	}

	opts := s.Computer()
	cfg := opts.Configuration.Copy()
	if prev != nil {
		if h, ok := prev.Memory.Get(computer.HALTED_TRAVERSERS); ok {
			cfg[computer.HALTED_TRAVERSERS] = h
		}
	}
	// Programs before the last one hand the whole graph on.
	if !isLastProgram(s) {
		opts.Persist = computer.PERSIST_EDGES
		opts.ResultGraph = computer.RESULT_NEW
	}

	program, err := s.Program(g, cfg)
	if err != nil {
		return nil, err
	}
	gc, err := computer.NewGraphComputer(opts)
	if err != nil {
		return nil, err
	}
	res, err := gc.Submit(ex.ctx, g, program)
	if err != nil {
		return nil, err
	}
	if msg, ok := res.Memory.Get(TVP_ERROR); ok {
		return nil, serr.NewExecutionError(nil, "%s: %v", s, msg)
	}
	return []*Traverser{ex.traverser(nil).Split(res, s.Labels())}, nil
}

// --------------------------------------------------------------------------

// TraversalVertexProgramStep runs its child traversal as a TraversalVertexProgram.
type TraversalVertexProgramStep struct {
	vpBase
	Child *Traversal
}

var _ VertexProgramStep = &TraversalVertexProgramStep{}

func NewTraversalVertexProgramStep(child *Traversal) *TraversalVertexProgramStep {
	s := &TraversalVertexProgramStep{vpBase: vpBase{base: newBase()}, Child: child}
	adopt(s, child)
	return s
}

func (s *TraversalVertexProgramStep) Kind() Kind                   { return TRAVERSAL_VERTEX_PROGRAM_STEP }
func (s *TraversalVertexProgramStep) LocalChildren() []*Traversal  { return nil }
func (s *TraversalVertexProgramStep) GlobalChildren() []*Traversal { return []*Traversal{s.Child} }

func (s *TraversalVertexProgramStep) String() string {
	return "TraversalVertexProgramStep(" + s.Child.String() + ")" + s.labelString()
}

func (s *TraversalVertexProgramStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.opts.Configuration = s.opts.Configuration.Copy()
	cp.Child = cloneChildren(&cp, []*Traversal{s.Child})[0]
	return &cp
}

func (s *TraversalVertexProgramStep) Program(g graph.Graph, cfg computer.Configuration) (computer.VertexProgram, error) {
	cfg[computer.VERTEX_PROGRAM] = TVP_NAME
	cfg[TVP_TRAVERSAL] = s.Child
	next := s.t.Next(s)
	for next.Kind() == PROFILE_STEP {
		next = s.t.Next(next)
	}
	cfg[TVP_RETURN_HALTED] = next.Kind() == COMPUTER_RESULT_STEP
	return Programs().Load(g, cfg)
}

func (s *TraversalVertexProgramStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	return runProgram(ex, s, in)
}

// --------------------------------------------------------------------------

// Options of the connected component step, set with With.
const (
	CC_EDGES    = "edges"
	CC_PROPERTY = "propertyName"
)

// ConnectedComponentStep runs the connected component vertex program.
type ConnectedComponentStep struct {
	vpBase
	Edges    computer.EdgeTraversal // nil: bothE()
	Property string                 // "": the program default
}

var _ VertexProgramStep = &ConnectedComponentStep{}

func NewConnectedComponentStep() *ConnectedComponentStep {
	return &ConnectedComponentStep{vpBase: vpBase{base: newBase()}}
}

func (s *ConnectedComponentStep) Kind() Kind { return CONNECTED_COMPONENT_STEP }

func (s *ConnectedComponentStep) String() string {
	edges := "bothE()"
	if s.Edges != nil {
		edges = s.Edges.String()
	}
	prop := s.Property
	if prop == "" {
		prop = clustering.COMPONENT
	}
	return fmt.Sprintf("ConnectedComponentVertexProgramStep([%s, %s])%s", edges, prop, s.labelString())
}

func (s *ConnectedComponentStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.opts.Configuration = s.opts.Configuration.Copy()
	return &cp
}

func (s *ConnectedComponentStep) configure(key string, value interface{}) error {
	switch key {
	case CC_EDGES:
		switch v := value.(type) {
		case *Traversal:
			s.Edges = EdgeTraversalOf(v)
		case computer.EdgeTraversal:
			s.Edges = v
		case string:
			ie, err := computer.ParseEdgeTraversal(v)
			if err != nil {
				return serr.NewConfigurationError(key, "%s", err)
			}
			s.Edges = ie
		default:
			return serr.NewConfigurationError(key, "not an edge traversal: %T", value)
		}
	case CC_PROPERTY:
		prop, ok := value.(string)
		if !ok || prop == "" {
			return serr.NewConfigurationError(key, "not a property key: %v", value)
		}
		s.Property = prop
	default:
		return serr.NewConfigurationError(key, "unknown connectedComponent option")
	}
	return nil
}

func (s *ConnectedComponentStep) Program(g graph.Graph, cfg computer.Configuration) (computer.VertexProgram, error) {
	cfg[computer.VERTEX_PROGRAM] = clustering.NAME
	if s.Edges != nil {
		cfg[clustering.EDGE_TRAVERSAL] = s.Edges
	}
	if s.Property != "" {
		cfg[clustering.PROPERTY] = s.Property
	}
	return clustering.Programs().Load(g, cfg)
}

func (s *ConnectedComponentStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	return runProgram(ex, s, in)
}

// --------------------------------------------------------------------------

// ComputerResultStep turns the *computer.Result of the last vertex program step
// back into traversers: the traversers the program halted, with their elements
// attached to the result graph so they show the computed properties.
type ComputerResultStep struct {
	base
	Attach bool
}

func NewComputerResultStep() *ComputerResultStep {
	return &ComputerResultStep{base: newBase(), Attach: true}
}

func (s *ComputerResultStep) Kind() Kind     { return COMPUTER_RESULT_STEP }
func (s *ComputerResultStep) String() string { return "ComputerResultStep" + s.labelString() }

func (s *ComputerResultStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	return &cp
}

func (s *ComputerResultStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	var out []*Traverser
	for _, tr := range in {
		res, ok := tr.Value.(*computer.Result)
		if !ok {
			return nil, typeError(s, tr.Value, "computer result")
		}
		for _, h := range halted(res) {
			n := h.Copy()
			n.Step = 0
			if s.Attach {
				n.Value = attach(res.Graph, n.Value)
			}
			if len(s.Labels()) > 0 && n.Path != nil {
				n.Path = n.Path.Label(s.Labels())
			}
			out = append(out, n)
		}
	}
	// Halted traversers arrive in no particular order.
	sort.SliceStable(out, func(i, j int) bool {
		return dedupKey(out[i].Value) < dedupKey(out[j].Value)
	})
	return out, nil
}

// halted returns the traversers halted by the computation: the ones returned
// in memory if the program returned them there, else the ones parked on the
// vertices of the result graph.
func halted(res *computer.Result) []*Traverser {
	var out []*Traverser
	if v, ok := res.Memory.Get(computer.HALTED_TRAVERSERS); ok {
		vals, _ := v.([]interface{})
		for _, h := range vals {
			if tr, ok := h.(*Traverser); ok {
				out = append(out, tr)
			}
		}
		return out
	}
	for _, v := range res.Graph.Vertices() {
		for _, h := range v.Values(computer.HALTED_TRAVERSERS) {
			if tr, ok := h.(*Traverser); ok {
				out = append(out, tr)
			}
		}
	}
	return out
}

// attach replaces an element with the element of g with the same id.
func attach(g graph.Graph, v interface{}) interface{} {
	var ref graph.Reference
	switch x := v.(type) {
	case graph.Element:
		ref = graph.ReferenceOf(x)
	case graph.Reference:
		ref = x
	default:
		return v
	}
	if e, ok := ref.Attach(g); ok {
		return e
	}
	return v
}
