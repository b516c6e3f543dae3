// Copyright 2026, Square, Inc.

package traversal

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/square/vertigo/computer"
	"github.com/square/vertigo/computer/clustering"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
)

const (
	TVP_NAME = "traversalVertexProgram"

	// Configuration keys.
	TVP_TRAVERSAL     = "gremlin.traversalVertexProgram.traversal"
	TVP_RETURN_HALTED = "gremlin.traversalVertexProgram.returnHaltedTraversers"

	// Memory keys.
	TVP_VOTE_TO_HALT = "gremlin.traversalVertexProgram.voteToHalt"
	TVP_ACTIVE       = "gremlin.traversalVertexProgram.activeTraversers"
	TVP_ERROR        = "gremlin.traversalVertexProgram.error"
	TVP_BARRIER      = "gremlin.traversalVertexProgram.barrier:"
)

// Programs returns the vertex programs a traversal can run, by name.
func Programs() computer.Programs {
	programs := clustering.Programs()
	programs[TVP_NAME] = func() computer.VertexProgram { return &TraversalVertexProgram{} }
	return programs
}

// TraversalVertexProgram runs a traversal on a graph computer. Traversers are
// the messages: a traverser is processed at the vertex it is at (or the out
// vertex of the edge it is at) through as many steps as it can go without
// leaving that vertex, then sent to the vertex it moved to. Traversers that
// reach a barrier step are added to a memory key for that step; once no
// traverser moves anymore, the master runs the barriers in step order and
// hands their output back to the vertices. Traversers that reach the end halt:
// in memory, when the traversal returns them (the next step is a
// ComputerResultStep) or they are not at an element, else on their vertex.
type TraversalVertexProgram struct {
	traversal    *Traversal
	returnHalted bool
	halted       []interface{}
	index        map[string][]interface{}
	ex           *execution

	active map[string][]*Traverser // this superstep's released traversers, per worker
	fired  map[int]bool            // barriers processed by the master
	seeded bool                    // halted non-element traversers of the last program resumed
}

var _ computer.VertexProgram = &TraversalVertexProgram{}
var _ computer.WorkerAware = &TraversalVertexProgram{}

func (p *TraversalVertexProgram) Name() string { return TVP_NAME }

func (p *TraversalVertexProgram) LoadState(g graph.Graph, cfg computer.Configuration) error {
	t, ok := cfg[TVP_TRAVERSAL].(*Traversal)
	if !ok {
		return serr.NewConfigurationError(TVP_TRAVERSAL, "not a traversal: %T", cfg[TVP_TRAVERSAL])
	}
	if err := t.ApplyStrategies(); err != nil {
		return err
	}
	p.traversal = t
	p.returnHalted, _ = cfg[TVP_RETURN_HALTED].(bool)
	p.halted, _ = cfg[computer.HALTED_TRAVERSERS].([]interface{})
	p.index = computer.HaltedIndex(cfg)
	p.ex = &execution{
		ctx:         context.Background(),
		trackPath:   t.Requirements()[REQUIRES_PATH],
		sideEffects: t.SideEffects(),
	}
	p.fired = map[int]bool{}
	return nil
}

func (p *TraversalVertexProgram) StoreState(cfg computer.Configuration) {
	cfg[computer.VERTEX_PROGRAM] = TVP_NAME
	cfg[TVP_TRAVERSAL] = p.traversal
	cfg[TVP_RETURN_HALTED] = p.returnHalted
	if len(p.halted) > 0 {
		cfg[computer.HALTED_TRAVERSERS] = p.halted
	}
}

func barrierKey(s Step) string {
	return TVP_BARRIER + s.ID()
}

func (p *TraversalVertexProgram) barriers() []Step {
	return StepsWith(p.traversal, BARRIER)
}

func (p *TraversalVertexProgram) Setup(mem computer.Memory) {
	mem.Set(TVP_VOTE_TO_HALT, true)
	mem.Set(computer.HALTED_TRAVERSERS, []interface{}{})
	mem.Set(TVP_ACTIVE, map[string][]*Traverser{})
	for _, s := range p.barriers() {
		mem.Set(barrierKey(s), []interface{}{})
	}
}

func (p *TraversalVertexProgram) WorkerIterationStart(mem computer.Memory) {
	p.active = nil
	if v, ok := mem.Get(TVP_ACTIVE); ok {
		p.active, _ = v.(map[string][]*Traverser)
	}
}

func (p *TraversalVertexProgram) WorkerIterationEnd(mem computer.Memory) {}

func (p *TraversalVertexProgram) Execute(v graph.Vertex, msgr computer.Messenger, mem computer.Memory) error {
	var work []*Traverser
	if mem.IsInitialIteration() {
		var err error
		if work, err = p.start(v); err != nil {
			return err
		}
	} else {
		msgs, err := msgr.ReceiveMessages()
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if tr, ok := m.(*Traverser); ok {
				work = append(work, p.attach(v, tr.Copy()))
			}
		}
		for _, tr := range p.active[v.ID()] {
			work = append(work, p.attach(v, tr.Copy()))
		}
	}
	return p.process(v, work, msgr, mem)
}

// start returns the traversers that begin at v: one per element the start
// GraphStep accepts, else the traversers an earlier program halted at v.
func (p *TraversalVertexProgram) start(v graph.Vertex) ([]*Traverser, error) {
	stored := v.Values(computer.HALTED_TRAVERSERS)
	if len(stored) > 0 {
		if err := v.SetProperty(graph.SINGLE, computer.HALTED_TRAVERSERS, nil); err != nil {
			return nil, err
		}
	}

	var work []*Traverser
	if gs, ok := p.traversal.StartStep().(*GraphStep); ok {
		var elements []graph.Element
		if gs.ReturnsEdges {
			for _, e := range v.Edges(graph.OUT) {
				elements = append(elements, e)
			}
		} else {
			elements = append(elements, v)
		}
		for _, e := range elements {
			if gs.Accepts(e) {
				tr := p.ex.traverser(nil).Split(e, gs.Labels())
				tr.Step = 1
				work = append(work, tr)
			}
		}
		return work, nil
	}

	parked := append([]interface{}(nil), stored...)
	parked = append(parked, p.index[v.ID()]...)
	for _, e := range v.Edges(graph.OUT) {
		parked = append(parked, p.index[e.ID()]...)
	}
	for _, h := range parked {
		if tr, ok := h.(*Traverser); ok {
			n := p.attach(v, tr.Copy())
			n.Step = 0
			work = append(work, n)
		}
	}
	return work, nil
}

// attach rebinds the element of tr to v, or to v's out edge with the same id.
func (p *TraversalVertexProgram) attach(v graph.Vertex, tr *Traverser) *Traverser {
	var ref graph.Reference
	switch x := tr.Value.(type) {
	case graph.Element:
		ref = graph.ReferenceOf(x)
	case graph.Reference:
		ref = x
	default:
		return tr
	}
	if ref.Type == "vertex" {
		if ref.ID == v.ID() {
			tr.Value = v
		}
		return tr
	}
	for _, e := range v.Edges(graph.OUT) {
		if e.ID() == ref.ID {
			tr.Value = e
			break
		}
	}
	return tr
}

// process runs the traversers at v until each halts, reaches a barrier or
// leaves v.
func (p *TraversalVertexProgram) process(v graph.Vertex, work []*Traverser, msgr computer.Messenger, mem computer.Memory) error {
	steps := p.traversal.Steps()
	for len(work) > 0 {
		tr := work[0]
		work = work[1:]
		if tr.Step >= len(steps) {
			if err := p.halt(v, tr, mem); err != nil {
				return err
			}
			continue
		}
		s := steps[tr.Step]
		if Is(s, BARRIER) {
			if err := mem.Add(barrierKey(s), []interface{}{tr}); err != nil {
				return err
			}
			continue
		}
		out, err := s.process(p.ex, []*Traverser{tr})
		if err != nil {
			return err
		}
		for _, o := range out {
			o.Step = tr.Step + 1
			host := o.HostID()
			if host == "" || host == v.ID() {
				work = append(work, p.attach(v, o))
				continue
			}
			if err := msgr.SendMessage(computer.Global{Vertices: []string{host}}, o); err != nil {
				return err
			}
			if err := mem.Add(TVP_VOTE_TO_HALT, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *TraversalVertexProgram) halt(v graph.Vertex, tr *Traverser, mem computer.Memory) error {
	if p.returnHalted || tr.HostID() == "" {
		return mem.Add(computer.HALTED_TRAVERSERS, []interface{}{tr})
	}
	return v.SetProperty(graph.LIST, computer.HALTED_TRAVERSERS, tr)
}

func (p *TraversalVertexProgram) Terminate(mem computer.Memory) bool {
	if !computer.GetBool(mem, TVP_VOTE_TO_HALT) {
		mem.Set(TVP_VOTE_TO_HALT, true)
		mem.Set(TVP_ACTIVE, map[string][]*Traverser{})
		return false
	}
	active, err := p.release(mem)
	if err != nil {
		log.Warnf("traversal vertex program failed at superstep %d: %s", mem.Iteration(), err)
		mem.Set(TVP_ERROR, err.Error())
		return true
	}
	mem.Set(TVP_ACTIVE, active)
	return len(active) == 0
}

// release runs the barriers, in step order, on the traversers that reached
// them. Output not at an element keeps running on the master; output at an
// element is returned to be handed to its vertex. A barrier is skipped once
// an earlier one hands traversers back to the vertices, as more traversers
// may still reach it.
func (p *TraversalVertexProgram) release(mem computer.Memory) (map[string][]*Traverser, error) {
	steps := p.traversal.Steps()
	active := map[string][]*Traverser{}
	pending := map[int][]*Traverser{}
	var halted []interface{}
	moving := false

	run := func(tr *Traverser) error {
		work := []*Traverser{tr}
		for len(work) > 0 {
			tr := work[0]
			work = work[1:]
			host := tr.HostID()
			if tr.Step >= len(steps) {
				if p.returnHalted || host == "" {
					halted = append(halted, tr)
				} else {
					active[host] = append(active[host], tr)
				}
				continue
			}
			if host != "" {
				active[host] = append(active[host], tr)
				moving = true
				continue
			}
			s := steps[tr.Step]
			if Is(s, BARRIER) {
				pending[tr.Step] = append(pending[tr.Step], tr)
				continue
			}
			out, err := s.process(p.ex, []*Traverser{tr})
			if err != nil {
				return err
			}
			for _, o := range out {
				o.Step = tr.Step + 1
				work = append(work, o)
			}
		}
		return nil
	}

	if !p.seeded {
		p.seeded = true
		if _, ok := p.traversal.StartStep().(*GraphStep); !ok {
			for _, h := range p.index[""] {
				if tr, ok := h.(*Traverser); ok {
					n := tr.Copy()
					n.Step = 0
					if err := run(n); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	for i, s := range steps {
		if moving {
			break
		}
		if !Is(s, BARRIER) {
			continue
		}
		in := pending[i]
		if v, ok := mem.Get(barrierKey(s)); ok {
			vals, _ := v.([]interface{})
			for _, x := range vals {
				in = append(in, x.(*Traverser))
			}
		}
		// An empty barrier still fires once: count() of nothing is 0.
		if len(in) == 0 && p.fired[i] {
			continue
		}
		p.fired[i] = true
		mem.Set(barrierKey(s), []interface{}{})
		out, err := s.process(p.ex, in)
		if err != nil {
			return nil, err
		}
		for _, o := range out {
			o.Step = i + 1
			if err := run(o); err != nil {
				return nil, err
			}
		}
	}

	if len(halted) > 0 {
		var all []interface{}
		if v, ok := mem.Get(computer.HALTED_TRAVERSERS); ok {
			all, _ = v.([]interface{})
		}
		mem.Set(computer.HALTED_TRAVERSERS, append(append([]interface{}(nil), all...), halted...))
	}
	return active, nil
}

func (p *TraversalVertexProgram) MessageScopes(mem computer.Memory) []computer.MessageScope {
	return []computer.MessageScope{computer.Global{}}
}

func (p *TraversalVertexProgram) VertexComputeKeys() []computer.VertexComputeKey {
	return []computer.VertexComputeKey{{Key: computer.HALTED_TRAVERSERS}}
}

func (p *TraversalVertexProgram) MemoryComputeKeys() []computer.MemoryComputeKey {
	keys := []computer.MemoryComputeKey{
		{Key: TVP_VOTE_TO_HALT, Operator: computer.AND, Transient: true},
		{Key: computer.HALTED_TRAVERSERS, Operator: computer.ADD_ALL},
		{Key: TVP_ACTIVE, Operator: computer.ASSIGN, Broadcast: true, Transient: true},
		{Key: TVP_ERROR, Operator: computer.ASSIGN},
	}
	for _, s := range p.barriers() {
		keys = append(keys, computer.MemoryComputeKey{Key: barrierKey(s), Operator: computer.ADD_ALL, Transient: true})
	}
	return keys
}

func (p *TraversalVertexProgram) Combiner() computer.MessageCombiner { return nil }

func (p *TraversalVertexProgram) PreferredResultGraph() computer.ResultGraph {
	return computer.RESULT_ORIGINAL
}

func (p *TraversalVertexProgram) PreferredPersist() computer.Persist {
	return computer.PERSIST_NOTHING
}

func (p *TraversalVertexProgram) Clone() computer.VertexProgram {
	cp := *p
	cp.active = nil
	cp.fired = map[int]bool{}
	return &cp
}
