// Copyright 2026, Square, Inc.

package strategy

import (
	"fmt"

	"github.com/square/vertigo/computer"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/traversal"
)

// Configuration keys of VertexProgramStrategy.
const (
	CFG_GRAPH_COMPUTER = "graphComputer"
	CFG_WORKERS        = "workers"
	CFG_PERSIST        = "persist"
	CFG_RESULT_GRAPH   = "resultGraph"
	CFG_MAX_ITERATIONS = "maxIterations"
	CFG_CONFIGURATION  = "configuration"
)

// VertexProgramStrategy splits a root traversal into vertex program steps run by
// a graph computer. Every maximal run of steps that are not vertex computing is
// wrapped into a TraversalVertexProgramStep, a ComputerResultStep after the last
// program brings the halted traversers back, and every program step gets the
// computer options of the strategy.
type VertexProgramStrategy struct {
	meta
	opts computer.Options
}

var _ traversal.Configurable = &VertexProgramStrategy{}

// Computer returns a VertexProgramStrategy running programs with opts.
func Computer(opts computer.Options) *VertexProgramStrategy {
	return &VertexProgramStrategy{
		meta: meta{name: VERTEX_PROGRAM, phase: traversal.DECORATION},
		opts: opts,
	}
}

// FromConfig builds a VertexProgramStrategy from a flat configuration. Keys
// under "configuration" are merged into the configuration of every program.
func FromConfig(cfg map[string]interface{}) (traversal.Strategy, error) {
	c := computer.Configuration(cfg)
	var opts computer.Options
	opts.GraphComputer, _ = c.String(CFG_GRAPH_COMPUTER)
	if _, err := computer.NewGraphComputer(opts); err != nil {
		return nil, err
	}

	n, _, err := c.Int(CFG_WORKERS)
	if err != nil {
		return nil, err
	}
	opts.Workers = n
	if opts.MaxIterations, _, err = c.Int(CFG_MAX_ITERATIONS); err != nil {
		return nil, err
	}

	s, _ := c.String(CFG_PERSIST)
	if opts.Persist, err = computer.ParsePersist(s); err != nil {
		return nil, err
	}
	s, _ = c.String(CFG_RESULT_GRAPH)
	if opts.ResultGraph, err = computer.ParseResultGraph(s); err != nil {
		return nil, err
	}

	if v, ok := cfg[CFG_CONFIGURATION]; ok && v != nil {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, serr.NewConfigurationError(CFG_CONFIGURATION, "not a map: %T", v)
		}
		opts.Configuration = computer.Configuration(m).Copy()
	}
	return Computer(opts), nil
}

// Options returns the computer options of the strategy.
func (s *VertexProgramStrategy) Options() computer.Options {
	return s.opts
}

// Configuration is the inverse of FromConfig. Unset options are omitted.
func (s *VertexProgramStrategy) Configuration() map[string]interface{} {
	cfg := map[string]interface{}{}
	if s.opts.GraphComputer != "" {
		cfg[CFG_GRAPH_COMPUTER] = s.opts.GraphComputer
	}
	if s.opts.Workers > 0 {
		cfg[CFG_WORKERS] = s.opts.Workers
	}
	if s.opts.MaxIterations > 0 {
		cfg[CFG_MAX_ITERATIONS] = s.opts.MaxIterations
	}
	if s.opts.Persist != "" {
		cfg[CFG_PERSIST] = string(s.opts.Persist)
	}
	if s.opts.ResultGraph != "" {
		cfg[CFG_RESULT_GRAPH] = string(s.opts.ResultGraph)
	}
	if len(s.opts.Configuration) > 0 {
		cfg[CFG_CONFIGURATION] = map[string]interface{}(s.opts.Configuration.Copy())
	}
	return cfg
}

func (s *VertexProgramStrategy) String() string {
	return fmt.Sprintf("%s(%s)", s.name, s.opts)
}

func (s *VertexProgramStrategy) Apply(t *traversal.Traversal) error {
	// A ComputerResultStep means the traversal was split already. A remote
	// traversal is split by the remote side.
	if !t.IsRoot() || t.Len() == 0 ||
		traversal.HasKind(t, traversal.COMPUTER_RESULT_STEP, false) ||
		traversal.HasKind(t, traversal.REMOTE_STEP, false) {
		return nil
	}

	// profile() reports on the whole traversal, so it stays outside the programs.
	var profile traversal.Step
	if end := t.EndStep(); end.Kind() == traversal.PROFILE_SIDE_EFFECT_STEP {
		profile = end
		if err := t.RemoveStep(end); err != nil {
			return err
		}
	}

	moveLabels(t)
	if err := migrateGraphSteps(t); err != nil {
		return err
	}
	if err := wrapRuns(t); err != nil {
		return err
	}

	// Wrapping leaves a vertex computing step at the end.
	last := t.EndStep()
	if last.Kind() != traversal.TRAVERSAL_VERTEX_PROGRAM_STEP {
		child := traversal.Anon()
		if err := child.AddStep(traversal.NewIdentityStep()); err != nil {
			return err
		}
		last = traversal.NewTraversalVertexProgramStep(child)
		if err := t.AddStep(last); err != nil {
			return err
		}
	}
	result := traversal.NewComputerResultStep()
	for _, l := range last.(*traversal.TraversalVertexProgramStep).Child.EndStep().Labels() {
		result.AddLabel(l)
	}
	if err := t.AddStep(result); err != nil {
		return err
	}
	if profile != nil {
		if err := t.AddStep(profile); err != nil {
			return err
		}
	}

	for _, vp := range programSteps(t) {
		vp.SetComputer(s.opts)
	}
	return nil
}

// moveLabels moves the labels of vertex computing steps onto the step before
// them, which is what the label referred to once the steps are wrapped.
func moveLabels(t *traversal.Traversal) {
	steps := t.Steps()
	var carry []string
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if traversal.Is(s, traversal.VERTEX_COMPUTING) {
			carry = append(carry, s.Labels()...)
			s.ClearLabels()
			continue
		}
		for _, l := range carry {
			s.AddLabel(l)
		}
		carry = nil
	}
}

// migrateGraphSteps moves a GraphStep after the vertex computing steps that
// immediately follow it, so V().connectedComponent() starts the traversal
// program after the component program instead of before it.
func migrateGraphSteps(t *traversal.Traversal) error {
	for i := 0; i < t.Len()-1; i++ {
		gs, ok := t.Steps()[i].(*traversal.GraphStep)
		if !ok || !traversal.Is(t.Steps()[i+1], traversal.VERTEX_COMPUTING) {
			continue
		}
		j := i + 1
		for j < t.Len() && traversal.Is(t.Steps()[j], traversal.VERTEX_COMPUTING) {
			j++
		}
		if err := t.RemoveStep(gs); err != nil {
			return err
		}
		if err := t.InsertStep(j-1, gs); err != nil {
			return err
		}
		i = j - 1
	}
	return nil
}

// wrapRuns wraps every maximal run of steps that are not vertex computing into
// a TraversalVertexProgramStep.
func wrapRuns(t *traversal.Traversal) error {
	for i := 0; i < t.Len(); i++ {
		if traversal.Is(t.Steps()[i], traversal.VERTEX_COMPUTING) {
			continue
		}
		j := i
		for j < t.Len() && !traversal.Is(t.Steps()[j], traversal.VERTEX_COMPUTING) {
			j++
		}
		child := traversal.Anon()
		if err := t.MoveSteps(i, j, child); err != nil {
			return err
		}
		if err := t.InsertStep(i, traversal.NewTraversalVertexProgramStep(child)); err != nil {
			return err
		}
	}
	return nil
}
