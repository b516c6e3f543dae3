// Copyright 2026, Square, Inc.

// Package strategy provides the traversal strategies: the rewrite passes that
// turn a traversal into an optimized, verified execution plan, including the
// split of a traversal into vertex program steps for a graph computer.
package strategy

import (
	"github.com/square/vertigo/traversal"
)

// Strategy names.
const (
	VERTEX_PROGRAM             = "VertexProgramStrategy"
	IDENTITY_REMOVAL           = "IdentityRemovalStrategy"
	INCIDENT_TO_ADJACENT       = "IncidentToAdjacentStrategy"
	ADJACENT_TO_INCIDENT       = "AdjacentToIncidentStrategy"
	COUNT                      = "CountStrategy"
	GRAPH_STEP                 = "GraphStepStrategy"
	MESSAGE_PASSING_REDUCTION  = "MessagePassingReductionStrategy"
	GRAPH_FILTER               = "GraphFilterStrategy"
	PROFILE                    = "ProfileStrategy"
	REFERENCE_ELEMENT          = "ReferenceElementStrategy"
	STANDARD_VERIFICATION      = "StandardVerificationStrategy"
	COMPUTER_VERIFICATION      = "ComputerVerificationStrategy"
	VERTEX_PROGRAM_RESTRICTION = "VertexProgramRestrictionStrategy"
)

// meta is the identity and ordering constraints of a strategy.
type meta struct {
	name  string
	phase traversal.Phase
	prior []string
	post  []string
}

func (m meta) Name() string           { return m.name }
func (m meta) Phase() traversal.Phase { return m.phase }
func (m meta) ApplyPrior() []string   { return m.prior }
func (m meta) ApplyPost() []string    { return m.post }

// Defaults returns the strategies every traversal source starts with. Add
// Computer(opts) to run traversals on a graph computer.
func Defaults() []traversal.Strategy {
	return []traversal.Strategy{
		IdentityRemoval(),
		IncidentToAdjacent(),
		AdjacentToIncident(),
		Count(),
		GraphStep(),
		MessagePassingReduction(),
		GraphFilter(),
		Profile(),
		StandardVerification(),
		ComputerVerification(),
	}
}

// NewRegistry returns a registry of every strategy of this package, to rebuild
// strategies named in bytecode.
func NewRegistry() traversal.StrategyRegistry {
	fixed := func(s traversal.Strategy) traversal.StrategyFactory {
		return func(map[string]interface{}) (traversal.Strategy, error) { return s, nil }
	}
	return traversal.StrategyRegistry{
		VERTEX_PROGRAM:             FromConfig,
		IDENTITY_REMOVAL:           fixed(IdentityRemoval()),
		INCIDENT_TO_ADJACENT:       fixed(IncidentToAdjacent()),
		ADJACENT_TO_INCIDENT:       fixed(AdjacentToIncident()),
		COUNT:                      fixed(Count()),
		GRAPH_STEP:                 fixed(GraphStep()),
		MESSAGE_PASSING_REDUCTION:  fixed(MessagePassingReduction()),
		GRAPH_FILTER:               fixed(GraphFilter()),
		PROFILE:                    fixed(Profile()),
		REFERENCE_ELEMENT:          fixed(ReferenceElement()),
		STANDARD_VERIFICATION:      fixed(StandardVerification()),
		COMPUTER_VERIFICATION:      fixed(ComputerVerification()),
		VERTEX_PROGRAM_RESTRICTION: fixed(VertexProgramRestriction()),
	}
}

// programSteps returns the vertex program steps of t.
func programSteps(t *traversal.Traversal) []traversal.VertexProgramStep {
	var out []traversal.VertexProgramStep
	for _, s := range t.Steps() {
		if vp, ok := s.(traversal.VertexProgramStep); ok {
			out = append(out, vp)
		}
	}
	return out
}
