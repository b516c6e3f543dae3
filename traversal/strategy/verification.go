// Copyright 2026, Square, Inc.

package strategy

import (
	"fmt"

	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/traversal"
)

func reject(s traversal.Strategy, t *traversal.Traversal, format string, args ...interface{}) error {
	return serr.VerificationError{
		Strategy:  s.Name(),
		Message:   fmt.Sprintf(format, args...),
		Traversal: t.Root().String(),
	}
}

// StandardVerificationStrategy rejects step labels used twice in the same
// traversal and computer result steps that do not follow a vertex program.
type StandardVerificationStrategy struct{ meta }

func StandardVerification() *StandardVerificationStrategy {
	return &StandardVerificationStrategy{meta{name: STANDARD_VERIFICATION, phase: traversal.VERIFICATION}}
}

func (s *StandardVerificationStrategy) Apply(t *traversal.Traversal) error {
	seen := map[string]bool{}
	for _, step := range t.Steps() {
		for _, l := range step.Labels() {
			if seen[l] {
				return reject(s, t, "the step label %q is used more than once", l)
			}
			seen[l] = true
		}
	}
	for _, step := range traversal.StepsOf(t, traversal.COMPUTER_RESULT_STEP) {
		prev := t.Prev(step)
		for prev.Kind() == traversal.PROFILE_STEP {
			prev = t.Prev(prev)
		}
		if !t.IsRoot() || !traversal.Is(prev, traversal.VERTEX_COMPUTING) {
			return reject(s, t, "%s must follow a vertex program step of the root traversal", step)
		}
	}
	return nil
}

// --------------------------------------------------------------------------

// ComputerVerificationStrategy rejects traversal programs a graph computer
// cannot run: nested vertex programs, and local children that read beyond the
// star graph of the vertex they run at.
type ComputerVerificationStrategy struct{ meta }

func ComputerVerification() *ComputerVerificationStrategy {
	return &ComputerVerificationStrategy{meta{name: COMPUTER_VERIFICATION, phase: traversal.VERIFICATION}}
}

func (s *ComputerVerificationStrategy) Apply(t *traversal.Traversal) error {
	if !t.IsRoot() {
		return nil
	}
	for _, step := range traversal.StepsOf(t, traversal.TRAVERSAL_VERTEX_PROGRAM_STEP) {
		child := step.(*traversal.TraversalVertexProgramStep).Child
		if traversal.HasCapability(child, traversal.VERTEX_COMPUTING, true) {
			return reject(s, t, "vertex programs cannot be nested in %s", step)
		}
		var err error
		child.Walk(func(st traversal.Step) {
			p, ok := st.(traversal.Parent)
			if !ok || err != nil {
				return
			}
			for _, local := range p.LocalChildren() {
				if !isLocalStar(local) {
					err = reject(s, t, "%s cannot traverse past the star graph of its vertex on a graph computer", st)
					return
				}
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------

// VertexProgramRestrictionStrategy rejects every traversal that runs a vertex
// program, for sources that must stay OLTP.
type VertexProgramRestrictionStrategy struct{ meta }

func VertexProgramRestriction() *VertexProgramRestrictionStrategy {
	return &VertexProgramRestrictionStrategy{meta{name: VERTEX_PROGRAM_RESTRICTION, phase: traversal.VERIFICATION}}
}

func (s *VertexProgramRestrictionStrategy) Apply(t *traversal.Traversal) error {
	if t.IsRoot() && traversal.HasCapability(t, traversal.VERTEX_COMPUTING, true) {
		return reject(s, t, "vertex programs are not allowed")
	}
	return nil
}
