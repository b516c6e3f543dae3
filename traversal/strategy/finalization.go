// Copyright 2026, Square, Inc.

package strategy

import (
	"github.com/square/vertigo/traversal"
)

// ProfileStrategy instruments a profile() traversal: a ProfileStep after every
// step records its traversers and time for the ProfileSideEffectStep to report.
type ProfileStrategy struct{ meta }

func Profile() *ProfileStrategy {
	return &ProfileStrategy{meta{name: PROFILE, phase: traversal.FINALIZATION}}
}

func (s *ProfileStrategy) Apply(t *traversal.Traversal) error {
	if !t.IsRoot() ||
		!traversal.HasKind(t, traversal.PROFILE_SIDE_EFFECT_STEP, false) ||
		traversal.HasKind(t, traversal.PROFILE_STEP, false) {
		return nil
	}
	for _, step := range append([]traversal.Step(nil), t.Steps()...) {
		if step.Kind() == traversal.PROFILE_SIDE_EFFECT_STEP {
			continue
		}
		if err := t.InsertAfter(traversal.NewProfileStep(step), step); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------

// ReferenceElementStrategy detaches the result of a root traversal: vertices
// and edges are replaced by references (id and label) so results can leave the
// process that holds the graph.
type ReferenceElementStrategy struct{ meta }

func ReferenceElement() *ReferenceElementStrategy {
	return &ReferenceElementStrategy{meta{
		name:  REFERENCE_ELEMENT,
		phase: traversal.FINALIZATION,
		post:  []string{PROFILE},
	}}
}

func (s *ReferenceElementStrategy) Apply(t *traversal.Traversal) error {
	if !t.IsRoot() || t.Len() == 0 {
		return nil
	}
	switch t.EndStep().Kind() {
	case traversal.REFERENCE_ELEMENT_STEP, traversal.REMOTE_STEP:
		return nil
	}
	return t.AddStep(traversal.NewReferenceElementStep())
}
