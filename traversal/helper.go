// Copyright 2026, Square, Inc.

package traversal

import (
	"fmt"
)

func indexError(i, n int) error {
	return fmt.Errorf("step index %d out of range [0,%d]", i, n)
}

func notFoundError(s Step) error {
	return fmt.Errorf("step %s is not in the traversal", s)
}

// StepsOf returns the steps of t (not its children) with the given kinds.
func StepsOf(t *Traversal, kinds ...Kind) []Step {
	var out []Step
	for _, s := range t.steps {
		for _, k := range kinds {
			if s.Kind() == k {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// StepsWith returns the steps of t (not its children) with capability c.
func StepsWith(t *Traversal, c Capability) []Step {
	var out []Step
	for _, s := range t.steps {
		if Is(s, c) {
			out = append(out, s)
		}
	}
	return out
}

// HasKind reports whether t, or any of its children when recursive, has a step of kind k.
func HasKind(t *Traversal, k Kind, recursive bool) bool {
	found := false
	if !recursive {
		return len(StepsOf(t, k)) > 0
	}
	t.Walk(func(s Step) {
		if s.Kind() == k {
			found = true
		}
	})
	return found
}

// HasCapability reports whether t, or any of its children when recursive, has a step with c.
func HasCapability(t *Traversal, c Capability, recursive bool) bool {
	if !recursive {
		return len(StepsWith(t, c)) > 0
	}
	found := false
	t.Walk(func(s Step) {
		if Is(s, c) {
			found = true
		}
	})
	return found
}

// FirstWith returns the first step of t from index i on with capability c, or Empty.
func FirstWith(t *Traversal, i int, c Capability) Step {
	for ; i < len(t.steps); i++ {
		if Is(t.steps[i], c) {
			return t.steps[i]
		}
	}
	return Empty
}

// Labels returns every step label of t and its children.
func Labels(t *Traversal) []string {
	var labels []string
	t.Walk(func(s Step) {
		labels = append(labels, s.Labels()...)
	})
	return labels
}

// Children returns the local and global children of s, if s is a parent.
func Children(s Step) []*Traversal {
	p, ok := s.(Parent)
	if !ok {
		return nil
	}
	return append(append([]*Traversal(nil), p.LocalChildren()...), p.GlobalChildren()...)
}

// IsGlobalChild reports whether t is a global child of its parent step, or a root.
func IsGlobalChild(t *Traversal) bool {
	p, ok := t.parent.(Parent)
	if !ok {
		return true
	}
	for _, c := range p.LocalChildren() {
		if c == t {
			return false
		}
	}
	return true
}
