// Copyright 2026, Square, Inc.

package computation

import (
	"fmt"

	"github.com/orcaman/concurrent-map"
)

// Repo is a small wrapper around a concurrent map that provides the ability to
// store and retrieve computations in a thread-safe way.
type Repo interface {
	Set(key string, value *Run)
	Get(key string) (*Run, bool)
	Items() (map[string]*Run, error)
}

type repo struct {
	c cmap.ConcurrentMap
}

func NewRepo() Repo {
	return &repo{
		c: cmap.New(),
	}
}

// Set sets a computation in the repo.
func (r *repo) Set(key string, value *Run) {
	r.c.Set(key, value)
}

// Get returns the computation for key, if any.
func (r *repo) Get(key string) (*Run, bool) {
	val, ok := r.c.Get(key)
	if !ok {
		return nil, false
	}
	run, ok := val.(*Run)
	return run, ok
}

// Items returns a map of key => computation with all the computations in the repo.
func (r *repo) Items() (map[string]*Run, error) {
	runs := map[string]*Run{} // key => run
	vals := r.c.Items()
	for key, val := range vals {
		run, ok := val.(*Run)
		if !ok {
			return runs, fmt.Errorf("invalid computation in repo for key=%s", key) // should be impossible
		}
		runs[key] = run
	}

	return runs, nil
}
