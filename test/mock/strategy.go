// Copyright 2026, Square, Inc.

package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/square/vertigo/traversal"
)

var (
	ErrStrategy   = errors.New("forced error in strategy")
	ErrConnection = errors.New("forced error in remote connection")
)

// Strategy records the traversals it is applied to. ApplyFunc, if set, is
// called for each.
type Strategy struct {
	NameValue  string
	PhaseValue traversal.Phase
	Prior      []string
	Post       []string
	ApplyFunc  func(t *traversal.Traversal) error
	// --
	Applied []*traversal.Traversal
	*sync.Mutex
}

var _ traversal.Strategy = &Strategy{}

func NewStrategy(name string, phase traversal.Phase) *Strategy {
	return &Strategy{NameValue: name, PhaseValue: phase, Mutex: &sync.Mutex{}}
}

func (s *Strategy) Name() string           { return s.NameValue }
func (s *Strategy) Phase() traversal.Phase { return s.PhaseValue }
func (s *Strategy) ApplyPrior() []string   { return s.Prior }
func (s *Strategy) ApplyPost() []string    { return s.Post }

func (s *Strategy) Apply(t *traversal.Traversal) error {
	s.Lock()
	s.Applied = append(s.Applied, t)
	s.Unlock()
	if s.ApplyFunc != nil {
		return s.ApplyFunc(t)
	}
	return nil
}

// --------------------------------------------------------------------------

// Connection is a traversal.RemoteConnection. Submitted bytecode is recorded.
// SubmitErr fails Submit; otherwise Result is returned.
type Connection struct {
	Result    *RemoteResult
	SubmitErr error
	// --
	Submitted []*traversal.Bytecode
	*sync.Mutex
}

var _ traversal.RemoteConnection = &Connection{}

func NewConnection(result *RemoteResult) *Connection {
	return &Connection{Result: result, Mutex: &sync.Mutex{}}
}

func (c *Connection) Submit(ctx context.Context, bc *traversal.Bytecode) (traversal.RemoteResult, error) {
	c.Lock()
	c.Submitted = append(c.Submitted, bc)
	c.Unlock()
	if c.SubmitErr != nil {
		return nil, c.SubmitErr
	}
	return c.Result, nil
}

// RemoteResult returns Values and Err.
type RemoteResult struct {
	Values []*traversal.Traverser
	Err    error
}

func (r *RemoteResult) Traversers(ctx context.Context) ([]*traversal.Traverser, error) {
	return r.Values, r.Err
}
