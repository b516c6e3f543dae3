// Copyright 2026, Square, Inc.

package traversal

import (
	"context"
	"errors"

	serr "github.com/square/vertigo/errors"
)

// RemoteConnection submits traversals to another process.
type RemoteConnection interface {
	// Submit sends bc and returns without waiting for the result.
	Submit(ctx context.Context, bc *Bytecode) (RemoteResult, error)
}

// RemoteResult is a submitted traversal. Traversers blocks until the remote
// side answers, then returns the traversers it emitted or the failure it
// reported.
type RemoteResult interface {
	Traversers(ctx context.Context) ([]*Traverser, error)
}

// RemoteStep stands in for a whole traversal that runs remotely. It submits
// the bytecode on first use and emits the remote traversers.
type RemoteStep struct {
	base
	Conn     RemoteConnection
	Bytecode *Bytecode
}

func NewRemoteStep(conn RemoteConnection, bc *Bytecode) *RemoteStep {
	return &RemoteStep{base: newBase(), Conn: conn, Bytecode: bc}
}

func (s *RemoteStep) Kind() Kind     { return REMOTE_STEP }
func (s *RemoteStep) String() string { return "RemoteStep(" + s.Bytecode.String() + ")" + s.labelString() }

func (s *RemoteStep) clone() Step {
	cp := *s
	cp.base = s.base.copy()
	cp.Bytecode = s.Bytecode.Clone()
	return &cp
}

func (s *RemoteStep) process(ex *execution, in []*Traverser) ([]*Traverser, error) {
	res, err := s.Conn.Submit(ex.ctx, s.Bytecode)
	if err != nil {
		return nil, remoteError(err)
	}
	out, err := res.Traversers(ex.ctx)
	if err != nil {
		return nil, remoteError(err)
	}
	return out, nil
}

// remoteError re-raises execution and verification failures as they are and
// wraps anything else in an IllegalStateError.
func remoteError(err error) error {
	var (
		exe serr.ExecutionError
		ver serr.VerificationError
	)
	switch {
	case errors.As(err, &exe):
		return exe
	case errors.As(err, &ver):
		return ver
	}
	return serr.IllegalStateError{Cause: err}
}

// --------------------------------------------------------------------------

const REMOTE_STRATEGY = "RemoteStrategy"

// RemoteStrategy replaces the steps of a root traversal with a RemoteStep that
// sends their bytecode over conn. Strategies are applied by the remote side.
type RemoteStrategy struct {
	conn RemoteConnection
}

var _ Strategy = &RemoteStrategy{}

func NewRemoteStrategy(conn RemoteConnection) *RemoteStrategy {
	return &RemoteStrategy{conn: conn}
}

func (s *RemoteStrategy) Name() string         { return REMOTE_STRATEGY }
func (s *RemoteStrategy) Phase() Phase         { return DECORATION }
func (s *RemoteStrategy) ApplyPost() []string  { return nil }
func (s *RemoteStrategy) ApplyPrior() []string { return []string{"VertexProgramStrategy"} }

func (s *RemoteStrategy) Apply(t *Traversal) error {
	if !t.IsRoot() || HasKind(t, REMOTE_STEP, false) {
		return nil
	}
	step := NewRemoteStep(s.conn, t.Bytecode().Clone())
	for len(t.steps) > 0 {
		if err := t.RemoveStep(t.steps[0]); err != nil {
			return err
		}
	}
	return t.AddStep(step)
}
