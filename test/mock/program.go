// Copyright 2026, Square, Inc.

// Package mock provides mocks for testing.
package mock

import (
	"errors"

	"github.com/square/vertigo/computer"
	"github.com/square/vertigo/graph"
)

var (
	ErrProgram = errors.New("forced error in vertex program")
)

// VertexProgram is a vertex program assembled from funcs. Unset funcs are
// no-ops; an unset TerminateFunc halts after the first superstep.
type VertexProgram struct {
	NameValue        string
	LoadStateFunc    func(g graph.Graph, cfg computer.Configuration) error
	SetupFunc        func(mem computer.Memory)
	ExecuteFunc      func(v graph.Vertex, msgr computer.Messenger, mem computer.Memory) error
	TerminateFunc    func(mem computer.Memory) bool
	Scopes           []computer.MessageScope
	VertexKeys       []computer.VertexComputeKey
	MemoryKeys       []computer.MemoryComputeKey
	CombinerValue    computer.MessageCombiner
	ResultGraphValue computer.ResultGraph
	PersistValue     computer.Persist
	Stored           computer.Configuration
}

var _ computer.VertexProgram = &VertexProgram{}

func (p *VertexProgram) Name() string {
	if p.NameValue == "" {
		return "mock"
	}
	return p.NameValue
}

func (p *VertexProgram) LoadState(g graph.Graph, cfg computer.Configuration) error {
	if p.LoadStateFunc != nil {
		return p.LoadStateFunc(g, cfg)
	}
	return nil
}

func (p *VertexProgram) StoreState(cfg computer.Configuration) {
	cfg[computer.VERTEX_PROGRAM] = p.Name()
	for k, v := range p.Stored {
		cfg[k] = v
	}
}

func (p *VertexProgram) Setup(mem computer.Memory) {
	if p.SetupFunc != nil {
		p.SetupFunc(mem)
	}
}

func (p *VertexProgram) Execute(v graph.Vertex, msgr computer.Messenger, mem computer.Memory) error {
	if p.ExecuteFunc != nil {
		return p.ExecuteFunc(v, msgr, mem)
	}
	return nil
}

func (p *VertexProgram) Terminate(mem computer.Memory) bool {
	if p.TerminateFunc != nil {
		return p.TerminateFunc(mem)
	}
	return true
}

func (p *VertexProgram) MessageScopes(mem computer.Memory) []computer.MessageScope {
	return p.Scopes
}

func (p *VertexProgram) VertexComputeKeys() []computer.VertexComputeKey { return p.VertexKeys }
func (p *VertexProgram) MemoryComputeKeys() []computer.MemoryComputeKey { return p.MemoryKeys }
func (p *VertexProgram) Combiner() computer.MessageCombiner             { return p.CombinerValue }

func (p *VertexProgram) PreferredResultGraph() computer.ResultGraph {
	if p.ResultGraphValue == "" {
		return computer.RESULT_ORIGINAL
	}
	return p.ResultGraphValue
}

func (p *VertexProgram) PreferredPersist() computer.Persist {
	if p.PersistValue == "" {
		return computer.PERSIST_NOTHING
	}
	return p.PersistValue
}

func (p *VertexProgram) Clone() computer.VertexProgram {
	cp := *p
	return &cp
}
