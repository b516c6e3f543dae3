// Copyright 2026, Square, Inc.

package computer

import (
	"context"
	"fmt"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/util"
)

// Name of the in-process graph computer, the only one built in.
const DEFAULT_COMPUTER = "memory"

// GraphComputer runs a vertex program over a graph to completion.
type GraphComputer interface {
	Submit(ctx context.Context, g graph.Graph, program VertexProgram) (*Result, error)
}

// Options configure a graph computer. Zero values mean "let the program decide"
// (Persist, ResultGraph) or "no limit" (MaxIterations).
type Options struct {
	GraphComputer string
	Workers       int // <= 0: one per CPU
	Persist       Persist
	ResultGraph   ResultGraph
	Filter        GraphFilter
	MaxIterations int

	// Configuration holds default program configuration, overlaid by the
	// settings of the step or request that loads a program.
	Configuration Configuration
}

func (o Options) String() string {
	return fmt.Sprintf("computer=%s workers=%d persist=%s resultGraph=%s %s",
		o.GraphComputer, o.Workers, o.Persist, o.ResultGraph, o.Filter)
}

// NewGraphComputer returns the graph computer named by opts.GraphComputer.
func NewGraphComputer(opts Options) (GraphComputer, error) {
	switch opts.GraphComputer {
	case "", DEFAULT_COMPUTER:
		return NewExecutor(opts), nil
	}
	return nil, serr.NewConfigurationError("graphComputer", "unknown graph computer %q", opts.GraphComputer)
}

// Result of a computation: the result graph and the final, read-only memory.
type Result struct {
	ID     string
	Graph  graph.Graph
	Memory Memory
}

// --------------------------------------------------------------------------

// Executor is the in-process GraphComputer. Each superstep fans the vertices
// out to a fixed number of workers, each running its own clone of the program,
// and waits for all of them before the master terminates or continues.
type Executor struct {
	opts Options
}

var _ GraphComputer = &Executor{}

func NewExecutor(opts Options) *Executor {
	return &Executor{opts: opts}
}

func (e *Executor) Submit(ctx context.Context, g graph.Graph, program VertexProgram) (*Result, error) {
	if program == nil {
		return nil, serr.NewConfigurationError(VERTEX_PROGRAM, "no vertex program")
	}
	id := util.XID()
	logger := log.WithFields(log.Fields{"computation": id, "program": program.Name()})

	persist := e.opts.Persist
	if persist == "" {
		persist = program.PreferredPersist()
	}
	resultGraph := e.opts.ResultGraph
	if resultGraph == "" {
		resultGraph = program.PreferredResultGraph()
	}

	vkeys := map[string]VertexComputeKey{}
	for _, k := range program.VertexComputeKeys() {
		if _, ok := vkeys[k.Key]; ok {
			return nil, serr.NewConfigurationError(k.Key, "duplicate vertex compute key")
		}
		vkeys[k.Key] = k
	}
	mkeys := map[string]bool{}
	for _, k := range program.MemoryComputeKeys() {
		if mkeys[k.Key] {
			return nil, serr.NewConfigurationError(k.Key, "duplicate memory compute key")
		}
		mkeys[k.Key] = true
	}

	vertices := g.Vertices()
	views := make([]*computeVertex, len(vertices))
	for i, v := range vertices {
		cv, err := newComputeVertex(v, vkeys, e.opts.Filter)
		if err != nil {
			return nil, serr.NewExecutionError(err, "loading graph")
		}
		views[i] = cv
	}

	nWorkers := e.opts.Workers
	if nWorkers <= 0 {
		nWorkers = runtime.NumCPU()
	}
	if nWorkers > len(views) {
		nWorkers = len(views)
	}
	if nWorkers < 1 {
		nWorkers = 1
	}
	logger.Infof("computation started: %d vertices, %d workers, persist=%s, resultGraph=%s",
		len(views), nWorkers, persist, resultGraph)

	mem := newMemory(program.MemoryComputeKeys())
	board := NewMessageBoard(program.Combiner())

	program.Setup(mem)
	workers := make([]VertexProgram, nWorkers)
	for i := range workers {
		workers[i] = program.Clone()
	}
	mem.completeSubRound()
	for {
		if err := ctx.Err(); err != nil {
			return nil, serr.NewExecutionError(err, "computation %s canceled at superstep %d", id, mem.Iteration())
		}
		scopes := program.MessageScopes(mem)
		for _, scope := range scopes {
			if l, ok := scope.(Local); ok && l.Incident == nil {
				return nil, serr.NewExecutionError(errNoIncident, "superstep %d", mem.Iteration())
			}
		}

		start := time.Now()
		if err := e.superstep(ctx, workers, views, board, scopes, mem); err != nil {
			return nil, serr.NewExecutionError(err, "superstep %d", mem.Iteration())
		}
		board.completeIteration()
		mem.completeSubRound()

		halt := program.Terminate(mem)
		if !halt && e.opts.MaxIterations > 0 && mem.Iteration()+1 >= e.opts.MaxIterations {
			logger.Warnf("superstep ceiling %d reached, forcing termination", e.opts.MaxIterations)
			halt = true
		}
		logger.Debugf("superstep %d done in %s, halt=%t", mem.Iteration(), time.Since(start), halt)
		mem.incrIteration()
		if halt {
			break
		}
		mem.completeSubRound()
	}

	out, err := buildResultGraph(g, views, persist, resultGraph)
	if err != nil {
		return nil, serr.NewExecutionError(err, "building result graph")
	}
	mem.finish()
	logger.Infof("computation done: %d supersteps in %s", mem.Iteration(), mem.Runtime())
	return &Result{ID: id, Graph: out, Memory: mem}, nil
}

// superstep runs Execute on every vertex, each worker on a contiguous chunk.
// It returns once all workers are done, or after the first error.
func (e *Executor) superstep(ctx context.Context, workers []VertexProgram, views []*computeVertex, board *MessageBoard, scopes []MessageScope, mem *memory) error {
	eg, ctx := errgroup.WithContext(ctx)
	size := (len(views) + len(workers) - 1) / len(workers)
	for w := range workers {
		lo := w * size
		if lo >= len(views) {
			break
		}
		hi := lo + size
		if hi > len(views) {
			hi = len(views)
		}
		program := workers[w]
		chunk := views[lo:hi]
		eg.Go(func() error {
			wa, aware := program.(WorkerAware)
			if aware {
				wa.WorkerIterationStart(mem)
			}
			for _, cv := range chunk {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := program.Execute(cv, newMessenger(board, cv, scopes), mem); err != nil {
					return fmt.Errorf("vertex %s: %s", cv.ID(), err)
				}
			}
			if aware {
				wa.WorkerIterationEnd(mem)
			}
			return nil
		})
	}
	return eg.Wait()
}

// buildResultGraph writes the compute keys to the original graph or to a new
// one. A new graph holds nothing for PERSIST_NOTHING, the vertices for
// PERSIST_VERTEX_PROPERTIES, and the vertices and edges for PERSIST_EDGES.
func buildResultGraph(g graph.Graph, views []*computeVertex, persist Persist, resultGraph ResultGraph) (graph.Graph, error) {
	if persist == "" {
		persist = PERSIST_NOTHING
	}
	var out graph.Graph
	switch {
	case resultGraph != RESULT_NEW:
		out = g
	case persist == PERSIST_EDGES:
		out = g.Clone()
	case persist == PERSIST_VERTEX_PROPERTIES:
		m := graph.NewMem()
		for _, v := range g.Vertices() {
			nv, err := m.AddVertex(v.ID(), v.Label(), nil)
			if err != nil {
				return nil, err
			}
			for _, k := range v.Keys() {
				for _, val := range v.Values(k) {
					if err := nv.SetProperty(graph.LIST, k, val); err != nil {
						return nil, err
					}
				}
			}
		}
		out = m
	default:
		return graph.NewMem(), nil
	}
	if persist == PERSIST_NOTHING {
		return out, nil
	}
	for _, cv := range views {
		target, ok := out.Vertex(cv.ID())
		if !ok {
			return nil, fmt.Errorf("vertex %s missing from result graph", cv.ID())
		}
		if err := cv.persist(target); err != nil {
			return nil, err
		}
	}
	return out, nil
}
