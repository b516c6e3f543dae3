// Copyright 2026, Square, Inc.

// Package computation runs vertex programs submitted through the API. Each
// computation runs in its own goroutine on a graph computer; its state and,
// once complete, its result are kept in a Repo until the server stops.
package computation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/square/vertigo/computer"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/proto"
	"github.com/square/vertigo/util"
)

var (
	// Returned by Create after Shutdown.
	ErrShuttingDown = errors.New("shutting down, no new computations are started")

	// Returned by Result until the computation is complete.
	ErrNotComplete = errors.New("computation is not complete")

	// Returned by Stop when the computation already finished.
	ErrNotRunning = errors.New("computation is not running")
)

// A Manager starts computations and reports on them.
type Manager interface {
	// Create validates the request, starts the computation and returns it
	// in state RUNNING. Configuration errors are returned immediately.
	Create(proto.CreateComputation) (proto.Computation, error)

	// Get returns the computation with the given id.
	Get(id string) (proto.Computation, error)

	// Result returns the result graph and memory of a complete computation.
	Result(id string) (proto.ComputationResult, error)

	// List returns all computations, oldest first.
	List() ([]proto.Computation, error)

	// Stop cancels a running computation. It does not wait for it.
	Stop(id string) error

	// Shutdown stops all computations and waits for them to return, or for
	// ctx to be done.
	Shutdown(ctx context.Context) error
}

// Run is one computation in the repo.
type Run struct {
	*sync.Mutex
	c      proto.Computation
	result *computer.Result
	cancel context.CancelFunc
}

// Computation returns a copy of the current state of the run.
func (r *Run) Computation() proto.Computation {
	r.Lock()
	defer r.Unlock()
	return r.c
}

type manager struct {
	g        graph.Graph
	programs computer.Programs
	defaults computer.Options
	repo     Repo
	// --
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

// NewManager returns a Manager that runs programs on g. Requests are overlaid
// on defaults.
func NewManager(g graph.Graph, programs computer.Programs, defaults computer.Options, repo Repo) Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &manager{
		g:        g,
		programs: programs,
		defaults: defaults,
		repo:     repo,
		ctx:      ctx,
		cancel:   cancel,
		wg:       &sync.WaitGroup{},
	}
}

func (m *manager) Create(req proto.CreateComputation) (proto.Computation, error) {
	select {
	case <-m.ctx.Done():
		return proto.Computation{}, ErrShuttingDown
	default:
	}

	opts, err := m.options(req)
	if err != nil {
		return proto.Computation{}, err
	}
	gc, err := computer.NewGraphComputer(opts)
	if err != nil {
		return proto.Computation{}, err
	}

	cfg := m.defaults.Configuration.Copy()
	for k, v := range req.Configuration {
		cfg[k] = v
	}
	cfg[computer.VERTEX_PROGRAM] = req.Program
	program, err := m.programs.Load(m.g, cfg)
	if err != nil {
		return proto.Computation{}, err
	}

	ctx, cancel := context.WithCancel(m.ctx)
	r := &Run{
		Mutex: &sync.Mutex{},
		c: proto.Computation{
			Id:        util.XID(),
			Program:   program.Name(),
			State:     proto.STATE_RUNNING,
			CreatedAt: time.Now(),
		},
		cancel: cancel,
	}
	m.repo.Set(r.c.Id, r)

	m.wg.Add(1)
	go m.run(ctx, gc, program, r)

	return r.c, nil
}

// options overlays the settings of req on the defaults.
func (m *manager) options(req proto.CreateComputation) (computer.Options, error) {
	opts := m.defaults
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}
	if req.MaxIterations > 0 {
		opts.MaxIterations = req.MaxIterations
	}
	if req.Persist != "" {
		p, err := computer.ParsePersist(req.Persist)
		if err != nil {
			return opts, err
		}
		opts.Persist = p
	}
	if req.ResultGraph != "" {
		rg, err := computer.ParseResultGraph(req.ResultGraph)
		if err != nil {
			return opts, err
		}
		opts.ResultGraph = rg
	}
	return opts, nil
}

func (m *manager) run(ctx context.Context, gc computer.GraphComputer, program computer.VertexProgram, r *Run) {
	defer m.wg.Done()
	defer r.cancel()

	id := r.Computation().Id
	logger := log.WithFields(log.Fields{"computation": id, "program": program.Name()})
	logger.Info("computation started")

	res, err := gc.Submit(ctx, m.g, program)

	r.Lock()
	defer r.Unlock()
	r.c.FinishedAt = time.Now()
	switch {
	case err == nil:
		r.c.State = proto.STATE_COMPLETE
		r.c.Iterations = res.Memory.Iteration()
		r.c.Runtime = res.Memory.Runtime().Milliseconds()
		r.result = res
		logger.Infof("computation complete: %d supersteps", r.c.Iterations)
	case errors.Is(err, context.Canceled):
		r.c.State = proto.STATE_STOPPED
		r.c.Error = err.Error()
		logger.Warn("computation stopped")
	default:
		r.c.State = proto.STATE_FAIL
		r.c.Error = err.Error()
		logger.Errorf("computation failed: %s", err)
	}
}

func (m *manager) get(id string) (*Run, error) {
	r, ok := m.repo.Get(id)
	if !ok {
		return nil, serr.NotFoundError{Entity: "computation", Id: id}
	}
	return r, nil
}

func (m *manager) Get(id string) (proto.Computation, error) {
	r, err := m.get(id)
	if err != nil {
		return proto.Computation{}, err
	}
	return r.Computation(), nil
}

func (m *manager) Result(id string) (proto.ComputationResult, error) {
	r, err := m.get(id)
	if err != nil {
		return proto.ComputationResult{}, err
	}
	r.Lock()
	res := r.result
	r.Unlock()
	if res == nil {
		return proto.ComputationResult{}, ErrNotComplete
	}

	out := proto.ComputationResult{
		Id:     id,
		Memory: map[string]interface{}{},
	}
	for _, k := range res.Memory.Keys() {
		v, _ := res.Memory.Get(k)
		out.Memory[k] = proto.EncodeValue(v)
	}
	vertices := res.Graph.Vertices()
	out.Vertices = make([]proto.Vertex, len(vertices))
	for i, v := range vertices {
		pv := proto.Vertex{Id: v.ID(), Label: v.Label()}
		if keys := v.Keys(); len(keys) > 0 {
			pv.Properties = map[string][]interface{}{}
			for _, k := range keys {
				vals := v.Values(k)
				enc := make([]interface{}, len(vals))
				for j := range vals {
					enc[j] = proto.EncodeValue(vals[j])
				}
				pv.Properties[k] = enc
			}
		}
		out.Vertices[i] = pv
	}
	return out, nil
}

func (m *manager) List() ([]proto.Computation, error) {
	runs, err := m.repo.Items()
	if err != nil {
		return nil, err
	}
	list := make([]proto.Computation, 0, len(runs))
	for _, r := range runs {
		list = append(list, r.Computation())
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Id < list[j].Id
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (m *manager) Stop(id string) error {
	r, err := m.get(id)
	if err != nil {
		return err
	}
	if r.Computation().State != proto.STATE_RUNNING {
		return ErrNotRunning
	}
	log.WithField("computation", id).Info("stopping computation")
	r.cancel()
	return nil
}

func (m *manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
