// Copyright 2026, Square, Inc.

// Package computer runs vertex programs over a graph in bulk-synchronous
// supersteps. Every superstep executes the program once per vertex, in
// parallel across a pool of workers; vertices communicate through messages
// delivered at the next superstep and through a global Memory whose keys are
// written with associative, commutative operators. A superstep ends with a
// full barrier, after which the program's Terminate decides whether to halt.
package computer

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/square/vertigo/graph"
	serr "github.com/square/vertigo/errors"
)

// VertexProgram is the per-vertex compute logic of a BSP computation. A program
// is a value: the executor clones it once per worker and never shares a
// mutable instance between goroutines.
type VertexProgram interface {
	// Name is the name the program is registered under in Programs.
	Name() string

	// LoadState configures the program from cfg. Missing or malformed
	// required keys must return a ConfigurationError.
	LoadState(g graph.Graph, cfg Configuration) error

	// StoreState writes the program configuration into cfg, leaving keys it
	// does not recognize untouched.
	StoreState(cfg Configuration)

	// Setup is called once, on the master, before the first superstep.
	Setup(mem Memory)

	// Execute is called once per vertex per superstep, concurrently. It may only
	// write v's vertex compute keys and add to memory.
	Execute(v graph.Vertex, msgr Messenger, mem Memory) error

	// Terminate is called on the master after every superstep barrier. It
	// returns true to halt.
	Terminate(mem Memory) bool

	// MessageScopes returns the scopes the program sends messages on during
	// the superstep that is about to run. ReceiveMessages only delivers
	// messages queued on these scopes.
	MessageScopes(mem Memory) []MessageScope

	VertexComputeKeys() []VertexComputeKey
	MemoryComputeKeys() []MemoryComputeKey

	// Combiner returns the message combiner, or nil for none.
	Combiner() MessageCombiner

	PreferredResultGraph() ResultGraph
	PreferredPersist() Persist

	Clone() VertexProgram
}

// WorkerAware is implemented by programs that want to be told when a worker
// starts and finishes its share of a superstep.
type WorkerAware interface {
	WorkerIterationStart(mem Memory)
	WorkerIterationEnd(mem Memory)
}

// VertexComputeKey is a per-vertex property a program reads and writes.
// Transient keys are dropped from the result graph.
type VertexComputeKey struct {
	Key       string
	Transient bool
}

// MemoryComputeKey is a global reduction variable. Broadcast keys are readable
// by vertices during Execute; transient keys are dropped from the final memory.
type MemoryComputeKey struct {
	Key       string
	Operator  Operator
	Broadcast bool
	Transient bool
}

// Operator combines two memory values. All operators are associative; all but
// ASSIGN and ADD_ALL (which concatenates) are commutative.
type Operator string

const (
	AND     Operator = "and"
	OR      Operator = "or"
	SUM     Operator = "sum"
	MIN     Operator = "min"
	MAX     Operator = "max"
	ADD_ALL Operator = "addAll"
	ASSIGN  Operator = "assign"
)

// Apply combines a (the current value) with b (the new value).
func (o Operator) Apply(a, b interface{}) interface{} {
	switch o {
	case AND:
		return toBool(a) && toBool(b)
	case OR:
		return toBool(a) || toBool(b)
	case SUM:
		ai, aok := a.(int64)
		bi, bok := b.(int64)
		if aok && bok {
			return ai + bi
		}
		return toFloat(a) + toFloat(b)
	case MIN:
		if c, ok := graph.Compare(a, b); ok && c > 0 {
			return b
		}
		return a
	case MAX:
		if c, ok := graph.Compare(a, b); ok && c < 0 {
			return b
		}
		return a
	case ADD_ALL:
		as, _ := a.([]interface{})
		bs, _ := b.([]interface{})
		out := make([]interface{}, 0, len(as)+len(bs))
		out = append(out, as...)
		return append(out, bs...)
	}
	return b
}

// Persist says what of a computation is written to the result graph.
type Persist string

const (
	PERSIST_NOTHING           Persist = "nothing"
	PERSIST_VERTEX_PROPERTIES Persist = "vertexProperties"
	PERSIST_EDGES             Persist = "edges"
)

// ResultGraph says whether results are written to the original graph or to a copy.
type ResultGraph string

const (
	RESULT_ORIGINAL ResultGraph = "original"
	RESULT_NEW      ResultGraph = "new"
)

func ParsePersist(s string) (Persist, error) {
	switch p := Persist(s); p {
	case "", PERSIST_NOTHING, PERSIST_VERTEX_PROPERTIES, PERSIST_EDGES:
		return p, nil
	}
	return "", serr.NewConfigurationError("persist", "unknown persist mode %q", s)
}

func ParseResultGraph(s string) (ResultGraph, error) {
	switch r := ResultGraph(s); r {
	case "", RESULT_ORIGINAL, RESULT_NEW:
		return r, nil
	}
	return "", serr.NewConfigurationError("resultGraph", "unknown result graph mode %q", s)
}

// --------------------------------------------------------------------------

const (
	// Configuration key naming the program in a flat configuration.
	VERTEX_PROGRAM = "gremlin.vertexProgram"

	// Vertex compute key holding the traversers parked at a vertex, and the
	// configuration key carrying halted traversers from one program to the next.
	HALTED_TRAVERSERS = "gremlin.traversalVertexProgram.haltedTraversers"
)

// Halted is a traverser parked at an element between programs.
type Halted interface {
	ElementID() string
}

// HaltedIndex groups the Halted values of cfg[HALTED_TRAVERSERS] by element id.
func HaltedIndex(cfg Configuration) map[string][]interface{} {
	idx := map[string][]interface{}{}
	vals, _ := cfg[HALTED_TRAVERSERS].([]interface{})
	for _, v := range vals {
		if h, ok := v.(Halted); ok {
			idx[h.ElementID()] = append(idx[h.ElementID()], v)
		}
	}
	return idx
}

// Configuration is the flat, string-keyed property bag programs are loaded
// from and stored to.
type Configuration map[string]interface{}

// Copy returns a shallow copy of c.
func (c Configuration) Copy() Configuration {
	cp := make(Configuration, len(c))
	for k, v := range c {
		cp[k] = v
	}
	return cp
}

// String returns the value of key as a string. Non-string scalars are formatted.
func (c Configuration) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	}
	return fmt.Sprint(v), true
}

// Int returns the value of key as an int. Strings are parsed.
func (c Configuration) Int(key string) (int, bool, error) {
	v, ok := c[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		return int(n), true, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, true, serr.NewConfigurationError(key, "not an integer: %q", n)
		}
		return i, true, nil
	}
	return 0, true, serr.NewConfigurationError(key, "not an integer: %v", v)
}

// Keys returns the sorted keys of c.
func (c Configuration) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// A ProgramFactory makes an unconfigured VertexProgram.
type ProgramFactory func() VertexProgram

// Programs maps program names to factories. It is passed explicitly to whatever
// needs to resolve programs by name; there is no global registry.
type Programs map[string]ProgramFactory

// Load makes and configures the program named by cfg[VERTEX_PROGRAM].
func (p Programs) Load(g graph.Graph, cfg Configuration) (VertexProgram, error) {
	name, ok := cfg.String(VERTEX_PROGRAM)
	if !ok || name == "" {
		return nil, serr.NewConfigurationError(VERTEX_PROGRAM, "vertex program not set")
	}
	factory, ok := p[name]
	if !ok {
		return nil, serr.NewConfigurationError(VERTEX_PROGRAM, "unknown vertex program %q", name)
	}
	program := factory()
	if err := program.LoadState(g, cfg); err != nil {
		return nil, err
	}
	return program, nil
}

// Names returns the sorted program names.
func (p Programs) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func toBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	}
	return 0
}
