// Copyright 2026, Square, Inc.

package computer

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/orcaman/concurrent-map"
)

// Memory is the global state of a computation. During Execute, vertices read
// the values as they were at the end of the previous superstep and Add to the
// current ones; between supersteps the master (Setup and Terminate) reads and
// Sets the current values.
type Memory interface {
	// Keys returns the sorted keys that have a value.
	Keys() []string

	Get(key string) (interface{}, bool)
	Exists(key string) bool

	// Set replaces the value of key. Only valid on the master.
	Set(key string, value interface{}) error

	// Add combines value into key with the key's operator. Only valid during
	// Execute. Concurrent Adds to the same key never lose a value.
	Add(key string, value interface{}) error

	Iteration() int
	IsInitialIteration() bool
	Runtime() time.Duration
}

// GetBool returns the value of key as a bool, false if missing.
func GetBool(mem Memory, key string) bool {
	v, _ := mem.Get(key)
	b, _ := v.(bool)
	return b
}

type memory struct {
	keys      map[string]MemoryComputeKey
	previous  cmap.ConcurrentMap
	current   cmap.ConcurrentMap
	inExecute bool // only flipped by the master between supersteps
	complete  bool
	iteration int64
	started   time.Time
	runtime   time.Duration
}

var _ Memory = &memory{}

func newMemory(keys []MemoryComputeKey) *memory {
	m := &memory{
		keys:     map[string]MemoryComputeKey{},
		previous: cmap.New(),
		current:  cmap.New(),
		started:  time.Now(),
	}
	for _, k := range keys {
		m.keys[k.Key] = k
	}
	return m
}

func (m *memory) Keys() []string {
	keys := m.values().Keys()
	sort.Strings(keys)
	return keys
}

func (m *memory) Get(key string) (interface{}, bool) {
	return m.values().Get(key)
}

func (m *memory) Exists(key string) bool {
	return m.values().Has(key)
}

func (m *memory) Set(key string, value interface{}) error {
	if m.complete {
		return fmt.Errorf("memory is read-only after the computation completes: %s", key)
	}
	if m.inExecute {
		return fmt.Errorf("memory can only be set by the master: %s", key)
	}
	if _, ok := m.keys[key]; !ok {
		return fmt.Errorf("memory key %s is not a declared memory compute key", key)
	}
	m.current.Set(key, value)
	return nil
}

func (m *memory) Add(key string, value interface{}) error {
	if m.complete || !m.inExecute {
		return fmt.Errorf("memory can only be added to during execute: %s", key)
	}
	mck, ok := m.keys[key]
	if !ok {
		return fmt.Errorf("memory key %s is not a declared memory compute key", key)
	}
	m.current.Upsert(key, value, func(exist bool, old, nv interface{}) interface{} {
		if !exist {
			return nv
		}
		return mck.Operator.Apply(old, nv)
	})
	return nil
}

func (m *memory) Iteration() int {
	return int(atomic.LoadInt64(&m.iteration))
}

func (m *memory) IsInitialIteration() bool {
	return m.Iteration() == 0
}

func (m *memory) Runtime() time.Duration {
	if m.complete {
		return m.runtime
	}
	return time.Since(m.started)
}

// values is the map reads are served from: the snapshot of the previous
// superstep while vertices execute, the live values otherwise.
func (m *memory) values() cmap.ConcurrentMap {
	if m.inExecute {
		return m.previous
	}
	return m.current
}

// completeSubRound snapshots current into previous and flips between the
// execute and master phases.
func (m *memory) completeSubRound() {
	snapshot := cmap.New()
	for item := range m.current.IterBuffered() {
		snapshot.Set(item.Key, item.Val)
	}
	m.previous = snapshot
	m.inExecute = !m.inExecute
}

func (m *memory) incrIteration() {
	atomic.AddInt64(&m.iteration, 1)
}

// finish makes memory read-only and drops transient keys.
func (m *memory) finish() {
	m.inExecute = false
	for key, mck := range m.keys {
		if mck.Transient {
			m.current.Remove(key)
		}
	}
	m.runtime = time.Since(m.started)
	m.complete = true
}
