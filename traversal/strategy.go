// Copyright 2026, Square, Inc.

package traversal

import (
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	serr "github.com/square/vertigo/errors"
)

// Phase is the macro order of strategies: all decorations apply before all
// optimizations, and so on, whatever the strategies declare.
type Phase int

const (
	DECORATION Phase = iota
	OPTIMIZATION
	FINALIZATION
	VERIFICATION
)

var Phases = []Phase{DECORATION, OPTIMIZATION, FINALIZATION, VERIFICATION}

var phaseNames = map[Phase]string{
	DECORATION:   "decoration",
	OPTIMIZATION: "optimization",
	FINALIZATION: "finalization",
	VERIFICATION: "verification",
}

func (p Phase) String() string {
	return phaseNames[p]
}

// Strategy rewrites a traversal in place before it is locked for execution.
// Strategies are stateless after construction. Apply is called once per
// traversal, on the root first and then on every child traversal, and must
// leave an already-rewritten traversal unchanged.
type Strategy interface {
	// Name identifies the strategy; a Strategies set holds one per name.
	Name() string
	Phase() Phase

	// ApplyPrior names the strategies this one must be applied prior to.
	ApplyPrior() []string

	// ApplyPost names the strategies this one must be applied after.
	ApplyPost() []string

	Apply(t *Traversal) error
}

// Configurable is implemented by strategies that have a configuration, so
// they can be rebuilt by a StrategyRegistry on the other side of a connection.
type Configurable interface {
	Configuration() map[string]interface{}
}

// Strategies is an ordered set of strategies, unique by name. Insertion order
// breaks ties between strategies with no declared relationship.
type Strategies struct {
	list []Strategy
}

func NewStrategies(ss ...Strategy) *Strategies {
	s := &Strategies{}
	s.Add(ss...)
	return s
}

// Add adds strategies, replacing any with the same name. A replaced strategy
// moves to the end of the insertion order.
func (s *Strategies) Add(ss ...Strategy) *Strategies {
	for _, n := range ss {
		s.Remove(n.Name())
		s.list = append(s.list, n)
	}
	return s
}

// Remove removes the named strategies.
func (s *Strategies) Remove(names ...string) *Strategies {
	for _, name := range names {
		for i, n := range s.list {
			if n.Name() == name {
				s.list = append(s.list[:i:i], s.list[i+1:]...)
				break
			}
		}
	}
	return s
}

func (s *Strategies) Get(name string) (Strategy, bool) {
	for _, n := range s.list {
		if n.Name() == name {
			return n, true
		}
	}
	return nil, false
}

// List returns the strategies in insertion order.
func (s *Strategies) List() []Strategy {
	return append([]Strategy(nil), s.list...)
}

func (s *Strategies) Clone() *Strategies {
	return &Strategies{list: s.List()}
}

// Sorted returns the application order. See Sort.
func (s *Strategies) Sorted() ([]Strategy, error) {
	return Sort(s.list)
}

func (s *Strategies) String() string {
	names := make([]string, len(s.list))
	for i, n := range s.list {
		names[i] = n.Name()
	}
	return "strategies[" + strings.Join(names, ", ") + "]"
}

// Sort orders strategies by phase and, within a phase, topologically by
// ApplyPrior/ApplyPost. When several strategies are free to go next, the one
// inserted first goes first, so the order is deterministic. Constraints on
// strategies of other phases, or not in ss, are ignored. A cycle is a
// ConfigurationError.
func Sort(ss []Strategy) ([]Strategy, error) {
	var out []Strategy
	for _, phase := range Phases {
		var nodes []Strategy
		index := map[string]int{}
		for _, s := range ss {
			if s.Phase() == phase {
				index[s.Name()] = len(nodes)
				nodes = append(nodes, s)
			}
		}

		// edge a -> b: a applies before b
		next := make([]map[int]bool, len(nodes))
		indeg := make([]int, len(nodes))
		for i := range next {
			next[i] = map[int]bool{}
		}
		edge := func(a, b int) {
			if a != b && !next[a][b] {
				next[a][b] = true
				indeg[b]++
			}
		}
		for i, s := range nodes {
			for _, name := range s.ApplyPrior() {
				if j, ok := index[name]; ok {
					edge(i, j)
				}
			}
			for _, name := range s.ApplyPost() {
				if j, ok := index[name]; ok {
					edge(j, i)
				}
			}
		}

		done := make([]bool, len(nodes))
		for n := 0; n < len(nodes); n++ {
			pick := -1
			for i := range nodes {
				if !done[i] && indeg[i] == 0 {
					pick = i
					break
				}
			}
			if pick < 0 {
				var cycle []string
				for i, s := range nodes {
					if !done[i] {
						cycle = append(cycle, s.Name())
					}
				}
				sort.Strings(cycle)
				return nil, serr.NewConfigurationError("strategies", "%s strategies have cyclic dependencies: %s",
					phase, strings.Join(cycle, ", "))
			}
			done[pick] = true
			out = append(out, nodes[pick])
			for j := range next[pick] {
				indeg[j]--
			}
		}
	}
	return out, nil
}

// ApplyStrategies applies the strategies of the root traversal to t, then to
// every child traversal, and locks t. It does nothing if t is already locked.
// If a strategy fails (a verification strategy rejecting the traversal, say),
// t is left unlocked and the error is returned.
func (t *Traversal) ApplyStrategies() error {
	if t.locked {
		return nil
	}
	if t.err != nil {
		return t.err
	}
	sorted, err := t.Strategies().Sorted()
	if err != nil {
		return err
	}
	if t.IsRoot() {
		names := make([]string, len(sorted))
		for i, s := range sorted {
			names[i] = s.Name()
		}
		log.Debugf("applying strategies %v to %s", names, t)
	}
	for _, s := range sorted {
		if err := s.Apply(t); err != nil {
			return err
		}
	}
	for _, s := range t.steps {
		for _, c := range Children(s) {
			if err := c.ApplyStrategies(); err != nil {
				return err
			}
		}
	}
	t.locked = true
	return nil
}

// --------------------------------------------------------------------------

// StrategyFactory builds a strategy from a flat configuration.
type StrategyFactory func(cfg map[string]interface{}) (Strategy, error)

// StrategyRegistry maps strategy names to factories. It is built explicitly and
// passed to whatever needs to build strategies by name.
type StrategyRegistry map[string]StrategyFactory

// Build returns the named strategy configured from cfg.
func (r StrategyRegistry) Build(name string, cfg map[string]interface{}) (Strategy, error) {
	f, ok := r[name]
	if !ok {
		return nil, serr.NewConfigurationError("strategy", "unknown strategy %q", name)
	}
	if cfg == nil {
		cfg = map[string]interface{}{}
	}
	return f(cfg)
}

// Names returns the sorted strategy names.
func (r StrategyRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
