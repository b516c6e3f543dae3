// Copyright 2026, Square, Inc.

package traversal

import (
	"fmt"
	"strings"
	"time"
)

// METRICS is the side effect key profile metrics are kept under.
const METRICS = "~metrics"

// StepMetrics are the numbers recorded for one profiled step.
type StepMetrics struct {
	Step       string        `json:"step"`
	Traversers int64         `json:"traversers"`
	Count      int64         `json:"count"` // sum of bulks
	Duration   time.Duration `json:"duration"`

	id string
}

// Metrics is the result of profile(): one entry per profiled step, in the
// order the steps first ran.
type Metrics struct {
	Steps []StepMetrics `json:"steps"`
}

// Duration is the total time of all profiled steps.
func (m *Metrics) Duration() time.Duration {
	var d time.Duration
	for _, s := range m.Steps {
		d += s.Duration
	}
	return d
}

func (m *Metrics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-60s %10s %10s %12s\n", "Step", "Traversers", "Count", "Time")
	for _, s := range m.Steps {
		fmt.Fprintf(&b, "%-60s %10d %10d %12s\n", s.Step, s.Traversers, s.Count, s.Duration)
	}
	fmt.Fprintf(&b, "%-60s %10s %10s %12s", "TOTAL", "", "", m.Duration())
	return b.String()
}

// add returns a copy of m with the numbers of one run of a step added.
func (m *Metrics) add(id, step string, traversers, count int64, d time.Duration) *Metrics {
	n := &Metrics{Steps: append([]StepMetrics(nil), m.Steps...)}
	for i := range n.Steps {
		if n.Steps[i].id == id {
			n.Steps[i].Traversers += traversers
			n.Steps[i].Count += count
			n.Steps[i].Duration += d
			return n
		}
	}
	n.Steps = append(n.Steps, StepMetrics{Step: step, Traversers: traversers, Count: count, Duration: d, id: id})
	return n
}

// record adds out, what the profiled step emitted in d, to the metrics.
func (s *ProfileStep) record(ex *execution, out []*Traverser, d time.Duration) {
	var count int64
	for _, tr := range out {
		count += tr.Bulk
	}
	ex.sideEffects.Update(METRICS, func(old interface{}) interface{} {
		m, ok := old.(*Metrics)
		if !ok {
			m = &Metrics{}
		}
		return m.add(s.ID(), s.Target, int64(len(out)), count, d)
	})
}
