// Copyright 2026, Square, Inc.

package computer_test

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/square/vertigo/computer"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/test"
	"github.com/square/vertigo/test/mock"
)

func TestParseEdgeTraversal(t *testing.T) {
	tests := []struct {
		s      string
		expect computer.IncidentEdges
	}{
		{"bothE()", computer.IncidentEdges{Dir: graph.BOTH}},
		{"outE(knows)", computer.IncidentEdges{Dir: graph.OUT, Labels: []string{"knows"}}},
		{" inE(knows, created) ", computer.IncidentEdges{Dir: graph.IN, Labels: []string{"knows", "created"}}},
	}
	for _, tt := range tests {
		got, err := computer.ParseEdgeTraversal(tt.s)
		if err != nil {
			t.Errorf("%s: %s", tt.s, err)
			continue
		}
		if diff := deep.Equal(got, tt.expect); diff != nil {
			t.Errorf("%s: %v", tt.s, diff)
		}
		// Round trip
		again, err := computer.ParseEdgeTraversal(got.String())
		if err != nil {
			t.Error(err)
		}
		if diff := deep.Equal(again, got); diff != nil {
			t.Errorf("%s: %v", got, diff)
		}
	}

	for _, bad := range []string{"", "out()", "sideE()", "outE(a)(b)", "outE"} {
		if _, err := computer.ParseEdgeTraversal(bad); err == nil {
			t.Errorf("%q: expected an error, got nil", bad)
		}
	}
}

func TestReverse(t *testing.T) {
	ie := computer.IncidentEdges{Dir: graph.OUT, Labels: []string{"knows"}}
	rev := ie.Reverse()
	if rev.Direction() != graph.IN {
		t.Errorf("reverse direction = %s, expected IN", rev.Direction())
	}
	if rev.String() != "inE(knows)" {
		t.Errorf("reverse = %s, expected inE(knows)", rev)
	}
	if computer.BothE().Reverse().Direction() != graph.BOTH {
		t.Error("reverse of bothE is not bothE")
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		op     computer.Operator
		a, b   interface{}
		expect interface{}
	}{
		{computer.AND, true, false, false},
		{computer.OR, false, true, true},
		{computer.SUM, int64(2), int64(3), int64(5)},
		{computer.SUM, int64(2), 0.5, 2.5},
		{computer.MIN, "b", "a", "a"},
		{computer.MIN, 3, 4, 3},
		{computer.MAX, 3, 4, 4},
		{computer.ADD_ALL, []interface{}{1}, []interface{}{2, 3}, []interface{}{1, 2, 3}},
		{computer.ASSIGN, "old", "new", "new"},
	}
	for _, tt := range tests {
		got := tt.op.Apply(tt.a, tt.b)
		if diff := deep.Equal(got, tt.expect); diff != nil {
			t.Errorf("%s(%v, %v): %v", tt.op, tt.a, tt.b, diff)
		}
	}
}

func TestProgramsLoad(t *testing.T) {
	g := test.ModernGraph()
	var loaded computer.Configuration
	programs := computer.Programs{
		"mock": func() computer.VertexProgram {
			return &mock.VertexProgram{
				LoadStateFunc: func(g graph.Graph, cfg computer.Configuration) error {
					loaded = cfg
					return nil
				},
			}
		},
	}

	cfg := computer.Configuration{computer.VERTEX_PROGRAM: "mock", "other.key": 1}
	p, err := programs.Load(g, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "mock" {
		t.Errorf("program = %s, expected mock", p.Name())
	}
	if diff := deep.Equal(loaded, cfg); diff != nil {
		t.Error(diff)
	}

	for _, cfg := range []computer.Configuration{
		{},
		{computer.VERTEX_PROGRAM: "pageRank"},
	} {
		_, err := programs.Load(g, cfg)
		if k := serr.Kind(err); k != serr.KIND_CONFIGURATION {
			t.Errorf("%v: error kind = %s, expected %s", cfg, k, serr.KIND_CONFIGURATION)
		}
	}
}

func TestConfigurationInt(t *testing.T) {
	cfg := computer.Configuration{"a": 3, "b": "4", "c": "x", "d": 5.0}
	for key, expect := range map[string]int{"a": 3, "b": 4, "d": 5} {
		n, ok, err := cfg.Int(key)
		if err != nil || !ok || n != expect {
			t.Errorf("%s: got %d, %t, %v; expected %d", key, n, ok, err, expect)
		}
	}
	if _, _, err := cfg.Int("c"); err == nil {
		t.Error("expected an error for a non-integer, got nil")
	}
	if _, ok, _ := cfg.Int("missing"); ok {
		t.Error("missing key reported present")
	}
}
