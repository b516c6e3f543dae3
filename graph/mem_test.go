// Copyright 2026, Square, Inc.

package graph_test

import (
	"sort"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/square/vertigo/graph"
)

func ids(es interface{}) []string {
	out := []string{}
	switch v := es.(type) {
	case []graph.Vertex:
		for _, e := range v {
			out = append(out, e.ID())
		}
	case []graph.Edge:
		for _, e := range v {
			out = append(out, e.ID())
		}
	}
	return out
}

func modern(t *testing.T, indexKeys ...string) *graph.Mem {
	g := graph.NewMem(indexKeys...)
	people := []struct{ id, label, name string }{
		{"1", "person", "marko"},
		{"2", "person", "vadas"},
		{"3", "software", "lop"},
		{"4", "person", "josh"},
		{"5", "software", "ripple"},
		{"6", "person", "peter"},
	}
	for _, p := range people {
		if _, err := g.AddVertex(p.id, p.label, map[string]interface{}{"name": p.name}); err != nil {
			t.Fatal(err)
		}
	}
	edges := []struct{ id, label, out, in string }{
		{"7", "knows", "1", "2"},
		{"8", "knows", "1", "4"},
		{"9", "created", "1", "3"},
		{"10", "created", "4", "5"},
		{"11", "created", "4", "3"},
		{"12", "created", "6", "3"},
	}
	for _, e := range edges {
		if _, err := g.AddEdge(e.id, e.label, e.out, e.in, nil); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestEdgesByDirectionAndLabel(t *testing.T) {
	g := modern(t)
	v, ok := g.Vertex("1")
	if !ok {
		t.Fatal("vertex 1 not found")
	}

	if diff := deep.Equal(ids(v.Edges(graph.OUT)), []string{"7", "8", "9"}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(ids(v.Edges(graph.OUT, "knows")), []string{"7", "8"}); diff != nil {
		t.Error(diff)
	}
	if got := v.Edges(graph.IN); len(got) != 0 {
		t.Errorf("got %d in edges, expected 0", len(got))
	}

	lop, _ := g.Vertex("3")
	if diff := deep.Equal(ids(lop.Vertices(graph.BOTH)), []string{"1", "4", "6"}); diff != nil {
		t.Error(diff)
	}
}

func TestSetPropertyCardinality(t *testing.T) {
	g := graph.NewMem()
	v, err := g.AddVertex("1", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Label() != "vertex" {
		t.Errorf("label = %s, expected vertex", v.Label())
	}

	v.SetProperty(graph.LIST, "nick", "a")
	v.SetProperty(graph.LIST, "nick", "a")
	if diff := deep.Equal(v.Values("nick"), []interface{}{"a", "a"}); diff != nil {
		t.Error(diff)
	}

	v.SetProperty(graph.SET, "tag", "x")
	v.SetProperty(graph.SET, "tag", "x")
	v.SetProperty(graph.SET, "tag", "y")
	if diff := deep.Equal(v.Values("tag"), []interface{}{"x", "y"}); diff != nil {
		t.Error(diff)
	}

	v.SetProperty(graph.SINGLE, "nick", "b")
	if diff := deep.Equal(v.Values("nick"), []interface{}{"b"}); diff != nil {
		t.Error(diff)
	}

	if err := v.SetProperty(graph.SINGLE, graph.T_ID, "x"); err == nil {
		t.Error("expected an error setting ~id, got nil")
	}
}

func TestLookupIndexMatchesScan(t *testing.T) {
	indexed := modern(t, "name")
	scanned := modern(t)

	for _, name := range []string{"marko", "lop", "nobody"} {
		a := ids(indexed.Lookup("name", name))
		b := ids(scanned.Lookup("name", name))
		if diff := deep.Equal(a, b); diff != nil {
			t.Errorf("%s: %v", name, diff)
		}
	}

	// Index must follow SINGLE replacement.
	v, _ := indexed.Vertex("2")
	v.SetProperty(graph.SINGLE, "name", "marko")
	got := ids(indexed.Lookup("name", "marko"))
	sort.Strings(got)
	if diff := deep.Equal(got, []string{"1", "2"}); diff != nil {
		t.Error(diff)
	}
	if got := indexed.Lookup("name", "vadas"); len(got) != 0 {
		t.Errorf("stale index entry for vadas: %v", ids(got))
	}
}

func TestLookupNumbers(t *testing.T) {
	g := graph.NewMem("age")
	g.AddVertex("1", "", map[string]interface{}{"age": 29})
	g.AddVertex("2", "", map[string]interface{}{"age": 29.0})
	got := ids(g.Lookup("age", int64(29)))
	if diff := deep.Equal(got, []string{"1", "2"}); diff != nil {
		t.Error(diff)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := modern(t, "name")
	c := g.Clone()

	v, _ := c.Vertex("1")
	v.SetProperty(graph.SINGLE, "name", "changed")
	orig, _ := g.Vertex("1")
	if name, _ := orig.Value("name"); name != "marko" {
		t.Errorf("original name = %v, expected marko", name)
	}
	if got := ids(c.Lookup("name", "changed")); len(got) != 1 {
		t.Errorf("clone index: got %v", got)
	}
	if len(c.Edges()) != 6 {
		t.Errorf("clone has %d edges, expected 6", len(c.Edges()))
	}
}

func TestAddEdgeErrors(t *testing.T) {
	g := modern(t)
	if _, err := g.AddEdge("13", "knows", "1", "99", nil); err == nil {
		t.Error("expected error for unknown in vertex")
	}
	if _, err := g.AddEdge("7", "knows", "1", "2", nil); err == nil {
		t.Error("expected error for duplicate edge id")
	}
	if _, err := g.AddVertex("1", "person", nil); err == nil {
		t.Error("expected error for duplicate vertex id")
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		p      graph.P
		v      interface{}
		expect bool
	}{
		{graph.Eq(1), 1.0, true},
		{graph.Eq("a"), "a", true},
		{graph.Eq("1"), 1, false},
		{graph.Neq(1), 2, true},
		{graph.Lt(3), 2, true},
		{graph.Lte(3), 3, true},
		{graph.Gt("b"), "c", true},
		{graph.Gte(3), 2, false},
		{graph.Within("a", "b"), "b", true},
		{graph.Within("a", "b"), "c", false},
		{graph.Lt(3), "2", false},
	}
	for _, tt := range tests {
		if got := tt.p.Test(tt.v); got != tt.expect {
			t.Errorf("%s.Test(%v) = %t, expected %t", tt.p, tt.v, got, tt.expect)
		}
	}
}

func TestLoadYAML(t *testing.T) {
	doc := `
indexes: [name]
vertices:
  - id: "1"
    label: person
    properties: {name: marko, nick: [mk, marko]}
  - id: "2"
    label: person
    properties: {name: vadas}
edges:
  - {id: "7", label: knows, out: "1", in: "2", properties: {weight: 0.5}}
`
	g, err := graph.LoadYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !g.Indexed("name") {
		t.Error("name not indexed")
	}
	v, _ := g.Vertex("1")
	if diff := deep.Equal(v.Values("nick"), []interface{}{"mk", "marko"}); diff != nil {
		t.Error(diff)
	}
	e, ok := g.Edge("7")
	if !ok {
		t.Fatal("edge 7 not found")
	}
	if w, _ := e.Value("weight"); w != 0.5 {
		t.Errorf("weight = %v, expected 0.5", w)
	}
}

func TestLoadYAMLReportsAllProblems(t *testing.T) {
	doc := `
vertices:
  - {id: "1"}
  - {id: "1"}
edges:
  - {id: "7", out: "1", in: "2"}
  - {id: "8", out: "3", in: "1"}
`
	_, err := graph.LoadYAML(strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	for _, want := range []string{"vertices[1]", "edges[0]", "edges[1]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
