// Copyright 2026, Square, Inc.

package traversal_test

import (
	"context"
	"testing"

	"github.com/go-test/deep"

	"github.com/square/vertigo/computer"
	"github.com/square/vertigo/computer/clustering"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/test"
	"github.com/square/vertigo/traversal"
)

// olap returns a root traversal over g that runs child as a traversal vertex
// program, with opts.
func olap(g graph.Graph, child *traversal.Traversal, opts computer.Options) *traversal.Traversal {
	root := traversal.New(g)
	tvp := traversal.NewTraversalVertexProgramStep(child)
	tvp.SetComputer(opts)
	root.AddStep(tvp)
	root.AddStep(traversal.NewComputerResultStep())
	return root
}

func TestTraversalVertexProgram(t *testing.T) {
	g := test.ModernGraph()

	tests := []struct {
		name   string
		child  *traversal.Traversal
		expect []interface{}
	}{
		{
			name:   "values at adjacent vertices",
			child:  __().V().Out("knows").Values("name"),
			expect: []interface{}{"josh", "vadas"},
		},
		{
			name:   "count barrier",
			child:  __().V().Out().Count(),
			expect: []interface{}{int64(6)},
		},
		{
			name:   "count of nothing",
			child:  __().V().HasLabel("nope").Out().Count(),
			expect: []interface{}{int64(0)},
		},
		{
			name:   "dedup hands elements back to their vertices",
			child:  __().V().Out().Dedup(),
			expect: []interface{}{"2", "3", "4", "5"},
		},
		{
			name:   "barrier then more steps",
			child:  __().V().Out("created").Dedup().In("created").Values("name").Dedup(),
			expect: []interface{}{"josh", "marko", "peter"},
		},
		{
			name:   "edges",
			child:  __().V("1").OutE().InV().Has("age", graph.Gt(0)).ID(),
			expect: []interface{}{"2", "4"},
		},
		{
			name:   "local at the vertex",
			child:  __().V().HasLabel("person").Local(__().OutE().Count()),
			expect: []interface{}{int64(0), int64(1), int64(2), int64(3)},
		},
	}
	for _, tt := range tests {
		for _, workers := range []int{1, 4} {
			t.Run(tt.name, func(t *testing.T) {
				root := olap(g, tt.child.Clone(), computer.Options{Workers: workers})
				if diff := deep.Equal(toList(t, root), tt.expect); diff != nil {
					t.Errorf("%d workers: %v", workers, diff)
				}
			})
		}
	}

	// The original graph is left as it was.
	v, _ := g.Vertex("2")
	if len(v.Values(computer.HALTED_TRAVERSERS)) > 0 {
		t.Error("halted traversers written to the original graph")
	}
}

func TestProgramChain(t *testing.T) {
	g := test.GraphOf("1-2", "3")

	// connectedComponent() then V().values(component), the way a graph
	// computer runs g.V().connectedComponent().values(component).
	root := traversal.New(g)
	cc := traversal.NewConnectedComponentStep()
	root.AddStep(cc)
	root.AddStep(traversal.NewTraversalVertexProgramStep(__().V()))
	root.AddStep(traversal.NewComputerResultStep())
	root.Values(clustering.COMPONENT)

	if diff := deep.Equal(toList(t, root), []interface{}{"1", "1", "3"}); diff != nil {
		t.Error(diff)
	}
	v, _ := g.Vertex("1")
	if _, ok := v.Value(clustering.COMPONENT); ok {
		t.Error("component written to the original graph")
	}
}

func TestProgramStepResult(t *testing.T) {
	g := test.GraphOf("a-b", "c-d")
	root := traversal.New(g)
	root.AddStep(traversal.NewConnectedComponentStep())

	trs, err := root.Traversers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(trs) != 1 {
		t.Fatalf("got %d traversers, expected 1", len(trs))
	}
	res, ok := trs[0].Value.(*computer.Result)
	if !ok {
		t.Fatalf("got %T, expected a *computer.Result", trs[0].Value)
	}
	expect := map[string][]string{"a": {"a", "b"}, "c": {"c", "d"}}
	if diff := deep.Equal(clustering.Groups(res.Graph, clustering.COMPONENT), expect); diff != nil {
		t.Error(diff)
	}
}

func TestProgramErrors(t *testing.T) {
	g := test.ModernGraph()

	// values() emits strings; out() cannot run on them.
	root := olap(g, __().V().Values("name").Out(), computer.Options{})
	if _, err := root.ToList(context.Background()); serr.Kind(err) != serr.KIND_EXECUTION {
		t.Errorf("got %v, expected an execution error", err)
	}

	root = olap(g, __().V(), computer.Options{GraphComputer: "nope"})
	if _, err := root.ToList(context.Background()); serr.Kind(err) != serr.KIND_CONFIGURATION {
		t.Errorf("got %v, expected a configuration error", err)
	}
}

func TestEdgeFilter(t *testing.T) {
	g := test.ModernGraph()
	v1, _ := g.Vertex("1")

	f := traversal.EdgeFilter{T: __().Union(__().OutE("knows"), __().InE())}
	edges, err := f.Edges(v1)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{}
	for _, e := range edges {
		got = append(got, e.ID())
	}
	if diff := deep.Equal(got, []string{"7", "8"}); diff != nil {
		t.Error(diff)
	}
	if f.Direction() != graph.BOTH {
		t.Errorf("direction %s, expected BOTH", f.Direction())
	}

	r := f.Reverse()
	v2, _ := g.Vertex("2")
	edges, err = r.Edges(v2)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 || edges[0].ID() != "7" {
		t.Errorf("reversed filter at v[2] got %v, expected [e[7]]", edges)
	}
	// Reversing does not change the original.
	if f.String() != "[UnionStep([[VertexStep(OUT,[knows],edge)], [VertexStep(IN,[],edge)]])]" {
		t.Errorf("original changed: %s", f)
	}

	single := traversal.EdgeTraversalOf(__().OutE("knows"))
	if diff := deep.Equal(single, computer.IncidentEdges{Dir: graph.OUT, Labels: []string{"knows"}}); diff != nil {
		t.Error(diff)
	}
}
