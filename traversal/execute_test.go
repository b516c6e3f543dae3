// Copyright 2026, Square, Inc.

package traversal_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-test/deep"

	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/test"
	"github.com/square/vertigo/traversal"
)

var __ = traversal.Anon

// ids replaces elements with their ids.
func ids(vals []interface{}) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case graph.Element:
			out[i] = x.ID()
		case graph.Reference:
			out[i] = x.ID
		case []interface{}:
			out[i] = ids(x)
		default:
			out[i] = v
		}
	}
	return out
}

func toList(t *testing.T, tr *traversal.Traversal) []interface{} {
	t.Helper()
	vals, err := tr.ToList(context.Background())
	if err != nil {
		t.Fatalf("%s: %s", tr, err)
	}
	return ids(vals)
}

func TestOLTP(t *testing.T) {
	g := traversal.NewSource(test.ModernGraph("name"))

	tests := []struct {
		name   string
		tr     *traversal.Traversal
		expect []interface{}
	}{
		{
			name:   "out by label",
			tr:     g.V("1").Out("knows").Values("name"),
			expect: []interface{}{"vadas", "josh"},
		},
		{
			name:   "count",
			tr:     g.V().Count(),
			expect: []interface{}{int64(6)},
		},
		{
			name:   "count of nothing",
			tr:     g.V("2").Out().Count(),
			expect: []interface{}{int64(0)},
		},
		{
			name:   "dedup",
			tr:     g.V().Out().Dedup(),
			expect: []interface{}{"2", "4", "3", "5"},
		},
		{
			name:   "limit",
			tr:     g.V().Limit(2),
			expect: []interface{}{"1", "2"},
		},
		{
			name:   "range",
			tr:     g.V().Range(1, 3),
			expect: []interface{}{"2", "3"},
		},
		{
			name:   "not",
			tr:     g.V().HasLabel("person").Not(__().Out("created")),
			expect: []interface{}{"2"},
		},
		{
			name:   "filter",
			tr:     g.V().Filter(__().In("created")).Values("name"),
			expect: []interface{}{"lop", "ripple"},
		},
		{
			name:   "union",
			tr:     g.V("1").Union(__().Out("knows"), __().Out("created")).Values("name"),
			expect: []interface{}{"vadas", "josh", "lop"},
		},
		{
			name:   "local count",
			tr:     g.V().Local(__().Out().Count()),
			expect: []interface{}{int64(3), int64(0), int64(0), int64(2), int64(0), int64(1)},
		},
		{
			name:   "has gt",
			tr:     g.V().Has("age", graph.Gt(30)).Values("name"),
			expect: []interface{}{"josh", "peter"},
		},
		{
			name:   "has on an index",
			tr:     g.V().Has("name", "josh"),
			expect: []interface{}{"4"},
		},
		{
			name:   "has id",
			tr:     g.V().HasID("6", "2"),
			expect: []interface{}{"2", "6"},
		},
		{
			name:   "edges",
			tr:     g.E().HasLabel("knows").InV().ID(),
			expect: []interface{}{"2", "4"},
		},
		{
			name:   "other vertex",
			tr:     g.V("4").BothE().OtherV(),
			expect: []interface{}{"5", "3", "1"},
		},
		{
			name:   "path",
			tr:     g.V("1").OutE("knows").InV().Path(),
			expect: []interface{}{[]interface{}{"1", "7", "2"}, []interface{}{"1", "8", "4"}},
		},
		{
			name:   "label",
			tr:     g.V("3", "4").Label(),
			expect: []interface{}{"software", "person"},
		},
		{
			name: "lambda",
			tr: g.V().FilterFunc("aged", func(v interface{}) bool {
				return len(v.(graph.Vertex).Values("age")) > 0
			}).Map("name", func(v interface{}) interface{} {
				return v.(graph.Vertex).Values("name")[0]
			}),
			expect: []interface{}{"marko", "vadas", "josh", "peter"},
		},
		{
			name:   "fold",
			tr:     g.V("1").Out().Fold(),
			expect: []interface{}{[]interface{}{"2", "4", "3"}},
		},
		{
			name:   "is",
			tr:     g.V().Local(__().Out().Count()).Is(graph.Gte(2)),
			expect: []interface{}{int64(3), int64(2)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := deep.Equal(toList(t, tt.tr), tt.expect); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestPathLabels(t *testing.T) {
	g := traversal.NewSource(test.ModernGraph())
	trs, err := g.V("1").As("a").Out("knows").As("b").Has("age", graph.Lt(30)).As("c").Path().Traversers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(trs) != 1 {
		t.Fatalf("got %d traversers, expected 1", len(trs))
	}
	path := trs[0].Value.([]interface{})
	if diff := deep.Equal(ids(path), []interface{}{"1", "2"}); diff != nil {
		t.Error(diff)
	}
	// The label of the filter names the object it passed.
	expect := [][]string{{"a"}, {"b", "c"}}
	if diff := deep.Equal(trs[0].Path.Labels[:2], expect); diff != nil {
		t.Error(diff)
	}
}

func TestBulkLimit(t *testing.T) {
	g := traversal.NewSource(test.ModernGraph())
	// Three traversers reach lop; limit(2) keeps two of them.
	vals := toList(t, g.V().Out("created").Has("name", "lop").Limit(2))
	if diff := deep.Equal(vals, []interface{}{"3", "3"}); diff != nil {
		t.Error(diff)
	}
}

func TestExecutionErrors(t *testing.T) {
	g := traversal.NewSource(test.ModernGraph())

	_, err := g.V().Values("name").Out().ToList(context.Background())
	if serr.Kind(err) != serr.KIND_EXECUTION {
		t.Errorf("got %v, expected an execution error", err)
	}

	// Unbound traversals cannot start at the graph.
	_, err = traversal.Anon().V().ToList(context.Background())
	if serr.Kind(err) != serr.KIND_EXECUTION {
		t.Errorf("got %v, expected an execution error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.V().ToList(ctx); err == nil {
		t.Error("no error with a canceled context")
	}
}

func TestBuilderString(t *testing.T) {
	tr := __().V().Has("name", "marko").As("a").OutE("knows").InV().
		Not(__().Values("age").Is(graph.Gt(30))).Range(0, 5).Count()
	expect := "[GraphStep(vertex,[]), HasStep([name.eq(marko)])@[a], VertexStep(OUT,[knows],edge), " +
		"EdgeVertexStep(IN), NotStep([PropertiesStep([age],value), IsStep(gt(30))]), RangeGlobalStep(0,5), CountGlobalStep]"
	if tr.String() != expect {
		t.Errorf("got %s, expected %s", tr, expect)
	}

	cc := __().V().ConnectedComponent().With(traversal.CC_EDGES, __().OutE("knows")).With(traversal.CC_PROPERTY, "cc")
	if err := cc.Err(); err != nil {
		t.Fatal(err)
	}
	expect = "[GraphStep(vertex,[]), ConnectedComponentVertexProgramStep([outE(knows), cc])]"
	if cc.String() != expect {
		t.Errorf("got %s, expected %s", cc, expect)
	}

	if err := __().V().With(traversal.CC_PROPERTY, "cc").Err(); serr.Kind(err) != serr.KIND_ILLEGAL_STATE {
		t.Errorf("with() on a GraphStep: got %v, expected an illegal state error", err)
	}
	if err := __().As("a").Err(); err == nil {
		t.Error("as() on an empty traversal did not fail")
	}
	if err := __().V().ConnectedComponent().With("nope", 1).Err(); serr.Kind(err) != serr.KIND_CONFIGURATION {
		t.Errorf("unknown option: got %v, expected a configuration error", err)
	}
}

func ExampleTraversal_ToList() {
	g := traversal.NewSource(test.ModernGraph())
	names, _ := g.V("4").Out("created").Values("name").ToList(context.Background())
	fmt.Println(names)
	// Output: [ripple lop]
}
