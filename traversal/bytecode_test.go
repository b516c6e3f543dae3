// Copyright 2026, Square, Inc.

package traversal_test

import (
	"encoding/json"
	"testing"

	"github.com/go-test/deep"

	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/test"
	"github.com/square/vertigo/test/mock"
	"github.com/square/vertigo/traversal"
)

// overJSON returns bc as it arrives on the other side of a connection.
func overJSON(t *testing.T, bc *traversal.Bytecode) *traversal.Bytecode {
	bytes, err := json.Marshal(bc)
	if err != nil {
		t.Fatal(err)
	}
	var out traversal.Bytecode
	if err := json.Unmarshal(bytes, &out); err != nil {
		t.Fatal(err)
	}
	return &out
}

func TestTranslate(t *testing.T) {
	g := test.ModernGraph()
	src := traversal.NewSource(g)

	build := []func() *traversal.Traversal{
		func() *traversal.Traversal {
			return src.V().Has("age", graph.Gt(28)).As("p").Out("created").Values("name").Dedup()
		},
		func() *traversal.Traversal {
			return src.V("1", "4").Union(__().OutE("knows").InV(), __().In()).Range(0, 3).ID()
		},
		func() *traversal.Traversal {
			return src.V().HasLabel("person", "software").Not(__().Both()).Count()
		},
		func() *traversal.Traversal {
			return src.V().Local(__().Out().Count()).Is(0).Fold()
		},
		func() *traversal.Traversal {
			return src.E().HasID("9").Filter(__().OutV().Has("name", "marko")).BothV().Path()
		},
		func() *traversal.Traversal {
			return src.V().ConnectedComponent().With(traversal.CC_EDGES, __().OutE("knows")).With(traversal.CC_PROPERTY, "cc")
		},
	}
	for _, b := range build {
		orig := b()
		for _, bc := range []*traversal.Bytecode{orig.Bytecode(), overJSON(t, orig.Bytecode())} {
			tr, err := traversal.Translate(src, bc, nil)
			if err != nil {
				t.Fatalf("%s: %s", orig, err)
			}
			if diff := deep.Equal(tr.String(), orig.String()); diff != nil {
				t.Error(diff)
			}
		}
	}
}

func TestTranslateSameResults(t *testing.T) {
	src := traversal.NewSource(test.ModernGraph())
	orig := src.V().Has("name", graph.Within("josh", "marko")).Out().Values("name")
	tr, err := traversal.Translate(src, overJSON(t, orig.Bytecode()), nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(toList(t, tr), toList(t, orig)); diff != nil {
		t.Error(diff)
	}
}

func TestTranslateStrategies(t *testing.T) {
	s := mock.NewStrategy("S", traversal.OPTIMIZATION)
	registry := traversal.StrategyRegistry{
		"S": func(cfg map[string]interface{}) (traversal.Strategy, error) { return s, nil },
		"R": func(cfg map[string]interface{}) (traversal.Strategy, error) {
			return mock.NewStrategy("R", traversal.OPTIMIZATION), nil
		},
	}
	client := traversal.NewSource(test.ModernGraph()).
		WithStrategies(mock.NewStrategy("S", traversal.OPTIMIZATION), mock.NewStrategy("R", traversal.OPTIMIZATION)).
		WithoutStrategies("R")
	orig := client.V().Count()

	server := traversal.NewSource(test.ModernGraph())
	tr, err := traversal.Translate(server, overJSON(t, orig.Bytecode()), registry)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(tr.Strategies().String(), "strategies[S]"); diff != nil {
		t.Error(diff)
	}
	if got, _ := tr.Strategies().Get("S"); got != s {
		t.Error("strategy not built by the registry")
	}
	if diff := deep.Equal(toList(t, tr), []interface{}{int64(6)}); diff != nil {
		t.Error(diff)
	}
	if len(s.Applied) == 0 {
		t.Error("translated strategy not applied")
	}

	_, err = traversal.Translate(server, orig.Bytecode(), traversal.StrategyRegistry{})
	if serr.Kind(err) != serr.KIND_CONFIGURATION {
		t.Errorf("unknown strategy: got %v, expected a configuration error", err)
	}
}

func TestTranslateErrors(t *testing.T) {
	src := traversal.NewSource(test.ModernGraph())
	lambda := src.V().Map("id", func(v interface{}) interface{} { return v })

	tests := []struct {
		name string
		bc   *traversal.Bytecode
	}{
		{"lambda", lambda.Bytecode()},
		{"unknown step", &traversal.Bytecode{Steps: []traversal.Instruction{{Op: "nope"}}}},
		{"unknown source", &traversal.Bytecode{Source: []traversal.Instruction{{Op: "withNope"}}}},
		{"missing child", &traversal.Bytecode{Steps: []traversal.Instruction{{Op: traversal.OP_NOT}}}},
		{"bad range", &traversal.Bytecode{Steps: []traversal.Instruction{{Op: traversal.OP_RANGE, Args: []interface{}{"a", 1}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := traversal.Translate(src, tt.bc, nil)
			if serr.Kind(err) != serr.KIND_ILLEGAL_STATE || err == nil {
				t.Errorf("got %v, expected an illegal state error", err)
			}
		})
	}
}
