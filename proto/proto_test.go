// Copyright 2026, Square, Inc.

package proto_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/go-test/deep"

	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/proto"
	"github.com/square/vertigo/test"
	"github.com/square/vertigo/traversal"
)

func TestTraversersOverJSON(t *testing.T) {
	g := test.ModernGraph()
	marko, _ := g.Vertex("1")
	knows, _ := g.Edge("7")
	in := []*traversal.Traverser{
		{Value: marko, Bulk: 1},
		{Value: int64(6), Bulk: 2},
		{Value: 0.5, Bulk: 1},
		{Value: []interface{}{knows, "x"}, Bulk: 1},
		{Value: map[string]interface{}{"id": "1", "label": "person"}, Bulk: 1},
		{
			Value: "vadas",
			Bulk:  1,
			Path: &traversal.Path{
				Objects: []interface{}{marko, "vadas"},
				Labels:  [][]string{{"a"}, {}},
			},
		},
	}

	data, err := json.Marshal(proto.EncodeTraversers(in))
	if err != nil {
		t.Fatal(err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var wire []proto.Traverser
	if err := dec.Decode(&wire); err != nil {
		t.Fatal(err)
	}
	got := proto.DecodeTraversers(wire)

	markoRef := graph.Reference{ID: "1", Label: "person", Type: "vertex"}
	expect := []*traversal.Traverser{
		{Value: markoRef, Bulk: 1},
		{Value: int64(6), Bulk: 2},
		{Value: 0.5, Bulk: 1},
		{Value: []interface{}{graph.Reference{ID: "7", Label: "knows", Type: "edge"}, "x"}, Bulk: 1},
		{Value: map[string]interface{}{"id": "1", "label": "person"}, Bulk: 1},
		{
			Value: "vadas",
			Bulk:  1,
			Path: &traversal.Path{
				Objects: []interface{}{markoRef, "vadas"},
				Labels:  [][]string{{"a"}, {}},
			},
		},
	}
	if diff := deep.Equal(got, expect); diff != nil {
		t.Error(diff)
	}
}

func TestErrorMessage(t *testing.T) {
	e := proto.NewError("no computation %s", "abc")
	if e.Error() != "no computation abc" || e.String() != e.Error() {
		t.Errorf("got %q", e.Error())
	}
	if proto.NewError("").Message != "" {
		t.Error("empty format gave a message")
	}
}
