// Copyright 2026, Square, Inc.

// Package test provides helper functions for tests.
package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/square/vertigo/graph"
)

// MakeHTTPRequest is a helper function for making an http request. The response
// body of the http request is unmarshalled into the struct pointed to by the
// respStruct argument (if it's not nil). The status code of the response and
// the response headers are returned.
func MakeHTTPRequest(httpVerb, url string, payload []byte, respStruct interface{}) (int, http.Header, error) {
	var statusCode int
	// Make the http request.
	req, err := http.NewRequest(httpVerb, url, bytes.NewReader(payload))
	if err != nil {
		return statusCode, http.Header{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := (http.DefaultClient).Do(req)
	if err != nil {
		return statusCode, http.Header{}, err
	}
	defer res.Body.Close()

	if respStruct != nil {
		decoder := json.NewDecoder(res.Body)
		err = decoder.Decode(respStruct)
		if err != nil {
			return statusCode, res.Header, fmt.Errorf("error decoding response body")
		}
	}

	return res.StatusCode, res.Header, nil
}

// ModernGraph returns the six-vertex "modern" toy graph:
//
//   1 marko (person, 29)  -knows->   2 vadas (person, 27)
//   1 marko               -knows->   4 josh (person, 32)
//   1 marko               -created-> 3 lop (software)
//   4 josh                -created-> 5 ripple (software)
//   4 josh                -created-> 3 lop
//   6 peter (person, 35)  -created-> 3 lop
//
// Edge ids are 7 to 12 in that order.
func ModernGraph(indexKeys ...string) *graph.Mem {
	g := graph.NewMem(indexKeys...)
	vertices := []struct {
		id, label, name string
		age             int
	}{
		{"1", "person", "marko", 29},
		{"2", "person", "vadas", 27},
		{"3", "software", "lop", 0},
		{"4", "person", "josh", 32},
		{"5", "software", "ripple", 0},
		{"6", "person", "peter", 35},
	}
	for _, v := range vertices {
		props := map[string]interface{}{"name": v.name}
		if v.age > 0 {
			props["age"] = v.age
		}
		if _, err := g.AddVertex(v.id, v.label, props); err != nil {
			panic(err)
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
			panic(err)
		}
	}
	return g
}

// GraphOf builds a graph from "a-b" edge specs (a -link-> b, edge ids e1, e2,
// ...) and lone "c" vertex specs. Vertices are created in order of first use.
func GraphOf(specs ...string) *graph.Mem {
	g := graph.NewMem()
	vertex := func(id string) {
		if _, ok := g.Vertex(id); !ok {
			if _, err := g.AddVertex(id, "", nil); err != nil {
				panic(err)
			}
		}
	}
	n := 0
	for _, s := range specs {
		ends := strings.SplitN(s, "-", 2)
		for _, id := range ends {
			vertex(id)
		}
		if len(ends) == 2 {
			n++
			if _, err := g.AddEdge(fmt.Sprintf("e%d", n), "link", ends[0], ends[1], nil); err != nil {
				panic(err)
			}
		}
	}
	return g
}

// Dump prints v as indented JSON.
func Dump(v interface{}) {
	bytes, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(bytes))
}
