// Copyright 2026, Square, Inc.

package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-test/deep"

	"github.com/square/vertigo/app"
	"github.com/square/vertigo/computer/clustering"
	"github.com/square/vertigo/config"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/proto"
	"github.com/square/vertigo/remote"
	"github.com/square/vertigo/server"
	"github.com/square/vertigo/test"
	"github.com/square/vertigo/traversal"
)

var (
	ts     *httptest.Server
	path   string
	method string
)

// setup creates a test http server that allows you to control the response to
// http calls via function arguments. It will record the path and the method for
// calls against it in global variables that can be accessed from tests. It will
// also unmarshal the payload it receives from a call into the struct that the
// "payloadStruct" argument points to.
func setup(t *testing.T, payloadStruct interface{}, responseStatus int, responseBody string) {
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		method = r.Method

		if payloadStruct != nil {
			// Get the request payload.
			body, err := ioutil.ReadAll(r.Body)
			if err != nil {
				t.Fatal(err)
			}
			err = json.Unmarshal(body, &payloadStruct)
			if err != nil {
				t.Fatal(err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(responseStatus)
		if responseBody != "" {
			fmt.Fprintln(w, responseBody)
		}
	}))
}

func cleanup() {
	ts.Close()
	ts = nil
	path = ""
	method = ""
}

// boot serves the API of a real server over the modern graph.
func boot(t *testing.T) {
	appCtx := app.Defaults()
	appCtx.Hooks.LoadConfig = func(app.Context) (config.Vertigo, error) {
		return config.Defaults(), nil
	}
	appCtx.Factories.MakeGraph = func(app.Context) (graph.Graph, error) {
		return test.ModernGraph(), nil
	}
	s := server.NewServer(appCtx)
	if err := s.Boot(); err != nil {
		t.Fatal(err)
	}
	ts = httptest.NewServer(s.API())
}

func toList(t *testing.T, tr *traversal.Traversal) []interface{} {
	t.Helper()
	vals, err := tr.ToList(context.Background())
	if err != nil {
		t.Fatalf("%s: %s", tr, err)
	}
	return vals
}

// //////////////////////////////////////////////////////////////////////////
// Tests
// //////////////////////////////////////////////////////////////////////////

func TestSubmit(t *testing.T) {
	var payload proto.TraversalRequest
	setup(t, &payload, http.StatusOK, `{"id":"x","traversers":[{"value":{"@element":{"id":"1","label":"person","type":"vertex"}},"bulk":1},{"value":6,"bulk":2}]}`)
	defer cleanup()

	c := remote.NewClient(&http.Client{}, ts.URL)
	g := traversal.NewSource(graph.NewMem()).WithRemote(c)
	got := toList(t, g.V("1").Out("knows"))

	expect := []interface{}{
		graph.Reference{ID: "1", Label: "person", Type: "vertex"},
		int64(6),
		int64(6),
	}
	if diff := deep.Equal(got, expect); diff != nil {
		t.Error(diff)
	}
	if path != "/api/v1/traversals" || method != "POST" {
		t.Errorf("got %s %s", method, path)
	}
	ops := []string{}
	for _, in := range payload.Bytecode.Steps {
		ops = append(ops, in.Op)
	}
	if diff := deep.Equal(ops, []string{traversal.OP_V, traversal.OP_OUT}); diff != nil {
		t.Error(diff)
	}
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   string
	}{
		{"configuration", http.StatusBadRequest, `{"message":"unknown strategy","kind":"configuration"}`, serr.KIND_CONFIGURATION},
		{"verification", http.StatusUnprocessableEntity, `{"message":"duplicate label","kind":"verification"}`, serr.KIND_VERIFICATION},
		{"execution", http.StatusInternalServerError, `{"message":"boom","kind":"execution"}`, serr.KIND_EXECUTION},
		{"other", http.StatusInternalServerError, `{"message":"bad","kind":"illegal_state"}`, serr.KIND_ILLEGAL_STATE},
		{"not json", http.StatusBadGateway, `<html>`, serr.KIND_ILLEGAL_STATE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t, nil, tt.status, tt.body)
			defer cleanup()

			g := traversal.NewSource(graph.NewMem()).WithRemote(remote.NewClient(&http.Client{}, ts.URL))
			_, err := g.V().ToList(context.Background())
			if serr.Kind(err) != tt.kind {
				t.Errorf("got %v (%s), expected kind %s", err, serr.Kind(err), tt.kind)
			}
		})
	}

	// Server down
	g := traversal.NewSource(graph.NewMem()).WithRemote(remote.NewClient(&http.Client{}, "http://127.0.0.1:1"))
	_, err := g.V().ToList(context.Background())
	var ise serr.IllegalStateError
	if !errors.As(err, &ise) {
		t.Errorf("got %v, expected an IllegalStateError", err)
	}
}

func TestFuture(t *testing.T) {
	release := make(chan struct{})
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprintln(w, `{"id":"x","traversers":[{"value":"marko","bulk":1}]}`)
	}))
	defer ts.Close()

	c := remote.NewClient(&http.Client{}, ts.URL)
	res, err := c.Submit(context.Background(), traversal.NewSource(graph.NewMem()).V().Bytecode())
	if err != nil {
		t.Fatal(err)
	}
	f := res.(*remote.Future)

	// Not resolved yet: a short deadline expires first.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Traversers(ctx); err != context.DeadlineExceeded {
		t.Errorf("got %v, expected the deadline to expire", err)
	}

	close(release)
	<-f.Done()
	for i := 0; i < 2; i++ {
		trs, err := f.Traversers(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(trs) != 1 || trs[0].Value != "marko" {
			t.Errorf("got %v", trs)
		}
	}
}

func TestAgainstServer(t *testing.T) {
	boot(t)
	defer ts.Close()

	c := remote.NewClient(&http.Client{}, ts.URL)
	g := traversal.NewSource(graph.NewMem()).WithRemote(c)

	if diff := deep.Equal(toList(t, g.V().Has("name", "marko").Out("knows").Values("age")), []interface{}{int64(27), int64(32)}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(toList(t, g.V().Count()), []interface{}{int64(6)}); diff != nil {
		t.Error(diff)
	}

	// Verification failures come back as verification failures.
	_, err := g.V().As("a").Out().As("a").ToList(context.Background())
	if serr.Kind(err) != serr.KIND_VERIFICATION {
		t.Errorf("got %v, expected a verification error", err)
	}

	// Computations
	ctx := context.Background()
	comp, err := c.CreateComputation(ctx, proto.CreateComputation{Program: clustering.NAME})
	if err != nil {
		t.Fatal(err)
	}
	timeout := time.After(5 * time.Second)
	for comp.State == proto.STATE_RUNNING {
		select {
		case <-timeout:
			t.Fatal("computation still running")
		case <-time.After(5 * time.Millisecond):
		}
		if comp, err = c.GetComputation(ctx, comp.Id); err != nil {
			t.Fatal(err)
		}
	}
	res, err := c.ComputationResult(ctx, comp.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Vertices) != 6 || res.Vertices[0].Properties[clustering.COMPONENT][0] != "1" {
		t.Errorf("got %+v", res)
	}
	if err := c.StopComputation(ctx, comp.Id); err == nil {
		t.Error("stopped a complete computation")
	}
	_, err = c.GetComputation(ctx, "nope")
	if _, ok := err.(serr.NotFoundError); !ok {
		t.Errorf("got %v, expected NotFoundError", err)
	}
}
