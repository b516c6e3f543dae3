// Copyright 2026, Square, Inc.

package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-test/deep"

	"github.com/square/vertigo/api"
	"github.com/square/vertigo/app"
	"github.com/square/vertigo/computer"
	"github.com/square/vertigo/computer/clustering"
	"github.com/square/vertigo/config"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/proto"
	"github.com/square/vertigo/server"
	testutil "github.com/square/vertigo/test"
	"github.com/square/vertigo/traversal"
	"github.com/square/vertigo/traversal/strategy"
)

var ts *httptest.Server

// setup boots a server over the modern graph with cfg and serves its API.
func setup(t *testing.T, cfg config.Vertigo) *server.Server {
	appCtx := app.Defaults()
	appCtx.Hooks.LoadConfig = func(app.Context) (config.Vertigo, error) {
		return cfg, nil
	}
	appCtx.Factories.MakeGraph = func(app.Context) (graph.Graph, error) {
		return testutil.ModernGraph(), nil
	}
	s := server.NewServer(appCtx)
	if err := s.Boot(); err != nil {
		t.Fatal(err)
	}
	ts = httptest.NewServer(s.API())
	return s
}

func cleanup() {
	ts.CloseClientConnections()
	ts.Close()
}

func baseURL() string {
	return ts.URL + api.API_ROOT
}

// client is a source for building bytecode; its graph is never used.
func client() *traversal.Source {
	return traversal.NewSource(graph.NewMem())
}

func submit(t *testing.T, tr *traversal.Traversal) (int, proto.TraversalResponse, proto.Error) {
	t.Helper()
	payload, err := json.Marshal(proto.TraversalRequest{Bytecode: tr.Bytecode()})
	if err != nil {
		t.Fatal(err)
	}
	var raw json.RawMessage
	statusCode, _, err := testutil.MakeHTTPRequest("POST", baseURL()+"traversals", payload, &raw)
	if err != nil {
		t.Fatal(err)
	}
	var (
		resp proto.TraversalResponse
		perr proto.Error
	)
	if statusCode == http.StatusOK {
		err = json.Unmarshal(raw, &resp)
	} else {
		err = json.Unmarshal(raw, &perr)
	}
	if err != nil {
		t.Fatal(err)
	}
	return statusCode, resp, perr
}

func values(resp proto.TraversalResponse) []interface{} {
	vals := []interface{}{}
	for _, tr := range proto.DecodeTraversers(resp.Traversers) {
		vals = append(vals, tr.Value)
	}
	return vals
}

// //////////////////////////////////////////////////////////////////////////
// Traversals
// //////////////////////////////////////////////////////////////////////////

func TestTraversal(t *testing.T) {
	setup(t, config.Defaults())
	defer cleanup()

	statusCode, resp, _ := submit(t, client().V().Out("knows").Values("name"))
	if statusCode != http.StatusOK {
		t.Fatalf("response status = %d, expected %d", statusCode, http.StatusOK)
	}
	if resp.Id == "" {
		t.Error("no traversal id")
	}
	if diff := deep.Equal(values(resp), []interface{}{"vadas", "josh"}); diff != nil {
		t.Error(diff)
	}

	// Elements come back as references.
	_, resp, _ = submit(t, client().V("1").OutE("created"))
	expect := []interface{}{graph.Reference{ID: "9", Label: "created", Type: "edge"}}
	if diff := deep.Equal(values(resp), expect); diff != nil {
		t.Error(diff)
	}

	// Bulked traversers keep their bulk.
	_, resp, _ = submit(t, client().V().Out("created").ID())
	bulks := map[interface{}]int64{}
	for _, tr := range resp.Traversers {
		bulks[tr.Value] += tr.Bulk
	}
	if diff := deep.Equal(bulks, map[interface{}]int64{"3": 3, "5": 1}); diff != nil {
		t.Error(diff)
	}
}

func TestTraversalOnComputer(t *testing.T) {
	setup(t, config.Defaults())
	defer cleanup()

	olap := client().WithStrategies(strategy.Computer(computer.Options{Workers: 2}))
	statusCode, resp, perr := submit(t, olap.V().Out("created").Values("name").Dedup())
	if statusCode != http.StatusOK {
		t.Fatalf("response status = %d (%s), expected %d", statusCode, perr.Message, http.StatusOK)
	}
	if diff := deep.Equal(values(resp), []interface{}{"lop", "ripple"}); diff != nil {
		t.Error(diff)
	}

	_, resp, _ = submit(t, olap.V().ConnectedComponent().Values(clustering.COMPONENT).Dedup())
	if diff := deep.Equal(values(resp), []interface{}{"1"}); diff != nil {
		t.Error(diff)
	}
}

func TestTraversalErrors(t *testing.T) {
	setup(t, config.Vertigo{Strategies: config.Strategies{ForbidOLAP: true}})
	defer cleanup()

	// Bad payload
	statusCode, _, err := testutil.MakeHTTPRequest("POST", baseURL()+"traversals", []byte(`"bad":"json"}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	if statusCode != http.StatusBadRequest {
		t.Errorf("response status = %d, expected %d", statusCode, http.StatusBadRequest)
	}

	// No bytecode
	var perr proto.Error
	statusCode, _, err = testutil.MakeHTTPRequest("POST", baseURL()+"traversals", []byte(`{}`), &perr)
	if err != nil {
		t.Fatal(err)
	}
	if statusCode != http.StatusBadRequest || perr.Kind != serr.KIND_CONFIGURATION {
		t.Errorf("got %d %+v, expected a configuration error", statusCode, perr)
	}

	tests := []struct {
		name   string
		tr     *traversal.Traversal
		status int
		kind   string
	}{
		{"duplicate label", client().V().As("a").Out().As("a"), http.StatusUnprocessableEntity, serr.KIND_VERIFICATION},
		{"olap forbidden", client().WithStrategies(strategy.Computer(computer.Options{})).V().Count(), http.StatusUnprocessableEntity, serr.KIND_VERIFICATION},
		{"without an unknown strategy", client().WithStrategies(strategy.Profile()).WithoutStrategies("x").V(), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusCode, _, perr := submit(t, tt.tr)
			if statusCode != tt.status || perr.Kind != tt.kind {
				t.Errorf("got %d %+v, expected %d %s", statusCode, perr, tt.status, tt.kind)
			}
		})
	}

	bc := client().V().Bytecode()
	bc.AddSource(traversal.OP_WITH_STRATEGIES, "NoSuchStrategy", nil)
	payload, _ := json.Marshal(proto.TraversalRequest{Bytecode: bc})
	statusCode, _, err = testutil.MakeHTTPRequest("POST", baseURL()+"traversals", payload, &perr)
	if err != nil {
		t.Fatal(err)
	}
	if statusCode != http.StatusBadRequest || perr.Kind != serr.KIND_CONFIGURATION {
		t.Errorf("got %d %+v, expected a configuration error", statusCode, perr)
	}
}

// //////////////////////////////////////////////////////////////////////////
// Computations
// //////////////////////////////////////////////////////////////////////////

func TestComputation(t *testing.T) {
	s := setup(t, config.Defaults())
	defer cleanup()

	payload := []byte(`{"program":"connectedComponent","workers":2}`)
	var comp proto.Computation
	statusCode, headers, err := testutil.MakeHTTPRequest("POST", baseURL()+"computations", payload, &comp)
	if err != nil {
		t.Fatal(err)
	}
	if statusCode != http.StatusCreated {
		t.Fatalf("response status = %d, expected %d", statusCode, http.StatusCreated)
	}
	if headers.Get("Location") != api.API_ROOT+"computations/"+comp.Id {
		t.Errorf("got Location %s", headers.Get("Location"))
	}

	timeout := time.After(5 * time.Second)
	for comp.State == proto.STATE_RUNNING {
		select {
		case <-timeout:
			t.Fatal("computation still running")
		case <-time.After(5 * time.Millisecond):
		}
		if _, _, err := testutil.MakeHTTPRequest("GET", baseURL()+"computations/"+comp.Id, nil, &comp); err != nil {
			t.Fatal(err)
		}
	}
	if comp.State != proto.STATE_COMPLETE {
		t.Fatalf("got state %s (%s)", proto.StateName[comp.State], comp.Error)
	}

	var res proto.ComputationResult
	statusCode, _, err = testutil.MakeHTTPRequest("GET", baseURL()+"computations/"+comp.Id+"/result", nil, &res)
	if err != nil {
		t.Fatal(err)
	}
	if statusCode != http.StatusOK {
		t.Fatalf("response status = %d, expected %d", statusCode, http.StatusOK)
	}
	if len(res.Vertices) != 6 {
		t.Fatalf("got %d vertices, expected 6", len(res.Vertices))
	}
	for _, v := range res.Vertices {
		if diff := deep.Equal(v.Properties[clustering.COMPONENT], []interface{}{"1"}); diff != nil {
			t.Errorf("vertex %s: %v", v.Id, diff)
		}
	}

	// The served graph is not modified.
	g := s.Context().Graph
	for _, v := range g.Vertices() {
		if _, ok := v.Value(clustering.COMPONENT); ok {
			t.Errorf("component written to vertex %s of the served graph", v.ID())
		}
	}

	var list []proto.Computation
	if _, _, err := testutil.MakeHTTPRequest("GET", baseURL()+"computations", nil, &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Id != comp.Id {
		t.Errorf("got %+v", list)
	}

	// Done: cannot be stopped.
	var perr proto.Error
	statusCode, _, err = testutil.MakeHTTPRequest("PUT", baseURL()+"computations/"+comp.Id+"/stop", nil, &perr)
	if err != nil {
		t.Fatal(err)
	}
	if statusCode != http.StatusConflict || perr.Id != comp.Id {
		t.Errorf("got %d %+v, expected %d", statusCode, perr, http.StatusConflict)
	}
}

func TestComputationErrors(t *testing.T) {
	setup(t, config.Defaults())
	defer cleanup()

	var perr proto.Error
	statusCode, _, err := testutil.MakeHTTPRequest("POST", baseURL()+"computations", []byte(`{"program":"pageRank"}`), &perr)
	if err != nil {
		t.Fatal(err)
	}
	if statusCode != http.StatusBadRequest || perr.Kind != serr.KIND_CONFIGURATION {
		t.Errorf("got %d %+v, expected a configuration error", statusCode, perr)
	}

	for _, path := range []string{"computations/nope", "computations/nope/result"} {
		perr = proto.Error{}
		statusCode, _, err = testutil.MakeHTTPRequest("GET", baseURL()+path, nil, &perr)
		if err != nil {
			t.Fatal(err)
		}
		if statusCode != http.StatusNotFound || perr.Id != "nope" {
			t.Errorf("%s: got %d %+v, expected %d", path, statusCode, perr, http.StatusNotFound)
		}
	}
}

func TestVersion(t *testing.T) {
	setup(t, config.Defaults())
	defer cleanup()

	res, err := http.Get(ts.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK || res.Header.Get("X-Vertigo-Version") == "" {
		t.Errorf("got %d, headers %v", res.StatusCode, res.Header)
	}
}
