// Copyright 2026, Square, Inc.

// Package remote provides an HTTP client for a vertigo server. The client is a
// traversal.RemoteConnection: a source made WithRemote(client) sends its
// traversals to the server and iterates the traversers it returns.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/square/vertigo/config"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/proto"
	"github.com/square/vertigo/traversal"
	"github.com/square/vertigo/util"
)

// A Client is an HTTP client used for interacting with the vertigo API.
type Client struct {
	*http.Client
	baseUrl string
}

var _ traversal.RemoteConnection = &Client{}

// NewClient takes an http.Client and base API URL and creates a Client.
func NewClient(c *http.Client, baseUrl string) *Client {
	return &Client{
		Client:  c,
		baseUrl: baseUrl,
	}
}

// NewClientFromConfig makes the http.Client described by cfg.
func NewClientFromConfig(cfg config.HTTPClient) (*Client, error) {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
	}
	if cfg.TLS.Enabled() {
		tlsConfig, err := util.NewTLSConfig(cfg.TLS.CAFile, cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "loading client TLS config")
		}
		httpClient.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}
	return NewClient(httpClient, cfg.ServerURL), nil
}

// Submit sends bc to the server and returns at once. The request is canceled
// if ctx is done before the server answers.
func (c *Client) Submit(ctx context.Context, bc *traversal.Bytecode) (traversal.RemoteResult, error) {
	// POST /api/v1/traversals
	url := c.baseUrl + "/api/v1/traversals"

	payload, err := json.Marshal(proto.TraversalRequest{Bytecode: bc})
	if err != nil {
		return nil, errors.Wrap(err, "encoding bytecode")
	}

	f := newFuture()
	go func() {
		var resp proto.TraversalResponse
		if err := c.makeRequest(ctx, "POST", url, payload, http.StatusOK, &resp); err != nil {
			f.resolve(nil, err)
			return
		}
		f.resolve(proto.DecodeTraversers(resp.Traversers), nil)
	}()
	return f, nil
}

// CreateComputation starts the vertex program described by req and returns
// the new computation.
func (c *Client) CreateComputation(ctx context.Context, req proto.CreateComputation) (proto.Computation, error) {
	// POST /api/v1/computations
	url := c.baseUrl + "/api/v1/computations"

	payload, err := json.Marshal(req)
	if err != nil {
		return proto.Computation{}, err
	}
	var comp proto.Computation
	err = c.makeRequest(ctx, "POST", url, payload, http.StatusCreated, &comp)
	return comp, err
}

// GetComputation returns the computation with the given id.
func (c *Client) GetComputation(ctx context.Context, id string) (proto.Computation, error) {
	// GET /api/v1/computations/${id}
	url := c.baseUrl + "/api/v1/computations/" + id

	var comp proto.Computation
	err := c.makeRequest(ctx, "GET", url, nil, http.StatusOK, &comp)
	return comp, err
}

// ComputationResult returns the result of a complete computation. Property and
// memory values are decoded with proto.DecodeValue.
func (c *Client) ComputationResult(ctx context.Context, id string) (proto.ComputationResult, error) {
	// GET /api/v1/computations/${id}/result
	url := c.baseUrl + "/api/v1/computations/" + id + "/result"

	var res proto.ComputationResult
	if err := c.makeRequest(ctx, "GET", url, nil, http.StatusOK, &res); err != nil {
		return res, err
	}
	for k, v := range res.Memory {
		res.Memory[k] = proto.DecodeValue(v)
	}
	for _, v := range res.Vertices {
		for k, vals := range v.Properties {
			for i := range vals {
				vals[i] = proto.DecodeValue(vals[i])
			}
			v.Properties[k] = vals
		}
	}
	return res, nil
}

// StopComputation stops a running computation.
func (c *Client) StopComputation(ctx context.Context, id string) error {
	// PUT /api/v1/computations/${id}/stop
	url := c.baseUrl + "/api/v1/computations/" + id + "/stop"

	return c.makeRequest(ctx, "PUT", url, nil, http.StatusOK, nil)
}

// ------------------------------------------------------------------------- //

// makeRequest is a helper function for making HTTP requests to the API. The
// response body is decoded into respStruct (if it's not nil) with numbers
// kept as json.Number. An error response is returned as the error it reports.
func (c *Client) makeRequest(ctx context.Context, httpVerb, url string, payload []byte, expectedStatusCode int, respStruct interface{}) error {
	// Create the request.
	req, err := http.NewRequest(httpVerb, url, bytes.NewBuffer(payload))
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req = req.WithContext(ctx)

	// Send the request.
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", httpVerb, url)
	}
	defer resp.Body.Close()

	// Read the response body.
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}

	// Check the status code.
	if resp.StatusCode != expectedStatusCode {
		return responseError(resp.StatusCode, body)
	}

	// Unmarshal the body into the struct pointed to by the respStruct argument.
	if respStruct != nil {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(respStruct); err != nil {
			return errors.Wrap(err, "decoding response")
		}
	}

	return nil
}

// responseError returns the error reported by an API error response, as the
// kind of error the server raised.
func responseError(status int, body []byte) error {
	var e proto.Error
	if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
		return errors.Errorf("unsuccessful status code: %d (response body: %s)", status, string(body))
	}
	switch e.Kind {
	case serr.KIND_CONFIGURATION:
		return serr.ConfigurationError{Message: e.Message}
	case serr.KIND_VERIFICATION:
		return serr.VerificationError{Strategy: "remote", Message: e.Message}
	case serr.KIND_EXECUTION:
		return serr.ExecutionError{Message: e.Message}
	}
	if status == http.StatusNotFound && e.Id != "" {
		return serr.NotFoundError{Entity: "computation", Id: e.Id}
	}
	return errors.Wrapf(e, "server error (%d)", status)
}
