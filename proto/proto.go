// Copyright 2026, Square, Inc.

// Package proto provide API message structures and constants.
package proto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/traversal"
)

const (
	STATE_UNKNOWN byte = iota

	// Normal states, in order
	STATE_PENDING  // not started
	STATE_RUNNING  // running
	STATE_COMPLETE // completed successfully

	// Error states, no order
	STATE_FAIL    // failed due to error
	STATE_STOPPED // stopped by user or shutdown
)

var StateName = map[byte]string{
	STATE_UNKNOWN:  "UNKNOWN",
	STATE_PENDING:  "PENDING",
	STATE_RUNNING:  "RUNNING",
	STATE_COMPLETE: "COMPLETE",
	STATE_FAIL:     "FAIL",
	STATE_STOPPED:  "STOPPED",
}

var StateValue = map[string]byte{
	"UNKNOWN":  STATE_UNKNOWN,
	"PENDING":  STATE_PENDING,
	"RUNNING":  STATE_RUNNING,
	"COMPLETE": STATE_COMPLETE,
	"FAIL":     STATE_FAIL,
	"STOPPED":  STATE_STOPPED,
}

// TraversalRequest is the payload of POST /api/v1/traversals.
type TraversalRequest struct {
	Bytecode *traversal.Bytecode `json:"bytecode"`
}

// TraversalResponse holds the traversers a submitted traversal emitted.
type TraversalResponse struct {
	Id         string      `json:"id"`
	Traversers []Traverser `json:"traversers"`
}

// Traverser is the wire form of a traversal.Traverser. Values are encoded with
// EncodeValue.
type Traverser struct {
	Value interface{} `json:"value"`
	Bulk  int64       `json:"bulk"`
	Path  *Path       `json:"path,omitempty"`
}

type Path struct {
	Objects []interface{} `json:"objects"`
	Labels  [][]string    `json:"labels"`
}

// CreateComputation is the payload of POST /api/v1/computations. Zero values
// take the server defaults.
type CreateComputation struct {
	Program       string                 `json:"program"`                 // vertex program name
	Configuration map[string]interface{} `json:"configuration,omitempty"` // program configuration
	Workers       int                    `json:"workers,omitempty"`
	MaxIterations int                    `json:"maxIterations,omitempty"`
	Persist       string                 `json:"persist,omitempty"`     // computer.PERSIST_*
	ResultGraph   string                 `json:"resultGraph,omitempty"` // computer.RESULT_*
}

// Computation is one vertex program run by the server.
type Computation struct {
	Id         string    `json:"id"`              // unique id (xid)
	Program    string    `json:"program"`         // vertex program name
	State      byte      `json:"state"`           // STATE_* const
	Iterations int       `json:"iterations"`      // supersteps run, once finished
	Runtime    int64     `json:"runtime"`         // milliseconds, once finished
	Error      string    `json:"error,omitempty"` // set when State is STATE_FAIL
	CreatedAt  time.Time `json:"createdAt"`       // when the computation was submitted
	FinishedAt time.Time `json:"finishedAt"`      // when it completed, failed or stopped
}

// ComputationResult is the result graph and final memory of a complete
// computation.
type ComputationResult struct {
	Id       string                 `json:"id"`
	Memory   map[string]interface{} `json:"memory"`
	Vertices []Vertex               `json:"vertices"`
}

// Vertex is a vertex of a result graph with all its properties.
type Vertex struct {
	Id         string                   `json:"id"`
	Label      string                   `json:"label"`
	Properties map[string][]interface{} `json:"properties,omitempty"`
}

// Error is the standard response for all handled errors. Kind is one of the
// errors.KIND_* consts; clients use it to raise the same kind of error.
type Error struct {
	Message    string `json:"message"`    // human-readable and loggable error message
	Kind       string `json:"kind"`       // errors.KIND_* const
	Id         string `json:"id"`         // entity ID that caused error, if any
	HTTPStatus int    `json:"httpStatus"` // HTTP status code
}

func NewError(msgFmt string, msgArgs ...interface{}) Error {
	e := Error{}
	if msgFmt != "" {
		e.Message = fmt.Sprintf(msgFmt, msgArgs...)
	}
	return e
}

func (e Error) String() string {
	return e.Message
}

func (e Error) Error() string {
	return e.Message
}

// --------------------------------------------------------------------------

// Elements are sent as references tagged with this key so that clients can tell
// them apart from maps.
const REFERENCE_KEY = "@element"

// EncodeValue returns v ready for JSON: graph elements and references become
// tagged references, lists and maps are encoded recursively.
func EncodeValue(v interface{}) interface{} {
	switch v := v.(type) {
	case graph.Element:
		return map[string]interface{}{REFERENCE_KEY: graph.ReferenceOf(v)}
	case graph.Reference:
		return map[string]interface{}{REFERENCE_KEY: v}
	case []interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = EncodeValue(v[i])
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k := range v {
			out[k] = EncodeValue(v[k])
		}
		return out
	}
	return v
}

// DecodeValue reverses EncodeValue on a value decoded with json.Decoder.UseNumber:
// tagged references become graph.Reference and integral numbers int64.
func DecodeValue(v interface{}) interface{} {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case []interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = DecodeValue(v[i])
		}
		return out
	case map[string]interface{}:
		if ref, ok := v[REFERENCE_KEY].(map[string]interface{}); ok && len(v) == 1 {
			r := graph.Reference{}
			r.ID, _ = ref["id"].(string)
			r.Label, _ = ref["label"].(string)
			r.Type, _ = ref["type"].(string)
			return r
		}
		out := make(map[string]interface{}, len(v))
		for k := range v {
			out[k] = DecodeValue(v[k])
		}
		return out
	}
	return v
}

// EncodeTraversers returns the wire form of ts.
func EncodeTraversers(ts []*traversal.Traverser) []Traverser {
	out := make([]Traverser, len(ts))
	for i, t := range ts {
		out[i] = Traverser{Value: EncodeValue(t.Value), Bulk: t.Bulk}
		if t.Path != nil {
			p := &Path{Objects: make([]interface{}, len(t.Path.Objects)), Labels: t.Path.Labels}
			for j, o := range t.Path.Objects {
				p.Objects[j] = EncodeValue(o)
			}
			out[i].Path = p
		}
	}
	return out
}

// DecodeTraversers reverses EncodeTraversers.
func DecodeTraversers(ts []Traverser) []*traversal.Traverser {
	out := make([]*traversal.Traverser, len(ts))
	for i, t := range ts {
		out[i] = &traversal.Traverser{Value: DecodeValue(t.Value), Bulk: t.Bulk}
		if t.Path != nil {
			p := &traversal.Path{Objects: make([]interface{}, len(t.Path.Objects)), Labels: t.Path.Labels}
			for j, o := range t.Path.Objects {
				p.Objects[j] = DecodeValue(o)
			}
			out[i].Path = p
		}
	}
	return out
}
