// Copyright 2026, Square, Inc.

package traversal

// Kind is the closed set of step types.
type Kind int

const (
	EMPTY_STEP Kind = iota
	GRAPH_STEP
	VERTEX_STEP
	EDGE_VERTEX_STEP
	HAS_STEP
	IDENTITY_STEP
	ID_STEP
	LABEL_STEP
	VALUES_STEP
	IS_STEP
	COUNT_STEP
	DEDUP_STEP
	FOLD_STEP
	LIMIT_STEP
	LOCAL_STEP
	NOT_STEP
	FILTER_STEP
	UNION_STEP
	LAMBDA_STEP
	PATH_STEP
	PROFILE_STEP
	PROFILE_SIDE_EFFECT_STEP
	TRAVERSAL_VERTEX_PROGRAM_STEP
	CONNECTED_COMPONENT_STEP
	COMPUTER_RESULT_STEP
	REFERENCE_ELEMENT_STEP
	REMOTE_STEP
)

var kindNames = map[Kind]string{
	EMPTY_STEP:                    "EmptyStep",
	GRAPH_STEP:                    "GraphStep",
	VERTEX_STEP:                   "VertexStep",
	EDGE_VERTEX_STEP:              "EdgeVertexStep",
	HAS_STEP:                      "HasStep",
	IDENTITY_STEP:                 "IdentityStep",
	ID_STEP:                       "IdStep",
	LABEL_STEP:                    "LabelStep",
	VALUES_STEP:                   "PropertiesStep",
	IS_STEP:                       "IsStep",
	COUNT_STEP:                    "CountGlobalStep",
	DEDUP_STEP:                    "DedupGlobalStep",
	FOLD_STEP:                     "FoldStep",
	LIMIT_STEP:                    "RangeGlobalStep",
	LOCAL_STEP:                    "LocalStep",
	NOT_STEP:                      "NotStep",
	FILTER_STEP:                   "TraversalFilterStep",
	UNION_STEP:                    "UnionStep",
	LAMBDA_STEP:                   "LambdaStep",
	PATH_STEP:                     "PathStep",
	PROFILE_STEP:                  "ProfileStep",
	PROFILE_SIDE_EFFECT_STEP:      "ProfileSideEffectStep",
	TRAVERSAL_VERTEX_PROGRAM_STEP: "TraversalVertexProgramStep",
	CONNECTED_COMPONENT_STEP:      "ConnectedComponentVertexProgramStep",
	COMPUTER_RESULT_STEP:          "ComputerResultStep",
	REFERENCE_ELEMENT_STEP:        "ReferenceElementStep",
	REMOTE_STEP:                   "RemoteStep",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Capability is a bit set of step capabilities. Strategies query capabilities
// with Is instead of switching on concrete step types.
type Capability uint16

const (
	VERTEX_COMPUTING     Capability = 1 << iota // runs a vertex program
	GRAPH_COMPUTING                             // behaves differently on a graph computer
	HAS_CONTAINER_HOLDER                        // holds has() containers
	BARRIER                                     // consumes all input before emitting
	FILTER                                      // emits a subset of its input
	PARENT                                      // has child traversals
	LAMBDA                                      // opaque user code
	SIDE_EFFECT                                 // writes traversal side effects
	RETURNS_ELEMENTS                            // may emit vertices or edges
)

var capabilities = map[Kind]Capability{
	EMPTY_STEP:                    0,
	GRAPH_STEP:                    GRAPH_COMPUTING | HAS_CONTAINER_HOLDER | RETURNS_ELEMENTS,
	VERTEX_STEP:                   RETURNS_ELEMENTS,
	EDGE_VERTEX_STEP:              RETURNS_ELEMENTS,
	HAS_STEP:                      HAS_CONTAINER_HOLDER | FILTER,
	IDENTITY_STEP:                 0,
	ID_STEP:                       0,
	LABEL_STEP:                    0,
	VALUES_STEP:                   0,
	IS_STEP:                       FILTER,
	COUNT_STEP:                    BARRIER,
	DEDUP_STEP:                    BARRIER | FILTER,
	FOLD_STEP:                     BARRIER,
	LIMIT_STEP:                    BARRIER | FILTER,
	LOCAL_STEP:                    PARENT,
	NOT_STEP:                      PARENT | FILTER,
	FILTER_STEP:                   PARENT | FILTER,
	UNION_STEP:                    PARENT,
	LAMBDA_STEP:                   LAMBDA,
	PATH_STEP:                     0,
	PROFILE_STEP:                  SIDE_EFFECT,
	PROFILE_SIDE_EFFECT_STEP:      SIDE_EFFECT | BARRIER,
	TRAVERSAL_VERTEX_PROGRAM_STEP: VERTEX_COMPUTING | PARENT,
	CONNECTED_COMPONENT_STEP:      VERTEX_COMPUTING,
	COMPUTER_RESULT_STEP:          0,
	REFERENCE_ELEMENT_STEP:        0,
	REMOTE_STEP:                   0,
}

// Capabilities returns the capability set of k.
func (k Kind) Capabilities() Capability {
	return capabilities[k]
}

// Is reports whether s has every capability in c.
func Is(s Step, c Capability) bool {
	return s.Kind().Capabilities()&c == c
}
