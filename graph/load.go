// Copyright 2026, Square, Inc.

package graph

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Document is the YAML representation of a graph:
//
//   indexes: [name]
//   vertices:
//     - id: "1"
//       label: person
//       properties: {name: marko, nick: [mk, marko]}
//   edges:
//     - {id: "7", label: knows, out: "1", in: "2", properties: {weight: 0.5}}
//
// A list property value is loaded with LIST cardinality, one value per element.
type Document struct {
	Indexes  []string      `yaml:"indexes"`
	Vertices []VertexEntry `yaml:"vertices"`
	Edges    []EdgeEntry   `yaml:"edges"`
}

type VertexEntry struct {
	ID         string                 `yaml:"id"`
	Label      string                 `yaml:"label"`
	Properties map[string]interface{} `yaml:"properties"`
}

type EdgeEntry struct {
	ID         string                 `yaml:"id"`
	Label      string                 `yaml:"label"`
	Out        string                 `yaml:"out"`
	In         string                 `yaml:"in"`
	Properties map[string]interface{} `yaml:"properties"`
}

// LoadYAML reads a Document and builds a Mem graph from it. All problems in the
// document are reported together.
func LoadYAML(r io.Reader) (*Mem, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading graph document")
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing graph document")
	}
	return doc.Build()
}

// Build validates the document and returns the graph it describes.
func (doc Document) Build() (*Mem, error) {
	var result *multierror.Error

	g := NewMem(doc.Indexes...)
	for i, ve := range doc.Vertices {
		v, err := g.AddVertex(ve.ID, ve.Label, nil)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("vertices[%d]: %s", i, err))
			continue
		}
		for _, k := range sortedPropKeys(ve.Properties) {
			vals, isList := ve.Properties[k].([]interface{})
			if !isList {
				vals = []interface{}{ve.Properties[k]}
			}
			for _, val := range vals {
				card := SINGLE
				if isList {
					card = LIST
				}
				if err := v.SetProperty(card, k, val); err != nil {
					result = multierror.Append(result, fmt.Errorf("vertices[%d]: %s", i, err))
				}
			}
		}
	}
	for i, ee := range doc.Edges {
		if _, err := g.AddEdge(ee.ID, ee.Label, ee.Out, ee.In, ee.Properties); err != nil {
			result = multierror.Append(result, fmt.Errorf("edges[%d]: %s", i, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return g, nil
}

// SQL queries used by LoadSQL. Property values are stored as strings.
const (
	SQL_VERTICES   = "SELECT id, label FROM vertices ORDER BY id"
	SQL_PROPERTIES = "SELECT vertex_id, prop_key, prop_value FROM vertex_properties ORDER BY vertex_id, id"
	SQL_EDGES      = "SELECT id, label, out_id, in_id FROM edges ORDER BY id"
)

// LoadSQL builds a Mem graph from the vertices, vertex_properties and edges
// tables. Repeated (vertex_id, prop_key) rows load with LIST cardinality.
func LoadSQL(ctx context.Context, db *sql.DB, indexKeys ...string) (*Mem, error) {
	g := NewMem(indexKeys...)

	rows, err := db.QueryContext(ctx, SQL_VERTICES)
	if err != nil {
		return nil, errors.Wrap(err, "querying vertices")
	}
	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scanning vertex")
		}
		if _, err := g.AddVertex(id, label, nil); err != nil {
			rows.Close()
			return nil, err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating vertices")
	}

	rows, err = db.QueryContext(ctx, SQL_PROPERTIES)
	if err != nil {
		return nil, errors.Wrap(err, "querying vertex properties")
	}
	for rows.Next() {
		var id, key, value string
		if err := rows.Scan(&id, &key, &value); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scanning vertex property")
		}
		v, ok := g.Vertex(id)
		if !ok {
			rows.Close()
			return nil, fmt.Errorf("property %s references unknown vertex %s", key, id)
		}
		if err := v.SetProperty(LIST, key, value); err != nil {
			rows.Close()
			return nil, err
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating vertex properties")
	}

	rows, err = db.QueryContext(ctx, SQL_EDGES)
	if err != nil {
		return nil, errors.Wrap(err, "querying edges")
	}
	defer rows.Close()
	for rows.Next() {
		var id, label, out, in string
		if err := rows.Scan(&id, &label, &out, &in); err != nil {
			return nil, errors.Wrap(err, "scanning edge")
		}
		if _, err := g.AddEdge(id, label, out, in, nil); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating edges")
	}
	return g, nil
}
