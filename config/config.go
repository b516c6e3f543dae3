// Copyright 2026, Square, Inc.

package config

import (
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

// Address the server listens on when none is configured (the Gremlin Server port).
const DEFAULT_LISTEN_ADDRESS = "127.0.0.1:8182"

///////////////////////////////////////////////////////////////////////////////
// High-Level Config Structs
///////////////////////////////////////////////////////////////////////////////

// The config used by the vertigo server. This is read from in bin/main.go.
type Vertigo struct {
	// The config that the API web server will run with.
	Server Server `yaml:"server"`

	// Where the graph served by the API is loaded from.
	Graph Graph `yaml:"graph"`

	// The graph computer defaults for computations submitted to the API.
	Computer Computer `yaml:"computer"`

	// Strategies applied to every traversal the server runs.
	Strategies Strategies `yaml:"strategies"`

	// The config the CLI uses to make a remote client with, to submit
	// traversals to another vertigo server.
	Client HTTPClient `yaml:"client"`
}

///////////////////////////////////////////////////////////////////////////////
// Config Components
///////////////////////////////////////////////////////////////////////////////

// Configuration for a web server.
type Server struct {
	// The address the server will listen on (ex: "127.0.0.1:8182").
	ListenAddress string `yaml:"listen_address"`

	// The TLS config used by the server.
	TLS `yaml:"tls_config"`
}

// Configuration for an HTTP client.
type HTTPClient struct {
	// The base URL of the server that this client communicates with
	// (ex: https://127.0.0.1:8182).
	ServerURL string `yaml:"server_url"`

	// Request timeout in milliseconds. Zero means no timeout.
	Timeout uint `yaml:"timeout"`

	// The TLS config used by the client.
	TLS `yaml:"tls_config"`
}

// Configuration for the graph source. Exactly one of File and DSN is expected;
// File wins if both are set.
type Graph struct {
	// A YAML graph document (see graph.Document).
	File string `yaml:"file"`

	// The full Data Source Name (DSN) of a MySQL database holding the
	// vertices, vertex_properties and edges tables (see
	// https://github.com/go-sql-driver/mysql#dsn-data-source-name).
	//
	// Note: if a TLS config is specified within the Graph struct, it will
	// automatically get appended to the DSN.
	DSN string `yaml:"mysql_dsn"`

	// The TLS config used to connect to the database.
	TLS `yaml:"tls_config"`

	// Vertex property keys to index for has() lookups.
	Indexes []string `yaml:"indexes"`

	// How many times to try loading the graph from the database.
	LoadTries int `yaml:"load_tries"`
}

// Configuration for the graph computer.
type Computer struct {
	// The graph computer name. Only "memory" is built in.
	GraphComputer string `yaml:"graph_computer"`

	// The number of workers per superstep. Zero means one per CPU.
	Workers int `yaml:"workers"`

	// What is kept of a computation: "nothing", "vertexProperties" or
	// "edges". Empty means the program decides.
	Persist string `yaml:"persist"`

	// Where results are written: "original" or "new". Empty means the
	// program decides.
	ResultGraph string `yaml:"result_graph"`

	// Ceiling on the number of supersteps. Zero means no ceiling.
	MaxIterations int `yaml:"max_iterations"`

	// Default vertex program configuration.
	Configuration map[string]interface{} `yaml:"configuration"`
}

// Strategy configuration.
type Strategies struct {
	// Names of default strategies that are not applied.
	Disabled []string `yaml:"disabled"`

	// ForbidOLAP rejects traversals that would run on a graph computer.
	ForbidOLAP bool `yaml:"forbid_olap"`
}

// TLS configuration.
type TLS struct {
	// The certificate file to use.
	CertFile string `yaml:"cert_file"`

	// The key file to use.
	KeyFile string `yaml:"key_file"`

	// The CA file to use.
	CAFile string `yaml:"ca_file"`
}

// Enabled returns true if all three files are set.
func (t TLS) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != "" && t.CAFile != ""
}

// Defaults returns the config used when no config file is given.
func Defaults() Vertigo {
	return Vertigo{
		Server: Server{
			ListenAddress: DEFAULT_LISTEN_ADDRESS,
		},
		Graph: Graph{
			LoadTries: 3,
		},
		Client: HTTPClient{
			ServerURL: "http://" + DEFAULT_LISTEN_ADDRESS,
		},
	}
}

///////////////////////////////////////////////////////////////////////////////
// Loading Config
///////////////////////////////////////////////////////////////////////////////

// Load loads a configuration file into the struct pointed to by the
// configStruct argument. Values not in the file are left as they are, so
// configStruct can hold defaults.
func Load(configFile string, configStruct interface{}) error {
	// Make sure the file exists.
	_, err := os.Stat(configFile)
	if err != nil {
		return err
	}

	// Read the file.
	data, err := ioutil.ReadFile(configFile)
	if err != nil {
		return err
	}

	// Unmarshal the contents of the file into the provided struct.
	err = yaml.Unmarshal(data, configStruct)
	if err != nil {
		return err
	}

	return nil
}
