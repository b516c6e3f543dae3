/*
Copyright 2026, Square, Inc.

Package config provides the ability to load config files into predefined
structures that are used by vertigo. The server and the CLI use the Vertigo
struct in bin/main.go; it provides all of the config information needed to
serve a graph and to talk to another server.

Types of config structs provided by this package:

* Vertigo: all of the config needed to run the server and the CLI

* Server: the configuration for running a webserver (ex: the listen address the
  server should run on, the TLS config the server should run with, etc.)

* Graph: where the graph is loaded from (a YAML document or a MySQL database)
  and which vertex properties are indexed

* Computer: the graph computer defaults (workers, persist and result graph
  modes, superstep ceiling, program configuration)

* Strategies: default strategies to leave out, and whether graph computer
  traversals are allowed at all

* HTTPClient: the configuration to use for an HTTP client that will submit
  traversals to a remote server (ex: the URL of the server, the TLS config the
  client should use when connecting to it, etc.)

* TLS: the configuration for constructing a Go tls.Config (ex: the CA cert file
  to use, the key file to use, etc.)
*/
package config
