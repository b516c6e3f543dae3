// Copyright 2026, Square, Inc.

// Package app provides app-wide data structs and functions. Context holds the
// config, the hooks that load it and the factories that make every component
// the server needs. The defaults can be replaced before the server boots.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"

	"github.com/square/vertigo/computation"
	"github.com/square/vertigo/computer"
	"github.com/square/vertigo/computer/clustering"
	"github.com/square/vertigo/config"
	"github.com/square/vertigo/graph"
	"github.com/square/vertigo/retry"
	"github.com/square/vertigo/traversal"
	"github.com/square/vertigo/traversal/strategy"
	"github.com/square/vertigo/util"
)

// Context represents the config, core service singletons, and 3rd-party
// extensions.
type Context struct {
	Hooks     Hooks
	Factories Factories

	Config config.Vertigo

	// Set by the server on boot
	Graph        graph.Graph
	Source       *traversal.Source
	Registry     traversal.StrategyRegistry
	Computations computation.Manager
}

// Factories make the server components. They are called once, on boot, in the
// order they are listed.
type Factories struct {
	MakeGraph      func(Context) (graph.Graph, error)
	MakeStrategies func(Context) ([]traversal.Strategy, error)
	MakeRegistry   func(Context) (traversal.StrategyRegistry, error)
	MakePrograms   func(Context) (computer.Programs, error)
}

// Hooks allow users to modify system behavior at certain points.
type Hooks struct {
	// LoadConfig loads the config. It is the first thing the server does.
	LoadConfig func(Context) (config.Vertigo, error)
}

func Defaults() Context {
	return Context{
		Factories: Factories{
			MakeGraph:      MakeGraph,
			MakeStrategies: MakeStrategies,
			MakeRegistry:   MakeRegistry,
			MakePrograms:   MakePrograms,
		},
		Hooks: Hooks{
			LoadConfig: LoadConfig,
		},
		Config: config.Defaults(),
	}
}

// LoadConfig loads config/<ENVIRONMENT>.yaml (development by default) over the
// config defaults. A missing file is not an error.
func LoadConfig(ctx Context) (config.Vertigo, error) {
	var cfgFile string
	switch os.Getenv("ENVIRONMENT") {
	case "staging":
		cfgFile = "config/staging.yaml"
	case "production":
		cfgFile = "config/production.yaml"
	default:
		cfgFile = "config/development.yaml"
	}
	cfg := ctx.Config
	err := config.Load(cfgFile, &cfg)
	if os.IsNotExist(err) {
		log.Infof("config file %s does not exist, using defaults", cfgFile)
		return cfg, nil
	}
	return cfg, err
}

// MakeGraph loads the graph from the configured YAML file or MySQL database.
// With neither, the graph is empty.
func MakeGraph(ctx Context) (graph.Graph, error) {
	gcfg := ctx.Config.Graph
	if gcfg.File != "" {
		f, err := os.Open(gcfg.File)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		g, err := graph.LoadYAML(f)
		if err != nil {
			return nil, fmt.Errorf("error loading graph file %s: %s", gcfg.File, err)
		}
		for _, key := range gcfg.Indexes {
			g.CreateIndex(key)
		}
		return g, nil
	}

	if gcfg.DSN != "" {
		db, err := OpenDB(gcfg)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		var g *graph.Mem
		err = retry.Do(context.Background(), gcfg.LoadTries, 2*time.Second,
			func() error {
				var err error
				g, err = graph.LoadSQL(context.Background(), db, gcfg.Indexes...)
				return err
			},
			func(try int, err error) {
				log.Warnf("loading graph from database (try %d of %d): %s", try, gcfg.LoadTries, err)
			},
		)
		if err != nil {
			return nil, err
		}
		return g, nil
	}

	log.Warn("no graph file or database configured, serving an empty graph")
	return graph.NewMem(gcfg.Indexes...), nil
}

// OpenDB opens the MySQL database the graph is loaded from.
func OpenDB(gcfg config.Graph) (*sql.DB, error) {
	dsn := gcfg.DSN
	if gcfg.TLS.Enabled() {
		tlsConfig, err := util.NewTLSConfig(gcfg.TLS.CAFile, gcfg.TLS.CertFile, gcfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("error loading database TLS config: %s", err)
		}
		if err := mysql.RegisterTLSConfig("custom", tlsConfig); err != nil {
			return nil, err
		}
		dsnCfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid DSN: %s", err)
		}
		dsnCfg.TLSConfig = "custom"
		dsn = dsnCfg.FormatDSN()
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("error creating sql.DB: %s", err)
	}
	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(12 * time.Hour)
	return db, nil
}

// MakeStrategies returns the strategies of every traversal the server runs:
// the defaults, minus the disabled ones, plus ReferenceElementStrategy so that
// no element leaves the server attached to the graph.
func MakeStrategies(ctx Context) ([]traversal.Strategy, error) {
	disabled := map[string]bool{}
	for _, name := range ctx.Config.Strategies.Disabled {
		disabled[name] = true
	}
	ss := append(strategy.Defaults(), strategy.ReferenceElement())
	if ctx.Config.Strategies.ForbidOLAP {
		ss = append(ss, strategy.VertexProgramRestriction())
	}
	var out []traversal.Strategy
	for _, s := range ss {
		if disabled[s.Name()] {
			log.Infof("strategy %s disabled", s.Name())
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// MakeRegistry returns the strategies clients can add by name.
func MakeRegistry(ctx Context) (traversal.StrategyRegistry, error) {
	return strategy.NewRegistry(), nil
}

// MakePrograms returns the vertex programs that can be run as computations.
func MakePrograms(ctx Context) (computer.Programs, error) {
	return clustering.Programs(), nil
}

// ComputerOptions converts the computer config to graph computer options.
func ComputerOptions(cfg config.Computer) (computer.Options, error) {
	persist, err := computer.ParsePersist(cfg.Persist)
	if err != nil {
		return computer.Options{}, err
	}
	resultGraph, err := computer.ParseResultGraph(cfg.ResultGraph)
	if err != nil {
		return computer.Options{}, err
	}
	if _, err := computer.NewGraphComputer(computer.Options{GraphComputer: cfg.GraphComputer}); err != nil {
		return computer.Options{}, err
	}
	return computer.Options{
		GraphComputer: cfg.GraphComputer,
		Workers:       cfg.Workers,
		Persist:       persist,
		ResultGraph:   resultGraph,
		MaxIterations: cfg.MaxIterations,
		Configuration: computer.Configuration(cfg.Configuration),
	}, nil
}
