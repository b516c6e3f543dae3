// Copyright 2026, Square, Inc.

// Package server bootstraps and runs the vertigo API.
package server

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/square/vertigo/api"
	"github.com/square/vertigo/app"
	"github.com/square/vertigo/computation"
	"github.com/square/vertigo/traversal"
)

type Server struct {
	appCtx app.Context
	api    *api.API
}

func NewServer(appCtx app.Context) *Server {
	return &Server{
		appCtx: appCtx,
	}
}

func (s *Server) Boot() error {
	// Load config file
	cfg, err := s.appCtx.Hooks.LoadConfig(s.appCtx)
	if err != nil {
		return fmt.Errorf("error loading config: %s", err)
	}
	s.appCtx.Config = cfg

	// Graph: loaded once on startup, then served until the server stops
	g, err := s.appCtx.Factories.MakeGraph(s.appCtx)
	if err != nil {
		return fmt.Errorf("MakeGraph: %s", err)
	}
	s.appCtx.Graph = g

	// Strategies applied to every traversal, and those clients can add by name
	ss, err := s.appCtx.Factories.MakeStrategies(s.appCtx)
	if err != nil {
		return fmt.Errorf("MakeStrategies: %s", err)
	}
	s.appCtx.Source = traversal.NewSource(g, ss...)
	reg, err := s.appCtx.Factories.MakeRegistry(s.appCtx)
	if err != nil {
		return fmt.Errorf("MakeRegistry: %s", err)
	}
	s.appCtx.Registry = reg

	// Computations: vertex programs run on the graph computer, asynchronously
	programs, err := s.appCtx.Factories.MakePrograms(s.appCtx)
	if err != nil {
		return fmt.Errorf("MakePrograms: %s", err)
	}
	opts, err := app.ComputerOptions(cfg.Computer)
	if err != nil {
		return fmt.Errorf("invalid computer config: %s", err)
	}
	s.appCtx.Computations = computation.NewManager(g, programs, opts, computation.NewRepo())

	// API: endpoints and controllers
	s.api = api.NewAPI(s.appCtx)

	log.Infof("booted: %d vertices, %d strategies, programs %v", len(g.Vertices()), len(ss), programs.Names())
	return nil
}

func (s *Server) Run() error {
	if s.api == nil {
		panic("Server.Run called before Server.Boot")
	}
	return s.api.Run()
}

// Stop stops running computations, then the API.
func (s *Server) Stop(ctx context.Context) error {
	if s.api == nil {
		return nil
	}
	if err := s.appCtx.Computations.Shutdown(ctx); err != nil {
		log.Warnf("computations did not stop: %s", err)
	}
	return s.api.Stop(ctx)
}

func (s *Server) API() *api.API {
	return s.api
}

func (s *Server) Context() app.Context {
	return s.appCtx
}
