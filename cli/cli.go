// Copyright 2026, Square, Inc.

// Package cli implements the vertigo command: it serves the API, runs
// computations locally, and sends traversals and computations to a server.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	log "github.com/sirupsen/logrus"

	"github.com/square/vertigo/app"
	"github.com/square/vertigo/computer"
	"github.com/square/vertigo/computer/clustering"
	"github.com/square/vertigo/config"
	"github.com/square/vertigo/proto"
	"github.com/square/vertigo/remote"
	"github.com/square/vertigo/server"
	"github.com/square/vertigo/traversal"
	"github.com/square/vertigo/version"
)

var ErrHelp = errors.New("help")

const USAGE = `Commands:
  serve                  serve the API over the configured graph
  components [FILE]      print the connected components of a YAML graph
  submit                 send the bytecode JSON on stdin to --addr, print the traversers
  compute PROGRAM [K=V]  run a vertex program on --addr, print the result
  version                print the version
`

// Options represents the command line options: --config, --addr, etc.
type Options struct {
	Config  string `arg:"env"`
	Graph   string `arg:"env"`
	Addr    string `arg:"env"`
	Workers int
	Timeout uint
	Debug   bool
	Version bool
}

// Command represents a command (serve, submit, etc.) and its values.
type Command struct {
	Cmd  string   `arg:"positional"`
	Args []string `arg:"positional"`
}

type CommandLine struct {
	Options
	Command
}

// ParseCommandLine parses args (without the program name) and env vars.
func ParseCommandLine(args []string, out io.Writer) (CommandLine, error) {
	var c CommandLine
	p, err := arg.NewParser(arg.Config{Program: "vertigo"}, &c)
	if err != nil {
		return c, err
	}
	if err := p.Parse(args); err != nil {
		switch err {
		case arg.ErrHelp:
			p.WriteHelp(out)
			fmt.Fprint(out, "\n"+USAGE)
			return c, ErrHelp
		case arg.ErrVersion:
			c.Version = true
		default:
			return c, fmt.Errorf("Error parsing command line: %s", err)
		}
	}
	return c, nil
}

// Run runs the command given on the command line.
func Run(args []string, in io.Reader, out io.Writer) error {
	c, err := ParseCommandLine(args, out)
	if err != nil {
		return err
	}
	if c.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if c.Version {
		c.Cmd = "version"
	}
	cfg, err := loadConfig(c.Options)
	if err != nil {
		return err
	}

	switch c.Cmd {
	case "serve":
		return serve(cfg)
	case "components":
		if len(c.Args) > 0 {
			cfg.Graph.File = c.Args[0]
		}
		return components(cfg, out)
	case "submit":
		return submit(cfg, in, out)
	case "compute":
		if len(c.Args) == 0 {
			return fmt.Errorf("compute: no vertex program given")
		}
		return compute(cfg, c.Args[0], c.Args[1:], out)
	case "version":
		fmt.Fprintln(out, "vertigo "+version.Version())
		return nil
	case "":
		fmt.Fprint(out, USAGE)
		return ErrHelp
	}
	return fmt.Errorf("unknown command: %s", c.Cmd)
}

// loadConfig loads --config over the defaults, then applies the other options.
func loadConfig(o Options) (config.Vertigo, error) {
	cfg := config.Defaults()
	if o.Config != "" {
		if err := config.Load(o.Config, &cfg); err != nil {
			return cfg, fmt.Errorf("error loading config file %s: %s", o.Config, err)
		}
	}
	if o.Graph != "" {
		cfg.Graph.File = o.Graph
	}
	if o.Addr != "" {
		cfg.Server.ListenAddress = o.Addr
		cfg.Client.ServerURL = o.Addr
		if !strings.HasPrefix(o.Addr, "http") {
			cfg.Client.ServerURL = "http://" + o.Addr
		}
	}
	if o.Workers > 0 {
		cfg.Computer.Workers = o.Workers
	}
	if o.Timeout > 0 {
		cfg.Client.Timeout = o.Timeout
	}
	return cfg, nil
}

func serve(cfg config.Vertigo) error {
	appCtx := app.Defaults()
	appCtx.Hooks.LoadConfig = func(app.Context) (config.Vertigo, error) {
		return cfg, nil
	}
	s := server.NewServer(appCtx)
	if err := s.Boot(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Infof("caught %s, stopping", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			log.Errorf("error stopping: %s", err)
		}
	}()

	log.Infof("listening on %s", cfg.Server.ListenAddress)
	err := s.Run()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// components runs the connected component program on the graph file and
// prints one component per line: the component id, then its vertex ids.
func components(cfg config.Vertigo, out io.Writer) error {
	if cfg.Graph.File == "" {
		return fmt.Errorf("components: no graph file given")
	}
	g, err := app.MakeGraph(app.Context{Config: cfg})
	if err != nil {
		return err
	}
	opts, err := app.ComputerOptions(cfg.Computer)
	if err != nil {
		return err
	}
	gc, err := computer.NewGraphComputer(opts)
	if err != nil {
		return err
	}
	p, err := clustering.Programs().Load(g, computer.Configuration{computer.VERTEX_PROGRAM: clustering.NAME})
	if err != nil {
		return err
	}
	res, err := gc.Submit(context.Background(), g, p)
	if err != nil {
		return err
	}
	printGroups(out, clustering.Groups(res.Graph, clustering.COMPONENT))
	return nil
}

func printGroups(out io.Writer, groups map[string][]string) {
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(out, "%s: %s\n", id, strings.Join(groups[id], " "))
	}
}

// submit sends the bytecode read from in and prints one traverser per line as
// JSON.
func submit(cfg config.Vertigo, in io.Reader, out io.Writer) error {
	var bc traversal.Bytecode
	if err := json.NewDecoder(in).Decode(&bc); err != nil {
		return fmt.Errorf("invalid bytecode: %s", err)
	}
	c, err := remote.NewClientFromConfig(cfg.Client)
	if err != nil {
		return err
	}
	ctx := context.Background()
	res, err := c.Submit(ctx, &bc)
	if err != nil {
		return err
	}
	trs, err := res.Traversers(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, tr := range proto.EncodeTraversers(trs) {
		if err := enc.Encode(tr); err != nil {
			return err
		}
	}
	return nil
}

// compute creates a computation on the server, waits for it, and prints its
// result as JSON. Each arg is a program configuration key=value.
func compute(cfg config.Vertigo, program string, args []string, out io.Writer) error {
	req := proto.CreateComputation{
		Program:       program,
		Configuration: map[string]interface{}{},
		Workers:       cfg.Computer.Workers,
	}
	for _, kv := range args {
		p := strings.SplitN(kv, "=", 2)
		if len(p) != 2 {
			return fmt.Errorf("invalid configuration %q: expected key=value", kv)
		}
		req.Configuration[p[0]] = p[1]
	}

	c, err := remote.NewClientFromConfig(cfg.Client)
	if err != nil {
		return err
	}
	ctx := context.Background()
	comp, err := c.CreateComputation(ctx, req)
	if err != nil {
		return err
	}
	log.Debugf("computation %s created", comp.Id)
	for comp.State == proto.STATE_PENDING || comp.State == proto.STATE_RUNNING {
		time.Sleep(100 * time.Millisecond)
		if comp, err = c.GetComputation(ctx, comp.Id); err != nil {
			return err
		}
	}
	if comp.State != proto.STATE_COMPLETE {
		return fmt.Errorf("computation %s %s: %s", comp.Id, proto.StateName[comp.State], comp.Error)
	}
	res, err := c.ComputationResult(ctx, comp.Id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

