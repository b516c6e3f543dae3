// Copyright 2026, Square, Inc.

// Package api provides controllers for each api endpoint. Controllers are
// "dumb wiring"; there is little to no application logic in this package.
// Controllers call and coordinate other packages to satisfy the api endpoint.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/square/vertigo/app"
	"github.com/square/vertigo/computation"
	serr "github.com/square/vertigo/errors"
	"github.com/square/vertigo/proto"
	"github.com/square/vertigo/traversal"
	"github.com/square/vertigo/util"
	v "github.com/square/vertigo/version"
)

const (
	API_ROOT = "/api/v1/"
)

// API provides controllers for endpoints it registers with a router.
// It satisfies the http.HandlerFunc interface.
type API struct {
	appCtx app.Context
	source *traversal.Source
	cm     computation.Manager
	// --
	echo *echo.Echo
}

// NewAPI creates a new API struct. It initializes an echo web server within the
// struct, and registers all of the API's routes with it.
func NewAPI(appCtx app.Context) *API {
	api := &API{
		appCtx: appCtx,
		source: appCtx.Source,
		cm:     appCtx.Computations,
		// --
		echo: echo.New(),
	}

	// //////////////////////////////////////////////////////////////////////
	// Routes
	// //////////////////////////////////////////////////////////////////////

	// Traversal
	api.echo.POST(API_ROOT+"traversals", api.traversalHandler) // run -> proto.TraversalResponse

	// Computation
	api.echo.POST(API_ROOT+"computations", api.createComputationHandler)            // create and start
	api.echo.GET(API_ROOT+"computations", api.listComputationsHandler)              // list -> []proto.Computation
	api.echo.GET(API_ROOT+"computations/:id", api.getComputationHandler)            // get -> proto.Computation
	api.echo.GET(API_ROOT+"computations/:id/result", api.computationResultHandler) // result -> proto.ComputationResult
	api.echo.PUT(API_ROOT+"computations/:id/stop", api.stopComputationHandler)     // stop

	// Meta
	api.echo.GET("/version", api.versionHandler) // return version.VERSION

	// //////////////////////////////////////////////////////////////////////
	// Middleware and hooks
	// //////////////////////////////////////////////////////////////////////
	api.echo.Use(middleware.Recover())
	api.echo.Use(middleware.Logger())
	api.echo.Use((func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-Vertigo-Version", v.Version())
			return next(c)
		}
	}))

	return api
}

func (api *API) Router() *echo.Echo {
	return api.echo
}

// Run makes the API listen on the configured address.
func (api *API) Run() error {
	var err error
	cfg := api.appCtx.Config.Server
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		err = api.echo.StartTLS(cfg.ListenAddress, cfg.TLS.CertFile, cfg.TLS.KeyFile)
	} else {
		err = api.echo.Start(cfg.ListenAddress)
	}
	return err
}

// Stop stops the API when it's running. When Stop is called, Run returns
// immediately. Make sure to wait for Stop to return.
func (api *API) Stop(ctx context.Context) error {
	var err error
	cfg := api.appCtx.Config.Server
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		err = api.echo.TLSServer.Shutdown(ctx)
	} else {
		err = api.echo.Server.Shutdown(ctx)
	}
	return err
}

// ServeHTTP makes the API implement the http.HandlerFunc interface.
func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.echo.ServeHTTP(w, r)
}

// POST <API_ROOT>/traversals
// Rebuild a traversal from its bytecode, run it and return its traversers.
func (api *API) traversalHandler(c echo.Context) error {
	var req proto.TraversalRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Bytecode == nil {
		return handleError(serr.NewConfigurationError("bytecode", "no bytecode"), c)
	}

	id := util.XID()
	logger := log.WithField("traversal", id)

	t, err := traversal.Translate(api.source, req.Bytecode, api.appCtx.Registry)
	if err != nil {
		logger.Infof("invalid bytecode %s: %s", req.Bytecode, err)
		return handleError(err, c)
	}
	trs, err := t.Traversers(c.Request().Context())
	if err != nil {
		logger.Infof("traversal %s failed: %s", t, err)
		return handleError(err, c)
	}
	logger.Debugf("traversal %s: %d traversers", t, len(trs))

	return c.JSON(http.StatusOK, proto.TraversalResponse{
		Id:         id,
		Traversers: proto.EncodeTraversers(trs),
	})
}

// POST <API_ROOT>/computations
// Create a computation and start it.
func (api *API) createComputationHandler(c echo.Context) error {
	var req proto.CreateComputation
	if err := c.Bind(&req); err != nil {
		return err
	}

	comp, err := api.cm.Create(req)
	if err != nil {
		return handleError(err, c)
	}

	// Set the location of the computation in the response header.
	locationUrl, _ := url.Parse(API_ROOT + "computations/" + comp.Id)
	c.Response().Header().Set("Location", locationUrl.EscapedPath())

	return c.JSON(http.StatusCreated, comp)
}

// GET <API_ROOT>/computations
// Get all computations.
func (api *API) listComputationsHandler(c echo.Context) error {
	list, err := api.cm.List()
	if err != nil {
		return handleError(err, c)
	}
	return c.JSON(http.StatusOK, list)
}

// GET <API_ROOT>/computations/{id}
// Get a computation.
func (api *API) getComputationHandler(c echo.Context) error {
	comp, err := api.cm.Get(c.Param("id"))
	if err != nil {
		return handleError(err, c)
	}
	return c.JSON(http.StatusOK, comp)
}

// GET <API_ROOT>/computations/{id}/result
// Get the result graph and memory of a complete computation.
func (api *API) computationResultHandler(c echo.Context) error {
	res, err := api.cm.Result(c.Param("id"))
	if err != nil {
		return handleError(err, c)
	}
	return c.JSON(http.StatusOK, res)
}

// PUT <API_ROOT>/computations/{id}/stop
// Stop a running computation.
func (api *API) stopComputationHandler(c echo.Context) error {
	if err := api.cm.Stop(c.Param("id")); err != nil {
		return handleError(err, c)
	}
	return nil
}

func (api *API) versionHandler(c echo.Context) error {
	return c.String(http.StatusOK, v.Version())
}

// ------------------------------------------------------------------------- //

func handleError(err error, c echo.Context) error {
	ret := proto.Error{
		Message:    err.Error(),
		Kind:       serr.Kind(err),
		HTTPStatus: http.StatusInternalServerError,
	}

	switch ret.Kind {
	case serr.KIND_CONFIGURATION:
		ret.HTTPStatus = http.StatusBadRequest
	case serr.KIND_VERIFICATION:
		ret.HTTPStatus = http.StatusUnprocessableEntity
	}

	var nf serr.NotFoundError
	if errors.As(err, &nf) {
		ret.HTTPStatus = http.StatusNotFound
		ret.Id = nf.Id
	}

	switch err {
	case computation.ErrNotComplete, computation.ErrNotRunning:
		ret.HTTPStatus = http.StatusConflict
		ret.Id = c.Param("id")
	case computation.ErrShuttingDown:
		ret.HTTPStatus = http.StatusServiceUnavailable
	}

	return c.JSON(ret.HTTPStatus, ret)
}
