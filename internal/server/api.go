// Package server implements the HTTP evaluation surface. Every /v1 route
// runs behind the stickiness middleware, which builds the per-request
// evaluation context from inbound cookies and headers and projects recorded
// rollout decisions back out as cookies.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/flagonhq/flagon/internal/config"
	"github.com/flagonhq/flagon/internal/request"
)

// Evaluator is the engine surface the handlers need. An interface so tests
// can substitute a canned implementation.
type Evaluator interface {
	FlagIsActive(ctx context.Context, rc *request.Context, name string) bool
	SwitchIsActive(ctx context.Context, name string) bool
	SampleIsActive(ctx context.Context, name string) bool
	AllFlags(ctx context.Context, rc *request.Context) map[string]bool
	AllSwitches(ctx context.Context) map[string]bool
	AllSamples(ctx context.Context) map[string]bool
}

// API holds the router and its dependencies.
type API struct {
	Router *chi.Mux

	engine Evaluator
	cfg    *config.TogglesConfig
}

// NewAPI creates the evaluation API.
// Panics if any dependency is nil.
func NewAPI(engine Evaluator, cfg *config.TogglesConfig) *API {
	if engine == nil {
		panic("server: evaluator cannot be nil")
	}
	if cfg == nil {
		panic("server: toggles config cannot be nil")
	}

	api := &API{
		Router: chi.NewRouter(),
		engine: engine,
		cfg:    cfg,
	}

	api.configureRoutes()
	return api
}

func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger)
	a.Router.Use(middleware.Recoverer)

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/v1", func(r chi.Router) {
		r.Use(a.Stickiness)

		r.Get("/flags", a.handleAllFlags)
		r.Get("/flags/{name}", a.handleFlag)
		r.Get("/switches", a.handleAllSwitches)
		r.Get("/switches/{name}", a.handleSwitch)
		r.Get("/samples", a.handleAllSamples)
		r.Get("/samples/{name}", a.handleSample)

		r.Get("/toggles", a.handleToggleState)
		r.Get("/toggles.js", a.handleTogglesScript)
	})
}

func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// callerContext returns the request context installed by the stickiness
// middleware, or a throwaway one if a handler is exercised without it.
func callerContext(r *http.Request) *request.Context {
	if rc := request.FromContext(r.Context()); rc != nil {
		return rc
	}
	return request.New()
}
