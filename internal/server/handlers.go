package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/flagonhq/flagon/internal/toggle"
)

func (a *API) handleFlag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := a.cfg.Known(toggle.KindFlag, name); err != nil {
		renderUnknown(w, r, name)
		return
	}

	active := a.engine.FlagIsActive(r.Context(), callerContext(r), name)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, ToggleResponse{Name: name, Kind: string(toggle.KindFlag), Active: active})
}

func (a *API) handleSwitch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := a.cfg.Known(toggle.KindSwitch, name); err != nil {
		renderUnknown(w, r, name)
		return
	}

	active := a.engine.SwitchIsActive(r.Context(), name)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, ToggleResponse{Name: name, Kind: string(toggle.KindSwitch), Active: active})
}

func (a *API) handleSample(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := a.cfg.Known(toggle.KindSample, name); err != nil {
		renderUnknown(w, r, name)
		return
	}

	active := a.engine.SampleIsActive(r.Context(), name)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, ToggleResponse{Name: name, Kind: string(toggle.KindSample), Active: active})
}

func (a *API) handleAllFlags(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, a.engine.AllFlags(r.Context(), callerContext(r)))
}

func (a *API) handleAllSwitches(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, a.engine.AllSwitches(r.Context()))
}

func (a *API) handleAllSamples(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, a.engine.AllSamples(r.Context()))
}

func (a *API) handleToggleState(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, a.evaluateState(r))
}

func (a *API) evaluateState(r *http.Request) StateResponse {
	rc := callerContext(r)
	return StateResponse{
		Flags:    a.engine.AllFlags(r.Context(), rc),
		Switches: a.engine.AllSwitches(r.Context()),
		Samples:  a.engine.AllSamples(r.Context()),
	}
}

// renderUnknown answers 404 for names outside the configured universe. The
// HTTP surface never leans on the engine's unknown-name fallback: a typo in
// a URL should be visible, not silently inactive.
func renderUnknown(w http.ResponseWriter, r *http.Request, name string) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrorResponse{
		Code:    "ERR_UNKNOWN_TOGGLE",
		Message: "no toggle named " + name + " is configured",
	})
}
