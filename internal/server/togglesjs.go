package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// handleTogglesScript serves the full toggle state as a JavaScript snippet
// that pages can load with a plain script tag. The response must never be
// cached: sample values differ on every evaluation, and flag values differ
// per caller.
func (a *API) handleTogglesScript(w http.ResponseWriter, r *http.Request) {
	state, err := json.Marshal(a.evaluateState(r))
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "failed to serialize toggle state",
		})
		return
	}

	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "max-age=0, no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)

	w.Write([]byte("window.flagon = "))
	w.Write(state)
	w.Write([]byte(";\n"))
}
