package server

// ToggleResponse is the single-toggle evaluation result.
type ToggleResponse struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}

// StateResponse is the full evaluation state for one request: every
// configured toggle of every kind, evaluated.
type StateResponse struct {
	Flags    map[string]bool `json:"flags"`
	Switches map[string]bool `json:"switches"`
	Samples  map[string]bool `json:"samples"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
