package server_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flagonhq/flagon/internal/config"
	"github.com/flagonhq/flagon/internal/request"
	"github.com/flagonhq/flagon/internal/server"
)

// stubEvaluator is a canned server.Evaluator. It captures the request
// context the middleware built and can run a hook against it, standing in
// for the engine's decision recording.
type stubEvaluator struct {
	flags    map[string]bool
	switches map[string]bool
	samples  map[string]bool

	lastRC *request.Context
	onFlag func(rc *request.Context, name string) bool
}

func (s *stubEvaluator) FlagIsActive(_ context.Context, rc *request.Context, name string) bool {
	s.lastRC = rc
	if s.onFlag != nil {
		return s.onFlag(rc, name)
	}
	return s.flags[name]
}

func (s *stubEvaluator) SwitchIsActive(_ context.Context, name string) bool {
	return s.switches[name]
}

func (s *stubEvaluator) SampleIsActive(_ context.Context, name string) bool {
	return s.samples[name]
}

func (s *stubEvaluator) AllFlags(ctx context.Context, rc *request.Context) map[string]bool {
	s.lastRC = rc
	out := map[string]bool{}
	for name, active := range s.flags {
		out[name] = active
	}
	return out
}

func (s *stubEvaluator) AllSwitches(_ context.Context) map[string]bool {
	return s.switches
}

func (s *stubEvaluator) AllSamples(_ context.Context) map[string]bool {
	return s.samples
}

func serverConfig(t *testing.T) *config.TogglesConfig {
	t.Helper()

	cfg := &config.TogglesConfig{
		Flags:          map[string]bool{"beta": false},
		Switches:       map[string]bool{"maintenance": false},
		Samples:        map[string]string{"canary": "50"},
		SampleDefault:  "0",
		CookieName:     "dwf_%s",
		TestCookieName: "dwft_%s",
		CookieMaxAge:   2592000,
		ResetParam:     "flagon_reset",
		CachePrefix:    "flagon:",
		CacheTTL:       time.Minute,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestAPI(t *testing.T, stub *stubEvaluator) *server.API {
	t.Helper()

	if stub.flags == nil {
		stub.flags = map[string]bool{}
	}
	if stub.switches == nil {
		stub.switches = map[string]bool{}
	}
	if stub.samples == nil {
		stub.samples = map[string]bool{}
	}
	return server.NewAPI(stub, serverConfig(t))
}
