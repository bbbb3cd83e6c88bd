package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flagonhq/flagon/internal/cache"
	"github.com/flagonhq/flagon/internal/config"
	"github.com/flagonhq/flagon/internal/engine"
	"github.com/flagonhq/flagon/internal/store"
	"github.com/flagonhq/flagon/internal/toggle"
)

var errStoreDown = errors.New("connection refused")

// fakeRepo is an in-memory store.Repository with call counters and a
// switchable failure mode.
type fakeRepo struct {
	mu sync.Mutex

	flags    map[string]*toggle.Flag
	switches map[string]*toggle.Switch
	samples  map[string]*toggle.Sample
	users    map[string][]string
	groups   map[string][]string

	failing bool

	getFlagCalls    int
	getSwitchCalls  int
	getSampleCalls  int
	listSwitchCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		flags:    map[string]*toggle.Flag{},
		switches: map[string]*toggle.Switch{},
		samples:  map[string]*toggle.Sample{},
		users:    map[string][]string{},
		groups:   map[string][]string{},
	}
}

func (r *fakeRepo) GetFlag(_ context.Context, name string) (*toggle.Flag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getFlagCalls++
	if r.failing {
		return nil, errStoreDown
	}
	fl, ok := r.flags[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return fl, nil
}

func (r *fakeRepo) GetSwitch(_ context.Context, name string) (*toggle.Switch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getSwitchCalls++
	if r.failing {
		return nil, errStoreDown
	}
	sw, ok := r.switches[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return sw, nil
}

func (r *fakeRepo) GetSample(_ context.Context, name string) (*toggle.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getSampleCalls++
	if r.failing {
		return nil, errStoreDown
	}
	sm, ok := r.samples[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return sm, nil
}

func (r *fakeRepo) ListFlagUsers(_ context.Context, name string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return nil, errStoreDown
	}
	return r.users[name], nil
}

func (r *fakeRepo) ListFlagGroups(_ context.Context, name string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return nil, errStoreDown
	}
	return r.groups[name], nil
}

func (r *fakeRepo) ListSwitches(_ context.Context) ([]toggle.Switch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listSwitchCalls++
	if r.failing {
		return nil, errStoreDown
	}
	out := make([]toggle.Switch, 0, len(r.switches))
	for _, sw := range r.switches {
		out = append(out, *sw)
	}
	return out, nil
}

// testConfig builds a validated toggles configuration covering the fixtures
// the engine tests share.
func testConfig(t *testing.T, mutate func(*config.TogglesConfig)) *config.TogglesConfig {
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
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

// newTestEngine wires an engine over the fake repository and a fresh
// in-process cache.
func newTestEngine(t *testing.T, cfg *config.TogglesConfig, repo *fakeRepo, opts ...engine.Option) (*engine.Engine, cache.Service) {
	t.Helper()

	memCache, err := cache.NewMemoryCache(10_000, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { memCache.Close() })

	return engine.New(cfg, repo, memCache, nil, opts...), memCache
}

// fixedDraw pins the percentage draw to one value.
func fixedDraw(v float64) engine.Option {
	return engine.WithDraw(func() float64 { return v })
}

// countingDraw pins the draw and counts invocations.
func countingDraw(v float64, calls *int) engine.Option {
	return engine.WithDraw(func() float64 {
		*calls++
		return v
	})
}
