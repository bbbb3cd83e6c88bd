// Package engine implements toggle evaluation: the ordered resolution rules
// for flags, switches and samples, the read-through decision cache protocol
// that keeps durable storage off the hot path, and the invalidation hook
// that reacts to definition mutations.
package engine

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/flagonhq/flagon/internal/cache"
	"github.com/flagonhq/flagon/internal/config"
	"github.com/flagonhq/flagon/internal/logger"
	"github.com/flagonhq/flagon/internal/observability"
	"github.com/flagonhq/flagon/internal/store"
	"github.com/flagonhq/flagon/internal/toggle"
)

// Engine evaluates toggles against an immutable configuration, a definition
// store and a decision cache. It holds no mutable state of its own, so a
// single instance serves concurrent requests.
type Engine struct {
	cfg    *config.TogglesConfig
	repo   store.Repository
	cache  cache.Service
	keys   cache.Keys
	logger *slog.Logger

	// draw produces a uniform random value in [0,100). Injected so tests
	// can pin percentage outcomes; stickiness comes from cookies, never
	// from a seeded source.
	draw func() float64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDraw replaces the random source. Test use only.
func WithDraw(draw func() float64) Option {
	return func(e *Engine) {
		e.draw = draw
	}
}

// New creates an Engine. All dependencies are mandatory except the logger,
// which falls back to slog.Default().
func New(cfg *config.TogglesConfig, repo store.Repository, cacheSvc cache.Service, log *slog.Logger, opts ...Option) *Engine {
	if cfg == nil {
		panic("engine: toggles config cannot be nil")
	}
	if repo == nil {
		panic("engine: repository cannot be nil")
	}
	if cacheSvc == nil {
		panic("engine: cache service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	e := &Engine{
		cfg:    cfg,
		repo:   repo,
		cache:  cacheSvc,
		keys:   cache.NewKeys(cfg.CachePrefix),
		logger: log,
		draw: func() float64 {
			return rand.Float64() * 100
		},
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// cacheGet reads one key, degrading errors to misses: an unreachable cache
// must fail open to storage, never fail the evaluation.
func (e *Engine) cacheGet(ctx context.Context, kind toggle.Kind, key string) ([]byte, bool) {
	val, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrors.Inc()
		observability.CacheMisses.WithLabelValues(string(kind)).Inc()
		logger.FromContext(ctx).Warn("cache read failed, treating as miss",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return nil, false
	}

	if ok {
		observability.CacheHits.WithLabelValues(string(kind)).Inc()
	} else {
		observability.CacheMisses.WithLabelValues(string(kind)).Inc()
	}
	return val, ok
}

// cacheFill writes entries after a storage read. Failures are logged and
// swallowed: the next evaluation re-fetches.
func (e *Engine) cacheFill(ctx context.Context, entries map[string][]byte) {
	if err := e.cache.SetMany(ctx, entries, e.cfg.CacheTTL); err != nil {
		observability.CacheErrors.Inc()
		logger.FromContext(ctx).Warn("cache fill failed",
			slog.Int("entries", len(entries)),
			slog.Any("error", err),
		)
	}
}

func resultLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
