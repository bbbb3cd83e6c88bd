package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/flagonhq/flagon/internal/logger"
	"github.com/flagonhq/flagon/internal/request"
)

// AllFlags evaluates every flag in the configured universe for one request.
// Flag results are request-specific, so the mapping itself is never cached;
// each evaluation still goes through the decision cache.
func (e *Engine) AllFlags(ctx context.Context, rc *request.Context) map[string]bool {
	out := make(map[string]bool, len(e.cfg.Flags))
	for _, name := range e.cfg.FlagNames() {
		out[name] = e.FlagIsActive(ctx, rc, name)
	}
	return out
}

// AllSwitches evaluates every switch in the configured universe. The whole
// mapping is cached under a single aggregate key: switch values are globally
// uniform, so one entry serves every caller until an individual switch is
// re-cached or mutated.
func (e *Engine) AllSwitches(ctx context.Context) map[string]bool {
	key := e.keys.AllSwitches()

	if raw, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		var cached map[string]bool
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached
		}
		logger.FromContext(ctx).Warn("corrupt cached switch aggregate, rebuilding")
	}

	// Seed from universe defaults, overlay stored rows, then forced values.
	out := make(map[string]bool, len(e.cfg.Switches))
	for name, def := range e.cfg.Switches {
		out[name] = def
	}

	stored, err := e.repo.ListSwitches(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list switches, serving universe defaults",
			slog.Any("error", err),
		)
	} else {
		for _, sw := range stored {
			if _, known := out[sw.Name]; known {
				out[sw.Name] = sw.Active
			}
		}
	}

	for name, forced := range e.cfg.SwitchesForced {
		if _, known := out[name]; known {
			out[name] = forced
		}
	}

	// Cache only complete results; a defaults-only answer should retry.
	if err == nil {
		if raw, jsonErr := json.Marshal(out); jsonErr == nil {
			if addErr := e.cache.Add(ctx, key, raw, e.cfg.CacheTTL); addErr != nil {
				logger.FromContext(ctx).Warn("failed to cache switch aggregate", slog.Any("error", addErr))
			}
		}
	}

	return out
}

// AllSamples evaluates every sample in the configured universe. Each value
// is an independent draw, so the mapping is computed fresh per call.
func (e *Engine) AllSamples(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(e.cfg.Samples))
	for _, name := range e.cfg.SampleNames() {
		out[name] = e.SampleIsActive(ctx, name)
	}
	return out
}
