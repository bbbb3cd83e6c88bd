package engine

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flagonhq/flagon/internal/observability"
	"github.com/flagonhq/flagon/internal/request"
	"github.com/flagonhq/flagon/internal/toggle"
	"github.com/flagonhq/flagon/internal/validation"
)

// FlagIsActive evaluates a flag for one request. Resolution order, first
// match wins:
//
//  1. Existence: names outside the universe are inactive (panic in strict).
//  2. Request override (global override mode only).
//  3. Process-wide forced value.
//  4. Definition lookup through the decision cache.
//  5. Testing-mode override via the test cookie/query channel.
//  6. Everyone / role / language gates.
//  7. User and group membership gates.
//  8. Percentage rollout with per-request dedup and cookie stickiness.
//  9. Universe default.
func (e *Engine) FlagIsActive(ctx context.Context, rc *request.Context, name string) bool {
	start := time.Now()
	active := e.resolveFlag(ctx, rc, name)
	observability.EvaluationDuration.WithLabelValues(string(toggle.KindFlag)).Observe(time.Since(start).Seconds())
	observability.EvaluationsTotal.WithLabelValues(string(toggle.KindFlag), resultLabel(active)).Inc()
	return active
}

func (e *Engine) resolveFlag(ctx context.Context, rc *request.Context, name string) bool {
	def, known := e.cfg.Flags[name]
	if !known {
		if e.cfg.Strict {
			validation.Assertf(false, "flag %q is not in the configured universe", name)
		}
		return e.cfg.FlagDefault
	}

	if rc == nil {
		// Callers without a request (cron, scripts) still get the
		// non-sticky gates; decisions recorded here go nowhere.
		rc = request.New()
	}

	// Request override channel. The decision is recorded both per-request
	// and as a test marker so response cookies reflect it.
	if e.cfg.Override {
		if v, ok := rc.QueryValue(name); ok {
			on := v == "1"
			rc.SetTestDecision(name, on)
			rc.SetDecision(name, on, false)
			return on
		}
	}

	if forced, ok := e.cfg.FlagsForced[name]; ok {
		// Static configuration; nothing to cache.
		return forced
	}

	fl, ok := e.lookupFlag(ctx, name)
	if !ok {
		return def
	}

	// Testing mode re-opens the override channel for this flag alone,
	// independent of the global override switch.
	if fl.Testing {
		tc := e.cfg.TestCookieFor(name)
		if v, ok := rc.QueryValue(tc); ok {
			on := v == "1"
			rc.SetTestDecision(name, on)
			return on
		}
		if v, ok := rc.CookieValue(tc); ok {
			return v == "True"
		}
	}

	switch fl.Everyone {
	case toggle.On:
		return true
	case toggle.Off:
		return false
	}

	if fl.Authenticated && rc.Authenticated {
		return true
	}
	if fl.Staff && rc.Staff {
		return true
	}
	if fl.Superusers && rc.Superuser {
		return true
	}
	if len(fl.Languages) > 0 && rc.Language != "" && slices.Contains(fl.Languages, rc.Language) {
		return true
	}

	if rc.UserID != "" {
		users := e.flagMembers(ctx, fl, false)
		if _, ok := users[rc.UserID]; ok {
			return true
		}
	}
	if len(rc.Groups) > 0 {
		groups := e.flagMembers(ctx, fl, true)
		for _, g := range rc.Groups {
			if _, ok := groups[g]; ok {
				return true
			}
		}
	}

	if fl.Percent.IsPositive() {
		return e.rolloutDecision(rc, fl)
	}

	return def
}

// rolloutDecision resolves the percentage gate: an existing per-request
// decision wins (one draw per flag per request), then the sticky cookie,
// then a fresh draw. Every outcome is recorded so the transport re-emits it
// as a cookie.
func (e *Engine) rolloutDecision(rc *request.Context, fl *toggle.Flag) bool {
	if d, ok := rc.Decision(fl.Name); ok {
		return d.Active
	}

	if v, ok := rc.CookieValue(e.cfg.CookieFor(fl.Name)); ok {
		active := v == "True"
		rc.SetDecision(fl.Name, active, fl.Rollout)
		return active
	}

	// Inclusive comparison at the boundary: a draw of exactly percent is
	// active. The decimal conversion keeps the threshold exact.
	drawn := decimal.NewFromFloat(e.draw())
	active := drawn.LessThanOrEqual(fl.Percent)
	rc.SetDecision(fl.Name, active, fl.Rollout)
	return active
}
