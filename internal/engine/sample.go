package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flagonhq/flagon/internal/observability"
	"github.com/flagonhq/flagon/internal/toggle"
	"github.com/flagonhq/flagon/internal/validation"
)

// SampleIsActive evaluates a sample: an independent Bernoulli draw per call.
// Unlike flags there is no per-request or per-client stickiness.
func (e *Engine) SampleIsActive(ctx context.Context, name string) bool {
	start := time.Now()
	active := e.resolveSample(ctx, name)
	observability.EvaluationDuration.WithLabelValues(string(toggle.KindSample)).Observe(time.Since(start).Seconds())
	observability.EvaluationsTotal.WithLabelValues(string(toggle.KindSample), resultLabel(active)).Inc()
	return active
}

func (e *Engine) resolveSample(ctx context.Context, name string) bool {
	def, known := e.cfg.SamplePercent(name)
	if !known {
		if e.cfg.Strict {
			validation.Assertf(false, "sample %q is not in the configured universe", name)
		}
		def = e.cfg.SampleDefaultPercent()
		return e.drawAgainst(def)
	}

	if forced, ok := e.cfg.SampleForced(name); ok {
		return e.drawAgainst(forced)
	}

	return e.drawAgainst(e.lookupSample(ctx, name, def).Percent())
}

// drawAgainst decides one trial. The zero case short-circuits: exactly
// deterministic and no entropy burned.
func (e *Engine) drawAgainst(percent decimal.Decimal) bool {
	if percent.IsZero() {
		return false
	}
	return decimal.NewFromFloat(e.draw()).LessThanOrEqual(percent)
}
