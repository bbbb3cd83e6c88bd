package engine

import (
	"context"
	"time"

	"github.com/flagonhq/flagon/internal/observability"
	"github.com/flagonhq/flagon/internal/toggle"
	"github.com/flagonhq/flagon/internal/validation"
)

// SwitchIsActive evaluates a switch. Switches carry no per-request or
// per-client state: the value is globally uniform at any instant.
func (e *Engine) SwitchIsActive(ctx context.Context, name string) bool {
	start := time.Now()
	active := e.resolveSwitch(ctx, name)
	observability.EvaluationDuration.WithLabelValues(string(toggle.KindSwitch)).Observe(time.Since(start).Seconds())
	observability.EvaluationsTotal.WithLabelValues(string(toggle.KindSwitch), resultLabel(active)).Inc()
	return active
}

func (e *Engine) resolveSwitch(ctx context.Context, name string) bool {
	def, known := e.cfg.Switches[name]
	if !known {
		if e.cfg.Strict {
			validation.Assertf(false, "switch %q is not in the configured universe", name)
		}
		return e.cfg.SwitchDefault
	}

	if forced, ok := e.cfg.SwitchesForced[name]; ok {
		return forced
	}

	return e.lookupSwitch(ctx, name, def).Active()
}
