package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/flagonhq/flagon/internal/cache"
	"github.com/flagonhq/flagon/internal/config"
	"github.com/flagonhq/flagon/internal/observability"
	"github.com/flagonhq/flagon/internal/store"
	"github.com/flagonhq/flagon/internal/toggle"
)

// evictTimeout bounds one eviction round trip. A timed-out eviction is not
// retried; the cache TTL is the self-healing backstop.
const evictTimeout = 2 * time.Second

// Invalidator subscribes to definition mutation events and evicts the cache
// entries those mutations make stale: the record key, both membership keys
// for flags, and the shared aggregate for switches.
type Invalidator struct {
	cache  cache.Service
	keys   cache.Keys
	logger *slog.Logger
}

// NewInvalidator creates an Invalidator.
func NewInvalidator(cfg *config.TogglesConfig, cacheSvc cache.Service, log *slog.Logger) *Invalidator {
	if cfg == nil {
		panic("engine: toggles config cannot be nil")
	}
	if cacheSvc == nil {
		panic("engine: cache service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Invalidator{
		cache:  cacheSvc,
		keys:   cache.NewKeys(cfg.CachePrefix),
		logger: log,
	}
}

// Bind subscribes the invalidator to a store notifier.
func (i *Invalidator) Bind(n *store.Notifier) {
	n.Subscribe(i.Handle)
}

// Handle reacts to one mutation event. Pre-phase notifications from
// multi-step membership transactions are ignored; evicting mid-transaction
// would just repopulate with stale data.
func (i *Invalidator) Handle(ev store.MutationEvent) {
	if ev.Phase == store.PhasePre {
		return
	}

	var keys []string
	switch ev.Kind {
	case toggle.KindFlag:
		keys = []string{
			i.keys.Flag(ev.Name),
			i.keys.FlagUsers(ev.Name),
			i.keys.FlagGroups(ev.Name),
		}
	case toggle.KindSwitch:
		// The aggregate cannot be partially patched, so it goes too.
		keys = []string{
			i.keys.Switch(ev.Name),
			i.keys.AllSwitches(),
		}
	case toggle.KindSample:
		keys = []string{i.keys.Sample(ev.Name)}
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), evictTimeout)
	defer cancel()

	if err := i.cache.DeleteMany(ctx, keys); err != nil {
		// Best effort: the short cache TTL bounds how long the stale
		// entries can survive a failed eviction.
		observability.CacheErrors.Inc()
		i.logger.Error("cache eviction failed",
			slog.String("kind", string(ev.Kind)),
			slog.String("name", ev.Name),
			slog.String("change", string(ev.Change)),
			slog.Any("error", err),
		)
		return
	}

	observability.InvalidationsTotal.WithLabelValues(string(ev.Kind)).Inc()
}
