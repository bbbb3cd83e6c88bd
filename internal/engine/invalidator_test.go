package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagonhq/flagon/internal/cache"
	"github.com/flagonhq/flagon/internal/engine"
	"github.com/flagonhq/flagon/internal/store"
	"github.com/flagonhq/flagon/internal/toggle"
)

// primeCache fills every key an invalidation could touch.
func primeCache(t *testing.T, c cache.Service, keys cache.Keys) {
	t.Helper()

	ctx := context.Background()
	entries := map[string][]byte{
		keys.Flag("beta"):          []byte("{}"),
		keys.FlagUsers("beta"):     []byte("[]"),
		keys.FlagGroups("beta"):    []byte("[]"),
		keys.Switch("maintenance"): []byte("{}"),
		keys.AllSwitches():         []byte("{}"),
		keys.Sample("canary"):      []byte("{}"),
	}
	require.NoError(t, c.SetMany(ctx, entries, time.Minute))
}

func assertCached(t *testing.T, c cache.Service, key string, want bool) {
	t.Helper()

	_, ok, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, want, ok, "key %s cached=%v", key, ok)
}

func newTestInvalidator(t *testing.T) (*engine.Invalidator, cache.Service, cache.Keys) {
	t.Helper()

	cfg := testConfig(t, nil)
	memCache, err := cache.NewMemoryCache(1000, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { memCache.Close() })

	return engine.NewInvalidator(cfg, memCache, nil), memCache, cache.NewKeys(cfg.CachePrefix)
}

func TestInvalidatorFlagMutation(t *testing.T) {
	inv, memCache, keys := newTestInvalidator(t)
	primeCache(t, memCache, keys)

	inv.Handle(store.MutationEvent{
		Kind:   toggle.KindFlag,
		Name:   "beta",
		Change: store.ChangeUpdated,
		Phase:  store.PhasePost,
	})

	assertCached(t, memCache, keys.Flag("beta"), false)
	assertCached(t, memCache, keys.FlagUsers("beta"), false)
	assertCached(t, memCache, keys.FlagGroups("beta"), false)

	// Other kinds stay untouched.
	assertCached(t, memCache, keys.Switch("maintenance"), true)
	assertCached(t, memCache, keys.Sample("canary"), true)
}

func TestInvalidatorSwitchMutation(t *testing.T) {
	inv, memCache, keys := newTestInvalidator(t)
	primeCache(t, memCache, keys)

	inv.Handle(store.MutationEvent{
		Kind:   toggle.KindSwitch,
		Name:   "maintenance",
		Change: store.ChangeDeleted,
		Phase:  store.PhasePost,
	})

	assertCached(t, memCache, keys.Switch("maintenance"), false)
	assertCached(t, memCache, keys.AllSwitches(), false)
	assertCached(t, memCache, keys.Flag("beta"), true)
}

func TestInvalidatorSampleMutation(t *testing.T) {
	inv, memCache, keys := newTestInvalidator(t)
	primeCache(t, memCache, keys)

	inv.Handle(store.MutationEvent{
		Kind:   toggle.KindSample,
		Name:   "canary",
		Change: store.ChangeUpdated,
		Phase:  store.PhasePost,
	})

	assertCached(t, memCache, keys.Sample("canary"), false)
	assertCached(t, memCache, keys.Flag("beta"), true)
	assertCached(t, memCache, keys.AllSwitches(), true)
}

func TestInvalidatorIgnoresPrePhase(t *testing.T) {
	inv, memCache, keys := newTestInvalidator(t)
	primeCache(t, memCache, keys)

	inv.Handle(store.MutationEvent{
		Kind:   toggle.KindFlag,
		Name:   "beta",
		Change: store.ChangeMembershipChanged,
		Phase:  store.PhasePre,
	})

	assertCached(t, memCache, keys.Flag("beta"), true)
	assertCached(t, memCache, keys.FlagUsers("beta"), true)
}

func TestInvalidatorBoundToNotifier(t *testing.T) {
	inv, memCache, keys := newTestInvalidator(t)
	primeCache(t, memCache, keys)

	notifier := store.NewNotifier()
	inv.Bind(notifier)

	notifier.Publish(store.MutationEvent{
		Kind:   toggle.KindFlag,
		Name:   "beta",
		Change: store.ChangeMembershipChanged,
		Phase:  store.PhasePost,
	})

	assertCached(t, memCache, keys.Flag("beta"), false)
	assertCached(t, memCache, keys.FlagUsers("beta"), false)
	assertCached(t, memCache, keys.FlagGroups("beta"), false)
}

// Mutating a flag's percent and re-evaluating must pick up the new value:
// the eviction plus read-through refill is the coherence mechanism.
func TestInvalidatorPercentUpdateCoherence(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.flags["beta"] = storedFlag(func(fl *toggle.Flag) { fl.Everyone = toggle.Off })

	cfg := testConfig(t, nil)
	memCache, err := cache.NewMemoryCache(1000, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { memCache.Close() })

	eng := engine.New(cfg, repo, memCache, nil)
	inv := engine.NewInvalidator(cfg, memCache, nil)

	assert.False(t, eng.FlagIsActive(ctx, nil, "beta"))

	// Update the definition and publish the eviction.
	repo.flags["beta"] = storedFlag(func(fl *toggle.Flag) { fl.Everyone = toggle.On })
	inv.Handle(store.MutationEvent{
		Kind:   toggle.KindFlag,
		Name:   "beta",
		Change: store.ChangeUpdated,
		Phase:  store.PhasePost,
	})

	assert.True(t, eng.FlagIsActive(ctx, nil, "beta"), "evaluation after eviction reads the fresh definition")
}
