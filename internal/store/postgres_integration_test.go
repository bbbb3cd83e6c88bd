//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagonhq/flagon/internal/store"
	"github.com/flagonhq/flagon/internal/testsupport"
	"github.com/flagonhq/flagon/internal/toggle"
)

// eventRecorder collects every published mutation event.
type eventRecorder struct {
	events []store.MutationEvent
}

func (r *eventRecorder) record(ev store.MutationEvent) {
	r.events = append(r.events, ev)
}

func (r *eventRecorder) reset() {
	r.events = nil
}

func setupStore(t *testing.T) (*store.PostgresStore, *eventRecorder) {
	t.Helper()

	ctx := context.Background()
	pg, err := testsupport.StartPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pg.Terminate(context.Background()))
	})

	notifier := store.NewNotifier()
	rec := &eventRecorder{}
	notifier.Subscribe(rec.record)

	return store.NewPostgresStore(pg.DB, notifier), rec
}

func TestPostgresStore_FlagLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, rec := setupStore(t)

	// Missing flags report ErrNotFound, never an error value to act on.
	_, err := repo.GetFlag(ctx, "beta")
	require.ErrorIs(t, err, store.ErrNotFound)

	fl := &toggle.Flag{
		Name:      "beta",
		Everyone:  toggle.Unset,
		Testing:   true,
		Staff:     true,
		Languages: []string{"pt-br", "en"},
		Percent:   decimal.RequireFromString("12.5"),
		Rollout:   true,
	}
	require.NoError(t, repo.UpsertFlag(ctx, fl))
	require.Len(t, rec.events, 1)
	assert.Equal(t, store.ChangeCreated, rec.events[0].Change)
	assert.Equal(t, store.PhasePost, rec.events[0].Phase)

	got, err := repo.GetFlag(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, toggle.Unset, got.Everyone)
	assert.True(t, got.Testing)
	assert.True(t, got.Staff)
	assert.Equal(t, []string{"pt-br", "en"}, got.Languages)
	assert.True(t, got.Percent.Equal(decimal.RequireFromString("12.5")), "numeric percent must round-trip exactly, got %s", got.Percent)
	assert.True(t, got.Rollout)

	// Updating the same name reports an update, not a create.
	rec.reset()
	fl.Everyone = toggle.On
	require.NoError(t, repo.UpsertFlag(ctx, fl))
	require.Len(t, rec.events, 1)
	assert.Equal(t, store.ChangeUpdated, rec.events[0].Change)

	got, err = repo.GetFlag(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, toggle.On, got.Everyone)

	// Deletion publishes once and only for rows that existed.
	rec.reset()
	require.NoError(t, repo.DeleteFlag(ctx, "beta"))
	require.Len(t, rec.events, 1)
	assert.Equal(t, store.ChangeDeleted, rec.events[0].Change)

	rec.reset()
	require.NoError(t, repo.DeleteFlag(ctx, "beta"))
	assert.Empty(t, rec.events, "deleting an absent flag publishes nothing")
}

func TestPostgresStore_FlagMembership(t *testing.T) {
	ctx := context.Background()
	repo, rec := setupStore(t)

	require.NoError(t, repo.UpsertFlag(ctx, &toggle.Flag{Name: "beta"}))
	rec.reset()

	require.NoError(t, repo.AddFlagUser(ctx, "beta", "u-1"))
	require.NoError(t, repo.AddFlagUser(ctx, "beta", "u-2"))
	require.NoError(t, repo.AddFlagGroup(ctx, "beta", "qa"))

	// Each membership write brackets itself with pre and post events.
	require.Len(t, rec.events, 6)
	assert.Equal(t, store.PhasePre, rec.events[0].Phase)
	assert.Equal(t, store.PhasePost, rec.events[1].Phase)
	assert.Equal(t, store.ChangeMembershipChanged, rec.events[0].Change)

	users, err := repo.ListFlagUsers(ctx, "beta")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u-1", "u-2"}, users)

	groups, err := repo.ListFlagGroups(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"qa"}, groups)

	require.NoError(t, repo.RemoveFlagUser(ctx, "beta", "u-1"))
	users, err = repo.ListFlagUsers(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-2"}, users)

	// Deleting the flag cascades to its memberships.
	require.NoError(t, repo.DeleteFlag(ctx, "beta"))
	users, err = repo.ListFlagUsers(ctx, "beta")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestPostgresStore_SwitchLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, rec := setupStore(t)

	_, err := repo.GetSwitch(ctx, "maintenance")
	require.ErrorIs(t, err, store.ErrNotFound)

	sw := &toggle.Switch{Name: "maintenance", Active: true}
	require.NoError(t, repo.UpsertSwitch(ctx, sw))
	assert.False(t, sw.CreatedAt.IsZero(), "upsert backfills timestamps")

	got, err := repo.GetSwitch(ctx, "maintenance")
	require.NoError(t, err)
	assert.True(t, got.Active)

	all, err := repo.ListSwitches(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "maintenance", all[0].Name)

	rec.reset()
	require.NoError(t, repo.DeleteSwitch(ctx, "maintenance"))
	require.Len(t, rec.events, 1)
	assert.Equal(t, toggle.KindSwitch, rec.events[0].Kind)
}

func TestPostgresStore_SampleLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupStore(t)

	_, err := repo.GetSample(ctx, "canary")
	require.ErrorIs(t, err, store.ErrNotFound)

	sm := &toggle.Sample{Name: "canary", Percent: decimal.RequireFromString("0.01")}
	require.NoError(t, repo.UpsertSample(ctx, sm))

	got, err := repo.GetSample(ctx, "canary")
	require.NoError(t, err)
	assert.True(t, got.Percent.Equal(decimal.RequireFromString("0.01")), "got %s", got.Percent)

	// Out-of-range percents are rejected before touching the database.
	err = repo.UpsertSample(ctx, &toggle.Sample{Name: "bad", Percent: decimal.NewFromInt(101)})
	require.ErrorIs(t, err, toggle.ErrInvalidPercent)

	_, err = repo.GetSample(ctx, "bad")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
