package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/flagonhq/flagon/internal/logger"
	"github.com/flagonhq/flagon/internal/observability"
	"github.com/flagonhq/flagon/internal/store"
	"github.com/flagonhq/flagon/internal/toggle"
)

// Cache envelopes. Switch and sample entries cache the synthesized-default
// case too (Stored=false), so a name with no stored row does not hammer the
// store on every evaluation.

type switchEntry struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Stored bool   `json:"stored"`
}

type sampleEntry struct {
	Name    string          `json:"name"`
	Percent decimal.Decimal `json:"percent"`
	Stored  bool            `json:"stored"`
}

// lookupFlag resolves a flag record through the cache. A store miss returns
// ok=false (the caller falls back to the universe default); a store failure
// does the same after recording the degradation. A fetch from storage warms
// the record key and both membership sub-keys in one pass.
func (e *Engine) lookupFlag(ctx context.Context, name string) (*toggle.Flag, bool) {
	key := e.keys.Flag(name)

	if raw, ok := e.cacheGet(ctx, toggle.KindFlag, key); ok {
		var fl toggle.Flag
		if err := json.Unmarshal(raw, &fl); err == nil {
			return &fl, true
		}
		// Corrupt entry: fall through to storage and overwrite it.
		logger.FromContext(ctx).Warn("corrupt cached flag, refetching", slog.String("flag", name))
	}

	fl, err := e.repo.GetFlag(ctx, name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.storeFallback(ctx, toggle.KindFlag, name, err)
		}
		return nil, false
	}

	users, uerr := e.repo.ListFlagUsers(ctx, name)
	groups, gerr := e.repo.ListFlagGroups(ctx, name)
	if uerr != nil || gerr != nil {
		// Warm only the record; membership gates re-fetch on their own.
		e.fillFlag(ctx, fl, nil, nil, false)
	} else {
		e.fillFlag(ctx, fl, users, groups, true)
	}

	return fl, true
}

// fillFlag warms the flag record and, when available, its membership
// sub-keys, so one storage round trip serves all derived keys.
func (e *Engine) fillFlag(ctx context.Context, fl *toggle.Flag, users, groups []string, withMembers bool) {
	entries := map[string][]byte{}

	if raw, err := json.Marshal(fl); err == nil {
		entries[e.keys.Flag(fl.Name)] = raw
	}
	if withMembers {
		if raw, err := json.Marshal(members(users)); err == nil {
			entries[e.keys.FlagUsers(fl.Name)] = raw
		}
		if raw, err := json.Marshal(members(groups)); err == nil {
			entries[e.keys.FlagGroups(fl.Name)] = raw
		}
	}

	e.cacheFill(ctx, entries)
}

// flagMembers resolves one membership list through the cache. On a miss both
// lists are fetched and warmed together, mirroring the record fill. Store
// failures yield an empty set: the membership gate fails closed.
func (e *Engine) flagMembers(ctx context.Context, fl *toggle.Flag, groups bool) map[string]struct{} {
	key := e.keys.FlagUsers(fl.Name)
	if groups {
		key = e.keys.FlagGroups(fl.Name)
	}

	if raw, ok := e.cacheGet(ctx, toggle.KindFlag, key); ok {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			return asSet(list)
		}
		logger.FromContext(ctx).Warn("corrupt cached membership list, refetching", slog.String("flag", fl.Name))
	}

	users, uerr := e.repo.ListFlagUsers(ctx, fl.Name)
	grps, gerr := e.repo.ListFlagGroups(ctx, fl.Name)
	if uerr != nil || gerr != nil {
		err := uerr
		if err == nil {
			err = gerr
		}
		e.storeFallback(ctx, toggle.KindFlag, fl.Name, err)
		return nil
	}

	e.fillFlag(ctx, fl, users, grps, true)

	if groups {
		return asSet(grps)
	}
	return asSet(users)
}

// lookupSwitch resolves a switch through the cache. A store miss synthesizes
// the universe default and caches that synthesis. Caching an individual
// switch evicts the shared aggregate so a fresh record never coexists with a
// stale bulk listing.
func (e *Engine) lookupSwitch(ctx context.Context, name string, def bool) toggle.SwitchState {
	key := e.keys.Switch(name)

	if raw, ok := e.cacheGet(ctx, toggle.KindSwitch, key); ok {
		var entry switchEntry
		if err := json.Unmarshal(raw, &entry); err == nil {
			return switchState(entry)
		}
		logger.FromContext(ctx).Warn("corrupt cached switch, refetching", slog.String("switch", name))
	}

	var entry switchEntry
	sw, err := e.repo.GetSwitch(ctx, name)
	switch {
	case err == nil:
		entry = switchEntry{Name: name, Active: sw.Active, Stored: true}
	case errors.Is(err, store.ErrNotFound):
		entry = switchEntry{Name: name, Active: def}
	default:
		e.storeFallback(ctx, toggle.KindSwitch, name, err)
		return toggle.DefaultSwitch(def)
	}

	if raw, err := json.Marshal(entry); err == nil {
		e.cacheFill(ctx, map[string][]byte{key: raw})
	}
	// Known trade-off: evicting the aggregate on every individual fill can
	// stampede a cold cache when many switches are evaluated concurrently.
	if err := e.cache.Delete(ctx, e.keys.AllSwitches()); err != nil {
		observability.CacheErrors.Inc()
	}

	return switchState(entry)
}

// lookupSample resolves a sample through the cache, synthesizing and caching
// the universe default on a store miss.
func (e *Engine) lookupSample(ctx context.Context, name string, def decimal.Decimal) toggle.SampleState {
	key := e.keys.Sample(name)

	if raw, ok := e.cacheGet(ctx, toggle.KindSample, key); ok {
		var entry sampleEntry
		if err := json.Unmarshal(raw, &entry); err == nil {
			return sampleState(entry)
		}
		logger.FromContext(ctx).Warn("corrupt cached sample, refetching", slog.String("sample", name))
	}

	var entry sampleEntry
	sm, err := e.repo.GetSample(ctx, name)
	switch {
	case err == nil:
		entry = sampleEntry{Name: name, Percent: sm.Percent, Stored: true}
	case errors.Is(err, store.ErrNotFound):
		entry = sampleEntry{Name: name, Percent: def}
	default:
		e.storeFallback(ctx, toggle.KindSample, name, err)
		return toggle.DefaultSample(def)
	}

	if raw, err := json.Marshal(entry); err == nil {
		e.cacheFill(ctx, map[string][]byte{key: raw})
	}

	return sampleState(entry)
}

// storeFallback records a degraded evaluation: the definition store failed,
// so the caller proceeds on universe defaults.
func (e *Engine) storeFallback(ctx context.Context, kind toggle.Kind, name string, err error) {
	observability.StoreFallbacks.Inc()
	logger.FromContext(ctx).Error("definition store unavailable, using universe default",
		slog.String("kind", string(kind)),
		slog.String("name", name),
		slog.Any("error", err),
	)
}

func switchState(entry switchEntry) toggle.SwitchState {
	if entry.Stored {
		return toggle.FoundSwitch(&toggle.Switch{Name: entry.Name, Active: entry.Active})
	}
	return toggle.DefaultSwitch(entry.Active)
}

func sampleState(entry sampleEntry) toggle.SampleState {
	if entry.Stored {
		return toggle.FoundSample(&toggle.Sample{Name: entry.Name, Percent: entry.Percent})
	}
	return toggle.DefaultSample(entry.Percent)
}

// members normalizes a nil slice to empty so cached lists are always arrays.
func members(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func asSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, id := range list {
		set[id] = struct{}{}
	}
	return set
}
