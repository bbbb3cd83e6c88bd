package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flagonhq/flagon/internal/toggle"
)

func TestNotifierFanOut(t *testing.T) {
	n := NewNotifier()

	var first, second []MutationEvent
	n.Subscribe(func(ev MutationEvent) { first = append(first, ev) })
	n.Subscribe(func(ev MutationEvent) { second = append(second, ev) })

	ev := MutationEvent{
		Kind:   toggle.KindFlag,
		Name:   "beta",
		Change: ChangeUpdated,
		Phase:  PhasePost,
	}
	n.Publish(ev)

	assert.Equal(t, []MutationEvent{ev}, first)
	assert.Equal(t, []MutationEvent{ev}, second)
}

func TestNotifierDeliversInOrder(t *testing.T) {
	n := NewNotifier()

	var got []Change
	n.Subscribe(func(ev MutationEvent) { got = append(got, ev.Change) })

	n.Publish(MutationEvent{Kind: toggle.KindSwitch, Name: "a", Change: ChangeCreated, Phase: PhasePost})
	n.Publish(MutationEvent{Kind: toggle.KindSwitch, Name: "a", Change: ChangeUpdated, Phase: PhasePost})
	n.Publish(MutationEvent{Kind: toggle.KindSwitch, Name: "a", Change: ChangeDeleted, Phase: PhasePost})

	assert.Equal(t, []Change{ChangeCreated, ChangeUpdated, ChangeDeleted}, got)
}

func TestNotifierWithoutSubscribers(t *testing.T) {
	n := NewNotifier()

	assert.NotPanics(t, func() {
		n.Publish(MutationEvent{Kind: toggle.KindSample, Name: "canary", Change: ChangeDeleted, Phase: PhasePost})
	})
}
