package request

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryValue(t *testing.T) {
	rc := New()

	_, ok := rc.QueryValue("anything")
	assert.False(t, ok, "no query attached means no values")

	rc.SetQuery(url.Values{
		"beta":  []string{"1"},
		"empty": []string{""},
	})

	v, ok := rc.QueryValue("beta")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	// Present-but-empty is still present: ?flag= is a deliberate "off".
	v, ok = rc.QueryValue("empty")
	require.True(t, ok)
	assert.Equal(t, "", v)

	_, ok = rc.QueryValue("absent")
	assert.False(t, ok)
}

func TestCookieValue(t *testing.T) {
	rc := New()
	rc.SetCookie("dwf_beta", "True")

	v, ok := rc.CookieValue("dwf_beta")
	require.True(t, ok)
	assert.Equal(t, "True", v)

	_, ok = rc.CookieValue("dwf_other")
	assert.False(t, ok)
}

func TestDecisions(t *testing.T) {
	rc := New()

	_, ok := rc.Decision("beta")
	assert.False(t, ok)

	rc.SetDecision("beta", true, false)
	rc.SetDecision("gradual", false, true)

	d, ok := rc.Decision("beta")
	require.True(t, ok)
	assert.True(t, d.Active)
	assert.False(t, d.Rollout)

	d, ok = rc.Decision("gradual")
	require.True(t, ok)
	assert.False(t, d.Active)
	assert.True(t, d.Rollout)

	assert.Len(t, rc.Decisions(), 2)
}

func TestTestDecisions(t *testing.T) {
	rc := New()

	rc.SetTestDecision("beta", true)

	v, ok := rc.TestDecision("beta")
	require.True(t, ok)
	require.NotNil(t, v)
	assert.True(t, *v)
}

func TestClearTestDecisions(t *testing.T) {
	rc := New()
	rc.SetTestDecision("beta", true)

	rc.ClearTestDecisions([]string{"beta", "search"})

	v, ok := rc.TestDecision("beta")
	require.True(t, ok, "cleared flags keep an entry so the cookie layer deletes them")
	assert.Nil(t, v)

	v, ok = rc.TestDecision("search")
	require.True(t, ok)
	assert.Nil(t, v)

	// A decision set after the clear replaces the deletion marker.
	rc.SetTestDecision("beta", false)
	v, ok = rc.TestDecision("beta")
	require.True(t, ok)
	require.NotNil(t, v)
	assert.False(t, *v)
}

func TestContextEmbedding(t *testing.T) {
	rc := New()
	rc.UserID = "u-42"

	ctx := WithContext(context.Background(), rc)

	got := FromContext(ctx)
	require.NotNil(t, got)
	assert.Same(t, rc, got)

	assert.Nil(t, FromContext(context.Background()), "bare contexts carry no request state")
}
