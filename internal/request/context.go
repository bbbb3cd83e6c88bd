// Package request defines the explicit per-request context handed to the
// evaluation engine. It replaces ad hoc attributes on a framework request
// object: the transport layer builds one Context per inbound request, the
// engine reads caller identity and records sticky decisions on it, and the
// transport projects those decisions into response cookies afterwards.
//
// A Context is owned by a single in-flight request and needs no locking.
package request

import (
	"context"
	"net/url"
)

// Decision is one percentage-rollout outcome recorded for the lifetime of a
// request. Rollout tags an inactive decision as session-scoped so the cookie
// layer emits it without a max-age.
type Decision struct {
	Active  bool
	Rollout bool
}

// Context carries caller identity, the inbound query/cookie bags, and the
// mutable per-request decision state.
type Context struct {
	// Caller identity, supplied by the transport's authentication layer.
	UserID        string
	Authenticated bool
	Staff         bool
	Superuser     bool
	Language      string
	Groups        []string

	query   url.Values
	cookies map[string]string

	// decisions dedupes percentage draws: one draw per flag per request.
	decisions map[string]Decision

	// tests maps flag name to a pending test-cookie value. A nil entry
	// means "clear this flag's test cookie" (reset was requested).
	tests map[string]*bool
}

// New creates an empty request context.
func New() *Context {
	return &Context{
		cookies:   map[string]string{},
		decisions: map[string]Decision{},
		tests:     map[string]*bool{},
	}
}

// SetQuery attaches the inbound query parameters.
func (c *Context) SetQuery(q url.Values) {
	c.query = q
}

// SetCookie records one inbound cookie value.
func (c *Context) SetCookie(name, value string) {
	c.cookies[name] = value
}

// QueryValue returns the first query value for name, with ok=false when the
// parameter is absent entirely.
func (c *Context) QueryValue(name string) (string, bool) {
	if c.query == nil {
		return "", false
	}
	if _, ok := c.query[name]; !ok {
		return "", false
	}
	return c.query.Get(name), true
}

// CookieValue returns the inbound cookie value for name.
func (c *Context) CookieValue(name string) (string, bool) {
	v, ok := c.cookies[name]
	return v, ok
}

// Decision returns the recorded decision for a flag, if any.
func (c *Context) Decision(flag string) (Decision, bool) {
	d, ok := c.decisions[flag]
	return d, ok
}

// SetDecision records a sticky decision for a flag. Later reads within the
// same request return this value instead of drawing again, and the cookie
// layer projects it into the response.
func (c *Context) SetDecision(flag string, active, rollout bool) {
	c.decisions[flag] = Decision{Active: active, Rollout: rollout}
}

// Decisions returns every recorded decision for cookie projection.
func (c *Context) Decisions() map[string]Decision {
	return c.decisions
}

// SetTestDecision records a testing-mode override for a flag.
func (c *Context) SetTestDecision(flag string, on bool) {
	c.tests[flag] = &on
}

// TestDecision returns the pending test value for a flag. The returned
// pointer is nil when a reset cleared the flag's test state.
func (c *Context) TestDecision(flag string) (*bool, bool) {
	v, ok := c.tests[flag]
	return v, ok
}

// ClearTestDecisions marks every given flag's test cookie for deletion, as
// if no test decision had ever been set. A test decision recorded later in
// the same request replaces the clear for that flag.
func (c *Context) ClearTestDecisions(flags []string) {
	for _, name := range flags {
		c.tests[name] = nil
	}
}

// TestDecisions returns the pending test-cookie values for projection.
func (c *Context) TestDecisions() map[string]*bool {
	return c.tests
}

// ctxKey is a private type for stashing the Context in a context.Context.
type ctxKey struct{}

// WithContext returns a context.Context carrying the request context.
func WithContext(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, rc)
}

// FromContext retrieves the request context, or nil when the transport did
// not install one.
func FromContext(ctx context.Context) *Context {
	rc, _ := ctx.Value(ctxKey{}).(*Context)
	return rc
}
