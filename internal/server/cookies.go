package server

import (
	"net/http"
	"sort"

	"github.com/flagonhq/flagon/internal/request"
)

// cookieWriter defers cookie emission until the response headers are about
// to be sent, so decisions recorded at any point during handling still make
// it into Set-Cookie.
type cookieWriter struct {
	http.ResponseWriter
	emit    func(http.ResponseWriter)
	emitted bool
}

func (w *cookieWriter) emitOnce() {
	if !w.emitted {
		w.emitted = true
		w.emit(w.ResponseWriter)
	}
}

func (w *cookieWriter) WriteHeader(status int) {
	w.emitOnce()
	w.ResponseWriter.WriteHeader(status)
}

func (w *cookieWriter) Write(b []byte) (int, error) {
	w.emitOnce()
	return w.ResponseWriter.Write(b)
}

// projectCookies turns the request's recorded decisions into cookies.
//
// Rollout decisions: an inactive decision for a flag still rolling out gets
// a session cookie, so the client re-draws next session and the gradual
// rollout can reach it. Every other decision sticks for CookieMaxAge.
//
// Test decisions: a value pins the flag's test cookie; a nil entry deletes
// it, but only when the client actually sent one.
func (a *API) projectCookies(w http.ResponseWriter, rc *request.Context) {
	decisions := rc.Decisions()
	for _, name := range sortedKeys(decisions) {
		d := decisions[name]
		c := &http.Cookie{
			Name:     a.cfg.CookieFor(name),
			Value:    cookieValue(d.Active),
			Path:     "/",
			Secure:   a.cfg.SecureCookies,
			HttpOnly: true,
		}
		if d.Active || !d.Rollout {
			c.MaxAge = a.cfg.CookieMaxAge
		}
		http.SetCookie(w, c)
	}

	tests := rc.TestDecisions()
	for _, name := range sortedKeys(tests) {
		tc := a.cfg.TestCookieFor(name)
		v := tests[name]
		if v == nil {
			if _, had := rc.CookieValue(tc); had {
				http.SetCookie(w, &http.Cookie{
					Name:   tc,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
			}
			continue
		}
		http.SetCookie(w, &http.Cookie{
			Name:     tc,
			Value:    cookieValue(*v),
			Path:     "/",
			MaxAge:   a.cfg.CookieMaxAge,
			Secure:   a.cfg.SecureCookies,
			HttpOnly: true,
		})
	}
}

func cookieValue(active bool) string {
	if active {
		return "True"
	}
	return "False"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
