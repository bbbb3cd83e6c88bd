package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/flagonhq/flagon/internal/request"
)

// Identity headers. Populated by whatever authenticates the caller in front
// of this service; absent headers mean an anonymous request.
const (
	headerUser          = "X-Flagon-User"
	headerGroups        = "X-Flagon-Groups"
	headerAuthenticated = "X-Flagon-Authenticated"
	headerStaff         = "X-Flagon-Staff"
	headerSuperuser     = "X-Flagon-Superuser"
	headerLanguage      = "X-Flagon-Language"
)

// Stickiness builds the evaluation context for a request and replays the
// decisions the engine records on it as response cookies. The response
// writer is wrapped so the cookies land in the header before the first body
// byte is written.
func (a *API) Stickiness(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := a.buildContext(r)

		cw := &cookieWriter{
			ResponseWriter: w,
			emit:           func(hw http.ResponseWriter) { a.projectCookies(hw, rc) },
		}

		next.ServeHTTP(cw, r.WithContext(request.WithContext(r.Context(), rc)))

		// Bodyless responses never trigger the wrapped Write path.
		cw.emitOnce()
	})
}

// buildContext translates the HTTP request into the engine's explicit
// per-request context.
func (a *API) buildContext(r *http.Request) *request.Context {
	rc := request.New()

	rc.UserID = r.Header.Get(headerUser)
	rc.Authenticated = headerTrue(r, headerAuthenticated) || rc.UserID != ""
	rc.Staff = headerTrue(r, headerStaff)
	rc.Superuser = headerTrue(r, headerSuperuser)
	rc.Language = r.Header.Get(headerLanguage)
	if raw := r.Header.Get(headerGroups); raw != "" {
		for _, g := range strings.Split(raw, ",") {
			if g = strings.TrimSpace(g); g != "" {
				rc.Groups = append(rc.Groups, g)
			}
		}
	}

	query := r.URL.Query()
	rc.SetQuery(query)
	for _, c := range r.Cookies() {
		rc.SetCookie(c.Name, c.Value)
	}

	// Reset clears every flag's test cookie unless the same request sets a
	// fresh test decision for it.
	if query.Has(a.cfg.ResetParam) {
		rc.ClearTestDecisions(a.cfg.FlagNames())
	}

	return rc
}

func headerTrue(r *http.Request, name string) bool {
	v := strings.ToLower(r.Header.Get(name))
	return v == "true" || v == "1"
}

// RequestLogger logs each completed request with method, path, status and
// duration, at a level matching the status class.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := slog.LevelInfo
		status := ww.Status()
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		slog.Log(r.Context(), level, "HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start).String(),
			"request_id", reqID,
			"remote_ip", r.RemoteAddr,
		)
	})
}
