package auth

import (
	"net/http"

	authlib "example.com/extracurricular/pkg/auth"
)

// ErrorHandler renders authentication failures.
type ErrorHandler = authlib.ErrorHandler

// Middleware enforces bearer-token authentication on mutating requests.
// Reads, health checks and static assets stay public.
type Middleware struct {
	inner authlib.Middleware
}

// NewMiddleware constructs Middleware with validation config.
func NewMiddleware(cfg Config, onError ErrorHandler) Middleware {
	skipper := func(r *http.Request) bool {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return true
		}
		return r.URL.Path == "/healthz"
	}
	inner := authlib.NewMiddleware(cfg, skipper)
	if onError != nil {
		inner = inner.WithErrorHandler(onError)
	}
	return Middleware{inner: inner}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return m.inner.Wrap(next)
}
