package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/arcadia-retail/arcadia/internal/platform/httpx"
	"github.com/arcadia-retail/arcadia/internal/shared"
)

const sessionHeader = "X-Session-Token"
const sessionCookie = "arcadia_session"

// Middleware resolves the request principal and enforces capabilities.
type Middleware struct {
	Sessions   *shared.SessionStore
	Authorizer Authorizer
	Logger     *slog.Logger
}

// Principal attaches the resolved principal to the request context. Requests
// without a valid session continue as anonymous; enforcement happens in
// RequireAny/RequireAll.
func (m Middleware) Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(sessionHeader)
		if token == "" {
			if cookie, err := r.Cookie(sessionCookie); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := m.Sessions.Resolve(r.Context(), token)
		if err != nil {
			if !errors.Is(err, shared.ErrSessionNotFound) {
				m.Logger.Error("resolve session", slog.Any("error", err))
				httpx.Fail(w, http.StatusInternalServerError, "internal error")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.Authorizer.PrincipalFor(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				m.Logger.Error("resolve principal", slog.Any("error", err))
				httpx.Fail(w, http.StatusInternalServerError, "internal error")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireAny ensures the principal holds at least one of the permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p.Anonymous() {
				httpx.Fail(w, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, perm := range perms {
				if p.Can(perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Fail(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// RequireAll ensures the principal holds every permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p.Anonymous() {
				httpx.Fail(w, http.StatusUnauthorized, "authentication required")
				return
			}
			for _, perm := range perms {
				if !p.Can(perm) {
					httpx.Fail(w, http.StatusForbidden, "insufficient permissions")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
