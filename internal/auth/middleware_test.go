package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadia-retail/arcadia/internal/shared"
)

func testMiddleware(t *testing.T, authorizer Authorizer) (Middleware, *shared.SessionStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionStore(client, time.Hour)
	return Middleware{Sessions: sessions, Authorizer: authorizer, Logger: slog.Default()}, sessions
}

func TestRequireAnyRejectsAnonymous(t *testing.T) {
	mw, _ := testMiddleware(t, StaticAuthorizer{})

	handler := mw.Principal(mw.RequireAny("pos.session.open")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAnyAllowsSuperadminWildcard(t *testing.T) {
	mw, sessions := testMiddleware(t, StaticAuthorizer{Principal: Superadmin(0)})

	token, err := sessions.Create(t.Context(), 1)
	require.NoError(t, err)

	called := false
	handler := mw.Principal(mw.RequireAny("ledger.post")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		p := PrincipalFromContext(r.Context())
		assert.Equal(t, int64(1), p.UserID)
	})))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Session-Token", token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAllRejectsPartialGrant(t *testing.T) {
	principal := Principal{UserID: 9, Role: "cashier", Permissions: []string{"pos.sale.post"}}
	mw, sessions := testMiddleware(t, StaticAuthorizer{Principal: principal})

	token, err := sessions.Create(t.Context(), 9)
	require.NoError(t, err)

	handler := mw.Principal(mw.RequireAll("pos.sale.post", "pos.recon.verify")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Session-Token", token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
