package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatrack/internal/auth"
	"climatrack/internal/cache"
	"climatrack/internal/errors"
	"climatrack/internal/model"
)

func newSessions() *auth.SessionManager {
	return auth.NewSessionManager("test-secret", time.Hour)
}

func issue(t *testing.T, m *auth.SessionManager, role model.Role) string {
	t.Helper()
	token, _, err := m.Issue(uuid.New(), role)
	require.NoError(t, err)
	return token
}

func TestRouteGuard_Authorize(t *testing.T) {
	sessions := newSessions()
	guard := NewRouteGuard(sessions)
	admin := issue(t, sessions, model.RoleAdmin)
	viewer := issue(t, sessions, model.RoleViewer)
	expired, _, err := auth.NewSessionManager("test-secret", time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		Issue(uuid.New(), model.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name  string
		path  string
		token string
		want  Decision
	}{
		{name: "login page is public", path: "/auth/login", want: Allow},
		{name: "session check is public", path: "/api/auth/session", want: Allow},
		{name: "reset page is public", path: "/redefinir-senha", want: Allow},
		{name: "health is public", path: "/healthz", want: Allow},
		{name: "page without token", path: "/dashboard", want: RedirectLogin},
		{name: "page with garbage token", path: "/climatizadores", token: "garbage", want: RedirectLogin},
		{name: "page with expired token", path: "/dashboard", token: expired, want: RedirectLogin},
		{name: "page with session", path: "/dashboard", token: viewer, want: Allow},
		{name: "admin page as admin", path: "/usuarios/novo", token: admin, want: Allow},
		{name: "admin page as viewer", path: "/usuarios", token: viewer, want: RedirectDenied},
		{name: "admin page anonymous", path: "/admin/config", want: RedirectLogin},
		{name: "admin api as viewer", path: "/api/usuarios", token: viewer, want: RedirectDenied},
		{name: "other api passes the guard", path: "/api/climatizadores", want: Allow},
		{name: "prefix needs a segment boundary", path: "/administracao", token: viewer, want: Allow},
		{name: "prefix boundary without session", path: "/administracao", want: RedirectLogin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guard.Authorize(tt.path, tt.token))
		})
	}
}

func serveGuard(t *testing.T, guard *RouteGuard, req *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := guard.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return rec, h(c)
}

func TestRouteGuard_Middleware(t *testing.T) {
	sessions := newSessions()
	guard := NewRouteGuard(sessions)

	t.Run("page redirects to login with callback", func(t *testing.T) {
		rec, err := serveGuard(t, guard, httptest.NewRequest(http.MethodGet, "/climatizadores?status=Ativo", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/login?callbackUrl=%2Fclimatizadores%3Fstatus%3DAtivo", rec.Header().Get(echo.HeaderLocation))
	})

	t.Run("admin page redirects non admin to dashboard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/usuarios", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: issue(t, sessions, model.RoleTechnician)})
		rec, err := serveGuard(t, guard, req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))
	})

	t.Run("admin api answers 401 and 403", func(t *testing.T) {
		_, err := serveGuard(t, guard, httptest.NewRequest(http.MethodGet, "/api/usuarios", nil))
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/usuarios", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+issue(t, sessions, model.RoleManager))
		_, err = serveGuard(t, guard, req)
		assert.ErrorIs(t, err, errors.ErrForbidden)
	})

	t.Run("admin session passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/usuarios", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+issue(t, sessions, model.RoleAdmin))
		rec, err := serveGuard(t, guard, req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(req))

	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(req))

	req.Header.Set(echo.HeaderAuthorization, "bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(req))

	req.Header.Set(echo.HeaderAuthorization, "Basic abc")
	assert.Equal(t, "from-cookie", TokenFromRequest(req))
}

func TestSessionAndRBAC(t *testing.T) {
	sessions := newSessions()
	e := echo.New()
	chain := func(roles ...model.Role) echo.HandlerFunc {
		return Session(sessions)(RBAC(roles...)(func(c echo.Context) error {
			actor := ActorFrom(c)
			return c.String(http.StatusOK, string(actor.Role))
		}))
	}

	tests := []struct {
		name     string
		token    string
		roles    []model.Role
		wantCode int
		wantErr  error
	}{
		{name: "missing token", roles: []model.Role{model.RoleAdmin}, wantCode: http.StatusUnauthorized},
		{name: "invalid token", token: "nope", roles: []model.Role{model.RoleAdmin}, wantCode: http.StatusUnauthorized},
		{name: "role not allowed", token: issue(t, sessions, model.RoleViewer), roles: []model.Role{model.RoleAdmin, model.RoleManager}, wantErr: errors.ErrForbidden},
		{name: "role allowed", token: issue(t, sessions, model.RoleManager), roles: []model.Role{model.RoleAdmin, model.RoleManager}, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			if tt.token != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			err := chain(tt.roles...)(e.NewContext(req, rec))

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantCode == http.StatusOK:
				require.NoError(t, err)
				assert.Equal(t, "MANAGER", rec.Body.String())
			default:
				var he *echo.HTTPError
				require.ErrorAs(t, err, &he)
				assert.Equal(t, tt.wantCode, he.Code)
			}
		})
	}
}

func TestSession_ReadsCookie(t *testing.T) {
	sessions := newSessions()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: issue(t, sessions, model.RoleOperator)})
	rec := httptest.NewRecorder()

	h := Session(sessions)(func(c echo.Context) error {
		s, ok := SessionFrom(c)
		require.True(t, ok)
		return c.String(http.StatusOK, string(s.Role))
	})
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, "OPERATOR", rec.Body.String())
}

func TestRateLimit_FailsOpenWithoutRedis(t *testing.T) {
	e := echo.New()
	var client *cache.Client
	h := RateLimit(client, "login", cache.Bucket{Capacity: 1, Refill: 1, Interval: time.Minute})(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), rec)))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}
