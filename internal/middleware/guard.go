package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"climatrack/internal/auth"
	"climatrack/internal/errors"
	"climatrack/internal/model"
)

// SessionCookie is the cookie the web client keeps the session token in.
const SessionCookie = "session_token"

// Decision is the outcome of the route guard for one request.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectDenied
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	default:
		return "redirect_denied"
	}
}

// Prefixes that bypass the guard, and prefixes reserved to ADMIN sessions.
var (
	PublicPrefixes = []string{
		"/auth/login",
		"/auth/cadastro",
		"/auth/error",
		"/api/auth/session",
		"/esqueci-senha",
		"/redefinir-senha",
		"/healthz",
		"/readyz",
		"/metrics",
		"/swagger",
	}
	AdminPrefixes = []string{
		"/usuarios",
		"/admin",
		"/api/usuarios",
	}
)

const (
	apiPrefix  = "/api"
	loginPath  = "/auth/login"
	deniedPath = "/dashboard"
)

// RouteGuard gates navigation by path prefix.
type RouteGuard struct {
	sessions *auth.SessionManager
}

// NewRouteGuard creates a guard decoding tokens with sessions.
func NewRouteGuard(sessions *auth.SessionManager) *RouteGuard {
	return &RouteGuard{sessions: sessions}
}

// Authorize decides what happens to a request for path carrying token.
// Public prefixes are always allowed. Admin prefixes need a valid ADMIN
// session. Other API paths pass, their routes authenticate on their own.
// Any other page needs a valid session.
func (g *RouteGuard) Authorize(path, token string) Decision {
	if matchPrefix(path, PublicPrefixes) {
		return Allow
	}

	if matchPrefix(path, AdminPrefixes) {
		session, err := g.sessions.Decode(token)
		if err != nil {
			return RedirectLogin
		}
		if session.Role != model.RoleAdmin {
			return RedirectDenied
		}
		return Allow
	}

	if matchPrefix(path, []string{apiPrefix}) {
		return Allow
	}

	if _, err := g.sessions.Decode(token); err != nil {
		return RedirectLogin
	}
	return Allow
}

// Middleware applies Authorize to every request. Pages are redirected; API
// paths get 401 or 403 instead.
func (g *RouteGuard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			decision := g.Authorize(path, TokenFromRequest(c.Request()))
			if decision == Allow {
				return next(c)
			}

			if matchPrefix(path, []string{apiPrefix}) {
				if decision == RedirectLogin {
					return errUnauthenticated
				}
				return errors.ErrForbidden
			}

			if decision == RedirectLogin {
				return c.Redirect(http.StatusFound, loginPath+"?callbackUrl="+url.QueryEscape(c.Request().URL.RequestURI()))
			}
			return c.Redirect(http.StatusFound, deniedPath)
		}
	}
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// matchPrefix reports whether path is one of prefixes or lies below one.
func matchPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
