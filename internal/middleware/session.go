package middleware

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"climatrack/internal/auth"
	"climatrack/internal/errors"
	"climatrack/internal/model"
	"climatrack/internal/service"
)

// ContextKeySession holds the *auth.Session of an authenticated request.
const ContextKeySession = "session"

var errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
	Error: "authentication required",
	Code:  "UNAUTHORIZED",
})

// Session authenticates API requests from the bearer token or the session
// cookie and stores the decoded session in the context.
func Session(sessions *auth.SessionManager) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextKeySession,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:" + SessionCookie,
		ParseTokenFunc: func(_ echo.Context, token string) (interface{}, error) {
			return sessions.Decode(token)
		},
		ErrorHandler: func(_ echo.Context, _ error) error {
			return errUnauthenticated
		},
	})
}

// SessionFrom returns the session stored by Session.
func SessionFrom(c echo.Context) (*auth.Session, bool) {
	s, ok := c.Get(ContextKeySession).(*auth.Session)
	return s, ok && s != nil
}

// ActorFrom builds the service actor of the request. The zero Actor is
// returned for anonymous requests.
func ActorFrom(c echo.Context) service.Actor {
	actor := service.Actor{IP: c.RealIP()}
	if s, ok := SessionFrom(c); ok {
		actor.UserID = s.UserID
		actor.Role = s.Role
	}
	return actor
}

// RBAC lets the request through only when the session role is one of roles.
func RBAC(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := SessionFrom(c)
			if !ok {
				return errUnauthenticated
			}
			if _, ok := allowed[s.Role]; !ok {
				return errors.ErrForbidden
			}
			return next(c)
		}
	}
}
