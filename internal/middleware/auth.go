package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketchat/internal/reqctx"
)

// HeaderUID is the trusted identity header used when AUTH_MODE=header.
const HeaderUID = "X-User-UID"

// TokenVerifier is the slice of *auth.Client the middleware needs.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth verifies a Firebase ID token from the Authorization header, or from the token
// query parameter for websocket upgrades that cannot set headers.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr := bearerToken(c.Request())
		if tokenStr == "" {
			return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "missing token"))
		}
		token, err := m.verifier.VerifyIDToken(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorBody("invalid_token", "invalid token"))
		}
		setUID(c, token.UID)
		return next(c)
	}
}

// RequireHeaderUID trusts the X-User-UID header. Local development only.
func RequireHeaderUID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid := strings.TrimSpace(c.Request().Header.Get(HeaderUID))
		if uid == "" {
			uid = c.QueryParam("uid")
		}
		if uid == "" {
			return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "missing uid"))
		}
		setUID(c, uid)
		return next(c)
	}
}

// RequestContext copies the echo request id into the request context for log correlation.
func RequestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		if rid == "" {
			rid = c.Request().Header.Get(echo.HeaderXRequestID)
		}
		if rid != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(reqctx.WithRID(req.Context(), rid)))
		}
		return next(c)
	}
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

func setUID(c echo.Context, uid string) {
	c.Set("uid", uid)
	req := c.Request()
	c.SetRequest(req.WithContext(reqctx.WithUID(req.Context(), uid)))
}

func errorBody(code, message string) map[string]map[string]string {
	return map[string]map[string]string{"error": {"code": code, "message": message}}
}
