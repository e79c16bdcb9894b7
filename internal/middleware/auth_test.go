package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketchat/internal/reqctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(_ context.Context, tok string) (*auth.Token, error) {
	uid, ok := f[tok]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: uid}, nil
}

func echoUID(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	return c.String(http.StatusOK, uid+"|"+reqctx.UID(c.Request().Context()))
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware(fakeVerifier{"good": "u1"})
	tests := []struct {
		name   string
		header string
		query  string
		code   int
		body   string
	}{
		{"bearer", "Bearer good", "", http.StatusOK, "u1|u1"},
		{"query token", "", "?token=good", http.StatusOK, "u1|u1"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"invalid", "Bearer nope", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", "", http.StatusUnauthorized, ""},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			require.NoError(t, m.RequireAuth(echoUID)(c))
			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestRequireHeaderUID(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderUID, "dev-user")
	rec := httptest.NewRecorder()
	require.NoError(t, RequireHeaderUID(echoUID)(e.NewContext(req, rec)))
	assert.Equal(t, "dev-user|dev-user", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, RequireHeaderUID(echoUID)(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(echo.HeaderXRequestID, "rid-1")
	rec := httptest.NewRecorder()
	h := RequestContext(func(c echo.Context) error {
		return c.String(http.StatusOK, reqctx.RID(c.Request().Context()))
	})
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, "rid-1", rec.Body.String())
}
