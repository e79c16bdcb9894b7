package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shinyyama/marketchat/internal/config"
	"github.com/shinyyama/marketchat/internal/repository/memrepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		StoreBackend:             config.BackendMemory,
		AuthMode:                 config.AuthHeader,
		NotificationBulkParallel: 4,
		CORSOriginSuffixes:       []string{"web.app"},
	}
	s := New(cfg, memrepo.New().Store(), nil, zap.NewNop(), BuildInfo{SHA: "abc123"})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(0), body["sessions"])
	assert.Equal(t, "abc123", body["git_sha"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/conversations", "/api/notifications", "/ws"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("X-User-UID", "u1")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPublicProfileIsOpen(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/nobody/public", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOriginAllowed(t *testing.T) {
	allow := originAllowed([]string{"vercel.app", " web.app "})
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"https://127.0.0.1:8443", true},
		{"https://market.vercel.app", true},
		{"https://shop.web.app", true},
		{"https://example.com", false},
		{"ftp://shop.web.app", false},
		{"::bad", false},
	}
	for _, tt := range tests {
		if got := allow(tt.origin); got != tt.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
