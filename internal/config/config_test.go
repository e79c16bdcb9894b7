package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("AUTH_MODE", "header")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, 500*time.Millisecond, cfg.ResubscribeInitialInterval)
	assert.Equal(t, 30*time.Second, cfg.ResubscribeMaxInterval)
	assert.Equal(t, 16, cfg.NotificationBulkParallel)
	assert.Equal(t, 5*time.Second, cfg.LiveQueryResync)
	assert.Equal(t, []string{"vercel.app", "web.app", "firebaseapp.com"}, cfg.CORSOriginSuffixes)
	assert.False(t, cfg.NeedsFirebase())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			StoreBackend:               BackendMemory,
			AuthMode:                   AuthHeader,
			ResubscribeInitialInterval: time.Second,
			ResubscribeMaxInterval:     time.Minute,
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"memory header", func(*Config) {}, false},
		{"mysql missing db", func(c *Config) { c.StoreBackend = BackendMySQL }, true},
		{"mysql via socket", func(c *Config) {
			c.StoreBackend = BackendMySQL
			c.DBUser, c.DBName, c.InstanceConnectionName = "app", "market", "proj:region:inst"
		}, false},
		{"firestore missing project", func(c *Config) { c.StoreBackend = BackendFirestore }, true},
		{"firebase auth", func(c *Config) { c.AuthMode = AuthFirebase; c.FirebaseProjectID = "p" }, false},
		{"firebase auth missing project", func(c *Config) { c.AuthMode = AuthFirebase }, true},
		{"unknown backend", func(c *Config) { c.StoreBackend = "redis" }, true},
		{"unknown auth", func(c *Config) { c.AuthMode = "none" }, true},
		{"bad backoff", func(c *Config) { c.ResubscribeMaxInterval = time.Millisecond }, true},
		{"resync disabled", func(c *Config) { c.LiveQueryResync = 0 }, false},
		{"negative resync", func(c *Config) { c.LiveQueryResync = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestParseSkipsValidation(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("AUTH_MODE", "firebase")
	t.Setenv("FIREBASE_PROJECT_ID", "")

	_, err := Load()
	require.Error(t, err)

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, AuthFirebase, cfg.AuthMode)

	cfg.AuthMode = AuthHeader
	require.NoError(t, cfg.Validate())
}
