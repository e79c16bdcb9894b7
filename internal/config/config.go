package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

const (
	BackendMySQL     = "mysql"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"

	AuthFirebase = "firebase"
	AuthHeader   = "header"
)

type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"mysql"`
	AuthMode     string `env:"AUTH_MODE" envDefault:"firebase"`

	DBUser                 string `env:"DB_USER"`
	DBPassword             string `env:"DB_PASSWORD"`
	DBHost                 string `env:"DB_HOST"` // e.g. tcp(host:3306) or unix(/cloudsql/instance)
	DBName                 string `env:"DB_NAME"`
	DBPort                 string `env:"DB_PORT" envDefault:"3306"`
	InstanceConnectionName string `env:"INSTANCE_CONNECTION_NAME"`
	AutoMigrate            bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	FirebaseProjectID       string `env:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`

	ResubscribeInitialInterval time.Duration `env:"RESUBSCRIBE_INITIAL_INTERVAL" envDefault:"500ms"`
	ResubscribeMaxInterval     time.Duration `env:"RESUBSCRIBE_MAX_INTERVAL" envDefault:"30s"`
	NotificationBulkParallel   int           `env:"NOTIFICATION_BULK_PARALLEL" envDefault:"16"`
	// LiveQueryResync re-runs MySQL live queries on this interval so writes from
	// other instances reach subscribers. Zero limits delivery to same-process writes.
	LiveQueryResync time.Duration `env:"LIVE_QUERY_RESYNC" envDefault:"5s"`

	CORSOriginSuffixes []string `env:"CORS_ORIGIN_SUFFIXES" envSeparator:"," envDefault:"vercel.app,web.app,firebaseapp.com"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads the environment without validating, for callers that override
// settings before calling Validate.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the selected backend and auth mode depend on.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMySQL:
		if c.DBUser == "" || c.DBName == "" || (c.DBHost == "" && c.InstanceConnectionName == "") {
			return fmt.Errorf("store backend %q requires DB_USER, DB_NAME and DB_HOST or INSTANCE_CONNECTION_NAME", c.StoreBackend)
		}
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("store backend %q requires FIREBASE_PROJECT_ID", c.StoreBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.AuthMode {
	case AuthFirebase:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("auth mode %q requires FIREBASE_PROJECT_ID", c.AuthMode)
		}
	case AuthHeader:
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}
	if c.ResubscribeInitialInterval <= 0 || c.ResubscribeMaxInterval < c.ResubscribeInitialInterval {
		return fmt.Errorf("invalid resubscribe backoff %s..%s", c.ResubscribeInitialInterval, c.ResubscribeMaxInterval)
	}
	if c.LiveQueryResync < 0 {
		return fmt.Errorf("invalid LIVE_QUERY_RESYNC %s", c.LiveQueryResync)
	}
	return nil
}

// NeedsFirebase reports whether a Firebase app has to be initialised.
func (c *Config) NeedsFirebase() bool {
	return c.StoreBackend == BackendFirestore || c.AuthMode == AuthFirebase
}
