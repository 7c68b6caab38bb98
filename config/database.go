package config

import (
	"fmt"
	"strings"
	"time"
)

// StoreDriver selects the persistence backend.
type StoreDriver string

const (
	StoreDriverPostgres StoreDriver = "postgres"
	StoreDriverSQLite   StoreDriver = "sqlite"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreDriver.
func (d *StoreDriver) UnmarshalText(text []byte) error {
	v := StoreDriver(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case StoreDriverPostgres, StoreDriverSQLite:
		*d = v
		return nil
	default:
		return fmt.Errorf("invalid StoreDriver: %q (valid options: postgres, sqlite)", string(text))
	}
}

// StoreConfig selects and configures the simulation store.
type StoreConfig struct {
	Driver StoreDriver `env:"STORE_DRIVER" envDefault:"postgres"`

	// SQLitePath is the database file used when Driver=sqlite. ":memory:" keeps everything in process.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"hydrosim.db"`

	// SQLiteBusyTimeout is how long a writer waits for the database lock.
	SQLiteBusyTimeout time.Duration `env:"SQLITE_BUSY_TIMEOUT" envDefault:"5s"`

	// ArtifactsDir is where model artifacts are written. Empty keeps them in memory.
	ArtifactsDir string `env:"ARTIFACTS_DIR" envDefault:""`
}

// Sanitize applies guardrails to store configuration values.
func (s *StoreConfig) Sanitize() {
	if s.Driver == "" {
		s.Driver = StoreDriverPostgres
	}
	s.SQLitePath = strings.TrimSpace(s.SQLitePath)
	if s.SQLitePath == "" {
		s.SQLitePath = "hydrosim.db"
	}
	if s.SQLiteBusyTimeout < 0 {
		s.SQLiteBusyTimeout = 0
	}
	s.ArtifactsDir = strings.TrimSpace(s.ArtifactsDir)
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"hydrosim"`
	Password string `env:"PASSWORD"                envDefault:"hydrosim"`
	Name     string `env:"NAME"                    envDefault:"hydrosim"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// DSN returns the libpq connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// CacheConfig contains the result cache configuration (Redis-based).
type CacheConfig struct {
	// Enabled turns on the Redis read-through cache for results.
	Enabled bool `env:"RESULTS_CACHE_ENABLED" envDefault:"false"`

	// TTL is the lifetime of a cached result view.
	TTL time.Duration `env:"RESULTS_CACHE_TTL" envDefault:"30m"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	if c.TTL < time.Second {
		c.TTL = time.Second
	}
}
