// Package testutil provides database, cache and fixture helpers for hydrosim tests.
package testutil

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	// Import pgx driver for database/sql compatibility in tests.
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/target/hydrosim/internal/migrate"

	// Registers the "sqlite" driver for OpenSQLite.
	_ "modernc.org/sqlite"
)

// TestingTB is an interface that covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
}

// cleaner is implemented by *testing.T and *testing.B.
type cleaner interface{ Cleanup(func()) }

// OpenSQLite returns a migrated in-memory SQLite database limited to a single
// connection, closed when the test finishes.
func OpenSQLite(t TestingTB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatal("Failed to open sqlite:", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := migrate.RunDialect(ctx, db, migrate.DialectSQLite); err != nil {
		closeAndLog(t, "sqlite", db)
		t.Fatal("Failed to migrate sqlite:", err)
	}
	if tc, ok := any(t).(cleaner); ok {
		tc.Cleanup(func() { closeAndLog(t, "sqlite", db) })
	}
	return db
}

// TestDatabaseURL returns the Postgres DSN used by repository tests.
// TEST_DATABASE_URL wins; otherwise TEST_DB_* variables build one against the
// docker-compose test profile on port 55432.
func TestDatabaseURL() string {
	if dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL")); dsn != "" {
		return dsn
	}
	u := url.URL{
		Scheme: "postgres",
		User: url.UserPassword(
			getEnvOrDefault("TEST_DB_USER", "hydrosim"),
			getEnvOrDefault("TEST_DB_PASSWORD", "hydrosim"),
		),
		Host:     net.JoinHostPort(getEnvOrDefault("TEST_DB_HOST", "localhost"), getEnvOrDefault("TEST_DB_PORT", "55432")),
		Path:     "/" + getEnvOrDefault("TEST_DB_NAME", "hydrosim"),
		RawQuery: "sslmode=" + getEnvOrDefault("DB_SSL_MODE", "disable"),
	}
	return u.String()
}

// openPostgres opens dsn and pings it, skipping the test when the database
// is unreachable unless TEST_REQUIRE_DB is set.
func openPostgres(t TestingTB, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		skipOrFail(t, requireDB(), "Test database not available:", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		closeAndLog(t, "test db", db)
		skipOrFail(t, requireDB(), "Test database not available:", err)
		return nil
	}
	return db
}

// WithAutoDB runs fn against a migrated Postgres database. With
// TEST_DB_EPHEMERAL set each test gets its own schema; otherwise the shared
// database is emptied before and after fn.
func WithAutoDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	if envBool("TEST_DB_EPHEMERAL") {
		db := ephemeralSchemaDB(t)
		if db != nil {
			fn(db)
		}
		return
	}

	db := openPostgres(t, TestDatabaseURL())
	if db == nil {
		return
	}
	defer closeAndLog(t, "test db", db)
	migrateAndTruncate(t, db)
	defer truncateSimulations(t, db)
	fn(db)
}

func migrateAndTruncate(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := migrate.Run(ctx, db); err != nil {
		t.Fatal("Failed to run migrations:", err)
	}
	truncateSimulations(t, db)
}

// truncateSimulations removes all simulation data and saved configurations;
// results and scenarios cascade.
func truncateSimulations(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "TRUNCATE simulations, model_configurations CASCADE"); err != nil {
		t.Fatalf("Failed to truncate simulations: %v", err)
	}
}

// ephemeralSchemaDB migrates a fresh schema and drops it when the test ends.
func ephemeralSchemaDB(t TestingTB) *sql.DB {
	t.Helper()
	base := TestDatabaseURL()
	admin := openPostgres(t, base)
	if admin == nil {
		return nil
	}

	schema := "t_" + strings.ReplaceAll(uuid.NewString()[:13], "-", "")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		closeAndLog(t, "admin db", admin)
		t.Fatalf("Failed to create schema %s: %v", schema, err)
	}

	u, err := url.Parse(base)
	if err != nil {
		closeAndLog(t, "admin db", admin)
		t.Fatal("Failed to parse DSN:", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		closeAndLog(t, "admin db", admin)
		t.Fatal("Failed to open schema-scoped DB:", err)
	}
	if tc, ok := any(t).(cleaner); ok {
		tc.Cleanup(func() {
			closeAndLog(t, "schema db", db)
			dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer dcancel()
			if _, err := admin.ExecContext(dctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
				t.Logf("Warning: failed to drop schema %s: %v", schema, err)
			}
			closeAndLog(t, "admin db", admin)
		})
	}

	if err := migrate.Run(ctx, db); err != nil {
		t.Fatal("Failed to run migrations in ephemeral schema:", err)
	}
	return db
}

// GetTestRedisAddr returns the Redis address for tests and whether it answered a ping.
// REDIS_ADDR wins; otherwise common CI and local addresses are probed.
func GetTestRedisAddr(t TestingTB) (string, bool) {
	t.Helper()

	if ciAddr := os.Getenv("REDIS_ADDR"); ciAddr != "" {
		return ciAddr, pingRedis(t, ciAddr)
	}
	for _, candidate := range []string{"redis:6379", "localhost:6379"} {
		if pingRedis(t, candidate) {
			return candidate, true
		}
	}
	const local = "localhost:56379"
	return local, pingRedis(t, local)
}

func pingRedis(t TestingTB, addr string) bool {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer closeAndLog(t, "redis client", client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Logf("Redis not available at %s: %v", addr, err)
		return false
	}
	return true
}

// SetupTestRedis returns a client on a flushed Redis DB, skipping the test when
// Redis is unreachable. TEST_REDIS_DB selects the DB index (default 1).
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr, ok := GetTestRedisAddr(t)
	if !ok {
		skipOrFail(t, requireRedis(), "Redis not available for testing")
		return nil
	}

	dbIndex := 1
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			dbIndex = i
		}
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: dbIndex})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client.FlushDB(ctx)
	return client
}

func skipOrFail(t TestingTB, required bool, args ...any) {
	t.Helper()
	if required {
		t.Fatal(args...)
	}
	t.Skip(args...)
}

func closeAndLog(t TestingTB, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		t.Logf("warning: failed to close %s: %v", name, err)
	}
}

// getEnvOrDefault returns environment variable value or default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envBool parses common truthy values from env vars.
func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
