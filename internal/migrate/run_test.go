package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestVersions(t *testing.T) {
	for _, d := range []Dialect{DialectPostgres, DialectSQLite} {
		files, err := Versions(d)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"0001_simulations.sql",
			"0002_simulation_results.sql",
			"0003_scenarios.sql",
			"0004_model_configurations.sql",
		}, files, string(d))
	}
}

func TestRunDialect_SQLiteIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	require.NoError(t, RunDialect(ctx, db, DialectSQLite))
	require.NoError(t, RunDialect(ctx, db, DialectSQLite))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 4, n)

	require.NoError(t, Reset(ctx, db))
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM simulations`).Scan(&n)
	assert.Error(t, err)
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenarios`).Scan(&n)
	assert.Error(t, err)
}

func TestRunDialect_Unsupported(t *testing.T) {
	assert.Error(t, RunDialect(context.Background(), nil, Dialect("mysql")))
}
