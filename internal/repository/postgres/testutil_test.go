package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container, applies migrations and returns
// a connected DB. Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := Open(ctx, "postgres", dsn)
	require.NoError(t, err, "failed to open database")

	runMigrations(t, ctx, db)

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

// runMigrations applies all SQL migrations from migrations/postgres/.
func runMigrations(t *testing.T, ctx context.Context, db *DB) {
	t.Helper()

	migrationsDir := filepath.Join(findProjectRoot(t), "migrations", "postgres")

	entries, err := os.ReadDir(migrationsDir)
	require.NoError(t, err, "failed to read migrations directory")

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(filepath.Join(migrationsDir, file))
		require.NoError(t, err, "failed to read migration file: %s", file)

		_, err = db.ExecContext(ctx, string(sql))
		require.NoError(t, err, "failed to execute migration: %s", file)

		t.Logf("Applied migration: %s", file)
	}
}

// findProjectRoot walks up from current directory to find go.mod.
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

type fixture struct {
	entityID   int64
	customerID int64
	productID  int64
}

// seedReference inserts one entity, one customer and one product.
func seedReference(t *testing.T, db *DB) fixture {
	t.Helper()
	ctx := context.Background()

	var f fixture
	require.NoError(t, db.QueryRowxContext(ctx,
		`INSERT INTO companies (company_code, english_name) VALUES ('ENT', 'Entity One') RETURNING id`).Scan(&f.entityID))
	require.NoError(t, db.QueryRowxContext(ctx,
		`INSERT INTO companies (company_code, english_name) VALUES ('CUS', 'Customer One') RETURNING id`).Scan(&f.customerID))
	require.NoError(t, db.QueryRowxContext(ctx,
		`INSERT INTO products (pt_code, name) VALUES ('PT-001', 'Widget') RETURNING id`).Scan(&f.productID))
	return f
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}
