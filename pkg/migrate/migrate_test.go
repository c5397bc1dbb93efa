package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toolshop/storefront/pkg/config"
	"github.com/toolshop/storefront/pkg/db"
	"github.com/toolshop/storefront/pkg/logger"
)

func TestShippedMigrationsAreValid(t *testing.T) {
	if err := ValidateDir(embeddedDir); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestSessionEntriesMigrationStatements(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join(embeddedDir, "*_create_session_entries.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one session_entries migration, got %d", len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS session_entries",
		"key        VARCHAR(255) PRIMARY KEY",
		"DROP TABLE IF EXISTS session_entries",
	} {
		if !strings.Contains(string(data), sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMaybeRunAppliesEmbeddedMigrations(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev},
		DB:  config.DBConfig{SQLitePath: filepath.Join(t.TempDir(), "storefront.db"), AutoMigrate: true},
	}
	client, err := db.New(ctx, config.StorageDriverSQLite, cfg.DB, nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	defer client.Close()

	if err := MaybeRun(ctx, cfg, logger.Nop(), client); err != nil {
		t.Fatalf("MaybeRun: %v", err)
	}
	if !client.DB().Migrator().HasTable("session_entries") {
		t.Fatal("expected session_entries table after migration")
	}
}

func TestMaybeRunSkipsWhenDisabled(t *testing.T) {
	cfg := &config.Config{DB: config.DBConfig{AutoMigrate: false}}
	if err := MaybeRun(context.Background(), cfg, logger.Nop(), nil); err != nil {
		t.Fatalf("expected disabled auto-migrate to be a no-op, got %v", err)
	}
}

func TestDialect(t *testing.T) {
	cases := map[string]string{"sqlite": "sqlite3", "SQLite3": "sqlite3", "postgres": "postgres", "": "postgres"}
	for in, want := range cases {
		if got := Dialect(in); got != want {
			t.Errorf("Dialect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Theme Index")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_theme_index.sql") {
		t.Fatalf("unexpected migration path %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}
