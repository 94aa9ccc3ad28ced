package database

import (
	"io/fs"
	"strings"
	"testing"
)

// 埋め込みマイグレーションの構成を検証する（DB接続は不要）。

func TestMigrationsFS_ContainsUpAndDownPairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected embedded migration files")
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file name: %s", name)
		}
	}

	for base := range ups {
		if !downs[base] {
			t.Errorf("migration %s has no matching down migration", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("migration %s has no matching up migration", base)
		}
	}
}

func TestMigrationsFS_CreatesCoreTables(t *testing.T) {
	var all strings.Builder
	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".up.sql") {
			return err
		}
		data, readErr := fs.ReadFile(migrationsFS, path)
		if readErr != nil {
			return readErr
		}
		all.Write(data)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk migrations: %v", err)
	}

	sql := all.String()
	for _, table := range []string{"users", "identities", "sessions", "categories", "items"} {
		if !strings.Contains(sql, "CREATE TABLE "+table) {
			t.Errorf("up migrations should create table %q", table)
		}
	}

	// 外部IDの一意性はプロバイダーでスコープする
	if !strings.Contains(sql, "UNIQUE (provider, provider_user_id)") {
		t.Error("identities must be unique per (provider, provider_user_id)")
	}
	if !strings.Contains(sql, "UNIQUE (slug)") {
		t.Error("categories must have a unique slug")
	}
}

func TestNewMigrator_InvalidURL_ReturnsError(t *testing.T) {
	_, err := NewMigrator("not-a-database-url")
	if err == nil {
		t.Fatal("expected error for invalid database URL")
	}
}
