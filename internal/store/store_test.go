// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go provides the shared database helper for store integration
// tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"devfolio/internal/database"
	"devfolio/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "devfolio")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "devfolio")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanTemplates removes test templates by name, along with any
// portfolios still referencing them. Call in t.Cleanup().
func cleanTemplates(t *testing.T, db *sql.DB, names ...string) {
	t.Helper()
	for _, name := range names {
		db.Exec("DELETE FROM portfolios WHERE template_id IN (SELECT id FROM templates WHERE name = $1)", name)
		db.Exec("DELETE FROM templates WHERE name = $1", name)
	}
}

// cleanPortfolios removes every portfolio of an owner. Call in t.Cleanup().
func cleanPortfolios(t *testing.T, db *sql.DB, ownerID uuid.UUID) {
	t.Helper()
	db.Exec("DELETE FROM portfolios WHERE owner_id = $1", ownerID)
}

// testTemplate creates a throwaway template and registers its cleanup.
func testTemplate(t *testing.T, db *sql.DB) *models.Template {
	t.Helper()
	name := "Test Template " + uuid.NewString()[:8]
	tmpl, err := NewTemplateStore(db).Create(context.Background(), &models.Template{
		Name:        name,
		HTMLContent: "<h1>{{NAME}}</h1>",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	t.Cleanup(func() { cleanTemplates(t, db, name) })
	return tmpl
}
