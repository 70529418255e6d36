// Package databasetest opens throwaway databases for tests.
package databasetest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/isdelr/bizops-api/internal/config"
	"github.com/isdelr/bizops-api/internal/database"
)

// New opens a private, migrated in-memory SQLite database that is closed with the test.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := database.New(config.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
