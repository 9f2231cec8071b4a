package corpus

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupSQLiteStore creates a SQLiteStore on a fresh database file.
// It uses t.Cleanup to ensure resources are released.
func setupSQLiteStore(t *testing.T) *SQLiteStore {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// setupBoltStore creates a BoltStore on a fresh database file.
func setupBoltStore(t *testing.T) *BoltStore {
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "test.bolt"))
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// storeBackends lists every Store implementation so each test runs against all of them.
var storeBackends = []struct {
	name  string
	setup func(t *testing.T) Store
}{
	{"sqlite", func(t *testing.T) Store { return setupSQLiteStore(t) }},
	{"bolt", func(t *testing.T) Store { return setupBoltStore(t) }},
}
