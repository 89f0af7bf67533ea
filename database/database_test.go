package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRebindPostgres(t *testing.T) {
	db := &DB{Dialect: DialectPostgres}
	got := db.Rebind("SELECT * FROM t WHERE a = ? AND b = ?")
	want := "SELECT * FROM t WHERE a = $1 AND b = $2"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRebindSQLiteUnchanged(t *testing.T) {
	db := &DB{Dialect: DialectSQLite}
	q := "SELECT * FROM t WHERE a = ?"
	if got := db.Rebind(q); got != q {
		t.Errorf("expected query unchanged, got %q", got)
	}
}

func TestOpenSQLiteCreatesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vs.db")
	db, err := Open(context.Background(), "sqlite", "file:"+path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"users", "wishlist_items", "notifications", "products"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	// Creating twice is harmless.
	if err := db.CreateTables(context.Background()); err != nil {
		t.Errorf("second CreateTables: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "dsn"); err == nil {
		t.Fatal("expected error")
	}
}
