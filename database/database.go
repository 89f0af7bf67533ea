package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a connection
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB wraps a connection pool with its dialect
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the database and creates the tables if they don't exist.
// driver is one of "postgres" (lib/pq), "pgx" or "sqlite".
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database connection string is required")
	}

	dialect := DialectPostgres
	switch driver {
	case "postgres", "pgx":
	case "sqlite":
		dialect = DialectSQLite
		if !strings.Contains(dsn, "_pragma") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if dialect == DialectSQLite {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{DB: conn, Dialect: dialect}
	if err := db.CreateTables(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("Successfully connected to database (%s)", driver)
	return db, nil
}

// Rebind rewrites '?' placeholders into the dialect's form
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables(ctx context.Context) error {
	idColumn := "BIGSERIAL PRIMARY KEY"
	timestamp := "TIMESTAMPTZ"
	if db.Dialect == DialectSQLite {
		idColumn = "INTEGER PRIMARY KEY AUTOINCREMENT"
		timestamp = "DATETIME"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			created_at ` + timestamp + ` DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS wishlist_items (
			id ` + idColumn + `,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			link TEXT NOT NULL,
			marketplace_id TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			price DOUBLE PRECISION,
			target_price DOUBLE PRECISION CHECK (target_price IS NULL OR target_price > 0),
			created_at ` + timestamp + ` NOT NULL,
			UNIQUE (owner_id, link)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id ` + idColumn + `,
			owner_id TEXT NOT NULL,
			tracked_item_id BIGINT NOT NULL,
			marketplace_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			target_price DOUBLE PRECISION NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at ` + timestamp + ` NOT NULL,
			resolved_at ` + timestamp + `
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id ` + idColumn + `,
			title TEXT NOT NULL,
			price DOUBLE PRECISION,
			price_text TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL UNIQUE,
			marketplace_id TEXT NOT NULL DEFAULT '',
			rating DOUBLE PRECISION,
			reviews INTEGER,
			created_at ` + timestamp + ` NOT NULL,
			updated_at ` + timestamp + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wishlist_owner ON wishlist_items (owner_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications (owner_id, tracked_item_id, is_read, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_products_updated ON products (updated_at)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db != nil && db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
