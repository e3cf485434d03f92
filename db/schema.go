// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported SQL dialects, named after their database/sql driver.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
)

// Open connects to the database and verifies the connection.
func Open(dialect, dsn string) (*sqlx.DB, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite, DialectMySQL:
	default:
		return nil, fmt.Errorf("unsupported database type %q", dialect)
	}

	conn, err := sqlx.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(conn *sqlx.DB) error {
	var stmts []string
	switch conn.DriverName() {
	case DialectMySQL:
		stmts = mysqlSchema
	default:
		stmts = schema
	}

	for _, stmt := range stmts {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    revision BIGINT NOT NULL DEFAULT 1,
    body TEXT NOT NULL,
    updated_at BIGINT NOT NULL,
    PRIMARY KEY (collection, id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection)`,
}

// MySQL cannot index unbounded TEXT and has no CREATE INDEX IF NOT EXISTS;
// the primary key already covers collection lookups.
var mysqlSchema = []string{`
CREATE TABLE IF NOT EXISTS documents (
    collection VARCHAR(64) NOT NULL,
    id VARCHAR(128) NOT NULL,
    revision BIGINT NOT NULL DEFAULT 1,
    body LONGTEXT NOT NULL,
    updated_at BIGINT NOT NULL,
    PRIMARY KEY (collection, id)
)`,
}
