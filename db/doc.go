// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens SQL connections and creates the document table.

# Dialects

Open accepts the driver name as the dialect:

  - postgres: github.com/lib/pq
  - sqlite:   modernc.org/sqlite (pure Go, used by the tests with ":memory:")
  - mysql:    github.com/go-sql-driver/mysql

	conn, err := db.Open("postgres", cfg.DatabaseURL)

# Schema Creation

CreateSchema initializes the single documents table:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS.

# Tables

	documents(collection, id) → revision, body (JSON text), updated_at (unix ms)

Events, users and event records all live in this table, one row per
document. The revision column backs compare-and-swap writes.
*/
package db
