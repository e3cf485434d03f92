// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/db"
	"github.com/danielhkuo/eventroll/store"
)

// Store keeps documents as JSON text in the documents table.
type Store struct {
	db *sqlx.DB
}

var _ store.DocumentStore = (*Store)(nil)

func New(conn *sqlx.DB) *Store {
	return &Store{db: conn}
}

type row struct {
	ID       string `db:"id"`
	Revision int64  `db:"revision"`
	Body     string `db:"body"`
}

func (r row) document(collection string) (store.Document, error) {
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(r.Body), &fields); err != nil {
		return store.Document{}, errors.Wrapf(err, "corrupt body for %s/%s", collection, r.ID)
	}
	return store.Document{Collection: collection, ID: r.ID, Revision: r.Revision, Fields: fields}, nil
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Rebind(query string) string
}

func (s *Store) FetchByID(ctx context.Context, collection, id string) (store.Document, error) {
	return fetch(ctx, s.db, collection, id)
}

func fetch(ctx context.Context, q querier, collection, id string) (store.Document, error) {
	var r row
	err := q.GetContext(ctx, &r, q.Rebind(`
		SELECT id, revision, body FROM documents WHERE collection = ? AND id = ?
	`), collection, id)
	if err == sql.ErrNoRows {
		return store.Document{}, errors.Wrapf(store.ErrNotFound, "%s/%s", collection, id)
	}
	if err != nil {
		return store.Document{}, errors.Wrapf(err, "fetch %s/%s", collection, id)
	}
	return r.document(collection)
}

func (s *Store) FetchAll(ctx context.Context, collection string) ([]store.Document, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, revision, body FROM documents WHERE collection = ? ORDER BY id
	`), collection)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch all %s", collection)
	}

	docs := make([]store.Document, 0, len(rows))
	for _, r := range rows {
		doc, err := r.document(collection)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FetchWhere filters in memory; the body column is opaque JSON text so the
// query shape is the same on every dialect.
func (s *Store) FetchWhere(ctx context.Context, collection string, f store.Filter) ([]store.Document, error) {
	if _, err := store.Match(nil, f); err != nil {
		return nil, err
	}
	docs, err := s.FetchAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]store.Document, 0, len(docs))
	for _, d := range docs {
		if ok, _ := store.Match(d.Fields, f); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) Overwrite(ctx context.Context, collection, id string, fields map[string]any) error {
	body, err := marshal(fields)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(s.upsertQuery()), collection, id, body, nowMillis())
	return errors.Wrapf(err, "overwrite %s/%s", collection, id)
}

// upsertQuery inserts a document or replaces its body in one statement, so
// two first writers of the same id cannot collide on the primary key.
func (s *Store) upsertQuery() string {
	if s.db.DriverName() == db.DialectMySQL {
		return `
			INSERT INTO documents (collection, id, revision, body, updated_at)
			VALUES (?, ?, 1, ?, ?)
			ON DUPLICATE KEY UPDATE
				body = VALUES(body), revision = revision + 1, updated_at = VALUES(updated_at)
		`
	}
	return `
		INSERT INTO documents (collection, id, revision, body, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			body = excluded.body, revision = documents.revision + 1, updated_at = excluded.updated_at
	`
}

func (s *Store) MutateFields(ctx context.Context, collection, id string, partial map[string]any) error {
	_, err := s.casLoop(ctx, collection, id, func(fields map[string]any) bool {
		for k, v := range partial {
			fields[k] = v
		}
		return true
	})
	return err
}

func (s *Store) UnionArrays(ctx context.Context, collection, id string, values map[string][]string) (store.Document, error) {
	return s.casLoop(ctx, collection, id, func(fields map[string]any) bool {
		changed := false
		for field, vals := range values {
			if store.Union(fields, field, vals) {
				changed = true
			}
		}
		return changed
	})
}

// casLoop reads the document, applies mutate, and writes it back guarded by
// the revision it read. A rejected write is logged and retried from a fresh
// read, at most store.MaxCASAttempts times.
func (s *Store) casLoop(ctx context.Context, collection, id string, mutate func(map[string]any) bool) (store.Document, error) {
	for attempt := 1; attempt <= store.MaxCASAttempts; attempt++ {
		doc, err := s.FetchByID(ctx, collection, id)
		if err != nil {
			return store.Document{}, err
		}
		if !mutate(doc.Fields) {
			return doc, nil
		}

		err = s.UpdateIfRevision(ctx, collection, id, doc.Revision, doc.Fields)
		if err == nil {
			doc.Revision++
			return doc, nil
		}
		if !errors.Is(err, store.ErrStaleWrite) {
			return store.Document{}, err
		}
		slog.Warn("stale write rejected, retrying",
			"collection", collection, "id", id, "revision", doc.Revision, "attempt", attempt)
	}
	return store.Document{}, errors.Wrapf(store.ErrStaleWrite, "%s/%s after %d attempts", collection, id, store.MaxCASAttempts)
}

func (s *Store) UpdateIfRevision(ctx context.Context, collection, id string, revision int64, fields map[string]any) error {
	body, err := marshal(fields)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE documents SET body = ?, revision = revision + 1, updated_at = ?
		WHERE collection = ? AND id = ? AND revision = ?
	`), body, nowMillis(), collection, id, revision)
	if err != nil {
		return errors.Wrapf(err, "update %s/%s", collection, id)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "update %s/%s", collection, id)
	}
	if n > 0 {
		return nil
	}

	// Nothing matched: either the document is gone or someone wrote first.
	if _, err := s.FetchByID(ctx, collection, id); err != nil {
		return err
	}
	return errors.Wrapf(store.ErrStaleWrite, "%s/%s at revision %d", collection, id, revision)
}

func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		DELETE FROM documents WHERE collection = ? AND id = ?
	`), collection, id)
	return errors.Wrapf(err, "delete %s/%s", collection, id)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func marshal(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(err, "marshal document")
	}
	return string(b), nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
