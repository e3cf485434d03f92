// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrStaleWrite    = errors.New("document revision changed")
	ErrUnsupportedOp = errors.New("unsupported filter operator")
)

// Filter operators
const (
	OpEqual         = "=="
	OpNotEqual      = "!="
	OpArrayContains = "array-contains"
)

// MaxCASAttempts bounds the retry loops of MutateFields and UnionArrays.
const MaxCASAttempts = 5

// Document is a schemaless record. Fields holds JSON-compatible values only
// (string, float64, bool, nil, []any, map[string]any).
type Document struct {
	Collection string
	ID         string
	Revision   int64
	Fields     map[string]any
}

type Filter struct {
	Field string
	Op    string
	Value any
}

// DocumentStore is the persistence boundary for events, users and records.
// Every write bumps the document revision.
type DocumentStore interface {
	FetchByID(ctx context.Context, collection, id string) (Document, error)
	FetchAll(ctx context.Context, collection string) ([]Document, error)
	FetchWhere(ctx context.Context, collection string, f Filter) ([]Document, error)

	// Overwrite creates or fully replaces a document.
	Overwrite(ctx context.Context, collection, id string, fields map[string]any) error
	// MutateFields merges top-level fields into an existing document.
	MutateFields(ctx context.Context, collection, id string, partial map[string]any) error
	DeleteByID(ctx context.Context, collection, id string) error

	// UpdateIfRevision replaces the document only if its revision still
	// matches; otherwise it returns ErrStaleWrite.
	UpdateIfRevision(ctx context.Context, collection, id string, revision int64, fields map[string]any) error
	// UnionArrays atomically adds values to array fields, skipping values
	// already present, and returns the resulting document.
	UnionArrays(ctx context.Context, collection, id string, values map[string][]string) (Document, error)

	Close() error
}

// Encode converts a typed value into document fields through its JSON form.
func Encode(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	return fields, nil
}

// Decode fills v from the document fields.
func (d Document) Decode(v any) error {
	b, err := json.Marshal(d.Fields)
	if err != nil {
		return errors.Wrapf(err, "decode %s/%s", d.Collection, d.ID)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errors.Wrapf(err, "decode %s/%s", d.Collection, d.ID)
	}
	return nil
}

// Match evaluates f against fields. Backends without native query support
// filter in memory with it.
func Match(fields map[string]any, f Filter) (bool, error) {
	v, ok := fields[f.Field]
	switch f.Op {
	case OpEqual:
		return ok && equal(v, f.Value), nil
	case OpNotEqual:
		return !ok || !equal(v, f.Value), nil
	case OpArrayContains:
		arr, isArr := v.([]any)
		if !ok || !isArr {
			return false, nil
		}
		for _, item := range arr {
			if equal(item, f.Value) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, errors.Wrapf(ErrUnsupportedOp, "%q", f.Op)
	}
}

// equal compares a decoded JSON value with a caller-supplied one, normalising
// the caller side through JSON so that e.g. int and float64 compare equal.
func equal(stored, want any) bool {
	b, err := json.Marshal(want)
	if err != nil {
		return false
	}
	var norm any
	if err := json.Unmarshal(b, &norm); err != nil {
		return false
	}
	return reflect.DeepEqual(stored, norm)
}

// Union appends the values missing from the array stored under field and
// reports whether anything was added.
func Union(fields map[string]any, field string, values []string) bool {
	var arr []any
	if existing, ok := fields[field].([]any); ok {
		arr = existing
	}
	present := make(map[string]bool, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			present[s] = true
		}
	}
	changed := false
	for _, v := range values {
		if present[v] {
			continue
		}
		present[v] = true
		arr = append(arr, v)
		changed = true
	}
	if arr == nil {
		arr = []any{}
	}
	fields[field] = arr
	return changed
}
