// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store defines the document persistence boundary.

Events, users and event records are schemaless documents addressed by
collection and ID. Every write bumps a per-document revision, which gives two
conditional primitives on top of plain overwrite:

	// replace only if nobody wrote since we read
	err := s.UpdateIfRevision(ctx, "events", id, doc.Revision, fields)

	// add attendance without losing concurrent additions
	doc, err := s.UnionArrays(ctx, "events", id, map[string][]string{
		"participant_attendance": {"alice-id"},
	})

Backends live in store/sqlstore and store/mongostore.
*/
package store
