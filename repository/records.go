// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package repository

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/store"
)

// GetRecord returns the event record and the revision it was read at.
func (r *Repository) GetRecord(ctx context.Context, eventID string) (models.EventRecord, int64, error) {
	doc, err := r.docs.FetchByID(ctx, EventRecords, eventID)
	if err != nil {
		return models.EventRecord{}, 0, err
	}
	rec, err := decodeRecord(doc)
	return rec, doc.Revision, err
}

func (r *Repository) SaveRecordIfUnchanged(ctx context.Context, rec models.EventRecord, revision int64) error {
	fields, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return r.docs.UpdateIfRevision(ctx, EventRecords, rec.EventID, revision, fields)
}

// UpdateRecord applies mutate to a fresh read of the event record and writes
// it back guarded by revision. A record missing for an existing event is
// recreated empty first.
func (r *Repository) UpdateRecord(ctx context.Context, eventID string, mutate func(*models.EventRecord) error) (models.EventRecord, error) {
	for attempt := 1; attempt <= store.MaxCASAttempts; attempt++ {
		rec, rev, err := r.GetRecord(ctx, eventID)
		if errors.Is(err, store.ErrNotFound) {
			if err := r.recreateRecord(ctx, eventID); err != nil {
				return models.EventRecord{}, err
			}
			continue
		}
		if err != nil {
			return models.EventRecord{}, err
		}

		if err := mutate(&rec); err != nil {
			return models.EventRecord{}, err
		}
		err = r.SaveRecordIfUnchanged(ctx, rec, rev)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, store.ErrStaleWrite) {
			return models.EventRecord{}, err
		}
		logStale(EventRecords, eventID, rev, attempt)
	}
	return models.EventRecord{}, errors.Wrapf(store.ErrStaleWrite, "event record %s", eventID)
}

func (r *Repository) recreateRecord(ctx context.Context, eventID string) error {
	if _, err := r.docs.FetchByID(ctx, Events, eventID); err != nil {
		return err
	}
	slog.Warn("event record missing, recreating", "event_id", eventID)
	return r.saveRecord(ctx, models.EventRecord{EventID: eventID})
}

func (r *Repository) saveRecord(ctx context.Context, rec models.EventRecord) error {
	fields, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return r.docs.Overwrite(ctx, EventRecords, rec.EventID, fields)
}

// ListRecordsForPerson returns the person's feedback entries across all
// events, each paired with its event. Records whose event is gone are skipped.
func (r *Repository) ListRecordsForPerson(ctx context.Context, personID string) ([]models.PersonRecord, error) {
	docs, err := r.docs.FetchAll(ctx, EventRecords)
	if err != nil {
		return nil, err
	}

	out := []models.PersonRecord{}
	for _, doc := range docs {
		rec, err := decodeRecord(doc)
		if err != nil {
			logSkipped(doc, err)
			continue
		}
		entry, ok := rec.Entries[personID]
		if !ok {
			continue
		}
		event, _, err := r.GetEvent(ctx, rec.EventID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, models.PersonRecord{Event: event, Entry: entry})
	}
	return out, nil
}

func encodeRecord(rec models.EventRecord) (map[string]any, error) {
	if rec.Entries == nil {
		rec.Entries = map[string]models.FeedbackEntry{}
	}
	return store.Encode(rec)
}

func decodeRecord(doc store.Document) (models.EventRecord, error) {
	var rec models.EventRecord
	if err := doc.Decode(&rec); err != nil {
		return models.EventRecord{}, err
	}
	rec.EventID = doc.ID
	if rec.Entries == nil {
		rec.Entries = map[string]models.FeedbackEntry{}
	}
	return rec, nil
}

func logStale(collection, id string, revision int64, attempt int) {
	slog.Warn("stale write rejected, retrying",
		"collection", collection, "id", id, "revision", revision, "attempt", attempt)
}

func logSkipped(doc store.Document, err error) {
	slog.Warn("skipping malformed document", "collection", doc.Collection, "id", doc.ID, "error", err)
}
