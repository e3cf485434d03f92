// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/store"
)

// Collection names
const (
	Events       = "events"
	Users        = "users"
	EventRecords = "eventRecords"
)

// Attendance field names on event documents
const (
	FieldParticipantAttendance = "participant_attendance"
	FieldVolunteerAttendance   = "volunteer_attendance"
)

var (
	ErrNotFound = store.ErrNotFound

	// ErrUnreadablePerson means a person document could not be decoded.
	// Listing persons fails rather than return a partial directory.
	ErrUnreadablePerson = errors.New("unreadable person document")
)

// Repository maps domain types onto documents.
type Repository struct {
	docs store.DocumentStore
}

func New(docs store.DocumentStore) *Repository {
	return &Repository{docs: docs}
}

// Store exposes the underlying document store.
func (r *Repository) Store() store.DocumentStore {
	return r.docs
}

func newID() string {
	return uuid.NewString()
}

// Events

// CreateEvent stores a new event together with its empty event record.
func (r *Repository) CreateEvent(ctx context.Context, e models.Event) (models.Event, error) {
	e.ID = newID()
	normalizeEvent(&e)

	fields, err := store.Encode(e)
	if err != nil {
		return models.Event{}, err
	}
	if err := r.docs.Overwrite(ctx, Events, e.ID, fields); err != nil {
		return models.Event{}, errors.Wrap(err, "create event")
	}

	rec := models.EventRecord{EventID: e.ID, Entries: map[string]models.FeedbackEntry{}}
	if err := r.saveRecord(ctx, rec); err != nil {
		return models.Event{}, errors.Wrap(err, "create event record")
	}
	return e, nil
}

// GetEvent returns the event and the revision it was read at.
func (r *Repository) GetEvent(ctx context.Context, id string) (models.Event, int64, error) {
	doc, err := r.docs.FetchByID(ctx, Events, id)
	if err != nil {
		return models.Event{}, 0, err
	}
	e, err := decodeEvent(doc)
	return e, doc.Revision, err
}

func (r *Repository) ListEvents(ctx context.Context) ([]models.Event, error) {
	docs, err := r.docs.FetchAll(ctx, Events)
	if err != nil {
		return nil, err
	}
	return decodeEvents(docs), nil
}

func (r *Repository) ListPublished(ctx context.Context) ([]models.Event, error) {
	docs, err := r.docs.FetchWhere(ctx, Events, store.Filter{Field: "published", Op: store.OpEqual, Value: true})
	if err != nil {
		return nil, err
	}
	return decodeEvents(docs), nil
}

// SaveEventIfUnchanged writes e only if the stored event is still at revision.
func (r *Repository) SaveEventIfUnchanged(ctx context.Context, e models.Event, revision int64) error {
	normalizeEvent(&e)
	fields, err := store.Encode(e)
	if err != nil {
		return err
	}
	return r.docs.UpdateIfRevision(ctx, Events, e.ID, revision, fields)
}

// UpdateEvent applies mutate to a fresh read of the event and writes it back
// guarded by revision, retrying on concurrent writes. mutate may run more
// than once and must not have side effects.
func (r *Repository) UpdateEvent(ctx context.Context, id string, mutate func(*models.Event) error) (models.Event, error) {
	for attempt := 1; attempt <= store.MaxCASAttempts; attempt++ {
		e, rev, err := r.GetEvent(ctx, id)
		if err != nil {
			return models.Event{}, err
		}
		if err := mutate(&e); err != nil {
			return models.Event{}, err
		}
		err = r.SaveEventIfUnchanged(ctx, e, rev)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, store.ErrStaleWrite) {
			return models.Event{}, err
		}
		logStale(Events, id, rev, attempt)
	}
	return models.Event{}, errors.Wrapf(store.ErrStaleWrite, "event %s", id)
}

// DeleteEvent removes the event and its event record.
func (r *Repository) DeleteEvent(ctx context.Context, id string) error {
	if _, err := r.docs.FetchByID(ctx, Events, id); err != nil {
		return err
	}
	if err := r.docs.DeleteByID(ctx, EventRecords, id); err != nil {
		return errors.Wrap(err, "delete event record")
	}
	return errors.Wrap(r.docs.DeleteByID(ctx, Events, id), "delete event")
}

// AddAttendance unions person IDs into both attendance lists in one write
// and returns the resulting event.
func (r *Repository) AddAttendance(ctx context.Context, eventID string, participants, volunteers []string) (models.Event, error) {
	doc, err := r.docs.UnionArrays(ctx, Events, eventID, map[string][]string{
		FieldParticipantAttendance: participants,
		FieldVolunteerAttendance:   volunteers,
	})
	if err != nil {
		return models.Event{}, err
	}
	return decodeEvent(doc)
}

func decodeEvent(doc store.Document) (models.Event, error) {
	var e models.Event
	if err := doc.Decode(&e); err != nil {
		return models.Event{}, err
	}
	e.ID = doc.ID
	normalizeEvent(&e)
	return e, nil
}

func decodeEvents(docs []store.Document) []models.Event {
	events := make([]models.Event, 0, len(docs))
	for _, doc := range docs {
		e, err := decodeEvent(doc)
		if err != nil {
			logSkipped(doc, err)
			continue
		}
		events = append(events, e)
	}
	return events
}

func normalizeEvent(e *models.Event) {
	for _, list := range []*[]string{
		&e.MeetUpLocations, &e.ItemsToBring, &e.Participants, &e.Volunteers,
		&e.ParticipantAttendance, &e.VolunteerAttendance,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
}

// Persons

func (r *Repository) CreatePerson(ctx context.Context, p models.Person) (models.Person, error) {
	p.ID = newID()
	fields, err := store.Encode(p)
	if err != nil {
		return models.Person{}, err
	}
	if err := r.docs.Overwrite(ctx, Users, p.ID, fields); err != nil {
		return models.Person{}, errors.Wrap(err, "create person")
	}
	return p, nil
}

func (r *Repository) GetPerson(ctx context.Context, id string) (models.Person, error) {
	doc, err := r.docs.FetchByID(ctx, Users, id)
	if err != nil {
		return models.Person{}, err
	}
	return decodePerson(doc)
}

func (r *Repository) ListPersons(ctx context.Context) ([]models.Person, error) {
	docs, err := r.docs.FetchAll(ctx, Users)
	if err != nil {
		return nil, err
	}
	persons := make([]models.Person, 0, len(docs))
	for _, doc := range docs {
		p, err := decodePerson(doc)
		if err != nil {
			return nil, errors.Wrapf(ErrUnreadablePerson, "%s: %v", doc.ID, err)
		}
		persons = append(persons, p)
	}
	return persons, nil
}

// UpdatePersonCoords overwrites the person's last-known coordinates.
func (r *Repository) UpdatePersonCoords(ctx context.Context, id string, c models.Coordinates) error {
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now().UTC()
	}
	fields, err := store.Encode(c)
	if err != nil {
		return err
	}
	return r.docs.MutateFields(ctx, Users, id, map[string]any{"coords": fields})
}

func decodePerson(doc store.Document) (models.Person, error) {
	var p models.Person
	if err := doc.Decode(&p); err != nil {
		return models.Person{}, err
	}
	p.ID = doc.ID
	return p, nil
}
