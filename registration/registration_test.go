// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package registration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/eventroll/db"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/store/sqlstore"
)

type fixture struct {
	repo  *repository.Repository
	svc   *Service
	event models.Event
	dana  models.Person
	bob   models.Person
	staff models.Person
}

func setup(t *testing.T, published bool) fixture {
	t.Helper()
	conn, err := db.Open(db.DialectSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.CreateSchema(conn))
	s := sqlstore.New(conn)
	t.Cleanup(func() { s.Close() })

	repo := repository.New(s)
	ctx := context.Background()

	event, err := repo.CreateEvent(ctx, models.Event{
		Name:            "Park Walk",
		DateTime:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		MeetUpLocations: []string{"Gate A", "Gate B"},
		Participants:    []string{"Alice,Gate A,no"},
		Published:       published,
	})
	require.NoError(t, err)

	dana, err := repo.CreatePerson(ctx, models.Person{Name: "Dana", Role: models.RoleCaregiver, UUID: "b-dana"})
	require.NoError(t, err)
	bob, err := repo.CreatePerson(ctx, models.Person{Name: "Bob", Role: models.RoleVolunteer, UUID: "b-bob"})
	require.NoError(t, err)
	staff, err := repo.CreatePerson(ctx, models.Person{Name: "Sam", Role: models.RoleStaff})
	require.NoError(t, err)

	return fixture{repo: repo, svc: NewService(repo), event: event, dana: dana, bob: bob, staff: staff}
}

func as(p models.Person) models.SessionContext {
	return models.SessionContext{Person: p}
}

func TestJoinWithdraw_Caregiver(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	e, err := f.svc.Join(ctx, as(f.dana), f.event.ID, f.dana, JoinOptions{MeetUpLocation: "Gate A", CaregiverComing: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice,Gate A,no", "Dana,Gate A,yes"}, e.Participants)

	rec, _, err := f.repo.GetRecord(ctx, f.event.ID)
	require.NoError(t, err)
	require.Contains(t, rec.Entries, f.dana.ID)
	assert.Equal(t, models.FeedbackEntry{Name: "Dana", Achievements: []string{}}, rec.Entries[f.dana.ID])

	e, err = f.svc.Withdraw(ctx, as(f.dana), f.event.ID, f.dana)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice,Gate A,no"}, e.Participants)

	rec, _, err = f.repo.GetRecord(ctx, f.event.ID)
	require.NoError(t, err)
	assert.NotContains(t, rec.Entries, f.dana.ID)
}

func TestJoinWithdraw_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		person func(fixture) models.Person
		opts   JoinOptions
	}{
		{"caregiver", func(f fixture) models.Person { return f.dana }, JoinOptions{MeetUpLocation: "Gate B"}},
		{"volunteer", func(f fixture) models.Person { return f.bob }, JoinOptions{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, true)
			ctx := context.Background()
			p := tt.person(f)

			before, _, err := f.repo.GetEvent(ctx, f.event.ID)
			require.NoError(t, err)

			_, err = f.svc.Join(ctx, as(p), f.event.ID, p, tt.opts)
			require.NoError(t, err)
			_, err = f.svc.Withdraw(ctx, as(p), f.event.ID, p)
			require.NoError(t, err)

			after, _, err := f.repo.GetEvent(ctx, f.event.ID)
			require.NoError(t, err)
			assert.ElementsMatch(t, before.Participants, after.Participants)
			assert.ElementsMatch(t, before.Volunteers, after.Volunteers)

			rec, _, err := f.repo.GetRecord(ctx, f.event.ID)
			require.NoError(t, err)
			assert.NotContains(t, rec.Entries, p.ID)
		})
	}
}

func TestJoin_Errors(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, err := f.svc.Join(ctx, as(f.dana), f.event.ID, f.dana, JoinOptions{MeetUpLocation: "  "})
	assert.True(t, errors.Is(err, ErrLocationRequired))
	assert.Equal(t, "Location Required", err.Error())

	_, err = f.svc.Join(ctx, as(f.dana), f.event.ID, f.dana, JoinOptions{MeetUpLocation: "Gate Z"})
	assert.True(t, errors.Is(err, ErrUnknownLocation))

	_, err = f.svc.Join(ctx, as(f.staff), f.event.ID, f.staff, JoinOptions{})
	assert.True(t, errors.Is(err, ErrNotAllowed), "staff do not register themselves")

	_, err = f.svc.Join(ctx, as(f.bob), f.event.ID, f.dana, JoinOptions{MeetUpLocation: "Gate A"})
	assert.True(t, errors.Is(err, ErrNotAllowed), "volunteers cannot act for others")

	comma := f.dana
	comma.Name = "Dana, Jr"
	_, err = f.svc.Join(ctx, as(comma), f.event.ID, comma, JoinOptions{MeetUpLocation: "Gate A"})
	assert.True(t, errors.Is(err, ErrInvalidName))

	_, err = f.svc.Join(ctx, as(f.bob), "missing", f.bob, JoinOptions{})
	assert.Error(t, err)
}

func TestJoin_Duplicate(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, err := f.svc.Join(ctx, as(f.bob), f.event.ID, f.bob, JoinOptions{})
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, as(f.bob), f.event.ID, f.bob, JoinOptions{})
	assert.True(t, errors.Is(err, ErrAlreadyJoined))

	_, err = f.svc.Join(ctx, as(f.dana), f.event.ID, f.dana, JoinOptions{MeetUpLocation: "Gate A"})
	require.NoError(t, err)
	// A different location is still a duplicate.
	_, err = f.svc.Join(ctx, as(f.dana), f.event.ID, f.dana, JoinOptions{MeetUpLocation: "Gate B"})
	assert.True(t, errors.Is(err, ErrAlreadyJoined))

	e, _, err := f.repo.GetEvent(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, e.Volunteers)
	assert.Len(t, e.Participants, 2)
}

func TestWithdraw_NotJoined(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, err := f.svc.Withdraw(ctx, as(f.bob), f.event.ID, f.bob)
	assert.True(t, errors.Is(err, ErrNotJoined))
	_, err = f.svc.Withdraw(ctx, as(f.dana), f.event.ID, f.dana)
	assert.True(t, errors.Is(err, ErrNotJoined))
}

func TestJoin_Unpublished(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	_, err := f.svc.Join(ctx, as(f.bob), f.event.ID, f.bob, JoinOptions{})
	assert.True(t, errors.Is(err, ErrNotAllowed))

	// Staff manage the roster before publishing.
	e, err := f.svc.Join(ctx, as(f.staff), f.event.ID, f.bob, JoinOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, e.Volunteers)
}

func TestJoin_ConcurrentVolunteers(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	var people []models.Person
	for _, name := range []string{"V1", "V2", "V3"} {
		p, err := f.repo.CreatePerson(ctx, models.Person{Name: name, Role: models.RoleVolunteer})
		require.NoError(t, err)
		people = append(people, p)
	}

	var wg sync.WaitGroup
	for _, p := range people {
		wg.Add(1)
		go func(p models.Person) {
			defer wg.Done()
			_, err := f.svc.Join(ctx, as(p), f.event.ID, p, JoinOptions{})
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	e, _, err := f.repo.GetEvent(ctx, f.event.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"V1", "V2", "V3"}, e.Volunteers)
}
