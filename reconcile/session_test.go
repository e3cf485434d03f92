// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/proximity"
)

type fakeStore struct {
	mu           sync.Mutex
	event        models.Event
	persons      []models.Person
	listErr      error
	failPersists int
	persistCalls int
	coordUpdates map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		event: models.Event{
			ID:              "ev-1",
			Name:            "Park Walk",
			MeetUpLocations: []string{"Gate A", "Gate B"},
			Participants:    []string{"Alice,Gate A,yes", "Eve,Gate B,no", "broken-entry"},
			Volunteers:      []string{"Bob"},
		},
		persons: []models.Person{
			{ID: "alice-id", Name: "Alice", Role: models.RoleCaregiver, UUID: "b-alice"},
			{ID: "bob-id", Name: "Bob", Role: models.RoleVolunteer, UUID: "b-bob"},
			{ID: "charlie-id", Name: "Charlie", Role: models.RoleCaregiver, UUID: "b-charlie"},
			{ID: "eve-id", Name: "Eve", Role: models.RoleCaregiver, UUID: "b-eve"},
		},
		coordUpdates: map[string]int{},
	}
}

func (f *fakeStore) GetEvent(ctx context.Context, id string) (models.Event, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.event.ID {
		return models.Event{}, 0, errors.New("not found")
	}
	return f.event, 1, nil
}

func (f *fakeStore) ListPersons(ctx context.Context) ([]models.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.persons, f.listErr
}

func (f *fakeStore) UpdatePersonCoords(ctx context.Context, id string, c models.Coordinates) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coordUpdates[id]++
	return nil
}

func (f *fakeStore) AddAttendance(ctx context.Context, eventID string, participants, volunteers []string) (models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persistCalls++
	if f.failPersists > 0 {
		f.failPersists--
		return models.Event{}, errors.New("store unavailable")
	}
	f.event.ParticipantAttendance = union(f.event.ParticipantAttendance, participants)
	f.event.VolunteerAttendance = union(f.event.VolunteerAttendance, volunteers)
	return f.event, nil
}

func (f *fakeStore) snapshot() (models.Event, int, map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int, len(f.coordUpdates))
	for k, v := range f.coordUpdates {
		counts[k] = v
	}
	return f.event, f.persistCalls, counts
}

func union(dst, add []string) []string {
	seen := map[string]bool{}
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range add {
		if !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	return dst
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var here = &models.Coordinates{Lat: 1.30, Long: 103.90}

func sighting(uuids ...string) proximity.Batch {
	b := proximity.Batch{Position: here}
	for _, u := range uuids {
		b.Beacons = append(b.Beacons, proximity.Beacon{UUID: u, RSSI: -60, Proximity: models.ProximityNear})
	}
	return b
}

func startSession(t *testing.T, fs *fakeStore, clock *fakeClock) (*Session, *proximity.Feed) {
	t.Helper()
	feed := proximity.NewFeed(false, 4)
	s := NewSession("s-1", fs.event.ID, "Gate A", fs, feed, proximity.BatchLocator{Now: clock.Now}, Config{
		Debounce: 5 * time.Second,
		Now:      clock.Now,
	})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s, feed
}

// assertPartition checks that attended and not-attended split the roster.
func assertPartition(t *testing.T, st models.SessionStatus) {
	t.Helper()
	check := func(expected, attended, notAttended []string) {
		assert.ElementsMatch(t, expected, append(append([]string{}, attended...), notAttended...))
		for _, a := range attended {
			assert.NotContains(t, notAttended, a)
		}
	}
	check(st.ExpectedParticipants, st.AttendedParticipants, st.NotAttendedParticipants)
	check(st.ExpectedVolunteers, st.AttendedVolunteers, st.NotAttendedVolunteers)
}

func TestStart_ResolvesRoster(t *testing.T) {
	fs := newFakeStore()
	s, feed := startSession(t, fs, newFakeClock())

	st := s.Status()
	assert.Equal(t, string(StateScanning), st.State)
	assert.Equal(t, []string{"Alice"}, st.ExpectedParticipants)
	assert.Equal(t, []string{"Bob"}, st.ExpectedVolunteers)
	assert.Equal(t, []string{"Alice"}, st.NotAttendedParticipants)
	assert.True(t, feed.Active())
	assertPartition(t, st)
}

func TestScenario_ParticipantSighted(t *testing.T) {
	fs := newFakeStore()
	s, _ := startSession(t, fs, newFakeClock())

	res, err := s.HandleBatch(context.Background(), sighting("b-alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, res.Confirmed)
	assert.True(t, res.Persisted)

	event, _, _ := fs.snapshot()
	assert.Equal(t, []string{"alice-id"}, event.ParticipantAttendance)

	st := s.Status()
	assert.Equal(t, []string{}, st.NotAttendedParticipants)
	assert.Equal(t, []string{"Bob"}, st.NotAttendedVolunteers)
	assertPartition(t, st)
}

func TestScenario_DebouncedBatchIgnored(t *testing.T) {
	fs := newFakeStore()
	clock := newFakeClock()
	s, _ := startSession(t, fs, clock)
	ctx := context.Background()

	_, err := s.HandleBatch(ctx, sighting("b-alice"))
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	res, err := s.HandleBatch(ctx, sighting("b-bob"))
	require.NoError(t, err)
	assert.True(t, res.Debounced)
	assert.Empty(t, res.Confirmed)
	assert.Equal(t, 0, res.LocationUpdates, "a debounced batch is not partially processed")

	st := s.Status()
	assert.Equal(t, []string{"Bob"}, st.NotAttendedVolunteers)
	assert.Equal(t, 1, st.BatchesDebounced)
	_, _, coords := fs.snapshot()
	assert.Zero(t, coords["bob-id"])

	// The window is measured from the last processed batch.
	clock.Advance(4 * time.Second)
	res, err = s.HandleBatch(ctx, sighting("b-bob"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, res.Confirmed)
	assert.Equal(t, []string{}, s.Status().NotAttendedVolunteers)

	event, _, _ := fs.snapshot()
	assert.Equal(t, []string{"bob-id"}, event.VolunteerAttendance)
}

func TestScenario_NotInRoster(t *testing.T) {
	fs := newFakeStore()
	clock := newFakeClock()
	s, _ := startSession(t, fs, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := s.HandleBatch(ctx, sighting("b-charlie", "b-eve"))
		require.NoError(t, err)
		assert.Empty(t, res.Confirmed)
		clock.Advance(10 * time.Second)
	}

	st := s.Status()
	assert.Equal(t, 2, st.ProcessedBeacons)
	assert.Equal(t, []string{"Alice"}, st.NotAttendedParticipants)
	assertPartition(t, st)

	event, persists, coords := fs.snapshot()
	assert.Empty(t, event.ParticipantAttendance)
	assert.Zero(t, persists)
	assert.Equal(t, 3, coords["charlie-id"], "location telemetry still runs")
}

func TestDedup_ConfirmOnceRefreshEveryTime(t *testing.T) {
	fs := newFakeStore()
	clock := newFakeClock()
	s, _ := startSession(t, fs, clock)
	ctx := context.Background()

	confirmations := 0
	for i := 0; i < 4; i++ {
		res, err := s.HandleBatch(ctx, sighting("b-alice", "b-alice"))
		require.NoError(t, err)
		confirmations += len(res.Confirmed)
		clock.Advance(6 * time.Second)
	}

	_, persists, coords := fs.snapshot()
	assert.Equal(t, 1, confirmations)
	assert.Equal(t, 1, persists)
	assert.Equal(t, 8, coords["alice-id"])
}

func TestUnknownBeaconSkipped(t *testing.T) {
	fs := newFakeStore()
	s, _ := startSession(t, fs, newFakeClock())

	res, err := s.HandleBatch(context.Background(), sighting("b-stranger", "b-alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, res.Confirmed)
	assert.Equal(t, 1, s.Status().ProcessedBeacons)
}

func TestLocationFailureDoesNotAbortBatch(t *testing.T) {
	fs := newFakeStore()
	s, _ := startSession(t, fs, newFakeClock())

	b := sighting("b-alice", "b-bob")
	b.LocationDenied = true
	res, err := s.HandleBatch(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, 2, res.LocationFailures)
	assert.Equal(t, []string{"Alice", "Bob"}, res.Confirmed)
	assert.True(t, res.Persisted)
}

func TestPersistFailureRetriedOnNextBatch(t *testing.T) {
	fs := newFakeStore()
	fs.failPersists = 1
	clock := newFakeClock()
	s, _ := startSession(t, fs, clock)
	ctx := context.Background()

	res, err := s.HandleBatch(ctx, sighting("b-alice"))
	require.NoError(t, err)
	assert.False(t, res.Persisted)

	st := s.Status()
	assert.True(t, st.PendingPersist)
	assert.Contains(t, st.LastError, "store unavailable")
	assert.Equal(t, []string{"Alice"}, st.AttendedParticipants, "in-memory state is not rolled back")

	// Nothing new in this batch, but the pending write goes out.
	clock.Advance(6 * time.Second)
	res, err = s.HandleBatch(ctx, sighting())
	require.NoError(t, err)
	assert.True(t, res.Persisted)

	st = s.Status()
	assert.False(t, st.PendingPersist)
	assert.Empty(t, st.LastError)

	event, persists, _ := fs.snapshot()
	assert.Equal(t, []string{"alice-id"}, event.ParticipantAttendance)
	assert.Equal(t, 2, persists)
}

func TestStart_DirectoryFailure(t *testing.T) {
	fs := newFakeStore()
	fs.listErr = errors.New("network down")
	feed := proximity.NewFeed(false, 1)
	s := NewSession("s-1", "ev-1", "Gate A", fs, feed, proximity.BatchLocator{}, Config{})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
	assert.False(t, feed.Active())

	_, err = s.HandleBatch(context.Background(), sighting("b-alice"))
	assert.True(t, errors.Is(err, ErrNotScanning))

	// Retry once the directory is reachable again.
	fs.mu.Lock()
	fs.listErr = nil
	fs.mu.Unlock()
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateScanning, s.State())
	s.Stop()
}

func TestStart_UnknownLocation(t *testing.T) {
	fs := newFakeStore()
	s := NewSession("s-1", "ev-1", "Gate Z", fs, proximity.NewFeed(false, 1), proximity.BatchLocator{}, Config{})

	err := s.Start(context.Background())
	assert.True(t, errors.Is(err, ErrUnknownLocation))
	assert.Equal(t, StateFailed, s.State())
}

func TestStart_RadioPermissionDenied(t *testing.T) {
	fs := newFakeStore()
	feed := proximity.NewFeed(true, 1)
	s := NewSession("s-1", "ev-1", "Gate A", fs, feed, proximity.BatchLocator{}, Config{})

	err := s.Start(context.Background())
	assert.True(t, errors.Is(err, proximity.ErrPermissionDenied))
	assert.Equal(t, StateUnavailable, s.State())
	assert.False(t, feed.Active())
	assert.NotEmpty(t, s.Status().LastError)
}

func TestStart_SeedsPersistedAttendance(t *testing.T) {
	fs := newFakeStore()
	fs.event.ParticipantAttendance = []string{"alice-id", "eve-id", "ghost-id"}
	s, _ := startSession(t, fs, newFakeClock())

	st := s.Status()
	assert.Equal(t, []string{"Alice"}, st.AttendedParticipants)
	assert.Equal(t, []string{}, st.NotAttendedParticipants)
	assertPartition(t, st)

	res, err := s.HandleBatch(context.Background(), sighting("b-alice"))
	require.NoError(t, err)
	assert.Empty(t, res.Confirmed)
}

func TestOverride(t *testing.T) {
	fs := newFakeStore()
	clock := newFakeClock()
	s, _ := startSession(t, fs, clock)
	ctx := context.Background()

	_, err := s.HandleBatch(ctx, sighting("b-alice"))
	require.NoError(t, err)

	// Immediately after a processed batch: the debounce does not apply.
	injected, res, err := s.Override(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, injected)
	assert.False(t, res.Debounced)
	assert.Equal(t, []string{"Bob"}, res.Confirmed)

	st := s.Status()
	assert.Empty(t, st.NotAttendedParticipants)
	assert.Empty(t, st.NotAttendedVolunteers)
	assertPartition(t, st)

	event, _, _ := fs.snapshot()
	assert.Equal(t, []string{"bob-id"}, event.VolunteerAttendance)

	// Everyone is in; a second override injects nothing.
	injected, _, err = s.Override(ctx)
	require.NoError(t, err)
	assert.Zero(t, injected)
}

func TestOverride_EmptyKeepsDebounceWindow(t *testing.T) {
	fs := newFakeStore()
	clock := newFakeClock()
	s, _ := startSession(t, fs, clock)
	ctx := context.Background()

	_, err := s.HandleBatch(ctx, sighting("b-alice", "b-bob"))
	require.NoError(t, err)

	clock.Advance(6 * time.Second)
	injected, res, err := s.Override(ctx)
	require.NoError(t, err)
	assert.Zero(t, injected)
	assert.False(t, res.Persisted)

	// A real batch right after the empty override is still processed.
	clock.Advance(1 * time.Second)
	res, err = s.HandleBatch(ctx, sighting("b-charlie"))
	require.NoError(t, err)
	assert.False(t, res.Debounced)
	assert.Equal(t, 1, res.LocationUpdates)
	assert.Equal(t, 0, s.Status().BatchesDebounced)
}

func TestRosterGating_NamesakeNotConfirmed(t *testing.T) {
	fs := newFakeStore()
	fs.persons = append(fs.persons, models.Person{ID: "alice2-id", Name: "Alice", Role: models.RoleCaregiver, UUID: "b-alice2"})
	clock := newFakeClock()
	s, _ := startSession(t, fs, clock)
	ctx := context.Background()

	res, err := s.HandleBatch(ctx, sighting("b-alice2"))
	require.NoError(t, err)
	assert.Empty(t, res.Confirmed)
	assert.Equal(t, []string{"Alice"}, s.Status().NotAttendedParticipants)

	clock.Advance(10 * time.Second)
	res, err = s.HandleBatch(ctx, sighting("b-alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, res.Confirmed)

	event, _, coords := fs.snapshot()
	assert.Equal(t, []string{"alice-id"}, event.ParticipantAttendance)
	assert.Equal(t, 1, coords["alice2-id"], "location telemetry still runs for the namesake")
	assertPartition(t, s.Status())
}

func TestStart_SeedIgnoresNamesake(t *testing.T) {
	fs := newFakeStore()
	fs.persons = append(fs.persons, models.Person{ID: "alice2-id", Name: "Alice", Role: models.RoleCaregiver, UUID: "b-alice2"})
	fs.event.ParticipantAttendance = []string{"alice2-id"}
	s, _ := startSession(t, fs, newFakeClock())

	st := s.Status()
	assert.Empty(t, st.AttendedParticipants)
	assert.Equal(t, []string{"Alice"}, st.NotAttendedParticipants)

	res, err := s.HandleBatch(context.Background(), sighting("b-alice"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, res.Confirmed)
}

func TestStop_ReleasesAndRejects(t *testing.T) {
	fs := newFakeStore()
	s, feed := startSession(t, fs, newFakeClock())

	s.Stop()
	s.Stop()
	assert.Equal(t, StateStopped, s.State())
	assert.False(t, feed.Active())

	_, err := s.HandleBatch(context.Background(), sighting("b-alice"))
	assert.True(t, errors.Is(err, ErrNotScanning))
	_, _, err = s.Override(context.Background())
	assert.True(t, errors.Is(err, ErrNotScanning))
	assert.True(t, errors.Is(s.Start(context.Background()), ErrInvalidState))
}

func TestRun_ConsumesFeed(t *testing.T) {
	fs := newFakeStore()
	s, feed := startSession(t, fs, newFakeClock())

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	require.NoError(t, feed.Publish(sighting("b-alice")))
	require.Eventually(t, func() bool {
		return len(s.Status().AttendedParticipants) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not exit after stop")
	}
	assert.False(t, feed.Active())
}

func TestRun_ExitsOnContextCancel(t *testing.T) {
	fs := newFakeStore()
	s, feed := startSession(t, fs, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not exit after cancel")
	}
	assert.Equal(t, StateStopped, s.State())
	assert.False(t, feed.Active())
}
