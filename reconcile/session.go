// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/directory"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/proximity"
	"github.com/danielhkuo/eventroll/roster"
)

type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateScanning    State = "scanning"
	StateUnavailable State = "unavailable"
	StateFailed      State = "failed"
	StateStopped     State = "stopped"
)

var (
	ErrNotScanning     = errors.New("session is not scanning")
	ErrInvalidState    = errors.New("session cannot start from its current state")
	ErrUnknownLocation = errors.New("unknown meet-up location")
)

// DefaultDebounce is the minimum time between two processed batches.
const DefaultDebounce = 5 * time.Second

// Synthetic reading used for override sightings.
const (
	overrideRSSI     = -38
	overrideDistance = 0.006325537089737412
)

// Store is what a session reads and writes.
type Store interface {
	GetEvent(ctx context.Context, id string) (models.Event, int64, error)
	ListPersons(ctx context.Context) ([]models.Person, error)
	UpdatePersonCoords(ctx context.Context, id string, c models.Coordinates) error
	AddAttendance(ctx context.Context, eventID string, participants, volunteers []string) (models.Event, error)
}

type Config struct {
	Debounce time.Duration
	Region   proximity.Region
	Now      func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Region == (proximity.Region{}) {
		c.Region = proximity.DefaultRegion
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// BatchResult summarizes what one batch did.
type BatchResult struct {
	Debounced        bool
	Confirmed        []string // names newly marked attended
	LocationUpdates  int
	LocationFailures int
	Persisted        bool
}

// attendance is the in-memory attended state for one list.
type attendance struct {
	names map[string]bool // roster names marked attended
	ids   []string        // person IDs to persist
	seen  map[string]bool // ids already in ids
}

func newAttendance() *attendance {
	return &attendance{names: map[string]bool{}, seen: map[string]bool{}}
}

func (a *attendance) mark(p models.Person) bool {
	if a.names[p.Name] {
		return false
	}
	a.names[p.Name] = true
	a.addID(p.ID)
	return true
}

func (a *attendance) addID(id string) {
	if a.seen[id] {
		return
	}
	a.seen[id] = true
	a.ids = append(a.ids, id)
}

// Session reconciles beacon sightings against one event and meet-up
// location. It lives from Start until Stop; its processed-beacon set is never
// shared or reused.
type Session struct {
	id       string
	eventID  string
	location string
	store    Store
	ranger   proximity.Ranger
	locator  proximity.Locator
	cfg      Config

	// mu serializes batch handling with everything that reads session state.
	mu               sync.Mutex
	state            State
	event            models.Event
	dir              *directory.Directory
	roster           roster.Roster
	participants     *attendance
	volunteers       *attendance
	processed        map[string]bool
	lastProcessed    time.Time
	pendingPersist   bool
	batchesProcessed int
	batchesDebounced int
	lastErr          error

	batches     <-chan proximity.Batch
	unsubscribe func()
	monitoring  bool
	ranging     bool
	releaseOnce sync.Once
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewSession(id, eventID, location string, store Store, ranger proximity.Ranger, locator proximity.Locator, cfg Config) *Session {
	return &Session{
		id:       id,
		eventID:  eventID,
		location: location,
		store:    store,
		ranger:   ranger,
		locator:  locator,
		cfg:      cfg.withDefaults(),
		state:    StateIdle,
		stop:     make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) EventID() string { return s.eventID }

func (s *Session) Location() string { return s.location }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start loads the event, roster and identity directory, then acquires the
// ranging subscription. A failed load leaves the session in StateFailed and
// a refused radio permission in StateUnavailable; both may be retried.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle, StateFailed, StateUnavailable:
	default:
		return errors.Wrapf(ErrInvalidState, "%s", s.state)
	}
	s.state = StateLoading

	if err := s.load(ctx); err != nil {
		s.state = StateFailed
		s.lastErr = err
		slog.Error("attendance session failed to load", "session_id", s.id, "event_id", s.eventID, "error", err)
		return err
	}

	if err := s.acquire(); err != nil {
		s.releaseRanger()
		if errors.Is(err, proximity.ErrPermissionDenied) {
			s.state = StateUnavailable
		} else {
			s.state = StateFailed
		}
		s.lastErr = err
		slog.Warn("scanning unavailable", "session_id", s.id, "event_id", s.eventID, "error", err)
		return err
	}

	s.state = StateScanning
	s.lastErr = nil
	slog.Info("attendance session scanning",
		"session_id", s.id,
		"event_id", s.eventID,
		"meet_up_location", s.location,
		"expected_participants", len(s.roster.Participants),
		"expected_volunteers", len(s.roster.Volunteers),
		"directory_size", s.dir.Len(),
	)
	return nil
}

func (s *Session) load(ctx context.Context) error {
	event, _, err := s.store.GetEvent(ctx, s.eventID)
	if err != nil {
		return errors.Wrap(err, "load event")
	}
	if !event.HasMeetUpLocation(s.location) {
		return errors.Wrapf(ErrUnknownLocation, "%q", s.location)
	}

	dir, err := directory.Load(ctx, s.store)
	if err != nil {
		return err
	}

	s.event = event
	s.dir = dir
	s.roster = roster.Resolve(event, s.location)
	s.processed = map[string]bool{}
	s.participants = newAttendance()
	s.volunteers = newAttendance()
	s.lastProcessed = time.Time{}
	s.pendingPersist = false

	// Carry over attendance already persisted, limited to this roster so the
	// attended and not-attended lists always partition it.
	s.seedAttendance(event.ParticipantAttendance, s.participants, s.roster.ExpectsParticipant)
	s.seedAttendance(event.VolunteerAttendance, s.volunteers, s.roster.ExpectsVolunteer)
	return nil
}

func (s *Session) seedAttendance(ids []string, a *attendance, expected func(string) bool) {
	for _, id := range ids {
		a.addID(id)
		p, ok := s.dir.ByID(id)
		if !ok || !expected(p.Name) || !s.isRosterPerson(p) {
			continue
		}
		a.names[p.Name] = true
		if p.UUID != "" {
			s.processed[p.UUID] = true
		}
	}
}

func (s *Session) acquire() error {
	if err := s.ranger.Init(); err != nil {
		return errors.Wrap(err, "init ranging")
	}
	if err := s.ranger.StartMonitoring(s.cfg.Region); err != nil {
		return errors.Wrap(err, "start monitoring")
	}
	s.monitoring = true
	if err := s.ranger.StartRanging(s.cfg.Region); err != nil {
		return errors.Wrap(err, "start ranging")
	}
	s.ranging = true
	s.batches, s.unsubscribe = s.ranger.Subscribe()
	return nil
}

// releaseRanger undoes whatever acquire got to. Safe to call more than once.
func (s *Session) releaseRanger() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.ranging {
		if err := s.ranger.StopRanging(s.cfg.Region); err != nil {
			slog.Warn("failed to stop ranging", "session_id", s.id, "error", err)
		}
		s.ranging = false
	}
	if s.monitoring {
		if err := s.ranger.StopMonitoring(s.cfg.Region); err != nil {
			slog.Warn("failed to stop monitoring", "session_id", s.id, "error", err)
		}
		s.monitoring = false
	}
}

// Run consumes batches until Stop, ctx cancellation or the end of the
// subscription. The subscription is released on every exit.
func (s *Session) Run(ctx context.Context) {
	s.mu.Lock()
	batches := s.batches
	s.mu.Unlock()
	defer s.Stop()

	if batches == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case b, ok := <-batches:
			if !ok {
				return
			}
			if _, err := s.HandleBatch(ctx, b); err != nil && !errors.Is(err, ErrNotScanning) {
				slog.Warn("batch handling failed", "session_id", s.id, "error", err)
			}
		}
	}
}

// Stop ends the session and releases the ranging subscription.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseOnce.Do(s.releaseRanger)
	if s.state != StateStopped {
		slog.Info("attendance session stopped", "session_id", s.id, "event_id", s.eventID, "from_state", string(s.state))
	}
	s.state = StateStopped
}

// HandleBatch is the only path that turns sightings into attendance. Batches
// closer than the debounce interval to the last processed one are ignored
// entirely unless forced.
func (s *Session) HandleBatch(ctx context.Context, b proximity.Batch) (BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res BatchResult
	if s.state != StateScanning {
		return res, errors.Wrapf(ErrNotScanning, "%s", s.state)
	}

	now := s.cfg.Now()
	if !b.Forced && !s.lastProcessed.IsZero() && now.Sub(s.lastProcessed) < s.cfg.Debounce {
		s.batchesDebounced++
		res.Debounced = true
		return res, nil
	}
	s.lastProcessed = now
	s.batchesProcessed++

	changed := false
	for _, beacon := range b.Beacons {
		person, ok := s.dir.ByBeacon(beacon.UUID)
		if !ok {
			continue
		}

		// Location telemetry runs for every sighting, processed or not.
		if err := s.refreshLocation(ctx, person, b); err != nil {
			res.LocationFailures++
			slog.Warn("location refresh failed", "session_id", s.id, "person_id", person.ID, "error", err)
		} else {
			res.LocationUpdates++
		}

		if s.processed[beacon.UUID] {
			continue
		}
		s.processed[beacon.UUID] = true

		if s.confirm(person) {
			changed = true
			res.Confirmed = append(res.Confirmed, person.Name)
			slog.Info("attendance confirmed",
				"session_id", s.id,
				"event_id", s.eventID,
				"person_id", person.ID,
				"name", person.Name,
			)
		}
	}

	if changed || s.pendingPersist {
		res.Persisted = s.persist(ctx)
	}
	return res, nil
}

// confirm marks person attended if they are expected in the list for their
// role. It reports whether anything changed.
func (s *Session) confirm(p models.Person) bool {
	caps, _ := p.Role.Capabilities()
	if !s.roster.Expects(caps.AttendanceList, p.Name) || !s.isRosterPerson(p) {
		slog.Debug("sighted person not in roster", "session_id", s.id, "person_id", p.ID, "name", p.Name)
		return false
	}
	switch caps.AttendanceList {
	case models.AttendanceParticipants:
		return s.participants.mark(p)
	case models.AttendanceVolunteers:
		return s.volunteers.mark(p)
	}
	return false
}

// isRosterPerson reports whether p is the person their roster name resolves
// to. Rosters hold names, so a namesake elsewhere in the directory must not
// stand in for the registered person.
func (s *Session) isRosterPerson(p models.Person) bool {
	rp, ok := s.dir.ByName(p.Name)
	return ok && rp.ID == p.ID
}

func (s *Session) refreshLocation(ctx context.Context, p models.Person, b proximity.Batch) error {
	coords, err := s.locator.Locate(b)
	if err != nil {
		return err
	}
	return s.store.UpdatePersonCoords(ctx, p.ID, coords)
}

// persist writes the full in-memory attendance. On failure the state is kept
// and the next batch tries again.
func (s *Session) persist(ctx context.Context) bool {
	event, err := s.store.AddAttendance(ctx, s.eventID, s.participants.ids, s.volunteers.ids)
	if err != nil {
		s.pendingPersist = true
		s.lastErr = err
		slog.Warn("attendance persist failed, will retry on next batch", "session_id", s.id, "event_id", s.eventID, "error", err)
		return false
	}
	s.pendingPersist = false
	s.lastErr = nil
	s.event = event
	return true
}

// Override pushes a synthetic sighting for every expected person not yet
// attended through HandleBatch, bypassing only the debounce.
func (s *Session) Override(ctx context.Context) (int, BatchResult, error) {
	s.mu.Lock()
	if s.state != StateScanning {
		state := s.state
		s.mu.Unlock()
		return 0, BatchResult{}, errors.Wrapf(ErrNotScanning, "%s", state)
	}
	var beacons []proximity.Beacon
	add := func(names []string, a *attendance) {
		for _, name := range roster.NotAttended(names, a.names) {
			p, ok := s.dir.ByName(name)
			if !ok || p.UUID == "" {
				continue
			}
			beacons = append(beacons, proximity.Beacon{
				UUID:      p.UUID,
				RSSI:      overrideRSSI,
				Proximity: models.ProximityImmediate,
				Distance:  overrideDistance,
				Major:     s.cfg.Region.Major,
				Minor:     s.cfg.Region.Minor,
			})
		}
	}
	add(s.roster.Participants, s.participants)
	add(s.roster.Volunteers, s.volunteers)
	now := s.cfg.Now()
	s.mu.Unlock()

	slog.Info("manual attendance override", "session_id", s.id, "event_id", s.eventID, "injected", len(beacons))
	if len(beacons) == 0 {
		// Nothing to match; leave the debounce window alone.
		return 0, BatchResult{}, nil
	}
	res, err := s.HandleBatch(ctx, proximity.Batch{Beacons: beacons, Forced: true, ReceivedAt: now})
	return len(beacons), res, err
}

// Status is a snapshot of the session.
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.SessionStatus{
		ID:                      s.id,
		EventID:                 s.eventID,
		MeetUpLocation:          s.location,
		State:                   string(s.state),
		ExpectedParticipants:    nonNil(s.roster.Participants),
		ExpectedVolunteers:      nonNil(s.roster.Volunteers),
		AttendedParticipants:    []string{},
		AttendedVolunteers:      []string{},
		NotAttendedParticipants: []string{},
		NotAttendedVolunteers:   []string{},
		ProcessedBeacons:        len(s.processed),
		BatchesProcessed:        s.batchesProcessed,
		BatchesDebounced:        s.batchesDebounced,
		PendingPersist:          s.pendingPersist,
	}
	if s.participants != nil {
		st.AttendedParticipants = attended(s.roster.Participants, s.participants.names)
		st.NotAttendedParticipants = roster.NotAttended(st.ExpectedParticipants, s.participants.names)
	}
	if s.volunteers != nil {
		st.AttendedVolunteers = attended(s.roster.Volunteers, s.volunteers.names)
		st.NotAttendedVolunteers = roster.NotAttended(st.ExpectedVolunteers, s.volunteers.names)
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if !s.lastProcessed.IsZero() {
		st.LastBatchAt = s.lastProcessed
		st.LastBatchAgo = humanize.RelTime(s.lastProcessed, s.cfg.Now(), "ago", "from now")
	}
	return st
}

func attended(expected []string, names map[string]bool) []string {
	out := []string{}
	for _, n := range expected {
		if names[n] {
			out = append(out, n)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
