// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/proximity"
)

var (
	ErrSessionExists   = errors.New("a session is already active for this event and location")
	ErrSessionNotFound = errors.New("session not found")
)

type sessionKey struct {
	eventID  string
	location string
}

type entry struct {
	session *Session
	feed    *proximity.Feed
}

// Manager owns the live sessions. At most one session runs per event and
// meet-up location.
type Manager struct {
	store     Store
	cfg       Config
	locator   proximity.Locator
	queueSize int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]entry
	active   map[sessionKey]string
}

func NewManager(store Store, cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	cfg = cfg.withDefaults()
	return &Manager{
		store:     store,
		cfg:       cfg,
		locator:   proximity.BatchLocator{Now: cfg.Now},
		queueSize: proximity.DefaultQueueSize,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[string]entry),
		active:    make(map[sessionKey]string),
	}
}

// Start creates a session, loads it and starts consuming sightings in the
// background. A session that fails to start is not registered.
func (m *Manager) Start(ctx context.Context, eventID, location string, radioDenied bool) (*Session, error) {
	key := sessionKey{eventID: eventID, location: location}

	m.mu.Lock()
	if id, ok := m.active[key]; ok {
		m.mu.Unlock()
		return nil, errors.Wrapf(ErrSessionExists, "session %s", id)
	}
	// Reserve the key while loading so concurrent starts cannot both win.
	id := uuid.NewString()
	m.active[key] = id
	m.mu.Unlock()

	feed := proximity.NewFeed(radioDenied, m.queueSize)
	s := NewSession(id, eventID, location, m.store, feed, m.locator, m.cfg)
	if err := s.Start(ctx); err != nil {
		m.mu.Lock()
		delete(m.active, key)
		m.mu.Unlock()
		feed.Close()
		return s, err
	}

	m.mu.Lock()
	m.sessions[id] = entry{session: s, feed: feed}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		s.Run(m.ctx)
		m.forget(id, key)
	}()
	return s, nil
}

func (m *Manager) forget(id string, key sessionKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		e.feed.Close()
		delete(m.sessions, id)
	}
	if m.active[key] == id {
		delete(m.active, key)
	}
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	return e.session, ok
}

// Publish hands a batch from the scanning device to the session's feed.
func (m *Manager) Publish(id string, b proximity.Batch) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return errors.Wrap(ErrSessionNotFound, id)
	}
	return e.feed.Publish(b)
}

// Stop ends a session and returns its final status.
func (m *Manager) Stop(id string) (models.SessionStatus, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return models.SessionStatus{}, errors.Wrap(ErrSessionNotFound, id)
	}
	e.session.Stop()
	m.forget(id, sessionKey{eventID: e.session.EventID(), location: e.session.Location()})
	return e.session.Status(), nil
}

// List returns the status of every live session ordered by event then
// location.
func (m *Manager) List() []models.SessionStatus {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		sessions = append(sessions, e.session)
	}
	m.mu.Unlock()

	out := make([]models.SessionStatus, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Status())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].MeetUpLocation < out[j].MeetUpLocation
	})
	return out
}

// StopAll stops every session and waits for their loops to exit.
func (m *Manager) StopAll() {
	m.cancel()
	m.wg.Wait()
	slog.Info("all attendance sessions stopped")
}
