// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/roster"
)

// DefaultOffset is how long before an event starts its reminder fires.
const DefaultOffset = 2 * time.Hour

// DefaultSchedule is the cron spec for re-evaluating reminders.
const DefaultSchedule = "@every 10m"

type Reminder struct {
	PersonID  string
	Name      string
	Email     string
	EventID   string
	EventName string
	StartsAt  time.Time
	FireAt    time.Time
}

type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// Source lists what reminders are derived from.
type Source interface {
	ListPublished(ctx context.Context) ([]models.Event, error)
	ListPersons(ctx context.Context) ([]models.Person, error)
}

type pendingReminder struct {
	reminder Reminder
	timer    *time.Timer
}

// Scheduler keeps one pending reminder per person and upcoming event. Each
// evaluation cancels everything pending and schedules from scratch.
type Scheduler struct {
	src      Source
	notifier Notifier
	offset   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingReminder
	cron    *cron.Cron
}

func NewScheduler(src Source, notifier Notifier, offset time.Duration) *Scheduler {
	if offset <= 0 {
		offset = DefaultOffset
	}
	return &Scheduler{
		src:      src,
		notifier: notifier,
		offset:   offset,
		now:      time.Now,
		pending:  make(map[string]*pendingReminder),
	}
}

func reminderKey(eventID, personID string) string {
	return eventID + "/" + personID
}

// Evaluate reschedules reminders for every registered person of every
// published event that has not started. It returns how many are pending.
func (s *Scheduler) Evaluate(ctx context.Context) (int, error) {
	events, err := s.src.ListPublished(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list published events")
	}
	persons, err := s.src.ListPersons(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list persons")
	}

	now := s.now()
	var reminders []Reminder
	for _, e := range events {
		if !e.DateTime.After(now) {
			continue
		}
		fireAt := e.DateTime.Add(-s.offset)
		if fireAt.Before(now) {
			continue
		}
		for _, p := range persons {
			if !roster.IsRegistered(e, p) {
				continue
			}
			reminders = append(reminders, Reminder{
				PersonID:  p.ID,
				Name:      p.Name,
				Email:     p.Email,
				EventID:   e.ID,
				EventName: e.Name,
				StartsAt:  e.DateTime,
				FireAt:    fireAt,
			})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	for _, r := range reminders {
		key := reminderKey(r.EventID, r.PersonID)
		pr := &pendingReminder{reminder: r}
		pr.timer = time.AfterFunc(r.FireAt.Sub(now), func() { s.fire(key, pr) })
		s.pending[key] = pr
	}

	slog.Info("reminders scheduled", "pending", len(s.pending), "events", len(events))
	return len(s.pending), nil
}

func (s *Scheduler) fire(key string, pr *pendingReminder) {
	s.mu.Lock()
	if s.pending[key] != pr {
		// Cancelled by a later evaluation.
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.notifier.Notify(ctx, pr.reminder); err != nil {
		slog.Warn("reminder delivery failed",
			"event_id", pr.reminder.EventID,
			"person_id", pr.reminder.PersonID,
			"error", err,
		)
	}
}

func (s *Scheduler) cancelLocked() {
	for key, pr := range s.pending {
		pr.timer.Stop()
		delete(s.pending, key)
	}
}

// Pending lists scheduled reminders ordered by fire time.
func (s *Scheduler) Pending() []models.ReminderView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ReminderView, 0, len(s.pending))
	for _, pr := range s.pending {
		r := pr.reminder
		out = append(out, models.ReminderView{
			PersonID:  r.PersonID,
			Name:      r.Name,
			EventID:   r.EventID,
			EventName: r.EventName,
			StartsAt:  r.StartsAt,
			FireAt:    r.FireAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].PersonID < out[j].PersonID
	})
	return out
}

// Start evaluates once and then on every tick of spec.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Evaluate(ctx); err != nil {
			slog.Warn("reminder evaluation failed", "error", err)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "invalid reminder schedule %q", spec)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.Evaluate(ctx); err != nil {
		slog.Warn("initial reminder evaluation failed", "error", err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	slog.Info("reminder scheduler started", "schedule", spec, "offset", s.offset.String())
	return nil
}

// Stop halts re-evaluation and cancels pending reminders.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.cancelLocked()
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
