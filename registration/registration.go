// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package registration

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/roster"
)

var (
	ErrLocationRequired = errors.New("Location Required")
	ErrUnknownLocation  = errors.New("unknown meet-up location")
	ErrAlreadyJoined    = errors.New("already joined")
	ErrNotJoined        = errors.New("not joined")
	ErrNotAllowed       = errors.New("not allowed")
	ErrInvalidName      = errors.New("invalid name")
)

type JoinOptions struct {
	MeetUpLocation  string
	CaregiverComing bool
}

type Service struct {
	repo *repository.Repository
}

func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// authorize checks that actor may change target's registration. People act
// for themselves; staff act for anyone who can register.
func authorize(sc models.SessionContext, target models.Person) (models.Capabilities, error) {
	caps, ok := target.Role.Capabilities()
	if !ok || !caps.CanRegister {
		return models.Capabilities{}, errors.Wrapf(ErrNotAllowed, "role %q cannot register", target.Role)
	}
	if sc.Person.ID != target.ID && !sc.Capabilities().ManagesEvents {
		return models.Capabilities{}, errors.Wrap(ErrNotAllowed, "cannot act for another person")
	}
	if target.Name == "" {
		return models.Capabilities{}, errors.Wrap(ErrInvalidName, "empty name")
	}
	return caps, nil
}

// Join adds target to the event list for their role and creates their empty
// feedback entry if it does not exist yet.
func (s *Service) Join(ctx context.Context, sc models.SessionContext, eventID string, target models.Person, opts JoinOptions) (models.Event, error) {
	caps, err := authorize(sc, target)
	if err != nil {
		return models.Event{}, err
	}

	var entry string
	switch caps.AttendanceList {
	case models.AttendanceParticipants:
		opts.MeetUpLocation = strings.TrimSpace(opts.MeetUpLocation)
		if caps.RequiresMeetUpLocation && opts.MeetUpLocation == "" {
			return models.Event{}, ErrLocationRequired
		}
		entry, err = roster.EncodeParticipant(models.Participant{
			Name:            target.Name,
			MeetUpLocation:  opts.MeetUpLocation,
			CaregiverComing: opts.CaregiverComing,
		})
		if err != nil {
			return models.Event{}, errors.Wrap(ErrInvalidName, err.Error())
		}
	case models.AttendanceVolunteers:
		entry = target.Name
	}

	event, err := s.repo.UpdateEvent(ctx, eventID, func(e *models.Event) error {
		if !e.Published && !sc.Capabilities().SeesUnpublished {
			return errors.Wrap(ErrNotAllowed, "event is not published")
		}
		if roster.IsRegistered(*e, target) {
			return ErrAlreadyJoined
		}
		switch caps.AttendanceList {
		case models.AttendanceParticipants:
			if !e.HasMeetUpLocation(opts.MeetUpLocation) {
				return errors.Wrapf(ErrUnknownLocation, "%q", opts.MeetUpLocation)
			}
			e.Participants = append(e.Participants, entry)
		case models.AttendanceVolunteers:
			e.Volunteers = append(e.Volunteers, entry)
		}
		return nil
	})
	if err != nil {
		return models.Event{}, err
	}

	_, err = s.repo.UpdateRecord(ctx, eventID, func(rec *models.EventRecord) error {
		if _, ok := rec.Entries[target.ID]; !ok {
			rec.Entries[target.ID] = models.NewFeedbackEntry(target.Name)
		}
		return nil
	})
	if err != nil {
		// The entry is also created on first feedback submission.
		slog.Warn("failed to create feedback entry", "event_id", eventID, "person_id", target.ID, "error", err)
	}

	slog.Info("joined event",
		"event_id", eventID,
		"person_id", target.ID,
		"list", caps.AttendanceList.String(),
		"meet_up_location", opts.MeetUpLocation,
	)
	return event, nil
}

// Withdraw removes target's entry from the event and deletes their feedback
// entry.
func (s *Service) Withdraw(ctx context.Context, sc models.SessionContext, eventID string, target models.Person) (models.Event, error) {
	caps, err := authorize(sc, target)
	if err != nil {
		return models.Event{}, err
	}

	event, err := s.repo.UpdateEvent(ctx, eventID, func(e *models.Event) error {
		switch caps.AttendanceList {
		case models.AttendanceParticipants:
			_, raw, ok := roster.FindParticipant(*e, target.Name)
			if !ok {
				return ErrNotJoined
			}
			e.Participants = remove(e.Participants, raw)
		case models.AttendanceVolunteers:
			before := len(e.Volunteers)
			e.Volunteers = remove(e.Volunteers, target.Name)
			if len(e.Volunteers) == before {
				return ErrNotJoined
			}
		}
		return nil
	})
	if err != nil {
		return models.Event{}, err
	}

	_, err = s.repo.UpdateRecord(ctx, eventID, func(rec *models.EventRecord) error {
		delete(rec.Entries, target.ID)
		return nil
	})
	if err != nil {
		slog.Warn("failed to delete feedback entry", "event_id", eventID, "person_id", target.ID, "error", err)
	}

	slog.Info("withdrew from event", "event_id", eventID, "person_id", target.ID)
	return event, nil
}

// remove drops every exact occurrence of s.
func remove(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
