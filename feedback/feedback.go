// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feedback

import (
	"context"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/roster"
)

var (
	ErrNotRegistered   = errors.New("person is not registered for this event")
	ErrInvalidFeedback = errors.New("invalid feedback")
)

type Service struct {
	repo *repository.Repository
}

func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Submit replaces the person's feedback entry for the event. The entry is
// created if registration did not create it.
func (s *Service) Submit(ctx context.Context, eventID, personID string, req models.SubmitFeedbackRequest) (models.FeedbackEntry, error) {
	event, _, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return models.FeedbackEntry{}, err
	}
	person, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return models.FeedbackEntry{}, err
	}
	if !roster.IsRegistered(event, person) {
		return models.FeedbackEntry{}, errors.Wrapf(ErrNotRegistered, "%s", person.Name)
	}

	entry := models.FeedbackEntry{
		Name:         person.Name,
		Achievements: req.Achievements,
		Completion:   req.Completion,
		Rank:         req.Rank,
		Score:        req.Score,
		Remarks:      req.Remarks,
	}
	if entry.Achievements == nil {
		entry.Achievements = []string{}
	}
	if msg := middleware.ValidateStruct(entry); msg != "" {
		return models.FeedbackEntry{}, errors.Wrap(ErrInvalidFeedback, msg)
	}

	_, err = s.repo.UpdateRecord(ctx, eventID, func(rec *models.EventRecord) error {
		rec.Entries[person.ID] = entry
		return nil
	})
	if err != nil {
		return models.FeedbackEntry{}, err
	}
	return entry, nil
}

// ForEvent returns the event's feedback entries keyed by person ID.
func (s *Service) ForEvent(ctx context.Context, eventID string) (models.EventRecord, error) {
	rec, _, err := s.repo.GetRecord(ctx, eventID)
	return rec, err
}

// ForPerson returns the person's entries across events.
func (s *Service) ForPerson(ctx context.Context, personID string) ([]models.PersonRecord, error) {
	if _, err := s.repo.GetPerson(ctx, personID); err != nil {
		return nil, err
	}
	return s.repo.ListRecordsForPerson(ctx, personID)
}
