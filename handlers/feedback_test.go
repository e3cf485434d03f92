// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielhkuo/eventroll/feedback"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/registration"
	"github.com/danielhkuo/eventroll/testutil"
)

func TestSubmitFeedback(t *testing.T) {
	env := setupTestEnv(t)
	fb := feedback.NewService(env.repo)
	handler := NewFeedbackHandler(fb, env.cfg)
	event, key := testutil.CreateTestEvent(t, env.repo, env.cfg, true)

	_, err := registration.NewService(env.repo).Join(context.Background(),
		models.SessionContext{Person: env.volunteer}, event.ID, env.volunteer, registration.JoinOptions{})
	if err != nil {
		t.Fatal(err)
	}

	valid := models.SubmitFeedbackRequest{
		Achievements: []string{"Led warm-up"},
		Completion:   80,
		Rank:         2,
		Score:        7.5,
		Remarks:      "Great energy",
	}

	tests := []struct {
		name           string
		personID       string
		headers        map[string]string
		body           models.SubmitFeedbackRequest
		expectedStatus int
	}{
		{"valid feedback", env.volunteer.ID, withKey(key), valid, http.StatusOK},
		{"completion over 100", env.volunteer.ID, withKey(key), models.SubmitFeedbackRequest{Completion: 150}, http.StatusBadRequest},
		{"negative rank", env.volunteer.ID, withKey(key), models.SubmitFeedbackRequest{Rank: -1}, http.StatusBadRequest},
		{"person not registered", env.caregiver.ID, withKey(key), valid, http.StatusConflict},
		{"unknown person", "ghost", withKey(key), valid, http.StatusNotFound},
		{"wrong staff key", env.volunteer.ID, withKey("bad"), valid, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("PUT", "/events/x/records/"+tt.personID, tt.body, tt.headers)
			w := serve(handler.SubmitFeedback, req, "id", event.ID, "personId", tt.personID)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	w := serve(handler.GetEventRecords, testutil.MakeRequest("GET", "/events/x/records", nil, withKey(key)), "id", event.ID)
	testutil.AssertStatus(t, w, http.StatusOK)

	var rec models.EventRecord
	testutil.AssertJSON(t, w, &rec)
	entry, ok := rec.Entries[env.volunteer.ID]
	if !ok {
		t.Fatalf("Expected entry for volunteer, got %+v", rec.Entries)
	}
	if entry.Name != "Bob" || entry.Completion != 80 || entry.Rank != 2 || entry.Remarks != "Great energy" {
		t.Errorf("Unexpected entry %+v", entry)
	}

	// The same entry shows up in the person's history
	persons := NewPersonHandler(env.repo, fb)
	w = serve(persons.GetRecords, testutil.MakeRequest("GET", "/persons/x/records", nil, nil), "id", env.volunteer.ID)
	testutil.AssertStatus(t, w, http.StatusOK)
	var history []models.PersonRecord
	testutil.AssertJSON(t, w, &history)
	if len(history) != 1 || history[0].Event.ID != event.ID || history[0].Entry.Score != 7.5 {
		t.Errorf("Unexpected history %+v", history)
	}
}

func TestGetEventRecords(t *testing.T) {
	env := setupTestEnv(t)
	handler := NewFeedbackHandler(feedback.NewService(env.repo), env.cfg)
	event, key := testutil.CreateTestEvent(t, env.repo, env.cfg, true)

	w := serve(handler.GetEventRecords, testutil.MakeRequest("GET", "/events/x/records", nil, withKey("bad")), "id", event.ID)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = serve(handler.GetEventRecords, testutil.MakeRequest("GET", "/events/x/records", nil, withKey(key)), "id", event.ID)
	testutil.AssertStatus(t, w, http.StatusOK)
	var rec models.EventRecord
	testutil.AssertJSON(t, w, &rec)
	if rec.EventID != event.ID || len(rec.Entries) != 0 {
		t.Errorf("Expected empty record for %s, got %+v", event.ID, rec)
	}
}
