// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/cliparse"
	"github.com/danielhkuo/eventroll/feedback"
	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/store"
)

type FeedbackHandler struct {
	svc *feedback.Service
	cfg cliparse.Config
}

func NewFeedbackHandler(svc *feedback.Service, cfg cliparse.Config) *FeedbackHandler {
	return &FeedbackHandler{svc: svc, cfg: cfg}
}

// GetEventRecords handles GET /events/{id}/records
func (h *FeedbackHandler) GetEventRecords(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if !requireStaffKey(w, r, eventID, h.cfg.StaffKeySalt) {
		return
	}

	rec, err := h.svc.ForEvent(r.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event record not found")
		return
	}
	if err != nil {
		slog.Error("failed to get event record", "event_id", eventID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, rec)
}

// SubmitFeedback handles PUT /events/{id}/records/{personId}
func (h *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	personID := r.PathValue("personId")
	if !requireStaffKey(w, r, eventID, h.cfg.StaffKeySalt) {
		return
	}

	var req models.SubmitFeedbackRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := middleware.ValidateStruct(req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	entry, err := h.svc.Submit(r.Context(), eventID, personID, req)
	switch {
	case errors.Is(err, feedback.ErrInvalidFeedback):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, feedback.ErrNotRegistered):
		middleware.ErrorResponse(w, http.StatusConflict, "Person is not registered for this event")
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Event or person not found")
	case err != nil:
		slog.Error("failed to submit feedback", "event_id", eventID, "person_id", personID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit feedback")
	default:
		slog.Info("feedback submitted", "event_id", eventID, "person_id", personID)
		middleware.JSONResponse(w, http.StatusOK, entry)
	}
}
