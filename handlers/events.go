// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/auth"
	"github.com/danielhkuo/eventroll/cliparse"
	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/store"
)

type EventHandler struct {
	repo *repository.Repository
	cfg  cliparse.Config
}

func NewEventHandler(repo *repository.Repository, cfg cliparse.Config) *EventHandler {
	return &EventHandler{repo: repo, cfg: cfg}
}

// CreateEvent handles POST /events. Only staff create events; the response
// carries the staff key for the new event.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	sc, ok := requirePerson(w, r, h.repo)
	if !ok {
		return
	}
	if !sc.Capabilities().ManagesEvents {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only staff can create events")
		return
	}

	var req models.CreateEventRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := middleware.ValidateStruct(req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	event, err := h.repo.CreateEvent(r.Context(), models.Event{
		Name:            req.Name,
		Location:        req.Location,
		Information:     req.Information,
		DateTime:        req.DateTime,
		MeetUpLocations: req.MeetUpLocations,
		ItemsToBring:    req.ItemsToBring,
		CreatedBy:       sc.Person.ID,
	})
	if err != nil {
		slog.Error("failed to create event", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create event")
		return
	}

	slog.Info("event created", "event_id", event.ID, "created_by", sc.Person.ID)
	middleware.JSONResponse(w, http.StatusCreated, models.CreateEventResponse{
		Event:    event,
		StaffKey: auth.GenerateStaffKey(event.ID, h.cfg.StaffKeySalt),
	})
}

// ListEvents handles GET /events. Staff see unpublished events too.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	sc, found, err := identify(r, h.repo)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Unknown person")
		return
	}
	if err != nil {
		slog.Error("failed to load acting person", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var events []models.Event
	if found && sc.Capabilities().SeesUnpublished {
		events, err = h.repo.ListEvents(r.Context())
	} else {
		events, err = h.repo.ListPublished(r.Context())
	}
	if err != nil {
		slog.Error("failed to list events", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].DateTime.Before(events[j].DateTime)
	})
	middleware.JSONResponse(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}. Unpublished events are only visible to
// staff or holders of the event's staff key.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	event, _, err := h.repo.GetEvent(r.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		slog.Error("failed to get event", "event_id", eventID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !event.Published && !h.canSeeUnpublished(r, eventID) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, event)
}

func (h *EventHandler) canSeeUnpublished(r *http.Request, eventID string) bool {
	key := r.Header.Get(middleware.HeaderStaffKey)
	if key != "" && auth.ValidateStaffKey(eventID, key, h.cfg.StaffKeySalt) == nil {
		return true
	}
	sc, found, err := identify(r, h.repo)
	return err == nil && found && sc.Capabilities().SeesUnpublished
}

// UpdateEvent handles PATCH /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if !requireStaffKey(w, r, eventID, h.cfg.StaffKeySalt) {
		return
	}

	var req models.UpdateEventRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := middleware.ValidateStruct(req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	event, err := h.repo.UpdateEvent(r.Context(), eventID, func(e *models.Event) error {
		if req.Name != nil {
			e.Name = *req.Name
		}
		if req.Location != nil {
			e.Location = *req.Location
		}
		if req.Information != nil {
			e.Information = *req.Information
		}
		if req.DateTime != nil {
			e.DateTime = *req.DateTime
		}
		if req.MeetUpLocations != nil {
			e.MeetUpLocations = req.MeetUpLocations
		}
		if req.ItemsToBring != nil {
			e.ItemsToBring = req.ItemsToBring
		}
		return nil
	})
	h.writeEvent(w, eventID, event, err, "update")
}

// PublishEvent handles POST /events/{id}/publish
func (h *EventHandler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

// UnpublishEvent handles POST /events/{id}/unpublish
func (h *EventHandler) UnpublishEvent(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *EventHandler) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	eventID := r.PathValue("id")
	if !requireStaffKey(w, r, eventID, h.cfg.StaffKeySalt) {
		return
	}

	event, err := h.repo.UpdateEvent(r.Context(), eventID, func(e *models.Event) error {
		e.Published = published
		return nil
	})
	if err == nil {
		slog.Info("event visibility changed", "event_id", eventID, "published", published)
	}
	h.writeEvent(w, eventID, event, err, "publish")
}

func (h *EventHandler) writeEvent(w http.ResponseWriter, eventID string, event models.Event, err error, op string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, store.ErrStaleWrite):
		middleware.ErrorResponse(w, http.StatusConflict, "Event is being changed, try again")
	case err != nil:
		slog.Error("failed to "+op+" event", "event_id", eventID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+op+" event")
	default:
		middleware.JSONResponse(w, http.StatusOK, event)
	}
}

// DeleteEvent handles DELETE /events/{id}. The event record goes with it.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if !requireStaffKey(w, r, eventID, h.cfg.StaffKeySalt) {
		return
	}

	err := h.repo.DeleteEvent(r.Context(), eventID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete event", "event_id", eventID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}

	slog.Info("event deleted", "event_id", eventID)
	w.WriteHeader(http.StatusNoContent)
}
